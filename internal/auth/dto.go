package auth

import (
	"github.com/angelmondragon/shopora-backend/internal/cart"
	"github.com/angelmondragon/shopora-backend/internal/users"
	"github.com/angelmondragon/shopora-backend/pkg/types"
)

// LoginRequest captures the credentials plus the optional client-held guest cart.
type LoginRequest struct {
	Email     string           `json:"email" validate:"required,email"`
	Password  string           `json:"password" validate:"required"`
	GuestCart []types.GuestLine `json:"guestCart" validate:"guestcart"`
}

// RegisterRequest creates a customer account and logs it in.
type RegisterRequest struct {
	Name      string           `json:"name" validate:"required,min=1,max=100"`
	Email     string           `json:"email" validate:"required,email,max=254"`
	Password  string           `json:"password" validate:"required,min=6,max=128"`
	GuestCart []types.GuestLine `json:"guestCart" validate:"guestcart"`
}

// LoginResponse contains the tokens, the user and the outcome of the guest cart merge.
type LoginResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	User         *users.UserDTO `json:"user"`
	// Cart is set only when a guest cart was merged.
	Cart          *cart.CartDTO       `json:"cart,omitempty"`
	MergeWarnings []cart.MergeWarning `json:"mergeWarnings,omitempty"`
	// GuestCartMerged is false when a merge was requested but could not run; the
	// client should keep its guest cart and retry through the cart merge endpoint.
	GuestCartMerged bool `json:"guestCartMerged"`
}
