package users

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/shopora-backend/pkg/db/models"
	"github.com/angelmondragon/shopora-backend/pkg/enums"
	"github.com/angelmondragon/shopora-backend/pkg/pagination"
	"github.com/angelmondragon/shopora-backend/pkg/types"
)

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	ID          uuid.UUID      `json:"id"`
	Name        string         `json:"name"`
	Email       string         `json:"email"`
	Role        enums.UserRole `json:"role"`
	IsAdmin     bool           `json:"isAdmin"`
	IsActive    bool           `json:"isActive"`
	LastLoginAt *time.Time     `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Name         string
	Email        string
	PasswordHash string
	Role         enums.UserRole
	IsActive     *bool
}

// UpdateProfileInput is a partial self-service update. Nil fields are left alone.
type UpdateProfileInput struct {
	Name     *string `json:"name" validate:"omitempty,min=1,max=100"`
	Email    *string `json:"email" validate:"omitempty,email,max=254"`
	Password *string `json:"password" validate:"omitempty,min=6,max=128"`
}

// AdminUpdateInput is the admin-side partial update.
type AdminUpdateInput struct {
	Name     *string         `json:"name" validate:"omitempty,min=1,max=100"`
	Email    *string         `json:"email" validate:"omitempty,email,max=254"`
	Role     *enums.UserRole `json:"role" validate:"omitempty,oneof=customer admin"`
	IsActive *bool           `json:"isActive"`
}

// UserListResult wraps one page of users.
type UserListResult struct {
	Users []UserDTO `json:"users"`
	pagination.Page
}

// NormalizeEmail lower-cases and trims so the unique index is case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}

	return &UserDTO{
		ID:          u.ID,
		Name:        u.Name,
		Email:       u.Email,
		Role:        u.Role,
		IsAdmin:     u.IsAdmin(),
		IsActive:    u.IsActive,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	isActive := true
	if c.IsActive != nil {
		isActive = *c.IsActive
	}
	role := c.Role
	if role == "" {
		role = enums.UserRoleCustomer
	}

	return &models.User{
		ID:           uuid.New(),
		Name:         strings.TrimSpace(c.Name),
		Email:        NormalizeEmail(c.Email),
		PasswordHash: c.PasswordHash,
		Role:         role,
		Cart:         types.CartLines{},
		IsActive:     isActive,
	}
}
