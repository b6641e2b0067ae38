// Package auth mints and parses the HS256 access tokens handed to clients.
package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/shopora-backend/pkg/enums"
)

// AccessTokenPayload is what the caller knows when minting a token.
type AccessTokenPayload struct {
	UserID uuid.UUID
	Role   enums.UserRole
	// JTI doubles as the refresh session key; a blank value gets a fresh UUID.
	JTI string
}

// AccessTokenClaims is the JWT body.
type AccessTokenClaims struct {
	UserID uuid.UUID      `json:"user_id"`
	Role   enums.UserRole `json:"role"`
	jwt.RegisteredClaims
}

var errClaimsMismatch = errors.New("token subject does not match user_id")

// Validate runs after the registered-claim checks. jwt skips it for parsers
// built WithoutClaimsValidation.
func (c *AccessTokenClaims) Validate() error {
	if c.UserID == uuid.Nil || c.Subject != c.UserID.String() {
		return errClaimsMismatch
	}
	if !c.Role.IsValid() {
		return errors.New("token carries an unknown role")
	}
	if c.ID == "" {
		return errors.New("token has no jti")
	}
	return nil
}
