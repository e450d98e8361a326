// Package auth mints and verifies the HS256 access tokens handed to clients.
package auth

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/scentlab/perfumery-backend/pkg/enums"
)

// AccessTokenPayload is the input to MintAccessToken.
type AccessTokenPayload struct {
	UserID   int64
	Username string
	Role     enums.ActorRole
	JTI      string
}

type AccessTokenClaims struct {
	UserID   int64           `json:"user_id"`
	Username string          `json:"username"`
	Role     enums.ActorRole `json:"role"`
	jwt.RegisteredClaims
}

func (c *AccessTokenClaims) IsAdmin() bool {
	return c != nil && c.Role == enums.ActorRoleAdmin
}
