package auth

import (
	"github.com/scentlab/perfumery-backend/internal/users"
)

// LoginRequest captures the credentials sent to the login endpoint. Username
// may also hold the account email.
type LoginRequest struct {
	Username string `json:"username" validate:"required,max=255"`
	Password string `json:"password" validate:"required,max=128"`
}

// LoginResponse contains the token pair and the authenticated user.
type LoginResponse struct {
	Token        string         `json:"token"`
	RefreshToken string         `json:"refreshToken"`
	User         *users.UserDTO `json:"user"`
}

// RegisterRequest is the public sign-up payload.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// ChangePasswordRequest rotates the caller's own password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required,max=128"`
	NewPassword     string `json:"newPassword" validate:"required,min=8,max=128"`
}

// CheckFields rejects reusing the current password.
func (r ChangePasswordRequest) CheckFields() map[string]string {
	if r.NewPassword != "" && r.NewPassword == r.CurrentPassword {
		return map[string]string{"newPassword": "must differ from the current password"}
	}
	return nil
}
