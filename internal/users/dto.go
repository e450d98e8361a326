package users

import (
	"time"

	"github.com/scentlab/perfumery-backend/pkg/db/models"
)

// UserDTO is the public account view returned by login, register and /me.
type UserDTO struct {
	ID          int64      `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	IsAdmin     bool       `json:"isAdmin"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// CreateUserDTO is an already normalized and hashed sign-up.
type CreateUserDTO struct {
	Username     string
	Email        string
	PasswordHash string
	IsAdmin      bool
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	dto := UserDTO{ID: u.ID, Username: u.Username, Email: u.Email, IsAdmin: u.IsAdmin, CreatedAt: u.CreatedAt}
	if u.LastLoginAt != nil {
		at := u.LastLoginAt.UTC()
		dto.LastLoginAt = &at
	}
	return &dto
}

func (c CreateUserDTO) ToModel() *models.User {
	return &models.User{Username: c.Username, Email: c.Email, PasswordHash: c.PasswordHash, IsAdmin: c.IsAdmin}
}
