// Package users persists accounts. Services receive *models.User and hand
// UserDTO to transport so password hashes never leave the process.
package users

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/scentlab/perfumery-backend/pkg/db/models"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// matchingIdentity selects rows whose username equals username exactly or
// whose email equals email ignoring case.
func matchingIdentity(username, email string) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		return tx.Where("username = ? OR LOWER(email) = ?", username, strings.ToLower(email))
	}
}

func (r *Repository) Create(ctx context.Context, dto CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// FindByLogin accepts either the username or the email as identifier.
// The oldest account wins if a username collides with another's email.
func (r *Repository) FindByLogin(ctx context.Context, identifier string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Scopes(matchingIdentity(identifier, identifier)).
		Order("id").
		Take(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID returns gorm.ErrRecordNotFound for unknown ids.
func (r *Repository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// ExistsByUsernameOrEmail reports which of the two identifiers are taken.
func (r *Repository) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (usernameTaken, emailTaken bool, err error) {
	var clashes []models.User
	err = r.db.WithContext(ctx).
		Select("username", "email").
		Scopes(matchingIdentity(username, email)).
		Find(&clashes).Error
	for _, u := range clashes {
		usernameTaken = usernameTaken || u.Username == username
		emailTaken = emailTaken || strings.EqualFold(u.Email, email)
	}
	return usernameTaken, emailTaken, err
}

// UpdateLastLogin leaves updated_at alone; a login is not a profile edit.
func (r *Repository) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", at).Error
}

func (r *Repository) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	res := r.db.WithContext(ctx).
		Model(&models.User{ID: id}).
		Update("password_hash", hash)
	switch {
	case res.Error != nil:
		return res.Error
	case res.RowsAffected == 0:
		return gorm.ErrRecordNotFound
	}
	return nil
}
