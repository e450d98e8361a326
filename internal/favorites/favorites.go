// Package favorites tracks which perfumes a user has marked.
package favorites

import (
	"context"
	"time"

	"github.com/scentlab/perfumery-backend/pkg/db"
	"github.com/scentlab/perfumery-backend/pkg/db/models"
	pkgerrors "github.com/scentlab/perfumery-backend/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ToggleRequest struct {
	PerfumeID int64 `json:"perfume_id" validate:"required,gt=0"`
}

type ToggleResult struct {
	PerfumeID  int64 `json:"perfume_id"`
	IsFavorite bool  `json:"is_favorite"`
}

type FavoriteDTO struct {
	PerfumeID   int64     `json:"perfume_id"`
	BrandID     int64     `json:"brand_id"`
	BrandName   string    `json:"brandName"`
	Name        string    `json:"name"`
	Notes       *string   `json:"notes"`
	Family      *string   `json:"family"`
	Type        *string   `json:"type"`
	FavoritedAt time.Time `json:"favoritedAt"`
}

type favoriteRecord struct {
	PerfumeID   int64     `gorm:"column:perfume_id"`
	BrandID     int64     `gorm:"column:brand_id"`
	BrandName   string    `gorm:"column:brand_name"`
	Name        string    `gorm:"column:name"`
	Notes       *string   `gorm:"column:notes"`
	Family      *string   `gorm:"column:family"`
	Type        *string   `gorm:"column:type"`
	FavoritedAt time.Time `gorm:"column:favorited_at"`
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Remove reports whether a favorite existed.
func (r *Repository) Remove(ctx context.Context, userID, perfumeID int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND perfume_id = ?", userID, perfumeID).
		Delete(&models.Favorite{})
	return res.RowsAffected > 0, res.Error
}

func (r *Repository) Add(ctx context.Context, userID, perfumeID int64) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Favorite{UserID: userID, PerfumeID: perfumeID}).Error
}

// List returns the user's favorites, newest first.
func (r *Repository) List(ctx context.Context, userID int64) ([]favoriteRecord, error) {
	var rows []favoriteRecord
	err := r.db.WithContext(ctx).
		Table("favorites AS fav").
		Select("p.id AS perfume_id, p.brand_id, b.name AS brand_name, p.name, p.notes, p.family, p.type, fav.created_at AS favorited_at").
		Joins("JOIN perfumes p ON p.id = fav.perfume_id").
		Joins("JOIN brands b ON b.id = p.brand_id").
		Where("fav.user_id = ?", userID).
		Order("fav.created_at DESC, fav.id DESC").
		Scan(&rows).Error
	return rows, err
}

type Service interface {
	Toggle(ctx context.Context, userID, perfumeID int64) (*ToggleResult, error)
	List(ctx context.Context, userID int64) ([]FavoriteDTO, error)
}

type service struct {
	db   *db.Client
	repo *Repository
}

func NewService(client *db.Client) (Service, error) {
	if client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "database client required")
	}
	return &service{db: client, repo: NewRepository(client.DB())}, nil
}

func (s *service) Toggle(ctx context.Context, userID, perfumeID int64) (*ToggleResult, error) {
	result := &ToggleResult{PerfumeID: perfumeID}
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		var count int64
		if err := tx.WithContext(ctx).Model(&models.Perfume{}).Where("id = ?", perfumeID).Count(&count).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load perfume")
		}
		if count == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "perfume not found")
		}

		repo := NewRepository(tx)
		removed, err := repo.Remove(ctx, userID, perfumeID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove favorite")
		}
		if removed {
			return nil
		}
		if err := repo.Add(ctx, userID, perfumeID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "add favorite")
		}
		result.IsFavorite = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) List(ctx context.Context, userID int64) ([]FavoriteDTO, error) {
	rows, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list favorites")
	}
	out := make([]FavoriteDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, FavoriteDTO(row))
	}
	return out, nil
}
