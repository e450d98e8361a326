package brands

import (
	"context"
	"strings"
	"time"

	"github.com/scentlab/perfumery-backend/pkg/db"
	"github.com/scentlab/perfumery-backend/pkg/db/models"
	pkgerrors "github.com/scentlab/perfumery-backend/pkg/errors"
)

// BrandDTO is the API shape of a brand.
type BrandDTO struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// CreateBrandRequest is the admin payload for a new brand.
type CreateBrandRequest struct {
	Name string `json:"name" validate:"required,max=120"`
}

type brandRepository interface {
	List(ctx context.Context) ([]models.Brand, error)
	Create(ctx context.Context, name string) (*models.Brand, error)
}

// Service exposes brand reference data.
type Service interface {
	List(ctx context.Context) ([]BrandDTO, error)
	Create(ctx context.Context, req CreateBrandRequest) (*BrandDTO, error)
}

type service struct {
	repo brandRepository
}

// NewService builds a brand service.
func NewService(repo brandRepository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "brand repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context) ([]BrandDTO, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list brands")
	}
	out := make([]BrandDTO, 0, len(rows))
	for i := range rows {
		out = append(out, toDTO(&rows[i]))
	}
	return out, nil
}

func (s *service) Create(ctx context.Context, req CreateBrandRequest) (*BrandDTO, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "brand name is required")
	}
	brand, err := s.repo.Create(ctx, name)
	if err != nil {
		return nil, db.Classify(err, "", "brand already exists", "create brand")
	}
	dto := toDTO(brand)
	return &dto, nil
}

func toDTO(b *models.Brand) BrandDTO {
	return BrandDTO{ID: b.ID, Name: b.Name, CreatedAt: b.CreatedAt}
}
