package brands

import (
	"context"

	"github.com/scentlab/perfumery-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository encapsulates brand persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a brand repository to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// List returns every brand ordered by name.
func (r *Repository) List(ctx context.Context) ([]models.Brand, error) {
	var rows []models.Brand
	if err := r.db.WithContext(ctx).Order("name ASC").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// FindByID loads a brand by id.
func (r *Repository) FindByID(ctx context.Context, id int64) (*models.Brand, error) {
	var brand models.Brand
	if err := r.db.WithContext(ctx).First(&brand, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &brand, nil
}

// Create inserts a brand.
func (r *Repository) Create(ctx context.Context, name string) (*models.Brand, error) {
	brand := &models.Brand{Name: name}
	if err := r.db.WithContext(ctx).Create(brand).Error; err != nil {
		return nil, err
	}
	return brand, nil
}
