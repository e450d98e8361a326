package models

import (
	"time"

	"github.com/scentlab/perfumery-backend/pkg/enums"
)

// PerfumeFormula is a production formula: the dilution of a perfume and how
// long the blend rests before it can be sold.
type PerfumeFormula struct {
	ID                  int64     `gorm:"column:id;primaryKey;autoIncrement"`
	PerfumeID           int64     `gorm:"column:perfume_id;not null;index"`
	FragrancePercentage float64   `gorm:"column:fragrance_percentage;not null"`
	AlcoholPercentage   float64   `gorm:"column:alcohol_percentage;not null"`
	WaterPercentage     float64   `gorm:"column:water_percentage;not null"`
	RestDay             int       `gorm:"column:rest_day;not null"`
	CreatedAt           time.Time `gorm:"column:created_at;autoCreateTime"`
}

// FormulaPendingRequest is a user-submitted formula awaiting admin review.
type FormulaPendingRequest struct {
	ID                  int64                      `gorm:"column:id;primaryKey;autoIncrement"`
	PerfumeID           int64                      `gorm:"column:perfume_id;not null;index"`
	UserID              *int64                     `gorm:"column:user_id"`
	FragrancePercentage float64                    `gorm:"column:fragrance_percentage;not null"`
	AlcoholPercentage   float64                    `gorm:"column:alcohol_percentage;not null"`
	WaterPercentage     float64                    `gorm:"column:water_percentage;not null"`
	RestDay             int                        `gorm:"column:rest_day;not null"`
	Status              enums.FormulaRequestStatus `gorm:"column:status;not null;default:PENDING"`
	CreatedAt           time.Time                  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time                  `gorm:"column:updated_at;autoUpdateTime"`
}

// FormulaRating is one user's score for a production formula.
type FormulaRating struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	FormulaID int64     `gorm:"column:formula_id;not null;uniqueIndex:formula_ratings_formula_user_key"`
	UserID    int64     `gorm:"column:user_id;not null;uniqueIndex:formula_ratings_formula_user_key"`
	Rating    int       `gorm:"column:rating;not null"`
	Comment   *string   `gorm:"column:comment"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
