package formulas

import (
	"fmt"
	"math"
	"time"

	"github.com/scentlab/perfumery-backend/pkg/db/models"
	"github.com/scentlab/perfumery-backend/pkg/enums"
)

// PercentageTolerance is how far the three percentages may drift from 100.
const PercentageTolerance = 0.01

// FormulaInput is shared by direct creation and user requests.
type FormulaInput struct {
	PerfumeID           int64    `json:"perfume_id" validate:"required,gt=0"`
	FragrancePercentage *float64 `json:"fragrancePercentage" validate:"required,gte=0,lte=100"`
	AlcoholPercentage   *float64 `json:"alcoholPercentage" validate:"required,gte=0,lte=100"`
	WaterPercentage     *float64 `json:"waterPercentage" validate:"required,gte=0,lte=100"`
	RestDay             *int     `json:"restDay" validate:"required,gte=0"`
}

// CheckFields reports every violated rule, including the cross-field sum.
func (in FormulaInput) CheckFields() map[string]string {
	details := map[string]string{}
	if in.PerfumeID <= 0 {
		details["perfume_id"] = "is required"
	}
	checkPercentage(details, "fragrancePercentage", in.FragrancePercentage)
	checkPercentage(details, "alcoholPercentage", in.AlcoholPercentage)
	checkPercentage(details, "waterPercentage", in.WaterPercentage)
	if in.RestDay == nil {
		details["restDay"] = "is required"
	} else if *in.RestDay < 0 {
		details["restDay"] = "must be greater than or equal to 0"
	}

	if in.FragrancePercentage != nil && in.AlcoholPercentage != nil && in.WaterPercentage != nil {
		sum := *in.FragrancePercentage + *in.AlcoholPercentage + *in.WaterPercentage
		if math.Abs(sum-100) > PercentageTolerance {
			details["percentages"] = fmt.Sprintf("must sum to 100 (got %.2f)", sum)
		}
	}
	return details
}

func checkPercentage(details map[string]string, field string, value *float64) {
	switch {
	case value == nil:
		details[field] = "is required"
	case math.IsNaN(*value) || *value < 0 || *value > 100:
		details[field] = "must be between 0 and 100"
	}
}

// FormulaDTO is a production formula with its rating aggregate.
type FormulaDTO struct {
	ID                  int64     `json:"id"`
	PerfumeID           int64     `json:"perfume_id"`
	FragrancePercentage float64   `json:"fragrancePercentage"`
	AlcoholPercentage   float64   `json:"alcoholPercentage"`
	WaterPercentage     float64   `json:"waterPercentage"`
	RestDay             int       `json:"restDay"`
	CreatedAt           time.Time `json:"createdAt"`
	AverageRating       float64   `json:"averageRating"`
	ReviewCount         int64     `json:"reviewCount"`
}

// PendingRequestDTO is a submitted formula with display names for review.
type PendingRequestDTO struct {
	ID                  int64                      `json:"id"`
	PerfumeID           int64                      `json:"perfume_id"`
	PerfumeName         string                     `json:"perfumeName"`
	BrandName           string                     `json:"brandName"`
	UserID              *int64                     `json:"userId"`
	Username            *string                    `json:"username"`
	FragrancePercentage float64                    `json:"fragrancePercentage"`
	AlcoholPercentage   float64                    `json:"alcoholPercentage"`
	WaterPercentage     float64                    `json:"waterPercentage"`
	RestDay             int                        `json:"restDay"`
	Status              enums.FormulaRequestStatus `json:"status"`
	CreatedAt           time.Time                  `json:"createdAt"`
}

type formulaRecord struct {
	models.PerfumeFormula
	AverageRating float64 `gorm:"column:average_rating"`
	ReviewCount   int64   `gorm:"column:review_count"`
}

func (r formulaRecord) toDTO() FormulaDTO {
	return FormulaDTO{
		ID:                  r.ID,
		PerfumeID:           r.PerfumeID,
		FragrancePercentage: r.FragrancePercentage,
		AlcoholPercentage:   r.AlcoholPercentage,
		WaterPercentage:     r.WaterPercentage,
		RestDay:             r.RestDay,
		CreatedAt:           r.CreatedAt,
		AverageRating:       r.AverageRating,
		ReviewCount:         r.ReviewCount,
	}
}

type requestRecord struct {
	models.FormulaPendingRequest
	PerfumeName string  `gorm:"column:perfume_name"`
	BrandName   string  `gorm:"column:brand_name"`
	Username    *string `gorm:"column:username"`
}

func (r requestRecord) toDTO() PendingRequestDTO {
	return PendingRequestDTO{
		ID:                  r.ID,
		PerfumeID:           r.PerfumeID,
		PerfumeName:         r.PerfumeName,
		BrandName:           r.BrandName,
		UserID:              r.UserID,
		Username:            r.Username,
		FragrancePercentage: r.FragrancePercentage,
		AlcoholPercentage:   r.AlcoholPercentage,
		WaterPercentage:     r.WaterPercentage,
		RestDay:             r.RestDay,
		Status:              r.Status,
		CreatedAt:           r.CreatedAt,
	}
}
