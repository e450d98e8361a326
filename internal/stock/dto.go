package stock

import (
	"time"

	"github.com/scentlab/perfumery-backend/pkg/db/models"
	"github.com/scentlab/perfumery-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

const (
	SourceManual     = "manual"
	SourceMaturation = "maturation"
	SourceAutomation = "automation"

	maxNotesLength = 1000
)

// maxPrice fits numeric(12,2).
var maxPrice = decimal.RequireFromString("9999999999.99")

// CreateStockRequest opens the stock row of a perfume. Price accepts a JSON
// number or string.
type CreateStockRequest struct {
	PerfumeID     int64            `json:"perfume_id" validate:"required,gt=0"`
	Price         *decimal.Decimal `json:"price" validate:"required"`
	StockQuantity *int             `json:"stock_quantity" validate:"required,gte=0"`
	Category      *string          `json:"category" validate:"omitempty,oneof=retail tester sample decant"`
}

// UpdateStockRequest changes only the fields that are present.
type UpdateStockRequest struct {
	Price         *decimal.Decimal `json:"price"`
	StockQuantity *int             `json:"stock_quantity" validate:"omitempty,gte=0"`
	Category      *string          `json:"category" validate:"omitempty,oneof=retail tester sample decant"`
}

type MaturationRequest struct {
	PerfumeID int64      `json:"perfume_id" validate:"required,gt=0"`
	Quantity  int        `json:"quantity" validate:"required,gt=0"`
	StartDate *time.Time `json:"start_date"`
	Notes     *string    `json:"notes" validate:"omitempty,max=1000"`
}

// AdjustRequest shifts stock by delta. Negative deltas record sales.
type AdjustRequest struct {
	PerfumeID int64 `json:"perfume_id" validate:"required,gt=0"`
	Delta     int   `json:"delta" validate:"required"`
}

type StockDTO struct {
	ID            int64               `json:"id"`
	PerfumeID     int64               `json:"perfume_id"`
	PerfumeName   string              `json:"perfumeName"`
	BrandName     string              `json:"brandName"`
	Price         decimal.Decimal     `json:"price"`
	StockQuantity int                 `json:"stock_quantity"`
	Category      enums.StockCategory `json:"category"`
	CreatedAt     time.Time           `json:"createdAt"`
	UpdatedAt     time.Time           `json:"updatedAt"`
}

type MaturationDTO struct {
	ID          int64     `json:"id"`
	PerfumeID   int64     `json:"perfume_id"`
	PerfumeName string    `json:"perfumeName"`
	BrandName   string    `json:"brandName"`
	Quantity    int       `json:"quantity"`
	StartDate   time.Time `json:"startDate"`
	Notes       *string   `json:"notes"`
	RestDays    int       `json:"restDays"`
	ReadyAt     time.Time `json:"readyAt"`
	IsReady     bool      `json:"isReady"`
	CreatedAt   time.Time `json:"createdAt"`
}

type stockRecord struct {
	models.PerfumeStock
	PerfumeName string `gorm:"column:perfume_name"`
	BrandName   string `gorm:"column:brand_name"`
}

func (r stockRecord) toDTO() StockDTO {
	return StockDTO{
		ID:            r.ID,
		PerfumeID:     r.PerfumeID,
		PerfumeName:   r.PerfumeName,
		BrandName:     r.BrandName,
		Price:         r.Price,
		StockQuantity: r.StockQuantity,
		Category:      r.Category,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

type maturationRecord struct {
	models.PerfumeMaturation
	PerfumeName string `gorm:"column:perfume_name"`
	BrandName   string `gorm:"column:brand_name"`
	RestDays    int    `gorm:"column:rest_days"`
}

// toDTO derives readiness from the newest formula's rest period.
func (r maturationRecord) toDTO(now time.Time) MaturationDTO {
	readyAt := r.StartDate.AddDate(0, 0, r.RestDays)
	return MaturationDTO{
		ID:          r.ID,
		PerfumeID:   r.PerfumeID,
		PerfumeName: r.PerfumeName,
		BrandName:   r.BrandName,
		Quantity:    r.Quantity,
		StartDate:   r.StartDate,
		Notes:       r.Notes,
		RestDays:    r.RestDays,
		ReadyAt:     readyAt,
		IsReady:     !now.Before(readyAt),
		CreatedAt:   r.CreatedAt,
	}
}
