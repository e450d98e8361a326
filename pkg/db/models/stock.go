package models

import (
	"time"

	"github.com/scentlab/perfumery-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// PerfumeStock is the sellable quantity of a perfume.
type PerfumeStock struct {
	ID            int64               `gorm:"column:id;primaryKey;autoIncrement"`
	PerfumeID     int64               `gorm:"column:perfume_id;not null;uniqueIndex"`
	Price         decimal.Decimal     `gorm:"column:price;type:numeric(12,2);not null;default:0"`
	StockQuantity int                 `gorm:"column:stock_quantity;not null;default:0"`
	Category      enums.StockCategory `gorm:"column:category;not null;default:retail"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (PerfumeStock) TableName() string { return "perfume_stock" }

// PerfumeMaturation is a batch resting before it is moved into stock.
type PerfumeMaturation struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	PerfumeID int64     `gorm:"column:perfume_id;not null;index"`
	Quantity  int       `gorm:"column:quantity;not null"`
	StartDate time.Time `gorm:"column:start_date;not null"`
	Notes     *string   `gorm:"column:notes"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (PerfumeMaturation) TableName() string { return "perfume_maturation" }
