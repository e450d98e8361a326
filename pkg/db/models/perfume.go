package models

import "time"

// Perfume is a catalogue entry owned by a brand.
type Perfume struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	BrandID   int64     `gorm:"column:brand_id;not null;uniqueIndex:perfumes_brand_name_key"`
	Name      string    `gorm:"column:name;not null;uniqueIndex:perfumes_brand_name_key"`
	Notes     *string   `gorm:"column:notes"`
	Family    *string   `gorm:"column:family"`
	Type      *string   `gorm:"column:type"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// PerfumeUsageInfo holds the wearing guidance for a perfume (at most one row each).
type PerfumeUsageInfo struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	PerfumeID int64     `gorm:"column:perfume_id;not null;uniqueIndex"`
	Season    *string   `gorm:"column:season"`
	Occasion  *string   `gorm:"column:occasion"`
	Longevity *string   `gorm:"column:longevity"`
	Sillage   *string   `gorm:"column:sillage"`
	Notes     *string   `gorm:"column:notes"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (PerfumeUsageInfo) TableName() string { return "perfume_usage_info" }
