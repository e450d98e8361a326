package models

import "time"

// Favorite links a user to a liked perfume.
type Favorite struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	UserID    int64     `gorm:"column:user_id;not null;uniqueIndex:favorites_user_perfume_key"`
	PerfumeID int64     `gorm:"column:perfume_id;not null;uniqueIndex:favorites_user_perfume_key"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
