package ratings

import (
	"time"

	"github.com/scentlab/perfumery-backend/pkg/db/models"
)

const (
	MinRating        = 1
	MaxRating        = 5
	MaxCommentLength = 1000
)

// RatingRequest is the body of a rating submission or edit.
type RatingRequest struct {
	Rating  int     `json:"rating" validate:"required,gte=1,lte=5"`
	Comment *string `json:"comment" validate:"omitempty,max=1000"`
}

// Actor identifies who is editing a rating.
type Actor struct {
	UserID  int64
	IsAdmin bool
}

type RatingDTO struct {
	ID        int64     `json:"id"`
	FormulaID int64     `json:"formulaId"`
	UserID    int64     `json:"userId"`
	Username  string    `json:"username"`
	Rating    int       `json:"rating"`
	Comment   *string   `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// FormulaRatingsDTO lists a formula's ratings with the aggregate computed at
// read time.
type FormulaRatingsDTO struct {
	Ratings       []RatingDTO `json:"ratings"`
	AverageRating float64     `json:"averageRating"`
	ReviewCount   int64       `json:"reviewCount"`
}

type ratingRecord struct {
	models.FormulaRating
	Username string `gorm:"column:username"`
}

func (r ratingRecord) toDTO() RatingDTO {
	return RatingDTO{
		ID:        r.ID,
		FormulaID: r.FormulaID,
		UserID:    r.UserID,
		Username:  r.Username,
		Rating:    r.Rating,
		Comment:   r.Comment,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

type aggregate struct {
	AverageRating float64 `gorm:"column:average_rating"`
	ReviewCount   int64   `gorm:"column:review_count"`
}
