package perfumes

import (
	"time"

	"github.com/scentlab/perfumery-backend/pkg/db/models"
	"github.com/scentlab/perfumery-backend/pkg/enums"
)

// Sort fields accepted by the listing endpoint.
const (
	SortByName         = "name"
	SortByBrand        = "brand"
	SortByFamily       = "family"
	SortByType         = "type"
	SortByCreatedAt    = "created_at"
	SortByFormulaCount = "formulaCount"
)

var sortColumns = map[string]string{
	SortByName:         "p.name",
	SortByBrand:        "b.name",
	SortByFamily:       "p.family",
	SortByType:         "p.type",
	SortByCreatedAt:    "p.created_at",
	SortByFormulaCount: "formula_count",
}

// IsValidSortBy reports whether value names a sortable column.
func IsValidSortBy(value string) bool {
	_, ok := sortColumns[value]
	return ok
}

// ListParams drives the perfume listing. CallerID is nil for anonymous callers.
type ListParams struct {
	Page      int
	Limit     int
	SortBy    string
	SortOrder enums.SortOrder
	Search    string
	CallerID  *int64
}

// PerfumeDTO is the listing/detail shape. IsFavorite is omitted for anonymous callers.
type PerfumeDTO struct {
	ID           int64     `json:"id"`
	BrandID      int64     `json:"brand_id"`
	BrandName    string    `json:"brandName"`
	Name         string    `json:"name"`
	Notes        *string   `json:"notes"`
	Family       *string   `json:"family"`
	Type         *string   `json:"type"`
	FormulaCount int64     `json:"formulaCount"`
	IsFavorite   *bool     `json:"is_favorite,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// PerfumeRequest is the create/update payload.
type PerfumeRequest struct {
	BrandID int64   `json:"brand_id" validate:"required,gt=0"`
	Name    string  `json:"name" validate:"required,max=200"`
	Notes   *string `json:"notes" validate:"omitempty,max=2000"`
	Family  *string `json:"family" validate:"omitempty,max=100"`
	Type    *string `json:"type" validate:"omitempty,max=100"`
}

// UsageInfoRequest replaces the wearing guidance of a perfume.
type UsageInfoRequest struct {
	Season    *string `json:"season" validate:"omitempty,max=100"`
	Occasion  *string `json:"occasion" validate:"omitempty,max=100"`
	Longevity *string `json:"longevity" validate:"omitempty,max=100"`
	Sillage   *string `json:"sillage" validate:"omitempty,max=100"`
	Notes     *string `json:"notes" validate:"omitempty,max=2000"`
}

// UsageInfoDTO is returned for a perfume even before guidance is recorded;
// the descriptive fields are then null.
type UsageInfoDTO struct {
	PerfumeID int64      `json:"perfume_id"`
	Season    *string    `json:"season"`
	Occasion  *string    `json:"occasion"`
	Longevity *string    `json:"longevity"`
	Sillage   *string    `json:"sillage"`
	Notes     *string    `json:"notes"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

type perfumeRecord struct {
	ID           int64
	BrandID      int64
	BrandName    string
	Name         string
	Notes        *string
	Family       *string
	Type         *string
	FormulaCount int64
	IsFavorite   bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (r perfumeRecord) toDTO(withFavorite bool) PerfumeDTO {
	dto := PerfumeDTO{
		ID:           r.ID,
		BrandID:      r.BrandID,
		BrandName:    r.BrandName,
		Name:         r.Name,
		Notes:        r.Notes,
		Family:       r.Family,
		Type:         r.Type,
		FormulaCount: r.FormulaCount,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if withFavorite {
		fav := r.IsFavorite
		dto.IsFavorite = &fav
	}
	return dto
}

func usageInfoFromModel(perfumeID int64, m *models.PerfumeUsageInfo) UsageInfoDTO {
	if m == nil {
		return UsageInfoDTO{PerfumeID: perfumeID}
	}
	updated := m.UpdatedAt
	return UsageInfoDTO{
		PerfumeID: m.PerfumeID,
		Season:    m.Season,
		Occasion:  m.Occasion,
		Longevity: m.Longevity,
		Sillage:   m.Sillage,
		Notes:     m.Notes,
		UpdatedAt: &updated,
	}
}
