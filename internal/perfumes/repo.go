package perfumes

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/scentlab/perfumery-backend/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const formulaCountColumn = "(SELECT COUNT(*) FROM perfume_formulas f WHERE f.perfume_id = p.id) AS formula_count"

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Repository encapsulates perfume persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a perfume repository to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) baseQuery(ctx context.Context, callerID *int64) *gorm.DB {
	columns := []string{
		"p.id",
		"p.brand_id",
		"b.name AS brand_name",
		"p.name",
		"p.notes",
		"p.family",
		"p.type",
		"p.created_at",
		"p.updated_at",
		formulaCountColumn,
	}
	q := r.db.WithContext(ctx).
		Table("perfumes p").
		Joins("JOIN brands b ON b.id = p.brand_id")
	if callerID != nil {
		columns = append(columns, "EXISTS (SELECT 1 FROM favorites fav WHERE fav.perfume_id = p.id AND fav.user_id = ?) AS is_favorite")
		return q.Select(strings.Join(columns, ", "), *callerID)
	}
	return q.Select(strings.Join(columns, ", "))
}

// List returns one page of perfumes plus the total number of matches.
// Brand-prefix matches sort first when a search term is given, then the
// requested column, then brand and perfume name.
func (r *Repository) List(ctx context.Context, params ListParams, offset int) ([]perfumeRecord, int64, error) {
	search := strings.ToLower(strings.TrimSpace(params.Search))

	filter := func(q *gorm.DB) *gorm.DB {
		if search == "" {
			return q
		}
		like := "%" + likeEscaper.Replace(search) + "%"
		return q.Where(`(LOWER(b.name) LIKE ? ESCAPE '\' OR LOWER(p.name) LIKE ? ESCAPE '\')`, like, like)
	}

	var total int64
	countQuery := filter(r.db.WithContext(ctx).Table("perfumes p").Joins("JOIN brands b ON b.id = p.brand_id"))
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	column, ok := sortColumns[params.SortBy]
	if !ok {
		column = sortColumns[SortByName]
	}
	// one expression so the parameterised CASE survives gorm's ORDER BY merging
	order := column + " " + params.SortOrder.SQL() + ", b.name ASC, p.name ASC, p.id ASC"
	var vars []any
	if search != "" {
		order = `CASE WHEN LOWER(b.name) LIKE ? ESCAPE '\' THEN 0 ELSE 1 END, ` + order
		vars = append(vars, likeEscaper.Replace(search)+"%")
	}

	q := filter(r.baseQuery(ctx, params.CallerID)).
		Order(clause.OrderBy{Expression: clause.Expr{SQL: order, Vars: vars}}).
		Limit(params.Limit).
		Offset(offset)

	var rows []perfumeRecord
	if err := q.Scan(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// FindDetail loads one perfume with its derived columns.
func (r *Repository) FindDetail(ctx context.Context, id int64, callerID *int64) (*perfumeRecord, error) {
	var rows []perfumeRecord
	if err := r.baseQuery(ctx, callerID).Where("p.id = ?", id).Limit(1).Scan(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &rows[0], nil
}

// FindByID loads the bare perfume row.
func (r *Repository) FindByID(ctx context.Context, id int64) (*models.Perfume, error) {
	var perfume models.Perfume
	if err := r.db.WithContext(ctx).First(&perfume, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &perfume, nil
}

// Exists reports whether a perfume row exists.
func (r *Repository) Exists(ctx context.Context, id int64) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Perfume{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Create inserts a perfume.
func (r *Repository) Create(ctx context.Context, perfume *models.Perfume) error {
	return r.db.WithContext(ctx).Create(perfume).Error
}

// Update overwrites the editable columns of a perfume.
func (r *Repository) Update(ctx context.Context, perfume *models.Perfume) error {
	return r.db.WithContext(ctx).
		Model(&models.Perfume{}).
		Where("id = ?", perfume.ID).
		Updates(map[string]any{
			"brand_id":   perfume.BrandID,
			"name":       perfume.Name,
			"notes":      perfume.Notes,
			"family":     perfume.Family,
			"type":       perfume.Type,
			"updated_at": time.Now().UTC(),
		}).Error
}

// DeleteCascade removes a perfume and every row that references it. It must
// run inside a transaction. Ratings go with their formulas through the FK.
func (r *Repository) DeleteCascade(ctx context.Context, id int64) error {
	tx := r.db.WithContext(ctx)
	children := []any{
		&models.PerfumeUsageInfo{},
		&models.PerfumeFormula{},
		&models.FormulaPendingRequest{},
		&models.Favorite{},
		&models.PerfumeStock{},
		&models.PerfumeMaturation{},
	}
	for _, model := range children {
		if err := tx.Where("perfume_id = ?", id).Delete(model).Error; err != nil {
			return err
		}
	}
	res := tx.Where("id = ?", id).Delete(&models.Perfume{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// FindUsageInfo returns the usage row, or nil when none is recorded.
func (r *Repository) FindUsageInfo(ctx context.Context, perfumeID int64) (*models.PerfumeUsageInfo, error) {
	var info models.PerfumeUsageInfo
	err := r.db.WithContext(ctx).Where("perfume_id = ?", perfumeID).First(&info).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// UpsertUsageInfo inserts or replaces the single usage row of a perfume.
func (r *Repository) UpsertUsageInfo(ctx context.Context, info *models.PerfumeUsageInfo) error {
	info.UpdatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "perfume_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"season", "occasion", "longevity", "sillage", "notes", "updated_at"}),
		}).
		Create(info).Error
}
