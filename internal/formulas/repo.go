package formulas

import (
	"context"
	"time"

	"github.com/scentlab/perfumery-backend/pkg/db/models"
	"github.com/scentlab/perfumery-backend/pkg/enums"
	"gorm.io/gorm"
)

const aggregateColumns = "f.*, COALESCE(CAST(AVG(r.rating) AS DOUBLE PRECISION), 0) AS average_rating, COUNT(r.id) AS review_count"

// Repository reads and writes formulas and pending formula requests.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) aggregateQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("perfume_formulas AS f").
		Select(aggregateColumns).
		Joins("LEFT JOIN formula_ratings r ON r.formula_id = f.id").
		Group("f.id")
}

// ListByPerfume returns the formulas of a perfume newest first.
func (r *Repository) ListByPerfume(ctx context.Context, perfumeID int64) ([]formulaRecord, error) {
	var rows []formulaRecord
	err := r.aggregateQuery(ctx).
		Where("f.perfume_id = ?", perfumeID).
		Order("f.created_at DESC, f.id DESC").
		Scan(&rows).Error
	return rows, err
}

// FindWithAggregate returns gorm.ErrRecordNotFound when the formula is absent.
func (r *Repository) FindWithAggregate(ctx context.Context, id int64) (*formulaRecord, error) {
	var rows []formulaRecord
	if err := r.aggregateQuery(ctx).Where("f.id = ?", id).Scan(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &rows[0], nil
}

func (r *Repository) Create(ctx context.Context, formula *models.PerfumeFormula) error {
	return r.db.WithContext(ctx).Create(formula).Error
}

// Delete removes a formula. Ratings go with it through the FK.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.PerfumeFormula{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *Repository) CreateRequest(ctx context.Context, req *models.FormulaPendingRequest) error {
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *Repository) requestQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("formula_pending_requests AS q").
		Select("q.*, p.name AS perfume_name, b.name AS brand_name, u.username AS username").
		Joins("JOIN perfumes p ON p.id = q.perfume_id").
		Joins("JOIN brands b ON b.id = p.brand_id").
		Joins("LEFT JOIN users u ON u.id = q.user_id")
}

// ListPending returns unresolved requests newest first.
func (r *Repository) ListPending(ctx context.Context) ([]requestRecord, error) {
	var rows []requestRecord
	err := r.requestQuery(ctx).
		Where("q.status = ?", enums.FormulaRequestStatusPending).
		Order("q.created_at DESC, q.id DESC").
		Scan(&rows).Error
	return rows, err
}

func (r *Repository) FindRequest(ctx context.Context, id int64) (*requestRecord, error) {
	var rows []requestRecord
	if err := r.requestQuery(ctx).Where("q.id = ?", id).Scan(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &rows[0], nil
}

// ResolveRequest moves a request out of PENDING. It reports false when the
// request was no longer pending, so concurrent decisions cannot both win.
func (r *Repository) ResolveRequest(ctx context.Context, id int64, status enums.FormulaRequestStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.FormulaPendingRequest{}).
		Where("id = ? AND status = ?", id, enums.FormulaRequestStatusPending).
		Updates(map[string]any{
			"status":     status,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
