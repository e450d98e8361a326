package stock

import (
	"context"
	"time"

	"github.com/scentlab/perfumery-backend/pkg/db/models"
	"github.com/scentlab/perfumery-backend/pkg/enums"
	"gorm.io/gorm"
)

const newestRestDay = `COALESCE((SELECT f.rest_day FROM perfume_formulas f
	WHERE f.perfume_id = m.perfume_id ORDER BY f.created_at DESC, f.id DESC LIMIT 1), 0) AS rest_days`

// Repository reads and writes stock rows and maturation batches.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) stockQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("perfume_stock AS s").
		Select("s.*, p.name AS perfume_name, b.name AS brand_name").
		Joins("JOIN perfumes p ON p.id = s.perfume_id").
		Joins("JOIN brands b ON b.id = p.brand_id")
}

func (r *Repository) ListStock(ctx context.Context, category *enums.StockCategory) ([]stockRecord, error) {
	q := r.stockQuery(ctx)
	if category != nil {
		q = q.Where("s.category = ?", *category)
	}
	var rows []stockRecord
	err := q.Order("b.name ASC, p.name ASC, s.id ASC").Scan(&rows).Error
	return rows, err
}

func (r *Repository) FindStock(ctx context.Context, id int64) (*stockRecord, error) {
	return r.findStock(ctx, "s.id = ?", id)
}

func (r *Repository) FindStockByPerfume(ctx context.Context, perfumeID int64) (*stockRecord, error) {
	return r.findStock(ctx, "s.perfume_id = ?", perfumeID)
}

func (r *Repository) findStock(ctx context.Context, query string, args ...any) (*stockRecord, error) {
	var rows []stockRecord
	if err := r.stockQuery(ctx).Where(query, args...).Limit(1).Scan(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &rows[0], nil
}

func (r *Repository) CreateStock(ctx context.Context, row *models.PerfumeStock) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *Repository) UpdateStock(ctx context.Context, id int64, updates map[string]any) error {
	updates["updated_at"] = time.Now().UTC()
	res := r.db.WithContext(ctx).Model(&models.PerfumeStock{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *Repository) DeleteStock(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.PerfumeStock{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// AdjustQuantity applies delta in one statement and refuses to go below zero.
// It reports false when no row matched, either because the perfume has no
// stock row or because the result would be negative.
func (r *Repository) AdjustQuantity(ctx context.Context, perfumeID int64, delta int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.PerfumeStock{}).
		Where("perfume_id = ? AND stock_quantity + ? >= 0", perfumeID, delta).
		Updates(map[string]any{
			"stock_quantity": gorm.Expr("stock_quantity + ?", delta),
			"updated_at":     time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *Repository) maturationQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("perfume_maturation AS m").
		Select("m.*, p.name AS perfume_name, b.name AS brand_name, " + newestRestDay).
		Joins("JOIN perfumes p ON p.id = m.perfume_id").
		Joins("JOIN brands b ON b.id = p.brand_id")
}

// ListMaturation returns batches oldest first.
func (r *Repository) ListMaturation(ctx context.Context) ([]maturationRecord, error) {
	var rows []maturationRecord
	err := r.maturationQuery(ctx).Order("m.start_date ASC, m.id ASC").Scan(&rows).Error
	return rows, err
}

func (r *Repository) FindMaturation(ctx context.Context, id int64) (*maturationRecord, error) {
	var rows []maturationRecord
	if err := r.maturationQuery(ctx).Where("m.id = ?", id).Limit(1).Scan(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &rows[0], nil
}

func (r *Repository) CreateMaturation(ctx context.Context, batch *models.PerfumeMaturation) error {
	return r.db.WithContext(ctx).Create(batch).Error
}

func (r *Repository) DeleteMaturation(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.PerfumeMaturation{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *Repository) PerfumeExists(ctx context.Context, perfumeID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Perfume{}).Where("id = ?", perfumeID).Count(&count).Error
	return count > 0, err
}
