package ratings

import (
	"context"
	"time"

	"github.com/scentlab/perfumery-backend/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) withUsername(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("formula_ratings AS fr").
		Select("fr.*, u.username AS username").
		Joins("JOIN users u ON u.id = fr.user_id")
}

// ListByFormula returns ratings most recently touched first.
func (r *Repository) ListByFormula(ctx context.Context, formulaID int64) ([]ratingRecord, error) {
	var rows []ratingRecord
	err := r.withUsername(ctx).
		Where("fr.formula_id = ?", formulaID).
		Order("fr.updated_at DESC, fr.id DESC").
		Scan(&rows).Error
	return rows, err
}

func (r *Repository) Aggregate(ctx context.Context, formulaID int64) (aggregate, error) {
	var agg aggregate
	err := r.db.WithContext(ctx).
		Table("formula_ratings").
		Select("COALESCE(CAST(AVG(rating) AS DOUBLE PRECISION), 0) AS average_rating, COUNT(*) AS review_count").
		Where("formula_id = ?", formulaID).
		Scan(&agg).Error
	return agg, err
}

func (r *Repository) FindByID(ctx context.Context, id int64) (*ratingRecord, error) {
	return r.findOne(ctx, "fr.id = ?", id)
}

func (r *Repository) FindByFormulaAndUser(ctx context.Context, formulaID, userID int64) (*ratingRecord, error) {
	return r.findOne(ctx, "fr.formula_id = ? AND fr.user_id = ?", formulaID, userID)
}

func (r *Repository) findOne(ctx context.Context, query string, args ...any) (*ratingRecord, error) {
	var rows []ratingRecord
	if err := r.withUsername(ctx).Where(query, args...).Limit(1).Scan(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &rows[0], nil
}

// Upsert writes the caller's rating in one statement keyed on
// (formula_id, user_id).
func (r *Repository) Upsert(ctx context.Context, rating *models.FormulaRating) error {
	now := time.Now().UTC()
	rating.CreatedAt = now
	rating.UpdatedAt = now
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "formula_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"rating", "comment", "updated_at"}),
		}).
		Create(rating).Error
}

func (r *Repository) Update(ctx context.Context, id int64, rating int, comment *string) error {
	res := r.db.WithContext(ctx).
		Model(&models.FormulaRating{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"rating":     rating,
			"comment":    comment,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.FormulaRating{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *Repository) FormulaExists(ctx context.Context, formulaID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.PerfumeFormula{}).Where("id = ?", formulaID).Count(&count).Error
	return count > 0, err
}
