package ratings

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/scentlab/perfumery-backend/pkg/db"
	"github.com/scentlab/perfumery-backend/pkg/db/models"
	pkgerrors "github.com/scentlab/perfumery-backend/pkg/errors"
)

// Service manages one rating per user and formula.
type Service interface {
	List(ctx context.Context, formulaID int64) (*FormulaRatingsDTO, error)
	Upsert(ctx context.Context, formulaID, userID int64, req RatingRequest) (*RatingDTO, error)
	Update(ctx context.Context, actor Actor, ratingID int64, req RatingRequest) (*RatingDTO, error)
	Delete(ctx context.Context, actor Actor, ratingID int64) error
}

type ratingRepository interface {
	ListByFormula(ctx context.Context, formulaID int64) ([]ratingRecord, error)
	Aggregate(ctx context.Context, formulaID int64) (aggregate, error)
	FindByID(ctx context.Context, id int64) (*ratingRecord, error)
	FindByFormulaAndUser(ctx context.Context, formulaID, userID int64) (*ratingRecord, error)
	Upsert(ctx context.Context, rating *models.FormulaRating) error
	Update(ctx context.Context, id int64, rating int, comment *string) error
	Delete(ctx context.Context, id int64) error
	FormulaExists(ctx context.Context, formulaID int64) (bool, error)
}

type service struct {
	repo ratingRepository
}

func NewService(repo ratingRepository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "rating repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context, formulaID int64) (*FormulaRatingsDTO, error) {
	if err := s.ensureFormula(ctx, formulaID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListByFormula(ctx, formulaID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list ratings")
	}
	agg, err := s.repo.Aggregate(ctx, formulaID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "aggregate ratings")
	}

	out := &FormulaRatingsDTO{
		Ratings:       make([]RatingDTO, 0, len(rows)),
		AverageRating: agg.AverageRating,
		ReviewCount:   agg.ReviewCount,
	}
	for _, row := range rows {
		out.Ratings = append(out.Ratings, row.toDTO())
	}
	return out, nil
}

func (s *service) Upsert(ctx context.Context, formulaID, userID int64, req RatingRequest) (*RatingDTO, error) {
	comment, err := normalize(req)
	if err != nil {
		return nil, err
	}
	if err := s.ensureFormula(ctx, formulaID); err != nil {
		return nil, err
	}

	rating := &models.FormulaRating{
		FormulaID: formulaID,
		UserID:    userID,
		Rating:    req.Rating,
		Comment:   comment,
	}
	if err := s.repo.Upsert(ctx, rating); err != nil {
		return nil, db.Classify(err, "formula not found", "", "save rating")
	}

	row, err := s.repo.FindByFormulaAndUser(ctx, formulaID, userID)
	if err != nil {
		return nil, db.Classify(err, "rating not found", "", "load rating")
	}
	dto := row.toDTO()
	return &dto, nil
}

func (s *service) Update(ctx context.Context, actor Actor, ratingID int64, req RatingRequest) (*RatingDTO, error) {
	comment, err := normalize(req)
	if err != nil {
		return nil, err
	}
	if _, err := s.authorize(ctx, actor, ratingID); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, ratingID, req.Rating, comment); err != nil {
		return nil, db.Classify(err, "rating not found", "", "update rating")
	}

	row, err := s.repo.FindByID(ctx, ratingID)
	if err != nil {
		return nil, db.Classify(err, "rating not found", "", "load rating")
	}
	dto := row.toDTO()
	return &dto, nil
}

func (s *service) Delete(ctx context.Context, actor Actor, ratingID int64) error {
	if _, err := s.authorize(ctx, actor, ratingID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, ratingID); err != nil {
		return db.Classify(err, "rating not found", "", "delete rating")
	}
	return nil
}

// authorize loads the rating and allows its owner or an admin.
func (s *service) authorize(ctx context.Context, actor Actor, ratingID int64) (*ratingRecord, error) {
	row, err := s.repo.FindByID(ctx, ratingID)
	if err != nil {
		return nil, db.Classify(err, "rating not found", "", "load rating")
	}
	if !actor.IsAdmin && row.UserID != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the author or an admin may change this rating")
	}
	return row, nil
}

func (s *service) ensureFormula(ctx context.Context, formulaID int64) error {
	ok, err := s.repo.FormulaExists(ctx, formulaID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load formula")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "formula not found")
	}
	return nil
}

func normalize(req RatingRequest) (*string, error) {
	details := map[string]string{}
	if req.Rating < MinRating || req.Rating > MaxRating {
		details["rating"] = "must be between 1 and 5"
	}
	var comment *string
	if req.Comment != nil {
		trimmed := strings.TrimSpace(*req.Comment)
		if utf8.RuneCountInString(trimmed) > MaxCommentLength {
			details["comment"] = "must be at most 1000"
		} else if trimmed != "" {
			comment = &trimmed
		}
	}
	if len(details) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
	}
	return comment, nil
}
