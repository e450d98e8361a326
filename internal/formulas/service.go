package formulas

import (
	"context"

	"github.com/scentlab/perfumery-backend/pkg/db"
	"github.com/scentlab/perfumery-backend/pkg/db/models"
	"github.com/scentlab/perfumery-backend/pkg/enums"
	pkgerrors "github.com/scentlab/perfumery-backend/pkg/errors"
	"gorm.io/gorm"
)

const (
	DecisionApproved = "approved"
	DecisionRejected = "rejected"
)

// Service runs the formula catalogue and the request review workflow.
type Service interface {
	ListByPerfume(ctx context.Context, perfumeID int64) ([]FormulaDTO, error)
	Get(ctx context.Context, id int64) (*FormulaDTO, error)
	Create(ctx context.Context, in FormulaInput) (*FormulaDTO, error)
	Delete(ctx context.Context, id int64) error
	SubmitRequest(ctx context.Context, in FormulaInput, userID *int64) (*PendingRequestDTO, error)
	ListPending(ctx context.Context) ([]PendingRequestDTO, error)
	Approve(ctx context.Context, requestID int64) (*FormulaDTO, error)
	Reject(ctx context.Context, requestID int64) (*PendingRequestDTO, error)
}

type decisionCounter interface {
	IncFormulaDecision(decision string)
}

// ServiceParams groups dependencies for the formula service.
type ServiceParams struct {
	DB      *db.Client
	Metrics decisionCounter
}

type service struct {
	db      *db.Client
	repo    *Repository
	metrics decisionCounter
}

// NewService builds the formula service.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "database client required")
	}
	return &service{
		db:      params.DB,
		repo:    NewRepository(params.DB.DB()),
		metrics: params.Metrics,
	}, nil
}

func (s *service) ListByPerfume(ctx context.Context, perfumeID int64) ([]FormulaDTO, error) {
	if err := ensurePerfume(ctx, s.db.DB(), perfumeID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListByPerfume(ctx, perfumeID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list formulas")
	}
	out := make([]FormulaDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDTO())
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, id int64) (*FormulaDTO, error) {
	row, err := s.repo.FindWithAggregate(ctx, id)
	if err != nil {
		return nil, db.Classify(err, "formula not found", "", "load formula")
	}
	dto := row.toDTO()
	return &dto, nil
}

func (s *service) Create(ctx context.Context, in FormulaInput) (*FormulaDTO, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	formula := &models.PerfumeFormula{
		PerfumeID:           in.PerfumeID,
		FragrancePercentage: *in.FragrancePercentage,
		AlcoholPercentage:   *in.AlcoholPercentage,
		WaterPercentage:     *in.WaterPercentage,
		RestDay:             *in.RestDay,
	}
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := ensurePerfume(ctx, tx, in.PerfumeID); err != nil {
			return err
		}
		if err := NewRepository(tx).Create(ctx, formula); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create formula")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, formula.ID)
}

func (s *service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return db.Classify(err, "formula not found", "", "delete formula")
	}
	return nil
}

func (s *service) SubmitRequest(ctx context.Context, in FormulaInput, userID *int64) (*PendingRequestDTO, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	req := &models.FormulaPendingRequest{
		PerfumeID:           in.PerfumeID,
		UserID:              userID,
		FragrancePercentage: *in.FragrancePercentage,
		AlcoholPercentage:   *in.AlcoholPercentage,
		WaterPercentage:     *in.WaterPercentage,
		RestDay:             *in.RestDay,
		Status:              enums.FormulaRequestStatusPending,
	}
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := ensurePerfume(ctx, tx, in.PerfumeID); err != nil {
			return err
		}
		if err := NewRepository(tx).CreateRequest(ctx, req); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create formula request")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.loadRequest(ctx, req.ID)
}

func (s *service) ListPending(ctx context.Context) ([]PendingRequestDTO, error) {
	rows, err := s.repo.ListPending(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list pending formula requests")
	}
	out := make([]PendingRequestDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDTO())
	}
	return out, nil
}

// Approve copies the request into a production formula and marks it APPROVED
// in one transaction.
func (s *service) Approve(ctx context.Context, requestID int64) (*FormulaDTO, error) {
	var formula *models.PerfumeFormula
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := NewRepository(tx)
		req, err := repo.FindRequest(ctx, requestID)
		if err != nil {
			return db.Classify(err, "formula request not found", "", "load formula request")
		}
		if req.Status.IsTerminal() {
			return resolvedError(req.Status)
		}

		ok, err := repo.ResolveRequest(ctx, requestID, enums.FormulaRequestStatusApproved)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "approve formula request")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "formula request already resolved")
		}

		formula = &models.PerfumeFormula{
			PerfumeID:           req.PerfumeID,
			FragrancePercentage: req.FragrancePercentage,
			AlcoholPercentage:   req.AlcoholPercentage,
			WaterPercentage:     req.WaterPercentage,
			RestDay:             req.RestDay,
		}
		if err := repo.Create(ctx, formula); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create formula")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.countDecision(DecisionApproved)
	return s.Get(ctx, formula.ID)
}

// Reject marks a request REJECTED. Rejecting twice succeeds; rejecting an
// approved request is a state conflict.
func (s *service) Reject(ctx context.Context, requestID int64) (*PendingRequestDTO, error) {
	changed := false
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := NewRepository(tx)
		req, err := repo.FindRequest(ctx, requestID)
		if err != nil {
			return db.Classify(err, "formula request not found", "", "load formula request")
		}
		switch req.Status {
		case enums.FormulaRequestStatusRejected:
			return nil
		case enums.FormulaRequestStatusApproved:
			return resolvedError(req.Status)
		}

		ok, err := repo.ResolveRequest(ctx, requestID, enums.FormulaRequestStatusRejected)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reject formula request")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "formula request already resolved")
		}
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.countDecision(DecisionRejected)
	}
	return s.loadRequest(ctx, requestID)
}

func (s *service) loadRequest(ctx context.Context, id int64) (*PendingRequestDTO, error) {
	row, err := s.repo.FindRequest(ctx, id)
	if err != nil {
		return nil, db.Classify(err, "formula request not found", "", "load formula request")
	}
	dto := row.toDTO()
	return &dto, nil
}

func (s *service) countDecision(decision string) {
	if s.metrics != nil {
		s.metrics.IncFormulaDecision(decision)
	}
}

func resolvedError(status enums.FormulaRequestStatus) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, "formula request already resolved").
		WithDetails(map[string]any{"status": status})
}

func validateInput(in FormulaInput) error {
	if details := in.CheckFields(); len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
	}
	return nil
}

func ensurePerfume(ctx context.Context, conn *gorm.DB, perfumeID int64) error {
	var count int64
	if err := conn.WithContext(ctx).Model(&models.Perfume{}).Where("id = ?", perfumeID).Count(&count).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load perfume")
	}
	if count == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "perfume not found")
	}
	return nil
}
