package stock

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/scentlab/perfumery-backend/pkg/db"
	"github.com/scentlab/perfumery-backend/pkg/db/models"
	"github.com/scentlab/perfumery-backend/pkg/enums"
	pkgerrors "github.com/scentlab/perfumery-backend/pkg/errors"
	"github.com/scentlab/perfumery-backend/pkg/logger"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const duplicateStockMessage = "stock already exists for this perfume"

// Service manages sellable stock and maturing batches.
type Service interface {
	ListStock(ctx context.Context, category string) ([]StockDTO, error)
	CreateStock(ctx context.Context, req CreateStockRequest) (*StockDTO, error)
	UpdateStock(ctx context.Context, id int64, req UpdateStockRequest) (*StockDTO, error)
	DeleteStock(ctx context.Context, id int64) error
	ListMaturation(ctx context.Context) ([]MaturationDTO, error)
	CreateMaturation(ctx context.Context, req MaturationRequest) (*MaturationDTO, error)
	CompleteMaturation(ctx context.Context, id int64) (*StockDTO, error)
	DeleteMaturation(ctx context.Context, id int64) error
	Adjust(ctx context.Context, req AdjustRequest) (*StockDTO, error)
}

type adjustmentCounter interface {
	IncStockAdjustment(source string)
}

// ServiceParams groups dependencies for the stock service.
type ServiceParams struct {
	DB      *db.Client
	Metrics adjustmentCounter
	Logger  *logger.Logger
	Now     func() time.Time
}

type service struct {
	db      *db.Client
	repo    *Repository
	metrics adjustmentCounter
	logg    *logger.Logger
	now     func() time.Time
}

// NewService builds the stock service.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "database client required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		db:      params.DB,
		repo:    NewRepository(params.DB.DB()),
		metrics: params.Metrics,
		logg:    params.Logger,
		now:     now,
	}, nil
}

func (s *service) ListStock(ctx context.Context, category string) ([]StockDTO, error) {
	var filter *enums.StockCategory
	if category = strings.TrimSpace(category); category != "" {
		parsed, err := enums.ParseStockCategory(category)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category").
				WithDetails(map[string]string{"category": "must be one of [retail tester sample decant]"})
		}
		filter = &parsed
	}

	rows, err := s.repo.ListStock(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list stock")
	}
	out := make([]StockDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDTO())
	}
	return out, nil
}

func (s *service) CreateStock(ctx context.Context, req CreateStockRequest) (*StockDTO, error) {
	details := map[string]string{}
	if req.PerfumeID <= 0 {
		details["perfume_id"] = "is required"
	}
	price := checkPrice(details, req.Price, true)
	if req.StockQuantity == nil {
		details["stock_quantity"] = "is required"
	} else if *req.StockQuantity < 0 {
		details["stock_quantity"] = "must be greater than or equal to 0"
	}
	category := checkCategory(details, req.Category)
	if len(details) > 0 {
		return nil, validationError(details)
	}

	row := &models.PerfumeStock{
		PerfumeID:     req.PerfumeID,
		Price:         price,
		StockQuantity: *req.StockQuantity,
		Category:      category,
	}
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := NewRepository(tx)
		if err := ensurePerfume(ctx, repo, req.PerfumeID); err != nil {
			return err
		}
		if err := repo.CreateStock(ctx, row); err != nil {
			return db.Classify(err, "", duplicateStockMessage, "create stock")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.countAdjustment(SourceManual)
	return s.loadStock(ctx, row.ID)
}

func (s *service) UpdateStock(ctx context.Context, id int64, req UpdateStockRequest) (*StockDTO, error) {
	details := map[string]string{}
	updates := map[string]any{}
	if req.Price != nil {
		updates["price"] = checkPrice(details, req.Price, false)
	}
	if req.StockQuantity != nil {
		if *req.StockQuantity < 0 {
			details["stock_quantity"] = "must be greater than or equal to 0"
		}
		updates["stock_quantity"] = *req.StockQuantity
	}
	if req.Category != nil {
		updates["category"] = checkCategory(details, req.Category)
	}
	if len(details) > 0 {
		return nil, validationError(details)
	}
	if len(updates) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
	}

	if err := s.repo.UpdateStock(ctx, id, updates); err != nil {
		return nil, db.Classify(err, "stock not found", "", "update stock")
	}
	if _, ok := updates["stock_quantity"]; ok {
		s.countAdjustment(SourceManual)
	}
	return s.loadStock(ctx, id)
}

func (s *service) DeleteStock(ctx context.Context, id int64) error {
	if err := s.repo.DeleteStock(ctx, id); err != nil {
		return db.Classify(err, "stock not found", "", "delete stock")
	}
	return nil
}

func (s *service) ListMaturation(ctx context.Context) ([]MaturationDTO, error) {
	rows, err := s.repo.ListMaturation(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list maturation")
	}
	now := s.now()
	out := make([]MaturationDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDTO(now))
	}
	return out, nil
}

func (s *service) CreateMaturation(ctx context.Context, req MaturationRequest) (*MaturationDTO, error) {
	details := map[string]string{}
	if req.PerfumeID <= 0 {
		details["perfume_id"] = "is required"
	}
	if req.Quantity <= 0 {
		details["quantity"] = "must be greater than 0"
	}
	notes := req.Notes
	if notes != nil {
		trimmed := strings.TrimSpace(*notes)
		switch {
		case utf8.RuneCountInString(trimmed) > maxNotesLength:
			details["notes"] = "must be at most 1000"
		case trimmed == "":
			notes = nil
		default:
			notes = &trimmed
		}
	}
	if len(details) > 0 {
		return nil, validationError(details)
	}

	start := s.now().UTC()
	if req.StartDate != nil && !req.StartDate.IsZero() {
		start = req.StartDate.UTC()
	}
	batch := &models.PerfumeMaturation{
		PerfumeID: req.PerfumeID,
		Quantity:  req.Quantity,
		StartDate: start,
		Notes:     notes,
	}
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := NewRepository(tx)
		if err := ensurePerfume(ctx, repo, req.PerfumeID); err != nil {
			return err
		}
		if err := repo.CreateMaturation(ctx, batch); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create maturation batch")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	row, err := s.repo.FindMaturation(ctx, batch.ID)
	if err != nil {
		return nil, db.Classify(err, "maturation batch not found", "", "load maturation batch")
	}
	dto := row.toDTO(s.now())
	return &dto, nil
}

// CompleteMaturation moves a batch into stock and removes it in one
// transaction. A perfume without a stock row gets a retail row priced at 0.
func (s *service) CompleteMaturation(ctx context.Context, id int64) (*StockDTO, error) {
	var perfumeID int64
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := NewRepository(tx)
		batch, err := repo.FindMaturation(ctx, id)
		if err != nil {
			return db.Classify(err, "maturation batch not found", "", "load maturation batch")
		}
		perfumeID = batch.PerfumeID

		ok, err := repo.AdjustQuantity(ctx, batch.PerfumeID, batch.Quantity)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "restock perfume")
		}
		if !ok {
			row := &models.PerfumeStock{
				PerfumeID:     batch.PerfumeID,
				Price:         decimal.Zero,
				StockQuantity: batch.Quantity,
				Category:      enums.StockCategoryRetail,
			}
			if err := repo.CreateStock(ctx, row); err != nil {
				return db.Classify(err, "", duplicateStockMessage, "create stock")
			}
		}

		if err := repo.DeleteMaturation(ctx, id); err != nil {
			return db.Classify(err, "maturation batch not found", "", "delete maturation batch")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.countAdjustment(SourceMaturation)

	row, err := s.repo.FindStockByPerfume(ctx, perfumeID)
	if err != nil {
		return nil, db.Classify(err, "stock not found", "", "load stock")
	}
	dto := row.toDTO()
	return &dto, nil
}

func (s *service) DeleteMaturation(ctx context.Context, id int64) error {
	if err := s.repo.DeleteMaturation(ctx, id); err != nil {
		return db.Classify(err, "maturation batch not found", "", "delete maturation batch")
	}
	return nil
}

// Adjust applies an automation delta atomically.
func (s *service) Adjust(ctx context.Context, req AdjustRequest) (*StockDTO, error) {
	details := map[string]string{}
	if req.PerfumeID <= 0 {
		details["perfume_id"] = "is required"
	}
	if req.Delta == 0 {
		details["delta"] = "must not be zero"
	}
	if len(details) > 0 {
		return nil, validationError(details)
	}

	ok, err := s.repo.AdjustQuantity(ctx, req.PerfumeID, req.Delta)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "adjust stock")
	}
	if !ok {
		current, err := s.repo.FindStockByPerfume(ctx, req.PerfumeID)
		if err != nil {
			return nil, db.Classify(err, "stock not found", "", "load stock")
		}
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "insufficient stock").
			WithDetails(map[string]any{"available": current.StockQuantity, "delta": req.Delta})
	}
	s.countAdjustment(SourceAutomation)

	row, err := s.repo.FindStockByPerfume(ctx, req.PerfumeID)
	if err != nil {
		return nil, db.Classify(err, "stock not found", "", "load stock")
	}
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"perfume_id": req.PerfumeID,
			"delta":      req.Delta,
			"quantity":   row.StockQuantity,
		})
		s.logg.Info(logCtx, "stock.adjusted")
	}
	dto := row.toDTO()
	return &dto, nil
}

func (s *service) loadStock(ctx context.Context, id int64) (*StockDTO, error) {
	row, err := s.repo.FindStock(ctx, id)
	if err != nil {
		return nil, db.Classify(err, "stock not found", "", "load stock")
	}
	dto := row.toDTO()
	return &dto, nil
}

func (s *service) countAdjustment(source string) {
	if s.metrics != nil {
		s.metrics.IncStockAdjustment(source)
	}
}

func ensurePerfume(ctx context.Context, repo *Repository, perfumeID int64) error {
	ok, err := repo.PerfumeExists(ctx, perfumeID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load perfume")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "perfume not found")
	}
	return nil
}

func checkPrice(details map[string]string, price *decimal.Decimal, required bool) decimal.Decimal {
	if price == nil {
		if required {
			details["price"] = "is required"
		}
		return decimal.Zero
	}
	if price.IsNegative() {
		details["price"] = "must be greater than or equal to 0"
	} else if price.GreaterThan(maxPrice) {
		details["price"] = "must be at most " + maxPrice.StringFixed(2)
	}
	return price.Round(2)
}

func checkCategory(details map[string]string, raw *string) enums.StockCategory {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return enums.StockCategoryRetail
	}
	category, err := enums.ParseStockCategory(strings.TrimSpace(*raw))
	if err != nil {
		details["category"] = "must be one of [retail tester sample decant]"
	}
	return category
}

func validationError(details map[string]string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
}
