package perfumes

import (
	"context"
	"errors"
	"strings"

	"github.com/scentlab/perfumery-backend/internal/brands"
	"github.com/scentlab/perfumery-backend/pkg/db"
	"github.com/scentlab/perfumery-backend/pkg/db/models"
	pkgerrors "github.com/scentlab/perfumery-backend/pkg/errors"
	"github.com/scentlab/perfumery-backend/pkg/pagination"
	"github.com/scentlab/perfumery-backend/pkg/types"
	"gorm.io/gorm"
)

const duplicatePerfumeMessage = "a perfume with this name already exists for the brand"

// Service exposes the perfume catalogue.
type Service interface {
	List(ctx context.Context, params ListParams) (types.Page[PerfumeDTO], error)
	Get(ctx context.Context, id int64, callerID *int64) (*PerfumeDTO, error)
	Create(ctx context.Context, req PerfumeRequest) (*PerfumeDTO, error)
	Update(ctx context.Context, id int64, req PerfumeRequest) (*PerfumeDTO, error)
	Delete(ctx context.Context, id int64) error
	GetUsageInfo(ctx context.Context, perfumeID int64) (*UsageInfoDTO, error)
	UpsertUsageInfo(ctx context.Context, perfumeID int64, req UsageInfoRequest) (*UsageInfoDTO, error)
}

// ServiceParams groups dependencies for the perfume service.
type ServiceParams struct {
	DB *db.Client
}

type service struct {
	db   *db.Client
	repo *Repository
}

// NewService builds the perfume service.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "database client required")
	}
	return &service{db: params.DB, repo: NewRepository(params.DB.DB())}, nil
}

func (s *service) List(ctx context.Context, params ListParams) (types.Page[PerfumeDTO], error) {
	page := pagination.Params{Page: params.Page, Limit: params.Limit}.Normalize()
	params.Page, params.Limit = page.Page, page.Limit
	if !IsValidSortBy(params.SortBy) {
		params.SortBy = SortByName
	}

	rows, total, err := s.repo.List(ctx, params, page.Offset())
	if err != nil {
		return types.Page[PerfumeDTO]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list perfumes")
	}

	data := make([]PerfumeDTO, 0, len(rows))
	for _, row := range rows {
		data = append(data, row.toDTO(params.CallerID != nil))
	}
	return pagination.Build(page, data, total), nil
}

func (s *service) Get(ctx context.Context, id int64, callerID *int64) (*PerfumeDTO, error) {
	row, err := s.repo.FindDetail(ctx, id, callerID)
	if err != nil {
		return nil, db.Classify(err, "perfume not found", "", "load perfume")
	}
	dto := row.toDTO(callerID != nil)
	return &dto, nil
}

func (s *service) Create(ctx context.Context, req PerfumeRequest) (*PerfumeDTO, error) {
	perfume, err := perfumeFromRequest(req)
	if err != nil {
		return nil, err
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := ensureBrand(ctx, tx, perfume.BrandID); err != nil {
			return err
		}
		if err := NewRepository(tx).Create(ctx, perfume); err != nil {
			return db.Classify(err, "", duplicatePerfumeMessage, "create perfume")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, perfume.ID, nil)
}

func (s *service) Update(ctx context.Context, id int64, req PerfumeRequest) (*PerfumeDTO, error) {
	perfume, err := perfumeFromRequest(req)
	if err != nil {
		return nil, err
	}
	perfume.ID = id

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := NewRepository(tx)
		if _, err := repo.FindByID(ctx, id); err != nil {
			return db.Classify(err, "perfume not found", "", "load perfume")
		}
		if err := ensureBrand(ctx, tx, perfume.BrandID); err != nil {
			return err
		}
		if err := repo.Update(ctx, perfume); err != nil {
			return db.Classify(err, "", duplicatePerfumeMessage, "update perfume")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id, nil)
}

func (s *service) Delete(ctx context.Context, id int64) error {
	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := NewRepository(tx).DeleteCascade(ctx, id); err != nil {
			return db.Classify(err, "perfume not found", "", "delete perfume")
		}
		return nil
	})
}

func (s *service) GetUsageInfo(ctx context.Context, perfumeID int64) (*UsageInfoDTO, error) {
	if err := s.ensurePerfume(ctx, perfumeID); err != nil {
		return nil, err
	}
	info, err := s.repo.FindUsageInfo(ctx, perfumeID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load usage info")
	}
	dto := usageInfoFromModel(perfumeID, info)
	return &dto, nil
}

func (s *service) UpsertUsageInfo(ctx context.Context, perfumeID int64, req UsageInfoRequest) (*UsageInfoDTO, error) {
	if err := s.ensurePerfume(ctx, perfumeID); err != nil {
		return nil, err
	}
	info := &models.PerfumeUsageInfo{
		PerfumeID: perfumeID,
		Season:    trimOptional(req.Season),
		Occasion:  trimOptional(req.Occasion),
		Longevity: trimOptional(req.Longevity),
		Sillage:   trimOptional(req.Sillage),
		Notes:     trimOptional(req.Notes),
	}
	if err := s.repo.UpsertUsageInfo(ctx, info); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save usage info")
	}
	return s.GetUsageInfo(ctx, perfumeID)
}

func (s *service) ensurePerfume(ctx context.Context, id int64) error {
	ok, err := s.repo.Exists(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load perfume")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "perfume not found")
	}
	return nil
}

func ensureBrand(ctx context.Context, tx *gorm.DB, brandID int64) error {
	if _, err := brands.NewRepository(tx).FindByID(ctx, brandID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "brand not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load brand")
	}
	return nil
}

func perfumeFromRequest(req PerfumeRequest) (*models.Perfume, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
			WithDetails(map[string]string{"name": "is required"})
	}
	if req.BrandID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
			WithDetails(map[string]string{"brand_id": "is required"})
	}
	return &models.Perfume{
		BrandID: req.BrandID,
		Name:    name,
		Notes:   trimOptional(req.Notes),
		Family:  trimOptional(req.Family),
		Type:    trimOptional(req.Type),
	}, nil
}

func trimOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
