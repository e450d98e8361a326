package formulas

import (
	"context"
	"errors"
	"testing"

	"github.com/scentlab/perfumery-backend/internal/dbtest"
	"github.com/scentlab/perfumery-backend/pkg/db"
	"github.com/scentlab/perfumery-backend/pkg/db/models"
	"github.com/scentlab/perfumery-backend/pkg/enums"
	pkgerrors "github.com/scentlab/perfumery-backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordingCounter struct {
	decisions []string
}

func (c *recordingCounter) IncFormulaDecision(decision string) {
	c.decisions = append(c.decisions, decision)
}

type fixture struct {
	svc     Service
	client  *db.Client
	counter *recordingCounter
	perfume *models.Perfume
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	client := dbtest.Open(t)
	counter := &recordingCounter{}
	svc, err := NewService(ServiceParams{DB: client, Metrics: counter})
	require.NoError(t, err)
	brand := dbtest.MustCreateBrand(t, client.DB(), "Maison")
	perfume := dbtest.MustCreatePerfume(t, client.DB(), brand.ID, "Oud Wood")
	return fixture{svc: svc, client: client, counter: counter, perfume: perfume}
}

func input(perfumeID int64, fragrance, alcohol, water float64, restDay int) FormulaInput {
	return FormulaInput{
		PerfumeID:           perfumeID,
		FragrancePercentage: &fragrance,
		AlcoholPercentage:   &alcohol,
		WaterPercentage:     &water,
		RestDay:             &restDay,
	}
}

func validationDetails(t *testing.T, err error) map[string]string {
	t.Helper()
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected typed error, got %v", err)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
	details, ok := typed.Details().(map[string]string)
	require.True(t, ok, "unexpected details %T", typed.Details())
	return details
}

func TestCheckFieldsReportsEveryViolation(t *testing.T) {
	restDay := -1
	over := 120.0
	in := FormulaInput{FragrancePercentage: &over, RestDay: &restDay}

	details := in.CheckFields()
	assert.Equal(t, "is required", details["perfume_id"])
	assert.Equal(t, "must be between 0 and 100", details["fragrancePercentage"])
	assert.Equal(t, "is required", details["alcoholPercentage"])
	assert.Equal(t, "is required", details["waterPercentage"])
	assert.Contains(t, details, "restDay")
	assert.NotContains(t, details, "percentages", "sum is only checked once every part is present")

	sum := input(1, 30, 60, 5, 0).CheckFields()
	assert.Len(t, sum, 1)
	assert.Contains(t, sum["percentages"], "must sum to 100")

	assert.Empty(t, input(1, 33.33, 33.33, 33.34, 0).CheckFields())
	assert.Empty(t, input(1, 33.333, 33.333, 33.333, 0).CheckFields(), "within tolerance")
}

func TestSubmitAndApproveCreatesFormula(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := dbtest.MustCreateUser(t, f.client.DB(), "nose", false)

	req, err := f.svc.SubmitRequest(ctx, input(f.perfume.ID, 25, 70, 5, 14), &user.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.FormulaRequestStatusPending, req.Status)
	assert.Equal(t, "Oud Wood", req.PerfumeName)
	assert.Equal(t, "Maison", req.BrandName)
	require.NotNil(t, req.Username)
	assert.Equal(t, "nose", *req.Username)

	formula, err := f.svc.Approve(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, f.perfume.ID, formula.PerfumeID)
	assert.Equal(t, 25.0, formula.FragrancePercentage)
	assert.Equal(t, 70.0, formula.AlcoholPercentage)
	assert.Equal(t, 5.0, formula.WaterPercentage)
	assert.Equal(t, 14, formula.RestDay)

	list, err := f.svc.ListByPerfume(ctx, f.perfume.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Zero(t, list[0].AverageRating)
	assert.Zero(t, list[0].ReviewCount)

	pending, err := f.svc.ListPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	_, err = f.svc.Approve(ctx, req.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), "got %v", err)
	_, err = f.svc.Reject(ctx, req.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), "got %v", err)

	var count int64
	require.NoError(t, f.client.DB().Model(&models.PerfumeFormula{}).Count(&count).Error)
	assert.EqualValues(t, 1, count, "a second approve must not create another formula")
	assert.Equal(t, []string{DecisionApproved}, f.counter.decisions)
}

func TestRejectIsIdempotentAndCreatesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req, err := f.svc.SubmitRequest(ctx, input(f.perfume.ID, 20, 75, 5, 7), nil)
	require.NoError(t, err)
	assert.Nil(t, req.UserID)
	assert.Nil(t, req.Username)

	rejected, err := f.svc.Reject(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.FormulaRequestStatusRejected, rejected.Status)

	again, err := f.svc.Reject(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.FormulaRequestStatusRejected, again.Status)

	_, err = f.svc.Approve(ctx, req.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	var count int64
	require.NoError(t, f.client.DB().Model(&models.PerfumeFormula{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Equal(t, []string{DecisionRejected}, f.counter.decisions)

	_, err = f.svc.Reject(ctx, req.ID+100)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	_, err = f.svc.Approve(ctx, req.ID+100)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestApproveRollsBackWhenFormulaInsertFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req, err := f.svc.SubmitRequest(ctx, input(f.perfume.ID, 25, 70, 5, 14), nil)
	require.NoError(t, err)

	conn := f.client.DB()
	require.NoError(t, conn.Callback().Create().Before("gorm:create").Register("test:fail_formula_insert", func(tx *gorm.DB) {
		if tx.Statement.Table == "perfume_formulas" {
			_ = tx.AddError(errors.New("formula insert failed"))
		}
	}))

	_, err = f.svc.Approve(ctx, req.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInternal), "got %v", err)

	pending, err := f.svc.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, req.ID, pending[0].ID)
	assert.Equal(t, enums.FormulaRequestStatusPending, pending[0].Status)

	var count int64
	require.NoError(t, conn.Model(&models.PerfumeFormula{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Empty(t, f.counter.decisions)
}

func TestListPendingNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.SubmitRequest(ctx, input(f.perfume.ID, 20, 75, 5, 7), nil)
	require.NoError(t, err)
	second, err := f.svc.SubmitRequest(ctx, input(f.perfume.ID, 30, 65, 5, 10), nil)
	require.NoError(t, err)

	pending, err := f.svc.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, second.ID, pending[0].ID)
	assert.Equal(t, first.ID, pending[1].ID)
}

func TestSubmitRejectsInvalidInputBeforePersisting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.SubmitRequest(ctx, input(f.perfume.ID, 50, 40, 5, -3), nil)
	details := validationDetails(t, err)
	assert.Contains(t, details, "percentages")
	assert.Contains(t, details, "restDay")

	_, err = f.svc.SubmitRequest(ctx, input(f.perfume.ID+99, 20, 75, 5, 7), nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	var count int64
	require.NoError(t, f.client.DB().Model(&models.FormulaPendingRequest{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreateAggregateAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	conn := f.client.DB()

	formula, err := f.svc.Create(ctx, input(f.perfume.ID, 22, 73, 5, 21))
	require.NoError(t, err)

	alice := dbtest.MustCreateUser(t, conn, "alice", false)
	bob := dbtest.MustCreateUser(t, conn, "bob", false)
	require.NoError(t, conn.Create(&models.FormulaRating{FormulaID: formula.ID, UserID: alice.ID, Rating: 5}).Error)
	require.NoError(t, conn.Create(&models.FormulaRating{FormulaID: formula.ID, UserID: bob.ID, Rating: 2}).Error)

	got, err := f.svc.Get(ctx, formula.ID)
	require.NoError(t, err)
	assert.InDelta(t, 3.5, got.AverageRating, 0.0001)
	assert.EqualValues(t, 2, got.ReviewCount)

	_, err = f.svc.Create(ctx, input(f.perfume.ID+42, 22, 73, 5, 21))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	require.NoError(t, f.svc.Delete(ctx, formula.ID))
	var ratings int64
	require.NoError(t, conn.Model(&models.FormulaRating{}).Count(&ratings).Error)
	assert.Zero(t, ratings)

	assert.True(t, pkgerrors.IsCode(f.svc.Delete(ctx, formula.ID), pkgerrors.CodeNotFound))
	_, err = f.svc.Get(ctx, formula.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = f.svc.ListByPerfume(ctx, f.perfume.ID+42)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
