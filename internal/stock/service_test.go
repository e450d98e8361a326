package stock

import (
	"context"
	"testing"
	"time"

	"github.com/scentlab/perfumery-backend/internal/dbtest"
	"github.com/scentlab/perfumery-backend/pkg/db"
	"github.com/scentlab/perfumery-backend/pkg/db/models"
	"github.com/scentlab/perfumery-backend/pkg/enums"
	pkgerrors "github.com/scentlab/perfumery-backend/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingCounter struct {
	sources []string
}

func (c *recordingCounter) IncStockAdjustment(source string) {
	c.sources = append(c.sources, source)
}

type fixture struct {
	svc     Service
	client  *db.Client
	counter *recordingCounter
	perfume *models.Perfume
	now     time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	client := dbtest.Open(t)
	f := &fixture{
		client:  client,
		counter: &recordingCounter{},
		now:     time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	}
	svc, err := NewService(ServiceParams{
		DB:      client,
		Metrics: f.counter,
		Now:     func() time.Time { return f.now },
	})
	require.NoError(t, err)
	f.svc = svc

	brand := dbtest.MustCreateBrand(t, client.DB(), "Atelier")
	f.perfume = dbtest.MustCreatePerfume(t, client.DB(), brand.ID, "Cedre")
	return f
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }
func price(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}

func TestCreateStockValidatesAndRejectsDuplicates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.CreateStock(ctx, CreateStockRequest{
		PerfumeID:     f.perfume.ID,
		Price:         price("49.90"),
		StockQuantity: intPtr(12),
		Category:      strPtr("tester"),
	})
	require.NoError(t, err)
	assert.True(t, created.Price.Equal(decimal.RequireFromString("49.9")), "price %s", created.Price)
	assert.Equal(t, 12, created.StockQuantity)
	assert.Equal(t, enums.StockCategoryTester, created.Category)
	assert.Equal(t, "Cedre", created.PerfumeName)
	assert.Equal(t, "Atelier", created.BrandName)

	_, err = f.svc.CreateStock(ctx, CreateStockRequest{PerfumeID: f.perfume.ID, Price: price("1"), StockQuantity: intPtr(1)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "got %v", err)

	_, err = f.svc.CreateStock(ctx, CreateStockRequest{PerfumeID: f.perfume.ID + 9, Price: price("1"), StockQuantity: intPtr(1)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = f.svc.CreateStock(ctx, CreateStockRequest{PerfumeID: f.perfume.ID, Price: price("-1"), StockQuantity: intPtr(-2), Category: strPtr("bulk")})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	details, ok := typed.Details().(map[string]string)
	require.True(t, ok)
	assert.Contains(t, details, "price")
	assert.Contains(t, details, "stock_quantity")
	assert.Contains(t, details, "category")
}

func TestUpdateListAndDeleteStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.CreateStock(ctx, CreateStockRequest{PerfumeID: f.perfume.ID, Price: price("10"), StockQuantity: intPtr(3)})
	require.NoError(t, err)
	assert.Equal(t, enums.StockCategoryRetail, created.Category)

	updated, err := f.svc.UpdateStock(ctx, created.ID, UpdateStockRequest{StockQuantity: intPtr(8)})
	require.NoError(t, err)
	assert.Equal(t, 8, updated.StockQuantity)
	assert.True(t, updated.Price.Equal(decimal.NewFromInt(10)), "untouched fields keep their value")

	_, err = f.svc.UpdateStock(ctx, created.ID, UpdateStockRequest{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = f.svc.UpdateStock(ctx, created.ID+5, UpdateStockRequest{StockQuantity: intPtr(1)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	retail, err := f.svc.ListStock(ctx, "retail")
	require.NoError(t, err)
	assert.Len(t, retail, 1)
	samples, err := f.svc.ListStock(ctx, "sample")
	require.NoError(t, err)
	assert.Empty(t, samples)
	_, err = f.svc.ListStock(ctx, "bulk")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	require.NoError(t, f.svc.DeleteStock(ctx, created.ID))
	assert.True(t, pkgerrors.IsCode(f.svc.DeleteStock(ctx, created.ID), pkgerrors.CodeNotFound))
}

func TestAdjustIsGuardedAgainstNegativeStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Adjust(ctx, AdjustRequest{PerfumeID: f.perfume.ID, Delta: -1})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "no stock row yet: %v", err)

	_, err = f.svc.CreateStock(ctx, CreateStockRequest{PerfumeID: f.perfume.ID, Price: price("5"), StockQuantity: intPtr(2)})
	require.NoError(t, err)

	after, err := f.svc.Adjust(ctx, AdjustRequest{PerfumeID: f.perfume.ID, Delta: -2})
	require.NoError(t, err)
	assert.Zero(t, after.StockQuantity)

	_, err = f.svc.Adjust(ctx, AdjustRequest{PerfumeID: f.perfume.ID, Delta: -1})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), "got %v", err)

	restocked, err := f.svc.Adjust(ctx, AdjustRequest{PerfumeID: f.perfume.ID, Delta: 5})
	require.NoError(t, err)
	assert.Equal(t, 5, restocked.StockQuantity)

	_, err = f.svc.Adjust(ctx, AdjustRequest{PerfumeID: f.perfume.ID})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	assert.Equal(t, []string{SourceManual, SourceAutomation, SourceAutomation}, f.counter.sources)
}

func TestMaturationReadinessUsesNewestFormula(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	conn := f.client.DB()

	older := dbtest.MustCreateFormula(t, conn, f.perfume.ID, 20, 75, 5, 30)
	require.NoError(t, conn.Model(older).Update("created_at", f.now.AddDate(0, -1, 0)).Error)
	newer := dbtest.MustCreateFormula(t, conn, f.perfume.ID, 20, 75, 5, 7)
	require.NoError(t, conn.Model(newer).Update("created_at", f.now).Error)

	start := f.now.AddDate(0, 0, -10)
	ready, err := f.svc.CreateMaturation(ctx, MaturationRequest{PerfumeID: f.perfume.ID, Quantity: 4, StartDate: &start, Notes: strPtr("  batch A ")})
	require.NoError(t, err)
	assert.Equal(t, 7, ready.RestDays)
	assert.True(t, ready.ReadyAt.Equal(start.AddDate(0, 0, 7)))
	assert.True(t, ready.IsReady)
	require.NotNil(t, ready.Notes)
	assert.Equal(t, "batch A", *ready.Notes)

	fresh, err := f.svc.CreateMaturation(ctx, MaturationRequest{PerfumeID: f.perfume.ID, Quantity: 2})
	require.NoError(t, err)
	assert.True(t, fresh.StartDate.Equal(f.now))
	assert.False(t, fresh.IsReady)

	list, err := f.svc.ListMaturation(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, ready.ID, list[0].ID)

	_, err = f.svc.CreateMaturation(ctx, MaturationRequest{PerfumeID: f.perfume.ID, Quantity: 0})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = f.svc.CreateMaturation(ctx, MaturationRequest{PerfumeID: f.perfume.ID + 3, Quantity: 1})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	require.NoError(t, f.svc.DeleteMaturation(ctx, fresh.ID))
	assert.True(t, pkgerrors.IsCode(f.svc.DeleteMaturation(ctx, fresh.ID), pkgerrors.CodeNotFound))
}

func TestCompleteMaturationRestocks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.CreateMaturation(ctx, MaturationRequest{PerfumeID: f.perfume.ID, Quantity: 4})
	require.NoError(t, err)
	second, err := f.svc.CreateMaturation(ctx, MaturationRequest{PerfumeID: f.perfume.ID, Quantity: 6})
	require.NoError(t, err)

	created, err := f.svc.CompleteMaturation(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, created.StockQuantity)
	assert.Equal(t, enums.StockCategoryRetail, created.Category)
	assert.True(t, created.Price.IsZero())

	topped, err := f.svc.CompleteMaturation(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, topped.ID)
	assert.Equal(t, 10, topped.StockQuantity)

	batches, err := f.svc.ListMaturation(ctx)
	require.NoError(t, err)
	assert.Empty(t, batches)

	_, err = f.svc.CompleteMaturation(ctx, first.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	assert.Equal(t, []string{SourceMaturation, SourceMaturation}, f.counter.sources)
}
