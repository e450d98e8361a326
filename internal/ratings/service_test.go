package ratings

import (
	"context"
	"strings"
	"testing"

	"github.com/scentlab/perfumery-backend/internal/dbtest"
	"github.com/scentlab/perfumery-backend/pkg/db"
	"github.com/scentlab/perfumery-backend/pkg/db/models"
	pkgerrors "github.com/scentlab/perfumery-backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	svc     Service
	client  *db.Client
	formula *models.PerfumeFormula
	alice   *models.User
	bob     *models.User
	admin   *models.User
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	client := dbtest.Open(t)
	conn := client.DB()
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)

	brand := dbtest.MustCreateBrand(t, conn, "Brand")
	perfume := dbtest.MustCreatePerfume(t, conn, brand.ID, "Perfume")
	return fixture{
		svc:     svc,
		client:  client,
		formula: dbtest.MustCreateFormula(t, conn, perfume.ID, 20, 75, 5, 7),
		alice:   dbtest.MustCreateUser(t, conn, "alice", false),
		bob:     dbtest.MustCreateUser(t, conn, "bob", false),
		admin:   dbtest.MustCreateUser(t, conn, "root", true),
	}
}

func strPtr(v string) *string { return &v }

func TestListEmptyFormulaHasZeroAggregate(t *testing.T) {
	f := newFixture(t)

	got, err := f.svc.List(context.Background(), f.formula.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Ratings)
	assert.NotNil(t, got.Ratings)
	assert.Zero(t, got.AverageRating)
	assert.Zero(t, got.ReviewCount)

	_, err = f.svc.List(context.Background(), f.formula.ID+10)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestUpsertKeepsOneRatingPerUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Upsert(ctx, f.formula.ID, f.alice.ID, RatingRequest{Rating: 2, Comment: strPtr("too sweet")})
	require.NoError(t, err)
	assert.Equal(t, "alice", first.Username)

	second, err := f.svc.Upsert(ctx, f.formula.ID, f.alice.ID, RatingRequest{Rating: 4})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 4, second.Rating)
	assert.Nil(t, second.Comment, "comment is replaced along with the value")

	_, err = f.svc.Upsert(ctx, f.formula.ID, f.bob.ID, RatingRequest{Rating: 5})
	require.NoError(t, err)

	list, err := f.svc.List(ctx, f.formula.ID)
	require.NoError(t, err)
	assert.Len(t, list.Ratings, 2)
	assert.EqualValues(t, 2, list.ReviewCount)
	assert.InDelta(t, 4.5, list.AverageRating, 0.0001)
}

func TestUpsertValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, value := range []int{0, 6, -1} {
		_, err := f.svc.Upsert(ctx, f.formula.ID, f.alice.ID, RatingRequest{Rating: value})
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "rating %d", value)
	}

	long := strings.Repeat("x", MaxCommentLength+1)
	_, err := f.svc.Upsert(ctx, f.formula.ID, f.alice.ID, RatingRequest{Rating: 3, Comment: &long})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.Upsert(ctx, f.formula.ID+99, f.alice.ID, RatingRequest{Rating: 3})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestUpdateAndDeleteRequireOwnerOrAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rating, err := f.svc.Upsert(ctx, f.formula.ID, f.alice.ID, RatingRequest{Rating: 3})
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, Actor{UserID: f.bob.ID}, rating.ID, RatingRequest{Rating: 1})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
	assert.True(t, pkgerrors.IsCode(f.svc.Delete(ctx, Actor{UserID: f.bob.ID}, rating.ID), pkgerrors.CodeForbidden))

	updated, err := f.svc.Update(ctx, Actor{UserID: f.alice.ID}, rating.ID, RatingRequest{Rating: 5, Comment: strPtr(" lovely ")})
	require.NoError(t, err)
	assert.Equal(t, 5, updated.Rating)
	require.NotNil(t, updated.Comment)
	assert.Equal(t, "lovely", *updated.Comment)

	byAdmin, err := f.svc.Update(ctx, Actor{UserID: f.admin.ID, IsAdmin: true}, rating.ID, RatingRequest{Rating: 4})
	require.NoError(t, err)
	assert.Equal(t, f.alice.ID, byAdmin.UserID)

	require.NoError(t, f.svc.Delete(ctx, Actor{UserID: f.admin.ID, IsAdmin: true}, rating.ID))
	assert.True(t, pkgerrors.IsCode(f.svc.Delete(ctx, Actor{UserID: f.alice.ID}, rating.ID), pkgerrors.CodeNotFound))
	_, err = f.svc.Update(ctx, Actor{UserID: f.alice.ID}, rating.ID, RatingRequest{Rating: 2})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
