package auth

import (
	"context"
	"sync"
	"testing"

	"github.com/scentlab/perfumery-backend/internal/dbtest"
	"github.com/scentlab/perfumery-backend/internal/users"
	"github.com/scentlab/perfumery-backend/pkg/config"
	"github.com/scentlab/perfumery-backend/pkg/db/models"
	pkgerrors "github.com/scentlab/perfumery-backend/pkg/errors"
	"github.com/scentlab/perfumery-backend/pkg/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type stubTxRunner struct{}

func (s stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubRegisterRepo struct {
	mu      sync.Mutex
	byName  map[string]*models.User
	byEmail map[string]*models.User
	nextID  int64
}

func newStubRegisterRepo() *stubRegisterRepo {
	return &stubRegisterRepo{byName: map[string]*models.User{}, byEmail: map[string]*models.User{}}
}

func (s *stubRegisterRepo) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, nameTaken := s.byName[username]
	_, emailTaken := s.byEmail[email]
	return nameTaken, emailTaken, nil
}

func (s *stubRegisterRepo) Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	user := dto.ToModel()
	user.ID = s.nextID
	s.byName[user.Username] = user
	s.byEmail[user.Email] = user
	return user, nil
}

func TestRegisterNormalizesAndHashes(t *testing.T) {
	repo := newStubRegisterRepo()
	svc, err := NewRegisterService(RegisterServiceParams{
		TxRunner:        stubTxRunner{},
		UserRepoFactory: func(*gorm.DB) registerUserRepository { return repo },
	})
	require.NoError(t, err)

	dto, err := svc.Register(context.Background(), RegisterRequest{Username: " perfumer ", Email: "Perfumer@Example.COM", Password: "long-enough"})
	require.NoError(t, err)
	assert.Equal(t, "perfumer", dto.Username)
	assert.Equal(t, "perfumer@example.com", dto.Email)
	assert.False(t, dto.IsAdmin)

	stored := repo.byName["perfumer"]
	require.NotNil(t, stored)
	ok, err := security.VerifyPassword("long-enough", stored.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRegisterConflicts(t *testing.T) {
	repo := newStubRegisterRepo()
	svc, err := NewRegisterService(RegisterServiceParams{
		TxRunner:        stubTxRunner{},
		UserRepoFactory: func(*gorm.DB) registerUserRepository { return repo },
	})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = svc.Register(ctx, RegisterRequest{Username: "a", Email: "a@example.com", Password: "password1"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterRequest{Username: "a", Email: "b@example.com", Password: "password1"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	_, err = svc.Register(ctx, RegisterRequest{Username: "b", Email: "A@example.com", Password: "password1"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestRegisterEnforcesPasswordPolicy(t *testing.T) {
	svc, err := NewRegisterService(RegisterServiceParams{
		TxRunner:        stubTxRunner{},
		PasswordConfig:  config.PasswordConfig{MinLength: 12},
		UserRepoFactory: func(*gorm.DB) registerUserRepository { return newStubRegisterRepo() },
	})
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), RegisterRequest{Username: "c", Email: "c@example.com", Password: "only-ten!!"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestRegisterAgainstDatabase(t *testing.T) {
	client := dbtest.Open(t)
	svc, err := NewRegisterService(RegisterServiceParams{TxRunner: client})
	require.NoError(t, err)
	ctx := context.Background()

	created, err := svc.Register(ctx, RegisterRequest{Username: "db-user", Email: "db@example.com", Password: "password1"})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	_, err = svc.Register(ctx, RegisterRequest{Username: "db-user", Email: "other@example.com", Password: "password1"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	var count int64
	require.NoError(t, client.DB().Model(&models.User{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestRegisterReportsEveryMissingField(t *testing.T) {
	svc, err := NewRegisterService(RegisterServiceParams{
		TxRunner:        stubTxRunner{},
		UserRepoFactory: func(*gorm.DB) registerUserRepository { return newStubRegisterRepo() },
	})
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), RegisterRequest{Username: "  ", Email: " ", Password: "x"})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	details, ok := typed.Details().(map[string]string)
	require.True(t, ok)
	assert.Contains(t, details, "username")
	assert.Contains(t, details, "email")
	assert.Contains(t, details, "password")
}

func TestTakenError(t *testing.T) {
	assert.NoError(t, takenError(false, false))
	assert.Equal(t, "username already taken", pkgerrors.As(takenError(true, false)).Message())
	assert.Equal(t, "email already registered", pkgerrors.As(takenError(false, true)).Message())
	assert.True(t, pkgerrors.IsCode(takenError(true, true), pkgerrors.CodeConflict))
}
