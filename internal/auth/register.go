package auth

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/scentlab/perfumery-backend/internal/users"
	"github.com/scentlab/perfumery-backend/pkg/config"
	"github.com/scentlab/perfumery-backend/pkg/db"
	"github.com/scentlab/perfumery-backend/pkg/db/models"
	pkgerrors "github.com/scentlab/perfumery-backend/pkg/errors"
	"github.com/scentlab/perfumery-backend/pkg/security"
)

// RegisterService creates regular (non admin) accounts.
type RegisterService interface {
	Register(ctx context.Context, req RegisterRequest) (*users.UserDTO, error)
}

type registerUserRepository interface {
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, bool, error)
	Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error)
}

type RegisterServiceParams struct {
	TxRunner       db.TxRunner
	PasswordConfig config.PasswordConfig
	// UserRepoFactory binds a repository to the registration transaction.
	UserRepoFactory func(tx *gorm.DB) registerUserRepository
}

type registerService struct {
	tx        db.TxRunner
	passwords config.PasswordConfig
	repoFor   func(tx *gorm.DB) registerUserRepository
}

func NewRegisterService(params RegisterServiceParams) (RegisterService, error) {
	if params.TxRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "database client required")
	}
	repoFor := params.UserRepoFactory
	if repoFor == nil {
		repoFor = func(tx *gorm.DB) registerUserRepository { return users.NewRepository(tx) }
	}
	return &registerService{tx: params.TxRunner, passwords: params.PasswordConfig, repoFor: repoFor}, nil
}

func (s *registerService) Register(ctx context.Context, req RegisterRequest) (*users.UserDTO, error) {
	account, err := s.prepare(req)
	if err != nil {
		return nil, err
	}

	var created *models.User
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repoFor(tx)
		nameTaken, emailTaken, err := repo.ExistsByUsernameOrEmail(ctx, account.Username, account.Email)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check existing user")
		}
		if err := takenError(nameTaken, emailTaken); err != nil {
			return err
		}
		created, err = repo.Create(ctx, account)
		// the unique indexes still catch a concurrent sign-up
		return db.Classify(err, "", "username or email already registered", "create user")
	})
	if err != nil {
		return nil, err
	}
	return users.FromModel(created), nil
}

// prepare normalizes the identity fields and hashes the password outside
// the transaction.
func (s *registerService) prepare(req RegisterRequest) (users.CreateUserDTO, error) {
	account := users.CreateUserDTO{
		Username: strings.TrimSpace(req.Username),
		Email:    strings.ToLower(strings.TrimSpace(req.Email)),
	}
	problems := map[string]string{}
	if account.Username == "" {
		problems["username"] = "is required"
	}
	if account.Email == "" {
		problems["email"] = "is required"
	}
	if err := security.CheckPasswordPolicy(req.Password, s.passwords); err != nil {
		problems["password"] = err.Error()
	}
	if len(problems) > 0 {
		return account, validationError(problems)
	}

	hash, err := security.HashPassword(req.Password, s.passwords)
	if err != nil {
		return account, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	account.PasswordHash = hash
	return account, nil
}

func takenError(nameTaken, emailTaken bool) error {
	switch {
	case nameTaken && emailTaken:
		return pkgerrors.New(pkgerrors.CodeConflict, "username and email already registered")
	case nameTaken:
		return pkgerrors.New(pkgerrors.CodeConflict, "username already taken")
	case emailTaken:
		return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
	}
	return nil
}
