// Package auth implements login, registration and password rotation on top
// of the users repository and the redis backed refresh sessions.
package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/scentlab/perfumery-backend/internal/users"
	pkgAuth "github.com/scentlab/perfumery-backend/pkg/auth"
	"github.com/scentlab/perfumery-backend/pkg/auth/session"
	"github.com/scentlab/perfumery-backend/pkg/config"
	"github.com/scentlab/perfumery-backend/pkg/db"
	"github.com/scentlab/perfumery-backend/pkg/db/models"
	"github.com/scentlab/perfumery-backend/pkg/enums"
	pkgerrors "github.com/scentlab/perfumery-backend/pkg/errors"
	"github.com/scentlab/perfumery-backend/pkg/security"
)

// Every login failure answers with this message so callers cannot probe
// which usernames exist.
const invalidCredentialsMessage = "invalid credentials"

type Service interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	Me(ctx context.Context, userID int64) (*users.UserDTO, error)
	// ChangePassword keeps the session identified by currentAccessID and
	// revokes every other session of the user.
	ChangePassword(ctx context.Context, userID int64, currentAccessID string, req ChangePasswordRequest) error
}

type userRepository interface {
	FindByLogin(ctx context.Context, identifier string) (*models.User, error)
	FindByID(ctx context.Context, id int64) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id int64, at time.Time) error
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error
}

type sessionManager interface {
	Generate(ctx context.Context, userID int64, accessID string) (string, error)
	RevokeAllExcept(ctx context.Context, userID int64, keepAccessID string) error
}

type ServiceParams struct {
	UserRepo       userRepository
	SessionManager sessionManager
	JWTConfig      config.JWTConfig
	PasswordConfig config.PasswordConfig
	// Clock defaults to time.Now.
	Clock func() time.Time
}

type service struct {
	users     userRepository
	sessions  sessionManager
	jwt       config.JWTConfig
	passwords config.PasswordConfig
	now       func() time.Time

	decoyOnce sync.Once
	decoyHash string
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.UserRepo == nil:
		return nil, errors.New("auth: user repository is required")
	case params.SessionManager == nil:
		return nil, errors.New("auth: session manager is required")
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &service{
		users:     params.UserRepo,
		sessions:  params.SessionManager,
		jwt:       params.JWTConfig,
		passwords: params.PasswordConfig,
		now:       clock,
	}, nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	user, err := s.checkCredentials(ctx, req.Username, req.Password)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update last login")
	}
	user.LastLoginAt = &now

	access, refresh, err := s.openSession(ctx, user, now)
	if err != nil {
		return nil, err
	}
	return &LoginResponse{Token: access, RefreshToken: refresh, User: users.FromModel(user)}, nil
}

// openSession mints an access token and binds a fresh refresh token to its jti.
func (s *service) openSession(ctx context.Context, user *models.User, now time.Time) (string, string, error) {
	jti := session.NewAccessID()
	access, err := pkgAuth.MintAccessToken(s.jwt, now, pkgAuth.AccessTokenPayload{
		UserID:   user.ID,
		Username: user.Username,
		Role:     enums.RoleFor(user.IsAdmin),
		JTI:      jti,
	})
	if err != nil {
		return "", "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint access token")
	}
	refresh, err := s.sessions.Generate(ctx, user.ID, jti)
	if err != nil {
		return "", "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store refresh token")
	}
	return access, refresh, nil
}

func (s *service) Me(ctx context.Context, userID int64) (*users.UserDTO, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, db.Classify(err, "user not found", "", "load user")
	}
	return users.FromModel(user), nil
}

func (s *service) ChangePassword(ctx context.Context, userID int64, currentAccessID string, req ChangePasswordRequest) error {
	if problems := req.CheckFields(); len(problems) > 0 {
		return validationError(problems)
	}
	if err := security.CheckPasswordPolicy(req.NewPassword, s.passwords); err != nil {
		return validationError(map[string]string{"newPassword": err.Error()})
	}

	user, err := s.users.FindByID(ctx, userID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return invalidCredentials()
	case err != nil:
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	if err := s.verify(req.CurrentPassword, user.PasswordHash); err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
			return pkgerrors.New(pkgerrors.CodeUnauthorized, "current password is incorrect")
		}
		return err
	}

	hash, err := security.HashPassword(req.NewPassword, s.passwords)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	if err := s.users.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update password")
	}
	if err := s.sessions.RevokeAllExcept(ctx, user.ID, currentAccessID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke other sessions")
	}
	return nil
}

// checkCredentials resolves identifier as a username or email. Unknown
// accounts still pay for one hash verification so response timing does not
// reveal whether the account exists.
func (s *service) checkCredentials(ctx context.Context, identifier, password string) (*models.User, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, invalidCredentials()
	}
	user, err := s.users.FindByLogin(ctx, identifier)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		_ = s.verify(password, s.decoy())
		return nil, invalidCredentials()
	case err != nil:
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}
	if err := s.verify(password, user.PasswordHash); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *service) verify(password, hash string) error {
	ok, err := security.VerifyPassword(password, hash)
	switch {
	case err != nil:
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	case !ok:
		return invalidCredentials()
	}
	return nil
}

func (s *service) decoy() string {
	s.decoyOnce.Do(func() {
		s.decoyHash, _ = security.HashPassword(session.NewAccessID(), s.passwords)
	})
	return s.decoyHash
}

func invalidCredentials() error {
	return pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
}

func validationError(fields map[string]string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(fields)
}
