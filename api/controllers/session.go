package controllers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/scentlab/perfumery-backend/api/responses"
	"github.com/scentlab/perfumery-backend/api/validators"
	"github.com/scentlab/perfumery-backend/internal/users"
	pkgAuth "github.com/scentlab/perfumery-backend/pkg/auth"
	"github.com/scentlab/perfumery-backend/pkg/auth/session"
	"github.com/scentlab/perfumery-backend/pkg/config"
	"github.com/scentlab/perfumery-backend/pkg/enums"
	pkgerrors "github.com/scentlab/perfumery-backend/pkg/errors"
	"github.com/scentlab/perfumery-backend/pkg/logger"
)

type sessionTokenRotator interface {
	Rotate(ctx context.Context, userID int64, oldAccessID, provided string) (string, string, error)
	Revoke(ctx context.Context, userID int64, accessID string) error
}

// accountLookup reloads the caller so a refreshed token carries the
// current role rather than the one frozen into the old token.
type accountLookup interface {
	Me(ctx context.Context, userID int64) (*users.UserDTO, error)
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type tokenPair struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

// bearerClaims reads the Authorization header. Expiry is ignored because
// logout and refresh are exactly what a client with a stale token calls;
// signature and issuer are still enforced.
func bearerClaims(r *http.Request, cfg config.JWTConfig) (*pkgAuth.AccessTokenClaims, error) {
	raw, err := validators.BearerToken(r.Header.Get("Authorization"))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	claims, err := pkgAuth.ParseAccessTokenAllowExpired(cfg, raw)
	switch {
	case err != nil:
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	case claims.ID == "":
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id")
	}
	return claims, nil
}

// AuthLogout drops the refresh session bound to the presented token.
func AuthLogout(sessions sessionTokenRotator, cfg config.JWTConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if sessions == nil {
			responses.WriteError(ctx, logg, w, unavailable("session manager"))
			return
		}
		claims, err := bearerClaims(r, cfg)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err := sessions.Revoke(ctx, claims.UserID, claims.ID); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session"))
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "logged_out"})
	}
}

// AuthRefresh swaps a refresh token for a new pair. The old refresh token
// and the old access jti stop working. Username and role come from the
// stored account, not the old token.
func AuthRefresh(sessions sessionTokenRotator, accounts accountLookup, cfg config.JWTConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		switch {
		case sessions == nil:
			responses.WriteError(ctx, logg, w, unavailable("session manager"))
			return
		case accounts == nil:
			responses.WriteError(ctx, logg, w, unavailable("auth service"))
			return
		}
		claims, err := bearerClaims(r, cfg)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var body refreshRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		account, err := accounts.Me(ctx, claims.UserID)
		switch {
		case pkgerrors.IsCode(err, pkgerrors.CodeNotFound):
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "account no longer exists"))
			return
		case err != nil:
			responses.WriteError(ctx, logg, w, err)
			return
		}

		jti, refresh, err := sessions.Rotate(ctx, claims.UserID, claims.ID, body.RefreshToken)
		switch {
		case errors.Is(err, session.ErrInvalidRefreshToken):
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token"))
			return
		case err != nil:
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rotate session"))
			return
		}

		access, err := pkgAuth.MintAccessToken(cfg, time.Now(), pkgAuth.AccessTokenPayload{
			UserID:   account.ID,
			Username: account.Username,
			Role:     enums.RoleFor(account.IsAdmin),
			JTI:      jti,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint access token"))
			return
		}
		responses.WriteSuccess(w, tokenPair{Token: access, RefreshToken: refresh})
	}
}
