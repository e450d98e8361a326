package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/scentlab/perfumery-backend/api/responses"
	"github.com/scentlab/perfumery-backend/api/validators"
	pkgAuth "github.com/scentlab/perfumery-backend/pkg/auth"
	"github.com/scentlab/perfumery-backend/pkg/auth/session"
	"github.com/scentlab/perfumery-backend/pkg/config"
	pkgerrors "github.com/scentlab/perfumery-backend/pkg/errors"
	"github.com/scentlab/perfumery-backend/pkg/logger"
)

// Auth requires a live bearer token whose jti still has a session.
func Auth(cfg config.JWTConfig, verifier session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return bearerAuth(cfg, verifier, logg, true)
}

// OptionalAuth identifies the caller when it can and otherwise lets the
// request through anonymously, whatever is wrong with the token.
func OptionalAuth(cfg config.JWTConfig, verifier session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return bearerAuth(cfg, verifier, logg, false)
}

func bearerAuth(cfg config.JWTConfig, verifier session.AccessSessionChecker, logg *logger.Logger, required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !required && strings.TrimSpace(header) == "" {
				next.ServeHTTP(w, r)
				return
			}
			id, err := identify(r, header, cfg, verifier)
			if err != nil {
				if required {
					responses.WriteError(r.Context(), logg, w, err)
					return
				}
				if logg != nil {
					logg.Debug(r.Context(), "ignoring unusable bearer token")
				}
				next.ServeHTTP(w, r)
				return
			}

			ctx := withIdentityValue(r.Context(), id)
			if logg != nil {
				ctx = logg.WithUserID(ctx, strconv.FormatInt(id.UserID, 10))
				ctx = logg.WithActorRole(ctx, string(id.Role))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func identify(r *http.Request, header string, cfg config.JWTConfig, verifier session.AccessSessionChecker) (Identity, error) {
	raw, err := validators.BearerToken(header)
	if err != nil {
		return Identity{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	claims, err := pkgAuth.ParseAccessToken(cfg, raw)
	if err != nil {
		return Identity{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	if claims.ID == "" {
		return Identity{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id")
	}
	if verifier != nil {
		live, err := verifier.HasSession(r.Context(), claims.ID)
		switch {
		case err != nil:
			return Identity{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session")
		case !live:
			return Identity{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "session revoked")
		}
	}
	return Identity{UserID: claims.UserID, Username: claims.Username, Role: claims.Role, SessionID: claims.ID}, nil
}
