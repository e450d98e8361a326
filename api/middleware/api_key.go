package middleware

import (
	"net/http"
	"strings"

	"github.com/scentlab/perfumery-backend/api/responses"
	pkgerrors "github.com/scentlab/perfumery-backend/pkg/errors"
	"github.com/scentlab/perfumery-backend/pkg/logger"
	"github.com/scentlab/perfumery-backend/pkg/security"
)

const apiKeyHeader = "X-API-Key"

// APIKey guards machine-to-machine routes with a static shared key. An empty
// configured key rejects every request.
func APIKey(expected string, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			provided := strings.TrimSpace(r.Header.Get(apiKeyHeader))
			if provided == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "api key required"))
				return
			}
			if !security.SecretsEqual(expected, provided) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid api key"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
