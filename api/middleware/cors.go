package middleware

import (
	"net/http"
	"slices"

	"github.com/go-chi/cors"

	"github.com/scentlab/perfumery-backend/pkg/config"
)

const defaultCORSMaxAge = 300

// CORS applies the configured origin allow list. A "*" entry opens the API
// to any origin but then drops credentialed requests.
func CORS(cfg config.CORSConfig) func(http.Handler) http.Handler {
	return cors.Handler(corsOptions(cfg))
}

func corsOptions(cfg config.CORSConfig) cors.Options {
	maxAge := cfg.MaxAgeSeconds
	if maxAge <= 0 {
		maxAge = defaultCORSMaxAge
	}
	return cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept", "Authorization", "Content-Type", "X-Requested-With",
			idempotencyHeader, apiKeyHeader, requestIDHeader,
		},
		ExposedHeaders:   []string{requestIDHeader, replayedHeader, "Retry-After"},
		AllowCredentials: !slices.Contains(cfg.AllowedOrigins, "*"),
		MaxAge:           maxAge,
	}
}
