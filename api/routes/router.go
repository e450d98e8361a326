package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/scentlab/perfumery-backend/api/controllers"
	"github.com/scentlab/perfumery-backend/api/middleware"
	"github.com/scentlab/perfumery-backend/internal/auth"
	"github.com/scentlab/perfumery-backend/internal/brands"
	"github.com/scentlab/perfumery-backend/internal/favorites"
	"github.com/scentlab/perfumery-backend/internal/formulas"
	"github.com/scentlab/perfumery-backend/internal/perfumes"
	"github.com/scentlab/perfumery-backend/internal/ratings"
	"github.com/scentlab/perfumery-backend/internal/stock"
	"github.com/scentlab/perfumery-backend/pkg/auth/session"
	"github.com/scentlab/perfumery-backend/pkg/config"
	"github.com/scentlab/perfumery-backend/pkg/db"
	"github.com/scentlab/perfumery-backend/pkg/logger"
	"github.com/scentlab/perfumery-backend/pkg/metrics"
	pkgredis "github.com/scentlab/perfumery-backend/pkg/redis"
)

type sessionManager interface {
	session.AccessSessionChecker
	Rotate(ctx context.Context, userID int64, oldAccessID, provided string) (string, string, error)
	Revoke(ctx context.Context, userID int64, accessID string) error
}

// Services bundles the domain services mounted by the router. A nil service
// makes its endpoints answer INTERNAL_ERROR instead of panicking.
type Services struct {
	Auth      auth.Service
	Register  auth.RegisterService
	Brands    brands.Service
	Perfumes  perfumes.Service
	Formulas  formulas.Service
	Ratings   ratings.Service
	Favorites favorites.Service
	Stock     stock.Service
}

// Infra carries the shared clients the router needs beyond the services.
type Infra struct {
	DB          db.Pinger
	Redis       *pkgredis.Client
	Sessions    sessionManager
	RateLimiter *middleware.RateLimiter
	HTTPMetrics *metrics.HTTPMetrics
	Gatherer    prometheus.Gatherer
}

func NewRouter(cfg *config.Config, logg *logger.Logger, infra Infra, svc Services) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.AccessLog(logg),
		middleware.Metrics(infra.HTTPMetrics),
		middleware.CORS(cfg.CORS),
	)

	// a typed nil must not reach the middleware as a non-nil interface
	var (
		idemStore  pkgredis.IdempotencyStore
		limitStore middleware.CounterStore
		readyDeps  = map[string]controllers.Pinger{"db": infra.DB, "redis": nil}
	)
	if infra.Redis != nil {
		idemStore = infra.Redis
		limitStore = infra.Redis
		readyDeps["redis"] = infra.Redis
	}
	var verifier session.AccessSessionChecker
	if infra.Sessions != nil {
		verifier = infra.Sessions
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readyDeps))
	})
	if infra.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(infra.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(infra.RateLimiter.Handler)
		idempotent := middleware.Idempotency(idemStore, logg)

		r.With(middleware.AuthRateLimit(middleware.LoginRateLimitPolicy(cfg.AuthRateLimit), limitStore, logg)).
			Post("/login", controllers.AuthLogin(svc.Auth, logg))
		r.With(middleware.AuthRateLimit(middleware.RegisterRateLimitPolicy(cfg.AuthRateLimit), limitStore, logg), idempotent).
			Post("/register", controllers.AuthRegister(svc.Register, logg))
		r.Post("/logout", controllers.AuthLogout(infra.Sessions, cfg.JWT, logg))
		r.Post("/refresh", controllers.AuthRefresh(infra.Sessions, svc.Auth, cfg.JWT, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalAuth(cfg.JWT, verifier, logg), idempotent)

			r.Get("/brands", controllers.BrandList(svc.Brands, logg))
			r.Get("/perfumes", controllers.PerfumeList(svc.Perfumes, logg))
			r.Get("/perfumes/{id}", controllers.PerfumeGet(svc.Perfumes, logg))
			r.Get("/perfumes/{id}/usage-info", controllers.PerfumeUsageInfo(svc.Perfumes, logg))
			r.Get("/perfumes/{id}/formulas", controllers.PerfumeFormulas(svc.Formulas, logg))
			r.Get("/formulas/{id}", controllers.FormulaGet(svc.Formulas, logg))
			r.Get("/formulas/{id}/ratings", controllers.RatingList(svc.Ratings, logg))
			r.Post("/formulas/request", controllers.FormulaSubmitRequest(svc.Formulas, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, verifier, logg), idempotent)

			r.Get("/me", controllers.AuthMe(svc.Auth, logg))
			r.Post("/change-password", controllers.AuthChangePassword(svc.Auth, logg))

			r.Post("/perfumes", controllers.PerfumeCreate(svc.Perfumes, logg))
			r.Put("/perfumes/{id}", controllers.PerfumeUpdate(svc.Perfumes, logg))
			r.Delete("/perfumes/{id}", controllers.PerfumeDelete(svc.Perfumes, logg))
			r.Put("/perfumes/{id}/usage-info", controllers.PerfumeUpsertUsageInfo(svc.Perfumes, logg))

			r.Post("/formulas/{id}/ratings", controllers.RatingSubmit(svc.Ratings, logg))
			r.Put("/formulas/ratings/{id}", controllers.RatingUpdate(svc.Ratings, logg))
			r.Delete("/formulas/ratings/{id}", controllers.RatingDelete(svc.Ratings, logg))

			r.Get("/favorites", controllers.FavoriteList(svc.Favorites, logg))
			r.Post("/favorites/toggle", controllers.FavoriteToggle(svc.Favorites, logg))

			r.Get("/perfume-stock", controllers.StockList(svc.Stock, logg))
			r.Post("/perfume-stock", controllers.StockCreate(svc.Stock, logg))
			r.Put("/perfume-stock/{id}", controllers.StockUpdate(svc.Stock, logg))
			r.Delete("/perfume-stock/{id}", controllers.StockDelete(svc.Stock, logg))
			r.Get("/perfume-stock/maturation", controllers.MaturationList(svc.Stock, logg))
			r.Post("/perfume-stock/maturation", controllers.MaturationCreate(svc.Stock, logg))
			r.Post("/perfume-stock/maturation/{id}/complete", controllers.MaturationComplete(svc.Stock, logg))
			r.Delete("/perfume-stock/maturation/{id}", controllers.MaturationDelete(svc.Stock, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin(logg))

				r.Post("/brands", controllers.BrandCreate(svc.Brands, logg))
				r.Post("/formulas", controllers.FormulaCreate(svc.Formulas, logg))
				r.Get("/formulas/pending", controllers.FormulaPending(svc.Formulas, logg))
				r.Post("/formulas/approve/{id}", controllers.FormulaApprove(svc.Formulas, logg))
				r.Post("/formulas/reject/{id}", controllers.FormulaReject(svc.Formulas, logg))
				r.Delete("/formulas/{id}", controllers.FormulaDelete(svc.Formulas, logg))
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.APIKey(cfg.Automation.APIKey, logg), idempotent)

			r.Get("/perfume-stock/automation", controllers.StockList(svc.Stock, logg))
			r.Post("/perfume-stock/automation/adjust", controllers.StockAutomationAdjust(svc.Stock, logg))
		})
	})

	return r
}
