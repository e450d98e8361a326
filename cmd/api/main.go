package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/scentlab/perfumery-backend/api/middleware"
	"github.com/scentlab/perfumery-backend/api/responses"
	"github.com/scentlab/perfumery-backend/api/routes"
	"github.com/scentlab/perfumery-backend/internal/auth"
	"github.com/scentlab/perfumery-backend/internal/brands"
	"github.com/scentlab/perfumery-backend/internal/favorites"
	"github.com/scentlab/perfumery-backend/internal/formulas"
	"github.com/scentlab/perfumery-backend/internal/perfumes"
	"github.com/scentlab/perfumery-backend/internal/ratings"
	"github.com/scentlab/perfumery-backend/internal/stock"
	"github.com/scentlab/perfumery-backend/internal/users"
	"github.com/scentlab/perfumery-backend/pkg/auth/session"
	"github.com/scentlab/perfumery-backend/pkg/config"
	"github.com/scentlab/perfumery-backend/pkg/db"
	"github.com/scentlab/perfumery-backend/pkg/logger"
	"github.com/scentlab/perfumery-backend/pkg/metrics"
	"github.com/scentlab/perfumery-backend/pkg/migrate"
	"github.com/scentlab/perfumery-backend/pkg/redis"
)

const (
	shutdownTimeout     = 15 * time.Second
	rateLimiterSweepGap = time.Minute
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(context.Background(), logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Console:     logger.IsConsoleFormat(cfg.App.LogFormat),
	})
	responses.SetDebug(!cfg.App.IsProd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := openDatabase(ctx, cfg, logg)
	requireResource(ctx, logg, "database", err)

	err = migrate.MaybeRunDev(ctx, cfg, logg, dbClient)
	requireResource(ctx, logg, "dev migrations", err)

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	requireResource(ctx, logg, "session manager", err)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	domainMetrics := metrics.NewDomainMetrics(registry)

	svc, err := buildServices(cfg, logg, dbClient, sessionManager, domainMetrics)
	requireResource(ctx, logg, "services", err)

	limiter := middleware.NewRateLimiter(cfg.RateLimit, logg)
	go limiter.RunSweeper(ctx, rateLimiterSweepGap)

	handler := routes.NewRouter(cfg, logg, routes.Infra{
		DB:          dbClient,
		Redis:       redisClient,
		Sessions:    sessionManager,
		RateLimiter: limiter,
		HTTPMetrics: metrics.NewHTTPMetrics(registry),
		Gatherer:    registry,
	}, svc)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":     cfg.App.Env,
		"addr":    addr,
		"dialect": dbClient.Dialect(),
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(logCtx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		logg.Info(logCtx, "shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			logg.Error(logCtx, "api server stopped unexpectedly", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs error
	errs = multierr.Append(errs, server.Shutdown(shutdownCtx))
	errs = multierr.Append(errs, redisClient.Close())
	errs = multierr.Append(errs, dbClient.Close())
	if errs != nil {
		logg.Error(logCtx, "shutdown finished with errors", errs)
		os.Exit(1)
	}
	logg.Info(logCtx, "api server stopped")
}

func openDatabase(ctx context.Context, cfg *config.Config, logg *logger.Logger) (*db.Client, error) {
	if cfg.FeatureFlags.UseSQLite {
		return db.NewSQLite(ctx, cfg.DB.SQLitePath, logg)
	}
	return db.New(ctx, cfg.DB, logg)
}

func buildServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, sessions *session.Manager, domainMetrics *metrics.DomainMetrics) (routes.Services, error) {
	var (
		svc  routes.Services
		err  error
		errs error
	)

	svc.Auth, err = auth.NewService(auth.ServiceParams{
		UserRepo:       users.NewRepository(dbClient.DB()),
		SessionManager: sessions,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	errs = multierr.Append(errs, err)

	svc.Register, err = auth.NewRegisterService(auth.RegisterServiceParams{
		TxRunner:       dbClient,
		PasswordConfig: cfg.Password,
	})
	errs = multierr.Append(errs, err)

	svc.Brands, err = brands.NewService(brands.NewRepository(dbClient.DB()))
	errs = multierr.Append(errs, err)

	svc.Perfumes, err = perfumes.NewService(perfumes.ServiceParams{DB: dbClient})
	errs = multierr.Append(errs, err)

	svc.Formulas, err = formulas.NewService(formulas.ServiceParams{DB: dbClient, Metrics: domainMetrics})
	errs = multierr.Append(errs, err)

	svc.Ratings, err = ratings.NewService(ratings.NewRepository(dbClient.DB()))
	errs = multierr.Append(errs, err)

	svc.Favorites, err = favorites.NewService(dbClient)
	errs = multierr.Append(errs, err)

	svc.Stock, err = stock.NewService(stock.ServiceParams{DB: dbClient, Metrics: domainMetrics, Logger: logg})
	errs = multierr.Append(errs, err)

	return svc, errs
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, "resource not working: "+resource, err)
	os.Exit(1)
}
