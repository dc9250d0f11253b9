package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gastronomia-be/internal/catalog"
	"gastronomia-be/internal/config"
	"gastronomia-be/internal/configurator"
	"gastronomia-be/internal/db"
	"gastronomia-be/internal/logger"
	"gastronomia-be/internal/middleware"
	"gastronomia-be/internal/orderline"
	"gastronomia-be/internal/transport"

	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

// Overridden in tests.
var (
	initDBFunc      = db.InitDB
	startServerFunc = serve
)

func main() {
	if err := run(); err != nil {
		logger.L().Fatal("server stopped", zap.Error(err))
	}
}

func run() error {
	cfg := config.LoadConfig()
	logger.Init(cfg.AppEnv)
	defer logger.Sync()

	database := initDBFunc(cfg)
	defer database.Close()

	a := newServer(cfg, database)
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.L().Info("configuration server listening",
		zap.String("addr", srv.Addr),
		zap.String("env", cfg.AppEnv),
		zap.Duration("session_ttl", cfg.SessionTTL),
	)
	return startServerFunc(ctx, srv)
}

// serve blocks until ctx is cancelled, then drains in-flight requests.
func serve(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.L().Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

type app struct {
	handler http.Handler
	cache   *catalog.Cache
	limiter *middleware.RateLimiter
}

// Close stops background work and waits for pending catalog fetches.
func (a *app) Close() {
	a.limiter.Close()
	a.cache.Wait()
}

func newServer(cfg *config.Config, database *sql.DB) *app {
	cache := catalog.NewCache(catalog.NewRepository(database), catalog.Options{
		FetchTimeout: cfg.CatalogFetchTimeout,
	})

	orders := orderline.NewService(orderline.NewRepository(database))
	store := configurator.NewStore(cfg.SessionTTL)
	svc := configurator.NewService(cache, store, orders)

	limiter := middleware.NewRateLimiter(cfg.InternalServiceKey)
	router := setupRouter(transport.NewHandler(svc, cache))

	handler := middleware.Chain(router,
		logger.RequestIDMiddleware,
		middleware.LoggingMiddleware,
		middleware.CORS(cfg.CORSOrigin),
		middleware.AuthMiddleware([]byte(cfg.JWTSecret)),
		limiter.Middleware,
	)

	return &app{handler: handler, cache: cache, limiter: limiter}
}

func setupRouter(h *transport.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	h.Register(mux)
	return mux
}
