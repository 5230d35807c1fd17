// Package app assembles the preprocessing service: configuration, logging,
// metrics, tracing, the session registry, the websocket hub, and the HTTP
// router, with a graceful lifecycle.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/gidavehub/mlstudio-sub000/internal/config"
	"github.com/gidavehub/mlstudio-sub000/internal/infrastructure"
	"github.com/gidavehub/mlstudio-sub000/internal/middleware"
	"github.com/gidavehub/mlstudio-sub000/internal/services"
	handlers "github.com/gidavehub/mlstudio-sub000/internal/transport/http"
	ws "github.com/gidavehub/mlstudio-sub000/internal/websocket"
)

// Version is the service version reported by the health endpoint.
const Version = "1.2.0"

// Application is the assembled service.
type Application struct {
	Config   *config.Config
	Logger   *slog.Logger
	Router   *chi.Mux
	Server   *http.Server
	Sessions *services.SessionService
	Hub      *ws.Hub

	shutdownTracing func(context.Context) error
}

// New builds the application from configuration.
func New() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Info("application starting",
		slog.String("version", Version),
		slog.Int("port", cfg.Server.Port))

	tracer, shutdownTracing, err := infrastructure.InitTracing(cfg.Tracing, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	metrics := infrastructure.NewMetrics()
	hub := ws.NewHub(logger)
	sessions := services.NewSessionService(logger, cfg.Sessions, metrics)
	preprocess := services.NewPreprocessService(logger, sessions, metrics, tracer, hub)

	app := &Application{
		Config:          cfg,
		Logger:          logger,
		Sessions:        sessions,
		Hub:             hub,
		shutdownTracing: shutdownTracing,
	}
	app.Router = app.buildRouter(metrics, preprocess)
	app.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      app.Router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return app, nil
}

func (a *Application) buildRouter(metrics *infrastructure.Metrics, preprocess *services.PreprocessService) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.StructuredLogger(a.Logger))
	r.Use(middleware.Recoverer(a.Logger))
	r.Use(middleware.Metrics(metrics))
	if a.Config.Security.RateLimit.Enabled {
		r.Use(middleware.RateLimit(a.Config.Security.RateLimit.RPS, a.Config.Security.RateLimit.Burst))
	}

	sessionHandler := handlers.NewSessionHandler(a.Sessions, preprocess, a.Logger, a.Config.Dataset.MaxUploadBytes)
	healthHandler := handlers.NewHealthHandler(Version)

	r.Route("/api", func(r chi.Router) {
		r.Mount("/sessions", sessionHandler.Routes())
	})
	r.Get("/ws", a.Hub.Serve)
	r.Get("/healthz", healthHandler.Healthz)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	return r
}

// Run serves HTTP and the background workers until the context is canceled,
// then shuts everything down gracefully.
func (a *Application) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.Info("http server listening", slog.String("addr", a.Server.Addr))
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		a.Hub.Run(ctx)
		return nil
	})

	g.Go(func() error {
		a.Sessions.Janitor(ctx)
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
		defer cancel()
		a.Logger.Info("shutting down")
		if err := a.Server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		if a.shutdownTracing != nil {
			if err := a.shutdownTracing(shutdownCtx); err != nil {
				a.Logger.Warn("tracer shutdown failed", slog.Any("error", err))
			}
		}
		return nil
	})

	err := g.Wait()
	a.Logger.Info("stopped", slog.Duration("uptime", time.Since(startTime)))
	return err
}

var startTime = time.Now()
