package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	apphttp "gitlab.com/trektoo/api/trektoo-client-core/internal/adapters/http"
	"gitlab.com/trektoo/api/trektoo-client-core/internal/adapters/middleware"
	"gitlab.com/trektoo/api/trektoo-client-core/pkg/safego"
)

// NOTE: The App struct and NewApp function are defined in providers.go for Wire.
// This file only holds methods on App.

// wrap applies the middleware every route shares.
func (a *App) wrap(h http.Handler) http.Handler {
	return middleware.RequestIDMiddleware(
		middleware.ClientContextMiddleware(
			middleware.RecoverMiddleware(a.errorService)(h),
		),
	)
}

// RegisterRoutes mounts every HTTP endpoint on the app's mux.
func (a *App) RegisterRoutes() {
	a.httpServeMux.Handle("GET /health", a.wrap(apphttp.HealthHandler()))
	a.httpServeMux.Handle("GET /ready", a.wrap(apphttp.ReadyHandler(a.secureStorage, a.logger)))
	a.httpServeMux.Handle("GET /metrics", a.wrap(promhttp.Handler()))
	a.httpServeMux.Handle("POST /client-logs", a.wrap(apphttp.ClientLogsHandler(a.logger)))

	if a.adminAuthMiddleware != nil {
		a.httpServeMux.Handle("GET /storage/stats", a.wrap(a.adminAuthMiddleware(apphttp.StorageStatsHandler(a.secureStorage, a.logger))))
		a.httpServeMux.Handle("POST /storage/cleanup", a.wrap(a.adminAuthMiddleware(apphttp.StorageCleanupHandler(a.secureStorage, a.logger))))
	}
}

// Run starts the application, listens for HTTP requests, and handles graceful shutdown.
func (a *App) Run(ctx context.Context) error {
	appCfg := a.configProvider.Get()
	version := "unknown"
	serviceName := "trektoo-client-core"
	if appCfg.App.Version != "" {
		version = appCfg.App.Version
	}
	if appCfg.App.ServiceName != "" {
		serviceName = appCfg.App.ServiceName
	}
	a.logger.Info(ctx, "Starting application", "service_name", serviceName, "version", version, "storage_backend", appCfg.Storage.Backend)

	if appCfg.Storage.CleanupOnStart {
		removed, err := a.secureStorage.Cleanup(ctx)
		if err != nil {
			a.logger.Warn(ctx, "Startup storage cleanup failed", "error", err.Error())
		} else {
			a.logger.Info(ctx, "Startup storage cleanup finished", "removed", removed)
		}
	}

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	a.errorService.Start(runCtx)

	a.RegisterRoutes()

	safego.Execute(ctx, a.logger, "SignalListenerAndGracefulShutdown", func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case sig := <-quit:
			a.logger.Info(context.Background(), "Shutdown signal received, initiating graceful shutdown...", "signal", sig.String())
		case <-ctx.Done():
			a.logger.Info(context.Background(), "Application context cancelled, initiating graceful shutdown...")
		}

		shutdownTimeout := 30 * time.Second
		if s := a.configProvider.Get().App.ShutdownTimeoutSeconds; s > 0 {
			shutdownTimeout = time.Duration(s) * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
			a.logger.Error(context.Background(), "HTTP server graceful shutdown failed", "error", err.Error())
		}
		a.logger.Info(context.Background(), "HTTP server shut down.")
	})

	a.logger.Info(ctx, fmt.Sprintf("HTTP server listening on port %d", appCfg.Server.HTTPPort))
	if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		a.logger.Error(ctx, "HTTP server ListenAndServe error", "error", err.Error())
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	a.logger.Info(ctx, "Application shut down gracefully or server closed.")
	return nil
}
