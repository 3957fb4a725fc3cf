package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"gitlab.com/trektoo/api/trektoo-client-core/internal/adapters/config"
	apphttp "gitlab.com/trektoo/api/trektoo-client-core/internal/adapters/http"
	"gitlab.com/trektoo/api/trektoo-client-core/internal/adapters/logger"
	"gitlab.com/trektoo/api/trektoo-client-core/internal/adapters/memory"
	"gitlab.com/trektoo/api/trektoo-client-core/internal/adapters/middleware"
	appnats "gitlab.com/trektoo/api/trektoo-client-core/internal/adapters/nats"
	appredis "gitlab.com/trektoo/api/trektoo-client-core/internal/adapters/redis"
	"gitlab.com/trektoo/api/trektoo-client-core/internal/adapters/sqlite"
	"gitlab.com/trektoo/api/trektoo-client-core/internal/application"
	"gitlab.com/trektoo/api/trektoo-client-core/internal/domain"
)

// AdminAuthMiddleware is a distinct type so Wire can tell it apart from other middleware.
type AdminAuthMiddleware func(http.Handler) http.Handler

// InitialZapLoggerProvider provides a basic *zap.Logger instance, primarily for config initialization.
// It returns the logger, a cleanup function (for syncing), and an error if creation fails.
func InitialZapLoggerProvider() (*zap.Logger, func(), error) {
	logger, err := zap.NewProduction()
	if err != nil {
		logger, err = zap.NewDevelopment()
		if err != nil {
			logger = zap.NewExample()
			fmt.Fprintf(os.Stderr, "Failed to create initial zap logger (production and development failed, falling back to example): %v\n", err)
		}
	}

	cleanup := func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "Failed to sync initial zap logger: %v\n", syncErr)
		}
	}
	return logger, cleanup, nil
}

// App struct is defined here for Wire to use.
type App struct {
	configProvider      config.Provider
	logger              domain.Logger
	httpServeMux        *http.ServeMux
	httpServer          *http.Server
	secureStorage       *application.SecureStorage
	errorService        *application.ErrorService
	adminAuthMiddleware AdminAuthMiddleware
}

// NewApp is the constructor for App, also for Wire.
func NewApp(
	cfgProvider config.Provider,
	appLogger domain.Logger,
	mux *http.ServeMux,
	server *http.Server,
	secureStorage *application.SecureStorage,
	errorService *application.ErrorService,
	adminAuth AdminAuthMiddleware,
) (*App, func(), error) {
	app := &App{
		configProvider:      cfgProvider,
		logger:              appLogger,
		httpServeMux:        mux,
		httpServer:          server,
		secureStorage:       secureStorage,
		errorService:        errorService,
		adminAuthMiddleware: adminAuth,
	}
	cleanup := func() {
		app.logger.Info(context.Background(), "Running app cleanup...")
	}
	return app, cleanup, nil
}

// ConfigProvider provides the application configuration.
// appCtx bounds the lifetime of the hot-reload goroutines.
func ConfigProvider(appCtx context.Context, logger *zap.Logger) (config.Provider, error) {
	return config.NewViperProvider(appCtx, logger)
}

// LoggerProvider provides the application logger.
func LoggerProvider(cfgProvider config.Provider) (domain.Logger, error) {
	appCfg := cfgProvider.Get()
	return logger.NewZapAdapter(cfgProvider, appCfg.App.ServiceName)
}

// HTTPServeMuxProvider provides the main HTTP multiplexer.
func HTTPServeMuxProvider() *http.ServeMux {
	return http.NewServeMux()
}

// HTTPGracefulServerProvider provides a new HTTP server configured for graceful shutdown.
func HTTPGracefulServerProvider(cfgProvider config.Provider, mux *http.ServeMux) *http.Server {
	appCfg := cfgProvider.Get()
	return &http.Server{
		Addr:         fmt.Sprintf(":%d", appCfg.Server.HTTPPort),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// RedisClientProvider connects to Redis and returns the client with a cleanup function.
func RedisClientProvider(ctx context.Context, cfg config.RedisConfig, appLogger domain.Logger) (*redis.Client, func(), error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		appLogger.Error(ctx, "Failed to connect to Redis", "error", err.Error(), "address", cfg.Address)
		client.Close()
		return nil, nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}
	cleanup := func() {
		client.Close()
		appLogger.Info(context.Background(), "Redis connection closed")
	}
	appLogger.Info(ctx, "Successfully connected to Redis", "address", cfg.Address)
	return client, cleanup, nil
}

// SQLiteProvider opens the SQLite database and applies migrations.
func SQLiteProvider(ctx context.Context, path string, appLogger domain.Logger) (*sqlite.DB, func(), error) {
	db, err := sqlite.NewDB(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open sqlite at %s: %w", path, err)
	}
	if err := sqlite.RunMigrations(db.Writer); err != nil {
		db.Close()
		return nil, nil, err
	}
	cleanup := func() {
		if err := db.Close(); err != nil {
			appLogger.Warn(context.Background(), "Failed to close SQLite database", "error", err.Error())
			return
		}
		appLogger.Info(context.Background(), "SQLite database closed")
	}
	appLogger.Info(ctx, "SQLite storage ready", "path", path)
	return db, cleanup, nil
}

// OpenKeyValueStore opens the backend selected by storage.backend.
func OpenKeyValueStore(ctx context.Context, cfg *config.Config, appLogger domain.Logger) (domain.KeyValueStore, func(), error) {
	switch cfg.Storage.Backend {
	case "", "memory":
		appLogger.Info(ctx, "Using in-memory storage backend")
		return memory.NewKVStore(), func() {}, nil
	case "redis":
		client, cleanup, err := RedisClientProvider(ctx, cfg.Redis, appLogger)
		if err != nil {
			return nil, nil, err
		}
		return appredis.NewKVStore(client, appLogger), cleanup, nil
	case "sqlite":
		db, cleanup, err := SQLiteProvider(ctx, cfg.Storage.SQLitePath, appLogger)
		if err != nil {
			return nil, nil, err
		}
		return sqlite.NewKVStore(db), cleanup, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// KeyValueStoreProvider provides the storage backend.
func KeyValueStoreProvider(ctx context.Context, cfgProvider config.Provider, appLogger domain.Logger) (domain.KeyValueStore, func(), error) {
	return OpenKeyValueStore(ctx, cfgProvider.Get(), appLogger)
}

// EncoderProvider provides the value encoder used by SecureStorage.
func EncoderProvider(cfgProvider config.Provider, appLogger domain.Logger) (domain.Encoder, error) {
	return application.NewStorageEncoder(cfgProvider.Get().Storage, appLogger)
}

// SecureStorageProvider provides SecureStorage.
func SecureStorageProvider(store domain.KeyValueStore, encoder domain.Encoder, appLogger domain.Logger) *application.SecureStorage {
	return application.NewSecureStorage(store, encoder, appLogger)
}

// LogSinkProvider provides the remote log sink, or nil when remote logging is off.
func LogSinkProvider(ctx context.Context, cfgProvider config.Provider, appLogger domain.Logger) (domain.LogSink, func(), error) {
	appCfg := cfgProvider.Get()
	rl := appCfg.RemoteLog
	if !rl.Enabled {
		return nil, func() {}, nil
	}

	switch rl.Transport {
	case "nats":
		if rl.NATSSubject == "" {
			appLogger.Warn(ctx, "Remote logging enabled without remote_log.nats_subject, remote logging disabled")
			return nil, func() {}, nil
		}
		nc, cleanup, err := appnats.Connect(ctx, appCfg.NATS.URL, appCfg.App.ServiceName+"-remote-log", appLogger)
		if err != nil {
			return nil, nil, err
		}
		return appnats.NewLogSink(nc, rl.NATSSubject), cleanup, nil
	case "", "http":
		if rl.Endpoint == "" {
			appLogger.Warn(ctx, "Remote logging enabled without remote_log.endpoint, remote logging disabled")
			return nil, func() {}, nil
		}
		timeout := time.Duration(rl.TimeoutMs) * time.Millisecond
		return apphttp.NewLogSink(rl.Endpoint, timeout, rl.UserAgent), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown remote_log.transport %q", rl.Transport)
	}
}

// ErrorServiceProvider provides the ErrorService.
func ErrorServiceProvider(cfgProvider config.Provider, appLogger domain.Logger, sink domain.LogSink) *application.ErrorService {
	return application.NewErrorService(appLogger, sink, application.ErrorServiceConfigFrom(cfgProvider.Get()))
}

// AdminAuthMiddlewareProvider provides the middleware guarding operator endpoints.
func AdminAuthMiddlewareProvider(cfgProvider config.Provider, appLogger domain.Logger) AdminAuthMiddleware {
	return middleware.AdminAPIKeyAuthMiddleware(cfgProvider, appLogger)
}

// ProviderSet is the Wire provider set for the entire application.
var ProviderSet = wire.NewSet(
	InitialZapLoggerProvider,
	ConfigProvider,
	LoggerProvider,
	HTTPServeMuxProvider,
	HTTPGracefulServerProvider,

	// Storage
	KeyValueStoreProvider,
	EncoderProvider,
	SecureStorageProvider,

	// Error handling
	LogSinkProvider,
	ErrorServiceProvider,

	AdminAuthMiddlewareProvider,
	NewApp,
)
