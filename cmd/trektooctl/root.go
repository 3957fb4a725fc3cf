package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"gitlab.com/trektoo/api/trektoo-client-core/internal/adapters/config"
	"gitlab.com/trektoo/api/trektoo-client-core/internal/adapters/logger"
	"gitlab.com/trektoo/api/trektoo-client-core/internal/application"
	"gitlab.com/trektoo/api/trektoo-client-core/internal/bootstrap"
)

var rootCmd = &cobra.Command{
	Use:   "trektooctl",
	Short: "Operate on trektoo secure storage",
	Long: `trektooctl opens the storage backend configured for trektoo-core
(config file and TREKTOO_* environment variables) and runs secure storage
operations against it.`,
	SilenceUsage: true,
}

// openStorage builds the SecureStorage for a command. The returned func releases
// the backend.
var openStorage = func(ctx context.Context) (*application.SecureStorage, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	// Only warnings and errors reach the terminal.
	cfg.Log.Level = "warn"
	appLogger, err := logger.NewZapAdapter(config.StaticProvider{Config: cfg}, "trektooctl")
	if err != nil {
		appLogger = logger.NewFromZap(zap.NewNop())
	}

	store, cleanup, err := bootstrap.OpenKeyValueStore(ctx, cfg, appLogger)
	if err != nil {
		return nil, nil, err
	}
	enc, err := application.NewStorageEncoder(cfg.Storage, appLogger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return application.NewSecureStorage(store, enc, appLogger), cleanup, nil
}

// withStorage runs fn against an opened SecureStorage.
func withStorage(cmd *cobra.Command, fn func(ctx context.Context, s *application.SecureStorage) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	s, cleanup, err := openStorage(ctx)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer cleanup()
	return fn(ctx, s)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func main() {
	Execute()
}
