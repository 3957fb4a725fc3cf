package config

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"sync"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const envPrefix = "TREKTOO"

// ServerConfig holds server-related configurations.
// Note: Fields should be exported (start with uppercase) to be unmarshalled by Viper.
type ServerConfig struct {
	HTTPPort    int    `mapstructure:"http_port"`
	AdminAPIKey string `mapstructure:"admin_api_key"` // Guards /storage/* endpoints, expected from ENV
}

// LogConfig holds logging-related configurations.
type LogConfig struct {
	Level          string `mapstructure:"level"`
	ConsoleEnabled bool   `mapstructure:"console_enabled"`
}

// RemoteLogConfig controls shipping of error envelopes to a remote collector.
type RemoteLogConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Endpoint    string `mapstructure:"endpoint"`
	Transport   string `mapstructure:"transport"` // "http" or "nats"
	NATSSubject string `mapstructure:"nats_subject"`
	TimeoutMs   int    `mapstructure:"timeout_ms"`
	QueueSize   int    `mapstructure:"queue_size"`
	UserAgent   string `mapstructure:"user_agent"`
}

// StorageConfig selects and configures the SecureStorage backend.
type StorageConfig struct {
	Backend        string `mapstructure:"backend"` // "memory", "redis" or "sqlite"
	Encoder        string `mapstructure:"encoder"` // "xor" or "aesgcm"
	EncryptionKey  string `mapstructure:"encryption_key"`
	AESKeyHex      string `mapstructure:"aes_key_hex"`
	SQLitePath     string `mapstructure:"sqlite_path"`
	CleanupOnStart bool   `mapstructure:"cleanup_on_start"`
}

// RedisConfig holds Redis-related configurations.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"` // Optional
	DB       int    `mapstructure:"db"`       // Optional
}

// NATSConfig holds NATS-related configurations.
type NATSConfig struct {
	URL string `mapstructure:"url"`
}

// RetryConfig holds the default backoff policy for retried operations.
type RetryConfig struct {
	MaxRetries  int     `mapstructure:"max_retries"`
	BaseDelayMs int     `mapstructure:"base_delay_ms"`
	Multiplier  float64 `mapstructure:"multiplier"`
}

// AppConfig holds application-specific configurations.
type AppConfig struct {
	ServiceName            string `mapstructure:"service_name"`
	Version                string `mapstructure:"version"`
	ShutdownTimeoutSeconds int    `mapstructure:"shutdown_timeout_seconds"`
}

// Config holds all configuration for the application.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	RemoteLog RemoteLogConfig `mapstructure:"remote_log"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Redis     RedisConfig     `mapstructure:"redis"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Retry     RetryConfig     `mapstructure:"retry"`
	App       AppConfig       `mapstructure:"app"`
}

// Provider defines an interface for accessing application configuration.
// This allows for easy mocking in tests and decouples the app from Viper.
type Provider interface {
	Get() *Config
}

// StaticProvider serves a fixed Config. Used by tests and the CLI.
type StaticProvider struct {
	Config *Config
}

// Get returns the wrapped configuration.
func (p StaticProvider) Get() *Config {
	return p.Config
}

// SetDefaults registers the defaults every deployment starts from.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.admin_api_key", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.console_enabled", true)
	v.SetDefault("remote_log.enabled", false)
	v.SetDefault("remote_log.endpoint", "")
	v.SetDefault("remote_log.transport", "http")
	v.SetDefault("remote_log.nats_subject", "trektoo.client.errors")
	v.SetDefault("remote_log.timeout_ms", 5000)
	v.SetDefault("remote_log.queue_size", 256)
	v.SetDefault("remote_log.user_agent", "trektoo-client-core")
	v.SetDefault("storage.backend", "memory")
	v.SetDefault("storage.encoder", "xor")
	v.SetDefault("storage.encryption_key", "") // Unset keys fall back to a built-in default with a warning
	v.SetDefault("storage.aes_key_hex", "")
	v.SetDefault("storage.sqlite_path", "trektoo-storage.db")
	v.SetDefault("storage.cleanup_on_start", true)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("retry.max_retries", 3)
	v.SetDefault("retry.base_delay_ms", 1000)
	v.SetDefault("retry.multiplier", 2.0)
	v.SetDefault("app.service_name", "trektoo-client-core")
	v.SetDefault("app.version", "dev")
	v.SetDefault("app.shutdown_timeout_seconds", 30)
}

// newViper returns a Viper instance wired for the YAML file and TREKTOO_* env vars.
func newViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	v.SetConfigName(getEnv("VIPER_CONFIG_NAME", "config"))
	v.SetConfigType("yaml")
	v.AddConfigPath(getEnv("VIPER_CONFIG_PATH", "/app/config"))
	v.AddConfigPath(".")

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_")) // storage.encryption_key becomes TREKTOO_STORAGE_ENCRYPTION_KEY
	return v
}

// Load reads the configuration once without installing reload hooks.
func Load() (*Config, error) {
	v := newViper()
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// viperProvider implements the Provider interface using Viper.
type viperProvider struct {
	mu     sync.RWMutex
	config *Config
	logger *zap.Logger // Using zap.Logger directly for config internal logging, not domain.Logger to avoid circular deps
}

// NewViperProvider creates and initializes a new configuration provider using Viper.
// It loads configuration from file and environment variables, and sets up hot-reloading
// on SIGHUP and file change. appCtx bounds the lifetime of the reload goroutine.
func NewViperProvider(appCtx context.Context, logger *zap.Logger) (Provider, error) {
	v := newViper()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logger.Warn("Config file not found; relying on defaults and environment variables", zap.Error(err))
		} else {
			logger.Error("Failed to read config file", zap.Error(err))
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		logger.Error("Failed to unmarshal config", zap.Error(err))
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	p := &viperProvider{
		config: cfg,
		logger: logger,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGHUP)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("Panic recovered in SIGHUP handler goroutine",
					zap.String("goroutine_name", "SIGHUPConfigReloader"),
					zap.Any("panic_info", r),
					zap.String("stacktrace", string(debug.Stack())),
				)
			}
		}()
		defer signal.Stop(sigChan)
		for {
			select {
			case sig := <-sigChan:
				p.logger.Info("SIGHUP received, attempting to reload configuration...", zap.String("signal", sig.String()))
				if err := v.ReadInConfig(); err != nil {
					p.logger.Error("Failed to re-read config file on SIGHUP", zap.Error(err))
					continue
				}
				p.reload(v, "SIGHUP")
			case <-appCtx.Done():
				p.logger.Info("SIGHUPConfigReloader goroutine shutting down due to context cancellation.")
				return
			}
		}
	}()

	if v.ConfigFileUsed() != "" {
		v.OnConfigChange(func(e fsnotify.Event) {
			defer func() {
				if r := recover(); r != nil {
					p.logger.Error("Panic recovered in OnConfigChange callback",
						zap.String("event_name", e.Name),
						zap.String("event_op", e.Op.String()),
						zap.Any("panic_info", r),
						zap.String("stacktrace", string(debug.Stack())),
					)
				}
			}()
			p.logger.Info("Config file changed", zap.String("name", e.Name), zap.String("op", e.Op.String()))
			p.reload(v, "file change event")
		})
		v.WatchConfig()
	}

	p.logger.Info("Configuration loaded successfully", zap.String("config_file_used", v.ConfigFileUsed()))

	return p, nil
}

func (p *viperProvider) reload(v *viper.Viper, trigger string) {
	newCfg := &Config{}
	if err := v.Unmarshal(newCfg); err != nil {
		p.logger.Error("Failed to unmarshal re-read config", zap.String("trigger", trigger), zap.Error(err))
		return
	}
	p.mu.Lock()
	p.config = newCfg
	p.mu.Unlock()
	p.logger.Info("Configuration reloaded successfully", zap.String("trigger", trigger))
}

// Get returns the current configuration.
func (p *viperProvider) Get() *Config {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.config
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
