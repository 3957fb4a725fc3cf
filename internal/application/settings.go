package application

import (
	"context"
	"fmt"
	"time"

	"gitlab.com/trektoo/api/trektoo-client-core/internal/adapters/config"
	"gitlab.com/trektoo/api/trektoo-client-core/internal/domain"
	"gitlab.com/trektoo/api/trektoo-client-core/pkg/crypto"
)

// DefaultEncryptionKey is used by the XOR encoder when storage.encryption_key is unset.
const DefaultEncryptionKey = "trektoo-default-storage-key"

// NewStorageEncoder builds the value encoder selected by storage.encoder.
func NewStorageEncoder(cfg config.StorageConfig, logger domain.Logger) (domain.Encoder, error) {
	switch cfg.Encoder {
	case "", "xor":
		key := cfg.EncryptionKey
		if key == "" {
			logger.Warn(context.Background(), "storage.encryption_key is not set, using the built-in default key")
			key = DefaultEncryptionKey
		}
		return crypto.NewXORCipher(key)
	case "aesgcm":
		enc, err := crypto.NewAESGCMEncoder(cfg.AESKeyHex)
		if err != nil {
			return nil, fmt.Errorf("storage.aes_key_hex: %w", err)
		}
		return enc, nil
	default:
		return nil, fmt.Errorf("unknown storage encoder %q", cfg.Encoder)
	}
}

// ErrorServiceConfigFrom maps application config onto ErrorServiceConfig.
// retry.max_retries of 0 disables retries.
func ErrorServiceConfigFrom(cfg *config.Config) ErrorServiceConfig {
	maxRetries := cfg.Retry.MaxRetries
	if maxRetries == 0 {
		maxRetries = NoRetries
	}
	return ErrorServiceConfig{
		UserAgent: cfg.RemoteLog.UserAgent,
		QueueSize: cfg.RemoteLog.QueueSize,
		Retry: RetryOptions{
			MaxRetries: maxRetries,
			BaseDelay:  time.Duration(cfg.Retry.BaseDelayMs) * time.Millisecond,
			Multiplier: cfg.Retry.Multiplier,
		},
	}
}
