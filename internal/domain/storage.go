package domain

import (
	"context"
	"errors"
)

// ErrKeyNotFound is returned by a KeyValueStore when the key does not exist.
var ErrKeyNotFound = errors.New("key not found")

// KeyValueStore is the persistent string key/value store that SecureStorage sits on.
// Implementations must be safe for concurrent use.
type KeyValueStore interface {
	// Get returns the raw value for key, or ErrKeyNotFound.
	Get(ctx context.Context, key string) (string, error)
	// Set writes value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error
	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
	// Keys enumerates every key currently held by the store.
	Keys(ctx context.Context) ([]string, error)
	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error
}

// StoredRecord is the envelope persisted for every SecureStorage entry.
// Timestamps are epoch milliseconds.
type StoredRecord struct {
	Value     string `json:"value"`
	Timestamp int64  `json:"timestamp"`
	ExpiresAt *int64 `json:"expiresAt,omitempty"`
	Version   string `json:"version"`
}

// Expired reports whether the record's expiry lies strictly before nowMs.
func (r StoredRecord) Expired(nowMs int64) bool {
	return r.ExpiresAt != nil && nowMs > *r.ExpiresAt
}

// StorageStats summarises the reserved namespace of a store.
type StorageStats struct {
	Total     int `json:"total"`
	Valid     int `json:"valid"`
	Expired   int `json:"expired"`
	SizeBytes int `json:"size_bytes"`
}

// Encoder turns serialized values into their at-rest form and back.
// The default XOR implementation is obfuscation only; AES-GCM is available when a
// real confidentiality boundary is needed.
type Encoder interface {
	Encode(plaintext string) (string, error)
	Decode(encoded string) (string, error)
}
