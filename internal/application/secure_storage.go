package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"gitlab.com/trektoo/api/trektoo-client-core/internal/adapters/metrics"
	"gitlab.com/trektoo/api/trektoo-client-core/internal/domain"
	"gitlab.com/trektoo/api/trektoo-client-core/pkg/storagekeys"
)

// StorageSchemaVersion tags every record written by SecureStorage. Records carrying any
// other version are discarded on read.
const StorageSchemaVersion = "1.0"

// NoExpiry is returned by GetTTL for records written without an expiry.
const NoExpiry = time.Duration(math.MaxInt64)

var (
	ErrValidationFailed = errors.New("value failed validation")
	ErrStoreUnavailable = errors.New("storage backend unavailable")
	ErrStoreWriteFailed = errors.New("storage write failed")
	ErrNotSerializable  = errors.New("value is not JSON serializable")
)

// purge reasons, also used as metric labels
const (
	purgeCorrupt = "corrupt"
	purgeVersion = "version"
	purgeExpired = "expired"
)

// SetOption customises a single SetItem call.
type SetOption func(*setOptions)

type setOptions struct {
	expiresAt *time.Time
}

// WithExpiresAt makes the record invalid after t.
func WithExpiresAt(t time.Time) SetOption {
	return func(o *setOptions) {
		o.expiresAt = &t
	}
}

// SecureStorage is a namespaced, obfuscated, expiry-aware facade over a KeyValueStore.
// Caller keys are stored under the "trektoo_" prefix. Expected failures (missing,
// corrupt, expired or foreign-version records) never surface as errors on read; they
// resolve to the caller's default and the offending record is purged.
//
// A SecureStorage built with a nil store is a no-op: writes report ErrStoreUnavailable
// and reads return defaults.
type SecureStorage struct {
	store   domain.KeyValueStore
	encoder domain.Encoder
	logger  domain.Logger
	now     func() time.Time
}

// NewSecureStorage creates a SecureStorage. store may be nil.
func NewSecureStorage(store domain.KeyValueStore, encoder domain.Encoder, logger domain.Logger) *SecureStorage {
	if encoder == nil {
		panic("encoder is nil in NewSecureStorage")
	}
	if logger == nil {
		panic("logger is nil in NewSecureStorage")
	}
	return &SecureStorage{
		store:   store,
		encoder: encoder,
		logger:  logger,
		now:     time.Now,
	}
}

// Available reports whether a backing store is attached.
func (s *SecureStorage) Available() bool {
	return s.store != nil
}

// Ping checks the backing store.
func (s *SecureStorage) Ping(ctx context.Context) error {
	if s.store == nil {
		return ErrStoreUnavailable
	}
	return s.store.Ping(ctx)
}

func (s *SecureStorage) nowMs() int64 {
	return s.now().UnixMilli()
}

// SetItem validates value against the rule for key, encodes it and persists it.
func (s *SecureStorage) SetItem(ctx context.Context, key string, value any, opts ...SetOption) error {
	if s.store == nil {
		metrics.ObserveStorageOperation("set", "unavailable")
		return ErrStoreUnavailable
	}

	if err := validateValue(key, value); err != nil {
		s.logger.Warn(ctx, "Secure storage rejected value", "key", key, "reason", err.Error())
		metrics.ObserveStorageOperation("set", "invalid")
		return fmt.Errorf("%w for key '%s': %v", ErrValidationFailed, key, err)
	}

	var o setOptions
	for _, opt := range opts {
		opt(&o)
	}

	payload, err := json.Marshal(value)
	if err != nil {
		s.logger.Error(ctx, "Secure storage could not serialize value", "key", key, "error", err.Error())
		metrics.ObserveStorageOperation("set", "error")
		return fmt.Errorf("%w: %v", ErrNotSerializable, err)
	}

	encoded, err := s.encoder.Encode(string(payload))
	if err != nil {
		s.logger.Error(ctx, "Secure storage could not encode value", "key", key, "error", err.Error())
		metrics.ObserveStorageOperation("set", "error")
		return fmt.Errorf("%w: encode: %v", ErrStoreWriteFailed, err)
	}

	record := domain.StoredRecord{
		Value:     encoded,
		Timestamp: s.nowMs(),
		Version:   StorageSchemaVersion,
	}
	if o.expiresAt != nil {
		ms := o.expiresAt.UnixMilli()
		record.ExpiresAt = &ms
	}

	raw, err := json.Marshal(record)
	if err != nil {
		metrics.ObserveStorageOperation("set", "error")
		return fmt.Errorf("%w: marshal record: %v", ErrStoreWriteFailed, err)
	}

	if err := s.store.Set(ctx, storagekeys.Namespaced(key), string(raw)); err != nil {
		s.logger.Error(ctx, "Secure storage write failed", "key", key, "error", err.Error())
		metrics.ObserveStorageOperation("set", "error")
		return fmt.Errorf("%w: %v", ErrStoreWriteFailed, err)
	}

	metrics.ObserveStorageOperation("set", "ok")
	return nil
}

// SetItemWithTTL stores value so that it expires ttl from now.
func (s *SecureStorage) SetItemWithTTL(ctx context.Context, key string, value any, ttl time.Duration) error {
	return s.SetItem(ctx, key, value, WithExpiresAt(s.now().Add(ttl)))
}

// GetItem returns the value stored under key, decoded from JSON into its generic form
// (map[string]any, []any, string, float64, bool). A decoded plaintext that is not JSON
// is returned as a string. defaultValue is returned when nothing valid is stored.
func (s *SecureStorage) GetItem(ctx context.Context, key string, defaultValue any) any {
	plaintext, _, ok := s.load(ctx, key)
	if !ok {
		return defaultValue
	}
	var v any
	if err := json.Unmarshal([]byte(plaintext), &v); err != nil {
		return plaintext
	}
	return v
}

// GetItemAs is the typed form of GetItem. When the stored plaintext is not JSON and T is
// string, the raw plaintext is returned.
func GetItemAs[T any](ctx context.Context, s *SecureStorage, key string, defaultValue T) T {
	plaintext, _, ok := s.load(ctx, key)
	if !ok {
		return defaultValue
	}
	var out T
	if err := json.Unmarshal([]byte(plaintext), &out); err != nil {
		if sp, isString := any(&out).(*string); isString {
			*sp = plaintext
			return out
		}
		s.logger.Warn(ctx, "Secure storage value does not match requested type", "key", key, "error", err.Error())
		return defaultValue
	}
	return out
}

// HasItem reports whether a valid record exists for key, purging it when it does not.
func (s *SecureStorage) HasItem(ctx context.Context, key string) bool {
	_, _, ok := s.load(ctx, key)
	return ok
}

// RemoveItem deletes key unconditionally.
func (s *SecureStorage) RemoveItem(ctx context.Context, key string) error {
	if s.store == nil {
		return ErrStoreUnavailable
	}
	if err := s.store.Remove(ctx, storagekeys.Namespaced(key)); err != nil {
		s.logger.Error(ctx, "Secure storage remove failed", "key", key, "error", err.Error())
		metrics.ObserveStorageOperation("remove", "error")
		return fmt.Errorf("remove '%s': %w", key, err)
	}
	metrics.ObserveStorageOperation("remove", "ok")
	return nil
}

// GetTTL returns the time left before key expires: NoExpiry when the record has no
// expiry, 0 when it is absent or already expired.
func (s *SecureStorage) GetTTL(ctx context.Context, key string) time.Duration {
	_, record, ok := s.load(ctx, key)
	if !ok {
		return 0
	}
	if record.ExpiresAt == nil {
		return NoExpiry
	}
	remaining := *record.ExpiresAt - s.nowMs()
	if remaining <= 0 {
		return 0
	}
	return time.Duration(remaining) * time.Millisecond
}

// RefreshTTL rewrites the current value of key with a new expiry ttl from now.
// It returns domain.ErrKeyNotFound when there is nothing valid to refresh.
func (s *SecureStorage) RefreshTTL(ctx context.Context, key string, ttl time.Duration) error {
	if s.store == nil {
		return ErrStoreUnavailable
	}
	plaintext, _, ok := s.load(ctx, key)
	if !ok {
		return fmt.Errorf("refresh ttl for '%s': %w", key, domain.ErrKeyNotFound)
	}
	var value any = plaintext
	var decoded any
	if err := json.Unmarshal([]byte(plaintext), &decoded); err == nil {
		value = decoded
	}
	return s.SetItemWithTTL(ctx, key, value, ttl)
}

// Clear removes every key in the SecureStorage namespace, including the legacy bare
// auth keys. Keys owned by anything else are left alone.
func (s *SecureStorage) Clear(ctx context.Context) error {
	if s.store == nil {
		return ErrStoreUnavailable
	}
	keys, err := s.store.Keys(ctx)
	if err != nil {
		s.logger.Error(ctx, "Secure storage could not list keys for clear", "error", err.Error())
		return fmt.Errorf("clear: list keys: %w", err)
	}

	var errs []error
	owned := storagekeys.Filter(keys)
	for _, k := range owned {
		if err := s.store.Remove(ctx, k); err != nil {
			errs = append(errs, fmt.Errorf("remove '%s': %w", k, err))
		}
	}
	if len(errs) > 0 {
		err := errors.Join(errs...)
		s.logger.Error(ctx, "Secure storage clear incomplete", "failed", len(errs), "error", err.Error())
		return fmt.Errorf("clear: %w", err)
	}
	s.logger.Info(ctx, "Secure storage cleared", "removed", len(owned))
	metrics.ObserveStorageOperation("clear", "ok")
	return nil
}

// Cleanup sweeps the namespace and removes records that are expired, cannot be parsed
// or carry a foreign schema version. It returns how many records were removed.
func (s *SecureStorage) Cleanup(ctx context.Context) (int, error) {
	if s.store == nil {
		return 0, nil
	}
	keys, err := s.store.Keys(ctx)
	if err != nil {
		s.logger.Error(ctx, "Secure storage could not list keys for cleanup", "error", err.Error())
		return 0, fmt.Errorf("cleanup: list keys: %w", err)
	}

	nowMs := s.nowMs()
	removed := 0
	for _, k := range storagekeys.Filter(keys) {
		raw, err := s.store.Get(ctx, k)
		if err != nil {
			continue
		}
		reason := ""
		record, ok := parseRecord(raw)
		switch {
		case !ok:
			reason = purgeCorrupt
		case record.Version != StorageSchemaVersion:
			reason = purgeVersion
		case record.Expired(nowMs):
			reason = purgeExpired
		}
		if reason == "" {
			continue
		}
		if err := s.store.Remove(ctx, k); err != nil {
			s.logger.Warn(ctx, "Secure storage cleanup could not remove key", "key", k, "error", err.Error())
			continue
		}
		metrics.ObserveStoragePurge(reason)
		removed++
	}

	if removed > 0 {
		s.logger.Info(ctx, "Secure storage cleanup removed stale records", "removed", removed)
	}
	return removed, nil
}

// GetStats summarises the namespace. SizeBytes is the sum of raw record lengths.
// Corrupt and foreign-version records count towards Total only.
func (s *SecureStorage) GetStats(ctx context.Context) (domain.StorageStats, error) {
	var stats domain.StorageStats
	if s.store == nil {
		return stats, nil
	}
	keys, err := s.store.Keys(ctx)
	if err != nil {
		return stats, fmt.Errorf("stats: list keys: %w", err)
	}

	nowMs := s.nowMs()
	for _, k := range storagekeys.Filter(keys) {
		raw, err := s.store.Get(ctx, k)
		if err != nil {
			continue
		}
		stats.Total++
		stats.SizeBytes += len(raw)
		record, ok := parseRecord(raw)
		if !ok || record.Version != StorageSchemaVersion {
			continue
		}
		if record.Expired(nowMs) {
			stats.Expired++
		} else {
			stats.Valid++
		}
	}
	return stats, nil
}

// load reads, validates and decodes the record for key. Invalid records are purged.
func (s *SecureStorage) load(ctx context.Context, key string) (string, domain.StoredRecord, bool) {
	if s.store == nil {
		return "", domain.StoredRecord{}, false
	}
	storeKey := storagekeys.Namespaced(key)

	raw, err := s.store.Get(ctx, storeKey)
	if errors.Is(err, domain.ErrKeyNotFound) {
		metrics.ObserveStorageOperation("get", "miss")
		return "", domain.StoredRecord{}, false
	}
	if err != nil {
		s.logger.Error(ctx, "Secure storage read failed", "key", key, "error", err.Error())
		metrics.ObserveStorageOperation("get", "error")
		return "", domain.StoredRecord{}, false
	}

	record, ok := parseRecord(raw)
	if !ok {
		s.purge(ctx, storeKey, purgeCorrupt)
		return "", domain.StoredRecord{}, false
	}
	if record.Version != StorageSchemaVersion {
		s.purge(ctx, storeKey, purgeVersion)
		return "", domain.StoredRecord{}, false
	}
	if record.Expired(s.nowMs()) {
		s.purge(ctx, storeKey, purgeExpired)
		return "", domain.StoredRecord{}, false
	}

	plaintext, err := s.encoder.Decode(record.Value)
	if err != nil {
		s.logger.Warn(ctx, "Secure storage could not decode value", "key", key, "error", err.Error())
		s.purge(ctx, storeKey, purgeCorrupt)
		return "", domain.StoredRecord{}, false
	}

	metrics.ObserveStorageOperation("get", "hit")
	return plaintext, record, true
}

func (s *SecureStorage) purge(ctx context.Context, storeKey, reason string) {
	if err := s.store.Remove(ctx, storeKey); err != nil {
		s.logger.Warn(ctx, "Secure storage could not purge record", "key", storeKey, "reason", reason, "error", err.Error())
		return
	}
	s.logger.Debug(ctx, "Secure storage purged record", "key", storeKey, "reason", reason)
	metrics.ObserveStoragePurge(reason)
}

// parseRecord decodes a raw store value into a StoredRecord. A record without a
// version is treated as unparsable.
func parseRecord(raw string) (domain.StoredRecord, bool) {
	var record domain.StoredRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return domain.StoredRecord{}, false
	}
	if record.Version == "" {
		return domain.StoredRecord{}, false
	}
	return record, true
}
