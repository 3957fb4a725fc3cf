package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gitlab.com/trektoo/api/trektoo-client-core/internal/domain"
)

// Compile-time interface satisfaction check.
var _ domain.KeyValueStore = (*KVStore)(nil)

// KVStore is the SQLite implementation of domain.KeyValueStore, used when storage
// must survive restarts without a Redis deployment.
type KVStore struct {
	db *DB
}

// NewKVStore creates a KVStore over a migrated database.
func NewKVStore(db *DB) *KVStore {
	return &KVStore{db: db}
}

// Get returns the raw value for key.
func (s *KVStore) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.Reader.QueryRowContext(ctx, `SELECT value FROM kv_entries WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrKeyNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get kv entry %q: %w", key, err)
	}
	return value, nil
}

// Set inserts or replaces the value for key.
func (s *KVStore) Set(ctx context.Context, key, value string) error {
	const query = `INSERT OR REPLACE INTO kv_entries (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)`
	if _, err := s.db.Writer.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("set kv entry %q: %w", key, err)
	}
	return nil
}

// Remove deletes key; a missing key is not an error.
func (s *KVStore) Remove(ctx context.Context, key string) error {
	if _, err := s.db.Writer.ExecContext(ctx, `DELETE FROM kv_entries WHERE key = ?`, key); err != nil {
		return fmt.Errorf("remove kv entry %q: %w", key, err)
	}
	return nil
}

// Keys returns every stored key ordered by key.
func (s *KVStore) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.Reader.QueryContext(ctx, `SELECT key FROM kv_entries ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list kv keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan kv key: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate kv keys: %w", err)
	}
	return keys, nil
}

// Ping checks both connections.
func (s *KVStore) Ping(ctx context.Context) error {
	if err := s.db.Writer.PingContext(ctx); err != nil {
		return fmt.Errorf("ping writer: %w", err)
	}
	if err := s.db.Reader.PingContext(ctx); err != nil {
		return fmt.Errorf("ping reader: %w", err)
	}
	return nil
}
