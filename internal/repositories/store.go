package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/cardbox/internal/shared"
)

// Store is the key-value contract consumed by the queue and the icon cache.
//
// Implementations must tolerate concurrent readers during writes; a Set
// replaces the stored value wholesale.
type Store interface {
	// Get retrieves the value for a key. Returns shared.ErrCacheMiss when
	// the key does not exist.
	Get(key string) ([]byte, error)

	// Set stores a value under a key, replacing any previous value.
	// Storage-full failures are wrapped in shared.ErrQuotaExceeded.
	Set(key string, value []byte) error

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(key string) error
}

// KVStore implements Store on top of the sqlite kv table.
type KVStore struct {
	db *sql.DB
}

// NewKVStore creates a KVStore with the given database connection.
// The kv table must already exist (see shared.RunMigrations).
func NewKVStore(db *sql.DB) *KVStore {
	return &KVStore{db: db}
}

// Get retrieves the value for a key.
func (s *KVStore) Get(key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrCacheMiss, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read key %s: %w", key, err)
	}
	return value, nil
}

// Set stores a value under a key, replacing any previous value.
func (s *KVStore) Set(key string, value []byte) error {
	query := `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	if _, err := s.db.Exec(query, key, value, time.Now()); err != nil {
		if isQuotaError(err) {
			return fmt.Errorf("%w: %v", shared.ErrQuotaExceeded, err)
		}
		return fmt.Errorf("failed to write key %s: %w", key, err)
	}
	return nil
}

// Delete removes a key.
func (s *KVStore) Delete(key string) error {
	if _, err := s.db.Exec("DELETE FROM kv WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	return nil
}

// isQuotaError matches sqlite's disk-full family of errors. The driver does
// not expose stable codes for these, so match on message.
func isQuotaError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database or disk is full") ||
		strings.Contains(msg, "disk i/o error")
}
