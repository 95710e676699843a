package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by KVStore.Get for a missing key.
var ErrNotFound = errors.New("not found")

// KVStore is a string key-value store partitioned by scope. The client keeps
// its local preferences here.
type KVStore struct {
	db    *sql.DB
	scope string
}

func NewKVStore(db *sql.DB, scope string) *KVStore {
	return &KVStore{db: db, scope: scope}
}

func (s *KVStore) Get(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE scope = ? AND key = ?`, s.scope, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("key %q: %w", key, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("get key %q: %w", key, err)
	}
	return value, nil
}

func (s *KVStore) Set(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO kv (scope, key, value, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(scope, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		s.scope, key, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("set key %q: %w", key, err)
	}
	return nil
}

func (s *KVStore) Remove(key string) error {
	_, err := s.db.Exec(`DELETE FROM kv WHERE scope = ? AND key = ?`, s.scope, key)
	if err != nil {
		return fmt.Errorf("remove key %q: %w", key, err)
	}
	return nil
}
