package store

import (
	"beerspots-service/internal/platform/obs"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// SQLite backed key-value store.
// SQLite has no change notification, so consumers fall back to polling.
type SqliteStore struct {
	DB *sql.DB
}

func NewSqliteStore(db *sql.DB) *SqliteStore {
	return &SqliteStore{DB: db}
}

func (s *SqliteStore) Get(ctx context.Context, key string) (_ string, _ bool, err error) {
	defer obs.Time(ctx, "kv.sqlite.Get")(&err)

	if s.DB == nil {
		return "", false, errors.New("kv store: db is nil")
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return "", false, errors.New("get kv: key must not be empty")
	}

	var value string
	err = s.DB.QueryRowContext(ctx, `
	SELECT value
    FROM kv_store
    WHERE key = ?;
	`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get kv %q: query kv_store table: %w", key, err)
	}

	return value, true, nil
}

func (s *SqliteStore) Set(ctx context.Context, key string, value string) error {
	if s.DB == nil {
		return errors.New("kv store: db is nil")
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("insert kv: key must not be empty")
	}

	_, err := s.DB.ExecContext(ctx, `
	INSERT OR REPLACE INTO kv_store (
        key,
        value,
        updated_at
    )
    VALUES (?, ?, ?);
	`, key, value, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("insert kv %q: %w", key, err)
	}

	return nil
}
