package store

import (
	"beerspots-service/internal/platform/obs"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/stdlib"
)

// Postgres channel carrying the key of every written entry.
const changesChannel = "kv_changes"

// SQLStore is a Postgres-backed key-value store.
// Writes publish the key on a NOTIFY channel so other sessions can Watch it.
type SQLStore struct {
	DB *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{DB: db}
}

func (s *SQLStore) Get(ctx context.Context, key string) (_ string, _ bool, err error) {
	defer obs.Time(ctx, "kv.postgres.Get")(&err)

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
    WHERE key = $1;
	`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get kv %q: query kv_store table: %w", key, err)
	}

	return value, true, nil
}

func (s *SQLStore) Set(ctx context.Context, key string, value string) (err error) {
	defer obs.Time(ctx, "kv.postgres.Set")(&err)

	if s.DB == nil {
		return errors.New("kv store: db is nil")
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("insert kv: key must not be empty")
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert kv: db begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
	INSERT INTO kv_store (key, value, updated_at)
    VALUES ($1, $2, now())
	ON CONFLICT (key) DO UPDATE
	SET value = EXCLUDED.value,
		updated_at = EXCLUDED.updated_at;
	`, key, value); err != nil {
		return fmt.Errorf("insert kv %q: %w", key, err)
	}

	// Delivered to listeners only once the transaction commits.
	if _, err := tx.ExecContext(ctx, `SELECT pg_notify($1, $2);`, changesChannel, key); err != nil {
		return fmt.Errorf("insert kv %q: notify: %w", key, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("insert kv commit: %w", err)
	}

	return nil
}

// Watch holds a dedicated connection in LISTEN mode and emits the fresh value
// of key whenever it is written.
func (s *SQLStore) Watch(ctx context.Context, key string) (<-chan string, error) {
	if s.DB == nil {
		return nil, errors.New("kv store: db is nil")
	}

	conn, err := s.DB.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("watch kv: acquire connection: %w", err)
	}

	err = conn.Raw(func(driverConn any) error {
		pc, ok := driverConn.(*stdlib.Conn)
		if !ok {
			return fmt.Errorf("unexpected driver connection %T", driverConn)
		}
		_, err := pc.Conn().Exec(ctx, "LISTEN "+changesChannel)
		return err
	})
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("watch kv: listen: %w", err)
	}

	out := make(chan string, 1)
	go func() {
		defer close(out)
		defer conn.Close()

		log := obs.Logger(ctx)

		err := conn.Raw(func(driverConn any) error {
			pc := driverConn.(*stdlib.Conn).Conn()
			defer func() { _, _ = pc.Exec(context.Background(), "UNLISTEN "+changesChannel) }()

			for {
				n, err := pc.WaitForNotification(ctx)
				if err != nil {
					return err
				}
				if n.Payload != key {
					continue
				}

				value, ok, err := s.Get(ctx, key)
				if err != nil {
					log.Warn().Err(err).Str("key", key).Msg("watch kv: reload failed")
					continue
				}
				if !ok {
					continue
				}

				select {
				case out <- value:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		})
		if err != nil && ctx.Err() == nil {
			log.Error().Err(err).Str("key", key).Msg("watch kv: listener stopped")
		}
	}()

	return out, nil
}
