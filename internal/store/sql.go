// ABOUTME: database/sql implementation of the Store interface shared by SQLite and PostgreSQL
// ABOUTME: Counters and conditional puts are single UPSERT statements

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// SQLStore implements Store on a single kv_entries table.
// Queries are written with $N placeholders and rebound for SQLite.
type SQLStore struct {
	db      *sql.DB
	logger  *slog.Logger
	dialect string
	now     func() time.Time
	done    chan struct{}
}

func newSQLStore(db *sql.DB, dialect string, logger *slog.Logger) *SQLStore {
	s := &SQLStore{
		db:      db,
		logger:  logger,
		dialect: dialect,
		now:     time.Now,
		done:    make(chan struct{}),
	}
	go s.sweepLoop()
	return s
}

// rebind converts $N placeholders to the ?N form SQLite understands.
func (s *SQLStore) rebind(query string) string {
	if s.dialect == "postgres" {
		return query
	}
	return strings.ReplaceAll(query, "$", "?")
}

func (s *SQLStore) nowMillis() int64 {
	return s.now().UnixMilli()
}

func (s *SQLStore) expiresAt(ttl time.Duration) sql.NullInt64 {
	if ttl <= 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: s.now().Add(ttl).UnixMilli(), Valid: true}
}

// Get returns the value for key or ErrNotFound if it is missing or expired.
func (s *SQLStore) Get(ctx context.Context, key string) (string, error) {
	query := s.rebind(`SELECT value, expires_at FROM kv_entries WHERE key_name = $1`)

	var value string
	var expires sql.NullInt64
	err := s.db.QueryRowContext(ctx, query, key).Scan(&value, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("querying key: %w", err)
	}
	if expires.Valid && expires.Int64 <= s.nowMillis() {
		return "", ErrNotFound
	}
	return value, nil
}

// Put stores value under key, replacing any previous value and expiry.
func (s *SQLStore) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	query := s.rebind(`
		INSERT INTO kv_entries (key_name, value, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key_name) DO UPDATE SET
			value = excluded.value,
			expires_at = excluded.expires_at
	`)

	if _, err := s.db.ExecContext(ctx, query, key, value, s.expiresAt(ttl)); err != nil {
		return fmt.Errorf("writing key: %w", err)
	}
	return nil
}

// PutIfAbsent inserts key unless a live value exists. An expired value is replaced.
func (s *SQLStore) PutIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	query := s.rebind(`
		INSERT INTO kv_entries (key_name, value, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key_name) DO UPDATE SET
			value = excluded.value,
			expires_at = excluded.expires_at
		WHERE kv_entries.expires_at IS NOT NULL AND kv_entries.expires_at <= $4
	`)

	res, err := s.db.ExecContext(ctx, query, key, value, s.expiresAt(ttl), s.nowMillis())
	if err != nil {
		return false, fmt.Errorf("conditional write: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading affected rows: %w", err)
	}
	return n > 0, nil
}

// Incr adds one to the counter at key. An expired counter restarts at one
// with a fresh expiry.
func (s *SQLStore) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	query := s.rebind(`
		INSERT INTO kv_entries (key_name, value, expires_at)
		VALUES ($1, '1', $2)
		ON CONFLICT (key_name) DO UPDATE SET
			value = CASE
				WHEN kv_entries.expires_at IS NOT NULL AND kv_entries.expires_at <= $3 THEN '1'
				ELSE CAST(CAST(kv_entries.value AS BIGINT) + 1 AS TEXT)
			END,
			expires_at = CASE
				WHEN kv_entries.expires_at IS NOT NULL AND kv_entries.expires_at <= $3 THEN excluded.expires_at
				ELSE kv_entries.expires_at
			END
		RETURNING value
	`)

	var raw string
	if err := s.db.QueryRowContext(ctx, query, key, s.expiresAt(ttl), s.nowMillis()).Scan(&raw); err != nil {
		return 0, fmt.Errorf("incrementing counter: %w", err)
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, ErrNotCounter
	}
	return n, nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *SQLStore) Delete(ctx context.Context, key string) error {
	query := s.rebind(`DELETE FROM kv_entries WHERE key_name = $1`)
	if _, err := s.db.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("deleting key: %w", err)
	}
	return nil
}

// PurgeExpired deletes every expired row and returns how many were removed.
func (s *SQLStore) PurgeExpired(ctx context.Context) (int64, error) {
	query := s.rebind(`DELETE FROM kv_entries WHERE expires_at IS NOT NULL AND expires_at <= $1`)
	res, err := s.db.ExecContext(ctx, query, s.nowMillis())
	if err != nil {
		return 0, fmt.Errorf("purging expired keys: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLStore) sweepLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			n, err := s.PurgeExpired(context.Background())
			if err != nil {
				s.logger.Warn("expiry sweep failed", "error", err)
				continue
			}
			if n > 0 {
				s.logger.Debug("expired keys purged", "count", n)
			}
		case <-s.done:
			return
		}
	}
}

// Close stops the sweep and closes the database connection
func (s *SQLStore) Close() error {
	s.logger.Info("closing store", "dialect", s.dialect)
	close(s.done)
	return s.db.Close()
}

// Ensure SQLStore implements Store.
var _ Store = (*SQLStore)(nil)
