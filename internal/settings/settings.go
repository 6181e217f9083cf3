// Package settings is a small key/value store over the settings table,
// used for operational watermarks such as the last weekly reset.
package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"gametime/internal/clock"
	"gametime/internal/database"
)

const (
	// KeyLastWeeklyReset holds the week key of the most recent reset.
	KeyLastWeeklyReset = "last_weekly_reset"
	// KeySessionActiveSince holds the RFC3339 start time of the running
	// session. It is the cross-process signal that a session is active;
	// the monitor reads it from its own process.
	KeySessionActiveSince = "session_active_since"
)

type Store struct {
	db    *database.DB
	clock clock.Clock
	mu    sync.Mutex
}

func NewStore(db *database.DB, clk clock.Clock) *Store {
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Store{db: db, clock: clk}
}

// Get returns the stored value and whether the key exists.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var value string
	err := s.db.Read(ctx, func(conn *sqlx.DB) error {
		return conn.GetContext(ctx, &value, "SELECT value FROM settings WHERE key = ?", key)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("db.GetContext(settings) > %w", err)
	}
	return value, true, nil
}

// Set stores or replaces the value for key.
func (s *Store) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Conn().ExecContext(ctx,
		"INSERT OR REPLACE INTO settings (key, value, updated_at) VALUES (?, ?, ?)",
		key, value, s.clock.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("db.ExecContext(replace settings) > %w", err)
	}
	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Conn().ExecContext(ctx,
		"DELETE FROM settings WHERE key = ?", key); err != nil {
		return fmt.Errorf("db.ExecContext(delete settings) > %w", err)
	}
	return nil
}
