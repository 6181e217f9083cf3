// Package database manages the SQLite connection shared by the ledgers.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"gametime/internal/config"
)

func init() {
	// The modernc driver registers as "sqlite", which sqlx does not know
	// a bindvar style for out of the box.
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// DB wraps the sqlx connection so read paths can reconnect-and-retry
// after a storage failure. Write paths never retry; their errors surface
// to the caller.
type DB struct {
	mu   sync.Mutex
	cfg  config.DatabaseConfig
	conn *sqlx.DB
}

// Open opens the SQLite file and applies any pending migrations.
func Open(cfg config.DatabaseConfig) (*DB, error) {
	conn, err := connect(cfg)
	if err != nil {
		return nil, err
	}

	db := &DB{cfg: cfg, conn: conn}
	if err := db.migrate(context.Background()); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("db.migrate() > %w", err)
	}
	return db, nil
}

// NewFromConn wraps an existing connection. Reconnect is a no-op for
// wrapped connections; tests use this with sqlmock.
func NewFromConn(conn *sqlx.DB) *DB {
	return &DB{conn: conn}
}

func connect(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)",
		cfg.Path, cfg.BusyTimeoutSeconds*1000)

	conn, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlx.Open() > %w", err)
	}

	// The ledgers serialize access with their own mutexes; a single
	// connection keeps the driver out of lock contention entirely.
	conn.SetMaxOpenConns(1)

	return conn, nil
}

// Conn returns the current underlying connection.
func (db *DB) Conn() *sqlx.DB {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.conn
}

// Reconnect closes and reopens the connection. It is a no-op for
// connections created with NewFromConn.
func (db *DB) Reconnect() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.cfg.Path == "" {
		return nil
	}

	if db.conn != nil {
		_ = db.conn.Close()
	}
	conn, err := connect(db.cfg)
	if err != nil {
		return fmt.Errorf("connect() > %w", err)
	}
	db.conn = conn
	return nil
}

func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.conn == nil {
		return nil
	}
	err := db.conn.Close()
	db.conn = nil
	return err
}

// Read runs fn and, on a storage failure, reconnects and retries exactly
// once. sql.ErrNoRows and context errors are not retried.
func (db *DB) Read(ctx context.Context, fn func(conn *sqlx.DB) error) error {
	err := fn(db.Conn())
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) || ctx.Err() != nil {
		return err
	}

	if reconnectErr := db.Reconnect(); reconnectErr != nil {
		return err
	}
	return fn(db.Conn())
}

// Maintain compacts and re-analyzes the store. Used by the admin
// maintenance command.
func (db *DB) Maintain(ctx context.Context) error {
	conn := db.Conn()
	if _, err := conn.ExecContext(ctx, "VACUUM"); err != nil {
		return fmt.Errorf("db.ExecContext(VACUUM) > %w", err)
	}
	if _, err := conn.ExecContext(ctx, "ANALYZE"); err != nil {
		return fmt.Errorf("db.ExecContext(ANALYZE) > %w", err)
	}
	return nil
}
