package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"roombooking/internal/config"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"
)

// overlapAbortMessage is raised by the insert trigger guarding the overlap invariant.
const overlapAbortMessage = "reservation overlaps an active reservation"

// DB is the SQLite-backed room catalog and reservation store.
type DB struct {
	*sql.DB
	path   string
	logger *zerolog.Logger
}

// NewDB opens the database and creates tables if they don't exist.
func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// BEGIN IMMEDIATE takes the write lock up front, so a transaction never
	// fails with SQLITE_BUSY when it upgrades from read to write.
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=%d&_txlock=immediate&_foreign_keys=1",
		path, config.SQLiteBusyTimeout.Milliseconds())
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	instance := &DB{
		DB:     db,
		path:   path,
		logger: logger,
	}

	if err := instance.createTables(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("Database initialized")
	return instance, nil
}

func (db *DB) createTables(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS rooms (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT UNIQUE NOT NULL,
			capacity INTEGER NOT NULL CHECK (capacity > 0),
			price_per_day_cents INTEGER NOT NULL CHECK (price_per_day_cents >= 0),
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		// Dates are YYYY-MM-DD text, so lexical comparison is calendar order.
		`CREATE TABLE IF NOT EXISTS reservations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			room_id INTEGER NOT NULL,
			requester_id TEXT NOT NULL,
			start_date TEXT NOT NULL,
			end_date TEXT NOT NULL,
			is_cancelled BOOLEAN NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			CHECK (start_date < end_date),
			FOREIGN KEY(room_id) REFERENCES rooms(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reservations_room_active ON reservations(room_id, is_cancelled, start_date)`,
		`CREATE INDEX IF NOT EXISTS idx_reservations_requester ON reservations(requester_id, start_date)`,
		`CREATE INDEX IF NOT EXISTS idx_reservations_dates ON reservations(start_date, end_date)`,

		// Exclusion backstop: the coordinator's check runs first, this catches any caller that skipped it.
		`CREATE TRIGGER IF NOT EXISTS trg_reservations_no_overlap
		BEFORE INSERT ON reservations
		WHEN NEW.is_cancelled = 0 AND EXISTS (
			SELECT 1 FROM reservations r
			WHERE r.room_id = NEW.room_id
			AND r.is_cancelled = 0
			AND r.start_date < NEW.end_date
			AND NEW.start_date < r.end_date
		)
		BEGIN
			SELECT RAISE(ABORT, '` + overlapAbortMessage + `');
		END`,
		`CREATE TRIGGER IF NOT EXISTS trg_reservations_immutable
		BEFORE UPDATE OF room_id, requester_id, start_date, end_date ON reservations
		WHEN NEW.room_id IS NOT OLD.room_id
			OR NEW.requester_id IS NOT OLD.requester_id
			OR NEW.start_date IS NOT OLD.start_date
			OR NEW.end_date IS NOT OLD.end_date
		BEGIN
			SELECT RAISE(ABORT, 'reservation is immutable');
		END`,
		`CREATE TRIGGER IF NOT EXISTS trg_reservations_no_uncancel
		BEFORE UPDATE OF is_cancelled ON reservations
		WHEN OLD.is_cancelled = 1 AND NEW.is_cancelled = 0
		BEGIN
			SELECT RAISE(ABORT, 'cancelled reservation cannot be reactivated');
		END`,
	}

	for _, query := range queries {
		if _, err := db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

func (db *DB) Close() error {
	return db.DB.Close()
}

func isOverlapAbort(err error) bool {
	return err != nil && strings.Contains(err.Error(), overlapAbortMessage)
}

func isCheckViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "CHECK constraint failed")
}
