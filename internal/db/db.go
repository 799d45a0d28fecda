// Package db provides the embedded SQLite storage engine: connection setup,
// schema migrations, keyed record operations, transactions and change notifications.
package db

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/text/cases"
	"modernc.org/sqlite"
)

// Options configures Open.
type Options struct {
	DataDir      string
	FileName     string
	MaxOpenConns int
	BusyTimeout  time.Duration
}

// DB wraps the sql.DB with memonotes-specific configuration.
type DB struct {
	*sql.DB
	Path string
}

var (
	registerOnce sync.Once
	registerErr  error
)

// Fold returns the Unicode case-folded form of s, used for case-insensitive matching
// both in SQL (as fold(x)) and in memory.
func Fold(s string) string {
	// A Caser is stateful, so each call gets its own.
	return cases.Fold().String(s)
}

func registerFunctions() error {
	registerOnce.Do(func() {
		registerErr = sqlite.RegisterDeterministicScalarFunction("fold", 1,
			func(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
				switch v := args[0].(type) {
				case nil:
					return nil, nil
				case string:
					return Fold(v), nil
				case []byte:
					return Fold(string(v)), nil
				default:
					return Fold(fmt.Sprint(v)), nil
				}
			})
	})
	return registerErr
}

// Open opens the SQLite database under opts.DataDir.
// Every pooled connection gets:
// - WAL mode so readers never block the single writer
// - foreign keys enabled
// - a busy timeout instead of immediate SQLITE_BUSY
func Open(opts Options) (*DB, error) {
	if opts.FileName == "" {
		opts.FileName = "notes.db"
	}
	if opts.MaxOpenConns <= 0 {
		opts.MaxOpenConns = 4
	}
	if opts.BusyTimeout <= 0 {
		opts.BusyTimeout = 5 * time.Second
	}

	// Ensure data directory exists
	if err := os.MkdirAll(opts.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	if err := registerFunctions(); err != nil {
		return nil, fmt.Errorf("failed to register SQL functions: %w", err)
	}

	dbPath := filepath.Join(opts.DataDir, opts.FileName)

	q := url.Values{}
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", opts.BusyTimeout.Milliseconds()))
	dsn := dbPath + "?" + q.Encode()

	// modernc.org/sqlite is pure Go, no CGO
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxOpenConns)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &DB{DB: db, Path: dbPath}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.DB.Close()
}
