package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// database/sql driver names registered by the two SQLite libraries.
const (
	DriverCGo  = "sqlite3" // github.com/mattn/go-sqlite3
	DriverPure = "sqlite"  // modernc.org/sqlite
)

// SQLiteBackend implements Backend as a single key-value table.
type SQLiteBackend struct {
	db     *sql.DB
	driver string
	path   string
}

// NewSQLiteBackend opens (or creates) the database at path using the given
// database/sql driver name. path may be ":memory:".
func NewSQLiteBackend(driver, path string) (*SQLiteBackend, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open(driver, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: keeps ":memory:" databases shared and serializes
	// writers instead of surfacing SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	b := &SQLiteBackend{db: db, driver: driver, path: path}
	if err := b.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return b, nil
}

func (b *SQLiteBackend) migrate() error {
	queries := []string{
		`PRAGMA busy_timeout=5000`,
		`CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value BLOB NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
	}
	for _, q := range queries {
		if _, err := b.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// Driver returns the database/sql driver name in use.
func (b *SQLiteBackend) Driver() string {
	return b.driver
}

// Set upserts a value.
func (b *SQLiteBackend) Set(ctx context.Context, key string, value []byte) error {
	_, err := b.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO kv (key, value, updated_at)
		VALUES (?, ?, ?)
	`, key, value, time.Now().UTC())
	return err
}

// Get retrieves a value.
func (b *SQLiteBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := b.db.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// Remove deletes a key.
func (b *SQLiteBackend) Remove(ctx context.Context, key string) error {
	_, err := b.db.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", key)
	return err
}

// Clear deletes all keys.
func (b *SQLiteBackend) Clear(ctx context.Context) error {
	_, err := b.db.ExecContext(ctx, "DELETE FROM kv")
	return err
}

// Info lists keys and sums value sizes.
func (b *SQLiteBackend) Info(ctx context.Context) (Info, error) {
	rows, err := b.db.QueryContext(ctx, "SELECT key, length(value) FROM kv ORDER BY key")
	if err != nil {
		return Info{}, err
	}
	defer rows.Close()

	info := Info{Keys: []string{}}
	for rows.Next() {
		var key string
		var size int64
		if err := rows.Scan(&key, &size); err != nil {
			return Info{}, err
		}
		info.Keys = append(info.Keys, key)
		info.CurrentSize += size
	}
	return info, rows.Err()
}

// Close closes the database connection.
func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}
