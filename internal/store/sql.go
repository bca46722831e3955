// ABOUTME: database/sql implementation of the Store interface for SQLite and Postgres
// ABOUTME: Keeps every key in one kv table with automatic schema creation

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

var errClosed = errors.New("store closed")

// Dialect captures the SQL differences between the supported databases.
type Dialect struct {
	// Name is used in logs and errors ("sqlite", "postgres").
	Name string
	// Driver is the database/sql driver name.
	Driver string

	schema      string
	prefixMatch string
	placeholder sq.PlaceholderFormat
}

// SQLiteDialect returns the dialect for modernc.org/sqlite.
func SQLiteDialect() Dialect {
	return Dialect{
		Name:   "sqlite",
		Driver: "sqlite",
		schema: `
			CREATE TABLE IF NOT EXISTS kv (
				key        TEXT PRIMARY KEY,
				value      TEXT NOT NULL,
				updated_at TEXT NOT NULL
			);
		`,
		prefixMatch: "substr(key, 1, ?) = ?",
		placeholder: sq.Question,
	}
}

// PostgresDialect returns the dialect for github.com/jackc/pgx/v5/stdlib.
// The key column uses the "C" collation so ordering matches byte order.
func PostgresDialect() Dialect {
	return Dialect{
		Name:   "postgres",
		Driver: "pgx",
		schema: `
			CREATE TABLE IF NOT EXISTS kv (
				key        TEXT COLLATE "C" PRIMARY KEY,
				value      TEXT NOT NULL,
				updated_at TEXT NOT NULL
			);
		`,
		prefixMatch: "left(key, ?) = ?",
		placeholder: sq.Dollar,
	}
}

// Builder returns a statement builder using the dialect's placeholders.
func (d Dialect) Builder() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(d.placeholder)
}

// SQLStore implements the Store interface on top of database/sql
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	qb      sq.StatementBuilderType
	logger  *slog.Logger
	now     func() time.Time
}

// Ensure SQLStore implements Store.
var _ Store = (*SQLStore)(nil)

// NewSQLStore wraps an already opened database. It does not create the
// schema; call Migrate for that.
func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{
		db:      db,
		dialect: dialect,
		qb:      dialect.Builder(),
		logger:  slog.Default().With("component", "store", "dialect", dialect.Name),
		now:     time.Now,
	}
}

// OpenSQLite opens (or creates) the SQLite database at path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func OpenSQLite(path string) (*SQLStore, error) {
	dsn := path
	if path != ":memory:" {
		// Ensure parent directory exists
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if path == ":memory:" {
		// Every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	} else if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		// Enable WAL mode for better concurrent performance
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := NewSQLStore(db, SQLiteDialect())
	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	s.logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// OpenPostgres connects to Postgres using a pgx connection string.
func OpenPostgres(ctx context.Context, dsn string) (*SQLStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	s := NewSQLStore(db, PostgresDialect())
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	s.logger.Info("Postgres store initialized")
	return s, nil
}

// Migrate creates the kv table if it doesn't exist. It is idempotent.
func (s *SQLStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.schema); err != nil {
		return &StorageError{Op: "migrate", Err: err}
	}
	return nil
}

const (
	upsertSuffix = "ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at"
	ignoreSuffix = "ON CONFLICT (key) DO NOTHING"
)

// Get returns the value stored under key.
// Returns ErrNotFound if the key doesn't exist.
func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, error) {
	query, args, err := s.qb.Select("value").From("kv").Where(sq.Eq{"key": key}).ToSql()
	if err != nil {
		return nil, &StorageError{Op: "get", Key: key, Err: fmt.Errorf("build query: %w", err)}
	}

	var value []byte
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &StorageError{Op: "get", Key: key, Err: err}
	}
	return value, nil
}

func (s *SQLStore) insert(key string, value []byte, suffix string) (string, []any, error) {
	return s.qb.Insert("kv").
		Columns("key", "value", "updated_at").
		Values(key, string(value), s.timestamp()).
		Suffix(suffix).
		ToSql()
}

// Put saves or replaces the value under key.
func (s *SQLStore) Put(ctx context.Context, key string, value []byte) error {
	query, args, err := s.insert(key, value, upsertSuffix)
	if err != nil {
		return &StorageError{Op: "put", Key: key, Err: fmt.Errorf("build query: %w", err)}
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return &StorageError{Op: "put", Key: key, Err: err}
	}

	s.logger.Debug("put key", "key", key, "size", len(value))
	return nil
}

// PutIfAbsent inserts the value only when key is unused.
func (s *SQLStore) PutIfAbsent(ctx context.Context, key string, value []byte) (bool, error) {
	query, args, err := s.insert(key, value, ignoreSuffix)
	if err != nil {
		return false, &StorageError{Op: "put-if-absent", Key: key, Err: fmt.Errorf("build query: %w", err)}
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, &StorageError{Op: "put-if-absent", Key: key, Err: err}
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, &StorageError{Op: "put-if-absent", Key: key, Err: err}
	}
	return n > 0, nil
}

// Delete removes key and reports whether a row was deleted.
func (s *SQLStore) Delete(ctx context.Context, key string) (bool, error) {
	query, args, err := s.qb.Delete("kv").Where(sq.Eq{"key": key}).ToSql()
	if err != nil {
		return false, &StorageError{Op: "delete", Key: key, Err: fmt.Errorf("build query: %w", err)}
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, &StorageError{Op: "delete", Key: key, Err: err}
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, &StorageError{Op: "delete", Key: key, Err: err}
	}
	return n > 0, nil
}

// ListKeys returns keys with the given prefix in ascending order.
func (s *SQLStore) ListKeys(ctx context.Context, prefix string, opts ListOptions) ([]string, error) {
	sel := s.qb.Select("key").From("kv").
		Where(s.dialect.prefixMatch, utf8.RuneCountInString(prefix), prefix).
		OrderBy("key")
	if opts.After != "" {
		sel = sel.Where(sq.Gt{"key": opts.After})
	}
	if opts.Limit > 0 {
		sel = sel.Limit(uint64(opts.Limit))
	}

	query, args, err := sel.ToSql()
	if err != nil {
		return nil, &StorageError{Op: "list", Key: prefix, Err: fmt.Errorf("build query: %w", err)}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &StorageError{Op: "list", Key: prefix, Err: err}
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, &StorageError{Op: "list", Key: prefix, Err: err}
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: "list", Key: prefix, Err: err}
	}

	return keys, nil
}

// Ping checks database connectivity.
func (s *SQLStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return &StorageError{Op: "ping", Err: err}
	}
	return nil
}

// Close closes the database connection
func (s *SQLStore) Close() error {
	s.logger.Info("closing store")
	return s.db.Close()
}

func (s *SQLStore) timestamp() string {
	return s.now().UTC().Format(time.RFC3339)
}
