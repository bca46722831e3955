// Package store provides the durable key-value storage that every DefLink
// entity is persisted in.
//
// # Architecture
//
// The package exposes a single Store interface with five operations:
//
//   - Get: read the JSON value stored under a key
//   - Put: unconditionally write a value
//   - PutIfAbsent: write a value only when the key is unused
//   - Delete: remove a key, reporting whether it existed
//   - ListKeys: enumerate keys sharing a prefix, in byte order
//
// Each operation is atomic for its single key. There are no multi-key
// transactions; callers that need two writes (record plus index entry) treat
// them as a two-step protocol and reconcile afterwards.
//
// # Backends
//
//   - SQLStore with the SQLite dialect (modernc.org/sqlite), the default
//   - SQLStore with the Postgres dialect (github.com/jackc/pgx/v5/stdlib)
//   - MemoryStore for tests and throwaway development servers
//
// Both SQL dialects keep everything in one table:
//
//	kv(key TEXT PRIMARY KEY, value TEXT NOT NULL, updated_at TEXT NOT NULL)
//
// Queries are built with github.com/Masterminds/squirrel, each dialect
// supplying its placeholder format (? for SQLite, $N for Postgres).
//
// The SQLite database runs in WAL mode:
//
//	PRAGMA journal_mode=WAL;
//
// # Error Handling
//
//   - ErrNotFound: the key does not exist
//   - *StorageError: the backend failed; wraps the driver error
//
// All methods accept context.Context for cancellation support.
//
// # Testing
//
// Use NewMemoryStore() for unit tests and OpenSQLite(t.TempDir()+"/test.db")
// for integration tests against real SQLite.
package store
