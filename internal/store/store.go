// ABOUTME: Store interface and errors for the DefLink key-value persistence layer
// ABOUTME: Keys map to opaque JSON values; every operation is single-key atomic

package store

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a requested key does not exist
var ErrNotFound = errors.New("not found")

// StorageError wraps a failure of the underlying backend.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("store %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("store %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// IsStorageError reports whether err came from a failing backend.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// ListOptions narrows a ListKeys call.
type ListOptions struct {
	// After skips every key less than or equal to it. Empty starts at the
	// beginning of the prefix range.
	After string
	// Limit caps the number of keys returned. Zero or negative means no limit.
	Limit int
}

// Store defines the key-value contract the entity layer is built on.
type Store interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put writes value under key, replacing any previous value.
	Put(ctx context.Context, key string, value []byte) error

	// PutIfAbsent writes value only if key is unused. It reports whether the
	// write happened.
	PutIfAbsent(ctx context.Context, key string, value []byte) (bool, error)

	// Delete removes key and reports whether it existed.
	Delete(ctx context.Context, key string) (bool, error)

	// ListKeys returns the keys starting with prefix in ascending byte order.
	ListKeys(ctx context.Context, prefix string, opts ListOptions) ([]string, error)

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases any resources held by the store
	Close() error
}
