// ABOUTME: Typed single-record accessor over the key-value store
// ABOUTME: Provides Exists, State, Save and field-wise Patch for one entity id

package entity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/deflink/deflink/internal/store"
)

// SingletonID is the id used by process-wide records such as settings.
const SingletonID = "singleton"

var (
	// ErrInvalidID is returned for ids that cannot be used in a key.
	ErrInvalidID = errors.New("invalid entity id")

	// ErrExists is returned by Create when a record with the id already exists.
	ErrExists = errors.New("entity already exists")
)

// Kind describes one entity type.
type Kind[T any] struct {
	// Name is the entity type used in record keys, e.g. "oem-request".
	Name string
	// Index names the collection index, e.g. "oem-requests". Only used by
	// Indexed.
	Index string
	// Initial returns the state reported for a record that does not exist.
	Initial func() T
	// ID extracts the id from a record.
	ID func(T) string
	// WithID returns a copy of the record carrying id.
	WithID func(T, string) T
	// Seed lists the records written by EnsureSeed. Each must carry its id.
	Seed []T
}

func (k *Kind[T]) initial() T {
	if k.Initial == nil {
		var zero T
		return zero
	}
	return k.Initial()
}

func (k *Kind[T]) recordPrefix() string {
	return "e/" + k.Name + "/"
}

func (k *Kind[T]) recordKey(id string) string {
	return k.recordPrefix() + id
}

// Patch is a typed partial update. Apply copies the fields that are set
// onto the record.
type Patch[T any] interface {
	Apply(*T)
}

// PatchFunc adapts a function to the Patch interface.
type PatchFunc[T any] func(*T)

// Apply calls f(v).
func (f PatchFunc[T]) Apply(v *T) { f(v) }

// Entity reads and writes a single record.
type Entity[T any] struct {
	store store.Store
	kind  *Kind[T]
	id    string
}

// New binds an Entity to the record with the given id.
func New[T any](s store.Store, kind *Kind[T], id string) *Entity[T] {
	return &Entity[T]{store: s, kind: kind, id: id}
}

// Key returns the store key of the record.
func (e *Entity[T]) Key() string { return e.kind.recordKey(e.id) }

// Exists reports whether the record is stored.
func (e *Entity[T]) Exists(ctx context.Context) (bool, error) {
	if err := validateID(e.id); err != nil {
		return false, err
	}
	_, err := e.store.Get(ctx, e.Key())
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// State returns the stored record, or the kind's initial state when absent.
func (e *Entity[T]) State(ctx context.Context) (T, error) {
	v, _, err := e.load(ctx)
	return v, err
}

// load returns the record and whether it was found.
func (e *Entity[T]) load(ctx context.Context) (T, bool, error) {
	if err := validateID(e.id); err != nil {
		var zero T
		return zero, false, err
	}
	data, err := e.store.Get(ctx, e.Key())
	if errors.Is(err, store.ErrNotFound) {
		return e.kind.initial(), false, nil
	}
	if err != nil {
		var zero T
		return zero, false, err
	}
	v, err := decode[T](data)
	if err != nil {
		return v, false, fmt.Errorf("decoding %s %s: %w", e.kind.Name, e.id, err)
	}
	return v, true, nil
}

// Save overwrites the record with v.
func (e *Entity[T]) Save(ctx context.Context, v T) error {
	if err := validateID(e.id); err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s %s: %w", e.kind.Name, e.id, err)
	}
	return e.store.Put(ctx, e.Key(), data)
}

// SaveIfAbsent writes v only when no record exists yet. It reports whether
// the write happened.
func (e *Entity[T]) SaveIfAbsent(ctx context.Context, v T) (bool, error) {
	if err := validateID(e.id); err != nil {
		return false, err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return false, fmt.Errorf("encoding %s %s: %w", e.kind.Name, e.id, err)
	}
	return e.store.PutIfAbsent(ctx, e.Key(), data)
}

// Patch reads the current state, applies p and writes the result back.
// Concurrent patches are not serialized; the last write wins.
func (e *Entity[T]) Patch(ctx context.Context, p Patch[T]) (T, error) {
	v, err := e.State(ctx)
	if err != nil {
		return v, err
	}
	p.Apply(&v)
	if err := e.Save(ctx, v); err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}

// Update is Patch for records that must already exist. It returns
// store.ErrNotFound when the record is absent.
func (e *Entity[T]) Update(ctx context.Context, p Patch[T]) (T, error) {
	v, found, err := e.load(ctx)
	if err != nil {
		return v, err
	}
	if !found {
		var zero T
		return zero, store.ErrNotFound
	}
	p.Apply(&v)
	if err := e.Save(ctx, v); err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}

func decode[T any](data []byte) (T, error) {
	var v T
	err := json.Unmarshal(data, &v)
	return v, err
}

func validateID(id string) error {
	if id == "" || strings.ContainsAny(id, "/\x00") {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}
