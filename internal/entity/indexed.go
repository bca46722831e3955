// ABOUTME: Append-ordered collections of entities with cursor pagination
// ABOUTME: Handles create/delete index maintenance, first-run seeding and index repair

package entity

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	mathrand "math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/deflink/deflink/internal/store"
)

const (
	// DefaultPageSize is used when List is called without a positive limit.
	DefaultPageSize = 100

	scanBatch = 500
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)
)

// newIndexID returns a ULID that sorts after every ULID issued before it by
// this process.
func newIndexID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// seedIndexID returns the fixed ULID used for the seed record at position i.
func seedIndexID(i int) string {
	var u ulid.ULID
	binary.BigEndian.PutUint64(u[8:], uint64(i)+1)
	return u.String()
}

func isSeedIndexID(s string) bool {
	u, err := ulid.ParseStrict(s)
	return err == nil && u.Time() == 0
}

// Page is one slice of a listing.
type Page[T any] struct {
	Items []T `json:"items"`
	// Next is the cursor for the following page; empty when exhausted.
	Next string `json:"next,omitempty"`
}

// RepairReport summarizes what Repair changed.
type RepairReport struct {
	Reindexed int `json:"reindexed"`
	Dropped   int `json:"dropped"`
}

// Indexed is a collection of entities of one kind with an append-ordered index.
type Indexed[T any] struct {
	store  store.Store
	kind   *Kind[T]
	newID  func() string
	seedMu sync.Mutex
	logger *slog.Logger
}

// NewIndexed creates the collection accessor for kind.
func NewIndexed[T any](s store.Store, kind *Kind[T]) *Indexed[T] {
	return &Indexed[T]{
		store:  s,
		kind:   kind,
		newID:  uuid.NewString,
		logger: slog.Default().With("component", "entity", "index", kind.Index),
	}
}

// Entity returns the single-record accessor for id.
func (x *Indexed[T]) Entity(id string) *Entity[T] {
	return New(x.store, x.kind, id)
}

func (x *Indexed[T]) indexPrefix() string {
	return "i/" + x.kind.Index + "/"
}

func (x *Indexed[T]) markerKey() string {
	return "s/" + x.kind.Index
}

// Create writes v and appends it to the index. A fresh UUID is assigned
// when v carries no id. Returns ErrExists if the id is already taken.
func (x *Indexed[T]) Create(ctx context.Context, v T) (T, error) {
	id := x.kind.ID(v)
	if id == "" {
		id = x.newID()
		v = x.kind.WithID(v, id)
	}

	created, err := x.Entity(id).SaveIfAbsent(ctx, v)
	if err != nil {
		var zero T
		return zero, err
	}
	if !created {
		var zero T
		return zero, fmt.Errorf("%s %s: %w", x.kind.Name, id, ErrExists)
	}

	if err := x.appendToIndex(ctx, id); err != nil {
		x.logger.Error("record written without index entry", "id", id, "error", err)
		var zero T
		return zero, err
	}

	x.logger.Debug("created entity", "id", id)
	return v, nil
}

// appendToIndex gives id its index entry. The first writer of the pointer
// key picks the position; later callers reuse it, so Create and a concurrent
// Repair end up writing the same entry.
func (x *Indexed[T]) appendToIndex(ctx context.Context, id string) error {
	indexID := newIndexID()
	claimed, err := x.store.PutIfAbsent(ctx, x.pointerKey(id), []byte(indexID))
	if err != nil {
		return err
	}
	if !claimed {
		existing, err := x.store.Get(ctx, x.pointerKey(id))
		if err != nil {
			return err
		}
		indexID = string(existing)
	}
	return x.store.Put(ctx, x.indexKey(indexID, id), []byte(`""`))
}

// pointerKey holds the index id of the record's entry.
func (x *Indexed[T]) pointerKey(id string) string {
	return "r/" + x.kind.Index + "/" + id
}

func (x *Indexed[T]) indexKey(indexID, id string) string {
	return x.indexPrefix() + indexID + "/" + id
}

// idFromIndexKey extracts the record id from an index key.
func (x *Indexed[T]) idFromIndexKey(key string) string {
	rest := strings.TrimPrefix(key, x.indexPrefix())
	_, id, _ := strings.Cut(rest, "/")
	return id
}

// List returns up to limit records following cursor in index order.
func (x *Indexed[T]) List(ctx context.Context, cursor string, limit int) (Page[T], error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}

	opts := store.ListOptions{Limit: limit + 1}
	if cursor != "" {
		opts.After = x.indexPrefix() + cursor
	}
	keys, err := x.store.ListKeys(ctx, x.indexPrefix(), opts)
	if err != nil {
		return Page[T]{}, err
	}

	page := Page[T]{Items: make([]T, 0, min(len(keys), limit))}
	if len(keys) > limit {
		keys = keys[:limit]
		page.Next = strings.TrimPrefix(keys[limit-1], x.indexPrefix())
	}

	seen := make(map[string]bool, len(keys))
	for _, key := range keys {
		id := x.idFromIndexKey(key)
		if seen[id] {
			continue
		}
		seen[id] = true

		v, found, err := x.Entity(id).load(ctx)
		if err != nil {
			return Page[T]{}, err
		}
		if !found {
			// Dangling entry from an interrupted delete.
			continue
		}
		page.Items = append(page.Items, v)
	}
	return page, nil
}

// All returns every record in index order. The result is never nil, and a
// record with more than one index entry appears once, at its first entry.
func (x *Indexed[T]) All(ctx context.Context) ([]T, error) {
	var (
		all    = []T{}
		seen   = make(map[string]bool)
		cursor string
	)
	for {
		page, err := x.List(ctx, cursor, DefaultPageSize)
		if err != nil {
			return nil, err
		}
		for _, v := range page.Items {
			id := x.kind.ID(v)
			if seen[id] {
				continue
			}
			seen[id] = true
			all = append(all, v)
		}
		if page.Next == "" {
			return all, nil
		}
		cursor = page.Next
	}
}

// Delete removes the record and its index entry. It reports whether the
// record existed; deleting an absent id is not an error.
func (x *Indexed[T]) Delete(ctx context.Context, id string) (bool, error) {
	if err := validateID(id); err != nil {
		return false, err
	}

	indexID, err := x.store.Get(ctx, x.pointerKey(id))
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return false, err
	}

	existed, err := x.store.Delete(ctx, x.kind.recordKey(id))
	if err != nil {
		return false, err
	}

	if len(indexID) > 0 {
		if _, err := x.store.Delete(ctx, x.indexKey(string(indexID), id)); err != nil {
			return existed, err
		}
		if _, err := x.store.Delete(ctx, x.pointerKey(id)); err != nil {
			return existed, err
		}
	}

	if existed {
		x.logger.Debug("deleted entity", "id", id)
	}
	return existed, nil
}

// EnsureSeed writes the kind's seed records if the collection has never
// been seeded and holds no other records. It is safe to call repeatedly and
// from several processes at once.
func (x *Indexed[T]) EnsureSeed(ctx context.Context) error {
	if seeded, err := x.seeded(ctx); err != nil || seeded {
		return err
	}

	x.seedMu.Lock()
	defer x.seedMu.Unlock()

	if seeded, err := x.seeded(ctx); err != nil || seeded {
		return err
	}

	first, err := x.store.ListKeys(ctx, x.indexPrefix(), store.ListOptions{Limit: 1})
	if err != nil {
		return err
	}
	if len(first) > 0 && !isSeedIndexID(x.indexIDFromKey(first[0])) {
		// Collection already holds created records.
		return x.putMarker(ctx, 0)
	}

	for i, rec := range x.kind.Seed {
		id := x.kind.ID(rec)
		if err := x.Entity(id).Save(ctx, rec); err != nil {
			return fmt.Errorf("seeding %s %s: %w", x.kind.Name, id, err)
		}
		if err := x.store.Put(ctx, x.pointerKey(id), []byte(seedIndexID(i))); err != nil {
			return fmt.Errorf("indexing seed %s %s: %w", x.kind.Name, id, err)
		}
		if err := x.store.Put(ctx, x.indexKey(seedIndexID(i), id), []byte(`""`)); err != nil {
			return fmt.Errorf("indexing seed %s %s: %w", x.kind.Name, id, err)
		}
	}

	if err := x.putMarker(ctx, len(x.kind.Seed)); err != nil {
		return err
	}
	x.logger.Info("seeded collection", "records", len(x.kind.Seed))
	return nil
}

func (x *Indexed[T]) seeded(ctx context.Context) (bool, error) {
	_, err := x.store.Get(ctx, x.markerKey())
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (x *Indexed[T]) indexIDFromKey(key string) string {
	rest := strings.TrimPrefix(key, x.indexPrefix())
	indexID, _, _ := strings.Cut(rest, "/")
	return indexID
}

type seedMarker struct {
	SeededAt time.Time `json:"seededAt"`
	Records  int       `json:"records"`
}

func (x *Indexed[T]) putMarker(ctx context.Context, n int) error {
	data, err := json.Marshal(seedMarker{SeededAt: time.Now().UTC(), Records: n})
	if err != nil {
		return err
	}
	_, err = x.store.PutIfAbsent(ctx, x.markerKey(), data)
	return err
}

// Repair reconciles records, index entries and pointers: records missing
// from the index are appended, entries whose record is gone or that repeat
// an id are dropped, and pointers without a record are removed.
func (x *Indexed[T]) Repair(ctx context.Context) (RepairReport, error) {
	var report RepairReport

	records := make(map[string]bool)
	err := x.scan(ctx, x.kind.recordPrefix(), func(key string) error {
		records[strings.TrimPrefix(key, x.kind.recordPrefix())] = false
		return nil
	})
	if err != nil {
		return report, err
	}

	pointerPrefix := x.pointerKey("")
	pointers := make(map[string]string)
	err = x.scan(ctx, pointerPrefix, func(key string) error {
		id := strings.TrimPrefix(key, pointerPrefix)
		if _, ok := records[id]; !ok {
			_, err := x.store.Delete(ctx, key)
			return err
		}
		indexID, err := x.store.Get(ctx, key)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
		pointers[id] = string(indexID)
		return nil
	})
	if err != nil {
		return report, err
	}

	err = x.scan(ctx, x.indexPrefix(), func(key string) error {
		id := x.idFromIndexKey(key)
		indexID := x.indexIDFromKey(key)
		indexed, exists := records[id]

		keep := exists && !indexed
		if keep {
			if ptr, ok := pointers[id]; ok {
				keep = ptr == indexID
			} else {
				// Entry from before pointers existed; adopt it.
				if _, err := x.store.PutIfAbsent(ctx, x.pointerKey(id), []byte(indexID)); err != nil {
					return err
				}
				pointers[id] = indexID
			}
		}
		if keep {
			records[id] = true
			return nil
		}

		if _, err := x.store.Delete(ctx, key); err != nil {
			return err
		}
		report.Dropped++
		return nil
	})
	if err != nil {
		return report, err
	}

	for id, indexed := range records {
		if indexed {
			continue
		}
		if err := x.appendToIndex(ctx, id); err != nil {
			return report, err
		}
		report.Reindexed++
	}

	if report.Reindexed > 0 || report.Dropped > 0 {
		x.logger.Info("repaired index", "reindexed", report.Reindexed, "dropped", report.Dropped)
	}
	return report, nil
}

// scan calls fn for every key with prefix, in batches.
func (x *Indexed[T]) scan(ctx context.Context, prefix string, fn func(key string) error) error {
	after := ""
	for {
		keys, err := x.store.ListKeys(ctx, prefix, store.ListOptions{After: after, Limit: scanBatch})
		if err != nil {
			return err
		}
		for _, key := range keys {
			if err := fn(key); err != nil {
				return err
			}
		}
		if len(keys) < scanBatch {
			return nil
		}
		after = keys[len(keys)-1]
	}
}
