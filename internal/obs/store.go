// ABOUTME: Store decorator recording per-operation counts and latencies
// ABOUTME: Wraps any store.Store without changing its behavior

package obs

import (
	"context"
	"errors"
	"time"

	"github.com/deflink/deflink/internal/store"
)

type instrumentedStore struct {
	next    store.Store
	metrics *Metrics
}

// InstrumentStore returns s wrapped with metrics. A nil m returns s.
func (m *Metrics) InstrumentStore(s store.Store) store.Store {
	if m == nil {
		return s
	}
	return &instrumentedStore{next: s, metrics: m}
}

func (s *instrumentedStore) Get(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	v, err := s.next.Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		s.metrics.observeStore("get", start, nil)
	} else {
		s.metrics.observeStore("get", start, err)
	}
	return v, err
}

func (s *instrumentedStore) Put(ctx context.Context, key string, value []byte) error {
	start := time.Now()
	err := s.next.Put(ctx, key, value)
	s.metrics.observeStore("put", start, err)
	return err
}

func (s *instrumentedStore) PutIfAbsent(ctx context.Context, key string, value []byte) (bool, error) {
	start := time.Now()
	ok, err := s.next.PutIfAbsent(ctx, key, value)
	s.metrics.observeStore("put_if_absent", start, err)
	return ok, err
}

func (s *instrumentedStore) Delete(ctx context.Context, key string) (bool, error) {
	start := time.Now()
	ok, err := s.next.Delete(ctx, key)
	s.metrics.observeStore("delete", start, err)
	return ok, err
}

func (s *instrumentedStore) ListKeys(ctx context.Context, prefix string, opts store.ListOptions) ([]string, error) {
	start := time.Now()
	keys, err := s.next.ListKeys(ctx, prefix, opts)
	s.metrics.observeStore("list", start, err)
	return keys, err
}

func (s *instrumentedStore) Ping(ctx context.Context) error {
	return s.next.Ping(ctx)
}

func (s *instrumentedStore) Close() error {
	return s.next.Close()
}
