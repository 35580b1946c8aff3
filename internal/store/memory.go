package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/d60-Lab/fhe-content-hub/internal/model"
)

// MemoryStore is an in-process store. With a non-zero latency every write
// settles asynchronously, like a transaction waiting for confirmation.
type MemoryStore struct {
	mu      sync.RWMutex
	data    map[string][]byte
	failing map[string]error

	latency   time.Duration
	available atomic.Bool
	writes    atomic.Int64
}

func NewMemoryStore(latency time.Duration) *MemoryStore {
	s := &MemoryStore{data: make(map[string][]byte), failing: make(map[string]error), latency: latency}
	s.available.Store(true)
	return s
}

// SetAvailable toggles the liveness probe and read/write access.
func (s *MemoryStore) SetAvailable(ok bool) { s.available.Store(ok) }

// Put seeds a raw value, bypassing transactions.
func (s *MemoryStore) Put(key string, value []byte) {
	s.mu.Lock()
	s.data[key] = append([]byte(nil), value...)
	s.mu.Unlock()
}

// FailOn makes every read and write of key return err; nil clears it.
func (s *MemoryStore) FailOn(key string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failing, key)
		return
	}
	s.failing[key] = err
}

// Writes reports how many writes have been applied.
func (s *MemoryStore) Writes() int64 { return s.writes.Load() }

func (s *MemoryStore) IsAvailable(ctx context.Context) bool { return s.available.Load() }

func (s *MemoryStore) GetData(ctx context.Context, key string) ([]byte, error) {
	if !s.available.Load() {
		return nil, ErrUnavailable
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failing[key]; err != nil {
		return nil, err
	}
	v, ok := s.data[key]
	if !ok {
		return []byte{}, nil
	}
	return append([]byte(nil), v...), nil
}

func (s *MemoryStore) GetMany(ctx context.Context, keys []string) ([][]byte, error) {
	if !s.available.Load() {
		return nil, ErrUnavailable
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([][]byte, len(keys))
	for i, k := range keys {
		if err := s.failing[k]; err != nil {
			return nil, err
		}
		if v, ok := s.data[k]; ok {
			out[i] = append([]byte(nil), v...)
		}
	}
	return out, nil
}

func (s *MemoryStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	if !s.available.Load() {
		return nil, ErrUnavailable
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var keys []string
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *MemoryStore) SetData(ctx context.Context, key string, value []byte) (Tx, error) {
	if !s.available.Load() {
		return nil, ErrUnavailable
	}
	if err := s.failure(key); err != nil {
		return nil, err
	}
	value = append([]byte(nil), value...)
	return s.submit(func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.data[key] = value
		s.writes.Add(1)
		return nil
	}), nil
}

// Publish applies the record write and the index append under one lock.
func (s *MemoryStore) Publish(ctx context.Context, recordKey string, value []byte, indexKey, id string) (Tx, error) {
	if !s.available.Load() {
		return nil, ErrUnavailable
	}
	for _, k := range []string{recordKey, indexKey} {
		if err := s.failure(k); err != nil {
			return nil, err
		}
	}
	value = append([]byte(nil), value...)
	return s.submit(func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		next, changed, err := model.AppendIndex(s.data[indexKey], id)
		if err != nil {
			return err
		}
		s.data[recordKey] = value
		s.writes.Add(1)
		if changed {
			s.data[indexKey] = next
			s.writes.Add(1)
		}
		return nil
	}), nil
}

func (s *MemoryStore) failure(key string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.failing[key]
}

func (s *MemoryStore) submit(apply func() error) Tx {
	if s.latency <= 0 {
		return settledTx{hash: newTxHash(), err: apply()}
	}
	tx := newPendingTx()
	go func() {
		time.Sleep(s.latency)
		tx.settle(apply())
	}()
	return tx
}
