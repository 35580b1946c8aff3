// Package store defines the external key-value contract the directory client
// consumes and its backends.
package store

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrUnavailable = errors.New("store unavailable")
	// ErrConflict is returned when an optimistic index update keeps losing races.
	ErrConflict = errors.New("index update conflict")
)

// Store is the consumed shape of the content contract.
type Store interface {
	// IsAvailable is a liveness probe; callers skip reads when it is false.
	IsAvailable(ctx context.Context) bool
	// GetData returns the stored bytes, or an empty slice and nil error when the key is absent.
	GetData(ctx context.Context, key string) ([]byte, error)
	// SetData submits a write. Callers must Wait on the returned Tx before relying on it.
	SetData(ctx context.Context, key string, value []byte) (Tx, error)
}

// Tx is a submitted write.
type Tx interface {
	Hash() string
	// Wait blocks until the write settles.
	Wait(ctx context.Context) error
}

// Publisher writes a record and appends its id to the index as one atomic step.
type Publisher interface {
	Publish(ctx context.Context, recordKey string, value []byte, indexKey, id string) (Tx, error)
}

// BatchGetter fetches several keys in one round trip. Absent keys yield nil entries.
type BatchGetter interface {
	GetMany(ctx context.Context, keys []string) ([][]byte, error)
}

// Scanner enumerates keys with a prefix.
type Scanner interface {
	Keys(ctx context.Context, prefix string) ([]string, error)
}

type settledTx struct {
	hash string
	err  error
}

func (t settledTx) Hash() string { return t.hash }
func (t settledTx) Wait(ctx context.Context) error { return t.err }

// pendingTx settles when done is closed.
type pendingTx struct {
	hash string
	done chan struct{}
	err  error
}

func newPendingTx() *pendingTx {
	return &pendingTx{hash: newTxHash(), done: make(chan struct{})}
}

func (t *pendingTx) Hash() string { return t.hash }

func (t *pendingTx) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *pendingTx) settle(err error) {
	t.err = err
	close(t.done)
}

func newTxHash() string {
	return "0x" + strings.ReplaceAll(uuid.NewString(), "-", "")
}
