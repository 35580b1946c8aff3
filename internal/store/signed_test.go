package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/fhe-content-hub/internal/wallet"
)

func TestSignKeepsPublisher(t *testing.T) {
	mem := NewMemoryStore(0)
	_, ok := Sign(mem, wallet.AutoApprove).(Publisher)
	assert.True(t, ok)

	_, ok = Sign(readOnly{mem}, wallet.AutoApprove).(Publisher)
	assert.False(t, ok)
}

func TestSignedStoreRejection(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryStore(0)
	s := Sign(mem, wallet.RejectAll)

	_, err := s.SetData(ctx, "content_1", []byte("{}"))
	assert.ErrorIs(t, err, wallet.ErrUserRejected)

	_, err = s.(Publisher).Publish(ctx, "content_1", []byte("{}"), "content_keys", "1")
	assert.ErrorIs(t, err, wallet.ErrUserRejected)
	assert.Zero(t, mem.Writes())

	// reads pass through untouched
	mem.Put("content_1", []byte("{}"))
	v, err := s.GetData(ctx, "content_1")
	require.NoError(t, err)
	assert.Equal(t, "{}", string(v))
}

func TestSignedStoreApproves(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryStore(0)
	var signed []string
	signer := wallet.SignerFunc(func(_ context.Context, key string, _ []byte) error {
		signed = append(signed, key)
		return nil
	})

	tx, err := Sign(mem, signer).SetData(ctx, "content_1", []byte("{}"))
	require.NoError(t, err)
	require.NoError(t, tx.Wait(ctx))
	assert.Equal(t, []string{"content_1"}, signed)
	assert.EqualValues(t, 1, mem.Writes())
}

// readOnly hides the optional interfaces of the wrapped store.
type readOnly struct{ Store }
