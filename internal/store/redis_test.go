package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/fhe-content-hub/internal/model"
)

func setupRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client), mr
}

func TestRedisStoreGetSet(t *testing.T) {
	ctx := context.Background()
	s, mr := setupRedisStore(t)

	assert.True(t, s.IsAvailable(ctx))

	v, err := s.GetData(ctx, "content_keys")
	require.NoError(t, err)
	assert.Empty(t, v)

	tx, err := s.SetData(ctx, "content_keys", []byte(`["a"]`))
	require.NoError(t, err)
	require.NoError(t, tx.Wait(ctx))

	got, err := mr.Get("content_keys")
	require.NoError(t, err)
	assert.Equal(t, `["a"]`, got)
}

func TestRedisStoreUnavailable(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	s := NewRedisStore(client)
	mr.Close()

	assert.False(t, s.IsAvailable(ctx))
	_, err = s.GetData(ctx, "content_keys")
	assert.Error(t, err)
}

func TestRedisStoreGetManyAndKeys(t *testing.T) {
	ctx := context.Background()
	s, mr := setupRedisStore(t)
	require.NoError(t, mr.Set("content_a", "1"))
	require.NoError(t, mr.Set("content_b", "2"))
	require.NoError(t, mr.Set("content_keys", "[]"))
	require.NoError(t, mr.Set("unrelated", "x"))

	vals, err := s.GetMany(ctx, []string{"content_a", "content_missing", "content_b"})
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("1"), nil, []byte("2")}, vals)

	keys, err := s.Keys(ctx, "content_")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"content_a", "content_b", "content_keys"}, keys)
}

func TestRedisStorePublishConcurrent(t *testing.T) {
	ctx := context.Background()
	s, mr := setupRedisStore(t)

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("id-%d", i)
			// retry on ErrConflict the way a caller would re-initiate
			for {
				_, err := s.Publish(ctx, model.RecordKey(id), []byte(`{"data":"x"}`), model.IndexKey, id)
				if !errors.Is(err, ErrConflict) {
					assert.NoError(t, err)
					return
				}
			}
		}(i)
	}
	wg.Wait()

	raw, err := mr.Get(model.IndexKey)
	require.NoError(t, err)
	keys, err := model.DecodeIndex([]byte(raw))
	require.NoError(t, err)
	assert.Len(t, keys, n)
	for i := 0; i < n; i++ {
		assert.True(t, mr.Exists(model.RecordKey(fmt.Sprintf("id-%d", i))))
	}
}

func TestRedisStorePublishIsIdempotentOnIndex(t *testing.T) {
	ctx := context.Background()
	s, mr := setupRedisStore(t)

	_, err := s.Publish(ctx, "content_x", []byte("{}"), model.IndexKey, "x")
	require.NoError(t, err)
	_, err = s.Publish(ctx, "content_x", []byte("{}"), model.IndexKey, "x")
	require.NoError(t, err)

	raw, err := mr.Get(model.IndexKey)
	require.NoError(t, err)
	assert.JSONEq(t, `["x"]`, raw)
}
