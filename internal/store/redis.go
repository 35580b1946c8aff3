package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/d60-Lab/fhe-content-hub/internal/model"
)

const publishRetries = 8

// RedisStore keeps every key as a plain Redis string.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) IsAvailable(ctx context.Context) bool {
	return s.client != nil && s.client.Ping(ctx).Err() == nil
}

func (s *RedisStore) GetData(ctx context.Context, key string) ([]byte, error) {
	v, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return []byte{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return v, nil
}

// GetMany uses MGET; missing keys come back as nil entries.
func (s *RedisStore) GetMany(ctx context.Context, keys []string) ([][]byte, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget: %w", err)
	}
	out := make([][]byte, len(keys))
	for i, v := range vals {
		if str, ok := v.(string); ok {
			out[i] = []byte(str)
		}
	}
	return out, nil
}

func (s *RedisStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	var (
		keys   []string
		cursor uint64
	)
	for {
		batch, next, err := s.client.Scan(ctx, cursor, prefix+"*", 256).Result()
		if err != nil {
			return nil, fmt.Errorf("redis scan %s*: %w", prefix, err)
		}
		keys = append(keys, batch...)
		if next == 0 {
			return keys, nil
		}
		cursor = next
	}
}

func (s *RedisStore) SetData(ctx context.Context, key string, value []byte) (Tx, error) {
	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		return nil, fmt.Errorf("redis set %s: %w", key, err)
	}
	return settledTx{hash: newTxHash()}, nil
}

// Publish WATCHes the index and writes record + index in one MULTI block,
// retrying when another writer touched the index in between.
func (s *RedisStore) Publish(ctx context.Context, recordKey string, value []byte, indexKey, id string) (Tx, error) {
	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, indexKey).Bytes()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		next, _, err := model.AppendIndex(raw, id)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, recordKey, value, 0)
			pipe.Set(ctx, indexKey, next, 0)
			return nil
		})
		return err
	}

	for i := 0; i < publishRetries; i++ {
		err := s.client.Watch(ctx, txf, indexKey)
		if err == nil {
			return settledTx{hash: newTxHash()}, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, fmt.Errorf("redis publish %s: %w", recordKey, err)
	}
	return nil, ErrConflict
}
