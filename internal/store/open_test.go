package store

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/fhe-content-hub/config"
)

func TestOpenBackends(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	cases := map[string]*config.Config{
		"memory": {Store: config.StoreConfig{Backend: "memory"}},
		"redis":  {Store: config.StoreConfig{Backend: "redis"}, Redis: config.RedisConfig{Addr: mr.Addr()}},
		"sql":    {Store: config.StoreConfig{Backend: "sql"}, Database: config.DatabaseConfig{Driver: "sqlite", DSN: "file::memory:", MaxOpenConns: 1}},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			s, closeFn, err := Open(ctx, cfg)
			require.NoError(t, err)
			defer func() { assert.NoError(t, closeFn()) }()

			assert.True(t, s.IsAvailable(ctx))
			_, ok := s.(Publisher)
			assert.True(t, ok)
		})
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	_, _, err := Open(context.Background(), &config.Config{Store: config.StoreConfig{Backend: "ipfs"}})
	assert.Error(t, err)
}
