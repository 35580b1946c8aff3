package store

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/d60-Lab/fhe-content-hub/internal/model"
)

func setupSQLStore(t *testing.T) *SQLStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// every connection to :memory: is a separate database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	s := NewSQLStore(db)
	require.NoError(t, s.InitSchema())
	return s
}

func TestSQLStoreGetSet(t *testing.T) {
	ctx := context.Background()
	s := setupSQLStore(t)
	assert.True(t, s.IsAvailable(ctx))

	v, err := s.GetData(ctx, "content_keys")
	require.NoError(t, err)
	assert.Empty(t, v)

	_, err = s.SetData(ctx, "content_keys", []byte(`["a"]`))
	require.NoError(t, err)
	_, err = s.SetData(ctx, "content_keys", []byte(`["a","b"]`))
	require.NoError(t, err)

	v, err = s.GetData(ctx, "content_keys")
	require.NoError(t, err)
	assert.JSONEq(t, `["a","b"]`, string(v))
}

func TestSQLStoreGetManyAndKeys(t *testing.T) {
	ctx := context.Background()
	s := setupSQLStore(t)
	for k, v := range map[string]string{"content_a": "1", "content_b": "2", "contentXc": "3"} {
		_, err := s.SetData(ctx, k, []byte(v))
		require.NoError(t, err)
	}

	vals, err := s.GetMany(ctx, []string{"content_b", "nope", "content_a"})
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("2"), nil, []byte("1")}, vals)

	// "_" in the prefix is literal, so contentXc does not match
	keys, err := s.Keys(ctx, "content_")
	require.NoError(t, err)
	assert.Equal(t, []string{"content_a", "content_b"}, keys)
}

func TestSQLStorePublish(t *testing.T) {
	ctx := context.Background()
	s := setupSQLStore(t)

	const n = 10
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("id-%d", i)
			_, err := s.Publish(ctx, model.RecordKey(id), []byte(`{}`), model.IndexKey, id)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	raw, err := s.GetData(ctx, model.IndexKey)
	require.NoError(t, err)
	keys, err := model.DecodeIndex(raw)
	require.NoError(t, err)
	assert.Len(t, keys, n)

	rec, err := s.GetData(ctx, model.RecordKey("id-3"))
	require.NoError(t, err)
	assert.Equal(t, "{}", string(rec))
}
