package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/d60-Lab/fhe-content-hub/config"
	"github.com/d60-Lab/fhe-content-hub/pkg/database"
	"github.com/d60-Lab/fhe-content-hub/pkg/logger"
	redisclient "github.com/d60-Lab/fhe-content-hub/pkg/redis"
)

// Open builds the backend named by cfg.Store.Backend. The returned close
// func releases its connections.
func Open(ctx context.Context, cfg *config.Config) (Store, func() error, error) {
	switch cfg.Store.Backend {
	case "", "memory":
		logger.Info("using in-memory content store", zap.Duration("write_latency", cfg.Store.WriteLatency))
		return NewMemoryStore(cfg.Store.WriteLatency), func() error { return nil }, nil

	case "redis":
		client, err := redisclient.NewClient(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using redis content store", zap.String("addr", cfg.Redis.Addr))
		return NewRedisStore(client), client.Close, nil

	case "sql":
		db, err := database.InitDB(cfg)
		if err != nil {
			return nil, nil, err
		}
		s := NewSQLStore(db)
		if err := s.InitSchema(); err != nil {
			return nil, nil, fmt.Errorf("migrate kv_entries: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using sql content store", zap.String("driver", cfg.Database.Driver))
		return s, sqlDB.Close, nil

	default:
		return nil, nil, fmt.Errorf("unsupported store backend %q", cfg.Store.Backend)
	}
}
