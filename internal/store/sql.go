package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/fhe-content-hub/internal/model"
)

// SQLStore keeps the key-value contract in the kv_entries table.
type SQLStore struct {
	db *gorm.DB
}

func NewSQLStore(db *gorm.DB) *SQLStore { return &SQLStore{db: db} }

// InitSchema migrates kv_entries.
func (s *SQLStore) InitSchema() error {
	if err := s.db.AutoMigrate(&model.KVEntry{}); err != nil {
		return fmt.Errorf("failed to migrate kv_entries table: %w", err)
	}
	return nil
}

func (s *SQLStore) IsAvailable(ctx context.Context) bool {
	sqlDB, err := s.db.DB()
	if err != nil {
		return false
	}
	return sqlDB.PingContext(ctx) == nil
}

func (s *SQLStore) GetData(ctx context.Context, key string) ([]byte, error) {
	var e model.KVEntry
	err := s.db.WithContext(ctx).Where("store_key = ?", key).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return []byte{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return e.Value, nil
}

func (s *SQLStore) GetMany(ctx context.Context, keys []string) ([][]byte, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	var rows []model.KVEntry
	if err := s.db.WithContext(ctx).Where("store_key IN ?", keys).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("get many: %w", err)
	}
	byKey := make(map[string][]byte, len(rows))
	for _, r := range rows {
		byKey[r.Key] = r.Value
	}
	out := make([][]byte, len(keys))
	for i, k := range keys {
		out[i] = byKey[k]
	}
	return out, nil
}

func (s *SQLStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	pattern := strings.NewReplacer("%", `\%`, "_", `\_`).Replace(prefix) + "%"
	err := s.db.WithContext(ctx).
		Model(&model.KVEntry{}).
		Where(`store_key LIKE ? ESCAPE '\'`, pattern).
		Order("store_key").
		Pluck("store_key", &keys).Error
	if err != nil {
		return nil, fmt.Errorf("list keys %s: %w", prefix, err)
	}
	return keys, nil
}

func (s *SQLStore) SetData(ctx context.Context, key string, value []byte) (Tx, error) {
	if err := upsert(s.db.WithContext(ctx), key, value); err != nil {
		return nil, fmt.Errorf("set %s: %w", key, err)
	}
	return settledTx{hash: newTxHash()}, nil
}

// Publish writes the record and appends the index in one transaction,
// locking the index row on postgres.
func (s *SQLStore) Publish(ctx context.Context, recordKey string, value []byte, indexKey, id string) (Tx, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := upsert(tx, recordKey, value); err != nil {
			return err
		}
		seed := &model.KVEntry{Key: indexKey, Value: []byte("[]")}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(seed).Error; err != nil {
			return err
		}

		q := tx
		if tx.Dialector.Name() == "postgres" {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var idx model.KVEntry
		if err := q.Where("store_key = ?", indexKey).First(&idx).Error; err != nil {
			return err
		}
		next, changed, err := model.AppendIndex(idx.Value, id)
		if err != nil || !changed {
			return err
		}
		return tx.Model(&model.KVEntry{}).
			Where("store_key = ?", indexKey).
			Updates(map[string]any{"store_value": next, "updated_at": time.Now()}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("publish %s: %w", recordKey, err)
	}
	return settledTx{hash: newTxHash()}, nil
}

func upsert(db *gorm.DB, key string, value []byte) error {
	e := &model.KVEntry{Key: key, Value: value}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "store_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"store_value", "updated_at"}),
	}).Create(e).Error
}
