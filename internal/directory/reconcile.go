package directory

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/d60-Lab/fhe-content-hub/internal/model"
	"github.com/d60-Lab/fhe-content-hub/internal/store"
	"github.com/d60-Lab/fhe-content-hub/pkg/logger"
)

// Reconcile finds content_<id> records missing from the index, which a failed
// index write can leave behind, and appends them. It returns how many ids were
// re-indexed and refreshes the list when any were.
func (c *Client) Reconcile(ctx context.Context) (int, error) {
	ctx, span := c.tracer.Start(ctx, "directory.Reconcile")
	defer span.End()

	c.mu.RLock()
	writer := c.writer
	c.mu.RUnlock()
	if writer == nil {
		return 0, ErrWalletNotConnected
	}
	sc, ok := c.store.(store.Scanner)
	if !ok {
		return 0, ErrReconcileUnsupported
	}

	keys, err := sc.Keys(ctx, model.RecordPrefix)
	if err != nil {
		return 0, fmt.Errorf("list records: %w", err)
	}
	raw, err := c.store.GetData(ctx, model.IndexKey)
	if err != nil {
		return 0, fmt.Errorf("load index: %w", err)
	}
	indexed, _ := model.DecodeIndex(raw)
	known := make(map[string]struct{}, len(indexed))
	for _, id := range indexed {
		known[id] = struct{}{}
	}

	var orphans []string
	for _, k := range keys {
		if k == model.IndexKey {
			continue
		}
		id := strings.TrimPrefix(k, model.RecordPrefix)
		if _, ok := known[id]; ok {
			continue
		}
		v, err := c.store.GetData(ctx, k)
		if err != nil {
			logger.Warn("read orphan candidate failed", zap.String("id", id), zap.Error(err))
			continue
		}
		if _, ok := parseRecord(id, v); ok {
			orphans = append(orphans, id)
		}
	}
	if len(orphans) == 0 {
		return 0, nil
	}

	if err := c.reindex(ctx, writer, orphans); err != nil {
		return 0, err
	}
	logger.Info("re-indexed orphan records", zap.Int("count", len(orphans)))
	c.Refresh(ctx)
	return len(orphans), nil
}

func (c *Client) reindex(ctx context.Context, writer store.Store, ids []string) error {
	pub, ok := writer.(store.Publisher)
	if !ok {
		return appendIndex(ctx, writer, ids...)
	}
	for _, id := range ids {
		v, err := c.store.GetData(ctx, model.RecordKey(id))
		if err != nil {
			return fmt.Errorf("reload %s: %w", id, err)
		}
		tx, err := pub.Publish(ctx, model.RecordKey(id), v, model.IndexKey, id)
		if err != nil {
			return fmt.Errorf("reindex %s: %w", id, err)
		}
		if err := tx.Wait(ctx); err != nil {
			return fmt.Errorf("reindex %s: %w", id, err)
		}
	}
	return nil
}
