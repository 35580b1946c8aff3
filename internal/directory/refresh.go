package directory

import (
	"context"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/d60-Lab/fhe-content-hub/internal/model"
	"github.com/d60-Lab/fhe-content-hub/internal/store"
	"github.com/d60-Lab/fhe-content-hub/pkg/logger"
)

// Refresh re-reads the index and every record it names, then replaces the
// local list. It never fails: an unavailable store or unreadable index keeps
// the previous list, and a bad record is skipped.
func (c *Client) Refresh(ctx context.Context) []model.ContentRecord {
	ctx, span := c.tracer.Start(ctx, "directory.Refresh")
	defer span.End()

	if !c.store.IsAvailable(ctx) {
		logger.Error("content store is not available")
		span.SetAttributes(attribute.Bool("store.available", false))
		return c.Contents()
	}

	raw, err := c.store.GetData(ctx, model.IndexKey)
	if err != nil {
		logger.Error("load content index failed", zap.Error(err))
		span.RecordError(err)
		return c.Contents()
	}
	keys, err := model.DecodeIndex(raw)
	if err != nil {
		logger.Error("parse content index failed", zap.Error(err))
		keys = nil
	}
	keys = dedupe(keys)

	list := c.fetchRecords(ctx, keys)
	sort.SliceStable(list, func(i, j int) bool { return list[i].PublishedAt > list[j].PublishedAt })
	span.SetAttributes(attribute.Int("index.size", len(keys)), attribute.Int("records.loaded", len(list)))

	c.mu.Lock()
	c.records = list
	c.mu.Unlock()

	return append([]model.ContentRecord(nil), list...)
}

func (c *Client) fetchRecords(ctx context.Context, keys []string) []model.ContentRecord {
	list := make([]model.ContentRecord, 0, len(keys))
	if len(keys) == 0 {
		return list
	}

	if bg, ok := c.store.(store.BatchGetter); ok {
		recordKeys := make([]string, len(keys))
		for i, k := range keys {
			recordKeys[i] = model.RecordKey(k)
		}
		vals, err := bg.GetMany(ctx, recordKeys)
		if err == nil {
			for i, v := range vals {
				if rec, ok := parseRecord(keys[i], v); ok {
					list = append(list, rec)
				}
			}
			return list
		}
		logger.Warn("batch record read failed, falling back to single reads", zap.Error(err))
	}

	for _, k := range keys {
		v, err := c.store.GetData(ctx, model.RecordKey(k))
		if err != nil {
			logger.Warn("load content failed", zap.String("id", k), zap.Error(err))
			continue
		}
		if rec, ok := parseRecord(k, v); ok {
			list = append(list, rec)
		}
	}
	return list
}

// parseRecord skips absent values silently and logs unparsable ones.
func parseRecord(id string, raw []byte) (model.ContentRecord, bool) {
	if len(raw) == 0 {
		return model.ContentRecord{}, false
	}
	rec, err := model.DecodeRecord(id, raw)
	if err != nil {
		logger.Warn("parse content failed", zap.String("id", id), zap.Error(err))
		return model.ContentRecord{}, false
	}
	return rec, true
}

func dedupe(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := keys[:0:0]
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
