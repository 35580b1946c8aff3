package cacheperf

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/d60-Lab/fhe-content-hub/internal/model"
)

// SnapshotKey holds the naive whole-list cache.
const SnapshotKey = "content_snapshot"

// RecordLoader compares strategies for loading the whole content directory
// from Redis: one GET per record, a single MGET, a pipelined batch of GETs
// and a cached snapshot of the decoded list.
type RecordLoader struct {
	cache *redis.Client
	ttl   time.Duration

	roundTrips    atomic.Int64
	snapshotHits  atomic.Int64
	snapshotLoads atomic.Int64
}

// NewRecordLoader builds a loader over the store's Redis client. ttl bounds
// how stale the snapshot strategy may serve.
func NewRecordLoader(cache *redis.Client, ttl time.Duration) *RecordLoader {
	return &RecordLoader{cache: cache, ttl: ttl}
}

// LoadSequential reads each record with its own GET, as a plain key-value
// client does.
func (l *RecordLoader) LoadSequential(ctx context.Context) ([]model.ContentRecord, error) {
	ids, err := l.loadIndex(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.ContentRecord, 0, len(ids))
	for _, id := range ids {
		l.roundTrips.Add(1)
		raw, err := l.cache.Get(ctx, model.RecordKey(id)).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if rec, ok := decode(id, raw); ok {
			out = append(out, rec)
		}
	}
	return sortNewest(out), nil
}

// LoadBatched reads every record with one MGET.
func (l *RecordLoader) LoadBatched(ctx context.Context) ([]model.ContentRecord, error) {
	ids, err := l.loadIndex(ctx)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []model.ContentRecord{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = model.RecordKey(id)
	}
	l.roundTrips.Add(1)
	vals, err := l.cache.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	out := make([]model.ContentRecord, 0, len(ids))
	for i, v := range vals {
		str, ok := v.(string)
		if !ok {
			continue
		}
		if rec, ok := decode(ids[i], []byte(str)); ok {
			out = append(out, rec)
		}
	}
	return sortNewest(out), nil
}

// LoadPipelined queues one GET per record and sends them in a single pipeline.
func (l *RecordLoader) LoadPipelined(ctx context.Context) ([]model.ContentRecord, error) {
	ids, err := l.loadIndex(ctx)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []model.ContentRecord{}, nil
	}

	pipe := l.cache.Pipeline()
	cmds := make([]*redis.StringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.Get(ctx, model.RecordKey(id))
	}
	l.roundTrips.Add(1)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	out := make([]model.ContentRecord, 0, len(ids))
	for i, cmd := range cmds {
		raw, err := cmd.Bytes()
		if err != nil {
			continue
		}
		if rec, ok := decode(ids[i], raw); ok {
			out = append(out, rec)
		}
	}
	return sortNewest(out), nil
}

// LoadSnapshot serves the decoded list from SnapshotKey and rebuilds it with
// LoadBatched on a miss. Records published after the snapshot was taken stay
// invisible until it expires.
func (l *RecordLoader) LoadSnapshot(ctx context.Context) ([]model.ContentRecord, error) {
	l.roundTrips.Add(1)
	if data, err := l.cache.Get(ctx, SnapshotKey).Bytes(); err == nil {
		var out []model.ContentRecord
		if uErr := json.Unmarshal(data, &out); uErr == nil {
			l.snapshotHits.Add(1)
			return out, nil
		}
	}

	l.snapshotLoads.Add(1)
	out, err := l.LoadBatched(ctx)
	if err != nil {
		return nil, err
	}
	if payload, err := json.Marshal(out); err == nil {
		l.roundTrips.Add(1)
		_ = l.cache.Set(ctx, SnapshotKey, payload, l.ttl).Err()
	}
	return out, nil
}

// Invalidate drops the snapshot so the next LoadSnapshot rebuilds it.
func (l *RecordLoader) Invalidate(ctx context.Context) error {
	return l.cache.Del(ctx, SnapshotKey).Err()
}

func (l *RecordLoader) loadIndex(ctx context.Context) ([]string, error) {
	l.roundTrips.Add(1)
	raw, err := l.cache.Get(ctx, model.IndexKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load index: %w", err)
	}
	ids, err := model.DecodeIndex(raw)
	if err != nil {
		return nil, nil
	}
	return dedupe(ids), nil
}

func decode(id string, raw []byte) (model.ContentRecord, bool) {
	if len(raw) == 0 {
		return model.ContentRecord{}, false
	}
	rec, err := model.DecodeRecord(id, raw)
	return rec, err == nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

func sortNewest(rs []model.ContentRecord) []model.ContentRecord {
	sort.SliceStable(rs, func(i, j int) bool { return rs[i].PublishedAt > rs[j].PublishedAt })
	return rs
}

// ResetCounters clears the recorded counters.
func (l *RecordLoader) ResetCounters() {
	l.roundTrips.Store(0)
	l.snapshotHits.Store(0)
	l.snapshotLoads.Store(0)
}

// Counters reports the Redis round trips and snapshot outcomes of a run.
func (l *RecordLoader) Counters() LoaderCounters {
	return LoaderCounters{
		RoundTrips:    l.roundTrips.Load(),
		SnapshotHits:  l.snapshotHits.Load(),
		SnapshotLoads: l.snapshotLoads.Load(),
	}
}

// LoaderCounters summarises Redis traffic during a run.
type LoaderCounters struct {
	RoundTrips    int64
	SnapshotHits  int64
	SnapshotLoads int64
}
