package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/d60-Lab/fhe-content-hub/config"
	"github.com/d60-Lab/fhe-content-hub/internal/cacheperf"
	"github.com/d60-Lab/fhe-content-hub/internal/model"
	"github.com/d60-Lab/fhe-content-hub/internal/payload"
	"github.com/d60-Lab/fhe-content-hub/internal/store"
	redisclient "github.com/d60-Lab/fhe-content-hub/pkg/redis"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func pct(vs []time.Duration, p float64) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	xs := append([]time.Duration(nil), vs...)
	sort.Slice(xs, func(i, j int) bool { return xs[i] < xs[j] })
	k := int(math.Ceil(p*float64(len(xs)))) - 1
	if k < 0 {
		k = 0
	}
	if k >= len(xs) {
		k = len(xs) - 1
	}
	return xs[k]
}

func avg(vs []time.Duration) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	var sum time.Duration
	for _, d := range vs {
		sum += d
	}
	return sum / time.Duration(len(vs))
}

func envInt(name string, def int) int {
	if s := os.Getenv(name); s != "" {
		if v, e := strconv.Atoi(s); e == nil && v >= 0 {
			return v
		}
	}
	return def
}

func main() {
	ctx := context.Background()
	cfg := must(config.Load())

	RECORDS := envInt("RECORDS", 2000)
	REPEAT := envInt("REPEAT", 200)
	// the bench flushes its database, so keep it off the served one
	cfg.Redis.DB = envInt("BENCH_REDIS_DB", 15)

	client := must(redisclient.NewClient(ctx, cfg.Redis))
	defer client.Close()
	if err := client.FlushDB(ctx).Err(); err != nil {
		panic(err)
	}

	fmt.Printf("Seeding %d records into redis db %d...\n", RECORDS, cfg.Redis.DB)
	s := store.NewRedisStore(client)
	base := time.Now().Unix()
	for i := 0; i < RECORDS; i++ {
		id := fmt.Sprintf("%d-bench%02d", base*1000+int64(i), i%100)
		data := must(payload.Encode(fmt.Sprintf("title %d", i), "cachebench body"))
		raw := must(model.EncodeRecord(model.ContentRecord{
			ID:           id,
			Payload:      data,
			PublishedAt:  base - int64(i),
			Owner:        fmt.Sprintf("0x%040x", i%50),
			Category:     model.SuggestedCategories[i%len(model.SuggestedCategories)],
			AccessPolicy: model.AccessPublic,
		}))
		tx := must(s.Publish(ctx, model.RecordKey(id), raw, model.IndexKey, id))
		if err := tx.Wait(ctx); err != nil {
			panic(err)
		}
	}

	loader := cacheperf.NewRecordLoader(client, time.Minute)
	run := func(name string, load func(context.Context) ([]model.ContentRecord, error)) {
		loader.ResetCounters()
		out := make([]time.Duration, 0, REPEAT)
		var n int
		for i := 0; i < REPEAT; i++ {
			st := time.Now()
			rs, err := load(ctx)
			if err != nil {
				panic(err)
			}
			out = append(out, time.Since(st))
			n = len(rs)
		}
		c := loader.Counters()
		fmt.Printf("%-12s records=%d avg=%v p95=%v p99=%v round_trips=%d snapshot_hits=%d snapshot_loads=%d\n",
			name, n, avg(out), pct(out, 0.95), pct(out, 0.99), c.RoundTrips, c.SnapshotHits, c.SnapshotLoads)
	}

	fmt.Printf("\nDirectory load latency (%d records, %d loads each)\n", RECORDS, REPEAT)
	run("Sequential", loader.LoadSequential)
	run("MGET", loader.LoadBatched)
	run("Pipeline", loader.LoadPipelined)
	run("Snapshot", loader.LoadSnapshot)
}
