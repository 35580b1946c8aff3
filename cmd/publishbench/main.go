// publishbench measures submit/refresh latency against the configured store
// and counts records missing from the index after concurrent submissions.
// LEGACY=1 forces the non-atomic record-then-index path.
package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/d60-Lab/fhe-content-hub/config"
	"github.com/d60-Lab/fhe-content-hub/internal/access"
	"github.com/d60-Lab/fhe-content-hub/internal/directory"
	"github.com/d60-Lab/fhe-content-hub/internal/model"
	"github.com/d60-Lab/fhe-content-hub/internal/store"
	"github.com/d60-Lab/fhe-content-hub/internal/wallet"
	"github.com/d60-Lab/fhe-content-hub/pkg/logger"
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
		if v, e := strconv.Atoi(s); e == nil && v > 0 {
			return v
		}
	}
	return def
}

// plainStore hides the atomic Publisher of the wrapped backend.
type plainStore struct{ store.Store }

func main() {
	cfg := must(config.Load())
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx := context.Background()
	s, closeStore, err := store.Open(ctx, cfg)
	if err != nil {
		panic(err)
	}
	defer closeStore()

	WRITERS := envInt("WRITERS", 8)
	POSTS := envInt("POSTS", 25)
	legacy := os.Getenv("LEGACY") == "1"
	var target store.Store = s
	if legacy {
		target = plainStore{s}
	}

	checker := access.NewChecker(cfg.Access)
	before := len(directory.NewClient(target, checker, cfg.Directory).Refresh(ctx))

	var (
		mu        sync.Mutex
		submits   []time.Duration
		published int
		failed    int
	)
	g, gctx := errgroup.WithContext(ctx)
	start := time.Now()
	for w := 0; w < WRITERS; w++ {
		g.Go(func() error {
			c := directory.NewClient(target, checker, cfg.Directory)
			defer c.Close()
			c.Connect(wallet.Connect(fmt.Sprintf("0x%040x", w+1), nil))

			for i := 0; i < POSTS; i++ {
				st := time.Now()
				_, err := c.Submit(gctx, directory.SubmitInput{
					Title:        fmt.Sprintf("bench %d/%d", w, i),
					Body:         "publishbench payload",
					Category:     model.SuggestedCategories[i%len(model.SuggestedCategories)],
					AccessPolicy: model.AccessPublic,
				})
				d := time.Since(st)
				mu.Lock()
				if err != nil {
					failed++
				} else {
					published++
					submits = append(submits, d)
				}
				mu.Unlock()
			}
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		panic(err)
	}
	elapsed := time.Since(start)

	reader := directory.NewClient(target, checker, cfg.Directory)
	refreshes := make([]time.Duration, 0, 10)
	var listed int
	for i := 0; i < 10; i++ {
		st := time.Now()
		listed = len(reader.Refresh(ctx))
		refreshes = append(refreshes, time.Since(st))
	}

	fmt.Printf("BACKEND=%s LEGACY=%v WRITERS=%d POSTS=%d\n", cfg.Store.Backend, legacy, WRITERS, POSTS)
	fmt.Printf("Submit: ok=%d failed=%d avg=%v p95=%v p99=%v throughput=%.1f/s\n",
		published, failed, avg(submits), pct(submits, 0.95), pct(submits, 0.99), float64(published)/elapsed.Seconds())
	fmt.Printf("Refresh (%d records): avg=%v p95=%v\n", listed, avg(refreshes), pct(refreshes, 0.95))
	fmt.Printf("Index completeness: listed=%d expected=%d missing=%d\n", listed, before+published, before+published-listed)
}
