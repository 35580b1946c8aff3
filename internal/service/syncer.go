package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/d60-Lab/fhe-content-hub/internal/model"
	"github.com/d60-Lab/fhe-content-hub/pkg/logger"
)

// Directory is the part of the directory client the syncer drives.
type Directory interface {
	Refresh(ctx context.Context) []model.ContentRecord
	Reconcile(ctx context.Context) (int, error)
}

type syncAction int

const (
	actionRefresh syncAction = iota + 1
	actionReconcile
)

type syncJob struct {
	action syncAction
	enqAt  time.Time
}

// Syncer refreshes the directory on a timer and runs queued refresh and
// reconcile jobs in the background.
type Syncer struct {
	dir       Directory
	ch        chan syncJob
	metricsCh chan time.Duration
}

func NewSyncer(dir Directory, queueSize int) *Syncer {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Syncer{dir: dir, ch: make(chan syncJob, queueSize), metricsCh: make(chan time.Duration, 1024)}
}

// Start runs the workers and, when interval > 0, a ticker that enqueues a
// refresh every interval. The returned func stops them, giving queued jobs
// until ctx is done to drain.
func (s *Syncer) Start(workers int, interval time.Duration) func(context.Context) error {
	if workers <= 0 {
		workers = 1
	}
	stopCh := make(chan struct{})
	for i := 0; i < workers; i++ {
		go func() {
			for {
				select {
				case job := <-s.ch:
					s.run(job)
				case <-stopCh:
					return
				}
			}
		}()
	}
	if interval > 0 {
		go func() {
			t := time.NewTicker(interval)
			defer t.Stop()
			for {
				select {
				case <-t.C:
					s.EnqueueRefresh()
				case <-stopCh:
					return
				}
			}
		}()
	}

	return func(ctx context.Context) error {
		close(stopCh)
		for {
			select {
			case job := <-s.ch:
				s.run(job)
			default:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

func (s *Syncer) run(job syncJob) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch job.action {
	case actionRefresh:
		n := len(s.dir.Refresh(ctx))
		logger.Debug("background refresh", zap.Int("records", n))
	case actionReconcile:
		n, err := s.dir.Reconcile(ctx)
		if err != nil {
			logger.Warn("background reconcile failed", zap.Error(err))
		} else if n > 0 {
			logger.Info("background reconcile", zap.Int("reindexed", n))
		}
	}

	if !job.enqAt.IsZero() {
		select {
		case s.metricsCh <- time.Since(job.enqAt):
		default:
		}
	}
}

// EnqueueRefresh queues a refresh; it reports false and drops the job when
// the queue is full.
func (s *Syncer) EnqueueRefresh() bool {
	return s.enqueue(actionRefresh)
}

func (s *Syncer) EnqueueReconcile() bool {
	return s.enqueue(actionReconcile)
}

func (s *Syncer) enqueue(a syncAction) bool {
	select {
	case s.ch <- syncJob{action: a, enqAt: time.Now()}:
		return true
	default:
		logger.Warn("syncer queue full, drop job", zap.Int("action", int(a)))
		return false
	}
}

// Metrics yields the enqueue-to-done latency of each job. Samples are
// dropped when nobody reads.
func (s *Syncer) Metrics() <-chan time.Duration { return s.metricsCh }

// QueueLen is a sample of the queue length.
func (s *Syncer) QueueLen() int { return len(s.ch) }
