package scheduler

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/kellertobias/calmirror/internal/domain"
)

// Runner executes one sync configuration end to end.
type Runner interface {
	Sync(ctx context.Context, cfg *domain.SyncConfig) (*domain.RunSummary, error)
}

// Scheduler drives periodic reconciliation. Runs never overlap: the timer
// tick and manual triggers share one mutex, so a long apply simply delays
// the next cycle.
type Scheduler struct {
	cron     *cron.Cron
	log      *zap.Logger
	runner   Runner
	configs  []domain.SyncConfig
	interval time.Duration

	mu       sync.Mutex
	syncing  atomic.Bool
	failures atomic.Int32

	ctx    context.Context
	cancel context.CancelFunc
}

func New(runner Runner, configs []domain.SyncConfig, interval time.Duration, log *zap.Logger) *Scheduler {
	s := &Scheduler{
		log:      log,
		runner:   runner,
		configs:  configs,
		interval: interval,
	}
	s.cron = cron.New()
	s.cron.Schedule(&backoffSchedule{scheduler: s}, cron.FuncJob(s.tick))
	return s
}

// Start runs the scheduler until the context is cancelled. One cycle is
// executed immediately so a freshly started daemon converges without
// waiting a full interval.
func (s *Scheduler) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.tick()

	s.cron.Start()
	s.log.Info("scheduler started",
		zap.Duration("interval", s.interval),
		zap.Int("configs", len(s.configs)))

	<-ctx.Done()
	return nil
}

func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("scheduler stopped")
}

// Syncing reports whether a cycle is currently running.
func (s *Scheduler) Syncing() bool {
	return s.syncing.Load()
}

// RunNow triggers one full cycle outside the timer, sharing the same
// serialization as scheduled runs.
func (s *Scheduler) RunNow(ctx context.Context) {
	s.runAll(ctx)
}

func (s *Scheduler) tick() {
	ctx := s.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	s.runAll(ctx)
}

// runAll executes every enabled configuration sequentially. A failure in
// one configuration is recorded and does not stop the others; the cycle
// counts as failed for backoff purposes if any configuration failed.
func (s *Scheduler) runAll(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.syncing.Store(true)
	defer s.syncing.Store(false)

	failed := false
	for i := range s.configs {
		cfg := &s.configs[i]
		if !cfg.Enabled {
			continue
		}
		if ctx.Err() != nil {
			return
		}

		sum, err := s.runner.Sync(ctx, cfg)
		if err != nil {
			failed = true
			s.log.Error("sync failed",
				zap.String("sync", cfg.Name),
				zap.Error(err))
			continue
		}
		s.log.Info("sync finished",
			zap.String("sync", cfg.Name),
			zap.String("status", sum.Status),
			zap.Int("created", sum.AppliedCreated),
			zap.Int("updated", sum.AppliedUpdated),
			zap.Int("deleted", sum.AppliedDeleted))
	}

	if failed {
		s.failures.Add(1)
	} else {
		s.failures.Store(0)
	}
}

const (
	jitterFraction = 0.1
	maxBackoff     = 30 * time.Minute
)

// backoffSchedule spaces cycles by the configured interval with a ±10%
// jitter, plus an exponential penalty after failed cycles (2, 4, 8, ...
// minutes, capped at 30) so a broken upstream is not hammered.
type backoffSchedule struct {
	scheduler *Scheduler
}

func (b *backoffSchedule) Next(t time.Time) time.Time {
	s := b.scheduler

	interval := s.interval
	jitter := time.Duration((rand.Float64()*2 - 1) * jitterFraction * float64(interval))

	var backoff time.Duration
	if n := s.failures.Load(); n > 0 {
		backoff = time.Duration(1<<uint(n)) * time.Minute
		if backoff > maxBackoff || backoff <= 0 {
			backoff = maxBackoff
		}
	}

	return t.Add(interval + jitter + backoff)
}
