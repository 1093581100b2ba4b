package publishing

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

const (
	defaultPollInterval = time.Minute
	defaultTickTimeout  = 45 * time.Second
)

// Scheduler drives time-triggered publication. It periodically asks the
// repository for scheduled items whose time has elapsed and pushes each
// through the engine's publish transition. Because that transition is
// idempotent and the query re-runs every tick, a missed or overlapping
// tick self-heals: the item is published on the next successful pass.
type Scheduler struct {
	svc      Service
	repo     Repository
	interval time.Duration
	deadline time.Duration
	log      *slog.Logger
	now      func() time.Time
}

// SchedulerOption represents a functional option for configuring the scheduler
type SchedulerOption func(*Scheduler)

// WithPollInterval sets the tick interval
func WithPollInterval(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		s.interval = d
	}
}

// WithTickDeadline bounds the work done in one tick; items not reached
// before the deadline wait for the next tick
func WithTickDeadline(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		s.deadline = d
	}
}

// WithSchedulerLogger sets the logger for per-item failures
func WithSchedulerLogger(log *slog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		s.log = log
	}
}

// WithSchedulerClock overrides the time source. Intended for tests.
func WithSchedulerClock(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) {
		s.now = now
	}
}

// NewScheduler creates a scheduler over the given engine and repository.
func NewScheduler(svc Service, repo Repository, options ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		svc:      svc,
		repo:     repo,
		interval: defaultPollInterval,
		deadline: defaultTickTimeout,
		log:      slog.Default(),
		now:      time.Now,
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// Run polls until the context is canceled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("scheduler started", "interval", s.interval)
	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return
		case <-ticker.C:
			if _, err := s.Tick(ctx); err != nil {
				s.log.Error("scheduler tick failed", "error", err)
			}
		}
	}
}

// Tick runs one poll-and-publish pass and returns how many items were
// published. A failing item is logged and skipped; it stays scheduled and
// is retried on the next tick.
func (s *Scheduler) Tick(ctx context.Context) (int, error) {
	tctx, cancel := context.WithTimeout(ctx, s.deadline)
	defer cancel()

	due, err := s.repo.QueryDue(tctx, s.now())
	if err != nil {
		return 0, err
	}

	published := 0
	for i, id := range due {
		if tctx.Err() != nil {
			s.log.Warn("tick deadline reached, deferring remaining items",
				"remaining", len(due)-i)
			break
		}
		if err := s.svc.PublishNowEditorial(tctx, id); err != nil {
			// Deleted between the query and the publish is not worth a
			// retry; anything else gets another chance next tick.
			level := slog.LevelError
			if errors.Is(err, ErrNotFound) {
				level = slog.LevelWarn
			}
			s.log.Log(tctx, level, "scheduled publish failed", "item_id", id, "error", err)
			continue
		}
		published++
	}

	if published > 0 {
		s.log.Info("scheduled items published", "count", published)
	}
	return published, nil
}
