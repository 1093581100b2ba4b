package publishing_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obscura-press/obscura/pkg/publishing"
	memorystore "github.com/obscura-press/obscura/pkg/publishing/assetstore/memory"
	"github.com/obscura-press/obscura/pkg/publishing/repo/memory"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{t: t}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func setupScheduler(t *testing.T, repo publishing.Repository, clock *fakeClock) (publishing.Service, *publishing.Scheduler) {
	t.Helper()

	svc, err := publishing.New(
		publishing.WithRepository(repo),
		publishing.WithAssetStore(memorystore.New()),
		publishing.WithClock(clock.Now),
	)
	require.NoError(t, err)

	sched := publishing.NewScheduler(svc, repo,
		publishing.WithSchedulerClock(clock.Now),
	)
	return svc, sched
}

func TestSchedulerTick(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)

	t.Run("publishes due items and leaves future ones", func(t *testing.T) {
		repo := memory.New()
		clock := newFakeClock(base)
		svc, sched := setupScheduler(t, repo, clock)

		soon := base.Add(30 * time.Minute)
		dueItem, err := svc.SubmitEditorial(ctx, publishing.SubmitEditorialRequest{
			Kind:         publishing.KindMystery,
			Title:        "Due soon",
			ScheduledFor: &soon,
		})
		require.NoError(t, err)

		later := base.Add(6 * time.Hour)
		futureItem, err := svc.SubmitEditorial(ctx, publishing.SubmitEditorialRequest{
			Kind:         publishing.KindArticle,
			Title:        "Much later",
			ScheduledFor: &later,
		})
		require.NoError(t, err)

		// Nothing is due yet.
		published, err := sched.Tick(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, published)

		clock.Advance(time.Hour)

		published, err = sched.Tick(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, published)

		got, err := svc.GetContent(ctx, dueItem.ID)
		require.NoError(t, err)
		assert.Equal(t, publishing.StatusPublished, got.Status)
		assert.Nil(t, got.ScheduledFor)

		got, err = svc.GetContent(ctx, futureItem.ID)
		require.NoError(t, err)
		assert.Equal(t, publishing.StatusScheduled, got.Status)
	})

	t.Run("tick with nothing due is a no-op", func(t *testing.T) {
		repo := memory.New()
		clock := newFakeClock(base)
		_, sched := setupScheduler(t, repo, clock)

		published, err := sched.Tick(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, published)
	})

	t.Run("a second tick over a published item is harmless", func(t *testing.T) {
		repo := memory.New()
		clock := newFakeClock(base)
		svc, sched := setupScheduler(t, repo, clock)

		soon := base.Add(time.Minute)
		item, err := svc.SubmitEditorial(ctx, publishing.SubmitEditorialRequest{
			Kind:         publishing.KindArticle,
			Title:        "Once only",
			ScheduledFor: &soon,
		})
		require.NoError(t, err)

		clock.Advance(time.Hour)

		published, err := sched.Tick(ctx)
		require.NoError(t, err)
		require.Equal(t, 1, published)

		published, err = sched.Tick(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, published)

		got, err := svc.GetContent(ctx, item.ID)
		require.NoError(t, err)
		assert.Equal(t, publishing.StatusPublished, got.Status)
	})

	t.Run("a failing item does not block the rest", func(t *testing.T) {
		inner := memory.New()
		repo := &ghostingRepo{Repository: inner, ghost: uuid.New()}
		clock := newFakeClock(base)
		svc, sched := setupScheduler(t, repo, clock)

		soon := base.Add(time.Minute)
		item, err := svc.SubmitEditorial(ctx, publishing.SubmitEditorialRequest{
			Kind:         publishing.KindArticle,
			Title:        "Survivor",
			ScheduledFor: &soon,
		})
		require.NoError(t, err)

		clock.Advance(time.Hour)

		// The ghost id fails with not-found; the real item still goes out.
		published, err := sched.Tick(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, published)

		got, err := svc.GetContent(ctx, item.ID)
		require.NoError(t, err)
		assert.Equal(t, publishing.StatusPublished, got.Status)
	})
}

func TestSchedulerRunStopsOnCancel(t *testing.T) {
	repo := memory.New()
	clock := newFakeClock(time.Now())
	svc, err := publishing.New(
		publishing.WithRepository(repo),
		publishing.WithAssetStore(memorystore.New()),
	)
	require.NoError(t, err)

	sched := publishing.NewScheduler(svc, repo,
		publishing.WithPollInterval(10*time.Millisecond),
		publishing.WithSchedulerClock(clock.Now),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sched.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
}

// ghostingRepo reports one extra due id that no record backs, simulating an
// item deleted between the due query and the publish attempt.
type ghostingRepo struct {
	*memory.Repository
	ghost uuid.UUID
}

func (r *ghostingRepo) QueryDue(ctx context.Context, before time.Time) ([]uuid.UUID, error) {
	due, err := r.Repository.QueryDue(ctx, before)
	if err != nil {
		return nil, err
	}
	return append([]uuid.UUID{r.ghost}, due...), nil
}
