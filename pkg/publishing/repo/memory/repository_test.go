package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obscura-press/obscura/pkg/publishing"
	"github.com/obscura-press/obscura/pkg/publishing/repo/memory"
)

func newItem(kind publishing.Kind, status publishing.Status) *publishing.ContentItem {
	now := time.Now().UTC()
	return &publishing.ContentItem{
		ID:        uuid.New(),
		Kind:      kind,
		Status:    status,
		Title:     "test item",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestCreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()

	item := newItem(publishing.KindArticle, publishing.StatusDraft)
	item.Gallery = []publishing.GalleryImage{
		{AssetRef: publishing.AssetRef{URL: "memory://a.jpg", Handle: "a.jpg"}, Description: "one"},
	}
	require.NoError(t, repo.Create(ctx, item))

	got, err := repo.Get(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, item.ID, got.ID)
	assert.Equal(t, item.Title, got.Title)
	require.Len(t, got.Gallery, 1)

	// Stored state must not alias what callers hold.
	got.Gallery[0].Description = "mutated"
	again, err := repo.Get(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "one", again.Gallery[0].Description)
}

func TestGetNotFound(t *testing.T) {
	repo := memory.New()
	_, err := repo.Get(context.Background(), uuid.New())
	require.ErrorIs(t, err, publishing.ErrNotFound)
}

func TestUpdateStatusIf(t *testing.T) {
	ctx := context.Background()

	t.Run("matching precondition applies the mutation", func(t *testing.T) {
		repo := memory.New()
		item := newItem(publishing.KindArticle, publishing.StatusScheduled)
		require.NoError(t, repo.Create(ctx, item))

		ok, err := repo.UpdateStatusIf(ctx, item.ID, publishing.StatusScheduled, func(it *publishing.ContentItem) {
			it.Status = publishing.StatusPublished
			it.ScheduledFor = nil
		})
		require.NoError(t, err)
		assert.True(t, ok)

		got, err := repo.Get(ctx, item.ID)
		require.NoError(t, err)
		assert.Equal(t, publishing.StatusPublished, got.Status)
	})

	t.Run("mismatched precondition leaves the item untouched", func(t *testing.T) {
		repo := memory.New()
		item := newItem(publishing.KindArticle, publishing.StatusPublished)
		require.NoError(t, repo.Create(ctx, item))

		ok, err := repo.UpdateStatusIf(ctx, item.ID, publishing.StatusScheduled, func(it *publishing.ContentItem) {
			it.Title = "should not happen"
		})
		require.NoError(t, err)
		assert.False(t, ok)

		got, err := repo.Get(ctx, item.ID)
		require.NoError(t, err)
		assert.Equal(t, "test item", got.Title)
	})

	t.Run("unknown id", func(t *testing.T) {
		repo := memory.New()
		ok, err := repo.UpdateStatusIf(ctx, uuid.New(), publishing.StatusDraft, func(*publishing.ContentItem) {})
		require.ErrorIs(t, err, publishing.ErrNotFound)
		assert.False(t, ok)
	})
}

func TestQueryDue(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	now := time.Now().UTC()

	past := now.Add(-time.Hour)
	earlier := now.Add(-2 * time.Hour)
	future := now.Add(time.Hour)

	first := newItem(publishing.KindArticle, publishing.StatusScheduled)
	first.ScheduledFor = &earlier
	second := newItem(publishing.KindMystery, publishing.StatusScheduled)
	second.ScheduledFor = &past
	notYet := newItem(publishing.KindArticle, publishing.StatusScheduled)
	notYet.ScheduledFor = &future
	alreadyOut := newItem(publishing.KindArticle, publishing.StatusPublished)
	theory := newItem(publishing.KindTheory, publishing.StatusPending)

	for _, item := range []*publishing.ContentItem{first, second, notYet, alreadyOut, theory} {
		require.NoError(t, repo.Create(ctx, item))
	}

	due, err := repo.QueryDue(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{first.ID, second.ID}, due, "due items ordered by scheduled time")
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()

	item := newItem(publishing.KindArticle, publishing.StatusDraft)
	item.Thumbnail = &publishing.AssetRef{URL: "memory://t.png", Handle: "t.png"}
	require.NoError(t, repo.Create(ctx, item))

	deleted, err := repo.Delete(ctx, item.ID)
	require.NoError(t, err)
	require.NotNil(t, deleted.Thumbnail)
	assert.Equal(t, "t.png", deleted.Thumbnail.Handle)

	_, err = repo.Get(ctx, item.ID)
	require.ErrorIs(t, err, publishing.ErrNotFound)

	_, err = repo.Delete(ctx, item.ID)
	require.ErrorIs(t, err, publishing.ErrNotFound)
}

func TestListFilters(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()

	base := time.Now().UTC()
	for i := 0; i < 3; i++ {
		item := newItem(publishing.KindArticle, publishing.StatusPublished)
		item.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.Create(ctx, item))
	}
	theory := newItem(publishing.KindTheory, publishing.StatusPending)
	require.NoError(t, repo.Create(ctx, theory))

	t.Run("filter by kind", func(t *testing.T) {
		kind := publishing.KindTheory
		items, err := repo.List(ctx, publishing.ListContentFilters{Kind: &kind})
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, theory.ID, items[0].ID)
	})

	t.Run("newest first with limit and offset", func(t *testing.T) {
		limit, offset := 2, 1
		items, err := repo.List(ctx, publishing.ListContentFilters{Limit: &limit, Offset: &offset})
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.True(t, items[0].CreatedAt.After(items[1].CreatedAt))
	})

	t.Run("offset beyond the end", func(t *testing.T) {
		offset := 100
		items, err := repo.List(ctx, publishing.ListContentFilters{Offset: &offset})
		require.NoError(t, err)
		assert.Empty(t, items)
	})
}
