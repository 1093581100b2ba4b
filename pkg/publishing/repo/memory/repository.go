package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/obscura-press/obscura/pkg/publishing"
)

// Repository implements publishing.Repository using in-memory storage.
// The write lock is held across the check-and-mutate of UpdateStatusIf,
// which gives the same conditional-update semantics the engine relies on
// against a real database.
type Repository struct {
	mu    sync.RWMutex
	items map[uuid.UUID]*publishing.ContentItem
}

// New creates a new in-memory repository
func New() *Repository {
	return &Repository{
		items: make(map[uuid.UUID]*publishing.ContentItem),
	}
}

func (r *Repository) Create(ctx context.Context, item *publishing.ContentItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Create a copy to avoid external modifications
	itemCopy := cloneItem(item)
	r.items[item.ID] = itemCopy

	return nil
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*publishing.ContentItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, exists := r.items[id]
	if !exists {
		return nil, publishing.ErrNotFound
	}

	// Return a copy to prevent external modifications
	return cloneItem(item), nil
}

func (r *Repository) List(ctx context.Context, filters publishing.ListContentFilters) ([]*publishing.ContentItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*publishing.ContentItem
	for _, item := range r.items {
		if filters.Kind != nil && item.Kind != *filters.Kind {
			continue
		}
		if filters.Status != nil && item.Status != *filters.Status {
			continue
		}
		result = append(result, cloneItem(item))
	}

	// Sort by created_at descending
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if filters.Offset != nil && *filters.Offset > 0 {
		if *filters.Offset >= len(result) {
			return []*publishing.ContentItem{}, nil
		}
		result = result[*filters.Offset:]
	}
	if filters.Limit != nil && *filters.Limit > 0 && *filters.Limit < len(result) {
		result = result[:*filters.Limit]
	}

	return result, nil
}

func (r *Repository) UpdateStatusIf(ctx context.Context, id uuid.UUID, expected publishing.Status, mutate func(*publishing.ContentItem)) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, exists := r.items[id]
	if !exists {
		return false, publishing.ErrNotFound
	}
	if item.Status != expected {
		return false, nil
	}

	// Mutate a copy so a panicking mutation cannot corrupt stored state
	itemCopy := cloneItem(item)
	mutate(itemCopy)
	r.items[id] = itemCopy

	return true, nil
}

func (r *Repository) QueryDue(ctx context.Context, before time.Time) ([]uuid.UUID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var due []uuid.UUID
	for _, item := range r.items {
		if !item.Kind.Editorial() || item.Status != publishing.StatusScheduled {
			continue
		}
		if item.ScheduledFor != nil && !item.ScheduledFor.After(before) {
			due = append(due, item.ID)
		}
	}

	sort.Slice(due, func(i, j int) bool {
		return r.items[due[i]].ScheduledFor.Before(*r.items[due[j]].ScheduledFor)
	})

	return due, nil
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (*publishing.ContentItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, exists := r.items[id]
	if !exists {
		return nil, publishing.ErrNotFound
	}
	delete(r.items, id)

	return cloneItem(item), nil
}

// cloneItem deep-copies an item, including its gallery slice, so callers
// never alias stored state.
func cloneItem(item *publishing.ContentItem) *publishing.ContentItem {
	itemCopy := *item
	if item.Thumbnail != nil {
		thumb := *item.Thumbnail
		itemCopy.Thumbnail = &thumb
	}
	if item.ScheduledFor != nil {
		t := *item.ScheduledFor
		itemCopy.ScheduledFor = &t
	}
	if item.ReviewedAt != nil {
		t := *item.ReviewedAt
		itemCopy.ReviewedAt = &t
	}
	if item.Gallery != nil {
		itemCopy.Gallery = make([]publishing.GalleryImage, len(item.Gallery))
		copy(itemCopy.Gallery, item.Gallery)
	}
	return &itemCopy
}
