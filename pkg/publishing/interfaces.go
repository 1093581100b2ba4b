package publishing

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// AssetStore defines the interface for remote binary storage backends.
type AssetStore interface {
	// Upload stores the bytes read from reader and returns a stable
	// (url, handle) pair for the new object.
	Upload(ctx context.Context, reader io.Reader, input UploadInput) (AssetRef, error)

	// Delete removes the object identified by handle.
	Delete(ctx context.Context, handle string) error
}

// UploadInput carries per-object parameters for an upload.
type UploadInput struct {
	FileName    string
	ContentType string
}

// NotificationTemplate identifies an outbound message template.
type NotificationTemplate string

// Notification template constants (typed).
const (
	TemplateTheoryApproved NotificationTemplate = "theory-approved"
	TemplateTheoryRejected NotificationTemplate = "theory-rejected"
)

// Notifier defines the interface for outbound notifications. Sends are
// fire-and-forget from the lifecycle engine's perspective: failures are
// logged by the caller, never surfaced as transition failures.
type Notifier interface {
	Send(ctx context.Context, to string, template NotificationTemplate, fields map[string]string) error
}

// Repository defines the interface for content item persistence. It is the
// single source of truth for item status; the conditional update is the
// only mutation path after creation.
type Repository interface {
	// Create persists a new item.
	Create(ctx context.Context, item *ContentItem) error

	// Get returns the item with the given id, or ErrNotFound.
	Get(ctx context.Context, id uuid.UUID) (*ContentItem, error)

	// List returns items matching the filters, newest first.
	List(ctx context.Context, filters ListContentFilters) ([]*ContentItem, error)

	// UpdateStatusIf applies mutate to the stored item only if its current
	// status equals expected, returning whether the update was applied.
	// A false return with nil error means the precondition did not hold;
	// the losing side of a transition race observes exactly this.
	UpdateStatusIf(ctx context.Context, id uuid.UUID, expected Status, mutate func(*ContentItem)) (bool, error)

	// QueryDue returns the ids of editorial items with status scheduled
	// and a scheduled time at or before the given instant. Each call
	// produces a fresh snapshot.
	QueryDue(ctx context.Context, before time.Time) ([]uuid.UUID, error)

	// Delete removes the item and returns the deleted record so the
	// caller can clean up its owned assets.
	Delete(ctx context.Context, id uuid.UUID) (*ContentItem, error)
}
