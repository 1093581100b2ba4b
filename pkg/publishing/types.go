package publishing

import (
	"time"

	"github.com/google/uuid"
)

// Kind is the domain type for content kinds.
type Kind string

// Content kind constants (typed).
const (
	KindArticle Kind = "article"
	KindMystery Kind = "mystery"
	KindTheory  Kind = "theory"
)

// Editorial reports whether the kind follows the draft/scheduled/published
// lifecycle.
func (k Kind) Editorial() bool {
	return k == KindArticle || k == KindMystery
}

// Moderated reports whether the kind follows the pending/approved/rejected
// lifecycle.
func (k Kind) Moderated() bool {
	return k == KindTheory
}

// Status is the domain type for content lifecycle states.
type Status string

// Editorial status constants (typed).
const (
	StatusDraft     Status = "draft"
	StatusScheduled Status = "scheduled"
	StatusPublished Status = "published"
)

// Moderated status constants (typed).
const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// AssetRef is a reference to one binary object in the remote asset store.
// URL is the public display address; Handle is what the store needs to
// delete the object. A ref is owned by exactly one content item.
type AssetRef struct {
	URL    string `json:"url"`
	Handle string `json:"handle"`
}

// GalleryImage is a gallery entry: an owned asset plus an optional
// free-text description. Slice order is display order.
type GalleryImage struct {
	AssetRef
	Description string `json:"description,omitempty"`
}

// ContentItem is the common shape of all three content kinds.
//
// Status is the single source of truth for lifecycle position. The
// optional fields track it: ScheduledFor is present iff the item is
// scheduled, RejectionReason iff it is rejected, and ReviewedAt is set
// exactly once when a moderated item leaves pending.
type ContentItem struct {
	ID              uuid.UUID      `json:"id"`
	Kind            Kind           `json:"kind"`
	Status          Status         `json:"status"`
	Title           string         `json:"title"`
	Body            string         `json:"body,omitempty"`
	AuthorName      string         `json:"author_name,omitempty"`
	AuthorEmail     string         `json:"author_email,omitempty"`
	ScheduledFor    *time.Time     `json:"scheduled_for,omitempty"`
	ReviewedAt      *time.Time     `json:"reviewed_at,omitempty"`
	RejectionReason string         `json:"rejection_reason,omitempty"`
	Thumbnail       *AssetRef      `json:"thumbnail,omitempty"`
	Gallery         []GalleryImage `json:"gallery,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// AssetHandles returns the handles of every asset the item owns, thumbnail
// first, gallery in display order.
func (c *ContentItem) AssetHandles() []string {
	var handles []string
	if c.Thumbnail != nil {
		handles = append(handles, c.Thumbnail.Handle)
	}
	for _, img := range c.Gallery {
		handles = append(handles, img.Handle)
	}
	return handles
}

// ListContentFilters defines filtering options for listing content.
type ListContentFilters struct {
	Kind   *Kind
	Status *Status
	Limit  *int
	Offset *int
}
