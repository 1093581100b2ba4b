package publishing

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Service defines the content lifecycle engine.
type Service interface {
	// Editorial operations
	SubmitEditorial(ctx context.Context, req SubmitEditorialRequest) (*ContentItem, error)
	RescheduleEditorial(ctx context.Context, id uuid.UUID, newTime time.Time) error
	PublishNowEditorial(ctx context.Context, id uuid.UUID) error

	// Moderation operations
	SubmitTheory(ctx context.Context, req SubmitTheoryRequest) (*ContentItem, error)
	ApproveTheory(ctx context.Context, id uuid.UUID) error
	RejectTheory(ctx context.Context, id uuid.UUID, reason string) error

	// Shared operations
	GetContent(ctx context.Context, id uuid.UUID) (*ContentItem, error)
	ListContent(ctx context.Context, req ListContentRequest) ([]*ContentItem, error)
	DeleteContent(ctx context.Context, id uuid.UUID) error

	// Gallery maintenance
	UpdateGalleryDescriptions(ctx context.Context, id uuid.UUID, descriptions map[string]string) error
	RemoveGalleryImage(ctx context.Context, id uuid.UUID, handle string) error
}
