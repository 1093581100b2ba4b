package publishing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// DefaultGalleryLimit bounds gallery size at submission time.
const DefaultGalleryLimit = 4

const (
	defaultUploadTimeout = 30 * time.Second
	defaultNotifyTimeout = 15 * time.Second
)

// service implements the Service interface
type service struct {
	repo          Repository
	assets        AssetStore
	notifier      Notifier
	log           *slog.Logger
	now           func() time.Time
	uploadTimeout time.Duration
	notifyTimeout time.Duration
	galleryLimit  int
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRepository sets the repository for the service
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repo = repo
	}
}

// WithAssetStore sets the remote asset store for the service
func WithAssetStore(store AssetStore) Option {
	return func(s *service) {
		s.assets = store
	}
}

// WithNotifier sets the notifier for moderation decisions
func WithNotifier(n Notifier) Option {
	return func(s *service) {
		s.notifier = n
	}
}

// WithLogger sets the logger used for swallowed failures
func WithLogger(log *slog.Logger) Option {
	return func(s *service) {
		s.log = log
	}
}

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		s.now = now
	}
}

// WithUploadTimeout bounds each asset store call
func WithUploadTimeout(d time.Duration) Option {
	return func(s *service) {
		s.uploadTimeout = d
	}
}

// WithGalleryLimit overrides the maximum gallery size accepted at submission
func WithGalleryLimit(n int) Option {
	return func(s *service) {
		s.galleryLimit = n
	}
}

// New creates a new lifecycle engine with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		now:           time.Now,
		uploadTimeout: defaultUploadTimeout,
		notifyTimeout: defaultNotifyTimeout,
		galleryLimit:  DefaultGalleryLimit,
	}

	for _, option := range options {
		option(s)
	}

	if s.repo == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if s.assets == nil {
		return nil, fmt.Errorf("asset store is required")
	}
	if s.notifier == nil {
		s.notifier = NewNoopNotifier()
	}
	if s.log == nil {
		s.log = slog.Default()
	}

	return s, nil
}

// Editorial operations

func (s *service) SubmitEditorial(ctx context.Context, req SubmitEditorialRequest) (*ContentItem, error) {
	if err := s.validateEditorial(req); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	status := StatusDraft
	var scheduledFor *time.Time
	switch {
	case req.PublishNow:
		status = StatusPublished
	case req.ScheduledFor != nil:
		if !req.ScheduledFor.After(now) {
			return nil, fmt.Errorf("%w: %s is not after %s", ErrInvalidSchedule, req.ScheduledFor, now)
		}
		t := req.ScheduledFor.UTC()
		scheduledFor = &t
		status = StatusScheduled
	}

	thumbnail, gallery, err := s.uploadAssets(ctx, req.Thumbnail, req.Gallery)
	if err != nil {
		return nil, err
	}

	item := &ContentItem{
		ID:           uuid.New(),
		Kind:         req.Kind,
		Status:       status,
		Title:        req.Title,
		Body:         req.Body,
		AuthorName:   req.AuthorName,
		AuthorEmail:  req.AuthorEmail,
		ScheduledFor: scheduledFor,
		Thumbnail:    thumbnail,
		Gallery:      gallery,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, item); err != nil {
		// Record write failed after the uploads succeeded: compensate
		// before surfacing, so no remote object outlives the failure.
		s.rollbackAssets(item.ID, assetRefs(thumbnail, gallery))
		return nil, &ItemError{ItemID: item.ID, Op: "submit_editorial", Err: err}
	}

	return item, nil
}

func (s *service) RescheduleEditorial(ctx context.Context, id uuid.UUID, newTime time.Time) error {
	if !newTime.After(s.now()) {
		return fmt.Errorf("%w: %s is not in the future", ErrInvalidSchedule, newTime)
	}

	item, err := s.repo.Get(ctx, id)
	if err != nil {
		return &ItemError{ItemID: id, Op: "reschedule", Err: err}
	}
	if !item.Kind.Editorial() {
		return &ItemError{ItemID: id, Op: "reschedule",
			Err: fmt.Errorf("%w: %s items have no schedule", ErrInvalidTransition, item.Kind)}
	}

	t := newTime.UTC()
	now := s.now().UTC()
	ok, err := s.repo.UpdateStatusIf(ctx, id, StatusScheduled, func(it *ContentItem) {
		it.ScheduledFor = &t
		it.UpdatedAt = now
	})
	if err != nil {
		return &ItemError{ItemID: id, Op: "reschedule", Err: err}
	}
	if !ok {
		return s.transitionRefused(ctx, id, "reschedule", canReschedule)
	}
	return nil
}

func (s *service) PublishNowEditorial(ctx context.Context, id uuid.UUID) error {
	item, err := s.repo.Get(ctx, id)
	if err != nil {
		return &ItemError{ItemID: id, Op: "publish", Err: err}
	}
	if !item.Kind.Editorial() {
		return &ItemError{ItemID: id, Op: "publish",
			Err: fmt.Errorf("%w: %s items are published through moderation", ErrInvalidTransition, item.Kind)}
	}

	now := s.now().UTC()
	for _, pre := range publishPreStates {
		ok, err := s.repo.UpdateStatusIf(ctx, id, pre, func(it *ContentItem) {
			it.Status = StatusPublished
			it.ScheduledFor = nil
			it.UpdatedAt = now
		})
		if err != nil {
			return &ItemError{ItemID: id, Op: "publish", Err: err}
		}
		if ok {
			return nil
		}
	}

	// No precondition matched. Either the item is already published (a
	// racing caller won; treat as idempotent success) or the transition
	// is genuinely illegal.
	item, err = s.repo.Get(ctx, id)
	if err != nil {
		return &ItemError{ItemID: id, Op: "publish", Err: err}
	}
	if item.Status == StatusPublished {
		return nil
	}
	if _, err := canPublish(item.Status); err != nil {
		return &ItemError{ItemID: id, Op: "publish", Err: err}
	}
	return &ItemError{ItemID: id, Op: "publish",
		Err: fmt.Errorf("%w: concurrent update from status %s", ErrInvalidTransition, item.Status)}
}

// Moderation operations

func (s *service) SubmitTheory(ctx context.Context, req SubmitTheoryRequest) (*ContentItem, error) {
	if err := s.validateTheory(req); err != nil {
		return nil, err
	}

	var attachments []AssetUpload
	if req.Attachment != nil {
		attachments = append(attachments, *req.Attachment)
	}
	thumbnail, _, err := s.uploadAssets(ctx, firstUpload(attachments), nil)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	item := &ContentItem{
		ID:          uuid.New(),
		Kind:        KindTheory,
		Status:      StatusPending,
		Title:       req.Title,
		Body:        req.Body,
		AuthorName:  req.AuthorName,
		AuthorEmail: req.AuthorEmail,
		Thumbnail:   thumbnail,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, item); err != nil {
		s.rollbackAssets(item.ID, assetRefs(thumbnail, nil))
		return nil, &ItemError{ItemID: item.ID, Op: "submit_theory", Err: err}
	}

	return item, nil
}

func (s *service) ApproveTheory(ctx context.Context, id uuid.UUID) error {
	item, err := s.moderatedItem(ctx, id, "approve")
	if err != nil {
		return err
	}

	now := s.now().UTC()
	ok, err := s.repo.UpdateStatusIf(ctx, id, StatusPending, func(it *ContentItem) {
		it.Status = StatusApproved
		it.ReviewedAt = &now
		it.UpdatedAt = now
	})
	if err != nil {
		return &ItemError{ItemID: id, Op: "approve", Err: err}
	}
	if !ok {
		return s.transitionRefused(ctx, id, "approve", canReview)
	}

	s.dispatchNotification(item, TemplateTheoryApproved, map[string]string{
		"title": item.Title,
	})
	return nil
}

func (s *service) RejectTheory(ctx context.Context, id uuid.UUID, reason string) error {
	if reason == "" {
		return fmt.Errorf("%w: rejection reason must not be empty", ErrValidation)
	}

	item, err := s.moderatedItem(ctx, id, "reject")
	if err != nil {
		return err
	}

	now := s.now().UTC()
	ok, err := s.repo.UpdateStatusIf(ctx, id, StatusPending, func(it *ContentItem) {
		it.Status = StatusRejected
		it.ReviewedAt = &now
		it.RejectionReason = reason
		it.UpdatedAt = now
	})
	if err != nil {
		return &ItemError{ItemID: id, Op: "reject", Err: err}
	}
	if !ok {
		return s.transitionRefused(ctx, id, "reject", canReview)
	}

	s.dispatchNotification(item, TemplateTheoryRejected, map[string]string{
		"title":  item.Title,
		"reason": reason,
	})
	return nil
}

// Shared operations

func (s *service) GetContent(ctx context.Context, id uuid.UUID) (*ContentItem, error) {
	return s.repo.Get(ctx, id)
}

func (s *service) ListContent(ctx context.Context, req ListContentRequest) ([]*ContentItem, error) {
	return s.repo.List(ctx, ListContentFilters{
		Kind:   req.Kind,
		Status: req.Status,
		Limit:  req.Limit,
		Offset: req.Offset,
	})
}

func (s *service) DeleteContent(ctx context.Context, id uuid.UUID) error {
	item, err := s.repo.Delete(ctx, id)
	if err != nil {
		return &ItemError{ItemID: id, Op: "delete", Err: err}
	}

	// The record is gone; every owned asset must go with it. Attempt all
	// deletes and report the stragglers together.
	if err := s.deleteAssets(item.ID, item.AssetHandles()); err != nil {
		return err
	}
	return nil
}

// Gallery maintenance

func (s *service) UpdateGalleryDescriptions(ctx context.Context, id uuid.UUID, descriptions map[string]string) error {
	if len(descriptions) == 0 {
		return fmt.Errorf("%w: no descriptions given", ErrValidation)
	}

	return s.mutateGallery(ctx, id, "update_gallery_descriptions", func(it *ContentItem) error {
		byHandle := make(map[string]int, len(it.Gallery))
		for i, img := range it.Gallery {
			byHandle[img.Handle] = i
		}
		for handle := range descriptions {
			if _, ok := byHandle[handle]; !ok {
				return fmt.Errorf("%w: unknown gallery handle %q", ErrValidation, handle)
			}
		}
		for handle, desc := range descriptions {
			it.Gallery[byHandle[handle]].Description = desc
		}
		return nil
	})
}

func (s *service) RemoveGalleryImage(ctx context.Context, id uuid.UUID, handle string) error {
	err := s.mutateGallery(ctx, id, "remove_gallery_image", func(it *ContentItem) error {
		idx := -1
		for i, img := range it.Gallery {
			if img.Handle == handle {
				idx = i
				break
			}
		}
		if idx < 0 {
			return fmt.Errorf("%w: unknown gallery handle %q", ErrValidation, handle)
		}
		it.Gallery = append(it.Gallery[:idx], it.Gallery[idx+1:]...)
		return nil
	})
	if err != nil {
		return err
	}

	// The ref is out of the record; the remote object must not be left
	// behind.
	return s.deleteAssets(id, []string{handle})
}

// mutateGallery applies a gallery-only mutation under the conditional
// update, retrying when a concurrent status transition raced the read.
// The edit runs inside the mutate closure, against the record the
// repository holds under its lock, so two concurrent gallery edits
// serialize instead of the second overwriting the first from a stale
// read. apply must validate before mutating: when it returns an error the
// stored item is unchanged.
func (s *service) mutateGallery(ctx context.Context, id uuid.UUID, op string, apply func(*ContentItem) error) error {
	const attempts = 3
	for i := 0; i < attempts; i++ {
		item, err := s.repo.Get(ctx, id)
		if err != nil {
			return &ItemError{ItemID: id, Op: op, Err: err}
		}

		now := s.now().UTC()
		var applyErr error
		ok, err := s.repo.UpdateStatusIf(ctx, id, item.Status, func(it *ContentItem) {
			if applyErr = apply(it); applyErr != nil {
				return
			}
			it.UpdatedAt = now
		})
		if err != nil {
			return &ItemError{ItemID: id, Op: op, Err: err}
		}
		if applyErr != nil {
			return applyErr
		}
		if ok {
			return nil
		}
	}
	return &ItemError{ItemID: id, Op: op,
		Err: fmt.Errorf("%w: item status kept changing concurrently", ErrInvalidTransition)}
}

// Helpers

func (s *service) validateEditorial(req SubmitEditorialRequest) error {
	if !req.Kind.Editorial() {
		return fmt.Errorf("%w: kind %q is not editorial", ErrValidation, req.Kind)
	}
	if req.Title == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if req.PublishNow && req.ScheduledFor != nil {
		return fmt.Errorf("%w: publish now and a schedule are mutually exclusive", ErrValidation)
	}
	if len(req.Gallery) > s.galleryLimit {
		return fmt.Errorf("%w: gallery holds %d images, limit is %d", ErrValidation, len(req.Gallery), s.galleryLimit)
	}
	return nil
}

func (s *service) validateTheory(req SubmitTheoryRequest) error {
	if req.Title == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if req.Body == "" {
		return fmt.Errorf("%w: body is required", ErrValidation)
	}
	if req.AuthorEmail == "" {
		return fmt.Errorf("%w: author email is required", ErrValidation)
	}
	return nil
}

// moderatedItem loads an item and checks it belongs to the moderation
// state machine.
func (s *service) moderatedItem(ctx context.Context, id uuid.UUID, op string) (*ContentItem, error) {
	item, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, &ItemError{ItemID: id, Op: op, Err: err}
	}
	if !item.Kind.Moderated() {
		return nil, &ItemError{ItemID: id, Op: op,
			Err: fmt.Errorf("%w: %s items are not moderated", ErrInvalidTransition, item.Kind)}
	}
	return item, nil
}

// transitionRefused turns a failed conditional update into the precise
// transition error for the item's current status.
func (s *service) transitionRefused(ctx context.Context, id uuid.UUID, op string, check func(Status) (bool, error)) error {
	item, err := s.repo.Get(ctx, id)
	if err != nil {
		return &ItemError{ItemID: id, Op: op, Err: err}
	}
	if _, err := check(item.Status); err != nil {
		return &ItemError{ItemID: id, Op: op, Err: err}
	}
	return &ItemError{ItemID: id, Op: op,
		Err: fmt.Errorf("%w: concurrent update from status %s", ErrInvalidTransition, item.Status)}
}

// dispatchNotification sends the moderation notification without blocking
// the transition. Failures are logged, never surfaced: the decision is
// durable whether or not the email goes out.
func (s *service) dispatchNotification(item *ContentItem, template NotificationTemplate, fields map[string]string) {
	if item.AuthorEmail == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.notifyTimeout)
		defer cancel()
		if err := s.notifier.Send(ctx, item.AuthorEmail, template, fields); err != nil {
			s.log.Error("notification send failed",
				"item_id", item.ID, "template", template, "error", err)
		}
	}()
}

func firstUpload(uploads []AssetUpload) *AssetUpload {
	if len(uploads) == 0 {
		return nil
	}
	return &uploads[0]
}

func assetRefs(thumbnail *AssetRef, gallery []GalleryImage) []AssetRef {
	var refs []AssetRef
	if thumbnail != nil {
		refs = append(refs, *thumbnail)
	}
	for _, img := range gallery {
		refs = append(refs, img.AssetRef)
	}
	return refs
}
