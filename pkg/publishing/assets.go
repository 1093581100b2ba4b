package publishing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// uploadAssets commits every attachment to the asset store before any
// record is written. The thumbnail goes first, then the gallery in display
// order. Any failure rolls back the uploads that already succeeded and
// surfaces the original error: a partial upload is a full submission
// failure.
func (s *service) uploadAssets(ctx context.Context, thumbnail *AssetUpload, gallery []AssetUpload) (*AssetRef, []GalleryImage, error) {
	var committed []AssetRef

	var thumbRef *AssetRef
	if thumbnail != nil {
		ref, err := s.uploadOne(ctx, *thumbnail)
		if err != nil {
			return nil, nil, err
		}
		thumbRef = &ref
		committed = append(committed, ref)
	}

	var images []GalleryImage
	for _, upload := range gallery {
		ref, err := s.uploadOne(ctx, upload)
		if err != nil {
			s.rollbackAssets(uuid.Nil, committed)
			return nil, nil, err
		}
		committed = append(committed, ref)
		images = append(images, GalleryImage{AssetRef: ref, Description: upload.Description})
	}

	return thumbRef, images, nil
}

// uploadOne runs a single upload under the store deadline. A deadline hit
// is reported as the store being unavailable rather than left to hang the
// caller.
func (s *service) uploadOne(ctx context.Context, upload AssetUpload) (AssetRef, error) {
	uctx, cancel := context.WithTimeout(ctx, s.uploadTimeout)
	defer cancel()

	ref, err := s.assets.Upload(uctx, upload.Reader, UploadInput{
		FileName:    upload.FileName,
		ContentType: upload.ContentType,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %v", ErrAssetStoreUnavailable, err)
		}
		return AssetRef{}, &AssetError{Handle: upload.FileName, Op: "upload", Err: err}
	}
	return ref, nil
}

// rollbackAssets best-effort deletes uploads whose owning record never
// became durable. A failed compensation is the one tolerated source of a
// dangling remote object; the handles are logged for manual cleanup.
func (s *service) rollbackAssets(itemID uuid.UUID, refs []AssetRef) {
	if len(refs) == 0 {
		return
	}

	// The request context may already be dead; compensation gets its own
	// deadline.
	ctx, cancel := context.WithTimeout(context.Background(), s.uploadTimeout)
	defer cancel()

	var dangling []string
	for _, ref := range refs {
		if err := s.assets.Delete(ctx, ref.Handle); err != nil {
			dangling = append(dangling, ref.Handle)
			s.log.Error("asset rollback failed",
				"item_id", itemID, "handle", ref.Handle, "url", ref.URL, "error", err)
		}
	}
	if len(dangling) > 0 {
		s.log.Error("asset rollback left dangling remote objects",
			"item_id", itemID, "handles", dangling)
	}
}

// deleteAssets removes every handle from the store, attempting all of them
// even when some fail, and reports the failures together.
func (s *service) deleteAssets(itemID uuid.UUID, handles []string) error {
	if len(handles) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.uploadTimeout)
	defer cancel()

	var dangling []string
	var errs []error
	for _, handle := range handles {
		if err := s.assets.Delete(ctx, handle); err != nil {
			dangling = append(dangling, handle)
			errs = append(errs, &AssetError{Handle: handle, Op: "delete", Err: err})
		}
	}
	if len(errs) == 0 {
		return nil
	}

	cleanupErr := &AssetCleanupError{ItemID: itemID, Handles: dangling, Err: errors.Join(errs...)}
	s.log.Error("asset cleanup incomplete",
		"item_id", itemID, "handles", dangling, "error", cleanupErr.Err)
	return cleanupErr
}
