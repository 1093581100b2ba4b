package publishing

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Error types
var (
	// ErrNotFound indicates a content item was not found
	ErrNotFound = errors.New("content item not found")

	// ErrValidation indicates a submission or transition argument failed validation
	ErrValidation = errors.New("validation failed")

	// ErrInvalidTransition indicates the item's current status does not permit the transition
	ErrInvalidTransition = errors.New("invalid lifecycle transition")

	// ErrInvalidSchedule indicates a scheduled time that is not in the future
	ErrInvalidSchedule = errors.New("scheduled time must be in the future")

	// ErrAssetStoreUnavailable indicates the asset store did not respond within the deadline
	ErrAssetStoreUnavailable = errors.New("asset store unavailable")
)

// ItemError represents an error from a lifecycle operation on a content item
type ItemError struct {
	ItemID uuid.UUID
	Op     string
	Err    error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("lifecycle operation %s failed for item %s: %v", e.Op, e.ItemID, e.Err)
}

func (e *ItemError) Unwrap() error {
	return e.Err
}

// AssetError represents an error from an asset store operation
type AssetError struct {
	Handle string
	Op     string
	Err    error
}

func (e *AssetError) Error() string {
	return fmt.Sprintf("asset operation %s failed for handle %q: %v", e.Op, e.Handle, e.Err)
}

func (e *AssetError) Unwrap() error {
	return e.Err
}

// AssetCleanupError aggregates per-handle delete failures from a cleanup
// pass. Handles lists every handle whose remote object may still exist, so
// an operator can retry the deletes by hand.
type AssetCleanupError struct {
	ItemID  uuid.UUID
	Handles []string
	Err     error
}

func (e *AssetCleanupError) Error() string {
	return fmt.Sprintf("asset cleanup for item %s left %d dangling handle(s) %v: %v",
		e.ItemID, len(e.Handles), e.Handles, e.Err)
}

func (e *AssetCleanupError) Unwrap() error {
	return e.Err
}
