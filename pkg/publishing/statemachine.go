package publishing

import "fmt"

// canReschedule checks whether an editorial item's schedule may be moved
// based on its current status. Returns true if rescheduling is allowed,
// false with an error otherwise.
func canReschedule(status Status) (bool, error) {
	switch status {
	case StatusScheduled:
		return true, nil
	case StatusDraft:
		return false, fmt.Errorf("%w: item is an unscheduled draft (status: %s)", ErrInvalidTransition, status)
	case StatusPublished:
		return false, fmt.Errorf("%w: item is already published (status: %s)", ErrInvalidTransition, status)
	default:
		return false, fmt.Errorf("%w: cannot reschedule from status %s", ErrInvalidTransition, status)
	}
}

// canPublish checks whether an editorial item may transition to published.
// Published is not listed: a publish of an already-published item is the
// idempotent no-op case, which the engine handles separately.
func canPublish(status Status) (bool, error) {
	switch status {
	case StatusScheduled, StatusDraft:
		return true, nil
	default:
		return false, fmt.Errorf("%w: cannot publish from status %s", ErrInvalidTransition, status)
	}
}

// canReview checks whether a moderated item may be approved or rejected
// based on its current status.
func canReview(status Status) (bool, error) {
	switch status {
	case StatusPending:
		return true, nil
	case StatusApproved:
		return false, fmt.Errorf("%w: theory has already been approved (status: %s)", ErrInvalidTransition, status)
	case StatusRejected:
		return false, fmt.Errorf("%w: theory has already been rejected (status: %s)", ErrInvalidTransition, status)
	default:
		return false, fmt.Errorf("%w: cannot review from status %s", ErrInvalidTransition, status)
	}
}

// publishPreStates lists the statuses PublishNow may transition from, in
// attempt order. Scheduled first: that is the common case and the one the
// scheduler races on.
var publishPreStates = []Status{StatusScheduled, StatusDraft}

// validStatusForKind reports whether status belongs to the state machine
// selected by kind.
func validStatusForKind(kind Kind, status Status) bool {
	switch {
	case kind.Editorial():
		return status == StatusDraft || status == StatusScheduled || status == StatusPublished
	case kind.Moderated():
		return status == StatusPending || status == StatusApproved || status == StatusRejected
	default:
		return false
	}
}
