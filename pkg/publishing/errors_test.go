package publishing_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obscura-press/obscura/pkg/publishing"
)

func TestItemErrorUnwrap(t *testing.T) {
	id := uuid.New()
	err := &publishing.ItemError{
		ItemID: id,
		Op:     "publish",
		Err:    fmt.Errorf("%w: cannot publish from status pending", publishing.ErrInvalidTransition),
	}

	assert.ErrorIs(t, err, publishing.ErrInvalidTransition)
	assert.Contains(t, err.Error(), "publish")
	assert.Contains(t, err.Error(), id.String())
}

func TestAssetErrorUnwrap(t *testing.T) {
	err := &publishing.AssetError{
		Handle: "2026/03/abc.jpg",
		Op:     "upload",
		Err:    publishing.ErrAssetStoreUnavailable,
	}

	assert.ErrorIs(t, err, publishing.ErrAssetStoreUnavailable)
	assert.Contains(t, err.Error(), "2026/03/abc.jpg")
}

func TestAssetCleanupErrorAggregation(t *testing.T) {
	id := uuid.New()
	joined := errors.Join(
		errors.New("delete a.jpg: timeout"),
		errors.New("delete b.jpg: timeout"),
	)
	err := &publishing.AssetCleanupError{
		ItemID:  id,
		Handles: []string{"a.jpg", "b.jpg"},
		Err:     joined,
	}

	require.Len(t, err.Handles, 2)
	assert.Contains(t, err.Error(), "2 dangling handle(s)")
	assert.ErrorIs(t, err, joined)
}
