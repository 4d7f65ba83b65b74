package ports

import (
	"context"

	"github.com/mensatt/notifier/internal/core/domain"
)

// ReviewAPI is the authenticated backend surface the moderation handlers
// call. Implementations attach a fresh bearer token per call.
type ReviewAPI interface {
	// ListUnapproved returns all reviews still awaiting moderation.
	ListUnapproved(ctx context.Context) ([]domain.Review, error)

	// SetApproved approves or rejects a review. Idempotent.
	SetApproved(ctx context.Context, id string, approved bool) error

	// DeleteReview deletes a review. NOT safe to blindly retry: deleting
	// an already-deleted id fails, and that failure is terminal.
	DeleteReview(ctx context.Context, id string) error
}

// ImageRotator fires the rotate side effect against the image service and
// knows how to address review images.
type ImageRotator interface {
	// Rotate requests a rotation by angle degrees. Fire-and-forget:
	// a failure is reported to the caller but never retried.
	Rotate(ctx context.Context, imageID string, angle int) error

	// ImageURL returns the authenticated URL for embedding an image.
	ImageURL(imageID string) string

	// BustedImageURL is ImageURL with a random cache-busting parameter,
	// used to force the chat client to refetch after a rotation.
	BustedImageURL(imageID string) string
}
