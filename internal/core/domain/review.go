package domain

import "time"

// Review is a user-submitted rating on a dish occurrence, as delivered by
// the backend's reviewCreated subscription. Immutable once received.
type Review struct {
	ID           string
	OccurrenceID string
	DishName     string
	Stars        int    // 1..5
	DisplayName  string // empty means anonymous
	Text         string
	CreatedAt    time.Time
	Images       []ImageRef
}

// ImageRef identifies a review image on the image service.
type ImageRef struct {
	ID string
}

// HasImage reports whether the review carries at least one image.
func (r *Review) HasImage() bool {
	return len(r.Images) > 0
}

// FirstImageID returns the id of the first (embedded) image, or "".
func (r *Review) FirstImageID() string {
	if len(r.Images) == 0 {
		return ""
	}
	return r.Images[0].ID
}
