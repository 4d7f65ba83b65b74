package gql

import (
	"time"

	"github.com/mensatt/notifier/internal/core/domain"
)

// wireReview mirrors the backend's Review selection set. Shared by the
// query client and the subscription listener.
type wireReview struct {
	ID         string `json:"id"`
	Occurrence struct {
		ID   string `json:"id"`
		Dish struct {
			NameDe string `json:"nameDe"`
		} `json:"dish"`
	} `json:"occurrence"`
	DisplayName *string   `json:"displayName"`
	Stars       int       `json:"stars"`
	Text        *string   `json:"text"`
	CreatedAt   time.Time `json:"createdAt"`
	Images      []struct {
		ID string `json:"id"`
	} `json:"images"`
}

func (w *wireReview) toDomain() domain.Review {
	r := domain.Review{
		ID:           w.ID,
		OccurrenceID: w.Occurrence.ID,
		DishName:     w.Occurrence.Dish.NameDe,
		Stars:        w.Stars,
		CreatedAt:    w.CreatedAt,
	}
	if w.DisplayName != nil {
		r.DisplayName = *w.DisplayName
	}
	if w.Text != nil {
		r.Text = *w.Text
	}
	for _, img := range w.Images {
		r.Images = append(r.Images, domain.ImageRef{ID: img.ID})
	}
	return r
}
