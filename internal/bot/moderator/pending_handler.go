package moderator

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/mensatt/notifier/internal/core/ports"
)

// pendingHandler reposts a panel for every review still awaiting
// moderation. Useful after a panel edit failed or got lost.
type pendingHandler struct {
	log      zerolog.Logger
	api      ports.ReviewAPI
	notifier *Notifier
}

// NewPendingHandler creates the /pending command handler.
func NewPendingHandler(api ports.ReviewAPI, notifier *Notifier, baseLogger *zerolog.Logger) ports.CommandHandler {
	return &pendingHandler{
		log:      baseLogger.With().Str("component", "pending_handler").Logger(),
		api:      api,
		notifier: notifier,
	}
}

func (h *pendingHandler) Command() string {
	return "pending"
}

func (h *pendingHandler) Handle(ctx context.Context, update *ports.BotUpdate) error {
	reviews, err := h.api.ListUnapproved(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list unapproved reviews")
		return err
	}

	h.log.Info().Int("count", len(reviews)).Msg("Reposting unapproved reviews")
	for _, review := range reviews {
		if err := h.notifier.PostReview(ctx, review); err != nil {
			h.log.Error().Err(err).Str("review_id", review.ID).Msg("Failed to post review panel")
		}
	}
	return nil
}
