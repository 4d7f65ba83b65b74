package moderator

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/mensatt/notifier/internal/core/domain"
	"github.com/mensatt/notifier/internal/core/ports"
)

// moderationHandler handles every panel button press: it parses the action,
// recovers the panel state from the pressed message, runs the transition,
// performs the side effect and only then publishes the new rendering. Any
// failure aborts with the panel untouched so backend and panel never
// diverge from a partial update.
type moderationHandler struct {
	log    zerolog.Logger
	api    ports.ReviewAPI
	images ports.ImageRotator
	bot    ports.BotClientPort
	locks  *reviewLocks
}

// NewModerationHandler creates the callback handler for moderation actions.
func NewModerationHandler(
	api ports.ReviewAPI,
	images ports.ImageRotator,
	bot ports.BotClientPort,
	baseLogger *zerolog.Logger,
) ports.CallbackHandler {
	return &moderationHandler{
		log:    baseLogger.With().Str("component", "moderation_handler").Logger(),
		api:    api,
		images: images,
		bot:    bot,
		locks:  newReviewLocks(),
	}
}

func (h *moderationHandler) Prefixes() []string {
	return []string{"approve_", "reject_", "delete_", "rotate_", "edit_"}
}

func (h *moderationHandler) Handle(ctx context.Context, update *ports.BotUpdate) error {
	data := *update.CallbackData

	// Acknowledge inside the platform's short response window; the side
	// effects below can take longer than it allows.
	h.bot.AnswerCallbackQuery(ctx, ports.AnswerCallbackParams{
		CallbackQueryID: update.CallbackQueryID,
	})

	action, err := domain.ParseAction(data)
	if err != nil {
		h.log.Warn().Str("data", data).Err(err).Msg("Ignoring malformed action identifier")
		return nil
	}

	log := h.log.With().
		Str("review_id", action.ReviewID).
		Str("verb", string(action.Verb)).
		Str("actor", update.UserName).
		Logger()

	// Serialize interactions on the same review.
	unlock := h.locks.Lock(action.ReviewID)
	defer unlock()

	prev, err := RecoverState(update.Keyboard)
	if err != nil {
		log.Warn().Err(err).Msg("Could not recover panel state, ignoring interaction")
		return nil
	}

	effect, next, err := domain.Transition(prev, action, update.UserName)
	switch {
	case errors.Is(err, domain.ErrDeleted):
		log.Info().Msg("Ignoring action on deleted review")
		return nil
	case errors.Is(err, domain.ErrNoImage):
		h.bot.AnswerCallbackQuery(ctx, ports.AnswerCallbackParams{
			CallbackQueryID: update.CallbackQueryID,
			Text:            "You cannot rotate nothing! 😠",
			ShowAlert:       true,
		})
		return nil
	case err != nil:
		log.Warn().Err(err).Msg("Rejected interaction")
		return nil
	}

	switch effect.Kind {
	case domain.EffectSetApproved:
		if err := h.api.SetApproved(ctx, action.ReviewID, effect.Approved); err != nil {
			log.Error().Err(err).Msg("Failed to update review, panel left unchanged")
			return err
		}
	case domain.EffectDelete:
		if err := h.api.DeleteReview(ctx, action.ReviewID); err != nil {
			log.Error().Err(err).Msg("Failed to delete review, panel left unchanged")
			return err
		}
	case domain.EffectRotate:
		return h.rotate(ctx, log, update, effect.Angle)
	case domain.EffectNone:
		// An edit request has no backend effect; reviews are edited in
		// the web interface.
		h.bot.AnswerCallbackQuery(ctx, ports.AnswerCallbackParams{
			CallbackQueryID: update.CallbackQueryID,
			Text:            "Reviews can only be edited in the web interface.",
			ShowAlert:       true,
		})
		return nil
	}

	if err := h.bot.EditMessageReplyMarkup(ctx, ports.EditMarkupParams{
		ChatID:    update.ChatID,
		MessageID: update.MessageID,
		Keyboard:  Keyboard(next),
	}); err != nil {
		// Backend state and panel now diverge; there is no automatic
		// reconciliation, an operator has to fix the panel by hand.
		log.Error().Err(err).Str("approval", string(next.Approval)).
			Msg("Side effect applied but panel update failed")
		return err
	}

	log.Info().Str("approval", string(next.Approval)).Msg("Panel updated")
	return nil
}

// rotate fires the rotation and refreshes the image preview with a
// cache-busted URL. Panel state and keyboard stay exactly as they were.
func (h *moderationHandler) rotate(ctx context.Context, log zerolog.Logger, update *ports.BotUpdate, angle int) error {
	imageID, err := RecoverImageID(update.Text)
	if err != nil {
		log.Warn().Err(err).Msg("Could not recover image id, ignoring rotation")
		return nil
	}

	if err := h.images.Rotate(ctx, imageID, angle); err != nil {
		log.Error().Err(err).Str("image_id", imageID).Int("angle", angle).
			Msg("Failed to rotate image, panel left unchanged")
		return err
	}

	if err := h.bot.EditMessagePhoto(ctx, ports.EditPhotoParams{
		ChatID:    update.ChatID,
		MessageID: update.MessageID,
		PhotoURL:  h.images.BustedImageURL(imageID),
		Keyboard:  update.Keyboard,
	}); err != nil {
		log.Error().Err(err).Str("image_id", imageID).Msg("Failed to refresh image preview")
		return err
	}

	log.Info().Str("image_id", imageID).Int("angle", angle).Msg("Rotated image and refreshed preview")
	return nil
}
