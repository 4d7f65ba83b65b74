package moderator

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mensatt/notifier/internal/core/domain"
	"github.com/mensatt/notifier/internal/core/ports"
	"github.com/mensatt/notifier/internal/shared/config"
)

// Notifier drains the review channel and posts one moderation panel per
// review to the configured channel. Posting failures are logged and the
// event dropped; an operator can repost via /pending.
type Notifier struct {
	channelID     int64
	occurrenceURL string
	bot           ports.BotClientPort
	images        ports.ImageRotator
	log           zerolog.Logger
}

// NewNotifier creates a notifier posting into cfg.Bot.ReviewChannelID.
func NewNotifier(
	cfg *config.Config,
	bot ports.BotClientPort,
	images ports.ImageRotator,
	baseLogger *zerolog.Logger,
) *Notifier {
	return &Notifier{
		channelID:     cfg.Bot.ReviewChannelID,
		occurrenceURL: cfg.Mensatt.OccurrenceURL,
		bot:           bot,
		images:        images,
		log:           baseLogger.With().Str("component", "notifier").Logger(),
	}
}

// Run consumes reviews until ctx is cancelled.
func (n *Notifier) Run(ctx context.Context, reviews <-chan domain.Review) {
	n.log.Info().Msg("Waiting for review events...")
	for {
		select {
		case <-ctx.Done():
			n.log.Info().Msg("Notifier stopped")
			return
		case review := <-reviews:
			if err := n.PostReview(ctx, review); err != nil {
				n.log.Error().Err(err).Str("review_id", review.ID).Msg("Failed to post review panel")
			}
		}
	}
}

// PostReview renders and posts the panel for one review.
func (n *Notifier) PostReview(ctx context.Context, review domain.Review) error {
	state := NewPanelState(review.ID, review.HasImage())
	keyboard := Keyboard(state)

	if review.HasImage() {
		imageURL := n.images.ImageURL(review.FirstImageID())
		_, err := n.bot.SendPhoto(ctx, ports.SendPhotoParams{
			ChatID:   n.channelID,
			PhotoURL: imageURL,
			Caption:  n.buildCaption(review, imageURL),
			Keyboard: keyboard,
		})
		return err
	}

	_, err := n.bot.SendMessage(ctx, ports.SendMessageParams{
		ChatID:   n.channelID,
		Text:     n.buildCaption(review, ""),
		Keyboard: keyboard,
	})
	return err
}

// buildCaption renders the panel text. When the review has an image, the
// caption's last line is the authenticated image URL; RecoverImageID relies
// on that placement for rotations.
func (n *Notifier) buildCaption(review domain.Review, imageURL string) string {
	var b strings.Builder

	b.WriteString(review.DishName)
	b.WriteString(" | ")
	b.WriteString(strings.Repeat("★", review.Stars))
	b.WriteString("\n")

	name := review.DisplayName
	if name == "" {
		name = "Anonymous"
	}
	b.WriteString("by ")
	b.WriteString(name)
	if !review.CreatedAt.IsZero() {
		b.WriteString(" · ")
		b.WriteString(review.CreatedAt.Format("2006-01-02 15:04"))
	}
	b.WriteString("\n")

	if review.Text != "" {
		b.WriteString("\n")
		b.WriteString(review.Text)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(n.occurrenceURL)
	b.WriteString(review.OccurrenceID)

	if imageURL != "" {
		b.WriteString("\n")
		b.WriteString(imageURL)
	}

	return b.String()
}
