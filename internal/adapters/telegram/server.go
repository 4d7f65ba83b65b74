package telegram

import (
	"context"
	"fmt"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/mensatt/notifier/internal/core/ports"
	"github.com/mensatt/notifier/internal/shared/config"
)

// Bus topics the server publishes raw updates to.
const (
	TopicMessage       = "telegram:message"
	TopicCallbackQuery = "telegram:callback_query"
)

// BotServer receives updates (polling or webhook) and publishes them to the
// event bus. It does no routing itself.
type BotServer struct {
	api *tgbotapi.BotAPI
	cfg *config.BotConfig
	bus ports.EventBus
	log zerolog.Logger
}

// NewBotServer creates a new server instance
func NewBotServer(
	api *tgbotapi.BotAPI,
	cfg *config.BotConfig,
	bus ports.EventBus,
	baseLogger *zerolog.Logger,
) *BotServer {
	return &BotServer{
		api: api,
		cfg: cfg,
		bus: bus,
		log: baseLogger.With().Str("component", "bot_server").Logger(),
	}
}

// Start begins the bot server based on the config mode
func (s *BotServer) Start(ctx context.Context) error {
	s.log.Info().Str("mode", s.cfg.Mode).Msg("Starting bot server...")

	switch s.cfg.Mode {
	case "polling":
		return s.startPolling(ctx)
	case "webhook":
		return s.startWebhook(ctx)
	default:
		return fmt.Errorf("unknown bot mode: %s", s.cfg.Mode)
	}
}

// startPolling runs a "dumb" poller that publishes to the event bus.
func (s *BotServer) startPolling(ctx context.Context) error {
	s.log.Info().Msg("Starting bot in POLLING mode")

	// 1. Clear any existing webhook
	deleteWebhookConfig := tgbotapi.DeleteWebhookConfig{
		DropPendingUpdates: false,
	}
	if _, err := s.api.Request(deleteWebhookConfig); err != nil {
		s.log.Warn().Err(err).Msg("Failed to delete webhook (continuing anyway)")
	} else {
		s.log.Info().Msg("Webhook deleted successfully")
	}

	// 2. Set up the update channel
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	// Panels live in a channel, so commands arrive as channel posts.
	u.AllowedUpdates = []string{"message", "channel_post", "callback_query"}

	updates := s.api.GetUpdatesChan(u)

	s.log.Info().Msg("Polling update listener started")

	// 3. Main loop: Poll and Publish
	for {
		select {
		case <-ctx.Done(): // Shutdown signal received
			s.api.StopReceivingUpdates()
			s.log.Info().Msg("Polling stopped gracefully")
			return nil
		case update := <-updates:
			s.publishUpdateToBus(ctx, update)
		}
	}
}

// startWebhook runs a "dumb" webhook server that publishes to the event bus.
func (s *BotServer) startWebhook(ctx context.Context) error {
	s.log.Info().
		Int("port", s.cfg.Webhook.ListenPort).
		Msg("Starting bot in WEBHOOK mode")

	// 1. Set the webhook
	webhookURL := fmt.Sprintf("%s/webhook/%s", s.cfg.Webhook.URL, s.api.Token)
	s.log.Info().Str("url", webhookURL).Msg("Setting webhook...")

	wh, err := tgbotapi.NewWebhook(webhookURL)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to create webhook config")
		return err
	}
	if _, err = s.api.Request(wh); err != nil {
		s.log.Error().Err(err).Msg("Failed to set webhook")
		return err
	}
	info, err := s.api.GetWebhookInfo()
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to get webhook info")
		return err
	}
	if info.LastErrorDate != 0 {
		s.log.Error().
			Str("error_message", info.LastErrorMessage).
			Msg("Telegram webhook has a last error")
	} else {
		s.log.Info().Msg("Webhook set successfully, no last error")
	}

	// 2. Get update channel
	updates := s.api.ListenForWebhook("/webhook/" + s.api.Token)

	// 3. Start HTTP server
	listenAddr := fmt.Sprintf("127.0.0.1:%d", s.cfg.Webhook.ListenPort)
	s.log.Info().Str("addr", listenAddr).Msg("Starting HTTP server for webhook")

	httpServer := &http.Server{Addr: listenAddr}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error().Err(err).Msg("Webhook HTTP server failed")
		}
	}()

	s.log.Info().Msg("Webhook update listener started")

	// 4. Main loop: Listen and Publish
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("Shutting down HTTP server...")
			if err := httpServer.Shutdown(context.Background()); err != nil {
				s.log.Error().Err(err).Msg("HTTP server shutdown error")
			}
			s.log.Info().Msg("Webhook server stopped gracefully")
			return nil
		case update := <-updates:
			s.publishUpdateToBus(ctx, update)
		}
	}
}

// publishUpdateToBus inspects the update and publishes it to the correct topic.
func (s *BotServer) publishUpdateToBus(ctx context.Context, update tgbotapi.Update) {
	if update.Message != nil || update.ChannelPost != nil {
		s.bus.Publish(ctx, TopicMessage, update)
	} else if update.CallbackQuery != nil {
		s.bus.Publish(ctx, TopicCallbackQuery, update)
	}
}
