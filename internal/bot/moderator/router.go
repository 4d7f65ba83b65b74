package moderator

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/mensatt/notifier/internal/adapters/telegram"
	"github.com/mensatt/notifier/internal/core/ports"
)

// Router receives raw updates from the event bus and dispatches them to the
// registered command and callback handlers. Only updates originating from
// the configured review channel are accepted.
type Router struct {
	log              zerolog.Logger
	channelID        int64
	botClient        ports.BotClientPort
	commandHandlers  map[string]ports.CommandHandler
	callbackHandlers map[string]ports.CallbackHandler
}

// NewRouter creates a router and subscribes it to the bus topics.
func NewRouter(
	channelID int64,
	botClient ports.BotClientPort,
	bus ports.EventBus,
	baseLogger *zerolog.Logger,
) *Router {
	r := &Router{
		log:              baseLogger.With().Str("component", "moderation_router").Logger(),
		channelID:        channelID,
		botClient:        botClient,
		commandHandlers:  make(map[string]ports.CommandHandler),
		callbackHandlers: make(map[string]ports.CallbackHandler),
	}
	bus.Subscribe(telegram.TopicMessage, r.handleMessageEvent)
	bus.Subscribe(telegram.TopicCallbackQuery, r.handleCallbackEvent)
	return r
}

// RegisterCommandHandler adds a command handler to the router.
func (r *Router) RegisterCommandHandler(handler ports.CommandHandler) {
	cmd := handler.Command()
	r.commandHandlers[cmd] = handler
	r.log.Info().Str("command", cmd).Msg("Registered new command handler")
}

// RegisterCallbackHandler adds a callback handler under each of its prefixes.
func (r *Router) RegisterCallbackHandler(handler ports.CallbackHandler) {
	for _, prefix := range handler.Prefixes() {
		r.callbackHandlers[prefix] = handler
		r.log.Info().Str("prefix", prefix).Msg("Registered new callback handler")
	}
}

// handleMessageEvent routes command messages from the review channel.
func (r *Router) handleMessageEvent(ctx context.Context, event ports.Event) error {
	update, ok := event.Data.(tgbotapi.Update)
	if !ok {
		r.log.Error().Str("topic", event.Topic).Msg("Received bad message event from bus")
		return nil
	}

	botUpdate, supported := r.parseUpdate(&update)
	if !supported {
		return nil
	}
	if !r.authorized(botUpdate) {
		return nil
	}

	if botUpdate.Command == "" {
		return nil
	}
	handler, ok := r.commandHandlers[botUpdate.Command]
	if !ok {
		r.log.Warn().Str("command", botUpdate.Command).Msg("No handler for command")
		return nil
	}

	log := r.contextLogger(botUpdate)
	log.Info().Str("handler", botUpdate.Command).Msg("Routing to command handler")
	if err := handler.Handle(log.WithContext(ctx), botUpdate); err != nil {
		log.Error().Err(err).Msg("Command handler failed")
	}
	return nil
}

// handleCallbackEvent routes callback queries (button presses on panels).
func (r *Router) handleCallbackEvent(ctx context.Context, event ports.Event) error {
	update, ok := event.Data.(tgbotapi.Update)
	if !ok {
		r.log.Error().Str("topic", event.Topic).Msg("Received bad callback event from bus")
		return nil
	}

	botUpdate, supported := r.parseUpdate(&update)
	if !supported || botUpdate.CallbackData == nil {
		return nil
	}
	if !r.authorized(botUpdate) {
		return nil
	}

	log := r.contextLogger(botUpdate)
	for prefix, handler := range r.callbackHandlers {
		if strings.HasPrefix(*botUpdate.CallbackData, prefix) {
			log.Info().Str("handler", prefix).Str("data", *botUpdate.CallbackData).Msg("Routing to callback handler")
			if err := handler.Handle(log.WithContext(ctx), botUpdate); err != nil {
				log.Error().Err(err).Msg("Callback handler failed")
			}
			return nil
		}
	}

	// No handler matched: either sentinel data from a disabled button or
	// garbage. Acknowledge so the client stops its spinner, change nothing.
	log.Warn().Str("data", *botUpdate.CallbackData).Msg("No callback handler found")
	r.botClient.AnswerCallbackQuery(ctx, ports.AnswerCallbackParams{
		CallbackQueryID: botUpdate.CallbackQueryID,
	})
	return nil
}

// authorized restricts updates to the private review channel. Membership in
// that channel is the moderation permission model.
func (r *Router) authorized(update *ports.BotUpdate) bool {
	if update.ChatID == r.channelID {
		return true
	}
	r.log.Warn().
		Int64("chat_id", update.ChatID).
		Int64("user_id", update.UserID).
		Msg("Update from outside the review channel, ignoring")
	return false
}

func (r *Router) contextLogger(update *ports.BotUpdate) zerolog.Logger {
	return r.log.With().
		Int64("user_id", update.UserID).
		Int64("chat_id", update.ChatID).
		Logger()
}

// parseUpdate converts a tgbotapi.Update into our internal, simplified struct.
func (r *Router) parseUpdate(update *tgbotapi.Update) (*ports.BotUpdate, bool) {
	if update.CallbackQuery != nil {
		cb := update.CallbackQuery
		if cb.Message == nil {
			return nil, false
		}
		return &ports.BotUpdate{
			MessageID:       cb.Message.MessageID,
			ChatID:          cb.Message.Chat.ID,
			UserID:          cb.From.ID,
			UserName:        displayName(cb.From),
			Text:            messageText(cb.Message),
			CallbackQueryID: cb.ID,
			CallbackData:    &cb.Data,
			Keyboard:        keyboardFromMarkup(cb.Message.ReplyMarkup),
			HasPhoto:        len(cb.Message.Photo) > 0,
		}, true
	}

	msg := update.Message
	if msg == nil {
		msg = update.ChannelPost
	}
	if msg != nil {
		botUpdate := &ports.BotUpdate{
			MessageID: msg.MessageID,
			ChatID:    msg.Chat.ID,
			Text:      msg.Text,
			Command:   msg.Command(),
		}
		if msg.From != nil {
			botUpdate.UserID = msg.From.ID
			botUpdate.UserName = displayName(msg.From)
		}
		return botUpdate, true
	}

	return nil, false // Unsupported update
}

func messageText(msg *tgbotapi.Message) string {
	if msg.Caption != "" {
		return msg.Caption
	}
	return msg.Text
}

func displayName(user *tgbotapi.User) string {
	if user.UserName != "" {
		return user.UserName
	}
	return user.FirstName
}

func keyboardFromMarkup(markup *tgbotapi.InlineKeyboardMarkup) [][]ports.Button {
	if markup == nil {
		return nil
	}
	var rows [][]ports.Button
	for _, markupRow := range markup.InlineKeyboard {
		var row []ports.Button
		for _, btn := range markupRow {
			var data string
			if btn.CallbackData != nil {
				data = *btn.CallbackData
			}
			row = append(row, ports.Button{Text: btn.Text, Data: data})
		}
		rows = append(rows, row)
	}
	return rows
}
