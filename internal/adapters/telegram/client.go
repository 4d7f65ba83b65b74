package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/mensatt/notifier/internal/core/ports"
)

// tgClient implements the BotClientPort.
type tgClient struct {
	api *tgbotapi.BotAPI
	log zerolog.Logger
}

// NewClient creates a new Telegram client adapter.
func NewClient(api *tgbotapi.BotAPI, baseLogger *zerolog.Logger) ports.BotClientPort {
	log := baseLogger.With().Str("component", "tg_client").Logger()
	return &tgClient{api: api, log: log}
}

// SendMessage posts a text panel and returns its message id.
func (c *tgClient) SendMessage(ctx context.Context, params ports.SendMessageParams) (int, error) {
	msg := tgbotapi.NewMessage(params.ChatID, params.Text)
	msg.ParseMode = params.ParseMode
	if params.Keyboard != nil {
		msg.ReplyMarkup = buildInlineKeyboard(params.Keyboard)
	}

	sent, err := c.api.Send(msg)
	if err != nil {
		c.log.Error().Err(err).Int64("chat_id", params.ChatID).Msg("Failed to send message")
		return 0, err
	}
	return sent.MessageID, nil
}

// SendPhoto posts a photo panel and returns its message id.
func (c *tgClient) SendPhoto(ctx context.Context, params ports.SendPhotoParams) (int, error) {
	msg := tgbotapi.NewPhoto(params.ChatID, tgbotapi.FileURL(params.PhotoURL))
	msg.Caption = params.Caption
	msg.ParseMode = params.ParseMode
	if params.Keyboard != nil {
		msg.ReplyMarkup = buildInlineKeyboard(params.Keyboard)
	}

	sent, err := c.api.Send(msg)
	if err != nil {
		c.log.Error().Err(err).Int64("chat_id", params.ChatID).Msg("Failed to send photo")
		return 0, err
	}
	return sent.MessageID, nil
}

// EditMessageReplyMarkup swaps the inline keyboard of an existing panel.
func (c *tgClient) EditMessageReplyMarkup(ctx context.Context, params ports.EditMarkupParams) error {
	markup := buildInlineKeyboard(params.Keyboard)
	msg := tgbotapi.NewEditMessageReplyMarkup(params.ChatID, params.MessageID, markup)

	if _, err := c.api.Send(msg); err != nil {
		c.log.Error().Err(err).
			Int64("chat_id", params.ChatID).
			Int("message_id", params.MessageID).
			Msg("Failed to edit message markup")
		return err
	}
	return nil
}

// EditMessagePhoto replaces the photo of an existing panel, used to force a
// refetch after a rotation.
func (c *tgClient) EditMessagePhoto(ctx context.Context, params ports.EditPhotoParams) error {
	media := tgbotapi.NewInputMediaPhoto(tgbotapi.FileURL(params.PhotoURL))
	msg := tgbotapi.EditMessageMediaConfig{
		BaseEdit: tgbotapi.BaseEdit{
			ChatID:    params.ChatID,
			MessageID: params.MessageID,
		},
		Media: media,
	}
	if params.Keyboard != nil {
		markup := buildInlineKeyboard(params.Keyboard)
		msg.BaseEdit.ReplyMarkup = &markup
	}

	if _, err := c.api.Request(msg); err != nil {
		c.log.Error().Err(err).
			Int64("chat_id", params.ChatID).
			Int("message_id", params.MessageID).
			Msg("Failed to edit message photo")
		return err
	}
	return nil
}

// AnswerCallbackQuery sends a response to a callback query (stops the spinner)
func (c *tgClient) AnswerCallbackQuery(ctx context.Context, params ports.AnswerCallbackParams) error {
	callbackConfig := tgbotapi.NewCallback(params.CallbackQueryID, params.Text)
	callbackConfig.ShowAlert = params.ShowAlert

	if _, err := c.api.Request(callbackConfig); err != nil {
		c.log.Error().Err(err).
			Str("callback_query_id", params.CallbackQueryID).
			Msg("Failed to answer callback query")
		return err
	}
	return nil
}

// SetMenuCommands sets the bot's /menu commands.
func (c *tgClient) SetMenuCommands(ctx context.Context) error {
	commands := []tgbotapi.BotCommand{
		{Command: "pending", Description: "Repost all reviews awaiting moderation"},
	}

	config := tgbotapi.NewSetMyCommands(commands...)
	if _, err := c.api.Request(config); err != nil {
		c.log.Error().Err(err).Msg("Failed to set menu commands")
		return err
	}
	return nil
}

// buildInlineKeyboard is a helper to create the inline keyboard.
func buildInlineKeyboard(buttons [][]ports.Button) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, buttonRow := range buttons {
		var row []tgbotapi.InlineKeyboardButton
		for _, btn := range buttonRow {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(btn.Text, btn.Data))
		}
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
