package ports

import (
	"context"
)

// --- Bot Message Structures ---

// Button represents a single inline keyboard button. Data carries the
// action identifier ("approve_<id>", "rotate_<id>_90", ...); buttons that
// are logically disabled carry sentinel data that never parses as an action.
type Button struct {
	Text string
	Data string
}

// SendMessageParams holds the options for sending a text panel.
type SendMessageParams struct {
	ChatID    int64
	Text      string
	ParseMode string // e.g., "HTML", empty for plain text
	Keyboard  [][]Button
}

// SendPhotoParams holds the options for sending a photo panel.
type SendPhotoParams struct {
	ChatID    int64
	PhotoURL  string
	Caption   string
	ParseMode string
	Keyboard  [][]Button
}

// EditMarkupParams replaces the inline keyboard of an existing message.
type EditMarkupParams struct {
	ChatID    int64
	MessageID int
	Keyboard  [][]Button
}

// EditPhotoParams swaps the photo of an existing message, keeping the
// caption. Used to refresh the preview after a rotation.
type EditPhotoParams struct {
	ChatID    int64
	MessageID int
	PhotoURL  string
	Keyboard  [][]Button
}

// AnswerCallbackParams acknowledges a callback query. Must be sent before
// any slow work so the client stops its spinner.
type AnswerCallbackParams struct {
	CallbackQueryID string
	Text            string
	ShowAlert       bool
}

// --- Bot Client Port (Outbound) ---

// BotClientPort defines the interface for sending and editing panels.
type BotClientPort interface {
	SendMessage(ctx context.Context, params SendMessageParams) (messageID int, err error)
	SendPhoto(ctx context.Context, params SendPhotoParams) (messageID int, err error)
	EditMessageReplyMarkup(ctx context.Context, params EditMarkupParams) error
	EditMessagePhoto(ctx context.Context, params EditPhotoParams) error
	AnswerCallbackQuery(ctx context.Context, params AnswerCallbackParams) error
	SetMenuCommands(ctx context.Context) error
}

// --- Bot Handler Port (Inbound) ---

// BotUpdate is a simplified, platform-neutral update. For callback queries
// it includes a snapshot of the message being acted on: its text/caption and
// its inline keyboard, from which the panel state is recovered.
type BotUpdate struct {
	MessageID       int
	ChatID          int64
	UserID          int64
	UserName        string
	Text            string // message text, or caption for photo messages
	Command         string
	CallbackQueryID string
	CallbackData    *string
	Keyboard        [][]Button
	HasPhoto        bool
}

// CommandHandler handles a single bot command (e.g. "pending").
type CommandHandler interface {
	Command() string
	Handle(ctx context.Context, update *BotUpdate) error
}

// CallbackHandler handles callback queries whose data starts with one of
// its prefixes.
type CallbackHandler interface {
	Prefixes() []string
	Handle(ctx context.Context, update *BotUpdate) error
}
