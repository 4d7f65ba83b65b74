package moderator

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mensatt/notifier/internal/core/domain"
	"github.com/mensatt/notifier/internal/core/ports"
)

func newTestHandler(t *testing.T) (*MockReviewAPI, *MockImageRotator, *MockBotClient, ports.CallbackHandler) {
	t.Helper()
	nopLogger := zerolog.Nop()
	api := new(MockReviewAPI)
	images := new(MockImageRotator)
	bot := new(MockBotClient)
	handler := NewModerationHandler(api, images, bot, &nopLogger)
	return api, images, bot, handler
}

func callbackUpdate(data string, state domain.PanelState, caption string) *ports.BotUpdate {
	return &ports.BotUpdate{
		MessageID:       42,
		ChatID:          1000,
		UserID:          7,
		UserName:        "alice",
		Text:            caption,
		CallbackQueryID: "cbq-1",
		CallbackData:    &data,
		Keyboard:        Keyboard(state),
		HasPhoto:        state.HasImage,
	}
}

func TestModerationHandler_Approve(t *testing.T) {
	api, _, bot, handler := newTestHandler(t)
	update := callbackUpdate("approve_r1", NewPanelState("r1", false), "panel")

	bot.On("AnswerCallbackQuery", mock.Anything, ports.AnswerCallbackParams{CallbackQueryID: "cbq-1"}).Return(nil).Once()
	api.On("SetApproved", mock.Anything, "r1", true).Return(nil).Once()
	bot.On("EditMessageReplyMarkup", mock.Anything, mock.MatchedBy(func(p ports.EditMarkupParams) bool {
		recovered, err := RecoverState(p.Keyboard)
		return err == nil &&
			p.MessageID == 42 &&
			recovered.Approval == domain.ApprovalApproved &&
			recovered.Actor == "alice"
	})).Return(nil).Once()

	require.NoError(t, handler.Handle(context.Background(), update))

	api.AssertExpectations(t)
	bot.AssertExpectations(t)
}

func TestModerationHandler_ApprovedPanelShowsUnapprove(t *testing.T) {
	api, _, bot, handler := newTestHandler(t)
	update := callbackUpdate("approve_r1", NewPanelState("r1", false), "panel")

	bot.On("AnswerCallbackQuery", mock.Anything, mock.Anything).Return(nil)
	api.On("SetApproved", mock.Anything, "r1", true).Return(nil).Once()

	var edited ports.EditMarkupParams
	bot.On("EditMessageReplyMarkup", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { edited = args.Get(1).(ports.EditMarkupParams) }).
		Return(nil).Once()

	require.NoError(t, handler.Handle(context.Background(), update))

	row := edited.Keyboard[0]
	assert.Equal(t, "✅ Approved by alice", row[0].Text)
	assert.Equal(t, "🗑 Unapprove", row[len(row)-1].Text)
	// The approve button must now be inert.
	_, err := domain.ParseAction(row[0].Data)
	assert.ErrorIs(t, err, domain.ErrMalformedAction)
}

func TestModerationHandler_Rotate(t *testing.T) {
	api, images, bot, handler := newTestHandler(t)
	state := NewPanelState("r1", true)
	caption := "Currywurst | ★★★★\nhttps://img.mensatt.de/img1?auth=secret"
	update := callbackUpdate("rotate_r1_90", state, caption)

	bot.On("AnswerCallbackQuery", mock.Anything, mock.Anything).Return(nil)
	images.On("Rotate", mock.Anything, "img1", 90).Return(nil).Once()
	images.On("BustedImageURL", "img1").Return("https://img.mensatt.de/img1?auth=secret&fake=xyz").Once()
	bot.On("EditMessagePhoto", mock.Anything, mock.MatchedBy(func(p ports.EditPhotoParams) bool {
		// New URL, unchanged keyboard: approval state must not move.
		recovered, err := RecoverState(p.Keyboard)
		return err == nil &&
			p.PhotoURL == "https://img.mensatt.de/img1?auth=secret&fake=xyz" &&
			recovered == state
	})).Return(nil).Once()

	require.NoError(t, handler.Handle(context.Background(), update))

	images.AssertExpectations(t)
	bot.AssertExpectations(t)
	api.AssertNotCalled(t, "SetApproved", mock.Anything, mock.Anything, mock.Anything)
}

func TestModerationHandler_RotateFailureLeavesPanel(t *testing.T) {
	_, images, bot, handler := newTestHandler(t)
	caption := "Currywurst | ★★★★\nhttps://img.mensatt.de/img1?auth=secret"
	update := callbackUpdate("rotate_r1_180", NewPanelState("r1", true), caption)

	bot.On("AnswerCallbackQuery", mock.Anything, mock.Anything).Return(nil)
	images.On("Rotate", mock.Anything, "img1", 180).Return(errors.New("boom")).Once()

	require.Error(t, handler.Handle(context.Background(), update))

	bot.AssertNotCalled(t, "EditMessagePhoto", mock.Anything, mock.Anything)
	bot.AssertNotCalled(t, "EditMessageReplyMarkup", mock.Anything, mock.Anything)
}

func TestModerationHandler_MalformedIdentifier(t *testing.T) {
	api, images, bot, handler := newTestHandler(t)
	update := callbackUpdate("foo_r1_90_17", NewPanelState("r1", false), "panel")

	// Only the defer acknowledgement, nothing else.
	bot.On("AnswerCallbackQuery", mock.Anything, ports.AnswerCallbackParams{CallbackQueryID: "cbq-1"}).Return(nil).Once()

	require.NoError(t, handler.Handle(context.Background(), update))

	api.AssertNotCalled(t, "SetApproved", mock.Anything, mock.Anything, mock.Anything)
	api.AssertNotCalled(t, "DeleteReview", mock.Anything, mock.Anything)
	images.AssertNotCalled(t, "Rotate", mock.Anything, mock.Anything, mock.Anything)
	bot.AssertNotCalled(t, "EditMessageReplyMarkup", mock.Anything, mock.Anything)
	bot.AssertExpectations(t)
}

func TestModerationHandler_DeleteOnDeletedPanelMakesNoCalls(t *testing.T) {
	api, _, bot, handler := newTestHandler(t)
	deleted := domain.PanelState{
		ReviewID: "r1",
		HasImage: true,
		Approval: domain.ApprovalDeleted,
		Actor:    "bob",
	}
	// A live-looking delete action against an already deleted panel, as a
	// stale duplicate interaction would produce.
	update := callbackUpdate("delete_r1", deleted, "panel")

	bot.On("AnswerCallbackQuery", mock.Anything, mock.Anything).Return(nil)

	require.NoError(t, handler.Handle(context.Background(), update))

	api.AssertNotCalled(t, "DeleteReview", mock.Anything, mock.Anything)
	bot.AssertNotCalled(t, "EditMessageReplyMarkup", mock.Anything, mock.Anything)
}

func TestModerationHandler_SideEffectFailurePreservesPanel(t *testing.T) {
	api, _, bot, handler := newTestHandler(t)
	update := callbackUpdate("approve_r1", NewPanelState("r1", false), "panel")

	bot.On("AnswerCallbackQuery", mock.Anything, mock.Anything).Return(nil)
	api.On("SetApproved", mock.Anything, "r1", true).Return(errors.New("backend down")).Once()

	require.Error(t, handler.Handle(context.Background(), update))

	bot.AssertNotCalled(t, "EditMessageReplyMarkup", mock.Anything, mock.Anything)
}

func TestModerationHandler_DeleteFromRejected(t *testing.T) {
	api, _, bot, handler := newTestHandler(t)
	rejected := domain.PanelState{
		ReviewID:        "r1",
		HasImage:        true,
		Approval:        domain.ApprovalRejected,
		Actor:           "bob",
		RotationEnabled: true,
	}
	update := callbackUpdate("delete_r1", rejected, "panel")

	bot.On("AnswerCallbackQuery", mock.Anything, mock.Anything).Return(nil)
	api.On("DeleteReview", mock.Anything, "r1").Return(nil).Once()
	bot.On("EditMessageReplyMarkup", mock.Anything, mock.MatchedBy(func(p ports.EditMarkupParams) bool {
		recovered, err := RecoverState(p.Keyboard)
		return err == nil &&
			recovered.Approval == domain.ApprovalDeleted &&
			recovered.Actor == "alice" &&
			!recovered.RotationEnabled
	})).Return(nil).Once()

	require.NoError(t, handler.Handle(context.Background(), update))

	api.AssertExpectations(t)
	bot.AssertExpectations(t)
}
