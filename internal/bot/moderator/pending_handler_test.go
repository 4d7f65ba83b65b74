package moderator

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mensatt/notifier/internal/core/domain"
	"github.com/mensatt/notifier/internal/core/ports"
)

func TestPendingHandler_RepostsEveryUnapprovedReview(t *testing.T) {
	nopLogger := zerolog.Nop()
	api := new(MockReviewAPI)
	bot, _, notifier := newTestNotifier(t)
	handler := NewPendingHandler(api, notifier, &nopLogger)

	api.On("ListUnapproved", mock.Anything).Return([]domain.Review{
		{ID: "r1", DishName: "A", Stars: 1},
		{ID: "r2", DishName: "B", Stars: 2},
	}, nil).Once()
	bot.On("SendMessage", mock.Anything, mock.Anything).Return(1, nil).Twice()

	require.NoError(t, handler.Handle(context.Background(), &ports.BotUpdate{Command: "pending"}))

	api.AssertExpectations(t)
	bot.AssertExpectations(t)
}

func TestPendingHandler_ListFailure(t *testing.T) {
	nopLogger := zerolog.Nop()
	api := new(MockReviewAPI)
	bot, _, notifier := newTestNotifier(t)
	handler := NewPendingHandler(api, notifier, &nopLogger)

	api.On("ListUnapproved", mock.Anything).Return(nil, errors.New("backend down")).Once()

	require.Error(t, handler.Handle(context.Background(), &ports.BotUpdate{Command: "pending"}))
	bot.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything)
}

func TestPendingHandler_PostFailureContinues(t *testing.T) {
	nopLogger := zerolog.Nop()
	api := new(MockReviewAPI)
	bot, _, notifier := newTestNotifier(t)
	handler := NewPendingHandler(api, notifier, &nopLogger)

	api.On("ListUnapproved", mock.Anything).Return([]domain.Review{
		{ID: "r1", DishName: "A", Stars: 1},
		{ID: "r2", DishName: "B", Stars: 2},
	}, nil).Once()
	bot.On("SendMessage", mock.Anything, mock.Anything).Return(0, errors.New("telegram down")).Once()
	bot.On("SendMessage", mock.Anything, mock.Anything).Return(2, nil).Once()

	// One failed post must not stop the rest.
	require.NoError(t, handler.Handle(context.Background(), &ports.BotUpdate{Command: "pending"}))
	bot.AssertExpectations(t)
}
