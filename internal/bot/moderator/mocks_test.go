package moderator

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/mensatt/notifier/internal/core/domain"
	"github.com/mensatt/notifier/internal/core/ports"
)

// --- Mocks ---

// MockReviewAPI
type MockReviewAPI struct {
	mock.Mock
}

func (m *MockReviewAPI) ListUnapproved(ctx context.Context) ([]domain.Review, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Review), args.Error(1)
}
func (m *MockReviewAPI) SetApproved(ctx context.Context, id string, approved bool) error {
	args := m.Called(ctx, id, approved)
	return args.Error(0)
}
func (m *MockReviewAPI) DeleteReview(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockImageRotator
type MockImageRotator struct {
	mock.Mock
}

func (m *MockImageRotator) Rotate(ctx context.Context, imageID string, angle int) error {
	args := m.Called(ctx, imageID, angle)
	return args.Error(0)
}
func (m *MockImageRotator) ImageURL(imageID string) string {
	args := m.Called(imageID)
	return args.String(0)
}
func (m *MockImageRotator) BustedImageURL(imageID string) string {
	args := m.Called(imageID)
	return args.String(0)
}

// MockBotClient
type MockBotClient struct {
	mock.Mock
}

func (m *MockBotClient) SendMessage(ctx context.Context, params ports.SendMessageParams) (int, error) {
	args := m.Called(ctx, params)
	return args.Int(0), args.Error(1)
}
func (m *MockBotClient) SendPhoto(ctx context.Context, params ports.SendPhotoParams) (int, error) {
	args := m.Called(ctx, params)
	return args.Int(0), args.Error(1)
}
func (m *MockBotClient) EditMessageReplyMarkup(ctx context.Context, params ports.EditMarkupParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}
func (m *MockBotClient) EditMessagePhoto(ctx context.Context, params ports.EditPhotoParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}
func (m *MockBotClient) AnswerCallbackQuery(ctx context.Context, params ports.AnswerCallbackParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}
func (m *MockBotClient) SetMenuCommands(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockEventBus
type MockEventBus struct {
	mock.Mock
	Handlers map[string]ports.EventHandler
}

func (m *MockEventBus) Publish(ctx context.Context, topic string, data interface{}) error {
	args := m.Called(ctx, topic, data)
	return args.Error(0)
}
func (m *MockEventBus) Subscribe(topic string, handler ports.EventHandler) {
	m.Called(topic, handler)
	if m.Handlers == nil {
		m.Handlers = make(map[string]ports.EventHandler)
	}
	m.Handlers[topic] = handler // Store the handler so we can call it
}
