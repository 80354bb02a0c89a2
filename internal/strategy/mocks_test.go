package strategy

import (
	"context"
	"io"
	"log/slog"

	"github.com/stretchr/testify/mock"

	"github.com/insider-one/notification-dispatcher/internal/domain"
)

// MockMessagingClient is a mock implementation of domain.MessagingClient
type MockMessagingClient struct {
	mock.Mock
}

func (m *MockMessagingClient) SendMessage(ctx context.Context, req *domain.MessageRequest) (*domain.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MessageResponse), args.Error(1)
}

// MockEmailClient is a mock implementation of domain.EmailClient
type MockEmailClient struct {
	mock.Mock
}

func (m *MockEmailClient) SendEmail(ctx context.Context, to, subject, body string) (*domain.DeliveryReceipt, error) {
	args := m.Called(ctx, to, subject, body)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DeliveryReceipt), args.Error(1)
}

// MockPushClient is a mock implementation of domain.PushClient
type MockPushClient struct {
	mock.Mock
}

func (m *MockPushClient) SendPush(ctx context.Context, msg *domain.PushMessage) (string, error) {
	args := m.Called(ctx, msg)
	return args.String(0), args.Error(1)
}

// MockRateLimiter is a mock implementation of domain.RateLimiter
type MockRateLimiter struct {
	mock.Mock
}

func (m *MockRateLimiter) Allow(ctx context.Context, channel domain.Channel) (bool, error) {
	args := m.Called(ctx, channel)
	return args.Bool(0), args.Error(1)
}

// MockStrategy is a mock implementation of domain.Strategy
type MockStrategy struct {
	mock.Mock
	channel domain.Channel
}

func (m *MockStrategy) Channel() domain.Channel { return m.channel }

func (m *MockStrategy) Send(ctx context.Context, req *domain.NotificationRequest) domain.NotificationResult {
	args := m.Called(ctx, req)
	return args.Get(0).(domain.NotificationResult)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
