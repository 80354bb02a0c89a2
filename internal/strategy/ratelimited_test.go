package strategy

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/insider-one/notification-dispatcher/internal/domain"
)

func TestRateLimited_Send(t *testing.T) {
	ctx := context.Background()
	req := otpRequest()

	t.Run("allowed", func(t *testing.T) {
		next := &MockStrategy{channel: domain.ChannelSMS}
		limiter := new(MockRateLimiter)
		s := NewRateLimited(next, limiter, discardLogger())

		limiter.On("Allow", ctx, domain.ChannelSMS).Return(true, nil).Once()
		next.On("Send", ctx, req).Return(domain.Succeeded(domain.ChannelSMS, "SM1", nil)).Once()

		r := s.Send(ctx, req)

		assert.Equal(t, domain.ChannelSMS, s.Channel())
		assert.True(t, r.Success)
		next.AssertExpectations(t)
	})

	t.Run("denied", func(t *testing.T) {
		next := &MockStrategy{channel: domain.ChannelSMS}
		limiter := new(MockRateLimiter)
		s := NewRateLimited(next, limiter, discardLogger())

		limiter.On("Allow", ctx, domain.ChannelSMS).Return(false, nil).Once()

		r := s.Send(ctx, req)

		assert.False(t, r.Success)
		assert.Equal(t, "rate limit exceeded for sms channel", r.ErrorMessage)
		next.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	})

	t.Run("limiter error fails open", func(t *testing.T) {
		next := &MockStrategy{channel: domain.ChannelEmail}
		limiter := new(MockRateLimiter)
		s := NewRateLimited(next, limiter, discardLogger())

		limiter.On("Allow", ctx, domain.ChannelEmail).Return(false, errors.New("redis down")).Once()
		next.On("Send", ctx, req).Return(domain.Succeeded(domain.ChannelEmail, "", nil)).Once()

		r := s.Send(ctx, req)

		assert.True(t, r.Success)
		next.AssertExpectations(t)
	})
}
