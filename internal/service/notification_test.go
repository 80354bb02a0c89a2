package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/insider-one/notification-dispatcher/internal/config"
	"github.com/insider-one/notification-dispatcher/internal/domain"
)

// MockStrategy is a mock implementation of domain.Strategy
type MockStrategy struct {
	mock.Mock
	channel domain.Channel
}

func newMockStrategy(channel domain.Channel) *MockStrategy {
	return &MockStrategy{channel: channel}
}

func (m *MockStrategy) Channel() domain.Channel { return m.channel }

func (m *MockStrategy) Send(ctx context.Context, req *domain.NotificationRequest) domain.NotificationResult {
	args := m.Called(ctx, req)
	return args.Get(0).(domain.NotificationResult)
}

// funcStrategy adapts a function to domain.Strategy
type funcStrategy struct {
	channel domain.Channel
	send    func(ctx context.Context, req *domain.NotificationRequest) domain.NotificationResult
}

func (f funcStrategy) Channel() domain.Channel { return f.channel }

func (f funcStrategy) Send(ctx context.Context, req *domain.NotificationRequest) domain.NotificationResult {
	return f.send(ctx, req)
}

func succeeding(channel domain.Channel, ref string) funcStrategy {
	return funcStrategy{channel: channel, send: func(context.Context, *domain.NotificationRequest) domain.NotificationResult {
		return domain.Succeeded(channel, ref, nil)
	}}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(t *testing.T, timeout time.Duration, strategies ...domain.Strategy) *NotificationService {
	t.Helper()
	registry, err := NewRegistry(strategies...)
	require.NoError(t, err)
	return NewNotificationService(registry, config.DispatchConfig{ChannelTimeout: timeout}, testLogger())
}

func newRequest(channels ...domain.Channel) *domain.NotificationRequest {
	return &domain.NotificationRequest{
		Recipient: "+15551234567",
		Subject:   "OTP",
		Body:      "Your code is 482913",
		Channels:  channels,
	}
}

func allConcrete() []domain.Strategy {
	strategies := make([]domain.Strategy, 0, 4)
	for _, c := range domain.ConcreteChannels() {
		strategies = append(strategies, succeeding(c, "ref-"+string(c)))
	}
	return strategies
}

func channelsOf(results []domain.NotificationResult) []domain.Channel {
	out := make([]domain.Channel, len(results))
	for i, r := range results {
		out[i] = r.Channel
	}
	return out
}

func TestNotificationService_Send(t *testing.T) {
	ctx := context.Background()

	t.Run("one result per requested channel", func(t *testing.T) {
		svc := newTestService(t, time.Second, allConcrete()...)

		results, err := svc.Send(ctx, newRequest(domain.ChannelSMS, domain.ChannelEmail))

		require.NoError(t, err)
		assert.Len(t, results, 2)
		assert.ElementsMatch(t, []domain.Channel{domain.ChannelSMS, domain.ChannelEmail}, channelsOf(results))
	})

	t.Run("all expands to every concrete channel", func(t *testing.T) {
		svc := newTestService(t, time.Second, allConcrete()...)

		results, err := svc.Send(ctx, newRequest(domain.ChannelAll))

		require.NoError(t, err)
		assert.Equal(t, domain.ConcreteChannels(), channelsOf(results))
		for _, r := range results {
			assert.NotEqual(t, domain.ChannelAll, r.Channel)
			assert.True(t, r.Success)
		}
	})

	t.Run("all with explicit channel yields no duplicates", func(t *testing.T) {
		svc := newTestService(t, time.Second, allConcrete()...)

		results, err := svc.Send(ctx, newRequest(domain.ChannelEmail, domain.ChannelAll, domain.ChannelSMS))

		require.NoError(t, err)
		assert.Len(t, results, 4)
		assert.ElementsMatch(t, domain.ConcreteChannels(), channelsOf(results))
	})

	t.Run("duplicate channel yields one result", func(t *testing.T) {
		sms := newMockStrategy(domain.ChannelSMS)
		sms.On("Send", mock.Anything, mock.Anything).Return(domain.Succeeded(domain.ChannelSMS, "SM1", nil)).Once()
		svc := newTestService(t, time.Second, sms)

		results, err := svc.Send(ctx, newRequest(domain.ChannelSMS, domain.ChannelSMS))

		require.NoError(t, err)
		assert.Len(t, results, 1)
		assert.Equal(t, domain.ChannelSMS, results[0].Channel)
		sms.AssertNumberOfCalls(t, "Send", 1)
	})

	t.Run("external reference round trip", func(t *testing.T) {
		svc := newTestService(t, time.Second, succeeding(domain.ChannelSMS, "SM123"))

		results, err := svc.Send(ctx, newRequest(domain.ChannelSMS))

		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, domain.NotificationResult{
			Channel:           domain.ChannelSMS,
			Success:           true,
			ExternalReference: "SM123",
		}, results[0])
	})

	t.Run("rate limited provider yields failed result", func(t *testing.T) {
		sms := funcStrategy{channel: domain.ChannelSMS, send: func(context.Context, *domain.NotificationRequest) domain.NotificationResult {
			return domain.Failed(domain.ChannelSMS, "provider error (status 429): Too Many Requests")
		}}
		svc := newTestService(t, time.Second, sms)

		results, err := svc.Send(ctx, newRequest(domain.ChannelSMS))

		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, domain.ChannelSMS, results[0].Channel)
		assert.False(t, results[0].Success)
		assert.Equal(t, "provider error (status 429): Too Many Requests", results[0].ErrorMessage)
	})

	t.Run("panicking strategy does not affect siblings", func(t *testing.T) {
		sms := funcStrategy{channel: domain.ChannelSMS, send: func(context.Context, *domain.NotificationRequest) domain.NotificationResult {
			panic("nil pointer in sms adapter")
		}}
		svc := newTestService(t, time.Second, sms, succeeding(domain.ChannelEmail, "msg-1"))

		results, err := svc.Send(ctx, newRequest(domain.ChannelSMS, domain.ChannelEmail))

		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, domain.ChannelSMS, results[0].Channel)
		assert.False(t, results[0].Success)
		assert.Equal(t, "internal error in sms strategy", results[0].ErrorMessage)
		assert.Equal(t, domain.Succeeded(domain.ChannelEmail, "msg-1", nil), results[1])
	})

	t.Run("unregistered channel fails alone", func(t *testing.T) {
		svc := newTestService(t, time.Second, succeeding(domain.ChannelEmail, "msg-1"))

		results, err := svc.Send(ctx, newRequest(domain.ChannelPush, domain.ChannelEmail))

		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.True(t, results[0].Success)
		assert.Equal(t, domain.ChannelPush, results[1].Channel)
		assert.False(t, results[1].Success)
		assert.Contains(t, results[1].ErrorMessage, "unknown channel")
	})

	t.Run("all reports unregistered channels as failed", func(t *testing.T) {
		svc := newTestService(t, time.Second, succeeding(domain.ChannelEmail, "msg-1"))

		dispatch, err := svc.Dispatch(ctx, newRequest(domain.ChannelAll))

		require.NoError(t, err)
		assert.Len(t, dispatch.Results, 4)
		assert.Equal(t, 1, dispatch.Succeeded)
		assert.Equal(t, 3, dispatch.Failed)
	})

	t.Run("strategy result is pinned to its channel", func(t *testing.T) {
		confused := funcStrategy{channel: domain.ChannelPush, send: func(context.Context, *domain.NotificationRequest) domain.NotificationResult {
			return domain.NotificationResult{Channel: domain.ChannelAll, Success: true, ErrorMessage: "stale", ExternalReference: "p-1"}
		}}
		svc := newTestService(t, time.Second, confused)

		results, err := svc.Send(ctx, newRequest(domain.ChannelPush))

		require.NoError(t, err)
		assert.Equal(t, domain.Succeeded(domain.ChannelPush, "p-1", nil), results[0])
	})
}

func TestNotificationService_InvalidInput(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		req  *domain.NotificationRequest
	}{
		{"empty channel set", newRequest()},
		{"missing body", &domain.NotificationRequest{Recipient: "+15551234567", Subject: "s", Channels: []domain.Channel{domain.ChannelSMS}}},
		{"missing recipient", &domain.NotificationRequest{Subject: "s", Body: "b", Channels: []domain.Channel{domain.ChannelSMS}}},
		{"unknown channel value", newRequest(domain.Channel("fax"))},
		{"nil request", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sms := newMockStrategy(domain.ChannelSMS)
			svc := newTestService(t, time.Second, sms)

			results, err := svc.Send(ctx, tt.req)

			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			assert.Nil(t, results)
			sms.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
		})
	}
}

func TestNotificationService_RunsChannelsConcurrently(t *testing.T) {
	var started sync.WaitGroup
	started.Add(2)

	// each strategy only succeeds if the other one is running at the same time
	barrier := func(channel domain.Channel) funcStrategy {
		return funcStrategy{channel: channel, send: func(ctx context.Context, _ *domain.NotificationRequest) domain.NotificationResult {
			started.Done()
			waited := make(chan struct{})
			go func() {
				started.Wait()
				close(waited)
			}()
			select {
			case <-waited:
				return domain.Succeeded(channel, "", nil)
			case <-time.After(2 * time.Second):
				return domain.Failed(channel, "sibling never started")
			}
		}}
	}

	svc := newTestService(t, 5*time.Second, barrier(domain.ChannelSMS), barrier(domain.ChannelEmail))

	results, err := svc.Send(context.Background(), newRequest(domain.ChannelSMS, domain.ChannelEmail))

	require.NoError(t, err)
	for _, r := range results {
		assert.True(t, r.Success, r.ErrorMessage)
	}
}

func TestNotificationService_Cancellation(t *testing.T) {
	t.Run("completed channels keep their result, in-flight ones are cancelled", func(t *testing.T) {
		block := make(chan struct{})
		t.Cleanup(func() { close(block) })

		stuck := funcStrategy{channel: domain.ChannelEmail, send: func(context.Context, *domain.NotificationRequest) domain.NotificationResult {
			<-block // ignores cancellation
			return domain.Succeeded(domain.ChannelEmail, "late", nil)
		}}
		svc := newTestService(t, 0, succeeding(domain.ChannelSMS, "SM1"), stuck)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		svc.SetResultBroadcast(func(event ResultEvent) {
			if event.Result.Channel == domain.ChannelSMS {
				cancel()
			}
		})

		results, err := svc.Send(ctx, newRequest(domain.ChannelSMS, domain.ChannelEmail))

		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, domain.Succeeded(domain.ChannelSMS, "SM1", nil), results[0])
		assert.Equal(t, domain.ChannelEmail, results[1].Channel)
		assert.False(t, results[1].Success)
		assert.Equal(t, "dispatch cancelled: context canceled", results[1].ErrorMessage)
	})

	t.Run("already cancelled context dispatches nothing", func(t *testing.T) {
		sms := newMockStrategy(domain.ChannelSMS)
		svc := newTestService(t, time.Second, sms)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		results, err := svc.Send(ctx, newRequest(domain.ChannelSMS))

		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.False(t, results[0].Success)
		assert.Contains(t, results[0].ErrorMessage, "dispatch cancelled")
		sms.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	})

	t.Run("channel timeout", func(t *testing.T) {
		block := make(chan struct{})
		t.Cleanup(func() { close(block) })

		slow := funcStrategy{channel: domain.ChannelPush, send: func(context.Context, *domain.NotificationRequest) domain.NotificationResult {
			<-block
			return domain.Succeeded(domain.ChannelPush, "late", nil)
		}}
		svc := newTestService(t, 20*time.Millisecond, slow, succeeding(domain.ChannelSMS, "SM1"))

		results, err := svc.Send(context.Background(), newRequest(domain.ChannelPush, domain.ChannelSMS))

		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.True(t, results[0].Success)
		assert.Equal(t, domain.ChannelPush, results[1].Channel)
		assert.Equal(t, "timed out after 20ms", results[1].ErrorMessage)
	})

	t.Run("strategy observes cancellation", func(t *testing.T) {
		observed := make(chan struct{})
		aware := funcStrategy{channel: domain.ChannelSMS, send: func(ctx context.Context, _ *domain.NotificationRequest) domain.NotificationResult {
			<-ctx.Done()
			close(observed)
			return domain.Failed(domain.ChannelSMS, "aborted")
		}}
		svc := newTestService(t, 0, aware)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		results, err := svc.Send(ctx, newRequest(domain.ChannelSMS))

		require.NoError(t, err)
		assert.False(t, results[0].Success)
		select {
		case <-observed:
		case <-time.After(time.Second):
			t.Fatal("strategy did not observe cancellation")
		}
	})
}

func TestNotificationService_ResultBroadcast(t *testing.T) {
	svc := newTestService(t, time.Second, allConcrete()...)

	var mu sync.Mutex
	events := make(map[domain.Channel]ResultEvent)
	svc.SetResultBroadcast(func(event ResultEvent) {
		mu.Lock()
		defer mu.Unlock()
		events[event.Result.Channel] = event
	})

	dispatch, err := svc.Dispatch(context.Background(), newRequest(domain.ChannelAll))

	require.NoError(t, err)
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(events) == 4
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	for _, e := range events {
		assert.Equal(t, dispatch.RequestID, e.RequestID)
	}
}

func TestNotificationService_ResultListenerIsolation(t *testing.T) {
	t.Run("slow listener does not hold Send past cancellation", func(t *testing.T) {
		block := make(chan struct{})
		t.Cleanup(func() { close(block) })

		stuck := funcStrategy{channel: domain.ChannelEmail, send: func(context.Context, *domain.NotificationRequest) domain.NotificationResult {
			<-block
			return domain.Succeeded(domain.ChannelEmail, "late", nil)
		}}
		svc := newTestService(t, 0, succeeding(domain.ChannelSMS, "SM1"), stuck)
		svc.SetResultBroadcast(func(ResultEvent) { time.Sleep(2 * time.Second) })

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		start := time.Now()
		results, err := svc.Send(ctx, newRequest(domain.ChannelSMS, domain.ChannelEmail))
		elapsed := time.Since(start)

		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.True(t, results[0].Success)
		assert.Equal(t, "dispatch cancelled: context deadline exceeded", results[1].ErrorMessage)
		assert.Less(t, elapsed, time.Second)
	})

	t.Run("panicking listener does not crash the dispatch", func(t *testing.T) {
		svc := newTestService(t, time.Second, allConcrete()...)

		var calls sync.WaitGroup
		calls.Add(4)
		svc.SetResultBroadcast(func(ResultEvent) {
			defer calls.Done()
			panic("listener boom")
		})

		results, err := svc.Send(context.Background(), newRequest(domain.ChannelAll))

		require.NoError(t, err)
		assert.Len(t, results, 4)
		for _, r := range results {
			assert.True(t, r.Success)
		}

		done := make(chan struct{})
		go func() {
			calls.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("listener was not called for every channel")
		}
	})
}

func TestNotificationService_Channels(t *testing.T) {
	svc := newTestService(t, time.Second, succeeding(domain.ChannelPush, ""), succeeding(domain.ChannelSMS, ""))
	assert.Equal(t, []domain.Channel{domain.ChannelSMS, domain.ChannelPush}, svc.Channels())
}

func TestDispatcher_EmptyChannelSet(t *testing.T) {
	svc := newTestService(t, time.Second, allConcrete()...)

	results := svc.dispatcher.fanOut(context.Background(), uuid.Nil, newRequest(), nil)

	assert.NotNil(t, results)
	assert.Empty(t, results)
}
