package sweeper

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"enclave-chat/internal/mocks"
)

func TestSweepPurgesWithLag(t *testing.T) {
	messages := new(mocks.MessageRepositoryMock)
	s := New(messages, time.Minute, 24*time.Hour)

	messages.On("PurgeExpiredBefore", mock.Anything, mock.MatchedBy(func(cutoff time.Time) bool {
		expected := time.Now().Add(-24 * time.Hour)
		return cutoff.After(expected.Add(-time.Minute)) && cutoff.Before(expected.Add(time.Minute))
	})).Return(int64(3), nil).Once()

	s.sweep(context.Background())
	messages.AssertExpectations(t)
}

func TestSweepSurvivesStoreError(t *testing.T) {
	messages := new(mocks.MessageRepositoryMock)
	s := New(messages, time.Minute, time.Hour)

	messages.On("PurgeExpiredBefore", mock.Anything, mock.AnythingOfType("time.Time")).
		Return(int64(0), context.DeadlineExceeded).Once()

	s.sweep(context.Background())
	messages.AssertExpectations(t)
}

func TestRunStopsOnCancel(t *testing.T) {
	messages := new(mocks.MessageRepositoryMock)
	s := New(messages, 10*time.Millisecond, time.Hour)
	messages.On("PurgeExpiredBefore", mock.Anything, mock.AnythingOfType("time.Time")).
		Return(int64(0), nil).Maybe()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop on context cancel")
	}
}
