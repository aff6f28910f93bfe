package outbox_poller

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/freight-commission-ledger/internal/config"
	"github.com/freight-commission-ledger/internal/domain/outbox"
	"github.com/freight-commission-ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func pendingMessage(id int64, attempts int) *outbox.Message {
	return &outbox.Message{
		ID:          id,
		EventID:     uuid.New(),
		EventType:   shared.EventBookingUpdated,
		AggregateID: "BK-001",
		Payload:     []byte(`{}`),
		Status:      shared.OutboxStatusPending,
		Attempts:    attempts,
		CreatedAt:   time.Now(),
	}
}

func TestPoller_ProcessBatch(t *testing.T) {
	logger := slog.Default()
	cfg := &config.OutboxConfig{
		PollingInterval:  time.Second,
		BatchSize:        10,
		MaxRetryAttempts: 3,
	}

	message1 := pendingMessage(1, 0)
	message2 := pendingMessage(2, 0)

	tests := []struct {
		name          string
		setupMocks    func(repo *MockOutboxRepo, publisher *MockJournalPublisher)
		expected      batchResult
		expectedError string
	}{
		{
			name:     "publishes every pending message",
			expected: batchResult{fetched: 2, published: 2},
			setupMocks: func(repo *MockOutboxRepo, publisher *MockJournalPublisher) {
				repo.On("GetPending", mock.Anything, 10).Return([]*outbox.Message{message1, message2}, nil).Once()
				publisher.On("Publish", mock.Anything, message1).Return(nil).Once()
				publisher.On("Publish", mock.Anything, message2).Return(nil).Once()
			},
		},
		{
			name: "error getting pending messages",
			setupMocks: func(repo *MockOutboxRepo, publisher *MockJournalPublisher) {
				repo.On("GetPending", mock.Anything, 10).Return(nil, errors.New("db error")).Once()
			},
			expectedError: "failed to get pending outbox messages",
		},
		{
			name:     "no pending messages",
			expected: batchResult{},
			setupMocks: func(repo *MockOutboxRepo, publisher *MockJournalPublisher) {
				repo.On("GetPending", mock.Anything, 10).Return([]*outbox.Message{}, nil).Once()
			},
		},
		{
			name:     "failure counts an attempt and moves on",
			expected: batchResult{fetched: 2, published: 1},
			setupMocks: func(repo *MockOutboxRepo, publisher *MockJournalPublisher) {
				repo.On("GetPending", mock.Anything, 10).Return([]*outbox.Message{message1, message2}, nil).Once()
				publisher.On("Publish", mock.Anything, message1).Return(errors.New("mongo down")).Once()
				repo.On("IncrementAttempts", mock.Anything, int64(1)).Return(nil).Once()
				publisher.On("Publish", mock.Anything, message2).Return(nil).Once()
			},
		},
		{
			name:     "max retry attempts reached",
			expected: batchResult{fetched: 1, parked: 1},
			setupMocks: func(repo *MockOutboxRepo, publisher *MockJournalPublisher) {
				last := pendingMessage(3, 2)
				repo.On("GetPending", mock.Anything, 10).Return([]*outbox.Message{last}, nil).Once()
				publisher.On("Publish", mock.Anything, last).Return(errors.New("kafka down")).Once()
				repo.On("IncrementAttempts", mock.Anything, int64(3)).Return(nil).Once()
				repo.On("UpdateStatus", mock.Anything, int64(3), shared.OutboxStatusFailedToPublish).Return(nil).Once()
			},
		},
		{
			name:     "increment failure skips the status update",
			expected: batchResult{fetched: 1},
			setupMocks: func(repo *MockOutboxRepo, publisher *MockJournalPublisher) {
				last := pendingMessage(4, 2)
				repo.On("GetPending", mock.Anything, 10).Return([]*outbox.Message{last}, nil).Once()
				publisher.On("Publish", mock.Anything, last).Return(errors.New("kafka down")).Once()
				repo.On("IncrementAttempts", mock.Anything, int64(4)).Return(errors.New("db error")).Once()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &MockOutboxRepo{}
			publisher := &MockJournalPublisher{}
			poller := NewPoller(cfg, repo, publisher, logger)
			tt.setupMocks(repo, publisher)

			res, err := poller.processBatch(context.Background())

			if tt.expectedError != "" {
				assert.ErrorContains(t, err, tt.expectedError)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.expected, res)
			repo.AssertExpectations(t)
			publisher.AssertExpectations(t)
		})
	}
}

func TestPoller_Start(t *testing.T) {
	repo := &MockOutboxRepo{}
	publisher := &MockJournalPublisher{}
	cfg := &config.OutboxConfig{
		PollingInterval:  10 * time.Millisecond,
		BatchSize:        10,
		MaxRetryAttempts: 3,
	}
	poller := NewPoller(cfg, repo, publisher, slog.Default())

	repo.On("GetPending", mock.Anything, 10).Return([]*outbox.Message{}, nil).Maybe()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		poller.Start(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop after context cancellation")
	}
}

func TestPoller_Drain(t *testing.T) {
	cfg := &config.OutboxConfig{PollingInterval: time.Second, BatchSize: 2, MaxRetryAttempts: 3}

	t.Run("full batches are fetched again", func(t *testing.T) {
		repo := &MockOutboxRepo{}
		publisher := &MockJournalPublisher{}
		first := []*outbox.Message{pendingMessage(1, 0), pendingMessage(2, 0)}
		second := []*outbox.Message{pendingMessage(3, 0)}
		repo.On("GetPending", mock.Anything, 2).Return(first, nil).Once()
		repo.On("GetPending", mock.Anything, 2).Return(second, nil).Once()
		publisher.On("Publish", mock.Anything, mock.Anything).Return(nil).Times(3)

		NewPoller(cfg, repo, publisher, slog.Default()).drain(context.Background())

		repo.AssertExpectations(t)
		publisher.AssertExpectations(t)
	})

	t.Run("a failed publish stops the drain", func(t *testing.T) {
		repo := &MockOutboxRepo{}
		publisher := &MockJournalPublisher{}
		batch := []*outbox.Message{pendingMessage(1, 0), pendingMessage(2, 0)}
		repo.On("GetPending", mock.Anything, 2).Return(batch, nil).Once()
		publisher.On("Publish", mock.Anything, batch[0]).Return(errors.New("mongo down")).Once()
		publisher.On("Publish", mock.Anything, batch[1]).Return(nil).Once()
		repo.On("IncrementAttempts", mock.Anything, int64(1)).Return(nil).Once()

		NewPoller(cfg, repo, publisher, slog.Default()).drain(context.Background())

		repo.AssertNumberOfCalls(t, "GetPending", 1)
	})

	t.Run("an endless backlog is bounded per tick", func(t *testing.T) {
		repo := &MockOutboxRepo{}
		publisher := &MockJournalPublisher{}
		repo.On("GetPending", mock.Anything, 2).
			Return([]*outbox.Message{pendingMessage(1, 0), pendingMessage(2, 0)}, nil)
		publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

		NewPoller(cfg, repo, publisher, slog.Default()).drain(context.Background())

		repo.AssertNumberOfCalls(t, "GetPending", maxBatchesPerTick)
	})
}
