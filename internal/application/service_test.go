package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/beachmessages/relay/internal/domain"
	"github.com/beachmessages/relay/internal/events"
	"github.com/beachmessages/relay/internal/repository/memory"
)

// MockRepo is a mock for the Repository interface
type MockRepo struct {
	mock.Mock
}

func (m *MockRepo) CreateMessage(ctx context.Context, text, senderName string) (*domain.Message, error) {
	args := m.Called(ctx, text, senderName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Message), args.Error(1)
}
func (m *MockRepo) MarkMessageDelivered(ctx context.Context, id int64) (*domain.Message, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Message), args.Error(1)
}
func (m *MockRepo) GetPendingMessages(ctx context.Context) ([]*domain.Message, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Message), args.Error(1)
}
func (m *MockRepo) GetDeliveredMessages(ctx context.Context) ([]*domain.Message, error) {
	args := m.Called(ctx)
	return args.Get(0).([]*domain.Message), args.Error(1)
}
func (m *MockRepo) GetAllMessages(ctx context.Context) ([]*domain.Message, error) {
	args := m.Called(ctx)
	return args.Get(0).([]*domain.Message), args.Error(1)
}
func (m *MockRepo) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// MockPublisher records published events.
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, e events.Event) error {
	return m.Called(ctx, e).Error(0)
}

func TestCreateMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("Publishes created event", func(t *testing.T) {
		repo := new(MockRepo)
		pub := new(MockPublisher)
		svc := New(repo, pub, nil)

		msg := &domain.Message{ID: 1, Text: "Hi", SenderName: domain.DefaultSenderName, CreatedAt: time.Now()}
		repo.On("CreateMessage", ctx, "Hi", "").Return(msg, nil).Once()
		pub.On("Publish", mock.Anything, mock.MatchedBy(func(e events.Event) bool {
			return e.Type == events.MessageCreated && e.MessageID == 1
		})).Return(nil).Once()

		got, err := svc.CreateMessage(ctx, CreateMessageCommand{Text: "Hi"})
		assert.NoError(t, err)
		assert.Equal(t, msg, got)
		repo.AssertExpectations(t)
		pub.AssertExpectations(t)
	})

	t.Run("Validation error skips repository", func(t *testing.T) {
		repo := new(MockRepo)
		svc := New(repo, nil, nil)

		_, err := svc.CreateMessage(ctx, CreateMessageCommand{Text: ""})
		assert.ErrorIs(t, err, domain.ErrEmptyText)
		repo.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Publish failure does not fail the request", func(t *testing.T) {
		repo := new(MockRepo)
		pub := new(MockPublisher)
		svc := New(repo, pub, nil)

		msg := &domain.Message{ID: 2, Text: "Hi"}
		repo.On("CreateMessage", ctx, "Hi", "Sam").Return(msg, nil).Once()
		pub.On("Publish", mock.Anything, mock.Anything).Return(errors.New("broker down")).Once()

		got, err := svc.CreateMessage(ctx, CreateMessageCommand{Text: "Hi", SenderName: "Sam"})
		assert.NoError(t, err)
		assert.Equal(t, int64(2), got.ID)
	})

	t.Run("Repository error is wrapped", func(t *testing.T) {
		repo := new(MockRepo)
		svc := New(repo, nil, nil)
		boom := errors.New("disk full")

		repo.On("CreateMessage", ctx, "Hi", "").Return(nil, boom).Once()

		_, err := svc.CreateMessage(ctx, CreateMessageCommand{Text: "Hi"})
		assert.ErrorIs(t, err, boom)
	})
}

func TestCreateMessage_SlowBrokerIsBounded(t *testing.T) {
	repo := new(MockRepo)
	pub := new(MockPublisher)
	svc := New(repo, pub, nil)
	svc.publishTimeout = 20 * time.Millisecond

	ctx := context.Background()
	repo.On("CreateMessage", ctx, "Hi", "").Return(&domain.Message{ID: 4, Text: "Hi"}, nil).Once()
	pub.On("Publish", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(context.DeadlineExceeded).Once()

	start := time.Now()
	got, err := svc.CreateMessage(ctx, CreateMessageCommand{Text: "Hi"})
	require.NoError(t, err)
	assert.Equal(t, int64(4), got.ID)
	assert.Less(t, time.Since(start), time.Second)
}

func TestMarkDelivered(t *testing.T) {
	ctx := context.Background()

	t.Run("Not found is passed through unwrapped", func(t *testing.T) {
		repo := new(MockRepo)
		pub := new(MockPublisher)
		svc := New(repo, pub, nil)

		repo.On("MarkMessageDelivered", ctx, int64(9)).Return(nil, domain.ErrMessageNotFound).Once()

		_, err := svc.MarkDelivered(ctx, 9)
		assert.ErrorIs(t, err, domain.ErrMessageNotFound)
		pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	})

	t.Run("Publishes delivered event", func(t *testing.T) {
		repo := new(MockRepo)
		pub := new(MockPublisher)
		svc := New(repo, pub, nil)

		now := time.Now()
		msg := &domain.Message{ID: 3, Delivered: true, DeliveredAt: &now}
		repo.On("MarkMessageDelivered", ctx, int64(3)).Return(msg, nil).Once()
		pub.On("Publish", mock.Anything, mock.MatchedBy(func(e events.Event) bool {
			return e.Type == events.MessageDelivered && e.Message == msg
		})).Return(nil).Once()

		got, err := svc.MarkDelivered(ctx, 3)
		assert.NoError(t, err)
		assert.True(t, got.Delivered)
		pub.AssertExpectations(t)
	})
}

func TestListPending_StoreUnreachable(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepo)
	svc := New(repo, nil, nil)
	boom := errors.New("connection refused")

	repo.On("GetPendingMessages", ctx).Return(nil, boom).Once()

	_, err := svc.ListPending(ctx)
	assert.ErrorIs(t, err, boom)
}

func TestDeliveryScenario(t *testing.T) {
	ctx := context.Background()
	svc := New(memory.New(), nil, nil)

	created, err := svc.CreateMessage(ctx, CreateMessageCommand{Text: "Hi"})
	require.NoError(t, err)
	assert.False(t, created.Delivered)
	assert.Nil(t, created.DeliveredAt)

	delivered, err := svc.MarkDelivered(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, delivered.Delivered)
	require.NotNil(t, delivered.DeliveredAt)

	pending, err := svc.ListPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	deliveredList, err := svc.ListDelivered(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, deliveredList)
	assert.Equal(t, created.ID, deliveredList[0].ID)
}
