package redisstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beachmessages/relay/internal/domain"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	s := New(client)
	cur := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		cur = cur.Add(time.Second)
		return cur
	}
	return s, mr
}

func TestCreateAndList(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	for _, text := range []string{"one", "two", "three"} {
		_, err := s.CreateMessage(ctx, text, "")
		require.NoError(t, err)
	}

	pending, err := s.GetPendingMessages(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	assert.Equal(t, "one", pending[0].Text)
	assert.Equal(t, domain.DefaultSenderName, pending[0].SenderName)

	all, err := s.GetAllMessages(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "three", all[0].Text)

	delivered, err := s.GetDeliveredMessages(ctx)
	require.NoError(t, err)
	assert.NotNil(t, delivered)
	assert.Empty(t, delivered)
}

func TestMarkMessageDelivered(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	first, err := s.CreateMessage(ctx, "Hi", "Sam")
	require.NoError(t, err)
	second, err := s.CreateMessage(ctx, "Again", "Sam")
	require.NoError(t, err)

	_, err = s.MarkMessageDelivered(ctx, first.ID)
	require.NoError(t, err)
	got, err := s.MarkMessageDelivered(ctx, second.ID)
	require.NoError(t, err)
	assert.True(t, got.Delivered)
	require.NotNil(t, got.DeliveredAt)
	assert.True(t, got.DeliveredAt.After(got.CreatedAt))

	pending, err := s.GetPendingMessages(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	delivered, err := s.GetDeliveredMessages(ctx)
	require.NoError(t, err)
	require.Len(t, delivered, 2)
	assert.Equal(t, second.ID, delivered[0].ID)
	assert.Equal(t, "Sam", delivered[0].SenderName)
}

func TestMarkMessageDelivered_NotFound(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t)

	_, err := s.MarkMessageDelivered(ctx, 404)
	assert.ErrorIs(t, err, domain.ErrMessageNotFound)
	assert.False(t, mr.Exists(messageKey(404)))
}

func TestCreateMessage_Validation(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t)

	_, err := s.CreateMessage(ctx, "", "")
	assert.ErrorIs(t, err, domain.ErrEmptyText)
	assert.False(t, mr.Exists(seqKey), "rejected message must not allocate an id")
}

func TestPing(t *testing.T) {
	s, _ := newTestStore(t)
	assert.NoError(t, s.Ping(context.Background()))
}

func TestNewClient(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	addr := mr.Addr()
	rdb, err := NewClient(context.Background(), addr)
	require.NoError(t, err)
	defer rdb.Close()

	mr.Close()
	_, err = NewClient(context.Background(), addr)
	assert.Error(t, err)
}
