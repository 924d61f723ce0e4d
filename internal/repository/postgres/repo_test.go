package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beachmessages/relay/internal/domain"
)

var cols = []string{"id", "text", "sender_name", "created_at", "delivered", "delivered_at"}

func newMockRepo(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	fixed := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	return &Repository{DB: db, Now: func() time.Time { return fixed }}, mock
}

func TestCreateMessage(t *testing.T) {
	repo, mock := newMockRepo(t)

	stored := time.Date(2024, 6, 1, 11, 0, 0, 123456000, time.UTC)
	mock.ExpectQuery("INSERT INTO messages").
		WithArgs("Hi", domain.DefaultSenderName, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(7, stored))

	msg, err := repo.CreateMessage(context.Background(), "Hi", "")
	require.NoError(t, err)
	assert.Equal(t, int64(7), msg.ID)
	assert.True(t, msg.CreatedAt.Equal(stored), "createdAt should be the stored value")
	assert.Equal(t, domain.DefaultSenderName, msg.SenderName)
	assert.False(t, msg.Delivered)
	assert.Nil(t, msg.DeliveredAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateMessage_ValidationSkipsDatabase(t *testing.T) {
	repo, mock := newMockRepo(t)

	_, err := repo.CreateMessage(context.Background(), "   ", "")
	assert.ErrorIs(t, err, domain.ErrEmptyText)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkMessageDelivered(t *testing.T) {
	repo, mock := newMockRepo(t)
	created := time.Date(2024, 6, 1, 11, 0, 0, 0, time.UTC)
	delivered := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("UPDATE messages").
		WithArgs(int64(3), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(3, "Hi", nil, created, true, delivered))

	msg, err := repo.MarkMessageDelivered(context.Background(), 3)
	require.NoError(t, err)
	assert.True(t, msg.Delivered)
	require.NotNil(t, msg.DeliveredAt)
	assert.True(t, msg.DeliveredAt.Equal(delivered))
	assert.Equal(t, domain.DefaultSenderName, msg.SenderName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkMessageDelivered_NotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("UPDATE messages").
		WithArgs(int64(99), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(cols))

	_, err := repo.MarkMessageDelivered(context.Background(), 99)
	assert.ErrorIs(t, err, domain.ErrMessageNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPendingMessages(t *testing.T) {
	repo, mock := newMockRepo(t)
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("WHERE delivered = FALSE").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(1, "a", "Sam", base, false, nil).
			AddRow(2, "b", "Ana", base.Add(time.Second), false, nil))

	msgs, err := repo.GetPendingMessages(context.Background())
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, int64(1), msgs[0].ID)
	assert.Equal(t, "Ana", msgs[1].SenderName)
	assert.Nil(t, msgs[0].DeliveredAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAllMessages_EmptyIsNotNil(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("ORDER BY created_at DESC").WillReturnRows(sqlmock.NewRows(cols))

	msgs, err := repo.GetAllMessages(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, msgs)
	assert.Empty(t, msgs)
}

func TestGetDeliveredMessages_QueryError(t *testing.T) {
	repo, mock := newMockRepo(t)
	boom := errors.New("connection reset")

	mock.ExpectQuery("WHERE delivered = TRUE").WillReturnError(boom)

	_, err := repo.GetDeliveredMessages(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestMigrate(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS messages").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
