package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/beachmessages/relay/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS messages (
	id           SERIAL PRIMARY KEY,
	text         TEXT NOT NULL,
	sender_name  TEXT DEFAULT 'Anonymous',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	delivered    BOOLEAN NOT NULL DEFAULT FALSE,
	delivered_at TIMESTAMPTZ
)`

const messageColumns = `id, text, sender_name, created_at, delivered, delivered_at`

func NewDB(ctx context.Context, url string) (*sql.DB, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, err
	}
	return db, db.PingContext(ctx)
}

type Repository struct {
	DB  *sql.DB
	Now func() time.Time
}

func New(db *sql.DB) *Repository {
	return &Repository{DB: db, Now: time.Now}
}

// Migrate creates the messages table when it does not exist yet.
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create messages table: %w", err)
	}
	return nil
}

func (r *Repository) CreateMessage(ctx context.Context, text, senderName string) (*domain.Message, error) {
	if err := domain.ValidateText(text); err != nil {
		return nil, err
	}

	sender := domain.NormalizeSender(senderName)
	now := r.Now().UTC()

	// created_at comes back as stored, at the column's microsecond precision
	var (
		id        int64
		createdAt time.Time
	)
	err := r.DB.QueryRowContext(ctx, `
		INSERT INTO messages (text, sender_name, created_at)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, text, sender, now).Scan(&id, &createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert message: %w", err)
	}

	return domain.NewMessage(id, text, sender, createdAt.UTC())
}

func (r *Repository) MarkMessageDelivered(ctx context.Context, id int64) (*domain.Message, error) {
	row := r.DB.QueryRowContext(ctx, `
		UPDATE messages
		SET delivered = TRUE, delivered_at = $2
		WHERE id = $1
		RETURNING `+messageColumns,
		id, r.Now().UTC())

	msg, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrMessageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to mark message delivered: %w", err)
	}
	return msg, nil
}

func (r *Repository) GetPendingMessages(ctx context.Context) ([]*domain.Message, error) {
	return r.list(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE delivered = FALSE
		ORDER BY created_at ASC, id ASC
	`)
}

func (r *Repository) GetDeliveredMessages(ctx context.Context) ([]*domain.Message, error) {
	return r.list(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE delivered = TRUE
		ORDER BY delivered_at DESC, id DESC
	`)
}

func (r *Repository) GetAllMessages(ctx context.Context) ([]*domain.Message, error) {
	return r.list(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		ORDER BY created_at DESC, id DESC
	`)
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.DB.PingContext(ctx)
}

func (r *Repository) list(ctx context.Context, query string) ([]*domain.Message, error) {
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	out := []*domain.Message{}
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMessage(s scanner) (*domain.Message, error) {
	var (
		m           domain.Message
		senderName  sql.NullString
		deliveredAt sql.NullTime
	)
	if err := s.Scan(&m.ID, &m.Text, &senderName, &m.CreatedAt, &m.Delivered, &deliveredAt); err != nil {
		return nil, err
	}

	m.SenderName = domain.NormalizeSender(senderName.String)
	m.CreatedAt = m.CreatedAt.UTC()
	if deliveredAt.Valid {
		t := deliveredAt.Time.UTC()
		m.DeliveredAt = &t
	}
	return &m, nil
}
