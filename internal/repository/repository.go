package repository

import (
	"context"

	"github.com/beachmessages/relay/internal/domain"
)

// Repository is the message queue store. Lookups on unknown ids return
// domain.ErrMessageNotFound and leave the store untouched.
type Repository interface {
	// Queue
	CreateMessage(ctx context.Context, text, senderName string) (*domain.Message, error)
	MarkMessageDelivered(ctx context.Context, id int64) (*domain.Message, error)

	// Listing
	GetPendingMessages(ctx context.Context) ([]*domain.Message, error)
	GetDeliveredMessages(ctx context.Context) ([]*domain.Message, error)
	GetAllMessages(ctx context.Context) ([]*domain.Message, error)

	// Health
	Ping(ctx context.Context) error
}
