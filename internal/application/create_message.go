package application

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/beachmessages/relay/internal/domain"
	"github.com/beachmessages/relay/internal/events"
	"github.com/beachmessages/relay/internal/observability"
)

type CreateMessageCommand struct {
	Text       string
	SenderName string
}

func (s *Service) CreateMessage(ctx context.Context, cmd CreateMessageCommand) (*domain.Message, error) {
	if err := domain.ValidateText(cmd.Text); err != nil {
		return nil, err
	}

	msg, err := s.repo.CreateMessage(ctx, cmd.Text, cmd.SenderName)
	if err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}

	observability.MessagesCreatedTotal.Inc()
	s.log.Info("message queued",
		zap.Int64("message_id", msg.ID),
		zap.String("sender_name", msg.SenderName),
	)

	s.publish(ctx, events.New(events.MessageCreated, msg, s.now()))
	return msg, nil
}

// publish is best effort: the store already holds the change. The publish
// outlives a cancelled request but never runs past publishTimeout.
func (s *Service) publish(ctx context.Context, e events.Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout)
	defer cancel()

	if err := s.publisher.Publish(ctx, e); err != nil {
		observability.EventPublishFailures.WithLabelValues(string(e.Type)).Inc()
		s.log.Warn("failed to publish queue event",
			zap.String("type", string(e.Type)),
			zap.Int64("message_id", e.MessageID),
			zap.Error(err),
		)
	}
}
