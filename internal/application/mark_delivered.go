package application

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/beachmessages/relay/internal/domain"
	"github.com/beachmessages/relay/internal/events"
	"github.com/beachmessages/relay/internal/observability"
)

// MarkDelivered records that the receiver pushed the message to the display.
// It does not verify the transmission itself.
func (s *Service) MarkDelivered(ctx context.Context, id int64) (*domain.Message, error) {
	msg, err := s.repo.MarkMessageDelivered(ctx, id)
	if errors.Is(err, domain.ErrMessageNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to mark message %d delivered: %w", id, err)
	}

	observability.MessagesDeliveredTotal.Inc()
	s.log.Info("message delivered", zap.Int64("message_id", msg.ID))

	s.publish(ctx, events.New(events.MessageDelivered, msg, s.now()))
	return msg, nil
}
