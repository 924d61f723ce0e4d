package application

import (
	"context"
	"fmt"

	"github.com/beachmessages/relay/internal/domain"
	"github.com/beachmessages/relay/internal/observability"
)

func (s *Service) ListPending(ctx context.Context) ([]*domain.Message, error) {
	msgs, err := s.repo.GetPendingMessages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pending messages: %w", err)
	}
	observability.PendingMessages.Set(float64(len(msgs)))
	return msgs, nil
}

func (s *Service) ListDelivered(ctx context.Context) ([]*domain.Message, error) {
	msgs, err := s.repo.GetDeliveredMessages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch delivered messages: %w", err)
	}
	return msgs, nil
}

func (s *Service) ListAll(ctx context.Context) ([]*domain.Message, error) {
	msgs, err := s.repo.GetAllMessages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}
	return msgs, nil
}

func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}
