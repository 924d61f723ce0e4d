package memory

import (
	"context"
	"sync"
	"time"

	"github.com/beachmessages/relay/internal/domain"
)

// Store keeps messages in process memory. Nothing survives a restart.
type Store struct {
	mu       sync.RWMutex
	messages map[int64]*domain.Message
	nextID   int64
	now      func() time.Time
}

func New() *Store {
	return NewWithClock(time.Now)
}

// NewWithClock lets tests pin timestamps.
func NewWithClock(now func() time.Time) *Store {
	return &Store{
		messages: make(map[int64]*domain.Message),
		nextID:   1,
		now:      now,
	}
}

func (s *Store) CreateMessage(ctx context.Context, text, senderName string) (*domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	msg, err := domain.NewMessage(s.nextID, text, senderName, s.now())
	if err != nil {
		return nil, err
	}
	s.nextID++
	s.messages[msg.ID] = msg

	return msg.Clone(), nil
}

func (s *Store) MarkMessageDelivered(ctx context.Context, id int64) (*domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := s.messages[id]
	if !ok {
		return nil, domain.ErrMessageNotFound
	}
	msg.MarkDelivered(s.now())

	return msg.Clone(), nil
}

func (s *Store) GetPendingMessages(ctx context.Context) ([]*domain.Message, error) {
	out, err := s.filter(ctx, func(m *domain.Message) bool { return !m.Delivered })
	if err != nil {
		return nil, err
	}
	domain.SortPending(out)
	return out, nil
}

func (s *Store) GetDeliveredMessages(ctx context.Context) ([]*domain.Message, error) {
	out, err := s.filter(ctx, func(m *domain.Message) bool { return m.Delivered })
	if err != nil {
		return nil, err
	}
	domain.SortDelivered(out)
	return out, nil
}

func (s *Store) GetAllMessages(ctx context.Context) ([]*domain.Message, error) {
	out, err := s.filter(ctx, func(*domain.Message) bool { return true })
	if err != nil {
		return nil, err
	}
	domain.SortNewest(out)
	return out, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) filter(ctx context.Context, keep func(*domain.Message) bool) ([]*domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Message, 0, len(s.messages))
	for _, m := range s.messages {
		if keep(m) {
			out = append(out, m.Clone())
		}
	}
	return out, nil
}
