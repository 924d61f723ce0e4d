package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/beachmessages/relay/internal/domain"
)

const (
	seqKey       = "messages:seq"
	pendingKey   = "messages:pending"
	deliveredKey = "messages:delivered"
	allKey       = "messages:all"

	maxWatchRetries = 5
)

func messageKey(id int64) string {
	return "message:" + strconv.FormatInt(id, 10)
}

// Store keeps each message in a hash and indexes ids in sorted sets scored
// by the relevant timestamp in milliseconds.
type Store struct {
	client *redis.Client
	now    func() time.Time
}

func New(client *redis.Client) *Store {
	return &Store{client: client, now: time.Now}
}

func (s *Store) CreateMessage(ctx context.Context, text, senderName string) (*domain.Message, error) {
	if err := domain.ValidateText(text); err != nil {
		return nil, err
	}

	id, err := s.client.Incr(ctx, seqKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to allocate message id: %w", err)
	}

	msg, err := domain.NewMessage(id, text, senderName, s.now())
	if err != nil {
		return nil, err
	}

	score := float64(msg.CreatedAt.UnixMilli())
	member := strconv.FormatInt(id, 10)

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, messageKey(id), toHash(msg))
	pipe.ZAdd(ctx, pendingKey, redis.Z{Score: score, Member: member})
	pipe.ZAdd(ctx, allKey, redis.Z{Score: score, Member: member})
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to save message: %w", err)
	}

	return msg, nil
}

func (s *Store) MarkMessageDelivered(ctx context.Context, id int64) (*domain.Message, error) {
	key := messageKey(id)
	var result *domain.Message

	txf := func(tx *redis.Tx) error {
		fields, err := tx.HGetAll(ctx, key).Result()
		if err != nil {
			return err
		}
		if len(fields) == 0 {
			return domain.ErrMessageNotFound
		}

		msg, err := fromHash(id, fields)
		if err != nil {
			return err
		}
		msg.MarkDelivered(s.now())

		member := strconv.FormatInt(id, 10)
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, toHash(msg))
			pipe.ZRem(ctx, pendingKey, member)
			pipe.ZAdd(ctx, deliveredKey, redis.Z{Score: float64(msg.DeliveredAt.UnixMilli()), Member: member})
			return nil
		})
		if err != nil {
			return err
		}

		result = msg
		return nil
	}

	for i := 0; i < maxWatchRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if errors.Is(err, domain.ErrMessageNotFound) {
			return nil, err
		}
		if err != nil {
			return nil, fmt.Errorf("failed to mark message delivered: %w", err)
		}
		return result, nil
	}

	return nil, fmt.Errorf("failed to mark message delivered: %w", redis.TxFailedErr)
}

func (s *Store) GetPendingMessages(ctx context.Context) ([]*domain.Message, error) {
	msgs, err := s.load(ctx, pendingKey)
	if err != nil {
		return nil, err
	}
	domain.SortPending(msgs)
	return msgs, nil
}

func (s *Store) GetDeliveredMessages(ctx context.Context) ([]*domain.Message, error) {
	msgs, err := s.load(ctx, deliveredKey)
	if err != nil {
		return nil, err
	}
	domain.SortDelivered(msgs)
	return msgs, nil
}

func (s *Store) GetAllMessages(ctx context.Context) ([]*domain.Message, error) {
	msgs, err := s.load(ctx, allKey)
	if err != nil {
		return nil, err
	}
	domain.SortNewest(msgs)
	return msgs, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) load(ctx context.Context, index string) ([]*domain.Message, error) {
	members, err := s.client.ZRange(ctx, index, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", index, err)
	}

	out := make([]*domain.Message, 0, len(members))
	if len(members) == 0 {
		return out, nil
	}

	ids := make([]int64, len(members))
	cmds := make([]*redis.MapStringStringCmd, len(members))

	pipe := s.client.Pipeline()
	for i, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("corrupt index member %q in %s: %w", m, index, err)
		}
		ids[i] = id
		cmds[i] = pipe.HGetAll(ctx, messageKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}

	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		msg, err := fromHash(ids[i], fields)
		if err != nil {
			return nil, err
		}
		out = append(out, msg)
	}
	return out, nil
}

func toHash(m *domain.Message) map[string]any {
	h := map[string]any{
		"text":         m.Text,
		"sender_name":  m.SenderName,
		"created_at":   m.CreatedAt.Format(time.RFC3339Nano),
		"delivered":    strconv.FormatBool(m.Delivered),
		"delivered_at": "",
	}
	if m.DeliveredAt != nil {
		h["delivered_at"] = m.DeliveredAt.Format(time.RFC3339Nano)
	}
	return h
}

func fromHash(id int64, h map[string]string) (*domain.Message, error) {
	createdAt, err := time.Parse(time.RFC3339Nano, h["created_at"])
	if err != nil {
		return nil, fmt.Errorf("message %d: bad created_at: %w", id, err)
	}
	delivered, _ := strconv.ParseBool(h["delivered"])

	m := &domain.Message{
		ID:         id,
		Text:       h["text"],
		SenderName: domain.NormalizeSender(h["sender_name"]),
		CreatedAt:  createdAt.UTC(),
		Delivered:  delivered,
	}
	if v := h["delivered_at"]; v != "" {
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return nil, fmt.Errorf("message %d: bad delivered_at: %w", id, err)
		}
		t = t.UTC()
		m.DeliveredAt = &t
	}
	return m, nil
}
