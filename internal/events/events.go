package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/beachmessages/relay/internal/domain"
)

type Type string

const (
	MessageCreated   Type = "message.created"
	MessageDelivered Type = "message.delivered"
)

// Event is the JSON record published whenever the queue changes.
type Event struct {
	Type       Type            `json:"type"`
	MessageID  int64           `json:"messageId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Message    *domain.Message `json:"message"`
}

func New(t Type, msg *domain.Message, now time.Time) Event {
	return Event{
		Type:       t,
		MessageID:  msg.ID,
		OccurredAt: now.UTC(),
		Message:    msg,
	}
}

func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Noop drops every event.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
