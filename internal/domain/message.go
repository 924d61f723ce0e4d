package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MaxTextLength     = 100
	DefaultSenderName = "Anonymous"
)

// Message Invariants:
// 1. Identity: ID and CreatedAt are assigned once by the store and never change.
// 2. Delivery: DeliveredAt is non-nil if and only if Delivered is true.
// 3. Lifecycle: Delivered never goes back to false. There is no delete.
type Message struct {
	ID          int64      `json:"id"`
	Text        string     `json:"text"`
	SenderName  string     `json:"senderName"`
	CreatedAt   time.Time  `json:"createdAt"`
	Delivered   bool       `json:"delivered"`
	DeliveredAt *time.Time `json:"deliveredAt"`
}

// ValidateText checks the text the way the sender app does before queueing.
func ValidateText(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyText
	}
	if utf8.RuneCountInString(text) > MaxTextLength {
		return fmt.Errorf("%w: %d characters allowed", ErrTextTooLong, MaxTextLength)
	}
	return nil
}

// NormalizeSender returns the sender name, falling back to DefaultSenderName.
func NormalizeSender(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return DefaultSenderName
	}
	return name
}

// NewMessage builds a pending message. The caller owns id assignment.
func NewMessage(id int64, text, senderName string, now time.Time) (*Message, error) {
	if id <= 0 {
		return nil, ErrInvalidMessage
	}
	if err := ValidateText(text); err != nil {
		return nil, err
	}

	return &Message{
		ID:         id,
		Text:       text,
		SenderName: NormalizeSender(senderName),
		CreatedAt:  now.UTC(),
	}, nil
}

// MarkDelivered flips the delivered flag and stamps DeliveredAt together.
// Calling it again overwrites DeliveredAt.
func (m *Message) MarkDelivered(now time.Time) {
	t := now.UTC()
	m.Delivered = true
	m.DeliveredAt = &t
}

// Clone returns a copy that shares no pointers with m.
func (m *Message) Clone() *Message {
	c := *m
	if m.DeliveredAt != nil {
		t := *m.DeliveredAt
		c.DeliveredAt = &t
	}
	return &c
}
