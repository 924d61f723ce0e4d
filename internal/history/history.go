package history

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// MaxEntries is how many sent messages are kept. Older ones are evicted first.
const MaxEntries = 50

// Entry is one message sent straight to the display.
type Entry struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

type Store interface {
	Append(ctx context.Context, text string) (Entry, error)
	// List returns entries newest first.
	List(ctx context.Context) ([]Entry, error)
	Clear(ctx context.Context) error
}

func newEntry(text string, now time.Time) Entry {
	return Entry{
		ID:        uuid.NewString(),
		Text:      text,
		Timestamp: now.UTC(),
	}
}
