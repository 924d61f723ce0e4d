package application

import (
	"time"

	"go.uber.org/zap"

	"github.com/beachmessages/relay/internal/events"
	"github.com/beachmessages/relay/internal/repository"
)

// DefaultPublishTimeout caps how long a request waits on the event broker.
const DefaultPublishTimeout = 2 * time.Second

type Service struct {
	repo      repository.Repository
	publisher events.Publisher
	log       *zap.Logger
	now       func() time.Time

	publishTimeout time.Duration
}

func New(repo repository.Repository, publisher events.Publisher, log *zap.Logger) *Service {
	if publisher == nil {
		publisher = events.Noop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		repo:           repo,
		publisher:      publisher,
		log:            log,
		now:            time.Now,
		publishTimeout: DefaultPublishTimeout,
	}
}
