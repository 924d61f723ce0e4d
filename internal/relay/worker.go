package relay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/beachmessages/relay/internal/domain"
	"github.com/beachmessages/relay/internal/events"
	"github.com/beachmessages/relay/internal/peripheral"
)

// Queue is the part of the queue API the relay consumes.
type Queue interface {
	Pending(ctx context.Context) ([]*domain.Message, error)
	MarkDelivered(ctx context.Context, id int64) (*domain.Message, error)
}

// Display is the link to the physical display.
type Display interface {
	StartScan()
	StopScan()
	IsConnected() bool
	Send(ctx context.Context, text string) error
}

type Failure struct {
	MessageID int64  `json:"messageId"`
	Error     string `json:"error"`
}

// Report summarises one delivery pass.
type Report struct {
	Delivered int       `json:"delivered"`
	Failed    int       `json:"failed"`
	Failures  []Failure `json:"failures,omitempty"`
}

type Options struct {
	PollInterval time.Duration
	// AutoDeliver pushes every pending message on each poll.
	AutoDeliver bool
}

// Worker moves queued messages onto the display.
type Worker struct {
	queue   Queue
	display Display
	opts    Options
	log     *zap.Logger

	// one delivery pass at a time, so a message is never written twice concurrently
	deliverMu sync.Mutex

	mu      sync.RWMutex
	pending []*domain.Message

	nudge chan struct{}
}

func NewWorker(queue Queue, display Display, opts Options, log *zap.Logger) *Worker {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 5 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Worker{queue: queue, display: display, opts: opts, log: log, nudge: make(chan struct{}, 1)}
}

// Run scans for the display and polls the queue while it is connected.
// Scanning is stopped when ctx ends.
func (w *Worker) Run(ctx context.Context) error {
	w.display.StartScan()
	defer w.display.StopScan()

	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()

	w.log.Info("relay worker started",
		zap.Duration("poll_interval", w.opts.PollInterval),
		zap.Bool("auto_deliver", w.opts.AutoDeliver),
	)

	for {
		select {
		case <-ctx.Done():
			w.log.Info("relay worker stopped")
			return nil
		case <-ticker.C:
			w.poll(ctx)
		case <-w.nudge:
			w.poll(ctx)
		}
	}
}

// Nudge asks Run to poll now instead of waiting for the next tick.
func (w *Worker) Nudge() {
	select {
	case w.nudge <- struct{}{}:
	default:
	}
}

// HandleEvent reacts to queue events: a newly created message triggers a poll.
func (w *Worker) HandleEvent(ctx context.Context, e events.Event) {
	if e.Type != events.MessageCreated {
		return
	}
	w.log.Debug("message queued upstream", zap.Int64("message_id", e.MessageID))
	w.Nudge()
}

func (w *Worker) poll(ctx context.Context) {
	if !w.display.IsConnected() {
		return
	}

	msgs, err := w.Refresh(ctx)
	if err != nil {
		w.log.Warn("failed to fetch pending messages", zap.Error(err))
		return
	}
	if !w.opts.AutoDeliver || len(msgs) == 0 {
		return
	}

	report, err := w.DeliverAll(ctx)
	if err != nil {
		w.log.Warn("auto delivery aborted", zap.Error(err))
		return
	}
	w.log.Info("auto delivery pass finished",
		zap.Int("delivered", report.Delivered),
		zap.Int("failed", report.Failed),
	)
}

// Refresh fetches the pending list and caches it for Pending.
func (w *Worker) Refresh(ctx context.Context) ([]*domain.Message, error) {
	msgs, err := w.queue.Pending(ctx)
	if err != nil {
		return nil, err
	}
	w.mu.Lock()
	w.pending = msgs
	w.mu.Unlock()
	return msgs, nil
}

// Pending returns the list seen by the last poll.
func (w *Worker) Pending() []*domain.Message {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]*domain.Message, len(w.pending))
	copy(out, w.pending)
	return out
}

// DeliverOne writes msg to the display, then marks it delivered. A failed
// write leaves the message pending for the next attempt.
func (w *Worker) DeliverOne(ctx context.Context, msg *domain.Message) error {
	w.deliverMu.Lock()
	defer w.deliverMu.Unlock()
	if err := w.deliver(ctx, msg); err != nil {
		return err
	}
	w.forget(msg.ID)
	return nil
}

// Lookup finds id in the list seen by the last poll.
func (w *Worker) Lookup(id int64) (*domain.Message, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, m := range w.pending {
		if m.ID == id {
			return m, true
		}
	}
	return nil, false
}

func (w *Worker) forget(id int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	kept := w.pending[:0:0]
	for _, m := range w.pending {
		if m.ID != id {
			kept = append(kept, m)
		}
	}
	w.pending = kept
}

// DeliverAll sends every pending message oldest first, continuing past
// individual failures.
func (w *Worker) DeliverAll(ctx context.Context) (Report, error) {
	w.deliverMu.Lock()
	defer w.deliverMu.Unlock()

	var report Report
	if !w.display.IsConnected() {
		return report, peripheral.ErrNotConnected
	}

	msgs, err := w.Refresh(ctx)
	if err != nil {
		return report, fmt.Errorf("fetch pending: %w", err)
	}

	for _, msg := range msgs {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := w.deliver(ctx, msg); err != nil {
			report.Failed++
			report.Failures = append(report.Failures, Failure{MessageID: msg.ID, Error: err.Error()})
			continue
		}
		report.Delivered++
	}

	if _, err := w.Refresh(ctx); err != nil {
		w.log.Debug("refresh after delivery failed", zap.Error(err))
	}
	return report, nil
}

func (w *Worker) deliver(ctx context.Context, msg *domain.Message) error {
	log := w.log.With(zap.Int64("message_id", msg.ID))

	if err := w.display.Send(ctx, msg.Text); err != nil {
		log.Warn("display write failed", zap.Error(err))
		return err
	}

	if _, err := w.queue.MarkDelivered(ctx, msg.ID); err != nil {
		if errors.Is(err, domain.ErrMessageNotFound) {
			log.Warn("message vanished before it could be marked delivered")
		} else {
			log.Error("message shown but not marked delivered", zap.Error(err))
		}
		return fmt.Errorf("mark delivered: %w", err)
	}

	log.Info("message delivered to display")
	return nil
}
