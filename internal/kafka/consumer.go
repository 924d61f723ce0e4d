package kafka

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/beachmessages/relay/internal/events"
	"github.com/beachmessages/relay/internal/observability"
)

// EventHandler receives decoded queue events. ctx carries the producer's trace.
type EventHandler interface {
	HandleEvent(ctx context.Context, e events.Event)
}

// recordCarrier reads otel context from franz-go record headers.
type recordCarrier struct {
	record *kgo.Record
}

func (c recordCarrier) Get(key string) string {
	for _, h := range c.record.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (recordCarrier) Set(string, string) {}

func (c recordCarrier) Keys() []string {
	keys := make([]string, 0, len(c.record.Headers))
	for _, h := range c.record.Headers {
		keys = append(keys, h.Key)
	}
	return keys
}

// Consumer reads queue events as part of a consumer group. New groups start
// at the end of the topic: the relay only needs to hear about fresh messages,
// anything older is picked up by polling.
type Consumer struct {
	client  *kgo.Client
	handler EventHandler
	log     *zap.Logger
}

// NewConsumer joins group on topic. Extra options are applied last, so they
// override the defaults.
func NewConsumer(brokers, topic, group string, handler EventHandler, log *zap.Logger, opts ...kgo.Opt) (*Consumer, error) {
	if log == nil {
		log = zap.NewNop()
	}
	base := []kgo.Opt{
		kgo.SeedBrokers(strings.Split(brokers, ",")...),
		kgo.ConsumerGroup(group),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtEnd()),
		kgo.OnPartitionsAssigned(func(_ context.Context, _ *kgo.Client, assigned map[string][]int32) {
			log.Info("queue event partitions assigned", zap.Any("partitions", assigned))
		}),
	}
	cl, err := kgo.NewClient(append(base, opts...)...)
	if err != nil {
		return nil, err
	}
	return &Consumer{client: cl, handler: handler, log: log}, nil
}

// Run blocks, handing events to the handler, until ctx ends or the consumer
// is closed.
func (c *Consumer) Run(ctx context.Context) {
	c.log.Info("queue event consumer started")
	defer c.log.Info("queue event consumer stopped")

	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			return
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			c.log.Warn("queue event fetch failed",
				zap.String("topic", topic),
				zap.Int32("partition", partition),
				zap.Error(err),
			)
		})
		iter := fetches.RecordIter()
		for !iter.Done() {
			c.handle(ctx, iter.Next())
		}
	}
}

// handle decodes one record. Records that are not queue events are skipped.
func (c *Consumer) handle(ctx context.Context, r *kgo.Record) {
	rctx := otel.GetTextMapPropagator().Extract(ctx, recordCarrier{record: r})

	var e events.Event
	if err := json.Unmarshal(r.Value, &e); err != nil || e.Type == "" {
		observability.EventsConsumedTotal.WithLabelValues("malformed").Inc()
		observability.GetLogger(rctx).Warn("skipping malformed queue event",
			zap.Int64("offset", r.Offset),
			zap.Error(err),
		)
		return
	}

	observability.EventsConsumedTotal.WithLabelValues(string(e.Type)).Inc()
	c.handler.HandleEvent(rctx, e)
}

func (c *Consumer) Close() {
	c.client.Close()
}
