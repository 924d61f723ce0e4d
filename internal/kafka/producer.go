package kafka

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"

	"github.com/beachmessages/relay/internal/events"
)

// Writer is the subset of *kafka.Writer the producer needs.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes queue events to a single topic, keyed by message id so
// every event for one message lands on the same partition.
type Producer struct {
	w Writer
}

// NewProducer creates a Kafka writer for a comma-separated broker list.
func NewProducer(brokers, topic string) *Producer {
	return &Producer{
		w: &kafka.Writer{
			Addr:         kafka.TCP(strings.Split(brokers, ",")...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 50 * time.Millisecond,
			WriteTimeout: 2 * time.Second,
			MaxAttempts:  3,
			RequiredAcks: kafka.RequireAll,
		},
	}
}

func NewProducerWithWriter(w Writer) *Producer {
	return &Producer{w: w}
}

func (p *Producer) Publish(ctx context.Context, e events.Event) error {
	value, err := e.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", e.Type, err)
	}

	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(e.MessageID, 10)),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(e.Type)},
		},
	}
	otel.GetTextMapPropagator().Inject(ctx, headerCarrier{msg: &msg})

	return p.w.WriteMessages(ctx, msg)
}

// headerCarrier adapts kafka-go headers to the otel propagator.
type headerCarrier struct {
	msg *kafka.Message
}

func (c headerCarrier) Get(key string) string {
	for _, h := range c.msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c headerCarrier) Set(key, value string) {
	c.msg.Headers = append(c.msg.Headers, kafka.Header{Key: key, Value: []byte(value)})
}

func (c headerCarrier) Keys() []string {
	keys := make([]string, 0, len(c.msg.Headers))
	for _, h := range c.msg.Headers {
		keys = append(keys, h.Key)
	}
	return keys
}

// Close flushes and closes the underlying writer.
func (p *Producer) Close() error { return p.w.Close() }
