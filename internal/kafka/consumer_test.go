package kafka

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/beachmessages/relay/internal/domain"
	"github.com/beachmessages/relay/internal/events"
)

type recordingHandler struct {
	mu     sync.Mutex
	events []events.Event
	ctxs   []context.Context
}

func (h *recordingHandler) HandleEvent(ctx context.Context, e events.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, e)
	h.ctxs = append(h.ctxs, ctx)
}

// toRecord turns what the producer would write into what the consumer reads.
func toRecord(msg kafka.Message) *kgo.Record {
	rec := &kgo.Record{Key: msg.Key, Value: msg.Value}
	for _, h := range msg.Headers {
		rec.Headers = append(rec.Headers, kgo.RecordHeader{Key: h.Key, Value: h.Value})
	}
	return rec
}

func TestConsumerHandle_DecodesProducedEvent(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{9, 9, 9},
		SpanID:     trace.SpanID{7, 7, 7},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	w := &fakeWriter{}
	msg := &domain.Message{ID: 5, Text: "Hi Helen", SenderName: "Sam", CreatedAt: time.Now().UTC()}
	require.NoError(t, NewProducerWithWriter(w).Publish(ctx, events.New(events.MessageCreated, msg, time.Now())))
	require.Len(t, w.written, 1)

	h := &recordingHandler{}
	c := &Consumer{handler: h, log: zap.NewNop()}
	c.handle(context.Background(), toRecord(w.written[0]))

	require.Len(t, h.events, 1)
	assert.Equal(t, events.MessageCreated, h.events[0].Type)
	assert.Equal(t, int64(5), h.events[0].MessageID)
	assert.Equal(t, "Hi Helen", h.events[0].Message.Text)

	got := trace.SpanContextFromContext(h.ctxs[0])
	assert.Equal(t, sc.TraceID(), got.TraceID())
}

func TestConsumerHandle_SkipsMalformedRecords(t *testing.T) {
	h := &recordingHandler{}
	c := &Consumer{handler: h, log: zap.NewNop()}

	c.handle(context.Background(), &kgo.Record{Value: []byte("not json")})
	c.handle(context.Background(), &kgo.Record{Value: []byte(`{"messageId":3}`)})

	assert.Empty(t, h.events)
}
