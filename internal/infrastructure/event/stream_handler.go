package event

import (
	"context"
	"fmt"

	"github.com/erp/reconciliation/internal/domain/shared"
	"github.com/redis/go-redis/v9"
)

// DefaultStreamMaxLen bounds the stream with approximate trimming
const DefaultStreamMaxLen = 100_000

// RedisStreamHandler forwards payment events to a Redis stream so that other
// services (notifications, reporting) can consume them with XREAD/XREADGROUP.
// Each entry has the fields type, id, aggregate_id and payload (JSON).
type RedisStreamHandler struct {
	client     redis.Cmdable
	stream     string
	maxLen     int64
	serializer *EventSerializer
}

// NewRedisStreamHandler creates a handler appending to stream.
// maxLen <= 0 selects DefaultStreamMaxLen.
func NewRedisStreamHandler(client redis.Cmdable, stream string, maxLen int64) *RedisStreamHandler {
	if maxLen <= 0 {
		maxLen = DefaultStreamMaxLen
	}
	return &RedisStreamHandler{
		client:     client,
		stream:     stream,
		maxLen:     maxLen,
		serializer: NewPaymentEventSerializer(),
	}
}

// EventTypes returns nil so the handler receives every event
func (h *RedisStreamHandler) EventTypes() []string {
	return nil
}

// Handle appends the event to the stream
func (h *RedisStreamHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	payload, err := h.serializer.Serialize(event)
	if err != nil {
		return err
	}
	err = h.client.XAdd(ctx, &redis.XAddArgs{
		Stream: h.stream,
		MaxLen: h.maxLen,
		Approx: true,
		Values: map[string]any{
			"type":         event.EventType(),
			"id":           event.EventID().String(),
			"aggregate_id": event.AggregateID().String(),
			"payload":      string(payload),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to append %s to stream %s: %w", event.EventType(), h.stream, err)
	}
	return nil
}

// Decode turns a stream message back into a domain event
func (h *RedisStreamHandler) Decode(msg redis.XMessage) (shared.DomainEvent, error) {
	eventType, _ := msg.Values["type"].(string)
	payload, _ := msg.Values["payload"].(string)
	if eventType == "" || payload == "" {
		return nil, fmt.Errorf("stream message %s has no event", msg.ID)
	}
	return h.serializer.Deserialize(eventType, []byte(payload))
}

var _ shared.EventHandler = (*RedisStreamHandler)(nil)
