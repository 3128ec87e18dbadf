//go:build integration

package event

import (
	"context"
	"testing"
	"time"

	"github.com/erp/reconciliation/internal/domain/finance"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

func TestRedisStreamHandler(t *testing.T) {
	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "Failed to start Redis container")
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { _ = client.Close() })

	handler := NewRedisStreamHandler(client, "recon:events:test", 0)
	bus := NewInMemoryEventBus(zap.NewNop())
	bus.Subscribe(handler)

	p := newRecordedPayment(t, "40", 2)
	require.NoError(t, bus.Publish(ctx, finance.NewPaymentRecordedEvent(p)))

	msgs, err := client.XRange(ctx, "recon:events:test", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, finance.EventTypePaymentRecorded, msgs[0].Values["type"])

	decoded, err := handler.Decode(msgs[0])
	require.NoError(t, err)
	got := decoded.(*finance.PaymentRecordedEvent)
	assert.Equal(t, p.ID, got.PaymentID)
	assert.Equal(t, 2, got.EntriesUpdated)
}
