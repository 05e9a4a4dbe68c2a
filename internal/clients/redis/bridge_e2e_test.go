//go:build e2e

package redis

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ldelvillar/snap-notes-sub000/internal/services/notes"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRedisTC(ctx context.Context, t *testing.T) string {
	t.Helper()
	t.Log("Starting Redis container")

	redisC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = redisC.Terminate(context.Background()) })

	host, err := redisC.Host(ctx)
	require.NoError(t, err)
	port, err := redisC.MappedPort(ctx, "6379")
	require.NoError(t, err)

	return fmt.Sprintf("redis://%s:%s/0", host, port.Port())
}

func TestBridgeFanOutE2E(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	url := startRedisTC(ctx, t)

	newInstance := func() (*Bridge, *notes.Registry, *atomic.Int32) {
		reg := notes.NewRegistry(silentLogger, nil)
		var calls atomic.Int32
		reg.Register(func(context.Context) error {
			calls.Add(1)
			return nil
		})

		b, err := New(ctx, url, reg, silentLogger)
		require.NoError(t, err)
		t.Cleanup(func() { _ = b.Close() })
		go func() { _ = b.Run(ctx) }()
		return b, reg, &calls
	}

	a, regA, callsA := newInstance()
	_, regB, callsB := newInstance()

	// subscriptions are asynchronous; keep publishing until B hears one
	require.Eventually(t, func() bool {
		a.Notify(ctx)
		return callsB.Load() > 0
	}, 10*time.Second, 100*time.Millisecond)

	regA.Wait()
	regB.Wait()
	assert.Positive(t, callsA.Load(), "local consumers are notified directly")

	// A never reacts to its own publications
	before := callsA.Load()
	published := int32(0)
	for range 3 {
		a.Notify(ctx)
		published++
	}
	regA.Wait()
	time.Sleep(200 * time.Millisecond)
	regA.Wait()
	assert.Equal(t, before+published, callsA.Load())
}
