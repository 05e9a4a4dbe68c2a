// Package redis relays refetch notifications between server instances.
package redis

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ldelvillar/snap-notes-sub000/internal/services/notes"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
)

// Channel is the pub/sub channel refetch notifications travel on.
const Channel = "snapnotes:refetch"

const publishTimeout = 2 * time.Second

type message struct {
	Origin string    `json:"origin"`
	SentAt time.Time `json:"sent_at"`
}

// Bridge notifies the local registry directly and other instances through
// Redis. Messages an instance published itself are ignored on receipt.
type Bridge struct {
	client   *redis.Client
	local    notes.Notifier
	instance string
	log      *slog.Logger
}

// New connects to redisURL and verifies the connection.
func New(ctx context.Context, redisURL string, local notes.Notifier, log *slog.Logger) (*Bridge, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return newBridge(client, local, log), nil
}

func newBridge(client *redis.Client, local notes.Notifier, log *slog.Logger) *Bridge {
	return &Bridge{
		client:   client,
		local:    local,
		instance: ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String(),
		log:      log,
	}
}

// Notify wakes local consumers and publishes for the other instances without
// waiting for Redis.
func (b *Bridge) Notify(ctx context.Context) {
	b.local.Notify(ctx)

	payload, err := json.Marshal(message{Origin: b.instance, SentAt: time.Now().UTC()})
	if err != nil {
		b.log.Error("failed to encode refetch message", "error", err)
		return
	}

	go func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, publishTimeout)
		defer cancel()
		if err := b.client.Publish(ctx, Channel, payload).Err(); err != nil {
			b.log.Warn("failed to publish refetch message", "error", err)
		}
	}(context.WithoutCancel(ctx))
}

// Run relays messages from other instances to the local registry until ctx ends.
func (b *Bridge) Run(ctx context.Context) error {
	sub := b.client.Subscribe(ctx, Channel)
	defer func() {
		if err := sub.Close(); err != nil {
			b.log.Warn("failed to close redis subscription", "error", err)
		}
	}()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("redis subscribe: %w", err)
	}
	b.log.Info("listening for remote refetch notifications", "channel", Channel, "instance", b.instance)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			b.handle(ctx, msg.Payload)
		}
	}
}

// handle reports whether payload triggered a local notification.
func (b *Bridge) handle(ctx context.Context, payload string) bool {
	var m message
	if err := json.Unmarshal([]byte(payload), &m); err != nil {
		b.log.Warn("ignoring malformed refetch message", "error", err)
		return false
	}
	if m.Origin == b.instance {
		return false
	}
	b.log.Debug("relaying remote refetch notification", "origin", m.Origin, "latency", relayLatency(m.SentAt))
	b.local.Notify(ctx)
	return true
}

// relayLatency is the publish-to-receive delay, zero when sentAt is unset or
// lies in the future because of clock skew between instances.
func relayLatency(sentAt time.Time) time.Duration {
	if sentAt.IsZero() {
		return 0
	}
	return max(time.Since(sentAt), 0)
}

// Close releases the Redis connection.
func (b *Bridge) Close() error {
	return b.client.Close()
}
