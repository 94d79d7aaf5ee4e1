package realtime

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"tutorhub/internal/models"
)

// Bus carries change events from the mutators to every node's hub.
type Bus interface {
	PublishChange(ctx context.Context, event models.ChangeEvent) error
}

// RedisBus publishes change events over Redis pub/sub so that fan-out works
// across service instances.
type RedisBus struct {
	client  *redis.Client
	channel string
}

// NewRedisBus constructs a RedisBus.
func NewRedisBus(client *redis.Client, channel string) *RedisBus {
	return &RedisBus{client: client, channel: channel}
}

// PublishChange serializes and publishes the event.
func (b *RedisBus) PublishChange(ctx context.Context, event models.ChangeEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, b.channel, payload).Err()
}

// LocalBus dispatches change events straight into this node's hub, used when
// Redis is not configured. Fan-out stays node-local: subscribers connected to
// other instances see nothing.
type LocalBus struct {
	hub Broadcaster
}

// NewLocalBus constructs a LocalBus.
func NewLocalBus(hub Broadcaster) *LocalBus {
	return &LocalBus{hub: hub}
}

// PublishChange fans the event out to the local hub's scopes.
func (b *LocalBus) PublishChange(ctx context.Context, event models.ChangeEvent) error {
	fanOut(b.hub, event)
	return nil
}

var (
	_ Bus = (*RedisBus)(nil)
	_ Bus = (*LocalBus)(nil)
)
