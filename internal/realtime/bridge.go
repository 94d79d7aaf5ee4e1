package realtime

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"tutorhub/internal/models"
	"tutorhub/internal/ws"
)

// Broadcaster is the hub surface the bridge needs.
type Broadcaster interface {
	Broadcast(scope string, event models.RefetchEvent)
}

// Bridge subscribes to the change-event channel and fans each event out to
// the websocket scopes it affects. Each scope is an independent channel:
// subscribers refetch on their own, so two views of the same change may
// transiently disagree. That is accepted eventual consistency.
type Bridge struct {
	client  *redis.Client
	channel string
	hub     Broadcaster
	logger  *zap.Logger
}

// NewBridge constructs a Bridge.
func NewBridge(client *redis.Client, channel string, hub Broadcaster, logger *zap.Logger) *Bridge {
	return &Bridge{client: client, channel: channel, hub: hub, logger: logger}
}

// Run consumes events until the context is cancelled. Intended to be run as
// a goroutine from main.
func (b *Bridge) Run(ctx context.Context) {
	pubsub := b.client.Subscribe(ctx, b.channel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var event models.ChangeEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				b.logger.Warn("bridge: bad change event payload", zap.Error(err))
				continue
			}
			b.dispatch(event)
		}
	}
}

func (b *Bridge) dispatch(event models.ChangeEvent) {
	fanOut(b.hub, event)
}

// fanOut expands a change event into its affected scopes and broadcasts a
// refetch signal to each. Shared by the redis bridge and the local bus.
func fanOut(hub Broadcaster, event models.ChangeEvent) {
	refetch := models.RefetchEvent{Type: "changed", Table: event.Table, ThreadID: event.ThreadID}
	for _, scope := range ws.ScopesFor(event) {
		hub.Broadcast(scope, refetch)
	}
}
