package datachannel

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/omkarlalla-code/kiosk-project/internal/logger"
)

// Backplane republishes locally-sent Control Messages to a Redis channel so
// a second kiosk-server process (e.g. during a rolling deploy) also
// delivers them to any clients it happens to hold connections for. A
// single-instance deployment can ignore this type entirely; Router works
// standalone.
type Backplane struct {
	client  *redis.Client
	channel string
	router  *Router
}

// NewBackplane wires client to channel, redelivering every message it
// receives into router. Messages this process published itself are not
// filtered out; they are redelivered locally like any other.
func NewBackplane(client *redis.Client, channel string, router *Router) *Backplane {
	return &Backplane{client: client, channel: channel, router: router}
}

type backplaneEnvelope struct {
	RoomID  string  `json:"room_id"`
	Message Message `json:"message"`
}

// Publish broadcasts message to channel for other instances to pick up.
// Callers still call Router.Send locally themselves; Publish only informs
// peers.
func (b *Backplane) Publish(ctx context.Context, roomID string, message Message) error {
	payload, err := json.Marshal(backplaneEnvelope{RoomID: roomID, Message: message})
	if err != nil {
		return fmt.Errorf("datachannel: marshal backplane envelope: %w", err)
	}
	return b.client.Publish(ctx, b.channel, payload).Err()
}

// Run subscribes to the backplane channel until ctx is cancelled,
// delivering every received envelope to the local Router. Intended to run
// in its own goroutine for the lifetime of the process.
func (b *Backplane) Run(ctx context.Context) {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close() //nolint:errcheck

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var env backplaneEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				logger.Warn("datachannel: backplane decode failed", "error", err)
				continue
			}
			if err := b.router.Send(ctx, env.RoomID, env.Message); err != nil {
				logger.Debug("datachannel: backplane delivery dropped, room gone locally", "room_id", env.RoomID)
			}
		}
	}
}
