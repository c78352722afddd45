package redis

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"chatwindow/internal/events"
	"chatwindow/pkg/logger"
)

const (
	ChannelCreated = "chat:message:created"
	ChannelUpdated = "chat:message:updated"
)

// Feed consumes push events fanned out over Redis pub/sub. Deployments that
// publish to Redis instead of (or alongside) the websocket stream feed the
// same dispatcher through it.
type Feed struct {
	client     *redis.Client
	dispatcher *events.Dispatcher
	log        *logger.Logger
}

func NewFeed(client *redis.Client, dispatcher *events.Dispatcher, log *logger.Logger) *Feed {
	return &Feed{client: client, dispatcher: dispatcher, log: log}
}

// Run subscribes to both event channels until ctx is done.
func (f *Feed) Run(ctx context.Context) error {
	sub := f.client.Subscribe(ctx, ChannelCreated, ChannelUpdated)
	defer sub.Close()

	for {
		msg, err := sub.ReceiveMessage(ctx)
		if err != nil {
			return err
		}
		f.handle(msg.Channel, []byte(msg.Payload))
	}
}

func (f *Feed) handle(channel string, payload []byte) {
	var env events.Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return
	}
	decoded, err := events.DecodeMessage(env)
	if err != nil {
		return
	}
	switch channel {
	case ChannelCreated:
		f.dispatcher.Created(decoded)
	case ChannelUpdated:
		f.dispatcher.Updated(decoded)
	default:
		f.log.Warnf("unknown push channel=%s", channel)
	}
}
