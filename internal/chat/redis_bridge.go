package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"ms-marketplace/internal/logger"
	"ms-marketplace/internal/models"

	"github.com/go-redis/redis/v8"
)

const (
	eventChannelPrefix  = "chat:events:"
	eventChannelPattern = eventChannelPrefix + "*"
)

// RedisBridge relays chat events between instances over Redis pub/sub.
// Events carry the publishing instance ID so an instance never re-emits
// its own events.
type RedisBridge struct {
	Client     *redis.Client
	InstanceID string
	Hub        LocalHub
	Logger     *logger.Logger
}

func NewRedisBridge(client *redis.Client, instanceID string, hub LocalHub, log *logger.Logger) *RedisBridge {
	return &RedisBridge{Client: client, InstanceID: instanceID, Hub: hub, Logger: log}
}

func EventChannel(channelID string) string {
	return eventChannelPrefix + channelID
}

// Publish sends the event to every instance subscribed to its channel.
func (b *RedisBridge) Publish(ctx context.Context, event models.ChatEvent) error {
	event.Origin = b.InstanceID
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal chat event: %w", err)
	}
	return b.Client.Publish(ctx, EventChannel(event.ChannelID), payload).Err()
}

// Run subscribes to all chat channels and emits foreign events on the
// local hub until ctx is cancelled. ready, when not nil, is closed once
// the subscription is confirmed.
func (b *RedisBridge) Run(ctx context.Context, ready chan<- struct{}) error {
	pubsub := b.Client.PSubscribe(ctx, eventChannelPattern)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", eventChannelPattern, err)
	}
	if ready != nil {
		close(ready)
	}
	b.Logger.Info("CHAT", fmt.Sprintf("Redis bridge %s subscribed to %s", b.InstanceID, eventChannelPattern))

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			b.handle(msg)
		}
	}
}

func (b *RedisBridge) handle(msg *redis.Message) {
	var event models.ChatEvent
	if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
		b.Logger.Warn("CHAT", fmt.Sprintf("Dropping malformed event on %s: %v", msg.Channel, err))
		return
	}
	if event.Origin == b.InstanceID {
		return
	}
	if event.ChannelID == "" {
		event.ChannelID = strings.TrimPrefix(msg.Channel, eventChannelPrefix)
	}
	b.Hub.Emit(event)
}
