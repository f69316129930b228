package chat

import (
	"context"
	"fmt"
	"time"

	"ms-marketplace/internal/logger"
	"ms-marketplace/internal/models"
)

// LocalHub delivers events to clients connected to this instance.
type LocalHub interface {
	Emit(event models.ChatEvent)
}

// Relay forwards events to the other instances.
type Relay interface {
	Publish(ctx context.Context, event models.ChatEvent) error
}

// Broadcaster sends chat events to local clients and, when a relay is
// set, to every other instance. It is also the typing.Notifier.
type Broadcaster struct {
	Hub    LocalHub
	Relay  Relay
	Logger *logger.Logger
	Now    func() time.Time
}

func (b *Broadcaster) Broadcast(ctx context.Context, event models.ChatEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = b.now()
	}
	b.Hub.Emit(event)

	if b.Relay == nil {
		return nil
	}
	if err := b.Relay.Publish(ctx, event); err != nil {
		b.Logger.LogChat("RELAY_FAILED", event.ChannelID, fmt.Sprintf("%s: %v", event.Type, err))
		return fmt.Errorf("relay %s event: %w", event.Type, err)
	}
	return nil
}

func (b *Broadcaster) StartTyping(ctx context.Context, channelID, userID string) error {
	return b.Broadcast(ctx, models.ChatEvent{Type: models.ChatEventTypingStart, ChannelID: channelID, UserID: userID})
}

func (b *Broadcaster) StopTyping(ctx context.Context, channelID, userID string) error {
	return b.Broadcast(ctx, models.ChatEvent{Type: models.ChatEventTypingStop, ChannelID: channelID, UserID: userID})
}

func (b *Broadcaster) now() time.Time {
	if b.Now != nil {
		return b.Now()
	}
	return time.Now().UTC()
}
