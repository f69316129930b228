package redis

import (
	"context"
	"fmt"
	"strings"

	"ms-marketplace/internal/logger"

	"github.com/go-redis/redis/v8"
)

// ExpiryHandler is called with the user and course of an expired lock.
type ExpiryHandler func(ctx context.Context, userID, courseID string)

// WatchExpiredLocks listens for expired enrollment locks via keyspace
// notifications and calls handle for each one until ctx is done. ready is
// closed once the subscription is confirmed.
func WatchExpiredLocks(ctx context.Context, client *redis.Client, db int, log *logger.Logger, handle ExpiryHandler, ready chan<- struct{}) error {
	// notifications are off by default; Ex enables expired events
	if err := client.ConfigSet(ctx, "notify-keyspace-events", "Ex").Err(); err != nil {
		log.Warn("REDIS", fmt.Sprintf("Could not enable keyspace notifications: %v", err))
	}

	channel := fmt.Sprintf("__keyevent@%d__:expired", db)
	pubsub := client.PSubscribe(ctx, channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", channel, err)
	}
	if ready != nil {
		close(ready)
	}
	log.Info("REDIS", "Listening for expired enrollment locks")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			if !strings.HasPrefix(msg.Payload, lockPrefix) {
				continue
			}
			userID, courseID, ok := ParseLockKey(msg.Payload)
			if !ok {
				log.Warn("REDIS", fmt.Sprintf("Ignoring malformed lock key %q", msg.Payload))
				continue
			}
			handle(ctx, userID, courseID)
		}
	}
}
