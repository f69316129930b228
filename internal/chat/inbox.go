package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ms-marketplace/internal/models"

	"github.com/go-redis/redis/v8"
)

const (
	inboxSize = 50
	inboxTTL  = 30 * 24 * time.Hour
)

// MentionInbox keeps the latest mentions of each participant in a capped
// Redis list. It is fed by the mention topic consumer.
type MentionInbox struct {
	Client *redis.Client
}

func inboxKey(participantID string) string {
	return "mentions:" + participantID
}

// HandleMention stores one mention event, newest first.
func (m *MentionInbox) HandleMention(ctx context.Context, event models.MentionEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal mention: %w", err)
	}

	key := inboxKey(event.ParticipantID)
	_, err = m.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, key, payload)
		pipe.LTrim(ctx, key, 0, inboxSize-1)
		pipe.Expire(ctx, key, inboxTTL)
		return nil
	})
	return err
}

// List returns up to limit mentions of a participant, newest first.
func (m *MentionInbox) List(ctx context.Context, participantID string, limit int) ([]models.MentionEvent, error) {
	if limit <= 0 || limit > inboxSize {
		limit = inboxSize
	}

	raw, err := m.Client.LRange(ctx, inboxKey(participantID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	events := make([]models.MentionEvent, 0, len(raw))
	for _, item := range raw {
		var ev models.MentionEvent
		if err := json.Unmarshal([]byte(item), &ev); err != nil {
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}
