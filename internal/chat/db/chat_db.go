package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ms-marketplace/internal/apperrors"
	"ms-marketplace/internal/models"

	"github.com/uptrace/bun"
)

const MaxMessages = 200

type ChatDB struct {
	Bun *bun.DB
}

// ---------------- CHANNELS ----------------

// GetChannel → fetch one channel, not-found error when missing
func (d *ChatDB) GetChannel(ctx context.Context, channelID string) (*models.Channel, error) {
	var channel models.Channel
	err := d.Bun.NewSelect().
		Model(&channel).
		Where("channel_id = ?", channelID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("channel_not_found", fmt.Sprintf("Channel %s does not exist", channelID))
	}
	if err != nil {
		return nil, err
	}
	return &channel, nil
}

// CreateChannel → insert a channel together with its members
func (d *ChatDB) CreateChannel(ctx context.Context, channel models.Channel, memberIDs ...string) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(&channel).Exec(ctx); err != nil {
			return err
		}
		if len(memberIDs) == 0 {
			return nil
		}
		members := make([]models.ChannelMember, len(memberIDs))
		for i, id := range memberIDs {
			members[i] = models.ChannelMember{ChannelID: channel.ChannelID, ParticipantID: id}
		}
		_, err := tx.NewInsert().Model(&members).Exec(ctx)
		return err
	})
}

// ---------------- PARTICIPANTS ----------------

// UpsertParticipant → create or refresh a participant profile
func (d *ChatDB) UpsertParticipant(ctx context.Context, p models.Participant) error {
	_, err := d.Bun.NewInsert().
		Model(&p).
		On("CONFLICT (participant_id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("avatar = EXCLUDED.avatar").
		Set("type = EXCLUDED.type").
		Exec(ctx)
	return err
}

// GetRoster → participants of a channel, ordered by name
func (d *ChatDB) GetRoster(ctx context.Context, channelID string) ([]models.Participant, error) {
	roster := []models.Participant{}
	err := d.Bun.NewSelect().
		Model(&roster).
		Join("JOIN channel_members AS cm ON cm.participant_id = p.participant_id").
		Where("cm.channel_id = ?", channelID).
		Order("p.name ASC", "p.participant_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return roster, nil
}

// IsMember → whether a participant belongs to a channel
func (d *ChatDB) IsMember(ctx context.Context, channelID, participantID string) (bool, error) {
	return d.Bun.NewSelect().
		Model((*models.ChannelMember)(nil)).
		Where("channel_id = ?", channelID).
		Where("participant_id = ?", participantID).
		Exists(ctx)
}

// ---------------- MESSAGES ----------------

// CreateMessage → insert a message
func (d *ChatDB) CreateMessage(ctx context.Context, msg models.Message) error {
	if msg.MentionIDs == nil {
		msg.MentionIDs = []string{}
	}
	_, err := d.Bun.NewInsert().Model(&msg).Exec(ctx)
	return err
}

// ListMessages → latest messages of a channel, oldest first
func (d *ChatDB) ListMessages(ctx context.Context, channelID string, limit int) ([]models.Message, error) {
	if limit <= 0 || limit > MaxMessages {
		limit = MaxMessages
	}

	messages := []models.Message{}
	err := d.Bun.NewSelect().
		Model(&messages).
		Where("channel_id = ?", channelID).
		Order("created_at DESC", "message_id DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}
