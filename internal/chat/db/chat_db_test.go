package db_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"ms-marketplace/internal/apperrors"
	"ms-marketplace/internal/chat/db"
	"ms-marketplace/internal/models"
	"ms-marketplace/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *db.ChatDB {
	bunDB := testutil.NewSQLite(t,
		(*models.Channel)(nil),
		(*models.ChannelMember)(nil),
		(*models.Participant)(nil),
		(*models.Message)(nil),
	)
	chatDB := &db.ChatDB{Bun: bunDB}

	ctx := context.Background()
	for _, p := range []models.Participant{
		{ID: "u-bob", Name: "Bob Smith", Type: models.ParticipantStudent},
		{ID: "u-alice", Name: "Alice", Type: models.ParticipantInstructor},
		{ID: "u-carol", Name: "Carol", Type: models.ParticipantStudent},
	} {
		require.NoError(t, chatDB.UpsertParticipant(ctx, p))
	}
	require.NoError(t, chatDB.CreateChannel(ctx,
		models.Channel{ChannelID: "room-1", Kind: models.ChannelRoom, Title: "Go 101"},
		"u-bob", "u-alice"))
	return chatDB
}

func TestGetChannel(t *testing.T) {
	chatDB := setupTestDB(t)

	ch, err := chatDB.GetChannel(context.Background(), "room-1")
	require.NoError(t, err)
	assert.Equal(t, models.ChannelRoom, ch.Kind)

	_, err = chatDB.GetChannel(context.Background(), "missing")
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestGetRoster_OnlyMembersSortedByName(t *testing.T) {
	chatDB := setupTestDB(t)

	roster, err := chatDB.GetRoster(context.Background(), "room-1")
	require.NoError(t, err)
	require.Len(t, roster, 2)
	assert.Equal(t, "Alice", roster[0].Name)
	assert.Equal(t, "Bob Smith", roster[1].Name)

	empty, err := chatDB.GetRoster(context.Background(), "nobody-here")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestUpsertParticipant_UpdatesName(t *testing.T) {
	chatDB := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, chatDB.UpsertParticipant(ctx, models.Participant{ID: "u-alice", Name: "Alice Cooper", Type: models.ParticipantInstructor}))
	roster, err := chatDB.GetRoster(ctx, "room-1")
	require.NoError(t, err)
	assert.Equal(t, "Alice Cooper", roster[0].Name)
}

func TestIsMember(t *testing.T) {
	chatDB := setupTestDB(t)
	ctx := context.Background()

	ok, err := chatDB.IsMember(ctx, "room-1", "u-bob")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = chatDB.IsMember(ctx, "room-1", "u-carol")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMessages_RoundTripAndOrdering(t *testing.T) {
	chatDB := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.NoError(t, chatDB.CreateMessage(ctx, models.Message{
			MessageID:  fmt.Sprintf("m-%d", i),
			ChannelID:  "room-1",
			SenderID:   "u-bob",
			Content:    fmt.Sprintf("hello %d @Alice", i),
			MentionIDs: []string{"u-alice"},
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}))
	}

	msgs, err := chatDB.ListMessages(ctx, "room-1", 3)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "m-2", msgs[0].MessageID)
	assert.Equal(t, "m-4", msgs[2].MessageID)
	assert.Equal(t, []string{"u-alice"}, msgs[2].MentionIDs)
}

func TestCreateMessage_NilMentionsStoredAsEmpty(t *testing.T) {
	chatDB := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, chatDB.CreateMessage(ctx, models.Message{
		MessageID: "m-1", ChannelID: "room-1", SenderID: "u-bob", Content: "hi", CreatedAt: time.Now(),
	}))
	msgs, err := chatDB.ListMessages(ctx, "room-1", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, []string{}, msgs[0].MentionIDs)
}
