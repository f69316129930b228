package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"ms-marketplace/internal/apperrors"
	"ms-marketplace/internal/logger"
	"ms-marketplace/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockDBLayer struct {
	mock.Mock
}

func (m *MockDBLayer) GetChannel(ctx context.Context, channelID string) (*models.Channel, error) {
	args := m.Called(ctx, channelID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Channel), args.Error(1)
}

func (m *MockDBLayer) GetRoster(ctx context.Context, channelID string) ([]models.Participant, error) {
	args := m.Called(ctx, channelID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Participant), args.Error(1)
}

func (m *MockDBLayer) IsMember(ctx context.Context, channelID, participantID string) (bool, error) {
	args := m.Called(ctx, channelID, participantID)
	return args.Bool(0), args.Error(1)
}

func (m *MockDBLayer) CreateMessage(ctx context.Context, msg models.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockDBLayer) ListMessages(ctx context.Context, channelID string, limit int) ([]models.Message, error) {
	args := m.Called(ctx, channelID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Message), args.Error(1)
}

type MockEventSink struct {
	mock.Mock
}

func (m *MockEventSink) Broadcast(ctx context.Context, event models.ChatEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEventSink) StartTyping(ctx context.Context, channelID, userID string) error {
	args := m.Called(ctx, channelID, userID)
	return args.Error(0)
}

func (m *MockEventSink) StopTyping(ctx context.Context, channelID, userID string) error {
	args := m.Called(ctx, channelID, userID)
	return args.Error(0)
}

type MockKafkaProducer struct {
	mock.Mock
}

func (m *MockKafkaProducer) Publish(ctx context.Context, topic, key string, value interface{}) error {
	args := m.Called(ctx, topic, key, value)
	return args.Error(0)
}

var (
	room   = &models.Channel{ChannelID: "room-1", Kind: models.ChannelRoom, Title: "Go 101"}
	roster = []models.Participant{
		{ID: "u-alice", Name: "Alice", Type: models.ParticipantInstructor},
		{ID: "u-bob", Name: "Bob Smith", Type: models.ParticipantStudent},
		{ID: "u-me", Name: "Me", Type: models.ParticipantStudent},
	}
	fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
)

func newTestService() (*Service, *MockDBLayer, *MockEventSink, *MockKafkaProducer) {
	db := &MockDBLayer{}
	events := &MockEventSink{}
	producer := &MockKafkaProducer{}

	svc := NewService(db, events, producer, "marketplace.chat.mentioned", time.Hour, logger.Nop())
	svc.now = func() time.Time { return fixedNow }
	svc.newID = func() string { return "msg-1" }
	return svc, db, events, producer
}

func expectMember(db *MockDBLayer, userID string, ok bool) {
	db.On("GetChannel", mock.Anything, "room-1").Return(room, nil)
	db.On("IsMember", mock.Anything, "room-1", userID).Return(ok, nil)
}

func TestSendMessage_PersistsMentionsAndPublishesEachOne(t *testing.T) {
	svc, db, events, producer := newTestService()
	ctx := context.Background()

	expectMember(db, "u-me", true)
	db.On("GetRoster", mock.Anything, "room-1").Return(roster, nil)
	db.On("CreateMessage", mock.Anything, mock.MatchedBy(func(m models.Message) bool {
		return m.MessageID == "msg-1" &&
			assert.ObjectsAreEqual([]string{"u-alice", "u-bob", "u-alice"}, m.MentionIDs)
	})).Return(nil)
	events.On("Broadcast", mock.Anything, mock.MatchedBy(func(e models.ChatEvent) bool {
		return e.Type == models.ChatEventMessage && e.Message != nil && e.ChannelID == "room-1"
	})).Return(nil)
	producer.On("Publish", mock.Anything, "marketplace.chat.mentioned", "u-alice", mock.Anything).Return(nil).Twice()
	producer.On("Publish", mock.Anything, "marketplace.chat.mentioned", "u-bob", mock.Anything).Return(nil).Once()

	msg, err := svc.SendMessage(ctx, "room-1", "u-me", "Thanks @Alice and @Bob Smith, see @alice")
	require.NoError(t, err)
	assert.Equal(t, fixedNow, msg.CreatedAt)
	assert.Equal(t, []string{"u-alice", "u-bob", "u-alice"}, msg.MentionIDs)

	var mentions int
	for _, seg := range msg.Segments {
		if seg.Type == models.SegmentMention {
			mentions++
			assert.True(t, seg.Valid)
		}
	}
	assert.Equal(t, 3, mentions)

	db.AssertExpectations(t)
	events.AssertExpectations(t)
	producer.AssertExpectations(t)
}

func TestSendMessage_EmptyIsValidationError(t *testing.T) {
	svc, db, _, _ := newTestService()

	_, err := svc.SendMessage(context.Background(), "room-1", "u-me", "   \n")
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	db.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything)
}

func TestSendMessage_NonMemberIsForbidden(t *testing.T) {
	svc, db, _, _ := newTestService()
	expectMember(db, "u-stranger", false)

	_, err := svc.SendMessage(context.Background(), "room-1", "u-stranger", "hi")
	assert.Equal(t, apperrors.KindBlocked, apperrors.KindOf(err))
}

func TestSendMessage_StopsSenderTyping(t *testing.T) {
	svc, db, events, _ := newTestService()
	ctx := context.Background()

	expectMember(db, "u-me", true)
	db.On("GetRoster", mock.Anything, "room-1").Return(roster, nil)
	db.On("CreateMessage", mock.Anything, mock.Anything).Return(nil)
	events.On("StartTyping", mock.Anything, "room-1", "u-me").Return(nil).Once()
	events.On("StopTyping", mock.Anything, "room-1", "u-me").Return(nil).Once()
	events.On("Broadcast", mock.Anything, mock.Anything).Return(nil)

	require.NoError(t, svc.Keystroke(ctx, "room-1", "u-me", "hel"))
	require.NoError(t, svc.Keystroke(ctx, "room-1", "u-me", "hello"))
	_, err := svc.SendMessage(ctx, "room-1", "u-me", "hello")
	require.NoError(t, err)

	assert.False(t, svc.StopTyping(ctx, "room-1", "u-me"))
	events.AssertExpectations(t)
}

func TestSendMessage_BroadcastAndKafkaFailuresDoNotFailSend(t *testing.T) {
	svc, db, events, producer := newTestService()

	expectMember(db, "u-me", true)
	db.On("GetRoster", mock.Anything, "room-1").Return(roster, nil)
	db.On("CreateMessage", mock.Anything, mock.Anything).Return(nil)
	events.On("Broadcast", mock.Anything, mock.Anything).Return(errors.New("redis down"))
	producer.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("kafka down"))

	msg, err := svc.SendMessage(context.Background(), "room-1", "u-me", "ping @Alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"u-alice"}, msg.MentionIDs)
}

func TestSendMessage_StoreFailureIsReturned(t *testing.T) {
	svc, db, events, _ := newTestService()

	expectMember(db, "u-me", true)
	db.On("GetRoster", mock.Anything, "room-1").Return(roster, nil)
	db.On("CreateMessage", mock.Anything, mock.Anything).Return(errors.New("disk full"))

	_, err := svc.SendMessage(context.Background(), "room-1", "u-me", "hi")
	require.Error(t, err)
	events.AssertNotCalled(t, "Broadcast", mock.Anything, mock.Anything)
}

func TestSuggest(t *testing.T) {
	svc, db, _, _ := newTestService()
	expectMember(db, "u-me", true)
	db.On("GetRoster", mock.Anything, "room-1").Return(roster, nil)

	s, err := svc.Suggest(context.Background(), "room-1", "u-me", "hey @al", 7)
	require.NoError(t, err)
	assert.True(t, s.Active)
	assert.Equal(t, "al", s.Term)
	require.Len(t, s.Participants, 1)
	assert.Equal(t, "u-alice", s.Participants[0].ID)

	s, err = svc.Suggest(context.Background(), "room-1", "u-me", "hey @al ", 8)
	require.NoError(t, err)
	assert.False(t, s.Active)
	assert.Empty(t, s.Participants)
}

func TestSuggest_UnknownChannel(t *testing.T) {
	svc, db, _, _ := newTestService()
	db.On("GetChannel", mock.Anything, "nope").Return(nil, apperrors.NotFound("channel_not_found", "missing"))

	_, err := svc.Suggest(context.Background(), "nope", "u-me", "@", 1)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestSuggestAndRender_NonMemberSeesNoRoster(t *testing.T) {
	svc, db, _, _ := newTestService()
	expectMember(db, "u-stranger", false)

	s, err := svc.Suggest(context.Background(), "room-1", "u-stranger", "@", 1)
	assert.Nil(t, s)
	assert.Equal(t, apperrors.KindBlocked, apperrors.KindOf(err))

	segs, err := svc.Render(context.Background(), "room-1", "u-stranger", "hi @Alice")
	assert.Nil(t, segs)
	assert.Equal(t, apperrors.KindBlocked, apperrors.KindOf(err))
	db.AssertNotCalled(t, "GetRoster", mock.Anything, mock.Anything)
}

func TestMessages_RenderedAgainstCurrentRoster(t *testing.T) {
	svc, db, _, _ := newTestService()
	expectMember(db, "u-me", true)
	db.On("GetRoster", mock.Anything, "room-1").Return(roster, nil)
	db.On("ListMessages", mock.Anything, "room-1", 20).Return([]models.Message{
		{MessageID: "m1", Content: "hi @Alice"},
		{MessageID: "m2", Content: "hi @Zed"},
	}, nil)

	msgs, err := svc.Messages(context.Background(), "room-1", "u-me", 20)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.True(t, msgs[0].Segments[1].Valid)
	assert.False(t, msgs[1].Segments[1].Valid)
}

func TestKeystroke_EmptyTextDoesNotStartTyping(t *testing.T) {
	svc, db, events, _ := newTestService()
	expectMember(db, "u-me", true)

	require.NoError(t, svc.Keystroke(context.Background(), "room-1", "u-me", ""))
	events.AssertNotCalled(t, "StartTyping", mock.Anything, mock.Anything, mock.Anything)
}
