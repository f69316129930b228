package chat

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"ms-marketplace/internal/apperrors"
	"ms-marketplace/internal/chat/mention"
	"ms-marketplace/internal/chat/typing"
	"ms-marketplace/internal/logger"
	"ms-marketplace/internal/models"

	"github.com/google/uuid"
)

const maxMessageLength = 4000

type DBLayer interface {
	GetChannel(ctx context.Context, channelID string) (*models.Channel, error)
	GetRoster(ctx context.Context, channelID string) ([]models.Participant, error)
	IsMember(ctx context.Context, channelID, participantID string) (bool, error)
	CreateMessage(ctx context.Context, msg models.Message) error
	ListMessages(ctx context.Context, channelID string, limit int) ([]models.Message, error)
}

type EventSink interface {
	typing.Notifier
	Broadcast(ctx context.Context, event models.ChatEvent) error
}

type KafkaPublisher interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

// Suggestion is the mention popup state for a given text and cursor.
type Suggestion struct {
	Active       bool                 `json:"active"`
	Start        int                  `json:"start"`
	Term         string               `json:"term"`
	Participants []models.Participant `json:"participants"`
}

type Service struct {
	DB           DBLayer
	Events       EventSink
	Kafka        KafkaPublisher
	Typing       *typing.Debouncer
	MentionTopic string
	Logger       *logger.Logger

	now   func() time.Time
	newID func() string
}

func NewService(store DBLayer, events EventSink, publisher KafkaPublisher, mentionTopic string, typingIdle time.Duration, log *logger.Logger) *Service {
	return &Service{
		DB:           store,
		Events:       events,
		Kafka:        publisher,
		Typing:       typing.NewDebouncer(events, typingIdle, typing.WithLogger(log)),
		MentionTopic: mentionTopic,
		Logger:       log,
		now:          func() time.Time { return time.Now().UTC() },
		newID:        func() string { return uuid.New().String() },
	}
}

// Roster returns the participants of a channel.
func (s *Service) Roster(ctx context.Context, channelID string) ([]models.Participant, error) {
	if _, err := s.DB.GetChannel(ctx, channelID); err != nil {
		return nil, err
	}
	return s.DB.GetRoster(ctx, channelID)
}

// Suggest detects the active mention trigger and filters the roster by its
// term. Only members of the channel see its roster.
func (s *Service) Suggest(ctx context.Context, channelID, userID, text string, cursor int) (*Suggestion, error) {
	if err := s.requireMember(ctx, channelID, userID); err != nil {
		return nil, err
	}
	roster, err := s.DB.GetRoster(ctx, channelID)
	if err != nil {
		return nil, err
	}

	trigger := mention.DetectTrigger(text, cursor)
	suggestion := &Suggestion{
		Active:       trigger.Active,
		Start:        trigger.Start,
		Term:         trigger.Term,
		Participants: []models.Participant{},
	}
	if trigger.Active {
		suggestion.Participants = mention.FilterParticipants(roster, trigger.Term)
	}
	return suggestion, nil
}

// Render splits text into plain and mention segments against the channel roster.
func (s *Service) Render(ctx context.Context, channelID, userID, text string) ([]models.Segment, error) {
	if err := s.requireMember(ctx, channelID, userID); err != nil {
		return nil, err
	}
	roster, err := s.DB.GetRoster(ctx, channelID)
	if err != nil {
		return nil, err
	}
	return mention.RenderHighlighted(text, roster), nil
}

// SendMessage stores a message with its resolved mentions, ends the
// sender's typing session and fans the message out. One mention event is
// published per mention, duplicates included.
func (s *Service) SendMessage(ctx context.Context, channelID, senderID, content string) (*models.RenderedMessage, error) {
	if strings.TrimSpace(content) == "" {
		return nil, apperrors.Validation("empty_message", "Message cannot be empty")
	}
	if utf8.RuneCountInString(content) > maxMessageLength {
		return nil, apperrors.Validation("message_too_long", fmt.Sprintf("Messages are limited to %d characters", maxMessageLength))
	}
	if err := s.requireMember(ctx, channelID, senderID); err != nil {
		return nil, err
	}

	roster, err := s.DB.GetRoster(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}

	msg := models.Message{
		MessageID:  s.newID(),
		ChannelID:  channelID,
		SenderID:   senderID,
		Content:    content,
		MentionIDs: mention.ExtractMentions(content, roster),
		CreatedAt:  s.now(),
	}
	if err := s.DB.CreateMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("store message: %w", err)
	}
	s.Logger.LogChat("MESSAGE_SENT", channelID, fmt.Sprintf("message=%s sender=%s mentions=%d", msg.MessageID, senderID, len(msg.MentionIDs)))

	s.Typing.Stop(ctx, channelID, senderID)

	rendered := &models.RenderedMessage{Message: msg, Segments: mention.RenderHighlighted(content, roster)}
	// the message is stored; delivery failures are logged, not returned
	if err := s.Events.Broadcast(ctx, models.ChatEvent{
		Type:      models.ChatEventMessage,
		ChannelID: channelID,
		UserID:    senderID,
		Message:   rendered,
		Timestamp: msg.CreatedAt,
	}); err != nil {
		s.Logger.Warn("CHAT", fmt.Sprintf("Broadcast of message %s failed: %v", msg.MessageID, err))
	}

	s.publishMentions(ctx, msg)
	return rendered, nil
}

func (s *Service) publishMentions(ctx context.Context, msg models.Message) {
	excerpt := msg.Content
	if utf8.RuneCountInString(excerpt) > 140 {
		excerpt = string([]rune(excerpt)[:140])
	}

	for _, participantID := range msg.MentionIDs {
		event := models.MentionEvent{
			MessageID:     msg.MessageID,
			ChannelID:     msg.ChannelID,
			SenderID:      msg.SenderID,
			ParticipantID: participantID,
			Excerpt:       excerpt,
			Timestamp:     msg.CreatedAt,
		}
		if err := s.Kafka.Publish(ctx, s.MentionTopic, participantID, event); err != nil {
			s.Logger.Error("CHAT", fmt.Sprintf("Failed to publish mention of %s in %s: %v", participantID, msg.MessageID, err))
		}
	}
}

// Messages returns the latest messages of a channel with rendered segments.
func (s *Service) Messages(ctx context.Context, channelID, userID string, limit int) ([]models.RenderedMessage, error) {
	if err := s.requireMember(ctx, channelID, userID); err != nil {
		return nil, err
	}

	roster, err := s.DB.GetRoster(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}
	messages, err := s.DB.ListMessages(ctx, channelID, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	rendered := make([]models.RenderedMessage, len(messages))
	for i, m := range messages {
		rendered[i] = models.RenderedMessage{Message: m, Segments: mention.RenderHighlighted(m.Content, roster)}
	}
	return rendered, nil
}

// Keystroke feeds the typing debouncer with the current input text.
func (s *Service) Keystroke(ctx context.Context, channelID, userID, text string) error {
	if err := s.requireMember(ctx, channelID, userID); err != nil {
		return err
	}
	return s.Typing.Keystroke(ctx, channelID, userID, text)
}

// StopTyping ends the user's typing session, if any.
func (s *Service) StopTyping(ctx context.Context, channelID, userID string) bool {
	return s.Typing.Stop(ctx, channelID, userID)
}

// Close ends every open typing session.
func (s *Service) Close(ctx context.Context) {
	s.Typing.Close(ctx)
}

// CanAccess reports whether a user may read a channel's stream.
func (s *Service) CanAccess(ctx context.Context, channelID, userID string) error {
	return s.requireMember(ctx, channelID, userID)
}

func (s *Service) requireMember(ctx context.Context, channelID, userID string) error {
	if _, err := s.DB.GetChannel(ctx, channelID); err != nil {
		return err
	}
	ok, err := s.DB.IsMember(ctx, channelID, userID)
	if err != nil {
		return fmt.Errorf("check membership: %w", err)
	}
	if !ok {
		return apperrors.Forbidden("not_a_member", "You are not a member of this channel")
	}
	return nil
}
