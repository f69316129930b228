package models

import (
	"time"

	"github.com/uptrace/bun"
)

type ParticipantType string

const (
	ParticipantStudent    ParticipantType = "student"
	ParticipantInstructor ParticipantType = "instructor"
)

type Participant struct {
	bun.BaseModel `bun:"table:participants,alias:p"`

	ID     string          `bun:"participant_id,pk" json:"id"`
	Name   string          `bun:"name,notnull" json:"name"`
	Avatar string          `bun:"avatar" json:"avatar"`
	Type   ParticipantType `bun:"type,notnull" json:"type"`
}

type ChannelKind string

const (
	ChannelDirect ChannelKind = "direct"
	ChannelRoom   ChannelKind = "room"
)

// Channel is either a direct conversation or a room. Both carry messages
// and a member roster.
type Channel struct {
	bun.BaseModel `bun:"table:channels"`

	ChannelID string      `bun:"channel_id,pk" json:"id"`
	Kind      ChannelKind `bun:"kind,notnull" json:"kind"`
	Title     string      `bun:"title" json:"title"`
	CreatedAt time.Time   `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

type ChannelMember struct {
	bun.BaseModel `bun:"table:channel_members"`

	ChannelID     string    `bun:"channel_id,pk" json:"channel_id"`
	ParticipantID string    `bun:"participant_id,pk" json:"participant_id"`
	JoinedAt      time.Time `bun:"joined_at,nullzero,notnull,default:current_timestamp" json:"joined_at"`
}

type Message struct {
	bun.BaseModel `bun:"table:messages"`

	MessageID  string    `bun:"message_id,pk" json:"id"`
	ChannelID  string    `bun:"channel_id,notnull" json:"channel_id"`
	SenderID   string    `bun:"sender_id,notnull" json:"sender_id"`
	Content    string    `bun:"content,notnull" json:"content"`
	MentionIDs []string  `bun:"mention_ids,type:jsonb" json:"mention_ids"`
	CreatedAt  time.Time `bun:"created_at,notnull" json:"created_at"`
}

// Segment is one piece of rendered message text.
type Segment struct {
	Type          string `json:"type"`
	Text          string `json:"text"`
	Valid         bool   `json:"valid,omitempty"`
	ParticipantID string `json:"participant_id,omitempty"`
}

const (
	SegmentText    = "text"
	SegmentMention = "mention"
)

type RenderedMessage struct {
	Message
	Segments []Segment `json:"segments"`
}

type ChatEventType string

const (
	ChatEventMessage     ChatEventType = "message"
	ChatEventTypingStart ChatEventType = "typing_start"
	ChatEventTypingStop  ChatEventType = "typing_stop"
)

// ChatEvent is pushed to channel subscribers and across instances.
type ChatEvent struct {
	Type      ChatEventType    `json:"type"`
	ChannelID string           `json:"channel_id"`
	UserID    string           `json:"user_id,omitempty"`
	Message   *RenderedMessage `json:"message,omitempty"`
	Origin    string           `json:"origin,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// MentionEvent is published once per mention of a participant.
type MentionEvent struct {
	MessageID     string    `json:"message_id"`
	ChannelID     string    `json:"channel_id"`
	SenderID      string    `json:"sender_id"`
	ParticipantID string    `json:"participant_id"`
	Excerpt       string    `json:"excerpt"`
	Timestamp     time.Time `json:"timestamp"`
}

type SendMessageRequest struct {
	Content string `json:"content" validate:"required,max=4000"`
}

type TypingRequest struct {
	Text string `json:"text"`
}

type SuggestRequest struct {
	Text   string `json:"text"`
	Cursor int    `json:"cursor" validate:"gte=0"`
}

type RenderRequest struct {
	Text string `json:"text"`
}
