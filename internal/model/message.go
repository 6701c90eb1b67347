package model

import (
	"time"
	"unicode/utf8"
)

const (
	MinContentLength = 1
	MaxContentLength = 5000

	// previewLength bounds the last-message text shown in a conversation list.
	previewLength = 50
)

// ChatMessage is a direct message between two users.
type ChatMessage struct {
	ID                  int64      `json:"id" bson:"_id"`
	Content             string     `json:"content" bson:"content"`
	SenderID            int64      `json:"sender_id" bson:"sender_id"`
	ReceiverID          int64      `json:"receiver_id" bson:"receiver_id"`
	IsRead              bool       `json:"is_read" bson:"is_read"`
	IsDeletedBySender   bool       `json:"-" bson:"is_deleted_by_sender"`
	IsDeletedByReceiver bool       `json:"-" bson:"is_deleted_by_receiver"`
	CreatedAt           time.Time  `json:"created_at" bson:"created_at"`
	ReadAt              *time.Time `json:"read_at" bson:"read_at,omitempty"`
}

// Counterpart returns the other participant of the message as seen by viewerID.
func (m *ChatMessage) Counterpart(viewerID int64) int64 {
	if m.SenderID == viewerID {
		return m.ReceiverID
	}
	return m.SenderID
}

// Preview returns the first runes of the content for conversation lists.
func (m *ChatMessage) Preview() string {
	if utf8.RuneCountInString(m.Content) <= previewLength {
		return m.Content
	}
	return string([]rune(m.Content)[:previewLength])
}

// MessageCreate is the REST payload for sending a message.
type MessageCreate struct {
	Content string `json:"content" validate:"required,min=1,max=5000"`
}

const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 100
)

// HistoryPage selects a window of a conversation, counted from the newest message.
type HistoryPage struct {
	Skip  int64 `form:"skip" validate:"gte=0"`
	Limit int64 `form:"limit" validate:"gte=1,lte=100"`
}
