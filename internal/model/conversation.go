package model

import "time"

// ConversationSummary describes the latest state of a one-to-one conversation
// from the viewer's side. It is computed on every request.
type ConversationSummary struct {
	UserID          int64      `json:"user_id"`
	Username        string     `json:"username"`
	ProfilePicture  *string    `json:"profile_picture"`
	LastMessage     *string    `json:"last_message"`
	LastMessageTime *time.Time `json:"last_message_time"`
	UnreadCount     int64      `json:"unread_count"`
}

// PresenceStatus is returned by the presence endpoint.
type PresenceStatus struct {
	UserID int64 `json:"user_id"`
	Online bool  `json:"online"`
}
