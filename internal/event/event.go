package event

import (
	"encoding/json"
	"time"

	"photochat/internal/model"
)

// Frame types shared by both directions of the live connection.
const (
	TypeMessage = "message"
	TypeTyping  = "typing"
	TypeRead    = "read"
	TypeSent    = "sent"
)

// Inbound is a decoded client frame. The concrete type is one of
// MessageFrame, TypingFrame, ReadFrame or Ignored.
type Inbound interface {
	inbound()
}

// MessageFrame asks the server to persist and deliver a message.
type MessageFrame struct {
	ReceiverID int64
	Content    string
}

// TypingFrame notifies the receiver that the sender is typing.
type TypingFrame struct {
	ReceiverID int64
}

// ReadFrame acknowledges that the session user has read a message.
type ReadFrame struct {
	MessageID int64
}

// Ignored is any frame that is dropped without a reply.
type Ignored struct {
	Type   string
	Reason string
}

func (MessageFrame) inbound() {}
func (TypingFrame) inbound()  {}
func (ReadFrame) inbound()    {}
func (Ignored) inbound()      {}

// wireFrame is the JSON shape of inbound frames.
type wireFrame struct {
	Type       string `json:"type"`
	ReceiverID *int64 `json:"receiver_id"`
	Content    string `json:"content"`
	MessageID  *int64 `json:"message_id"`
}

// Decode parses one inbound frame. It never fails: anything that cannot be
// acted upon comes back as Ignored.
func Decode(data []byte) Inbound {
	var w wireFrame
	if err := json.Unmarshal(data, &w); err != nil {
		return Ignored{Reason: "malformed"}
	}

	switch w.Type {
	case TypeMessage:
		if w.ReceiverID == nil || *w.ReceiverID == 0 || w.Content == "" {
			return Ignored{Type: w.Type, Reason: "missing receiver_id or content"}
		}
		return MessageFrame{ReceiverID: *w.ReceiverID, Content: w.Content}
	case TypeTyping:
		if w.ReceiverID == nil || *w.ReceiverID == 0 {
			return Ignored{Type: w.Type, Reason: "missing receiver_id"}
		}
		return TypingFrame{ReceiverID: *w.ReceiverID}
	case TypeRead:
		if w.MessageID == nil || *w.MessageID == 0 {
			return Ignored{Type: w.Type, Reason: "missing message_id"}
		}
		return ReadFrame{MessageID: *w.MessageID}
	default:
		return Ignored{Type: w.Type, Reason: "unknown type"}
	}
}

// Outbound is a server frame. Unused fields are omitted on the wire.
type Outbound struct {
	Type       string     `json:"type"`
	ID         int64      `json:"id,omitempty"`
	ReceiverID int64      `json:"receiver_id,omitempty"`
	Content    string     `json:"content,omitempty"`
	SenderID   int64      `json:"sender_id,omitempty"`
	CreatedAt  *time.Time `json:"created_at,omitempty"`
	MessageID  int64      `json:"message_id,omitempty"`
}

// Sent confirms to the sender that a message was persisted.
func Sent(id, receiverID int64) Outbound {
	return Outbound{Type: TypeSent, ID: id, ReceiverID: receiverID}
}

// Message delivers a persisted message to its receiver.
func Message(msg *model.ChatMessage) Outbound {
	createdAt := msg.CreatedAt
	return Outbound{
		Type:      TypeMessage,
		ID:        msg.ID,
		Content:   msg.Content,
		SenderID:  msg.SenderID,
		CreatedAt: &createdAt,
	}
}

// Typing tells the receiver that senderID is typing.
func Typing(senderID int64) Outbound {
	return Outbound{Type: TypeTyping, SenderID: senderID}
}

// Read tells the original sender that a message has been read.
func Read(messageID int64) Outbound {
	return Outbound{Type: TypeRead, MessageID: messageID}
}
