package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"photochat/internal/apperror"
	"photochat/internal/event"
	"photochat/internal/model"
	"photochat/internal/repo"
)

// Forwarder pushes a frame to a user's live connection, if there is one.
type Forwarder interface {
	Forward(userID int64, ev event.Outbound) bool
}

// OnlineChecker answers whether a user has been seen recently.
type OnlineChecker interface {
	IsOnline(userID int64) bool
}

type ChatService interface {
	// SendMessage validates, persists and then forwards a message to the
	// receiver's live connection. Forwarding is best effort.
	SendMessage(ctx context.Context, senderID, receiverID int64, content string) (*model.ChatMessage, error)
	// SendLive is SendMessage for messages arriving on a live connection.
	// Rejected messages return (nil, nil); only store failures are errors.
	SendLive(ctx context.Context, senderID, receiverID int64, content string) (*model.ChatMessage, error)
	// Typing forwards a typing indicator. Nothing is stored.
	Typing(senderID, receiverID int64) bool
	// MarkRead marks a message read on behalf of its receiver and notifies
	// the sender. It reports whether the message changed state.
	MarkRead(ctx context.Context, readerID, messageID int64) (bool, error)
	ListConversations(ctx context.Context, viewerID int64) ([]model.ConversationSummary, error)
	GetHistory(ctx context.Context, viewerID, otherID int64, page model.HistoryPage) ([]model.ChatMessage, error)
	IsOnline(userID int64) bool
}

type chatService struct {
	messages repo.MessageRepository
	users    repo.UserRepository
	forward  Forwarder
	online   OnlineChecker
	validate *validator.Validate
	logger   *zap.Logger
	now      func() time.Time
}

func NewChatService(
	messages repo.MessageRepository,
	users repo.UserRepository,
	forward Forwarder,
	online OnlineChecker,
	logger *zap.Logger,
) ChatService {
	return &chatService{
		messages: messages,
		users:    users,
		forward:  forward,
		online:   online,
		validate: validator.New(),
		logger:   logger,
		now:      time.Now,
	}
}

// timestamp is truncated to the precision the stores keep.
func (s *chatService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

func (s *chatService) SendMessage(ctx context.Context, senderID, receiverID int64, content string) (*model.ChatMessage, error) {
	if err := s.validate.Struct(model.MessageCreate{Content: content}); err != nil {
		return nil, apperror.Wrap(apperror.KindInvalidArgument,
			fmt.Sprintf("Message content must be between %d and %d characters", model.MinContentLength, model.MaxContentLength), err)
	}

	receiver, err := s.users.GetUser(ctx, receiverID)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindInternal, "failed to load receiver", err)
	}
	if receiver == nil {
		return nil, apperror.NotFound("Receiver not found")
	}
	if senderID == receiverID {
		return nil, apperror.InvalidArgument("Cannot send message to yourself")
	}

	msg := &model.ChatMessage{
		Content:    content,
		SenderID:   senderID,
		ReceiverID: receiverID,
		CreatedAt:  s.timestamp(),
	}
	if err := s.messages.InsertMessage(ctx, msg); err != nil {
		return nil, apperror.Wrap(apperror.KindInternal, "failed to store message", err)
	}

	if !s.forward.Forward(receiverID, event.Message(msg)) {
		s.logger.Debug("message stored for offline receiver",
			zap.Int64("message_id", msg.ID),
			zap.Int64("receiver_id", receiverID))
	}

	return msg, nil
}

func (s *chatService) SendLive(ctx context.Context, senderID, receiverID int64, content string) (*model.ChatMessage, error) {
	msg, err := s.SendMessage(ctx, senderID, receiverID, content)
	if err == nil {
		return msg, nil
	}

	kind := apperror.KindOf(err)
	if kind == apperror.KindInvalidArgument || kind == apperror.KindNotFound {
		s.logger.Debug("live message dropped",
			zap.Int64("sender_id", senderID),
			zap.Int64("receiver_id", receiverID),
			zap.Error(err))
		return nil, nil
	}
	return nil, err
}

func (s *chatService) Typing(senderID, receiverID int64) bool {
	return s.forward.Forward(receiverID, event.Typing(senderID))
}

func (s *chatService) MarkRead(ctx context.Context, readerID, messageID int64) (bool, error) {
	msg, err := s.messages.GetMessage(ctx, messageID)
	if err != nil {
		return false, apperror.Wrap(apperror.KindInternal, "failed to load message", err)
	}
	if msg == nil || msg.ReceiverID != readerID || msg.IsRead {
		return false, nil
	}

	changed, err := s.messages.MarkRead(ctx, messageID, readerID, s.timestamp())
	if err != nil {
		return false, apperror.Wrap(apperror.KindInternal, "failed to mark message read", err)
	}
	if changed {
		s.forward.Forward(msg.SenderID, event.Read(messageID))
	}
	return changed, nil
}

func (s *chatService) ListConversations(ctx context.Context, viewerID int64) ([]model.ConversationSummary, error) {
	messages, err := s.messages.ListForUser(ctx, viewerID)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindInternal, "failed to list messages", err)
	}

	// Messages are newest first, so the first message seen per counterpart is the latest.
	latest := lo.UniqBy(messages, func(m model.ChatMessage) int64 {
		return m.Counterpart(viewerID)
	})

	summaries := make([]model.ConversationSummary, 0, len(latest))
	for _, msg := range latest {
		counterpartID := msg.Counterpart(viewerID)

		user, err := s.users.GetUser(ctx, counterpartID)
		if err != nil {
			return nil, apperror.Wrap(apperror.KindInternal, "failed to load user", err)
		}
		if user == nil {
			continue
		}

		unread, err := s.messages.CountUnread(ctx, counterpartID, viewerID)
		if err != nil {
			return nil, apperror.Wrap(apperror.KindInternal, "failed to count unread messages", err)
		}

		summaries = append(summaries, model.ConversationSummary{
			UserID:          user.ID,
			Username:        user.Username,
			ProfilePicture:  user.ProfilePicture,
			LastMessage:     lo.ToPtr(msg.Preview()),
			LastMessageTime: lo.ToPtr(msg.CreatedAt),
			UnreadCount:     unread,
		})
	}

	return summaries, nil
}

func (s *chatService) GetHistory(ctx context.Context, viewerID, otherID int64, page model.HistoryPage) ([]model.ChatMessage, error) {
	if err := s.validate.Struct(page); err != nil {
		return nil, apperror.Wrap(apperror.KindInvalidArgument,
			fmt.Sprintf("skip must be >= 0 and limit between 1 and %d", model.MaxHistoryLimit), err)
	}

	other, err := s.users.GetUser(ctx, otherID)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindInternal, "failed to load user", err)
	}
	if other == nil {
		return nil, apperror.NotFound("User not found")
	}

	messages, err := s.messages.ListBetween(ctx, viewerID, otherID, page.Skip, page.Limit)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindInternal, "failed to load conversation", err)
	}

	unread := lo.FilterMap(messages, func(m model.ChatMessage, _ int) (int64, bool) {
		return m.ID, m.ReceiverID == viewerID && !m.IsRead
	})
	if len(unread) > 0 {
		readAt := s.timestamp()
		if _, err := s.messages.MarkManyRead(ctx, unread, viewerID, readAt); err != nil {
			return nil, apperror.Wrap(apperror.KindInternal, "failed to mark messages read", err)
		}
		for i := range messages {
			if messages[i].ReceiverID == viewerID && !messages[i].IsRead {
				messages[i].IsRead = true
				messages[i].ReadAt = lo.ToPtr(readAt)
			}
		}
	}

	slices.Reverse(messages)
	return messages, nil
}

func (s *chatService) IsOnline(userID int64) bool {
	return s.online.IsOnline(userID)
}

// IsSessionFatal reports whether an error from a live frame must end the session.
func IsSessionFatal(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	return apperror.KindOf(err) == apperror.KindInternal
}
