//go:generate go run go.uber.org/mock/mockgen -source=message_repository.go -destination=mocks/mock_message_repository.go -package=mocks
package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"photochat/internal/db"
	"photochat/internal/model"
)

var (
	ErrInvalidMessage   = errors.New("invalid message: message cannot be nil")
	ErrInvalidUserID    = errors.New("invalid user ID: must be positive")
	ErrOperationTimeout = errors.New("operation timeout exceeded")
)

const (
	// Timeouts
	defaultWriteTimeout = 5 * time.Second
	defaultReadTimeout  = 30 * time.Second

	messageSequence = "chat_messages"
)

// MessageRepository is the durable record of chat messages. It holds no
// chat logic beyond persistence and queries.
type MessageRepository interface {
	// InsertMessage assigns msg.ID and stores the message.
	InsertMessage(ctx context.Context, msg *model.ChatMessage) error
	// GetMessage returns nil, nil when the message does not exist.
	GetMessage(ctx context.Context, id int64) (*model.ChatMessage, error)
	// MarkRead flips the read flag of one unread message addressed to
	// receiverID. It reports whether a write happened.
	MarkRead(ctx context.Context, id, receiverID int64, at time.Time) (bool, error)
	// MarkManyRead is MarkRead over a set of ids.
	MarkManyRead(ctx context.Context, ids []int64, receiverID int64, at time.Time) (int64, error)
	// ListForUser returns every message sent or received by userID, newest first.
	ListForUser(ctx context.Context, userID int64) ([]model.ChatMessage, error)
	// ListBetween returns one page of the conversation between a and b, newest first.
	ListBetween(ctx context.Context, a, b int64, skip, limit int64) ([]model.ChatMessage, error)
	// CountUnread counts unread messages from senderID to receiverID.
	CountUnread(ctx context.Context, senderID, receiverID int64) (int64, error)
	// DeleteOlderThan removes messages created before cutoff.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type messageRepository struct {
	mongoRepo *db.Repository[model.ChatMessage]
	sequence  *db.Sequence
	logger    *zap.Logger
}

func NewMessageRepository(mongoRepo *db.Repository[model.ChatMessage], sequence *db.Sequence, logger *zap.Logger) MessageRepository {
	return &messageRepository{
		mongoRepo: mongoRepo,
		sequence:  sequence,
		logger:    logger,
	}
}

// NewMongoMessageRepository wires the repository against a database.
func NewMongoMessageRepository(con *mongo.Database, messagesCollection, countersCollection string, logger *zap.Logger) MessageRepository {
	return NewMessageRepository(
		db.NewRepository[model.ChatMessage](con, messagesCollection),
		db.NewSequence(con, countersCollection, messageSequence),
		logger,
	)
}

// EnsureMessageIndexes creates the indexes the chat queries rely on.
func EnsureMessageIndexes(ctx context.Context, con *mongo.Database, messagesCollection string) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "sender_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "receiver_id", Value: 1}, {Key: "is_read", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: 1}}},
	}
	_, err := con.Collection(messagesCollection).Indexes().CreateMany(ctx, indexes, options.CreateIndexes())
	if err != nil {
		return fmt.Errorf("create message indexes: %w", err)
	}
	return nil
}

// -----------------------------------------------------------------------------
// InsertMessage
// -----------------------------------------------------------------------------

func (m *messageRepository) InsertMessage(ctx context.Context, msg *model.ChatMessage) error {
	if msg == nil {
		return ErrInvalidMessage
	}

	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	id, err := m.sequence.Next(ctx)
	if err != nil {
		m.logger.Error("failed to allocate message id", zap.Error(err))
		return m.handleError(err, "allocate message id")
	}
	msg.ID = id

	if _, err := m.mongoRepo.Create(ctx, *msg); err != nil {
		m.logger.Error("failed to insert message",
			zap.Int64("message_id", id),
			zap.Int64("sender_id", msg.SenderID),
			zap.Int64("receiver_id", msg.ReceiverID),
			zap.Error(err),
		)
		return m.handleError(err, "insert message")
	}

	m.logger.Debug("message inserted",
		zap.Int64("message_id", id),
		zap.Int64("sender_id", msg.SenderID),
		zap.Int64("receiver_id", msg.ReceiverID),
	)
	return nil
}

func (m *messageRepository) GetMessage(ctx context.Context, id int64) (*model.ChatMessage, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	msg, err := m.mongoRepo.FindByID(ctx, id)
	if err != nil {
		return nil, m.handleError(err, "get message")
	}
	return msg, nil
}

// -----------------------------------------------------------------------------
// Read state
// -----------------------------------------------------------------------------

func (m *messageRepository) MarkRead(ctx context.Context, id, receiverID int64, at time.Time) (bool, error) {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	filter := db.NewFilter().
		Eq("_id", id).
		Eq("receiver_id", receiverID).
		Eq("is_read", false).
		Build()

	result, err := m.mongoRepo.Update(ctx, filter, bson.M{"is_read": true, "read_at": at})
	if err != nil {
		return false, m.handleError(err, "mark message read")
	}
	return result.ModifiedCount > 0, nil
}

func (m *messageRepository) MarkManyRead(ctx context.Context, ids []int64, receiverID int64, at time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	filter := db.NewFilter().
		In("_id", ids).
		Eq("receiver_id", receiverID).
		Eq("is_read", false).
		Build()

	result, err := m.mongoRepo.UpdateMany(ctx, filter, bson.M{"is_read": true, "read_at": at})
	if err != nil {
		return 0, m.handleError(err, "mark messages read")
	}
	return result.ModifiedCount, nil
}

// -----------------------------------------------------------------------------
// Queries
// -----------------------------------------------------------------------------

func (m *messageRepository) ListForUser(ctx context.Context, userID int64) ([]model.ChatMessage, error) {
	if userID <= 0 {
		return nil, ErrInvalidUserID
	}

	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	filter := db.Involving("sender_id", "receiver_id", userID)
	msgs, err := m.mongoRepo.FindAll(ctx, filter, db.Newest("created_at"))
	if err != nil {
		return nil, m.handleError(err, "list user messages")
	}

	m.logger.Debug("user messages retrieved", zap.Int64("user_id", userID), zap.Int("count", len(msgs)))
	return msgs, nil
}

func (m *messageRepository) ListBetween(ctx context.Context, a, b int64, skip, limit int64) ([]model.ChatMessage, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	filter := db.Between("sender_id", "receiver_id", a, b)
	msgs, err := m.mongoRepo.FindPage(ctx, filter, db.PageParams{
		Skip:  skip,
		Limit: limit,
		Sort:  db.Newest("created_at"),
	})
	if err != nil {
		return nil, m.handleError(err, "list conversation")
	}

	m.logger.Debug("conversation page retrieved",
		zap.Int64("user_a", a),
		zap.Int64("user_b", b),
		zap.Int64("skip", skip),
		zap.Int64("limit", limit),
		zap.Int("count", len(msgs)),
	)
	return msgs, nil
}

func (m *messageRepository) CountUnread(ctx context.Context, senderID, receiverID int64) (int64, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	filter := db.NewFilter().
		Eq("sender_id", senderID).
		Eq("receiver_id", receiverID).
		Eq("is_read", false).
		Build()

	count, err := m.mongoRepo.Count(ctx, filter)
	if err != nil {
		return 0, m.handleError(err, "count unread")
	}
	return count, nil
}

func (m *messageRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	result, err := m.mongoRepo.DeleteMany(ctx, db.NewFilter().Lt("created_at", cutoff).Build())
	if err != nil {
		return 0, m.handleError(err, "delete expired messages")
	}
	return result.DeletedCount, nil
}

// -----------------------------------------------------------------------------
// Private Helper Methods
// -----------------------------------------------------------------------------

func ensureTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, hadDeadline := ctx.Deadline(); hadDeadline {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, timeout)
}

func (m *messageRepository) handleError(err error, op string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		m.logger.Error("operation timeout", zap.String("op", op))
		return fmt.Errorf("%s: %w", op, ErrOperationTimeout)
	}
	return fmt.Errorf("%s failed: %w", op, err)
}
