package repo

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"photochat/internal/logging"
	"photochat/internal/model"
)

const (
	messagePrefix = "msg:"
	userPrefix    = "user:"
	sequenceKey   = "seq:" + messageSequence

	sequenceBandwidth = 128
)

// BadgerStore is an embedded implementation of MessageRepository and
// UserRepository for single-node deployments and tests.
//
// Keys are "msg:{id padded to 20 digits}" and "user:{id padded to 20 digits}",
// values are BSON documents so both drivers share the same field tags.
type BadgerStore struct {
	db     *badger.DB
	seq    *badger.Sequence
	logger *zap.Logger
}

// OpenBadgerStore opens a store at path. An empty path opens an in-memory store.
func OpenBadgerStore(path string, logger *zap.Logger) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(logging.NewBadgerLogger(logger))
	if path == "" {
		opts = opts.WithInMemory(true)
	}

	bdb, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger store: %w", err)
	}

	seq, err := bdb.GetSequence([]byte(sequenceKey), sequenceBandwidth)
	if err != nil {
		_ = bdb.Close()
		return nil, fmt.Errorf("open message sequence: %w", err)
	}

	return &BadgerStore{db: bdb, seq: seq, logger: logger}, nil
}

// Close releases the id lease and closes the database.
func (s *BadgerStore) Close() error {
	err := s.seq.Release()
	return errors.Join(err, s.db.Close())
}

func messageKey(id int64) []byte {
	return []byte(fmt.Sprintf("%s%020d", messagePrefix, id))
}

func userKey(id int64) []byte {
	return []byte(fmt.Sprintf("%s%020d", userPrefix, id))
}

// -----------------------------------------------------------------------------
// Users
// -----------------------------------------------------------------------------

// PutUser stores or replaces a user record.
func (s *BadgerStore) PutUser(_ context.Context, user model.User) error {
	raw, err := bson.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(userKey(user.ID), raw)
	})
}

func (s *BadgerStore) GetUser(_ context.Context, id int64) (*model.User, error) {
	var user *model.User
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			user = &model.User{}
			return bson.Unmarshal(val, user)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// -----------------------------------------------------------------------------
// Messages
// -----------------------------------------------------------------------------

func (s *BadgerStore) InsertMessage(_ context.Context, msg *model.ChatMessage) error {
	if msg == nil {
		return ErrInvalidMessage
	}

	next, err := s.seq.Next()
	if err != nil {
		return fmt.Errorf("allocate message id: %w", err)
	}
	msg.ID = int64(next) + 1

	raw, err := bson.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(messageKey(msg.ID), raw)
	}); err != nil {
		return fmt.Errorf("insert message failed: %w", err)
	}

	s.logger.Debug("message inserted",
		zap.Int64("message_id", msg.ID),
		zap.Int64("sender_id", msg.SenderID),
		zap.Int64("receiver_id", msg.ReceiverID),
	)
	return nil
}

func (s *BadgerStore) GetMessage(_ context.Context, id int64) (*model.ChatMessage, error) {
	var msg *model.ChatMessage
	err := s.db.View(func(txn *badger.Txn) error {
		found, err := getMessage(txn, id)
		msg = found
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get message: %w", err)
	}
	return msg, nil
}

func (s *BadgerStore) MarkRead(ctx context.Context, id, receiverID int64, at time.Time) (bool, error) {
	n, err := s.MarkManyRead(ctx, []int64{id}, receiverID, at)
	return n > 0, err
}

func (s *BadgerStore) MarkManyRead(_ context.Context, ids []int64, receiverID int64, at time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	var updated int64
	err := s.db.Update(func(txn *badger.Txn) error {
		updated = 0
		for _, id := range ids {
			msg, err := getMessage(txn, id)
			if err != nil {
				return err
			}
			if msg == nil || msg.ReceiverID != receiverID || msg.IsRead {
				continue
			}
			msg.IsRead = true
			msg.ReadAt = lo.ToPtr(at)
			raw, err := bson.Marshal(msg)
			if err != nil {
				return err
			}
			if err := txn.Set(messageKey(id), raw); err != nil {
				return err
			}
			updated++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("mark messages read failed: %w", err)
	}
	return updated, nil
}

func (s *BadgerStore) ListForUser(_ context.Context, userID int64) ([]model.ChatMessage, error) {
	if userID <= 0 {
		return nil, ErrInvalidUserID
	}
	return s.scan(func(m *model.ChatMessage) bool {
		return m.SenderID == userID || m.ReceiverID == userID
	})
}

func (s *BadgerStore) ListBetween(_ context.Context, a, b int64, skip, limit int64) ([]model.ChatMessage, error) {
	msgs, err := s.scan(func(m *model.ChatMessage) bool {
		return (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a)
	})
	if err != nil {
		return nil, err
	}
	end := len(msgs)
	if limit > 0 {
		end = int(skip + limit)
	}
	return lo.Slice(msgs, int(skip), end), nil
}

func (s *BadgerStore) CountUnread(_ context.Context, senderID, receiverID int64) (int64, error) {
	msgs, err := s.scan(func(m *model.ChatMessage) bool {
		return m.SenderID == senderID && m.ReceiverID == receiverID && !m.IsRead
	})
	if err != nil {
		return 0, err
	}
	return int64(len(msgs)), nil
}

func (s *BadgerStore) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	expired, err := s.scan(func(m *model.ChatMessage) bool {
		return m.CreatedAt.Before(cutoff)
	})
	if err != nil {
		return 0, err
	}
	if len(expired) == 0 {
		return 0, nil
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, m := range expired {
		if err := wb.Delete(messageKey(m.ID)); err != nil {
			return 0, fmt.Errorf("delete expired messages: %w", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, fmt.Errorf("delete expired messages: %w", err)
	}
	return int64(len(expired)), nil
}

// scan walks every message and returns the matches newest first.
func (s *BadgerStore) scan(match func(*model.ChatMessage) bool) ([]model.ChatMessage, error) {
	out := make([]model.ChatMessage, 0)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(messagePrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var msg model.ChatMessage
			if err := it.Item().Value(func(val []byte) error {
				return bson.Unmarshal(val, &msg)
			}); err != nil {
				return err
			}
			if match(&msg) {
				out = append(out, msg)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan messages: %w", err)
	}

	slices.SortFunc(out, func(x, y model.ChatMessage) int {
		if c := y.CreatedAt.Compare(x.CreatedAt); c != 0 {
			return c
		}
		switch {
		case x.ID > y.ID:
			return -1
		case x.ID < y.ID:
			return 1
		default:
			return 0
		}
	})
	return out, nil
}

func getMessage(txn *badger.Txn, id int64) (*model.ChatMessage, error) {
	item, err := txn.Get(messageKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	msg := &model.ChatMessage{}
	if err := item.Value(func(val []byte) error {
		return bson.Unmarshal(val, msg)
	}); err != nil {
		return nil, err
	}
	return msg, nil
}
