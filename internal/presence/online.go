package presence

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"photochat/internal/logging"
)

const (
	onlinePrefix = "online:"

	DefaultOnlineTTL = 5 * time.Minute
)

// OnlineTracker keeps a short-lived "online" flag per user. The flag expires
// on its own unless refreshed, so a crashed process never leaves users
// online forever.
type OnlineTracker struct {
	db     *badger.DB
	ttl    time.Duration
	logger *zap.Logger
}

// NewOnlineTracker opens an in-memory flag store. A non-positive ttl uses
// DefaultOnlineTTL.
func NewOnlineTracker(ttl time.Duration, logger *zap.Logger) (*OnlineTracker, error) {
	if ttl <= 0 {
		ttl = DefaultOnlineTTL
	}

	opts := badger.DefaultOptions("").
		WithInMemory(true).
		WithLogger(logging.NewBadgerLogger(logger))

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open online tracker: %w", err)
	}

	return &OnlineTracker{db: db, ttl: ttl, logger: logger}, nil
}

func onlineKey(userID int64) []byte {
	return []byte(onlinePrefix + strconv.FormatInt(userID, 10))
}

// MarkOnline sets or refreshes the flag for userID.
func (t *OnlineTracker) MarkOnline(userID int64) {
	err := t.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(onlineKey(userID), []byte("1")).WithTTL(t.ttl))
	})
	if err != nil {
		t.logger.Warn("failed to mark user online", zap.Int64("user_id", userID), zap.Error(err))
	}
}

// IsOnline reports whether the flag for userID is set and unexpired.
func (t *OnlineTracker) IsOnline(userID int64) bool {
	err := t.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(onlineKey(userID))
		return err
	})
	if err == nil {
		return true
	}
	if !errors.Is(err, badger.ErrKeyNotFound) {
		t.logger.Warn("failed to read online flag", zap.Int64("user_id", userID), zap.Error(err))
	}
	return false
}

func (t *OnlineTracker) TTL() time.Duration {
	return t.ttl
}

func (t *OnlineTracker) Close() error {
	return t.db.Close()
}
