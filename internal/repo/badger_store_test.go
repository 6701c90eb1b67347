package repo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"photochat/internal/model"
)

func newTestStore(t *testing.T) *BadgerStore {
	t.Helper()
	store, err := OpenBadgerStore("", zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func insert(t *testing.T, store *BadgerStore, from, to int64, content string, at time.Time) model.ChatMessage {
	t.Helper()
	msg := &model.ChatMessage{SenderID: from, ReceiverID: to, Content: content, CreatedAt: at}
	require.NoError(t, store.InsertMessage(context.Background(), msg))
	return *msg
}

func TestBadgerStore_InsertAssignsIncreasingIDs(t *testing.T) {
	req := require.New(t)
	store := newTestStore(t)
	at := time.Now().UTC().Truncate(time.Millisecond)

	first := insert(t, store, 1, 2, "hi", at)
	second := insert(t, store, 1, 2, "again", at)
	req.Equal(int64(1), first.ID)
	req.Greater(second.ID, first.ID)

	got, err := store.GetMessage(context.Background(), first.ID)
	req.NoError(err)
	req.Equal(first.Content, got.Content)
	req.True(at.Equal(got.CreatedAt))
	req.False(got.IsRead)
	req.Nil(got.ReadAt)

	missing, err := store.GetMessage(context.Background(), 999)
	req.NoError(err)
	req.Nil(missing)
}

func TestBadgerStore_ListOrdering(t *testing.T) {
	req := require.New(t)
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	m1 := insert(t, store, 1, 2, "a", base)
	m2 := insert(t, store, 2, 1, "b", base.Add(time.Minute))
	m3 := insert(t, store, 1, 3, "c", base.Add(2*time.Minute))
	m4 := insert(t, store, 1, 2, "d", base.Add(2*time.Minute)) // same instant as m3, larger id
	insert(t, store, 3, 4, "unrelated", base)

	all, err := store.ListForUser(ctx, 1)
	req.NoError(err)
	req.Equal([]int64{m4.ID, m3.ID, m2.ID, m1.ID}, ids(all))

	page, err := store.ListBetween(ctx, 2, 1, 0, 2)
	req.NoError(err)
	req.Equal([]int64{m4.ID, m2.ID}, ids(page))

	page, err = store.ListBetween(ctx, 1, 2, 2, 10)
	req.NoError(err)
	req.Equal([]int64{m1.ID}, ids(page))

	page, err = store.ListBetween(ctx, 1, 2, 10, 10)
	req.NoError(err)
	req.Empty(page)

	_, err = store.ListForUser(ctx, 0)
	req.ErrorIs(err, ErrInvalidUserID)
}

func TestBadgerStore_MarkReadIsConditional(t *testing.T) {
	req := require.New(t)
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	msg := insert(t, store, 1, 2, "hi", now)

	// wrong receiver
	ok, err := store.MarkRead(ctx, msg.ID, 1, now)
	req.NoError(err)
	req.False(ok)

	ok, err = store.MarkRead(ctx, msg.ID, 2, now)
	req.NoError(err)
	req.True(ok)

	ok, err = store.MarkRead(ctx, msg.ID, 2, now.Add(time.Hour))
	req.NoError(err)
	req.False(ok)

	got, err := store.GetMessage(ctx, msg.ID)
	req.NoError(err)
	req.True(got.IsRead)
	req.True(now.Equal(*got.ReadAt))

	ok, err = store.MarkRead(ctx, 12345, 2, now)
	req.NoError(err)
	req.False(ok)
}

func TestBadgerStore_CountUnreadAndMarkMany(t *testing.T) {
	req := require.New(t)
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	a := insert(t, store, 1, 2, "a", now)
	b := insert(t, store, 1, 2, "b", now)
	insert(t, store, 2, 1, "c", now)

	count, err := store.CountUnread(ctx, 1, 2)
	req.NoError(err)
	req.Equal(int64(2), count)

	n, err := store.MarkManyRead(ctx, []int64{a.ID, b.ID}, 2, now)
	req.NoError(err)
	req.Equal(int64(2), n)

	count, err = store.CountUnread(ctx, 1, 2)
	req.NoError(err)
	req.Zero(count)

	count, err = store.CountUnread(ctx, 2, 1)
	req.NoError(err)
	req.Equal(int64(1), count)
}

func TestBadgerStore_DeleteOlderThan(t *testing.T) {
	req := require.New(t)
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	old := insert(t, store, 1, 2, "old", now.Add(-400*24*time.Hour))
	fresh := insert(t, store, 1, 2, "fresh", now)

	deleted, err := store.DeleteOlderThan(ctx, now.Add(-365*24*time.Hour))
	req.NoError(err)
	req.Equal(int64(1), deleted)

	got, err := store.GetMessage(ctx, old.ID)
	req.NoError(err)
	req.Nil(got)

	got, err = store.GetMessage(ctx, fresh.ID)
	req.NoError(err)
	req.NotNil(got)

	deleted, err = store.DeleteOlderThan(ctx, now.Add(-365*24*time.Hour))
	req.NoError(err)
	req.Zero(deleted)
}

func TestBadgerStore_Users(t *testing.T) {
	req := require.New(t)
	store := newTestStore(t)
	ctx := context.Background()

	pic := "https://cdn.example.com/alice.png"
	req.NoError(store.PutUser(ctx, model.User{ID: 1, Username: "alice", ProfilePicture: &pic, IsActive: true, IsVerified: true}))

	user, err := store.GetUser(ctx, 1)
	req.NoError(err)
	req.Equal("alice", user.Username)
	req.Equal(pic, *user.ProfilePicture)
	req.True(user.IsActive)

	user, err = store.GetUser(ctx, 2)
	req.NoError(err)
	req.Nil(user)
}

func ids(msgs []model.ChatMessage) []int64 {
	out := make([]int64, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.ID)
	}
	return out
}
