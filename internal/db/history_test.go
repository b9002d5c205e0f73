package db

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/energizer-project/bnetchat/internal/events"
	"github.com/energizer-project/bnetchat/internal/lookup"
	"github.com/energizer-project/bnetchat/internal/protocol"
	"github.com/energizer-project/bnetchat/internal/roster"
)

func newStore(t *testing.T) *HistoryStore {
	t.Helper()
	hs, err := NewHistoryStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { hs.Close() })
	return hs
}

func TestHistoryRecordsMessageEvents(t *testing.T) {
	hs := newStore(t)
	ctx := context.Background()
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	evs := []events.Event{
		{Type: events.EventChannelMessage, Time: at, Payload: events.MessagePayload{SessionID: "s", Channel: "Chat", From: "alice", Text: "hello"}},
		{Type: events.EventWhisperReceived, Time: at, Payload: events.MessagePayload{SessionID: "s", From: "bob", Text: "psst"}},
		{Type: events.EventWhisperSent, Time: at, Payload: events.MessagePayload{SessionID: "s", To: "bob", Text: "hi back"}},
		{Type: events.EventEmote, Time: at, Payload: events.MessagePayload{SessionID: "s", Channel: "Chat", From: "alice", Text: "waves"}},
		{Type: events.EventNotice, Time: at, Payload: events.NoticePayload{SessionID: "s", Caption: "Welcome", Text: "Welcome to Battle.net!"}},
	}
	for _, ev := range evs {
		require.NoError(t, hs.handle(ctx, ev))
	}

	all, err := hs.RecentMessages("", 0)
	require.NoError(t, err)
	require.Len(t, all, 5)

	kinds := make([]string, len(all))
	for i, m := range all {
		kinds[i] = m.Kind
	}
	assert.Equal(t, []string{KindChannel, KindWhisper, KindSent, KindEmote, KindNotice}, kinds)
	assert.Equal(t, "bob", all[2].To)

	chat, err := hs.RecentMessages("Chat", 10)
	require.NoError(t, err)
	require.Len(t, chat, 2)
	assert.Equal(t, "hello", chat[0].Text)
}

func TestRecentMessagesLimitKeepsNewest(t *testing.T) {
	hs := newStore(t)
	for _, text := range []string{"one", "two", "three"} {
		require.NoError(t, hs.RecordMessage(Message{SessionID: "s", Kind: KindChannel, Channel: "Chat", Text: text, CreatedAt: time.Now()}))
	}

	got, err := hs.RecentMessages("Chat", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "two", got[0].Text)
	assert.Equal(t, "three", got[1].Text)
}

func TestLookupReplacedPerSubject(t *testing.T) {
	hs := newStore(t)
	at := time.Now()

	require.NoError(t, hs.RecordLookup("Alice", []lookup.Pair{{Label: "Location", Value: "Here"}}, at))
	require.NoError(t, hs.RecordLookup("alice", []lookup.Pair{{Label: "Location", Value: "There"}}, at.Add(time.Minute)))

	rec, err := hs.LastLookup("ALICE")
	require.NoError(t, err)
	require.Len(t, rec.Pairs, 1)
	assert.Equal(t, "There", rec.Pairs[0].Value)

	_, err = hs.LastLookup("nobody")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestSaveFriendsReplacesSnapshot(t *testing.T) {
	hs := newStore(t)

	first := []roster.Friend{
		{Account: "alice", Location: protocol.FriendLocationInChat, Product: protocol.ProductSTAR, LocationName: "Chat"},
		{Account: "bob", Location: protocol.FriendLocationOffline},
	}
	require.NoError(t, hs.handle(context.Background(), events.Event{
		Type:    events.EventFriendsChanged,
		Payload: events.FriendsPayload{Friends: first},
	}))

	rows, err := hs.Friends()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "alice", rows[0].Account)
	assert.Equal(t, "StarCraft", rows[0].Product)
	assert.True(t, rows[0].Online)
	assert.Equal(t, "", rows[1].Product)
	assert.False(t, rows[1].Online)

	require.NoError(t, hs.SaveFriends(first[1:]))
	rows, err = hs.Friends()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "bob", rows[0].Account)
}

func TestPruneMessages(t *testing.T) {
	hs := newStore(t)
	now := time.Now()

	require.NoError(t, hs.RecordMessage(Message{SessionID: "s", Kind: KindChannel, Text: "old", CreatedAt: now.Add(-48 * time.Hour)}))
	require.NoError(t, hs.RecordMessage(Message{SessionID: "s", Kind: KindChannel, Text: "new", CreatedAt: now}))

	n, err := hs.PruneMessages(now.Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	left, err := hs.RecentMessages("", 10)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "new", left[0].Text)
}

func TestReopenKeepsSchemaVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	hs, err := NewHistoryStore(path)
	require.NoError(t, err)
	require.NoError(t, hs.RecordMessage(Message{SessionID: "s", Kind: KindChannel, Text: "kept", CreatedAt: time.Now()}))
	require.NoError(t, hs.Close())

	hs, err = NewHistoryStore(path)
	require.NoError(t, err)
	defer hs.Close()

	version, err := hs.db.Migrate(historySchema)
	require.NoError(t, err)
	assert.Equal(t, len(historySchema), version)

	got, err := hs.RecentMessages("", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "kept", got[0].Text)
}
