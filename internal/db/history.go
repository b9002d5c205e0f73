package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/energizer-project/bnetchat/internal/events"
	"github.com/energizer-project/bnetchat/internal/lookup"
	"github.com/energizer-project/bnetchat/internal/roster"
	"github.com/energizer-project/bnetchat/internal/util"
)

// Message kinds stored in the messages table.
const (
	KindChannel = "channel"
	KindWhisper = "whisper_in"
	KindSent    = "whisper_out"
	KindEmote   = "emote"
	KindNotice  = "notice"
)

// timeLayout is fixed width so stored times compare correctly as text.
const timeLayout = "2006-01-02 15:04:05.000"

func dbTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// Message is one stored chat line.
type Message struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Kind      string    `json:"kind"`
	Channel   string    `json:"channel,omitempty"`
	From      string    `json:"from,omitempty"`
	To        string    `json:"to,omitempty"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// LookupRecord is the last answer stored for a looked-up user.
type LookupRecord struct {
	Subject   string        `json:"subject"`
	Pairs     []lookup.Pair `json:"pairs"`
	CreatedAt time.Time     `json:"created_at"`
}

// FriendRow is a friends list entry as last seen.
type FriendRow struct {
	Position int    `json:"position"`
	Account  string `json:"account"`
	Product  string `json:"product"`
	Location string `json:"location"`
	Online   bool   `json:"online"`
}

// HistoryStore records session events into SQLite.
type HistoryStore struct {
	db     *Database
	logger zerolog.Logger
}

// NewHistoryStore opens the history database at dbPath and migrates it.
func NewHistoryStore(dbPath string) (*HistoryStore, error) {
	database, err := NewDatabase(dbPath)
	if err != nil {
		return nil, err
	}

	hs := &HistoryStore{
		db:     database,
		logger: util.ComponentLogger("history"),
	}
	if err := hs.migrate(); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to migrate history database: %w", err)
	}
	return hs, nil
}

// Close closes the underlying database.
func (hs *HistoryStore) Close() error {
	return hs.db.Close()
}

// historySchema lists the schema steps in order. Append; never edit a
// released step.
var historySchema = []string{
	`CREATE TABLE messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		channel TEXT NOT NULL DEFAULT '',
		sender TEXT NOT NULL DEFAULT '',
		recipient TEXT NOT NULL DEFAULT '',
		text TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX idx_messages_channel ON messages(channel);
	CREATE INDEX idx_messages_created ON messages(created_at);`,

	`CREATE TABLE lookups (
		subject TEXT PRIMARY KEY,
		pairs TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);`,

	`CREATE TABLE friends (
		position INTEGER PRIMARY KEY,
		account TEXT NOT NULL,
		product TEXT NOT NULL DEFAULT '',
		location TEXT NOT NULL DEFAULT '',
		online INTEGER NOT NULL DEFAULT 0
	);`,
}

func (hs *HistoryStore) migrate() error {
	version, err := hs.db.Migrate(historySchema)
	if err != nil {
		return err
	}
	hs.logger.Debug().Int("version", version).Str("path", hs.db.Path()).Msg("history schema ready")
	return nil
}

// Register subscribes the store to the events it records.
func (hs *HistoryStore) Register(bus *events.EventBus) {
	bus.Subscribe("history", hs.handle,
		events.EventChannelMessage,
		events.EventWhisperReceived,
		events.EventWhisperSent,
		events.EventEmote,
		events.EventNotice,
		events.EventLookupResult,
		events.EventFriendsChanged,
	)
}

func (hs *HistoryStore) handle(_ context.Context, event events.Event) error {
	at := event.Time
	if at.IsZero() {
		at = time.Now()
	}

	switch p := event.Payload.(type) {
	case events.MessagePayload:
		kind := KindChannel
		switch event.Type {
		case events.EventWhisperReceived:
			kind = KindWhisper
		case events.EventWhisperSent:
			kind = KindSent
		case events.EventEmote:
			kind = KindEmote
		}
		return hs.RecordMessage(Message{
			SessionID: p.SessionID,
			Kind:      kind,
			Channel:   p.Channel,
			From:      p.From,
			To:        p.To,
			Text:      p.Text,
			CreatedAt: at,
		})
	case events.NoticePayload:
		return hs.RecordMessage(Message{
			SessionID: p.SessionID,
			Kind:      KindNotice,
			From:      p.Caption,
			Text:      p.Text,
			CreatedAt: at,
		})
	case events.LookupPayload:
		return hs.RecordLookup(p.Subject, p.Pairs, at)
	case events.FriendsPayload:
		return hs.SaveFriends(p.Friends)
	}
	return nil
}

// RecordMessage stores one chat line.
func (hs *HistoryStore) RecordMessage(m Message) error {
	_, err := hs.db.Exec(
		`INSERT INTO messages (session_id, kind, channel, sender, recipient, text, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.SessionID, m.Kind, m.Channel, m.From, m.To, m.Text, dbTime(m.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to record message: %w", err)
	}
	return nil
}

// RecentMessages returns up to limit of the newest messages, oldest first.
// An empty channel matches every message.
func (hs *HistoryStore) RecentMessages(channel string, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := hs.db.Query(
		`SELECT id, session_id, kind, channel, sender, recipient, text, created_at
		 FROM messages
		 WHERE ? = '' OR channel = ?
		 ORDER BY id DESC LIMIT ?`,
		channel, channel, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Kind, &m.Channel, &m.From, &m.To, &m.Text, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// PruneMessages deletes messages stored before cutoff and returns how many
// were removed.
func (hs *HistoryStore) PruneMessages(cutoff time.Time) (int64, error) {
	res, err := hs.db.Exec("DELETE FROM messages WHERE created_at < ?", dbTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("failed to prune messages: %w", err)
	}
	return res.RowsAffected()
}

// RecordLookup replaces the stored answer for subject.
func (hs *HistoryStore) RecordLookup(subject string, pairs []lookup.Pair, at time.Time) error {
	data, err := json.Marshal(pairs)
	if err != nil {
		return fmt.Errorf("failed to marshal lookup pairs: %w", err)
	}
	_, err = hs.db.Exec(
		`INSERT INTO lookups (subject, pairs, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(subject) DO UPDATE SET pairs = excluded.pairs, created_at = excluded.created_at`,
		roster.Normalize(subject), string(data), dbTime(at))
	if err != nil {
		return fmt.Errorf("failed to record lookup: %w", err)
	}
	return nil
}

// LastLookup returns the stored answer for subject.
func (hs *HistoryStore) LastLookup(subject string) (*LookupRecord, error) {
	rows, err := hs.db.Query(
		`SELECT subject, pairs, created_at FROM lookups WHERE subject = ?`,
		roster.Normalize(subject))
	if err != nil {
		return nil, fmt.Errorf("failed to query lookup: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, sql.ErrNoRows
	}

	var (
		rec  LookupRecord
		data string
	)
	if err := rows.Scan(&rec.Subject, &data, &rec.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(data), &rec.Pairs); err != nil {
		return nil, fmt.Errorf("corrupt lookup record for %s: %w", subject, err)
	}
	return &rec, nil
}

// SaveFriends replaces the stored friends list.
func (hs *HistoryStore) SaveFriends(friends []roster.Friend) error {
	return hs.db.Transaction(func(tx *sql.Tx) error {
		if _, err := tx.Exec("DELETE FROM friends"); err != nil {
			return err
		}
		for i, f := range friends {
			product := ""
			if f.Product != 0 {
				product = f.Product.Name()
			}
			_, err := tx.Exec(
				"INSERT INTO friends (position, account, product, location, online) VALUES (?, ?, ?, ?, ?)",
				i, f.Account, product, f.LocationText(), f.Online())
			if err != nil {
				return fmt.Errorf("failed to store friend %s: %w", f.Account, err)
			}
		}
		return nil
	})
}

// Friends returns the stored friends list in position order.
func (hs *HistoryStore) Friends() ([]FriendRow, error) {
	rows, err := hs.db.Query("SELECT position, account, product, location, online FROM friends ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("failed to query friends: %w", err)
	}
	defer rows.Close()

	var out []FriendRow
	for rows.Next() {
		var f FriendRow
		if err := rows.Scan(&f.Position, &f.Account, &f.Product, &f.Location, &f.Online); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
