// Package events defines the events a chat session reports to its host and
// the bus that carries them to the API, console, store and telemetry.
package events

import (
	"time"

	"github.com/energizer-project/bnetchat/internal/lookup"
	"github.com/energizer-project/bnetchat/internal/roster"
)

// EventType represents the type of event emitted through the EventBus.
type EventType string

const (
	// Session lifecycle
	EventStateChanged  EventType = "state_changed"
	EventSessionClosed EventType = "session_closed"

	// Channel presence
	EventChannelJoined EventType = "channel_joined"
	EventChannelLeft   EventType = "channel_left"
	EventUserJoined    EventType = "user_joined"
	EventUserLeft      EventType = "user_left"
	EventUserUpdated   EventType = "user_updated"
	EventJoinFailed    EventType = "join_failed"
	EventChannelList   EventType = "channel_list"

	// Messages
	EventChannelMessage  EventType = "channel_message"
	EventWhisperReceived EventType = "whisper_received"
	EventWhisperSent     EventType = "whisper_sent"
	EventEmote           EventType = "emote"
	EventNotice          EventType = "notice"

	// Friends and lookups
	EventFriendStatus    EventType = "friend_status"
	EventFriendsChanged  EventType = "friends_changed"
	EventLookupResult    EventType = "lookup_result"
	EventProfileForEdit  EventType = "profile_for_edit"
)

// AllEventTypes lists every type, for subscribers that want everything.
var AllEventTypes = []EventType{
	EventStateChanged, EventSessionClosed,
	EventChannelJoined, EventChannelLeft, EventUserJoined, EventUserLeft, EventUserUpdated,
	EventJoinFailed, EventChannelList,
	EventChannelMessage, EventWhisperReceived, EventWhisperSent, EventEmote, EventNotice,
	EventFriendStatus, EventFriendsChanged, EventLookupResult, EventProfileForEdit,
}

// Severity grades a notice.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

var severityStrings = map[Severity]string{
	SeverityInfo:    "info",
	SeverityWarning: "warning",
	SeverityError:   "error",
}

// String returns the string representation of Severity.
func (s Severity) String() string {
	if str, ok := severityStrings[s]; ok {
		return str
	}
	return "info"
}

// MarshalJSON serializes Severity as a JSON string (e.g. "warning").
func (s Severity) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// Event represents a single event in the system.
type Event struct {
	Type      EventType
	Source    string
	SessionID string
	Time      time.Time
	Payload   interface{}
}

// StatePayload accompanies EventStateChanged.
type StatePayload struct {
	SessionID string `json:"session_id"`
	State     string `json:"state"`
	Previous  string `json:"previous"`
	Account   string `json:"account,omitempty"`
}

// ChannelPayload accompanies EventChannelJoined and EventChannelLeft.
type ChannelPayload struct {
	SessionID string             `json:"session_id"`
	Channel   roster.ChannelInfo `json:"channel"`
}

// UserPayload accompanies the user presence events.
type UserPayload struct {
	SessionID string             `json:"session_id"`
	Channel   string             `json:"channel"`
	User      roster.ChannelUser `json:"user"`
}

// MessagePayload accompanies channel messages, whispers and emotes.
type MessagePayload struct {
	SessionID string `json:"session_id"`
	Channel   string `json:"channel,omitempty"`
	From      string `json:"from"`
	To        string `json:"to,omitempty"`
	Text      string `json:"text"`
	Flags     uint32 `json:"flags"`
}

// NoticePayload accompanies EventNotice: server information, errors and
// message boxes.
type NoticePayload struct {
	SessionID string   `json:"session_id"`
	Severity  Severity `json:"severity"`
	Caption   string   `json:"caption,omitempty"`
	Text      string   `json:"text"`
}

// FriendStatusPayload accompanies EventFriendStatus.
type FriendStatusPayload struct {
	SessionID string        `json:"session_id"`
	Index     int           `json:"index"`
	Friend    roster.Friend `json:"friend"`
}

// FriendsPayload accompanies EventFriendsChanged with the full list.
type FriendsPayload struct {
	SessionID string          `json:"session_id"`
	Friends   []roster.Friend `json:"friends"`
}

// LookupPayload accompanies EventLookupResult.
type LookupPayload struct {
	SessionID string        `json:"session_id"`
	Subject   string        `json:"subject"`
	Pairs     []lookup.Pair `json:"pairs"`
}

// JoinFailedPayload accompanies EventJoinFailed.
type JoinFailedPayload struct {
	SessionID string `json:"session_id"`
	Channel   string `json:"channel"`
	Reason    string `json:"reason"`
}

// ChannelListPayload accompanies EventChannelList.
type ChannelListPayload struct {
	SessionID string   `json:"session_id"`
	Channels  []string `json:"channels"`
}

// ProfilePayload accompanies EventProfileForEdit with the account's
// current profile fields.
type ProfilePayload struct {
	SessionID   string `json:"session_id"`
	Account     string `json:"account"`
	Sex         string `json:"sex"`
	Location    string `json:"location"`
	Description string `json:"description"`
}

// SessionClosedPayload accompanies EventSessionClosed. Class is one of
// "network", "desync", "authentication" or "closed".
type SessionClosedPayload struct {
	SessionID string `json:"session_id"`
	Class     string `json:"class"`
	Reason    string `json:"reason,omitempty"`
}
