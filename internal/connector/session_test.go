package connector

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/energizer-project/bnetchat/internal/auth"
	"github.com/energizer-project/bnetchat/internal/commands"
	"github.com/energizer-project/bnetchat/internal/config"
	"github.com/energizer-project/bnetchat/internal/events"
	"github.com/energizer-project/bnetchat/internal/lookup"
	"github.com/energizer-project/bnetchat/internal/network"
	"github.com/energizer-project/bnetchat/internal/protocol"
)

type recordingLink struct {
	mu     sync.Mutex
	kind   protocol.Kind
	frames [][]byte
	closed bool
}

func (l *recordingLink) Write(data []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.frames = append(l.frames, append([]byte(nil), data...))
	return nil
}

func (l *recordingLink) Pump(ctx context.Context, out chan<- protocol.Frame) error {
	<-ctx.Done()
	return nil
}

func (l *recordingLink) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}

func (l *recordingLink) LocalIPv4() uint32 { return 0x0100007F }

// ids returns the message id of every frame written, skipping the raw
// protocol byte.
func (l *recordingLink) ids() []byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []byte
	for _, f := range l.frames {
		switch {
		case l.kind == protocol.KindChat && len(f) >= protocol.ChatHeaderSize:
			out = append(out, f[1])
		case l.kind == protocol.KindRelay && len(f) >= protocol.RelayHeaderSize:
			out = append(out, f[2])
		}
	}
	return out
}

// commandsSent returns the text of every chat command written.
func (l *recordingLink) commandsSent() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for _, f := range l.frames {
		if len(f) > protocol.ChatHeaderSize && f[1] == protocol.SidChatCommand {
			out = append(out, string(bytes.TrimRight(f[protocol.ChatHeaderSize:], "\x00")))
		}
	}
	return out
}

func (l *recordingLink) reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.frames = nil
}

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Emit(_ context.Context, e events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) ofType(types ...events.EventType) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Event
	for _, e := range r.events {
		for _, t := range types {
			if e.Type == t {
				out = append(out, e)
			}
		}
	}
	return out
}

type stubKeys struct{}

func (stubKeys) DecodeKeys(_ context.Context, req auth.KeyRequest) ([]protocol.CDKeyBlock, error) {
	return make([]protocol.CDKeyBlock, len(req.Keys)), nil
}

type harness struct {
	s     *Session
	chat  *recordingLink
	relay *recordingLink
	rec   *recorder
}

func newHarness(t *testing.T, mutate func(cfg *config.Config)) *harness {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Account.Username = "someone"
	cfg.Account.Password = "secret"
	cfg.Account.CDKey = "1111-2222-3333"
	if mutate != nil {
		mutate(cfg)
	}

	rec := &recorder{}
	s, err := NewSession(cfg, rec, WithSessionID("test"), WithKeyDecoder(stubKeys{}))
	require.NoError(t, err)

	h := &harness{
		s:     s,
		chat:  &recordingLink{kind: protocol.KindChat},
		relay: &recordingLink{kind: protocol.KindRelay},
		rec:   rec,
	}
	s.chat = h.chat
	s.relay = NewRelayClient(h.relay, s.product)
	t.Cleanup(s.stopKeepalive)
	return h
}

func (h *harness) chatFrame(t *testing.T, id byte, b *protocol.PacketBuilder) {
	t.Helper()
	require.NoError(t, h.s.handleChatFrame(context.Background(), protocol.Frame{Kind: protocol.KindChat, ID: id, Payload: b.Build()}))
}

func (h *harness) relayFrame(t *testing.T, id byte, b *protocol.PacketBuilder) {
	t.Helper()
	require.NoError(t, h.s.handleRelayFrame(context.Background(), protocol.Frame{Kind: protocol.KindRelay, ID: id, Payload: b.Build()}))
}

func (h *harness) chatEvent(t *testing.T, eid, flags uint32, who, text string) {
	t.Helper()
	b := protocol.NewPacketBuilder().
		WriteUint32(eid).WriteUint32(flags).WriteUint32(25).
		WriteUint32(0).WriteUint32(0).WriteUint32(0).
		WriteNullString(who).WriteNullString(text)
	h.chatFrame(t, protocol.SidChatEvent, b)
}

func authInfo(logonType uint32) *protocol.PacketBuilder {
	return protocol.NewPacketBuilder().
		WriteUint32(logonType).WriteUint32(0xCAFE).WriteUint32(0).
		WriteUint64(0).WriteNullString("ver-IX86-1.mpq").WriteNullString("A=1 B=2 C=3 4 A=A+S")
}

func versionCheckOK() *protocol.PacketBuilder {
	return protocol.NewPacketBuilder().
		WriteUint32(1).WriteUint32(0x01100101).WriteUint32(0x12345678).
		WriteNullString("StarCraft.exe 01/01/09 00:00:00 1000").WriteUint32(0).WriteUint32(0xD3)
}

func result(code uint32) *protocol.PacketBuilder {
	return protocol.NewPacketBuilder().WriteUint32(code)
}

func authCheck(code uint32, info string) *protocol.PacketBuilder {
	return protocol.NewPacketBuilder().WriteUint32(code).WriteNullString(info)
}

func TestLegacyLogonReachesOnline(t *testing.T) {
	h := newHarness(t, nil)

	h.chatFrame(t, protocol.SidAuthInfo, authInfo(0))
	assert.Equal(t, StateAuthInfoExchanged, h.s.state)
	assert.Equal(t, []byte{protocol.RelayVersionCheckEx2}, h.relay.ids())

	h.relayFrame(t, protocol.RelayVersionCheckEx2, versionCheckOK())
	h.chatFrame(t, protocol.SidAuthCheck, authCheck(0, ""))
	assert.Equal(t, StateAccountLogonInProgress, h.s.state)

	h.chatFrame(t, protocol.SidLogonResponse2, result(0))

	assert.Equal(t, StateOnline, h.s.state)
	assert.Equal(t, []byte{
		protocol.SidAuthCheck,
		protocol.SidLogonResponse2,
		protocol.SidEnterChat,
		protocol.SidGetChannelList,
		protocol.SidJoinChannel,
	}, h.chat.ids())
	assert.True(t, h.relay.closed)
	assert.Nil(t, h.s.relay)

	var states []string
	for _, e := range h.rec.ofType(events.EventStateChanged) {
		states = append(states, e.Payload.(events.StatePayload).State)
	}
	assert.Equal(t, []string{
		"auth_info_exchanged", "version_and_key_checked", "account_logon",
		"chat_entry_requested", "online",
	}, states)
}

func TestAuthCheckBannedKeyIsFatal(t *testing.T) {
	h := newHarness(t, nil)
	h.chatFrame(t, protocol.SidAuthInfo, authInfo(0))
	h.relayFrame(t, protocol.RelayVersionCheckEx2, versionCheckOK())

	err := h.s.handleChatFrame(context.Background(), protocol.Frame{
		Kind: protocol.KindChat, ID: protocol.SidAuthCheck, Payload: authCheck(0x202, "").Build(),
	})

	var authErr *AuthenticationError
	require.True(t, errors.As(err, &authErr))
	assert.Contains(t, authErr.Error(), "banned")
	assert.Equal(t, StageKeyCheck, authErr.Stage)
	assert.Equal(t, uint32(0x202), authErr.Code)
	assert.Equal(t, "authentication", ErrorClass(err))
	assert.NotContains(t, h.chat.ids(), protocol.SidLogonResponse2)
}

func TestAuthCheckReason(t *testing.T) {
	tests := []struct {
		name  string
		code  uint32
		extra string
		want  string
	}{
		{name: "old version", code: 0x100, want: "Old version."},
		{name: "invalid version", code: 0x101, want: "Version invalid."},
		{name: "new version", code: 0x102, want: "New version."},
		{name: "unknown version error", code: 0x105, want: "Version invalid."},
		{name: "invalid key", code: 0x200, want: "CD-key invalid."},
		{name: "key in use with owner", code: 0x201, extra: "someone", want: "CD-key is in use (someone)."},
		{name: "banned key", code: 0x202, want: "CD-key is banned."},
		{name: "wrong product", code: 0x203, want: "CD-key is for another game."},
		{name: "expansion key in use", code: 0x211, extra: "other", want: "Expansion CD-key is in use (other)."},
		{name: "version code", code: 0x005, want: "Version code invalid."},
		{name: "other failure", code: 0x1000, want: "Authorization failed."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, authCheckReason(tt.code, tt.extra))
		})
	}
}

func TestLogonResults(t *testing.T) {
	tests := []struct {
		name       string
		register   bool
		id         byte
		payload    *protocol.PacketBuilder
		wantReason string
		wantSent   byte
		wantDone   bool
	}{
		{name: "bad password", id: protocol.SidLogonResponse2, payload: result(2), wantReason: "Password incorrect"},
		{name: "closed with reason", id: protocol.SidLogonResponse2,
			payload: result(6).WriteNullString("spamming"), wantReason: "Account closed: spamming"},
		{name: "missing account is fatal", id: protocol.SidLogonResponse2, payload: result(1), wantReason: "Account does not exist"},
		{name: "missing account registers", register: true, id: protocol.SidLogonResponse2, payload: result(1),
			wantSent: protocol.SidCreateAccount2},
		{name: "account created", register: true, id: protocol.SidCreateAccount2, payload: result(0), wantDone: true},
		{name: "name in use", register: true, id: protocol.SidCreateAccount2, payload: result(4), wantReason: "Account name in use"},
		{name: "banned word", register: true, id: protocol.SidCreateAccount2, payload: result(3),
			wantReason: "Account name contains a banned word"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, func(cfg *config.Config) { cfg.Account.Register = tt.register })

			err := h.s.handleChatFrame(context.Background(), protocol.Frame{
				Kind: protocol.KindChat, ID: tt.id, Payload: tt.payload.Build(),
			})

			switch {
			case tt.wantReason != "":
				var authErr *AuthenticationError
				require.True(t, errors.As(err, &authErr), "got %v", err)
				assert.Equal(t, tt.wantReason, authErr.Reason)
			case tt.wantDone:
				assert.ErrorIs(t, err, errSessionComplete)
				assert.Len(t, h.rec.ofType(events.EventNotice), 1)
			default:
				require.NoError(t, err)
				assert.Equal(t, []byte{tt.wantSent}, h.chat.ids())
			}
		})
	}
}

func TestRevisionLogonThroughRelay(t *testing.T) {
	h := newHarness(t, nil)

	h.chatFrame(t, protocol.SidAuthInfo, authInfo(2))
	h.relayFrame(t, protocol.RelayVersionCheckEx2, versionCheckOK())
	h.chatFrame(t, protocol.SidAuthCheck, authCheck(0, ""))
	assert.Equal(t, []byte{protocol.RelayVersionCheckEx2, protocol.RelayChooseNLSRevision}, h.relay.ids())

	h.relayFrame(t, protocol.RelayChooseNLSRevision, result(1))
	h.relayFrame(t, protocol.RelayLogonChallenge, protocol.NewPacketBuilder().WriteBytes(make([]byte, 32)))
	h.chatFrame(t, protocol.SidAuthAccountLogon, result(0).WriteBytes(make([]byte, 64)))
	assert.Equal(t, StateAccountLogonProofInProgress, h.s.state)

	h.relayFrame(t, protocol.RelayLogonProof, protocol.NewPacketBuilder().WriteBytes(make([]byte, 20)))
	h.chatFrame(t, protocol.SidAuthAccountLogonPrf, result(0x0E))

	assert.Equal(t, StateOnline, h.s.state)
	assert.Equal(t, []byte{
		protocol.RelayVersionCheckEx2,
		protocol.RelayChooseNLSRevision,
		protocol.RelayLogonChallenge,
		protocol.RelayLogonProof,
	}, h.relay.ids())
	assert.Equal(t, []byte{
		protocol.SidAuthCheck,
		protocol.SidAuthAccountLogon,
		protocol.SidAuthAccountLogonPrf,
		protocol.SidEnterChat,
		protocol.SidGetChannelList,
		protocol.SidJoinChannel,
	}, h.chat.ids())
	assert.Len(t, h.rec.ofType(events.EventNotice), 1)
}

func TestRevisionLogonMissingAccountIsFatal(t *testing.T) {
	h := newHarness(t, func(cfg *config.Config) { cfg.Account.Register = true })
	h.s.logonType = 2

	err := h.s.handleChatFrame(context.Background(), protocol.Frame{
		Kind: protocol.KindChat, ID: protocol.SidAuthAccountLogon, Payload: result(1).Build(),
	})

	var authErr *AuthenticationError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, "Account does not exist", authErr.Reason)
	assert.Empty(t, h.chat.ids())
}

func TestFirstChannelJoinIsSuppressed(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.s.enterChat())
	h.chat.reset()

	h.chatEvent(t, protocol.EidChannel, 0, "", "Chat")
	assert.Empty(t, h.rec.ofType(events.EventChannelJoined, events.EventChannelLeft))
	assert.Equal(t, "Chat", h.s.channel.Info().Name)
	assert.True(t, h.s.inChat)
	assert.NotNil(t, h.s.keepalive)
	assert.Equal(t, []byte{protocol.SidFriendsList}, h.chat.ids())

	h.chatEvent(t, protocol.EidChannel, 0, "", "Op Test")
	got := h.rec.ofType(events.EventChannelJoined, events.EventChannelLeft)
	require.Len(t, got, 2)
	assert.Equal(t, events.EventChannelLeft, got[0].Type)
	assert.Equal(t, "Chat", got[0].Payload.(events.ChannelPayload).Channel.Name)
	assert.Equal(t, events.EventChannelJoined, got[1].Type)
	assert.Equal(t, "Op Test", got[1].Payload.(events.ChannelPayload).Channel.Name)
}

func TestLookupCorrelation(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.s.lookupUser("Other"))
	require.Equal(t, 1, h.s.correlator.Pending())

	keys, _ := lookup.KeySet(protocol.ProductSTAR, false)
	response := func(cookie uint32) *protocol.PacketBuilder {
		b := protocol.NewPacketBuilder().WriteUint32(1).WriteUint32(uint32(len(keys))).WriteUint32(cookie)
		for range keys {
			b.WriteNullString("")
		}
		return b
	}

	cookie := lookup.Cookie("Other")
	h.chatFrame(t, protocol.SidReadUserData, response(cookie+1))
	assert.Empty(t, h.rec.ofType(events.EventLookupResult))
	assert.Equal(t, 1, h.s.correlator.Pending())

	h.chatFrame(t, protocol.SidReadUserData, response(cookie))
	got := h.rec.ofType(events.EventLookupResult)
	require.Len(t, got, 1)
	assert.Equal(t, "Other", got[0].Payload.(events.LookupPayload).Subject)
	assert.Equal(t, 0, h.s.correlator.Pending())
}

func TestChannelMembershipEvents(t *testing.T) {
	h := newHarness(t, nil)
	h.s.inChat = true
	h.s.channel.Reset()
	h.chatEvent(t, protocol.EidChannel, 0, "", "Chat")

	h.chatEvent(t, protocol.EidShowUser, 0, "Alpha", "RATS 0 0 0 0 0 0 0 0 RATS")
	h.chatEvent(t, protocol.EidShowUser, protocol.UserFlagOperator, "alpha", "")
	h.chatEvent(t, protocol.EidJoin, 0, "Beta", "PXES 0 0 0 0 0 0 0 0 PXES")
	h.chatEvent(t, protocol.EidLeave, 0, "BETA", "")
	h.chatEvent(t, protocol.EidLeave, 0, "nobody", "")

	users := h.s.channel.Users()
	require.Len(t, users, 1)
	assert.Equal(t, "Alpha", users[0].Name)
	assert.Equal(t, protocol.UserFlagOperator, users[0].Flags)

	assert.Len(t, h.rec.ofType(events.EventUserJoined), 2)
	assert.Len(t, h.rec.ofType(events.EventUserUpdated), 1)
	assert.Len(t, h.rec.ofType(events.EventUserLeft), 1)
}

func TestInfoClassification(t *testing.T) {
	h := newHarness(t, nil)
	h.s.inChat = true

	// Text before the first join is held until the channel is known.
	h.chatEvent(t, protocol.EidInfo, 0, "", "Welcome to Battle.net!")
	assert.Empty(t, h.rec.ofType(events.EventNotice))
	h.s.channel.Reset()
	h.chatEvent(t, protocol.EidChannel, 0, "", "Chat")
	notices := h.rec.ofType(events.EventNotice)
	require.Len(t, notices, 1)
	assert.Equal(t, "Welcome to Battle.net!", notices[0].Payload.(events.NoticePayload).Text)

	h.s.settingAway = true
	h.chatEvent(t, protocol.EidInfo, 0, "", "You are now marked as being away.")
	assert.True(t, h.s.isAway)
	assert.False(t, h.s.settingAway)
	assert.Len(t, h.rec.ofType(events.EventNotice), 1)

	h.s.pending.SetWhisper("buddy")
	h.chatEvent(t, protocol.EidInfo, 0, "", "buddy is unavailable (busy)")
	notices = h.rec.ofType(events.EventNotice)
	require.Len(t, notices, 2)
	assert.Equal(t, "buddy did not receive your whisper.", notices[1].Payload.(events.NoticePayload).Text)
	_, pending := h.s.pending.Whisper()
	assert.False(t, pending)

	h.s.pending.SetLookup("ghost")
	h.chatEvent(t, protocol.EidError, 0, "", "That user is not logged on.")
	results := h.rec.ofType(events.EventLookupResult)
	require.Len(t, results, 1)
	assert.Equal(t, []lookup.Pair{{Label: "Current location", Value: "offline"}},
		results[0].Payload.(events.LookupPayload).Pairs)

	h.chatEvent(t, protocol.EidInfo, 0, "", "No one hears you.")
	assert.Len(t, h.rec.ofType(events.EventNotice), 3)
}

func TestMutualFriendNoticeHidden(t *testing.T) {
	h := newHarness(t, nil)
	h.s.inChat = true

	h.chatEvent(t, protocol.EidWhisper, 0, "buddy", "Your friend buddy has entered Battle.net.")
	assert.Empty(t, h.rec.ofType(events.EventWhisperReceived))

	h.chatEvent(t, protocol.EidWhisper, 0, "buddy", "hi there")
	got := h.rec.ofType(events.EventWhisperReceived)
	require.Len(t, got, 1)
	assert.Equal(t, "hi there", got[0].Payload.(events.MessagePayload).Text)
}

func TestFriendAwayTriggersLookup(t *testing.T) {
	h := newHarness(t, nil)
	h.s.inChat = true
	h.s.channel.Reset()
	h.chatEvent(t, protocol.EidChannel, 0, "", "Chat")

	list := protocol.NewPacketBuilder().WriteByte(1).
		WriteNullString("buddy").
		WriteByte(protocol.FriendStatusAway).
		WriteByte(protocol.FriendLocationInChat).
		WriteUint32(uint32(protocol.ProductSTAR)).
		WriteNullString("Chat")
	h.chatFrame(t, protocol.SidFriendsList, list)
	assert.Equal(t, []string{"/whois buddy"}, h.chat.commandsSent())
	assert.Len(t, h.rec.ofType(events.EventFriendsChanged), 1)

	h.chatEvent(t, protocol.EidInfo, 0, "", "buddy is using StarCraft in the channel Chat.")
	h.chatEvent(t, protocol.EidInfo, 0, "", "buddy is away (brb)")
	assert.Empty(t, h.rec.ofType(events.EventNotice))

	friends := h.s.friends.Snapshot()
	require.Len(t, friends, 1)
	assert.Equal(t, "brb", friends[0].StatusMessage)
	assert.False(t, friends[0].AutoLookup)

	// The refresh with the same status does not ask again.
	h.chatFrame(t, protocol.SidFriendsUpdate, protocol.NewPacketBuilder().WriteByte(0).
		WriteByte(protocol.FriendStatusAway).
		WriteByte(protocol.FriendLocationInChat).
		WriteUint32(uint32(protocol.ProductSTAR)).
		WriteNullString("Chat"))
	assert.Len(t, h.chat.commandsSent(), 1)
}

func TestKeepaliveSchedule(t *testing.T) {
	h := newHarness(t, nil)

	for i := 0; i < 32; i++ {
		require.NoError(t, h.s.onKeepalive())
	}

	var nulls, friends int
	for _, id := range h.chat.ids() {
		switch id {
		case protocol.SidNull:
			nulls++
		case protocol.SidFriendsList:
			friends++
		}
	}
	assert.Equal(t, 2, nulls)
	assert.Equal(t, 16, friends)
}

func TestPingIsEchoed(t *testing.T) {
	h := newHarness(t, nil)
	h.chatFrame(t, protocol.SidPing, protocol.NewPacketBuilder().WriteUint32(0xDEADBEEF))
	require.Len(t, h.chat.frames, 1)
	assert.Equal(t, protocol.BuildPing(0xDEADBEEF), h.chat.frames[0])
}

func TestActionsBeforeRun(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	assert.ErrorIs(t, h.s.SendChannelMessage(ctx, "hello"), commands.ErrNotConnected)

	err := h.s.SendChannelMessage(ctx, "bad\nline")
	var verr *commands.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.ErrorIs(t, err, commands.ErrBadCharacters)
	assert.Empty(t, h.chat.frames)
}

func TestNewSessionRejectsWhitespaceName(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Account.Username = "some one"
	_, err := NewSession(cfg, &recorder{})
	assert.ErrorIs(t, err, commands.ErrWhitespaceInName)
}

func TestLookupSendsBareAccount(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.s.lookupUser("Other#2@Azeroth"))

	var payload []byte
	for _, f := range h.chat.frames {
		if f[1] == protocol.SidReadUserData {
			payload = f[protocol.ChatHeaderSize:]
		}
	}
	require.NotNil(t, payload)

	r := protocol.NewReader(payload)
	_, err := r.ReadUint32("accounts")
	require.NoError(t, err)
	_, err = r.ReadUint32("keys")
	require.NoError(t, err)
	cookie, err := r.ReadUint32("cookie")
	require.NoError(t, err)
	account, err := r.ReadCString("account")
	require.NoError(t, err)

	assert.Equal(t, "other@azeroth", account)
	assert.Equal(t, lookup.Cookie("Other#2@Azeroth"), cookie)
	assert.Equal(t, []string{"/whois Other#2@Azeroth"}, h.chat.commandsSent())
}

func TestLookupInChannelSkipsWhois(t *testing.T) {
	h := newHarness(t, nil)
	h.s.inChat = true
	h.s.channel.Reset()
	h.chatEvent(t, protocol.EidChannel, 0, "", "Chat")
	h.chatEvent(t, protocol.EidShowUser, 0, "Other", "RATS 0 0 0 0 0 0 0 0 RATS")
	h.chat.reset()

	require.NoError(t, h.s.lookupUser("other"))

	assert.Empty(t, h.chat.commandsSent())
	assert.Equal(t, []byte{protocol.SidReadUserData}, h.chat.ids())
	_, pending := h.s.pending.Lookup()
	assert.False(t, pending)
	results := h.rec.ofType(events.EventLookupResult)
	require.Len(t, results, 1)
	assert.Equal(t, "other", results[0].Payload.(events.LookupPayload).Subject)
}

func TestDiabloWhoisAnswersAutoLookup(t *testing.T) {
	h := newHarness(t, func(cfg *config.Config) { cfg.Account.Product = "VD2D" })
	h.s.inChat = true
	h.s.channel.Reset()
	h.chatEvent(t, protocol.EidChannel, 0, "", "Diablo II")

	list := protocol.NewPacketBuilder().WriteByte(1).
		WriteNullString("buddy").
		WriteByte(protocol.FriendStatusAway).
		WriteByte(protocol.FriendLocationInChat).
		WriteUint32(uint32(protocol.ProductD2DV)).
		WriteNullString("Diablo II")
	h.chatFrame(t, protocol.SidFriendsList, list)
	assert.Equal(t, []string{"/whois *buddy"}, h.chat.commandsSent())

	h.chatEvent(t, protocol.EidInfo, 0, "", "Hero*buddy is using Diablo II in the channel Diablo II.")
	h.chatEvent(t, protocol.EidInfo, 0, "", "Hero*buddy is away (brb)")
	assert.Empty(t, h.rec.ofType(events.EventNotice))

	friends := h.s.friends.Snapshot()
	require.Len(t, friends, 1)
	assert.Equal(t, "brb", friends[0].StatusMessage)
	assert.False(t, friends[0].AutoLookup)
}

func TestWriteProfileRejectsUnframeableFields(t *testing.T) {
	tests := []struct {
		name        string
		sex         string
		location    string
		description string
		field       string
		want        error
	}{
		{name: "oversized description", description: strings.Repeat("a", 70000),
			field: "description", want: commands.ErrMessageTooLong},
		{name: "NUL in location", location: "here\x00injected",
			field: "location", want: commands.ErrBadCharacters},
		{name: "NUL in description", description: "one\x00two",
			field: "description", want: commands.ErrBadCharacters},
		{name: "newline in sex", sex: "m\nf", field: "sex", want: commands.ErrBadCharacters},
		{name: "multiline description", description: "line one\r\nline two", want: commands.ErrNotConnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			err := h.s.WriteProfile(context.Background(), tt.sex, tt.location, tt.description)

			assert.ErrorIs(t, err, tt.want)
			if tt.field != "" {
				var verr *commands.ValidationError
				require.True(t, errors.As(err, &verr))
				assert.Equal(t, tt.field, verr.Field)
			}
			assert.Empty(t, h.chat.frames)
		})
	}
}

// pipeServers hands the test the far end of every link the session dials.
type pipeServers struct {
	relay chan net.Conn
	chat  chan net.Conn
}

func newPipeServers() *pipeServers {
	return &pipeServers{relay: make(chan net.Conn, 1), chat: make(chan net.Conn, 1)}
}

func (p *pipeServers) dial(_ context.Context, kind protocol.Kind, _ string) (Link, error) {
	client, server := net.Pipe()
	if kind == protocol.KindRelay {
		p.relay <- server
	} else {
		p.chat <- server
	}
	return network.NewConnection(client, kind), nil
}

func accept(t *testing.T, ch <-chan net.Conn) net.Conn {
	t.Helper()
	select {
	case conn := <-ch:
		t.Cleanup(func() { conn.Close() })
		return conn
	case <-time.After(2 * time.Second):
		t.Fatal("session did not dial")
		return nil
	}
}

func readFrame(t *testing.T, conn net.Conn, kind protocol.Kind) (byte, []byte) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	size := protocol.ChatHeaderSize
	if kind == protocol.KindRelay {
		size = protocol.RelayHeaderSize
	}
	hdr := make([]byte, size)
	_, err := io.ReadFull(conn, hdr)
	require.NoError(t, err)

	var id byte
	var total int
	if kind == protocol.KindChat {
		require.Equal(t, byte(0xFF), hdr[0])
		id, total = hdr[1], int(binary.LittleEndian.Uint16(hdr[2:]))
	} else {
		id, total = hdr[2], int(binary.LittleEndian.Uint16(hdr[0:]))
	}
	payload := make([]byte, total-size)
	_, err = io.ReadFull(conn, payload)
	require.NoError(t, err)
	return id, payload
}

func startRun(t *testing.T) (*Session, *recorder, *pipeServers, <-chan error) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Account.Username = "someone"
	cfg.Account.Password = "secret"
	cfg.Account.CDKey = "1111-2222-3333"

	peers := newPipeServers()
	rec := &recorder{}
	s, err := NewSession(cfg, rec, WithSessionID("test"), WithKeyDecoder(stubKeys{}), WithDialer(peers.dial))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background()) }()
	return s, rec, peers, done
}

func waitRun(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
		return nil
	}
}

func answerVersionByte(t *testing.T, relay net.Conn, product protocol.Product) {
	t.Helper()
	id, payload := readFrame(t, relay, protocol.KindRelay)
	require.Equal(t, protocol.RelayRequestVersionByte, id)
	require.Len(t, payload, 4)

	b := protocol.NewPacketBuilder().WriteUint32(uint32(product))
	if product != 0 {
		b.WriteUint32(0xD3)
	}
	frame, err := protocol.EncodeFrame(protocol.KindRelay, protocol.RelayRequestVersionByte, b.Build())
	require.NoError(t, err)
	_, err = relay.Write(frame)
	require.NoError(t, err)
}

func assertClosed(t *testing.T, conn net.Conn) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, err := conn.Read(make([]byte, 1))
	assert.ErrorIs(t, err, io.EOF)
}

func stateNames(rec *recorder) []string {
	var out []string
	for _, e := range rec.ofType(events.EventStateChanged) {
		out = append(out, e.Payload.(events.StatePayload).State)
	}
	return out
}

func TestRunDialsRelayThenChat(t *testing.T) {
	s, rec, peers, done := startRun(t)

	relay := accept(t, peers.relay)
	answerVersionByte(t, relay, protocol.ProductSTAR)

	chat := accept(t, peers.chat)
	require.NoError(t, chat.SetReadDeadline(time.Now().Add(2*time.Second)))
	first := make([]byte, 1)
	_, err := io.ReadFull(chat, first)
	require.NoError(t, err)
	assert.Equal(t, protocol.ProtocolByteGame, first[0])

	id, _ := readFrame(t, chat, protocol.KindChat)
	assert.Equal(t, protocol.SidAuthInfo, id)

	require.NoError(t, chat.Close())
	err = waitRun(t, done)

	require.Error(t, err)
	assert.Equal(t, "network", ErrorClass(err))
	assertClosed(t, relay)
	assert.Nil(t, s.chat)
	assert.Nil(t, s.relay)
	assert.Equal(t, []string{
		"relay_connecting", "relay_version_query", "chat_connecting", "protocol_byte_sent", "closed",
	}, stateNames(rec))

	closed := rec.ofType(events.EventSessionClosed)
	require.Len(t, closed, 1)
	assert.Equal(t, "network", closed[0].Payload.(events.SessionClosedPayload).Class)
}

func TestRunRelayWithoutProduct(t *testing.T) {
	_, rec, peers, done := startRun(t)

	relay := accept(t, peers.relay)
	answerVersionByte(t, relay, 0)
	err := waitRun(t, done)

	var authErr *AuthenticationError
	require.True(t, errors.As(err, &authErr), "got %v", err)
	assert.Equal(t, StageRelay, authErr.Stage)
	assert.Contains(t, authErr.Reason, "does not support")
	assert.Equal(t, "authentication", ErrorClass(err))
	assert.Empty(t, peers.chat)
	assertClosed(t, relay)
	assert.Equal(t, []string{"relay_connecting", "relay_version_query", "closed"}, stateNames(rec))
}
