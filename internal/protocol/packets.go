// Package protocol implements the binary packet builders and parsers for
// the two wire protocols a bnetchat session speaks: the chat server
// protocol (BNCS) and the login relay protocol (BNLS). All integers are
// little-endian and all strings are NUL-terminated.
package protocol

// Kind selects which of the two framings a packet uses.
type Kind int

const (
	// KindChat frames are [0xFF][id:1][length:2][payload...].
	KindChat Kind = iota
	// KindRelay frames are [length:2][id:1][payload...].
	KindRelay
)

// String returns the short protocol name used in logs.
func (k Kind) String() string {
	switch k {
	case KindChat:
		return "bncs"
	case KindRelay:
		return "bnls"
	default:
		return "unknown"
	}
}

// HeaderSize returns the number of header bytes counted in a frame's length.
func (k Kind) HeaderSize() int {
	if k == KindChat {
		return ChatHeaderSize
	}
	return RelayHeaderSize
}

const (
	// ChatSentinel is the first byte of every chat server frame.
	ChatSentinel byte = 0xFF

	ChatHeaderSize  = 4
	RelayHeaderSize = 3

	// MaxPacketSize is the largest length a 16-bit header can declare.
	MaxPacketSize = 0xFFFF

	// ProtocolByteGame is written once on a fresh chat connection before AUTH_INFO.
	ProtocolByteGame byte = 0x01
)

// Chat server message ids (SID_*).
const (
	SidNull                byte = 0x00
	SidEnterChat           byte = 0x0A
	SidGetChannelList      byte = 0x0B
	SidJoinChannel         byte = 0x0C
	SidChatCommand         byte = 0x0E
	SidChatEvent           byte = 0x0F
	SidLeaveChat           byte = 0x10
	SidFloodDetected       byte = 0x13
	SidMessageBox          byte = 0x19
	SidPing                byte = 0x25
	SidReadUserData        byte = 0x26
	SidWriteUserData       byte = 0x27
	SidChangePassword      byte = 0x31
	SidLogonResponse2      byte = 0x3A
	SidCreateAccount2      byte = 0x3D
	SidAuthInfo            byte = 0x50
	SidAuthCheck           byte = 0x51
	SidAuthAccountLogon    byte = 0x53
	SidAuthAccountLogonPrf byte = 0x54
	SidFriendsList         byte = 0x65
	SidFriendsUpdate       byte = 0x66
	SidFriendsAdd          byte = 0x67
	SidFriendsRemove       byte = 0x68
	SidFriendsPosition     byte = 0x69
)

// Relay message ids (BNLS_*).
const (
	RelayCDKey              byte = 0x01
	RelayLogonChallenge     byte = 0x02
	RelayLogonProof         byte = 0x03
	RelayHashData           byte = 0x0B
	RelayCDKeyEx            byte = 0x0C
	RelayChooseNLSRevision  byte = 0x0D
	RelayRequestVersionByte byte = 0x10
	RelayVersionCheckEx2    byte = 0x1A
)

// Chat event ids (EID_*) carried by SID_CHATEVENT.
const (
	EidShowUser            uint32 = 0x01
	EidJoin                uint32 = 0x02
	EidLeave               uint32 = 0x03
	EidWhisper             uint32 = 0x04
	EidTalk                uint32 = 0x05
	EidBroadcast           uint32 = 0x06
	EidChannel             uint32 = 0x07
	EidUserFlags           uint32 = 0x09
	EidWhisperSent         uint32 = 0x0A
	EidChannelFull         uint32 = 0x0D
	EidChannelDoesNotExist uint32 = 0x0E
	EidChannelRestricted   uint32 = 0x0F
	EidInfo                uint32 = 0x12
	EidError               uint32 = 0x13
	EidEmote               uint32 = 0x17
)

// User flags carried by chat events.
const (
	UserFlagBlizzRep  uint32 = 0x01
	UserFlagOperator  uint32 = 0x02
	UserFlagVoice     uint32 = 0x04
	UserFlagBnetAdmin uint32 = 0x08
	UserFlagNoUDP     uint32 = 0x10
	UserFlagSquelch   uint32 = 0x20
	UserFlagGuest     uint32 = 0x40
)

// SID_JOINCHANNEL flags.
const (
	JoinNoCreate   uint32 = 0x00
	JoinFirstJoin  uint32 = 0x01
	JoinForcedJoin uint32 = 0x02
	JoinD2First    uint32 = 0x05
)

// Friend status bits and location categories.
const (
	FriendStatusMutual byte = 0x01
	FriendStatusDND    byte = 0x02
	FriendStatusAway   byte = 0x04

	FriendLocationOffline      byte = 0x00
	FriendLocationNotInChat    byte = 0x01
	FriendLocationInChat       byte = 0x02
	FriendLocationPublicGame   byte = 0x03
	FriendLocationPrivateGame  byte = 0x04
	FriendLocationPasswordGame byte = 0x05
)

// SID_MESSAGEBOX style bits.
const (
	MessageBoxIconError   uint32 = 0x10
	MessageBoxIconWarning uint32 = 0x30
)

// Handshake constants written into SID_AUTH_INFO.
const (
	PlatformIX86  uint32 = 0x49583836
	LanguageEnUS  uint32 = 1033
	CountryAbbrev        = "USA"
	CountryName          = "United States"
)

// Frame is one complete message extracted from a byte stream.
type Frame struct {
	Kind    Kind
	ID      byte
	Payload []byte
}
