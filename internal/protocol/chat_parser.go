package protocol

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ChatParser decodes chat server frames into typed packets.
type ChatParser struct {
	logger zerolog.Logger
}

// NewChatParser creates a new parser for the chat server protocol.
func NewChatParser() *ChatParser {
	return &ChatParser{
		logger: log.With().Str("component", "bncs_parser").Logger(),
	}
}

// AuthInfoResponse is the server's SID_AUTH_INFO challenge.
type AuthInfoResponse struct {
	LogonType   uint32
	ServerToken uint32
	UDPToken    uint32
	MPQFiletime uint64
	MPQFilename string
	Formula     string
}

// ResultResponse carries a result code and, for codes that include one, a
// trailing descriptive string. AUTH_CHECK, LOGONRESPONSE2, CREATEACCOUNT2,
// CHANGEPASSWORD and AUTH_ACCOUNTLOGONPROOF all decode to it.
type ResultResponse struct {
	ID     byte
	Result uint32
	Info   string
}

// AccountLogonResponse is SID_AUTH_ACCOUNTLOGON. SaltAndB is present only
// on success.
type AccountLogonResponse struct {
	Result   uint32
	SaltAndB []byte
}

// EnterChatResponse is SID_ENTERCHAT.
type EnterChatResponse struct {
	UniqueName string
	StatString string
	Account    string
}

// ChannelList is the SID_GETCHANNELLIST response.
type ChannelList struct {
	Channels []string
}

// ChatEvent is one SID_CHATEVENT.
type ChatEvent struct {
	EventID uint32
	Flags   uint32
	Ping    int32
	Who     string
	// Text is the event's free-text field. For SHOWUSER, JOIN and USERFLAGS it holds the stats blob.
	Text []byte
}

// MessageBox is SID_MESSAGEBOX.
type MessageBox struct {
	Style   uint32
	Text    string
	Caption string
}

// Ping is SID_PING.
type Ping struct {
	Cookie uint32
}

// ReadUserDataResponse is SID_READUSERDATA. Values are positional and are
// only meaningful against the key list of the matching request.
type ReadUserDataResponse struct {
	Accounts uint32
	KeyCount uint32
	Cookie   uint32
	reader   *Reader
}

// Values reads one string per requested key. It must be called with the
// key count of the matching request.
func (r *ReadUserDataResponse) Values(n int) ([]string, error) {
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		v, err := r.reader.ReadCString("userdata value")
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
	return out, nil
}

// FriendRecord is one friend entry as carried by the friends packets.
type FriendRecord struct {
	Account      string
	Status       byte
	Location     byte
	Product      Product
	LocationName string
}

// FriendsList is SID_FRIENDSLIST.
type FriendsList struct {
	Friends []FriendRecord
}

// FriendsUpdate is SID_FRIENDSUPDATE. Record.Account is empty on the wire.
type FriendsUpdate struct {
	Index  byte
	Record FriendRecord
}

// FriendsAdd is SID_FRIENDSADD.
type FriendsAdd struct {
	Record FriendRecord
}

// FriendsRemove is SID_FRIENDSREMOVE.
type FriendsRemove struct {
	Index byte
}

// FriendsPosition is SID_FRIENDSPOSITION.
type FriendsPosition struct {
	Old byte
	New byte
}

// FloodDetected is SID_FLOODDETECTED.
type FloodDetected struct{}

// KeepAlive is SID_NULL.
type KeepAlive struct{}

// ParseChatFrame decodes a chat frame into one of the packet types above.
// Unknown ids return (nil, nil).
func (p *ChatParser) ParseChatFrame(f Frame) (interface{}, error) {
	r := NewReader(f.Payload)

	switch f.ID {
	case SidNull:
		return &KeepAlive{}, nil
	case SidAuthInfo:
		return parseAuthInfo(r)
	case SidAuthCheck:
		return parseResult(r, f.ID, true)
	case SidLogonResponse2:
		return parseLogonResponse2(r)
	case SidCreateAccount2:
		return parseResult(r, f.ID, false)
	case SidChangePassword:
		return parseResult(r, f.ID, false)
	case SidAuthAccountLogon:
		return parseAccountLogon(r)
	case SidAuthAccountLogonPrf:
		return parseAccountLogonProof(r)
	case SidEnterChat:
		return parseEnterChat(r)
	case SidGetChannelList:
		return parseChannelList(r)
	case SidChatEvent:
		return parseChatEvent(r)
	case SidMessageBox:
		return parseMessageBox(r)
	case SidPing:
		cookie, err := r.ReadUint32("ping cookie")
		if err != nil {
			return nil, err
		}
		return &Ping{Cookie: cookie}, nil
	case SidReadUserData:
		return parseReadUserData(r)
	case SidFloodDetected:
		return &FloodDetected{}, nil
	case SidFriendsList:
		return parseFriendsList(r)
	case SidFriendsUpdate:
		return parseFriendsUpdate(r)
	case SidFriendsAdd:
		rec, err := readFriendRecord(r, true)
		if err != nil {
			return nil, err
		}
		return &FriendsAdd{Record: rec}, nil
	case SidFriendsRemove:
		idx, err := r.ReadUint8("friend index")
		if err != nil {
			return nil, err
		}
		return &FriendsRemove{Index: idx}, nil
	case SidFriendsPosition:
		return parseFriendsPosition(r)
	default:
		p.logger.Debug().
			Uint8("id", f.ID).
			Int("payload_len", len(f.Payload)).
			Msg("unhandled chat packet")
		return nil, nil
	}
}

func parseAuthInfo(r *Reader) (*AuthInfoResponse, error) {
	var (
		res AuthInfoResponse
		err error
	)
	if res.LogonType, err = r.ReadUint32("logon type"); err != nil {
		return nil, err
	}
	if res.ServerToken, err = r.ReadUint32("server token"); err != nil {
		return nil, err
	}
	if res.UDPToken, err = r.ReadUint32("udp token"); err != nil {
		return nil, err
	}
	if res.MPQFiletime, err = r.ReadUint64("mpq filetime"); err != nil {
		return nil, err
	}
	if res.MPQFilename, err = r.ReadCString("mpq filename"); err != nil {
		return nil, err
	}
	if res.Formula, err = r.ReadCString("checksum formula"); err != nil {
		return nil, err
	}
	return &res, nil
}

func parseResult(r *Reader, id byte, withInfo bool) (*ResultResponse, error) {
	result, err := r.ReadUint32("result")
	if err != nil {
		return nil, err
	}
	res := &ResultResponse{ID: id, Result: result}
	if withInfo {
		if res.Info, err = r.ReadCString("result info"); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// LOGONRESPONSE2 and AUTH_ACCOUNTLOGONPROOF carry a reason only for a closed account.
const resultAccountClosed = 0x06

func parseLogonResponse2(r *Reader) (*ResultResponse, error) {
	res, err := parseResult(r, SidLogonResponse2, false)
	if err != nil {
		return nil, err
	}
	if res.Result == resultAccountClosed && r.Remaining() > 0 {
		res.Info, _ = r.ReadCString("closed reason")
	}
	return res, nil
}

func parseAccountLogonProof(r *Reader) (*ResultResponse, error) {
	res, err := parseResult(r, SidAuthAccountLogonPrf, false)
	if err != nil {
		return nil, err
	}
	if res.Result == resultAccountClosed && r.Remaining() > 0 {
		res.Info, _ = r.ReadCString("closed reason")
	}
	return res, nil
}

func parseAccountLogon(r *Reader) (*AccountLogonResponse, error) {
	result, err := r.ReadUint32("result")
	if err != nil {
		return nil, err
	}
	res := &AccountLogonResponse{Result: result}
	if result == 0 {
		if res.SaltAndB, err = r.ReadBlob("salt and B", 64); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func parseEnterChat(r *Reader) (*EnterChatResponse, error) {
	var (
		res EnterChatResponse
		err error
	)
	if res.UniqueName, err = r.ReadCString("unique name"); err != nil {
		return nil, err
	}
	if res.StatString, err = r.ReadCString("statstring"); err != nil {
		return nil, err
	}
	if res.Account, err = r.ReadCString("account"); err != nil {
		return nil, err
	}
	return &res, nil
}

func parseChannelList(r *Reader) (*ChannelList, error) {
	list := &ChannelList{}
	for r.Remaining() > 0 {
		name, err := r.ReadCString("channel name")
		if err != nil {
			return nil, err
		}
		if name == "" {
			break
		}
		list.Channels = append(list.Channels, name)
	}
	return list, nil
}

// Format: [event:4][flags:4][ping:4][ip:4][account:4][reg_auth:4][who:str][text:str]
func parseChatEvent(r *Reader) (*ChatEvent, error) {
	var (
		ev  ChatEvent
		err error
	)
	if ev.EventID, err = r.ReadUint32("event id"); err != nil {
		return nil, err
	}
	if ev.Flags, err = r.ReadUint32("user flags"); err != nil {
		return nil, err
	}
	ping, err := r.ReadUint32("ping")
	if err != nil {
		return nil, err
	}
	ev.Ping = int32(ping)
	if _, err = r.ReadBlob("defunct fields", 12); err != nil {
		return nil, err
	}
	if ev.Who, err = r.ReadCString("username"); err != nil {
		return nil, err
	}
	if ev.Text, err = r.ReadCBytes("text"); err != nil {
		return nil, err
	}
	return &ev, nil
}

func parseMessageBox(r *Reader) (*MessageBox, error) {
	var (
		mb  MessageBox
		err error
	)
	if mb.Style, err = r.ReadUint32("style"); err != nil {
		return nil, err
	}
	if mb.Text, err = r.ReadCString("text"); err != nil {
		return nil, err
	}
	if mb.Caption, err = r.ReadCString("caption"); err != nil {
		return nil, err
	}
	return &mb, nil
}

func parseReadUserData(r *Reader) (*ReadUserDataResponse, error) {
	var (
		res ReadUserDataResponse
		err error
	)
	if res.Accounts, err = r.ReadUint32("account count"); err != nil {
		return nil, err
	}
	if res.KeyCount, err = r.ReadUint32("key count"); err != nil {
		return nil, err
	}
	if res.Cookie, err = r.ReadUint32("request cookie"); err != nil {
		return nil, err
	}
	res.reader = r
	return &res, nil
}

func readFriendRecord(r *Reader, withAccount bool) (FriendRecord, error) {
	var (
		rec FriendRecord
		err error
	)
	if withAccount {
		if rec.Account, err = r.ReadCString("friend account"); err != nil {
			return rec, err
		}
	}
	if rec.Status, err = r.ReadUint8("friend status"); err != nil {
		return rec, err
	}
	if rec.Location, err = r.ReadUint8("friend location"); err != nil {
		return rec, err
	}
	product, err := r.ReadUint32("friend product")
	if err != nil {
		return rec, err
	}
	rec.Product = Product(product)
	if rec.LocationName, err = r.ReadCString("friend location name"); err != nil {
		return rec, err
	}
	return rec, nil
}

func parseFriendsList(r *Reader) (*FriendsList, error) {
	count, err := r.ReadUint8("friend count")
	if err != nil {
		return nil, err
	}
	list := &FriendsList{Friends: make([]FriendRecord, 0, count)}
	for i := 0; i < int(count); i++ {
		rec, err := readFriendRecord(r, true)
		if err != nil {
			return nil, err
		}
		list.Friends = append(list.Friends, rec)
	}
	return list, nil
}

func parseFriendsUpdate(r *Reader) (*FriendsUpdate, error) {
	idx, err := r.ReadUint8("friend index")
	if err != nil {
		return nil, err
	}
	rec, err := readFriendRecord(r, false)
	if err != nil {
		return nil, err
	}
	return &FriendsUpdate{Index: idx, Record: rec}, nil
}

func parseFriendsPosition(r *Reader) (*FriendsPosition, error) {
	oldIdx, err := r.ReadUint8("old index")
	if err != nil {
		return nil, err
	}
	newIdx, err := r.ReadUint8("new index")
	if err != nil {
		return nil, err
	}
	return &FriendsPosition{Old: oldIdx, New: newIdx}, nil
}
