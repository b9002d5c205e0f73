package protocol

// AuthInfo carries the client identity sent in SID_AUTH_INFO.
type AuthInfo struct {
	Product     Product
	VersionCode uint32
	LocalIP     uint32
	TZBias      uint32
}

// CDKeyBlock is the 36-byte key record embedded in SID_AUTH_CHECK.
type CDKeyBlock struct {
	Length  uint32
	Product uint32
	Public  uint32
	Private uint32
	Hash    [20]byte
}

// BuildNull creates a SID_NULL keepalive frame.
func BuildNull() []byte {
	return NewPacketBuilder().finishFixed(KindChat, SidNull)
}

// BuildAuthInfo creates SID_AUTH_INFO.
// Format: [protocol:4][platform:4][product:4][version:4][lang:4][local_ip:4][tz_bias:4]
// [mpq_lang:4][sys_lang:4][country_abbr:str][country:str]
func BuildAuthInfo(info AuthInfo) []byte {
	b := NewPacketBuilder()
	b.WriteUint32(0)
	b.WriteUint32(PlatformIX86)
	b.WriteUint32(uint32(info.Product))
	b.WriteUint32(info.VersionCode)
	b.WriteUint32(LanguageEnUS)
	b.WriteUint32(info.LocalIP)
	b.WriteUint32(info.TZBias)
	b.WriteUint32(LanguageEnUS)
	b.WriteUint32(LanguageEnUS)
	b.WriteNullString(CountryAbbrev)
	b.WriteNullString(CountryName)
	return b.finishFixed(KindChat, SidAuthInfo)
}

// BuildAuthCheck creates SID_AUTH_CHECK.
// Format: [client_token:4][exe_version:4][exe_hash:4][key_count:4][spawn:4]
// [keys:36*n][exe_info:str][key_owner:str]
func BuildAuthCheck(clientToken, exeVersion, exeChecksum uint32, keys []CDKeyBlock, exeInfo, keyOwner string) ([]byte, error) {
	b := NewPacketBuilder()
	b.WriteUint32(clientToken)
	b.WriteUint32(exeVersion)
	b.WriteUint32(exeChecksum)
	b.WriteUint32(uint32(len(keys)))
	b.WriteUint32(0)
	for _, k := range keys {
		b.WriteUint32(k.Length)
		b.WriteUint32(k.Product)
		b.WriteUint32(k.Public)
		b.WriteUint32(k.Private)
		b.WriteBytes(k.Hash[:])
	}
	b.WriteNullString(exeInfo)
	b.WriteNullString(keyOwner)
	return b.Finish(KindChat, SidAuthCheck)
}

// BuildLogonResponse2 creates SID_LOGONRESPONSE2 for the legacy logon.
// Format: [client_token:4][server_token:4][password_hash:20][username:str]
func BuildLogonResponse2(clientToken, serverToken uint32, hash [20]byte, username string) ([]byte, error) {
	b := NewPacketBuilder()
	b.WriteUint32(clientToken)
	b.WriteUint32(serverToken)
	b.WriteBytes(hash[:])
	b.WriteNullString(username)
	return b.Finish(KindChat, SidLogonResponse2)
}

// BuildCreateAccount2 creates SID_CREATEACCOUNT2.
// Format: [password_hash:20][username:str]
func BuildCreateAccount2(hash [20]byte, username string) ([]byte, error) {
	b := NewPacketBuilder()
	b.WriteBytes(hash[:])
	b.WriteNullString(username)
	return b.Finish(KindChat, SidCreateAccount2)
}

// BuildChangePassword creates SID_CHANGEPASSWORD.
// Format: [client_token:4][server_token:4][old_hash:20][new_hash:20][username:str]
func BuildChangePassword(clientToken, serverToken uint32, oldHash, newHash [20]byte, username string) ([]byte, error) {
	b := NewPacketBuilder()
	b.WriteUint32(clientToken)
	b.WriteUint32(serverToken)
	b.WriteBytes(oldHash[:])
	b.WriteBytes(newHash[:])
	b.WriteNullString(username)
	return b.Finish(KindChat, SidChangePassword)
}

// BuildAccountLogon creates SID_AUTH_ACCOUNTLOGON.
// Format: [A:32][username:str]
func BuildAccountLogon(a []byte, username string) ([]byte, error) {
	b := NewPacketBuilder()
	b.WriteBytes(a)
	b.WriteNullString(username)
	return b.Finish(KindChat, SidAuthAccountLogon)
}

// BuildAccountLogonProof creates SID_AUTH_ACCOUNTLOGONPROOF.
// Format: [M1:20]
func BuildAccountLogonProof(m1 []byte) []byte {
	return NewPacketBuilder().WriteBytes(m1).finishFixed(KindChat, SidAuthAccountLogonPrf)
}

// BuildEnterChat creates SID_ENTERCHAT.
// Format: [username:str][statstring:str]
func BuildEnterChat(username string) ([]byte, error) {
	b := NewPacketBuilder()
	b.WriteNullString(username)
	b.WriteByte(0)
	return b.Finish(KindChat, SidEnterChat)
}

// BuildGetChannelList creates SID_GETCHANNELLIST.
// Format: [product:4]
func BuildGetChannelList(product Product) []byte {
	return NewPacketBuilder().WriteUint32(uint32(product)).finishFixed(KindChat, SidGetChannelList)
}

// BuildJoinChannel creates SID_JOINCHANNEL.
// Format: [flags:4][channel:str]
func BuildJoinChannel(flags uint32, channel string) ([]byte, error) {
	b := NewPacketBuilder()
	b.WriteUint32(flags)
	b.WriteNullString(channel)
	return b.Finish(KindChat, SidJoinChannel)
}

// BuildChatCommand creates SID_CHATCOMMAND carrying chat text or a slash command.
// Format: [text:str]
func BuildChatCommand(text string) ([]byte, error) {
	return NewPacketBuilder().WriteNullString(text).Finish(KindChat, SidChatCommand)
}

// BuildLeaveChat creates SID_LEAVECHAT.
func BuildLeaveChat() []byte {
	return NewPacketBuilder().finishFixed(KindChat, SidLeaveChat)
}

// BuildPing echoes a SID_PING cookie.
// Format: [cookie:4]
func BuildPing(cookie uint32) []byte {
	return NewPacketBuilder().WriteUint32(cookie).finishFixed(KindChat, SidPing)
}

// BuildFriendsList creates an empty SID_FRIENDSLIST request.
func BuildFriendsList() []byte {
	return NewPacketBuilder().finishFixed(KindChat, SidFriendsList)
}

// BuildReadUserData creates SID_READUSERDATA for a single account.
// Format: [accounts:4][key_count:4][cookie:4][account:str][keys:str*n]
func BuildReadUserData(cookie uint32, account string, keys []string) ([]byte, error) {
	b := NewPacketBuilder()
	b.WriteUint32(1)
	b.WriteUint32(uint32(len(keys)))
	b.WriteUint32(cookie)
	b.WriteNullString(account)
	for _, k := range keys {
		b.WriteNullString(k)
	}
	return b.Finish(KindChat, SidReadUserData)
}

// BuildWriteUserData creates SID_WRITEUSERDATA for a single account.
// Keys and values are paired by index.
// Format: [accounts:4][key_count:4][account:str][keys:str*n][values:str*n]
func BuildWriteUserData(account string, keys, values []string) ([]byte, error) {
	b := NewPacketBuilder()
	b.WriteUint32(1)
	b.WriteUint32(uint32(len(keys)))
	b.WriteNullString(account)
	for _, k := range keys {
		b.WriteNullString(k)
	}
	for i := range keys {
		v := ""
		if i < len(values) {
			v = values[i]
		}
		b.WriteNullString(v)
	}
	return b.Finish(KindChat, SidWriteUserData)
}
