package protocol

// CDKeyEx flags requesting hashes for the given client and server tokens.
const (
	CDKeyExSameSessionKey  uint32 = 0x01
	CDKeyExGivenSessionKey uint32 = 0x02
)

// BuildRelayRequestVersionByte creates BNLS_REQUESTVERSIONBYTE.
// Format: [game:4]
func BuildRelayRequestVersionByte(game GameType) []byte {
	return NewPacketBuilder().WriteUint32(uint32(game)).finishFixed(KindRelay, RelayRequestVersionByte)
}

// BuildRelayVersionCheckEx2 creates BNLS_VERSIONCHECKEX2 from the AUTH_INFO challenge.
// Format: [game:4][flags:4][cookie:4][mpq_filetime:8][mpq_filename:str][formula:str]
func BuildRelayVersionCheckEx2(game GameType, mpqFiletime uint64, mpqFilename, formula string) ([]byte, error) {
	b := NewPacketBuilder()
	b.WriteUint32(uint32(game))
	b.WriteUint32(0)
	b.WriteUint32(0)
	b.WriteUint64(mpqFiletime)
	b.WriteNullString(mpqFilename)
	b.WriteNullString(formula)
	return b.Finish(KindRelay, RelayVersionCheckEx2)
}

// BuildRelayChooseNLSRevision creates BNLS_CHOOSENLSREVISION.
// Format: [revision:4]
func BuildRelayChooseNLSRevision(revision uint32) []byte {
	return NewPacketBuilder().WriteUint32(revision).finishFixed(KindRelay, RelayChooseNLSRevision)
}

// BuildRelayLogonChallenge creates BNLS_LOGONCHALLENGE.
// Format: [username:str][password:str]
func BuildRelayLogonChallenge(username, password string) ([]byte, error) {
	b := NewPacketBuilder()
	b.WriteNullString(username)
	b.WriteNullString(password)
	return b.Finish(KindRelay, RelayLogonChallenge)
}

// BuildRelayLogonProof creates BNLS_LOGONPROOF from the server's salt and B.
// Format: [s:32][B:32]
func BuildRelayLogonProof(saltAndB []byte) []byte {
	return NewPacketBuilder().WriteBytes(saltAndB).finishFixed(KindRelay, RelayLogonProof)
}

// BuildRelayCDKeyEx creates BNLS_CDKEY_EX asking the relay to hash keys for
// the given tokens.
// Format: [cookie:1][count:1][flags:4][server_token:4][client_token:4*n][keys:str*n]
func BuildRelayCDKeyEx(cookie byte, serverToken, clientToken uint32, keys []string) ([]byte, error) {
	b := NewPacketBuilder()
	b.WriteByte(cookie)
	b.WriteByte(byte(len(keys)))
	b.WriteUint32(CDKeyExSameSessionKey | CDKeyExGivenSessionKey)
	b.WriteUint32(serverToken)
	for range keys {
		b.WriteUint32(clientToken)
	}
	for _, k := range keys {
		b.WriteNullString(k)
	}
	return b.Finish(KindRelay, RelayCDKeyEx)
}
