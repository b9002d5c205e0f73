package connector

// State is a step of the logon sequence.
type State int

const (
	StateDisconnected State = iota
	StateRelayConnecting
	StateRelayVersionQuery
	StateChatConnecting
	StateProtocolByteSent
	StateAuthInfoExchanged
	StateVersionAndKeyChecked
	StateAccountLogonInProgress
	StateAccountLogonProofInProgress
	StateChatEntryRequested
	StateOnline
	StateClosed
)

var stateStrings = map[State]string{
	StateDisconnected:                "disconnected",
	StateRelayConnecting:             "relay_connecting",
	StateRelayVersionQuery:           "relay_version_query",
	StateChatConnecting:              "chat_connecting",
	StateProtocolByteSent:            "protocol_byte_sent",
	StateAuthInfoExchanged:           "auth_info_exchanged",
	StateVersionAndKeyChecked:        "version_and_key_checked",
	StateAccountLogonInProgress:      "account_logon",
	StateAccountLogonProofInProgress: "account_logon_proof",
	StateChatEntryRequested:          "chat_entry_requested",
	StateOnline:                      "online",
	StateClosed:                      "closed",
}

// String returns the string representation of State.
func (s State) String() string {
	if str, ok := stateStrings[s]; ok {
		return str
	}
	return "unknown"
}

// MarshalJSON serializes State as a JSON string (e.g. "online").
func (s State) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}
