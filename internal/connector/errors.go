package connector

import (
	"errors"
	"fmt"

	"github.com/energizer-project/bnetchat/internal/network"
	"github.com/energizer-project/bnetchat/internal/protocol"
)

// AuthenticationError is a logon rejected by the chat server or relay.
// Reason is the fixed text for Code at Stage.
type AuthenticationError struct {
	Stage  string
	Code   uint32
	Reason string
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("%s failed: %s", e.Stage, e.Reason)
}

// Authentication stages.
const (
	StageRelay         = "relay"
	StageVersionCheck  = "version check"
	StageKeyCheck      = "key check"
	StageLogon         = "logon"
	StageLogonProof    = "logon proof"
	StageCreateAccount = "account creation"
	StageChangePass    = "password change"
)

// AUTH_CHECK result bits.
const (
	authCheckVersionError  uint32 = 0x100
	authCheckKeyError      uint32 = 0x200
	authCheckErrorMask     uint32 = 0x00F
	authCheckKeyNumberMask uint32 = 0x0F0
	authCheckVersionCode   uint32 = 0x0FF
)

// authCheckReason renders an AUTH_CHECK failure as the client shows it,
// e.g. "Expansion CD-key is banned (someone)."
func authCheckReason(code uint32, extra string) string {
	var text string
	switch {
	case code&authCheckVersionError != 0:
		switch code & authCheckErrorMask {
		case 0x0:
			text = "Old version"
		case 0x2:
			text = "New version"
		default:
			text = "Version invalid"
		}
	case code&authCheckKeyError != 0:
		switch code & authCheckErrorMask {
		case 0x1:
			text = "CD-key is in use"
		case 0x2:
			text = "CD-key is banned"
		case 0x3:
			text = "CD-key is for another game"
		default:
			text = "CD-key invalid"
		}
		if (code&authCheckKeyNumberMask)>>4 == 1 {
			text = "Expansion " + text
		}
	case code&authCheckVersionCode != 0:
		text = "Version code invalid"
	default:
		text = "Authorization failed"
	}

	if extra != "" {
		return text + " (" + extra + ")."
	}
	return text + "."
}

func authCheckStage(code uint32) string {
	if code&authCheckKeyError != 0 {
		return StageKeyCheck
	}
	return StageVersionCheck
}

// Logon result codes shared by LOGONRESPONSE2 and the account logon pair.
const (
	logonSuccess        uint32 = 0x00
	logonDoesNotExist   uint32 = 0x01
	logonBadPassword    uint32 = 0x02
	logonUpgrade        uint32 = 0x05
	logonClosed         uint32 = 0x06
	logonRequiresEmail  uint32 = 0x0E
	logonCustomError    uint32 = 0x0F
	createSuccess       uint32 = 0x00
	createBadCharacters uint32 = 0x02
	createBannedWord    uint32 = 0x03
	createExists        uint32 = 0x04
	createNotEnoughAlnm uint32 = 0x06
)

func closedReason(info string) string {
	if info == "" {
		return "Account closed"
	}
	return "Account closed: " + info
}

func logonResponseReason(code uint32, info string) string {
	switch code {
	case logonDoesNotExist:
		return "Account does not exist"
	case logonBadPassword:
		return "Password incorrect"
	case logonClosed:
		return closedReason(info)
	default:
		return "Account logon failure"
	}
}

func accountLogonReason(code uint32) string {
	switch code {
	case logonDoesNotExist:
		return "Account does not exist"
	case logonUpgrade:
		return "Account requires upgrade"
	default:
		return "Account logon failure"
	}
}

func logonProofReason(code uint32, info string) string {
	switch code {
	case logonBadPassword:
		return "Password incorrect"
	case logonClosed:
		return closedReason(info)
	case logonCustomError:
		if info != "" {
			return info
		}
		return "Account logon failure"
	default:
		return "Account logon failure"
	}
}

func createAccountReason(code uint32) string {
	switch code {
	case createBadCharacters:
		return "Account name contains an illegal character"
	case createBannedWord:
		return "Account name contains a banned word"
	case createExists:
		return "Account name in use"
	case createNotEnoughAlnm:
		return "Account name does not contain enough alphanumeric characters"
	default:
		return "Account create failure"
	}
}

// ErrorClass names the kind of failure that ended a session.
func ErrorClass(err error) string {
	if err == nil {
		return "closed"
	}
	var (
		authErr   *AuthenticationError
		netErr    *network.NetworkError
		desyncErr *protocol.ProtocolDesyncError
	)
	switch {
	case errors.As(err, &authErr):
		return "authentication"
	case errors.As(err, &desyncErr):
		return "desync"
	case errors.As(err, &netErr):
		return "network"
	default:
		return "protocol"
	}
}
