package connector

import (
	"context"
	"fmt"
	"time"

	"github.com/energizer-project/bnetchat/internal/auth"
	"github.com/energizer-project/bnetchat/internal/events"
	"github.com/energizer-project/bnetchat/internal/protocol"
)

// relayKeyCookie tags the CDKEY_EX request. Only one is ever in flight.
const relayKeyCookie byte = 0x01

// connectRelay opens the relay link and asks for the version byte. The
// chat server is dialed once the relay answers.
func (s *Session) connectRelay(ctx context.Context) error {
	s.setState(StateRelayConnecting)
	addr := s.servers.RelayAddr()
	s.logger.Info().Str("addr", addr).Msg("connecting to logon relay")

	link, err := s.dial(ctx, protocol.KindRelay, addr)
	if err != nil {
		return err
	}
	s.relay = NewRelayClient(link, s.product)
	s.pump(link, s.relayFrames)

	if err := s.relay.RequestVersionByte(); err != nil {
		return err
	}
	s.setState(StateRelayVersionQuery)
	return nil
}

func (s *Session) handleRelayFrame(ctx context.Context, f protocol.Frame) error {
	if s.relay == nil {
		s.logger.Debug().Uint8("id", f.ID).Msg("relay frame after relay closed")
		return nil
	}
	pkt, err := s.relay.Parse(f)
	if err != nil {
		return fmt.Errorf("failed to parse relay packet 0x%02x: %w", f.ID, err)
	}

	switch p := pkt.(type) {
	case *protocol.VersionByteResponse:
		return s.onVersionByte(ctx, p)
	case *protocol.VersionCheckResponse:
		return s.onVersionCheck(ctx, p)
	case *protocol.CDKeyExResponse:
		return s.onRelayKeys(p)
	case *protocol.RevisionResponse:
		return s.onRevision(p)
	case *protocol.LogonChallengeResponse:
		return s.sendFrame(protocol.BuildAccountLogon(p.A, s.username))
	case *protocol.LogonProofResponse:
		return s.sendChat(protocol.BuildAccountLogonProof(p.M1))
	}
	return nil
}

func (s *Session) onVersionByte(ctx context.Context, p *protocol.VersionByteResponse) error {
	if p.Product == 0 {
		return &AuthenticationError{
			Stage:  StageRelay,
			Reason: fmt.Sprintf("Logon relay does not support %s", s.product.Name()),
		}
	}
	s.versionCode = p.VersionCode
	return s.connectChat(ctx)
}

// connectChat dials the chat server, sends the protocol byte and opens
// the logon with AUTH_INFO.
func (s *Session) connectChat(ctx context.Context) error {
	s.setState(StateChatConnecting)
	addr := s.servers.ChatAddr(s.server)
	s.logger.Info().Str("addr", addr).Str("product", s.product.Name()).Msg("connecting to chat server")

	link, err := s.dial(ctx, protocol.KindChat, addr)
	if err != nil {
		return err
	}
	s.chat = link
	s.pump(link, s.chatFrames)

	if err := s.chat.Write([]byte{protocol.ProtocolByteGame}); err != nil {
		return err
	}
	s.setState(StateProtocolByteSent)

	_, offset := time.Now().Zone()
	return s.sendChat(protocol.BuildAuthInfo(protocol.AuthInfo{
		Product:     s.product,
		VersionCode: s.versionCode,
		LocalIP:     link.LocalIPv4(),
		TZBias:      uint32(int32(-offset / 60)),
	}))
}

func (s *Session) onAuthInfo(p *protocol.AuthInfoResponse) error {
	s.logonType = p.LogonType
	s.serverToken = p.ServerToken
	s.setState(StateAuthInfoExchanged)
	s.logger.Debug().Uint32("logon_type", p.LogonType).Msg("received logon challenge")

	if s.relay == nil {
		return &AuthenticationError{Stage: StageRelay, Reason: "Logon relay is not connected"}
	}
	return s.relay.VersionCheck(p)
}

func (s *Session) onVersionCheck(ctx context.Context, p *protocol.VersionCheckResponse) error {
	if !p.Success {
		return &AuthenticationError{Stage: StageVersionCheck, Reason: "Logon relay could not check the game version"}
	}
	s.exeVersion = p.ExeVersion
	s.exeChecksum = p.ExeChecksum
	s.exeInfo = p.ExeInfo
	s.versionCode = p.VersionCode

	if s.product.KeyCount() == 0 {
		return s.sendAuthCheck()
	}

	keys, err := auth.SelectKeys(s.product, s.account.CDKey, s.account.CDKeyExpansion)
	if err != nil {
		return &AuthenticationError{Stage: StageKeyCheck, Reason: err.Error()}
	}
	s.keys = keys

	if s.keyDecoder != nil {
		blocks, err := s.keyDecoder.DecodeKeys(ctx, auth.KeyRequest{
			Product:     s.product,
			ClientToken: s.clientToken,
			ServerToken: s.serverToken,
			Keys:        keys,
		})
		if err != nil {
			return &AuthenticationError{Stage: StageKeyCheck, Reason: err.Error()}
		}
		s.keyBlocks = blocks
		return s.sendAuthCheck()
	}

	return s.relay.DecodeKeys(relayKeyCookie, s.serverToken, s.clientToken, keys)
}

func (s *Session) onRelayKeys(p *protocol.CDKeyExResponse) error {
	for i := range s.keys {
		if p.Bitmask&(1<<uint(i)) == 0 {
			err := &auth.KeyDecodeError{Index: i}
			return &AuthenticationError{Stage: StageKeyCheck, Reason: err.Error()}
		}
	}
	if len(p.Keys) < len(s.keys) {
		return &AuthenticationError{Stage: StageKeyCheck, Reason: "Logon relay returned too few CD-key hashes"}
	}
	s.keyBlocks = p.Keys
	return s.sendAuthCheck()
}

func (s *Session) sendAuthCheck() error {
	return s.sendFrame(protocol.BuildAuthCheck(
		s.clientToken, s.exeVersion, s.exeChecksum,
		s.keyBlocks, s.exeInfo, s.account.EffectiveKeyOwner(s.username)))
}

func (s *Session) onAuthCheck(r *protocol.ResultResponse) error {
	if r.Result != 0 {
		return &AuthenticationError{
			Stage:  authCheckStage(r.Result),
			Code:   r.Result,
			Reason: authCheckReason(r.Result, r.Info),
		}
	}
	s.setState(StateVersionAndKeyChecked)
	return s.accountLogon()
}

// accountLogon picks the logon path for the account's revision.
func (s *Session) accountLogon() error {
	s.setState(StateAccountLogonInProgress)

	if s.account.NewPassword != "" {
		if s.logonType != 0 {
			return &AuthenticationError{Stage: StageChangePass, Reason: "Password change is only supported by the legacy logon"}
		}
		oldHash := auth.DoubleHash(s.hasher, s.clientToken, s.serverToken, s.account.Password)
		newHash := s.hasher.Hash([]byte(s.account.NewPassword))
		return s.sendFrame(protocol.BuildChangePassword(s.clientToken, s.serverToken, oldHash, newHash, s.username))
	}

	if s.logonType == 0 {
		hash := auth.DoubleHash(s.hasher, s.clientToken, s.serverToken, s.account.Password)
		return s.sendFrame(protocol.BuildLogonResponse2(s.clientToken, s.serverToken, hash, s.username))
	}
	if s.relay == nil {
		return &AuthenticationError{Stage: StageRelay, Reason: "Logon relay is not connected"}
	}
	return s.relay.ChooseRevision(s.logonType)
}

func (s *Session) onRevision(p *protocol.RevisionResponse) error {
	if !p.Accepted {
		return &AuthenticationError{Stage: StageRelay, Code: s.logonType, Reason: "Logon relay does not support this logon revision"}
	}
	return s.relay.LogonChallenge(s.username, s.account.Password)
}

func (s *Session) onLogonResponse2(r *protocol.ResultResponse) error {
	switch {
	case r.Result == logonSuccess:
		return s.enterChat()
	case r.Result == logonDoesNotExist && s.account.Register:
		s.logger.Info().Msg("account does not exist, creating it")
		hash := s.hasher.Hash([]byte(s.account.Password))
		return s.sendFrame(protocol.BuildCreateAccount2(hash, s.username))
	default:
		return &AuthenticationError{Stage: StageLogon, Code: r.Result, Reason: logonResponseReason(r.Result, r.Info)}
	}
}

func (s *Session) onAccountLogon(p *protocol.AccountLogonResponse) error {
	if p.Result != logonSuccess {
		return &AuthenticationError{Stage: StageLogon, Code: p.Result, Reason: accountLogonReason(p.Result)}
	}
	if s.relay == nil {
		return &AuthenticationError{Stage: StageRelay, Reason: "Logon relay is not connected"}
	}
	s.setState(StateAccountLogonProofInProgress)
	return s.relay.LogonProof(p.SaltAndB)
}

func (s *Session) onAccountLogonProof(r *protocol.ResultResponse) error {
	switch r.Result {
	case logonSuccess:
		return s.enterChat()
	case logonRequiresEmail:
		s.notice(events.SeverityInfo, "", "This account has no email address registered.")
		return s.enterChat()
	default:
		return &AuthenticationError{Stage: StageLogonProof, Code: r.Result, Reason: logonProofReason(r.Result, r.Info)}
	}
}

func (s *Session) onCreateAccount(r *protocol.ResultResponse) error {
	if r.Result != createSuccess {
		return &AuthenticationError{Stage: StageCreateAccount, Code: r.Result, Reason: createAccountReason(r.Result)}
	}
	s.logger.Info().Msg("account created")
	s.notice(events.SeverityInfo, "Account created",
		fmt.Sprintf("Account %s was created. Connect again to log on.", s.username))
	return errSessionComplete
}

func (s *Session) onChangePassword(r *protocol.ResultResponse) error {
	if r.Result != 1 {
		return &AuthenticationError{Stage: StageChangePass, Code: r.Result, Reason: "Password change failed"}
	}
	s.logger.Info().Msg("password changed")
	s.notice(events.SeverityInfo, "Password changed",
		fmt.Sprintf("The password of %s was changed. Connect again with the new password.", s.username))
	return errSessionComplete
}

// enterChat closes the relay and issues the chat entry requests. None of
// them are acknowledged; chat events drive the session from here.
func (s *Session) enterChat() error {
	if s.relay != nil {
		s.relay.Close()
		s.relay = nil
	}
	s.setState(StateChatEntryRequested)

	s.channel.Reset()
	s.joinAttempt = s.chatCfg.DefaultChannel
	if err := s.sendFrame(protocol.BuildEnterChat(s.username)); err != nil {
		return err
	}
	if err := s.sendChat(protocol.BuildGetChannelList(s.product)); err != nil {
		return err
	}
	if err := s.sendFrame(protocol.BuildJoinChannel(protocol.JoinD2First, s.chatCfg.DefaultChannel)); err != nil {
		return err
	}
	s.setState(StateOnline)
	return nil
}
