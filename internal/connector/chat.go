package connector

import (
	"context"
	"fmt"
	"strings"

	"github.com/energizer-project/bnetchat/internal/events"
	"github.com/energizer-project/bnetchat/internal/lookup"
	"github.com/energizer-project/bnetchat/internal/protocol"
	"github.com/energizer-project/bnetchat/internal/roster"
)

func (s *Session) handleChatFrame(ctx context.Context, f protocol.Frame) error {
	pkt, err := s.parser.ParseChatFrame(f)
	if err != nil {
		return fmt.Errorf("failed to parse chat packet 0x%02x: %w", f.ID, err)
	}

	switch p := pkt.(type) {
	case *protocol.AuthInfoResponse:
		return s.onAuthInfo(p)
	case *protocol.ResultResponse:
		return s.onResult(p)
	case *protocol.AccountLogonResponse:
		return s.onAccountLogon(p)
	case *protocol.EnterChatResponse:
		s.uniqueName = p.UniqueName
		s.logger.Info().Str("unique_name", p.UniqueName).Msg("entered chat")
	case *protocol.ChannelList:
		s.channels = p.Channels
		s.emit(events.EventChannelList, events.ChannelListPayload{SessionID: s.id, Channels: p.Channels})
	case *protocol.ChatEvent:
		return s.onChatEvent(p)
	case *protocol.MessageBox:
		s.onMessageBox(p)
	case *protocol.Ping:
		return s.sendChat(protocol.BuildPing(p.Cookie))
	case *protocol.ReadUserDataResponse:
		s.onUserData(p)
	case *protocol.FriendsList:
		return s.onFriendsList(p)
	case *protocol.FriendsUpdate:
		return s.onFriendsUpdate(p)
	case *protocol.FriendsAdd:
		return s.onFriendsAdd(p)
	case *protocol.FriendsRemove:
		s.onFriendsRemove(p)
	case *protocol.FriendsPosition:
		s.onFriendsPosition(p)
	case *protocol.FloodDetected:
		s.logger.Warn().Msg("server reported flooding")
		s.notice(events.SeverityError, "", "You have been disconnected for flooding.")
	case *protocol.KeepAlive:
	}
	return nil
}

func (s *Session) onResult(r *protocol.ResultResponse) error {
	switch r.ID {
	case protocol.SidAuthCheck:
		return s.onAuthCheck(r)
	case protocol.SidLogonResponse2:
		return s.onLogonResponse2(r)
	case protocol.SidCreateAccount2:
		return s.onCreateAccount(r)
	case protocol.SidChangePassword:
		return s.onChangePassword(r)
	case protocol.SidAuthAccountLogonPrf:
		return s.onAccountLogonProof(r)
	}
	return nil
}

// goOnline runs once, on the first chat event of the session.
func (s *Session) goOnline() error {
	s.inChat = true
	s.startKeepalive()

	if err := s.sendChat(protocol.BuildFriendsList()); err != nil {
		return err
	}
	switch {
	case s.awayMessage != "":
		return s.sendAway(s.awayMessage)
	case s.dndMessage != "":
		return s.sendDND(s.dndMessage)
	}
	return nil
}

func (s *Session) onChatEvent(ev *protocol.ChatEvent) error {
	if !s.inChat {
		if err := s.goOnline(); err != nil {
			return err
		}
	}

	who := roster.StripCharacter(ev.Who, s.product.IsDiablo2())
	text := string(ev.Text)
	channel := s.channel.Info().Name

	switch ev.EventID {
	case protocol.EidShowUser:
		user, added := s.channel.Show(who, ev.Flags, ev.Ping, ev.Text)
		t := events.EventUserUpdated
		if added {
			t = events.EventUserJoined
		}
		s.emit(t, events.UserPayload{SessionID: s.id, Channel: channel, User: user})

	case protocol.EidJoin:
		user := s.channel.Join(who, ev.Flags, ev.Ping, ev.Text)
		s.emit(events.EventUserJoined, events.UserPayload{SessionID: s.id, Channel: channel, User: user})

	case protocol.EidLeave:
		if s.channel.Leave(who) {
			s.emit(events.EventUserLeft, events.UserPayload{
				SessionID: s.id,
				Channel:   channel,
				User:      roster.ChannelUser{Name: who, Flags: ev.Flags, Ping: ev.Ping},
			})
		}

	case protocol.EidUserFlags:
		if user, ok := s.channel.UpdateFlags(who, ev.Flags, ev.Ping, ev.Text); ok {
			s.emit(events.EventUserUpdated, events.UserPayload{SessionID: s.id, Channel: channel, User: user})
		}

	case protocol.EidChannel:
		s.onChannel(text, ev.Flags)

	case protocol.EidWhisper:
		s.onWhisper(who, text, ev.Flags)

	case protocol.EidTalk:
		s.emit(events.EventChannelMessage, events.MessagePayload{
			SessionID: s.id, Channel: channel, From: who, Text: text, Flags: ev.Flags,
		})

	case protocol.EidEmote:
		s.emit(events.EventEmote, events.MessagePayload{
			SessionID: s.id, Channel: channel, From: who, Text: text, Flags: ev.Flags,
		})

	case protocol.EidBroadcast:
		s.notice(events.SeverityInfo, "Broadcast from "+ev.Who, text)

	case protocol.EidWhisperSent:
		s.pending.ClearWhisper()
		s.emit(events.EventWhisperSent, events.MessagePayload{
			SessionID: s.id, From: s.uniqueName, To: who, Text: text, Flags: ev.Flags,
		})

	case protocol.EidChannelFull:
		s.joinFailed("Channel is full")
	case protocol.EidChannelDoesNotExist:
		s.joinFailed("Channel does not exist")
	case protocol.EidChannelRestricted:
		s.joinFailed("Channel is restricted")

	case protocol.EidInfo:
		s.onInfo(text)
	case protocol.EidError:
		s.onError(text)

	default:
		s.logger.Warn().Uint32("event_id", ev.EventID).Str("who", ev.Who).Msg("unknown chat event")
	}
	return nil
}

func (s *Session) onChannel(name string, flags uint32) {
	change := s.channel.Enter(name, flags)
	if change.Left != nil {
		s.emit(events.EventChannelLeft, events.ChannelPayload{SessionID: s.id, Channel: *change.Left})
	}
	if change.Joined {
		s.logger.Info().Str("channel", name).Msg("joined channel")
		s.emit(events.EventChannelJoined, events.ChannelPayload{SessionID: s.id, Channel: change.Channel})
	} else {
		s.logger.Info().Str("channel", name).Msg("entered first channel")
	}
	s.joinAttempt = ""
	s.flushWelcome()
}

func (s *Session) flushWelcome() {
	if len(s.welcome) == 0 {
		return
	}
	s.notice(events.SeverityInfo, "Welcome", strings.Join(s.welcome, "\n"))
	s.welcome = nil
}

func (s *Session) joinFailed(reason string) {
	s.logger.Warn().Str("channel", s.joinAttempt).Str("reason", reason).Msg("channel join failed")
	s.emit(events.EventJoinFailed, events.JoinFailedPayload{
		SessionID: s.id,
		Channel:   s.joinAttempt,
		Reason:    reason,
	})
	s.joinAttempt = ""
}

func (s *Session) onWhisper(who, text string, flags uint32) {
	if s.chatCfg.HideMutualNotices {
		if m, ok := roster.Classify(text); ok && m.Kind == roster.MatchMutualFriend &&
			roster.Normalize(m.User) == roster.Normalize(who) {
			s.logger.Debug().Str("friend", who).Msg("mutual friend notice hidden")
			return
		}
	}
	s.emit(events.EventWhisperReceived, events.MessagePayload{
		SessionID: s.id, From: who, To: s.uniqueName, Text: text, Flags: flags,
	})
}

func (s *Session) onInfo(text string) {
	if text == "" {
		return
	}
	if m, ok := roster.Classify(text); ok && s.consumeInfo(m, text) {
		return
	}
	if s.channel.Info().ID == 0 {
		s.welcome = append(s.welcome, text)
		return
	}
	s.notice(events.SeverityInfo, "", text)
}

// consumeInfo applies a classified server message. It reports whether the
// message answered something the session asked for and should not be shown.
func (s *Session) consumeInfo(m roster.Match, text string) bool {
	switch m.Kind {
	case roster.MatchWhois:
		if s.friends.AutoLookupPending(roster.StripCharacter(m.User, s.product.IsDiablo2())) {
			return true
		}
		if subject, ok := s.pending.Lookup(); ok {
			s.emitLookup(subject, lookup.WhoisPairs(m))
			return true
		}

	case roster.MatchAway, roster.MatchDND:
		user := roster.StripCharacter(m.User, s.product.IsDiablo2())
		if user == "" {
			user = s.username
		}
		known, automated := s.friends.RecordStatusMessage(user, m.Message)
		if known {
			if i, f, ok := s.friends.Find(user); ok {
				s.emit(events.EventFriendStatus, events.FriendStatusPayload{SessionID: s.id, Index: i, Friend: f})
			}
		}
		if automated {
			return true
		}
		if subject, ok := s.pending.Lookup(); ok {
			s.emitLookup(subject, lookup.WhoisPairs(m))
			return true
		}
		if target, ok := s.pending.Whisper(); ok {
			label := "Away"
			if m.Kind == roster.MatchDND {
				label = "Do Not Disturb"
			}
			s.emit(events.EventWhisperReceived, events.MessagePayload{
				SessionID: s.id,
				From:      target,
				To:        s.uniqueName,
				Text:      fmt.Sprintf("%s (%s)", label, m.Message),
			})
			s.pending.ClearWhisper()
			return true
		}

	case roster.MatchAwayToggle:
		if m.State == "still" {
			if _, ok := s.pending.Whisper(); ok {
				s.notice(events.SeverityInfo, "", text)
				return true
			}
			return false
		}
		s.isAway = m.State == "now"
		if s.settingAway {
			s.settingAway = false
			return true
		}

	case roster.MatchDNDToggle:
		s.isDND = m.State == "engaged"
		if s.settingDND {
			s.settingDND = false
			return true
		}

	case roster.MatchUnavailable:
		if _, ok := s.pending.Whisper(); ok {
			s.notice(events.SeverityError, "", fmt.Sprintf("%s did not receive your whisper.", m.User))
			s.pending.ClearWhisper()
			return true
		}
	}
	return false
}

func (s *Session) onError(text string) {
	if text == roster.NotLoggedOnText {
		if subject, ok := s.pending.Lookup(); ok {
			s.emitLookup(subject, lookup.WhoisPairs(roster.Match{Kind: roster.MatchNotLoggedOn}))
			s.pending.ClearLookup()
			return
		}
		if target, ok := s.pending.Whisper(); ok {
			s.notice(events.SeverityError, "", fmt.Sprintf("%s did not receive your whisper: %s", target, text))
			s.pending.ClearWhisper()
			return
		}
	}
	s.notice(events.SeverityError, "", text)
}

func (s *Session) emitLookup(subject string, pairs []lookup.Pair) {
	s.emit(events.EventLookupResult, events.LookupPayload{SessionID: s.id, Subject: subject, Pairs: pairs})
}

func (s *Session) onMessageBox(p *protocol.MessageBox) {
	severity := events.SeverityInfo
	switch p.Style & 0xF0 {
	case protocol.MessageBoxIconError:
		severity = events.SeverityError
	case protocol.MessageBoxIconWarning:
		severity = events.SeverityWarning
	}
	s.notice(severity, "Battle.net error: "+p.Caption, p.Text)
}

func (s *Session) onUserData(p *protocol.ReadUserDataResponse) {
	res, err := s.correlator.Resolve(p)
	if err != nil {
		s.logger.Warn().Err(err).Uint32("cookie", p.Cookie).Msg("malformed user data response")
		return
	}
	if res == nil {
		return
	}

	req := res.Request
	if req.ForEdit {
		sex, _ := res.Value(lookup.KeyProfileSex)
		location, _ := res.Value(lookup.KeyProfileLocation)
		description, _ := res.Value(lookup.KeyProfileDescription)
		s.emit(events.EventProfileForEdit, events.ProfilePayload{
			SessionID:   s.id,
			Account:     req.Account,
			Sex:         sex,
			Location:    location,
			Description: description,
		})
		return
	}
	s.emitLookup(req.Subject, lookup.Present(res))
}

func (s *Session) autoLookup(account string) error {
	frame, err := s.encoder.Whois(account)
	if err != nil {
		s.logger.Warn().Err(err).Str("friend", account).Msg("cannot look up friend status")
		return nil
	}
	return s.sendChat(frame)
}

func (s *Session) emitFriends() {
	s.emit(events.EventFriendsChanged, events.FriendsPayload{SessionID: s.id, Friends: s.friends.Snapshot()})
}

func (s *Session) onFriendsList(p *protocol.FriendsList) error {
	changes := s.friends.Replace(p.Friends)
	s.emitFriends()
	for _, c := range changes {
		if c.Lookup {
			if err := s.autoLookup(c.Friend.Account); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Session) onFriendsUpdate(p *protocol.FriendsUpdate) error {
	change, err := s.friends.Update(int(p.Index), p.Record)
	if err != nil {
		s.logger.Warn().Err(err).Msg("friend update ignored")
		return nil
	}
	s.emit(events.EventFriendStatus, events.FriendStatusPayload{SessionID: s.id, Index: change.Index, Friend: change.Friend})
	if change.Lookup {
		return s.autoLookup(change.Friend.Account)
	}
	return nil
}

func (s *Session) onFriendsAdd(p *protocol.FriendsAdd) error {
	change := s.friends.Append(p.Record)
	s.emitFriends()
	if change.Lookup {
		return s.autoLookup(change.Friend.Account)
	}
	return nil
}

func (s *Session) onFriendsRemove(p *protocol.FriendsRemove) {
	if _, err := s.friends.RemoveAt(int(p.Index)); err != nil {
		s.logger.Warn().Err(err).Msg("friend removal ignored")
		return
	}
	s.emitFriends()
}

func (s *Session) onFriendsPosition(p *protocol.FriendsPosition) {
	if err := s.friends.Move(int(p.Old), int(p.New)); err != nil {
		s.logger.Warn().Err(err).Msg("friend move ignored")
		return
	}
	s.emitFriends()
}
