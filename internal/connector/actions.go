package connector

import (
	"context"

	"github.com/energizer-project/bnetchat/internal/commands"
	"github.com/energizer-project/bnetchat/internal/events"
	"github.com/energizer-project/bnetchat/internal/lookup"
	"github.com/energizer-project/bnetchat/internal/protocol"
	"github.com/energizer-project/bnetchat/internal/roster"
)

// Status is a point-in-time view of the session for hosts.
type Status struct {
	SessionID  string             `json:"session_id"`
	State      State              `json:"state"`
	Account    string             `json:"account"`
	UniqueName string             `json:"unique_name"`
	Product    string             `json:"product"`
	Channel    roster.ChannelInfo `json:"channel"`
	Users      int                `json:"users"`
	Friends    int                `json:"friends"`
	Away       bool               `json:"away"`
	DND        bool               `json:"dnd"`
}

// Status returns the current session status.
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Status{
		SessionID:  s.id,
		State:      s.state,
		Account:    s.username,
		UniqueName: s.uniqueName,
		Product:    s.product.Name(),
		Channel:    s.channel.Info(),
		Users:      s.channel.Len(),
		Friends:    s.friends.Len(),
		Away:       s.isAway,
		DND:        s.isDND,
	}
}

// ChannelUsers returns the members of the current channel.
func (s *Session) ChannelUsers() []roster.ChannelUser {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.channel.Users()
}

// Friends returns the friends list in server order.
func (s *Session) Friends() []roster.Friend {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.friends.Snapshot()
}

// Channels returns the channel list the server sent at chat entry.
func (s *Session) Channels() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.channels...)
}

// requireChat fails actions issued before the session reached chat.
func (s *Session) requireChat() error {
	if s.chat == nil || s.state != StateOnline {
		return commands.ErrNotConnected
	}
	return nil
}

// send paces frame through the flood limiter and then writes it from the
// dispatcher, running before first.
func (s *Session) send(ctx context.Context, frame []byte, before func()) error {
	if err := s.flood.Wait(ctx, frame); err != nil {
		return err
	}
	return s.do(ctx, func() error {
		if err := s.requireChat(); err != nil {
			return err
		}
		if before != nil {
			before()
		}
		return s.sendChat(frame)
	})
}

// SendChannelMessage says text in the current channel.
func (s *Session) SendChannelMessage(ctx context.Context, text string) error {
	frame, err := s.encoder.Say(text)
	if err != nil {
		return err
	}
	return s.send(ctx, frame, func() {
		s.emit(events.EventChannelMessage, events.MessagePayload{
			SessionID: s.id,
			Channel:   s.channel.Info().Name,
			From:      s.uniqueName,
			Text:      text,
		})
	})
}

// SendWhisper sends a private message. The server confirms it with a
// whisper-sent event or bounces it with an error.
func (s *Session) SendWhisper(ctx context.Context, who, text string) error {
	frame, err := s.encoder.Whisper(who, text)
	if err != nil {
		return err
	}
	return s.send(ctx, frame, func() { s.pending.SetWhisper(who) })
}

// SendEmote sends an emote to the current channel.
func (s *Session) SendEmote(ctx context.Context, text string) error {
	frame, err := s.encoder.Emote(text)
	if err != nil {
		return err
	}
	return s.send(ctx, frame, nil)
}

// JoinChannel moves to another channel, leaving the current one.
func (s *Session) JoinChannel(ctx context.Context, channel string) error {
	frame, err := s.encoder.Join(channel)
	if err != nil {
		return err
	}
	return s.send(ctx, frame, func() { s.joinAttempt = channel })
}

// Rejoin leaves and re-enters the current channel.
func (s *Session) Rejoin(ctx context.Context) error {
	s.mu.RLock()
	name := s.channel.Info().Name
	s.mu.RUnlock()
	if name == "" {
		return commands.ErrNotConnected
	}
	return s.JoinChannel(ctx, name)
}

func (s *Session) sendAway(message string) error {
	frame, err := s.encoder.Away(message)
	if err != nil {
		return err
	}
	s.settingAway = true
	return s.sendChat(frame)
}

func (s *Session) sendDND(message string) error {
	frame, err := s.encoder.DND(message)
	if err != nil {
		return err
	}
	s.settingDND = true
	return s.sendChat(frame)
}

// SetAway marks the account away, leaving do-not-disturb first. An empty
// message uses the configured default.
func (s *Session) SetAway(ctx context.Context, message string) error {
	if message == "" {
		message = s.chatCfg.AwayMessage
	}
	if err := commands.ValidateMessage(message); err != nil {
		return err
	}
	return s.do(ctx, func() error {
		if err := s.requireChat(); err != nil {
			return err
		}
		if s.isDND {
			if err := s.sendDND(""); err != nil {
				return err
			}
			s.dndMessage = ""
		}
		s.awayMessage = message
		return s.sendAway(message)
	})
}

// SetDND refuses whispers, leaving away first. An empty message uses the
// configured default.
func (s *Session) SetDND(ctx context.Context, message string) error {
	if message == "" {
		message = s.chatCfg.DNDMessage
	}
	if err := commands.ValidateMessage(message); err != nil {
		return err
	}
	return s.do(ctx, func() error {
		if err := s.requireChat(); err != nil {
			return err
		}
		if s.isAway {
			if err := s.sendAway(""); err != nil {
				return err
			}
			s.awayMessage = ""
		}
		s.dndMessage = message
		return s.sendDND(message)
	})
}

// SetAvailable clears away and do-not-disturb.
func (s *Session) SetAvailable(ctx context.Context) error {
	return s.do(ctx, func() error {
		if err := s.requireChat(); err != nil {
			return err
		}
		if s.isAway {
			if err := s.sendAway(""); err != nil {
				return err
			}
		}
		if s.isDND {
			if err := s.sendDND(""); err != nil {
				return err
			}
		}
		s.awayMessage, s.dndMessage = "", ""
		return nil
	})
}

// GetInfo looks a user up: channel data at once, then the whois answer and
// the profile and record values as they arrive.
func (s *Session) GetInfo(ctx context.Context, name string) error {
	if err := commands.ValidateName("user", name); err != nil {
		return err
	}
	return s.do(ctx, func() error {
		if err := s.requireChat(); err != nil {
			return err
		}
		return s.lookupUser(name)
	})
}

// lookupUser answers from channel data when the user is in the channel and
// asks the server with /whois otherwise. The profile read always goes out.
func (s *Session) lookupUser(name string) error {
	product := s.product
	user, inChannel := s.channel.User(name)
	if inChannel {
		s.emitLookup(name, lookup.ChannelPairs(user, s.channel.Info().Name))
		if p := user.Product(); p != 0 {
			product = p
		}
	} else {
		if _, f, ok := s.friends.Find(name); ok && f.Product != 0 {
			product = f.Product
		}
		frame, err := s.encoder.Whois(name)
		if err != nil {
			return err
		}
		s.pending.SetLookup(name)
		if err := s.sendChat(frame); err != nil {
			return err
		}
	}

	account := roster.StripAccountNumber(roster.Normalize(name))
	self := account == roster.StripAccountNumber(roster.Normalize(s.username))
	keys, purpose := lookup.KeySet(product, self)
	req := s.correlator.Submit(lookup.Request{
		Subject: name,
		Account: account,
		Keys:    keys,
		Purpose: purpose,
		Product: product,
	})
	return s.sendFrame(protocol.BuildReadUserData(req.Cookie, req.Account, req.Keys))
}

// AddFriend adds account to the friends list.
func (s *Session) AddFriend(ctx context.Context, account string) error {
	frame, err := s.encoder.AddFriend(account)
	if err != nil {
		return err
	}
	return s.send(ctx, frame, nil)
}

// RemoveFriend removes account from the friends list.
func (s *Session) RemoveFriend(ctx context.Context, account string) error {
	frame, err := s.encoder.RemoveFriend(account)
	if err != nil {
		return err
	}
	return s.send(ctx, frame, nil)
}

// EditProfile reads the account's own profile; the values arrive as an
// EventProfileForEdit.
func (s *Session) EditProfile(ctx context.Context) error {
	return s.do(ctx, func() error {
		if err := s.requireChat(); err != nil {
			return err
		}
		req := s.correlator.Submit(lookup.Request{
			Subject: s.username,
			Account: s.username,
			Keys:    lookup.ProfileKeys,
			Purpose: lookup.PurposeProfile,
			Product: s.product,
			ForEdit: true,
		})
		return s.sendFrame(protocol.BuildReadUserData(req.Cookie, req.Account, req.Keys))
	})
}

// WriteProfile stores the account's own profile. The age field is always
// written empty.
func (s *Session) WriteProfile(ctx context.Context, sex, location, description string) error {
	for _, f := range []struct {
		name, value string
		multiline   bool
	}{
		{"sex", sex, false},
		{"location", location, false},
		{"description", description, true},
	} {
		if err := commands.ValidateProfileField(f.name, f.value, f.multiline); err != nil {
			return err
		}
	}

	values := []string{sex, "", location, description}
	return s.do(ctx, func() error {
		if err := s.requireChat(); err != nil {
			return err
		}
		return s.sendFrame(protocol.BuildWriteUserData(s.username, lookup.ProfileKeys, values))
	})
}

// Command sends a slash command typed by the user. Known commands update
// the session's expectations; unknown ones pass through unchanged.
func (s *Session) Command(ctx context.Context, line string) error {
	parsed, err := s.encoder.Parse(line)
	if err != nil {
		return err
	}
	if parsed.Kind() == commands.KindWhois {
		if err := commands.ValidateName("user", parsed.Target); err != nil {
			return err
		}
		return s.GetInfo(ctx, parsed.Target)
	}

	frame, err := parsed.Frame()
	if err != nil {
		return err
	}
	return s.send(ctx, frame, func() {
		switch parsed.Kind() {
		case commands.KindWhisper:
			s.pending.SetWhisper(parsed.Target)
		case commands.KindJoin:
			s.joinAttempt = parsed.Args
		case commands.KindAway:
			s.settingAway = true
			s.awayMessage = parsed.Args
		case commands.KindDND:
			s.settingDND = true
			s.dndMessage = parsed.Args
		}
	})
}
