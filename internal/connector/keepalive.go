package connector

import (
	"time"

	"github.com/energizer-project/bnetchat/internal/protocol"
)

const (
	keepaliveInterval = 30 * time.Second
	// Every 16th tick sends SID_NULL, every 2nd refreshes the friends list.
	nullEveryTicks    = 16
	friendsEveryTicks = 2
)

func (s *Session) startKeepalive() {
	if s.keepalive != nil {
		return
	}
	s.ticks = 0
	s.keepalive = time.NewTicker(keepaliveInterval)
}

func (s *Session) stopKeepalive() {
	if s.keepalive == nil {
		return
	}
	s.keepalive.Stop()
	s.keepalive = nil
}

// onKeepalive runs on every tick while the session is in chat.
func (s *Session) onKeepalive() error {
	s.ticks++
	s.logger.Trace().Uint32("tick", s.ticks).Msg("keepalive")

	if s.ticks%nullEveryTicks == 0 {
		if err := s.sendChat(protocol.BuildNull()); err != nil {
			return err
		}
	}
	if s.ticks%friendsEveryTicks == 0 {
		return s.sendChat(protocol.BuildFriendsList())
	}
	return nil
}
