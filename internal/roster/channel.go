package roster

import (
	"strings"

	"github.com/energizer-project/bnetchat/internal/protocol"
)

// ChannelUser is one member of the current channel.
type ChannelUser struct {
	Name  string
	Flags uint32
	Ping  int32
	Stats []byte
}

// Product returns the product the member is logged on with.
func (u ChannelUser) Product() protocol.Product {
	return protocol.ProductFromStats(u.Stats)
}

// Capabilities lists the member's channel roles, or "Normal" when it has none.
func (u ChannelUser) Capabilities() string {
	var caps []string
	if u.Flags&protocol.UserFlagBlizzRep != 0 {
		caps = append(caps, "Blizzard Representative")
	}
	if u.Flags&protocol.UserFlagOperator != 0 {
		caps = append(caps, "Channel Operator")
	}
	if u.Flags&protocol.UserFlagBnetAdmin != 0 {
		caps = append(caps, "Battle.net Administrator")
	}
	if u.Flags&protocol.UserFlagNoUDP != 0 {
		caps = append(caps, "No UDP Support")
	}
	if u.Flags&protocol.UserFlagSquelch != 0 {
		caps = append(caps, "Squelched")
	}
	if len(caps) == 0 {
		return "Normal"
	}
	return strings.Join(caps, ", ")
}

// ChannelInfo identifies a channel.
type ChannelInfo struct {
	ID    uint32
	Name  string
	Flags uint32
}

// ChannelChange is the outcome of a channel-changed event. Left is set when
// the previous channel should be reported as left; Joined is false when the
// join notification is suppressed.
type ChannelChange struct {
	Left    *ChannelInfo
	Channel ChannelInfo
	Joined  bool
}

// Channel holds the current channel and its members, in arrival order.
type Channel struct {
	info      ChannelInfo
	users     []*ChannelUser
	firstJoin bool
}

// Reset arms the first-join suppression for a new logon.
func (c *Channel) Reset() {
	c.info = ChannelInfo{}
	c.users = nil
	c.firstJoin = true
}

// Enter replaces the current channel. Every member is dropped, since the
// server re-announces the new channel's members.
func (c *Channel) Enter(name string, flags uint32) ChannelChange {
	var change ChannelChange
	thisFirst := false

	if c.firstJoin {
		c.firstJoin = false
		thisFirst = true
	} else if c.info.ID != 0 {
		prev := c.info
		change.Left = &prev
	}

	c.users = nil

	// Clan channels always notify, even on the first join. Kept from the
	// legacy client; the server behaviour it works around is unconfirmed.
	norm := Normalize(name)
	if len(norm) >= 6 && strings.HasPrefix(norm, "clan ") {
		thisFirst = false
	}

	c.info = ChannelInfo{ID: StringHash(norm), Name: name, Flags: flags}
	change.Channel = c.info
	change.Joined = !thisFirst
	return change
}

// Info returns the current channel. ID is zero before the first join.
func (c *Channel) Info() ChannelInfo {
	return c.info
}

func (c *Channel) find(name string) int {
	norm := Normalize(name)
	for i, u := range c.users {
		if Normalize(u.Name) == norm {
			return i
		}
	}
	return -1
}

// Show records a member announced as already present. A known member is
// updated in place; stats are only replaced when the event carries some.
func (c *Channel) Show(name string, flags uint32, ping int32, stats []byte) (user ChannelUser, added bool) {
	if i := c.find(name); i >= 0 {
		u := c.users[i]
		u.Flags = flags
		u.Ping = ping
		if len(stats) > 0 {
			u.Stats = stats
		}
		return *u, false
	}
	u := &ChannelUser{Name: name, Flags: flags, Ping: ping, Stats: stats}
	c.users = append(c.users, u)
	return *u, true
}

// Join records a member entering the channel. A stale entry under the same
// name is dropped first so names stay unique.
func (c *Channel) Join(name string, flags uint32, ping int32, stats []byte) ChannelUser {
	if i := c.find(name); i >= 0 {
		c.users = append(c.users[:i], c.users[i+1:]...)
	}
	u := &ChannelUser{Name: name, Flags: flags, Ping: ping, Stats: stats}
	c.users = append(c.users, u)
	return *u
}

// Leave removes a member. It reports false if the name was not present.
func (c *Channel) Leave(name string) bool {
	i := c.find(name)
	if i < 0 {
		return false
	}
	c.users = append(c.users[:i], c.users[i+1:]...)
	return true
}

// UpdateFlags changes a present member's flags, ping and, when given, stats.
func (c *Channel) UpdateFlags(name string, flags uint32, ping int32, stats []byte) (ChannelUser, bool) {
	i := c.find(name)
	if i < 0 {
		return ChannelUser{}, false
	}
	u := c.users[i]
	u.Flags = flags
	u.Ping = ping
	if len(stats) > 0 {
		u.Stats = stats
	}
	return *u, true
}

// User looks up a member by name.
func (c *Channel) User(name string) (ChannelUser, bool) {
	i := c.find(name)
	if i < 0 {
		return ChannelUser{}, false
	}
	return *c.users[i], true
}

// Users returns a copy of the member list.
func (c *Channel) Users() []ChannelUser {
	out := make([]ChannelUser, len(c.users))
	for i, u := range c.users {
		out[i] = *u
	}
	return out
}

// Len returns the number of members.
func (c *Channel) Len() int {
	return len(c.users)
}
