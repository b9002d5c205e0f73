package roster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/energizer-project/bnetchat/internal/protocol"
)

func TestNormalizeNames(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{name: "ascii fold", got: Normalize("SomeOne[Clan]"), want: "someone[clan]"},
		{name: "d2 star prefix", got: StripCharacter("Necro*account", true), want: "account"},
		{name: "d2 parenthesised", got: StripCharacter("Necro (*account)", true), want: "account"},
		{name: "d2 bare star", got: StripCharacter("*account", true), want: "account"},
		{name: "non d2 untouched", got: StripCharacter("Necro*account", false), want: "Necro*account"},
		{name: "account number", got: StripAccountNumber("Ribose#2"), want: "Ribose"},
		{name: "account number with gateway", got: StripAccountNumber("Ribose#2@Azeroth"), want: "Ribose@Azeroth"},
		{name: "no account number", got: StripAccountNumber("Ribose@Azeroth"), want: "Ribose@Azeroth"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}

	assert.Equal(t, uint32(5381), StringHash(""))
	assert.Equal(t, uint32(5381*33+'a'), StringHash("a"))
	assert.Equal(t, ChannelID("Clan Test"), ChannelID("clan test"))
}

func TestChannelMembership(t *testing.T) {
	t.Run("join then leave with varied case", func(t *testing.T) {
		var c Channel
		c.Reset()
		c.Enter("Chat", 0)

		c.Join("SomeUser", 0, 50, []byte("RATS 0 0 0"))
		require.Equal(t, 1, c.Len())
		assert.True(t, c.Leave("someuser"))
		assert.Equal(t, 0, c.Len())
		assert.False(t, c.Leave("someuser"))
	})

	t.Run("show updates in place", func(t *testing.T) {
		var c Channel
		c.Reset()
		c.Enter("Chat", 0)

		_, added := c.Show("alpha", 0, 10, []byte("RATS 1"))
		assert.True(t, added)
		c.Show("beta", 0, 20, nil)

		u, added := c.Show("ALPHA", protocol.UserFlagOperator, 99, nil)
		assert.False(t, added)
		assert.Equal(t, 2, c.Len())
		assert.Equal(t, int32(99), u.Ping)
		assert.Equal(t, []byte("RATS 1"), u.Stats)
		assert.Equal(t, "alpha", c.Users()[0].Name)
	})

	t.Run("join keeps names unique", func(t *testing.T) {
		var c Channel
		c.Join("alpha", 0, 1, nil)
		c.Join("Alpha", 0, 2, nil)
		require.Equal(t, 1, c.Len())
		assert.Equal(t, int32(2), c.Users()[0].Ping)
	})

	t.Run("flags update only present members", func(t *testing.T) {
		var c Channel
		c.Join("alpha", 0, 1, nil)
		_, ok := c.UpdateFlags("ghost", protocol.UserFlagSquelch, 0, nil)
		assert.False(t, ok)
		u, ok := c.UpdateFlags("alpha", protocol.UserFlagSquelch, 5, []byte("PX3W"))
		require.True(t, ok)
		assert.Equal(t, "Squelched", u.Capabilities())
		assert.Equal(t, 1, c.Len())
	})
}

func TestChannelEnter(t *testing.T) {
	var c Channel
	c.Reset()

	first := c.Enter("Chat", 0)
	assert.False(t, first.Joined)
	assert.Nil(t, first.Left)
	assert.Equal(t, ChannelID("chat"), first.Channel.ID)

	c.Join("alpha", 0, 0, nil)

	second := c.Enter("Op Room", 0)
	require.NotNil(t, second.Left)
	assert.Equal(t, "Chat", second.Left.Name)
	assert.True(t, second.Joined)
	assert.Equal(t, 0, c.Len())

	var clan Channel
	clan.Reset()
	assert.True(t, clan.Enter("Clan Test", 0).Joined)
}

func TestCapabilities(t *testing.T) {
	assert.Equal(t, "Normal", ChannelUser{}.Capabilities())
	assert.Equal(t, "Blizzard Representative, Channel Operator",
		ChannelUser{Flags: protocol.UserFlagBlizzRep | protocol.UserFlagOperator}.Capabilities())
}

func names(l *FriendList) []string {
	var out []string
	for _, f := range l.Snapshot() {
		out = append(out, f.Account)
	}
	return out
}

func listOf(accounts ...string) *FriendList {
	var l FriendList
	recs := make([]protocol.FriendRecord, len(accounts))
	for i, a := range accounts {
		recs[i] = protocol.FriendRecord{Account: a}
	}
	l.Replace(recs)
	return &l
}

func TestFriendListMove(t *testing.T) {
	tests := []struct {
		name     string
		from, to int
		want     []string
	}{
		{name: "forward", from: 1, to: 3, want: []string{"a", "c", "d", "b", "e"}},
		{name: "backward", from: 3, to: 1, want: []string{"a", "d", "b", "c", "e"}},
		{name: "to front", from: 4, to: 0, want: []string{"e", "a", "b", "c", "d"}},
		{name: "to back", from: 0, to: 4, want: []string{"b", "c", "d", "e", "a"}},
		{name: "same place", from: 2, to: 2, want: []string{"a", "b", "c", "d", "e"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := listOf("a", "b", "c", "d", "e")
			require.NoError(t, l.Move(tt.from, tt.to))
			assert.Equal(t, tt.want, names(l))
		})
	}

	l := listOf("a", "b")
	var ierr *IndexError
	assert.ErrorAs(t, l.Move(2, 0), &ierr)
	assert.ErrorAs(t, l.Move(0, 5), &ierr)
}

func TestFriendListEdits(t *testing.T) {
	l := listOf("a", "b", "c")

	removed, err := l.RemoveAt(1)
	require.NoError(t, err)
	assert.Equal(t, "b", removed.Account)
	assert.Equal(t, []string{"a", "c"}, names(l))

	change := l.Append(protocol.FriendRecord{Account: "d"})
	assert.Equal(t, 2, change.Index)
	assert.Equal(t, []string{"a", "c", "d"}, names(l))

	_, err = l.Update(7, protocol.FriendRecord{})
	var ierr *IndexError
	assert.ErrorAs(t, err, &ierr)

	_, err = l.RemoveAt(-1)
	assert.ErrorAs(t, err, &ierr)
}

func TestFriendStatusLookups(t *testing.T) {
	l := listOf("pal")

	online := protocol.FriendRecord{Location: protocol.FriendLocationInChat, LocationName: "Chat"}
	away := online
	away.Status = protocol.FriendStatusAway

	c, err := l.Update(0, online)
	require.NoError(t, err)
	assert.False(t, c.Lookup)
	assert.Equal(t, "pal", c.Friend.Account)
	assert.Equal(t, "In channel Chat", c.Friend.LocationText())

	c, _ = l.Update(0, away)
	assert.True(t, c.Lookup, "newly away triggers a lookup")
	assert.True(t, c.Friend.Away())

	c, _ = l.Update(0, away)
	assert.False(t, c.Lookup, "still away does not repeat it")

	known, automated := l.RecordStatusMessage("PAL", "brb")
	assert.True(t, known)
	assert.True(t, automated)
	assert.False(t, l.AutoLookupPending("pal"))

	c, _ = l.Update(0, online)
	assert.Empty(t, c.Friend.StatusMessage)

	c, _ = l.Update(0, protocol.FriendRecord{Status: protocol.FriendStatusDND})
	assert.False(t, c.Lookup, "offline friends are never looked up")
	assert.False(t, c.Friend.DND())
}

func TestFriendReplaceCarriesState(t *testing.T) {
	var l FriendList
	away := protocol.FriendRecord{Account: "pal", Status: protocol.FriendStatusAway, Location: protocol.FriendLocationInChat}

	changes := l.Replace([]protocol.FriendRecord{away})
	require.Len(t, changes, 1)
	assert.True(t, changes[0].Lookup)

	l.RecordStatusMessage("pal", "lunch")
	changes = l.Replace([]protocol.FriendRecord{{Account: "new"}, away})
	assert.False(t, changes[1].Lookup)
	assert.Equal(t, "lunch", changes[1].Friend.StatusMessage)
	assert.Equal(t, []string{"new", "pal"}, names(&l))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Match
	}{
		{
			name: "mutual friend entered",
			text: "Your friend pal has entered Battle.net.",
			want: Match{Kind: MatchMutualFriend, User: "pal"},
		},
		{
			name: "mutual friend game",
			text: "Your friend pal entered a StarCraft game called fastest.",
			want: Match{Kind: MatchMutualFriend, User: "pal"},
		},
		{
			name: "whois",
			text: "pal is using StarCraft in the channel Chat.",
			want: Match{Kind: MatchWhois, User: "pal", Product: "StarCraft", Location: "the channel Chat"},
		},
		{
			name: "whois self",
			text: "You are me, using Warcraft III in channel Chat.",
			want: Match{Kind: MatchWhois, User: "me", Product: "Warcraft III", Location: "channel Chat"},
		},
		{
			name: "other away",
			text: "pal is away (gone fishing)",
			want: Match{Kind: MatchAway, User: "pal", Message: "gone fishing"},
		},
		{
			name: "self away",
			text: "You are away (brb)",
			want: Match{Kind: MatchAway, Message: "brb"},
		},
		{
			name: "dnd",
			text: "pal is refusing messages (busy)",
			want: Match{Kind: MatchDND, User: "pal", Message: "busy"},
		},
		{
			name: "away toggle",
			text: "You are now marked as being away.",
			want: Match{Kind: MatchAwayToggle, State: "now"},
		},
		{
			name: "away cleared",
			text: "You are no longer marked as away.",
			want: Match{Kind: MatchAwayToggle, State: "no longer"},
		},
		{
			name: "dnd toggle",
			text: "Do Not Disturb mode cancelled.",
			want: Match{Kind: MatchDNDToggle, State: "cancelled"},
		},
		{
			name: "whisper bounce",
			text: "pal is unavailable (do not disturb)",
			want: Match{Kind: MatchUnavailable, User: "pal", Message: "do not disturb"},
		},
		{
			name: "not logged on",
			text: "That user is not logged on.",
			want: Match{Kind: MatchNotLoggedOn},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Classify(tt.text)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	_, ok := Classify("Welcome to Battle.net!")
	assert.False(t, ok)
	_, ok = Classify("")
	assert.False(t, ok)
}

func TestClassifyFirstMatchWins(t *testing.T) {
	// matches both the whois and the away pattern; whois comes first
	got, ok := Classify("pal is using StarCraft in Chat. pal is away (x)")
	require.True(t, ok)
	assert.Equal(t, MatchWhois, got.Kind)
}

func TestDecodeStats(t *testing.T) {
	t.Run("starcraft", func(t *testing.T) {
		blob := []byte("RATS 1200 7 42 0 0 1350 0 0 RATS")
		s, ok := DecodeStats(blob).(StarStats)
		require.True(t, ok)
		assert.Equal(t, protocol.ProductSTAR, s.Product)
		assert.Equal(t, uint32(1200), s.LadderRating)
		assert.Equal(t, uint32(7), s.LadderRank)
		assert.Equal(t, uint32(42), s.Wins)
		assert.False(t, s.Spawn)
		assert.Equal(t, uint32(1350), s.HighRating)
		assert.Equal(t, uint32(protocol.ProductSTAR), s.IconID)
	})

	t.Run("short starcraft", func(t *testing.T) {
		s := DecodeStats([]byte("RATS 5")).(StarStats)
		assert.Equal(t, uint32(5), s.LadderRating)
		assert.Zero(t, s.Wins)
	})

	t.Run("diablo", func(t *testing.T) {
		s := DecodeStats([]byte("LTRD 30 2 1 50 60 70 80 9000 1")).(DiabloStats)
		assert.Equal(t, uint32(30), s.Level)
		assert.Equal(t, "Rogue", s.ClassName())
		assert.Equal(t, "Normal", s.DifficultyText())
		assert.Equal(t, uint32(9000), s.Gold)
		assert.True(t, s.Spawn)
	})

	t.Run("diablo ii open character", func(t *testing.T) {
		s := DecodeStats([]byte("VD2D")).(Diablo2Stats)
		assert.True(t, s.Open)
	})

	t.Run("diablo ii realm character", func(t *testing.T) {
		raw := make([]byte, 33)
		for i := range raw {
			raw[i] = 0x80
		}
		raw[13] = 0x04
		raw[25] = 85
		raw[26] = 0x20 | 0x04
		raw[27] = 0x80 | (0x0F << 1)
		raw[30] = 0xFF
		blob := append([]byte("PX2DUSEast,Hero,"), raw...)

		s := DecodeStats(blob).(Diablo2Stats)
		assert.False(t, s.Open)
		assert.Equal(t, "USEast", s.Realm)
		assert.Equal(t, "Hero", s.Character)
		assert.Equal(t, "Paladin", s.ClassName())
		assert.Equal(t, byte(85), s.Level)
		assert.True(t, s.Expansion())
		assert.True(t, s.Hardcore())
		assert.False(t, s.Dead())
		assert.False(t, s.Ladder())
		assert.Equal(t, "Hell", s.DifficultyText())
	})

	t.Run("warcraft iii", func(t *testing.T) {
		s := DecodeStats([]byte("3RAW 1R3W 12 maeT")).(Warcraft3Stats)
		assert.Equal(t, uint32(12), s.Level)
		assert.Equal(t, "Team", s.Clan)
		assert.Equal(t, "W3R1", s.Icon())
	})

	t.Run("unknown", func(t *testing.T) {
		s := DecodeStats([]byte("TAHC"))
		assert.Equal(t, protocol.ProductCHAT, s.StatsProduct())
		assert.IsType(t, UnknownStats{}, s)
	})
}
