package commands

import "strings"

// Kind groups slash commands by how the session reacts to them.
type Kind int

const (
	KindRaw Kind = iota
	KindWhisper
	KindWhois
	KindJoin
	KindRejoin
	KindAway
	KindDND
	KindFriends
	KindEmote
	KindModeration
	KindInfo
)

// Command describes one known slash command.
type Command struct {
	Name    string
	Aliases []string
	Kind    Kind
	// StarTarget prefixes the first argument with '*' for Diablo II,
	// whose users are addressed by account rather than character.
	StarTarget bool
	Help       string
}

// Table lists the slash commands the client knows about. Anything else is
// passed to the server unchanged.
var Table = []Command{
	{Name: "whisper", Aliases: []string{"w", "m", "msg"}, Kind: KindWhisper, StarTarget: true, Help: "whisper <user> <message>"},
	{Name: "whois", Aliases: []string{"where", "whereis"}, Kind: KindWhois, StarTarget: true, Help: "whois <user>"},
	{Name: "join", Aliases: []string{"j"}, Kind: KindJoin, Help: "join <channel>"},
	{Name: "rejoin", Kind: KindRejoin, Help: "rejoin"},
	{Name: "away", Kind: KindAway, Help: "away [message]"},
	{Name: "dnd", Kind: KindDND, Help: "dnd [message]"},
	{Name: "friends", Aliases: []string{"f"}, Kind: KindFriends, Help: "friends <add|remove|list|msg> [user]"},
	{Name: "emote", Aliases: []string{"me"}, Kind: KindEmote, Help: "me <action>"},
	{Name: "ban", Kind: KindModeration, StarTarget: true, Help: "ban <user> [reason]"},
	{Name: "unban", Kind: KindModeration, StarTarget: true, Help: "unban <user>"},
	{Name: "kick", Kind: KindModeration, StarTarget: true, Help: "kick <user> [reason]"},
	{Name: "designate", Kind: KindModeration, StarTarget: true, Help: "designate <user>"},
	{Name: "squelch", Aliases: []string{"ignore"}, Kind: KindModeration, StarTarget: true, Help: "squelch <user>"},
	{Name: "unsquelch", Aliases: []string{"unignore"}, Kind: KindModeration, StarTarget: true, Help: "unsquelch <user>"},
	{Name: "time", Kind: KindInfo, Help: "time"},
	{Name: "users", Kind: KindInfo, Help: "users"},
	{Name: "stats", Aliases: []string{"astat"}, Kind: KindInfo, StarTarget: true, Help: "stats <user> [product]"},
}

var byName = func() map[string]*Command {
	m := make(map[string]*Command)
	for i := range Table {
		c := &Table[i]
		m[c.Name] = c
		for _, a := range c.Aliases {
			m[a] = c
		}
	}
	return m
}()

// Lookup finds a command by name or alias, ignoring case.
func Lookup(name string) (*Command, bool) {
	c, ok := byName[strings.ToLower(name)]
	return c, ok
}
