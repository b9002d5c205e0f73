// Package roster tracks what the session knows about other users: the
// members of the current channel, the friends list in server order, and the
// informational server text that updates either of them.
package roster

import "strings"

// Normalize folds a user or channel name to its comparison form. Only ASCII
// letters are folded, matching the server's own case-insensitivity.
func Normalize(name string) string {
	b := []byte(name)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// StripCharacter removes the Diablo II character prefix from a name.
// Diablo II clients see other users as "Character*account",
// "Character (*account)" or "*account"; everyone else sees plain names.
func StripCharacter(name string, diablo2 bool) string {
	if !diablo2 {
		return name
	}
	limit := len(name)
	if limit > 30 {
		limit = 30
	}
	star := strings.IndexByte(name[:limit], '*')
	if star < 0 {
		return name
	}
	out := name[star+1:]
	if star > 1 && name[star-1] == '(' && len(out) > 0 {
		out = out[:len(out)-1]
	}
	return out
}

// StripAccountNumber removes the "#N" suffix the server appends to
// duplicate logons, keeping any "@gateway" part: "Name#2@Azeroth" becomes
// "Name@Azeroth". Profile reads must use the bare account.
func StripAccountNumber(name string) string {
	pound := strings.IndexByte(name, '#')
	if pound < 0 {
		return name
	}
	if at := strings.IndexByte(name[pound:], '@'); at >= 0 {
		return name[:pound] + name[pound+at:]
	}
	return name[:pound]
}

// StringHash is the legacy string hash (h = h*33 + c, seeded with 5381)
// used for channel identity and user-data cookies.
func StringHash(s string) uint32 {
	var h uint32 = 5381
	for i := 0; i < len(s); i++ {
		h = h*33 + uint32(s[i])
	}
	return h
}

// ChannelID computes the identity of a channel from its name.
func ChannelID(name string) uint32 {
	return StringHash(Normalize(name))
}
