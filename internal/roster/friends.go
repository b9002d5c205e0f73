package roster

import (
	"fmt"

	"github.com/energizer-project/bnetchat/internal/protocol"
)

// Friend is one entry of the friends list.
type Friend struct {
	Account      string
	Status       byte
	Location     byte
	Product      protocol.Product
	LocationName string

	// StatusMessage is the away or do-not-disturb text last seen for the friend.
	StatusMessage string
	// AutoLookup is set while an automatic whois for the friend is outstanding.
	AutoLookup bool
}

// Online reports whether the friend is logged on.
func (f Friend) Online() bool {
	return f.Location != protocol.FriendLocationOffline
}

// Away reports whether an online friend is marked away.
func (f Friend) Away() bool {
	return f.Online() && f.Status&protocol.FriendStatusAway != 0
}

// DND reports whether an online friend is refusing messages.
func (f Friend) DND() bool {
	return f.Online() && f.Status&protocol.FriendStatusDND != 0
}

// Mutual reports whether the friendship is mutual.
func (f Friend) Mutual() bool {
	return f.Status&protocol.FriendStatusMutual != 0
}

// LocationText describes where the friend is.
func (f Friend) LocationText() string {
	switch f.Location {
	case protocol.FriendLocationOffline:
		return "Offline"
	case protocol.FriendLocationNotInChat:
		return "Not in chat"
	case protocol.FriendLocationInChat:
		if f.LocationName == "" {
			return "In chat"
		}
		return "In channel " + f.LocationName
	case protocol.FriendLocationPublicGame:
		if f.LocationName == "" {
			return "In a public game"
		}
		return "In the public game " + f.LocationName
	case protocol.FriendLocationPrivateGame:
		return "In a private game"
	case protocol.FriendLocationPasswordGame:
		if f.LocationName == "" {
			return "In a password protected game"
		}
		return "In the password protected game " + f.LocationName
	default:
		return "Unknown"
	}
}

// FriendChange describes one friend after a list operation. Lookup asks the
// caller to issue an automatic whois to fetch the friend's status message.
type FriendChange struct {
	Index  int
	Friend Friend
	Lookup bool
}

// IndexError is returned when the server addresses a position the list does not have.
type IndexError struct {
	Op    string
	Index int
	Len   int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("friends %s: index %d out of range (%d entries)", e.Op, e.Index, e.Len)
}

// FriendList is the friends list in the server's order. Positions match the
// indices the server uses in update, remove and position messages.
type FriendList struct {
	entries []*Friend
}

func fromRecord(rec protocol.FriendRecord) *Friend {
	return &Friend{
		Account:      rec.Account,
		Status:       rec.Status,
		Location:     rec.Location,
		Product:      rec.Product,
		LocationName: rec.LocationName,
	}
}

// settle carries status state over from prev and decides whether the new
// status needs an automatic lookup. A lookup is only requested when the
// friend newly became away or DND and none is already outstanding.
func settle(prev, next *Friend) bool {
	wasAway, wasDND := false, false
	if prev != nil {
		wasAway, wasDND = prev.Away(), prev.DND()
		next.StatusMessage = prev.StatusMessage
		next.AutoLookup = prev.AutoLookup
	}

	if !next.Away() && !next.DND() {
		next.StatusMessage = ""
		next.AutoLookup = false
		return false
	}

	newly := (next.Away() && !wasAway) || (next.DND() && !wasDND)
	if !newly || next.AutoLookup {
		return false
	}
	next.AutoLookup = true
	return true
}

// Replace installs a full snapshot. Status state of friends already known
// by name is carried over.
func (l *FriendList) Replace(records []protocol.FriendRecord) []FriendChange {
	prev := make(map[string]*Friend, len(l.entries))
	for _, f := range l.entries {
		prev[Normalize(f.Account)] = f
	}

	l.entries = make([]*Friend, 0, len(records))
	changes := make([]FriendChange, 0, len(records))
	for i, rec := range records {
		f := fromRecord(rec)
		lookup := settle(prev[Normalize(f.Account)], f)
		l.entries = append(l.entries, f)
		changes = append(changes, FriendChange{Index: i, Friend: *f, Lookup: lookup})
	}
	return changes
}

// Update replaces the status of the entry at index. The record's account
// name is ignored since the server does not send one.
func (l *FriendList) Update(index int, rec protocol.FriendRecord) (FriendChange, error) {
	if index < 0 || index >= len(l.entries) {
		return FriendChange{}, &IndexError{Op: "update", Index: index, Len: len(l.entries)}
	}
	prev := l.entries[index]
	f := fromRecord(rec)
	f.Account = prev.Account
	lookup := settle(prev, f)
	l.entries[index] = f
	return FriendChange{Index: index, Friend: *f, Lookup: lookup}, nil
}

// Append adds a new friend at the end of the list.
func (l *FriendList) Append(rec protocol.FriendRecord) FriendChange {
	f := fromRecord(rec)
	lookup := settle(nil, f)
	l.entries = append(l.entries, f)
	return FriendChange{Index: len(l.entries) - 1, Friend: *f, Lookup: lookup}
}

// RemoveAt deletes the entry at index; later entries move up by one.
func (l *FriendList) RemoveAt(index int) (Friend, error) {
	if index < 0 || index >= len(l.entries) {
		return Friend{}, &IndexError{Op: "remove", Index: index, Len: len(l.entries)}
	}
	f := l.entries[index]
	l.entries = append(l.entries[:index], l.entries[index+1:]...)
	return *f, nil
}

// InsertAt places a friend at index, shifting later entries down. An index
// equal to the length appends.
func (l *FriendList) InsertAt(index int, f Friend) error {
	if index < 0 || index > len(l.entries) {
		return &IndexError{Op: "insert", Index: index, Len: len(l.entries)}
	}
	l.entries = append(l.entries, nil)
	copy(l.entries[index+1:], l.entries[index:])
	l.entries[index] = &f
	return nil
}

// Move takes the entry at from and reinserts it at to. The relative order
// of every other entry is unchanged.
func (l *FriendList) Move(from, to int) error {
	if from < 0 || from >= len(l.entries) {
		return &IndexError{Op: "move", Index: from, Len: len(l.entries)}
	}
	if to < 0 || to >= len(l.entries) {
		return &IndexError{Op: "move", Index: to, Len: len(l.entries)}
	}
	f, _ := l.RemoveAt(from)
	return l.InsertAt(to, f)
}

// Find looks a friend up by account name.
func (l *FriendList) Find(account string) (int, Friend, bool) {
	norm := Normalize(account)
	for i, f := range l.entries {
		if Normalize(f.Account) == norm {
			return i, *f, true
		}
	}
	return -1, Friend{}, false
}

// RecordStatusMessage stores an away or DND message reported for account.
// It reports whether the message answered an automatic lookup, which is
// then considered done.
func (l *FriendList) RecordStatusMessage(account, message string) (known, automated bool) {
	norm := Normalize(account)
	for _, f := range l.entries {
		if Normalize(f.Account) != norm {
			continue
		}
		f.StatusMessage = message
		if f.AutoLookup {
			f.AutoLookup = false
			return true, true
		}
		return true, false
	}
	return false, false
}

// AutoLookupPending reports whether an automatic lookup for account is outstanding.
func (l *FriendList) AutoLookupPending(account string) bool {
	_, f, ok := l.Find(account)
	return ok && f.AutoLookup
}

// Len returns the number of friends.
func (l *FriendList) Len() int {
	return len(l.entries)
}

// Snapshot returns a copy of the list in server order.
func (l *FriendList) Snapshot() []Friend {
	out := make([]Friend, len(l.entries))
	for i, f := range l.entries {
		out[i] = *f
	}
	return out
}
