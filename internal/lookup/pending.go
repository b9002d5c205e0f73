package lookup

import (
	"time"

	"github.com/patrickmn/go-cache"
)

const (
	lookupTargetKey  = "lookup"
	whisperTargetKey = "whisper"
)

// PendingTargets remembers who the last user lookup and the last whisper
// were for, so that server text answering them can be attributed. Entries
// expire after the TTL since the server never answers some of them.
type PendingTargets struct {
	cache *cache.Cache
}

// NewPendingTargets creates PendingTargets whose entries live for ttl.
func NewPendingTargets(ttl time.Duration) *PendingTargets {
	return &PendingTargets{
		cache: cache.New(ttl, 2*ttl),
	}
}

func (p *PendingTargets) get(key string) (string, bool) {
	v, found := p.cache.Get(key)
	if !found {
		return "", false
	}
	return v.(string), true
}

// SetLookup records the subject of a user information request.
func (p *PendingTargets) SetLookup(name string) {
	p.cache.Set(lookupTargetKey, name, cache.DefaultExpiration)
}

// Lookup returns the pending lookup subject.
func (p *PendingTargets) Lookup() (string, bool) {
	return p.get(lookupTargetKey)
}

// ClearLookup forgets the pending lookup.
func (p *PendingTargets) ClearLookup() {
	p.cache.Delete(lookupTargetKey)
}

// SetWhisper records the target of the last whisper awaiting confirmation.
func (p *PendingTargets) SetWhisper(name string) {
	p.cache.Set(whisperTargetKey, name, cache.DefaultExpiration)
}

// Whisper returns the whisper target awaiting confirmation.
func (p *PendingTargets) Whisper() (string, bool) {
	return p.get(whisperTargetKey)
}

// ClearWhisper forgets the whisper target.
func (p *PendingTargets) ClearWhisper() {
	p.cache.Delete(whisperTargetKey)
}

// Flush forgets everything.
func (p *PendingTargets) Flush() {
	p.cache.Flush()
}
