package lookup

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/energizer-project/bnetchat/internal/protocol"
	"github.com/energizer-project/bnetchat/internal/roster"
)

// Request is an outstanding user-data read.
type Request struct {
	Cookie  uint32
	Subject string
	Account string
	Keys    []string
	Purpose Purpose
	Product protocol.Product
	// ForEdit marks a read of one's own profile for editing.
	ForEdit bool
}

// Result is a completed read: the request and one value per key.
type Result struct {
	Request *Request
	Values  map[string]string
}

// Value returns the value for key and whether the server sent one.
func (r *Result) Value(key string) (string, bool) {
	v, ok := r.Values[key]
	return v, ok
}

// Cookie derives the correlation cookie for a subject name. Two names with
// the same hash collide; the legacy hash is kept for compatibility.
func Cookie(subject string) uint32 {
	return roster.StringHash(roster.Normalize(subject))
}

// Correlator matches READUSERDATA responses to requests by cookie. It is
// owned by the session goroutine and is not safe for concurrent use.
type Correlator struct {
	pending []*Request
	logger  zerolog.Logger
}

// NewCorrelator creates an empty Correlator.
func NewCorrelator() *Correlator {
	return &Correlator{
		logger: log.With().Str("component", "correlator").Logger(),
	}
}

// Submit records a request and returns it with its cookie filled in.
func (c *Correlator) Submit(req Request) *Request {
	r := req
	r.Cookie = Cookie(req.Subject)
	r.Keys = append([]string(nil), req.Keys...)
	c.pending = append(c.pending, &r)

	c.logger.Debug().
		Str("subject", r.Subject).
		Uint32("cookie", r.Cookie).
		Int("keys", len(r.Keys)).
		Msg("user data requested")
	return &r
}

// Resolve completes the oldest request with the response's cookie, reading
// one value per requested key. An unknown cookie leaves every pending
// request untouched and returns a nil Result.
func (c *Correlator) Resolve(resp *protocol.ReadUserDataResponse) (*Result, error) {
	idx := -1
	for i, r := range c.pending {
		if r.Cookie == resp.Cookie {
			idx = i
			break
		}
	}
	if idx < 0 {
		c.logger.Warn().Uint32("cookie", resp.Cookie).Msg("user data response matches no request")
		return nil, nil
	}

	req := c.pending[idx]
	n := int(resp.KeyCount)
	if n > len(req.Keys) {
		n = len(req.Keys)
	}
	values, err := resp.Values(n)
	if err != nil {
		return nil, err
	}

	c.pending = append(c.pending[:idx], c.pending[idx+1:]...)

	res := &Result{Request: req, Values: make(map[string]string, n)}
	for i, v := range values {
		res.Values[req.Keys[i]] = v
	}
	return res, nil
}

// Pending returns the number of outstanding requests.
func (c *Correlator) Pending() int {
	return len(c.pending)
}

// Reset drops every outstanding request.
func (c *Correlator) Reset() {
	c.pending = nil
}
