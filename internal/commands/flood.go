package commands

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/energizer-project/bnetchat/internal/protocol"
)

// FloodLimiter paces outbound chat lines with a token bucket so the server
// does not drop the connection for flooding.
type FloodLimiter struct {
	limiter *rate.Limiter
}

// NewFloodLimiter allows perSecond lines with bursts of burst. A
// non-positive rate disables pacing.
func NewFloodLimiter(perSecond float64, burst int) *FloodLimiter {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &FloodLimiter{limiter: rate.NewLimiter(limit, burst)}
}

// Paced reports whether a frame counts against the flood budget.
func Paced(frame []byte) bool {
	if len(frame) < protocol.ChatHeaderSize || frame[0] != protocol.ChatSentinel {
		return false
	}
	return frame[1] == protocol.SidChatCommand || frame[1] == protocol.SidJoinChannel
}

// Wait blocks until the frame may be sent. Unpaced frames pass at once.
func (f *FloodLimiter) Wait(ctx context.Context, frame []byte) error {
	if !Paced(frame) {
		return nil
	}
	return f.limiter.Wait(ctx)
}

// Allow reports whether a paced frame could be sent right now, consuming a
// token if so.
func (f *FloodLimiter) Allow() bool {
	return f.limiter.Allow()
}
