package network

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/energizer-project/bnetchat/internal/protocol"
)

const (
	readChunkSize = 4096
	writeTimeout  = 10 * time.Second
)

// Connection wraps the TCP stream to either the chat server or the login
// relay. One goroutine pumps frames out of it while the session writes
// through it.
type Connection struct {
	mu     sync.Mutex
	conn   net.Conn
	kind   protocol.Kind
	logger zerolog.Logger

	// Timestamps
	connectedAt  time.Time
	lastActivity time.Time

	// State
	closed bool
}

// Dial connects to addr and wraps the stream for kind.
func Dial(ctx context.Context, kind protocol.Kind, addr string, timeout time.Duration) (*Connection, error) {
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &NetworkError{Peer: kind.String(), Op: "dial", Err: err}
	}
	return NewConnection(conn, kind), nil
}

// NewConnection wraps an existing net.Conn.
func NewConnection(conn net.Conn, kind protocol.Kind) *Connection {
	now := time.Now()
	return &Connection{
		conn:         conn,
		kind:         kind,
		connectedAt:  now,
		lastActivity: now,
		logger: log.With().
			Str("component", "connection").
			Str("peer", kind.String()).
			Str("remote", conn.RemoteAddr().String()).
			Logger(),
	}
}

// Pump reads the stream until it fails or ctx is cancelled, sending each
// reassembled frame to out in arrival order. It returns nil after Close,
// a *NetworkError when the peer goes away, or a
// *protocol.ProtocolDesyncError when a header cannot be trusted.
func (c *Connection) Pump(ctx context.Context, out chan<- protocol.Frame) error {
	reasm := NewReassembler(c.kind)
	buf := make([]byte, readChunkSize)

	for {
		n, err := c.conn.Read(buf)
		if n > 0 {
			c.touch()
			reasm.Feed(buf[:n])
			frames, derr := reasm.Drain()
			for _, f := range frames {
				c.logger.Trace().Uint8("id", f.ID).Int("len", len(f.Payload)).Msg("frame received")
				select {
				case out <- f:
				case <-ctx.Done():
					return nil
				}
			}
			if derr != nil {
				return derr
			}
		}

		if err != nil || n == 0 {
			if c.IsClosed() || ctx.Err() != nil {
				return nil
			}
			if err == nil || errors.Is(err, io.EOF) {
				return &NetworkError{Peer: c.kind.String(), Op: "closed"}
			}
			return &NetworkError{Peer: c.kind.String(), Op: "read", Err: err}
		}
	}
}

// Write sends one encoded frame, or raw bytes such as the protocol byte.
func (c *Connection) Write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return &NetworkError{Peer: c.kind.String(), Op: "write", Err: fmt.Errorf("connection is closed")}
	}

	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if _, err := c.conn.Write(data); err != nil {
		return &NetworkError{Peer: c.kind.String(), Op: "write", Err: err}
	}

	c.lastActivity = time.Now()
	return nil
}

func (c *Connection) touch() {
	c.mu.Lock()
	c.lastActivity = time.Now()
	c.mu.Unlock()
}

// Close closes the connection. Closing twice is a no-op.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	c.closed = true
	c.logger.Debug().Msg("connection closed")
	return c.conn.Close()
}

// IsClosed returns whether the connection has been closed locally.
func (c *Connection) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// LastActivity returns the time of the last read/write activity.
func (c *Connection) LastActivity() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActivity
}

// ConnectedAt returns the time the connection was established.
func (c *Connection) ConnectedAt() time.Time {
	return c.connectedAt
}

// RemoteAddr returns the remote address of the connection.
func (c *Connection) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// LocalIPv4 returns the local IPv4 address as the dword AUTH_INFO expects,
// in network byte order as laid out in memory. It is zero for non-TCP or
// IPv6 sockets.
func (c *Connection) LocalIPv4() uint32 {
	addr, ok := c.conn.LocalAddr().(*net.TCPAddr)
	if !ok {
		return 0
	}
	ip4 := addr.IP.To4()
	if ip4 == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(ip4)
}
