package network

import "fmt"

// NetworkError is a terminal transport failure on one of the session's
// sockets: the dial was refused, the peer closed the stream, or a read or
// write failed.
type NetworkError struct {
	Peer string // "bncs" or "bnls"
	Op   string // "dial", "read", "write" or "closed"
	Err  error
}

func (e *NetworkError) Error() string {
	if e.Op == "closed" {
		return fmt.Sprintf("%s server closed the connection", e.Peer)
	}
	return fmt.Sprintf("%s %s failed: %v", e.Peer, e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}
