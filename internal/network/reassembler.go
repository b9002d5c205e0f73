// Package network implements the socket side of a session: dialing the chat
// server and login relay, reassembling their byte streams into frames and
// writing frames back with deadlines.
package network

import (
	"encoding/binary"
	"fmt"

	"github.com/energizer-project/bnetchat/internal/protocol"
)

// Reassembler accumulates raw stream bytes and cuts them into complete
// frames using the length declared in each header. A partial trailing
// frame is kept for the next Feed.
type Reassembler struct {
	kind protocol.Kind
	buf  []byte
}

// NewReassembler creates a Reassembler for one protocol kind.
func NewReassembler(kind protocol.Kind) *Reassembler {
	return &Reassembler{
		kind: kind,
		buf:  make([]byte, 0, 4096),
	}
}

// Feed appends raw bytes read from the socket.
func (r *Reassembler) Feed(p []byte) {
	r.buf = append(r.buf, p...)
}

// Buffered returns the number of bytes waiting for a complete frame.
func (r *Reassembler) Buffered() int {
	return len(r.buf)
}

// TakeFrame removes and returns the next complete frame. ok is false when
// more bytes are needed. A *protocol.ProtocolDesyncError means the stream
// can no longer be trusted.
func (r *Reassembler) TakeFrame() (frame protocol.Frame, ok bool, err error) {
	hdr := r.kind.HeaderSize()
	if len(r.buf) < hdr {
		return frame, false, nil
	}

	var (
		id     byte
		length int
	)
	switch r.kind {
	case protocol.KindChat:
		if r.buf[0] != protocol.ChatSentinel {
			return frame, false, &protocol.ProtocolDesyncError{
				Kind:   r.kind,
				Reason: fmt.Sprintf("bad sentinel byte 0x%02X", r.buf[0]),
			}
		}
		id = r.buf[1]
		length = int(binary.LittleEndian.Uint16(r.buf[2:4]))
	default:
		length = int(binary.LittleEndian.Uint16(r.buf[0:2]))
		id = r.buf[2]
	}

	if length < hdr {
		return frame, false, &protocol.ProtocolDesyncError{
			Kind:   r.kind,
			Reason: fmt.Sprintf("declared length %d shorter than header", length),
		}
	}
	if len(r.buf) < length {
		return frame, false, nil
	}

	payload := make([]byte, length-hdr)
	copy(payload, r.buf[hdr:length])

	// shift the remainder to the front so the buffer does not grow unbounded
	n := copy(r.buf, r.buf[length:])
	r.buf = r.buf[:n]

	return protocol.Frame{Kind: r.kind, ID: id, Payload: payload}, true, nil
}

// Drain extracts every complete frame currently buffered, in order.
func (r *Reassembler) Drain() ([]protocol.Frame, error) {
	var frames []protocol.Frame
	for {
		f, ok, err := r.TakeFrame()
		if err != nil {
			return frames, err
		}
		if !ok {
			return frames, nil
		}
		frames = append(frames, f)
	}
}
