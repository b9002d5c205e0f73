package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

// ErrEmbeddedNUL is returned by Finish when a string field contained a NUL
// byte, which would end the field early on the wire.
var ErrEmbeddedNUL = errors.New("string field contains a NUL byte")

// PacketBuilder constructs the payload of a chat server or relay packet.
// Fields are appended in call order; Finish prepends the frame header.
// The first field error is kept and reported by Finish.
type PacketBuilder struct {
	buf bytes.Buffer
	err error
}

// NewPacketBuilder creates a new PacketBuilder.
func NewPacketBuilder() *PacketBuilder {
	return &PacketBuilder{}
}

// Reset clears the builder for reuse.
func (b *PacketBuilder) Reset() {
	b.buf.Reset()
	b.err = nil
}

// WriteByte writes a single byte.
func (b *PacketBuilder) WriteByte(v byte) *PacketBuilder {
	b.buf.WriteByte(v)
	return b
}

// WriteUint16 writes a uint16 in little-endian order.
func (b *PacketBuilder) WriteUint16(v uint16) *PacketBuilder {
	binary.Write(&b.buf, binary.LittleEndian, v)
	return b
}

// WriteUint32 writes a uint32 in little-endian order.
func (b *PacketBuilder) WriteUint32(v uint32) *PacketBuilder {
	binary.Write(&b.buf, binary.LittleEndian, v)
	return b
}

// WriteInt32 writes an int32 in little-endian order.
func (b *PacketBuilder) WriteInt32(v int32) *PacketBuilder {
	binary.Write(&b.buf, binary.LittleEndian, v)
	return b
}

// WriteUint64 writes a uint64 in little-endian order.
func (b *PacketBuilder) WriteUint64(v uint64) *PacketBuilder {
	binary.Write(&b.buf, binary.LittleEndian, v)
	return b
}

// WriteNullString writes a null-terminated string.
func (b *PacketBuilder) WriteNullString(s string) *PacketBuilder {
	if b.err == nil && strings.IndexByte(s, 0) >= 0 {
		b.err = ErrEmbeddedNUL
	}
	b.buf.WriteString(s)
	b.buf.WriteByte(0)
	return b
}

// WriteBytes writes raw bytes.
func (b *PacketBuilder) WriteBytes(data []byte) *PacketBuilder {
	b.buf.Write(data)
	return b
}

// Build returns the payload bytes without a header.
func (b *PacketBuilder) Build() []byte {
	return b.buf.Bytes()
}

// Finish returns a transmittable frame: the payload with the protocol
// header for kind prepended. It fails when the frame would not fit the
// 16-bit length field.
//
// Chat: [0xFF][id:1][length:2][payload...]
// Relay: [length:2][id:1][payload...]
func (b *PacketBuilder) Finish(kind Kind, id byte) ([]byte, error) {
	if b.err != nil {
		return nil, fmt.Errorf("%s frame 0x%02x: %w", kind, id, b.err)
	}
	return EncodeFrame(kind, id, b.buf.Bytes())
}

// finishFixed is Finish for layouts whose size is bounded by the layout
// itself.
func (b *PacketBuilder) finishFixed(kind Kind, id byte) []byte {
	return encodeFrame(kind, id, b.buf.Bytes())
}

// Len returns the current size of the payload being built.
func (b *PacketBuilder) Len() int {
	return b.buf.Len()
}

// String returns a hex dump of the current payload for debugging.
func (b *PacketBuilder) String() string {
	data := b.buf.Bytes()
	return fmt.Sprintf("PacketBuilder[%d bytes]: %x", len(data), data)
}

// MaxFrameSize is the largest frame the 16-bit length field can declare.
const MaxFrameSize = 0xFFFF

// FrameTooLargeError reports a frame that cannot be given an exact length.
type FrameTooLargeError struct {
	Kind Kind
	ID   byte
	Size int
}

func (e *FrameTooLargeError) Error() string {
	return fmt.Sprintf("%s frame 0x%02x is %d bytes, limit %d", e.Kind, e.ID, e.Size, MaxFrameSize)
}

// EncodeFrame wraps a payload in the header for kind. The declared length
// includes the header and must fit in MaxFrameSize.
func EncodeFrame(kind Kind, id byte, payload []byte) ([]byte, error) {
	if size := kind.HeaderSize() + len(payload); size > MaxFrameSize {
		return nil, &FrameTooLargeError{Kind: kind, ID: id, Size: size}
	}
	return encodeFrame(kind, id, payload), nil
}

func encodeFrame(kind Kind, id byte, payload []byte) []byte {
	hdr := kind.HeaderSize()
	out := make([]byte, hdr+len(payload))
	total := uint16(len(out))
	switch kind {
	case KindChat:
		out[0] = ChatSentinel
		out[1] = id
		binary.LittleEndian.PutUint16(out[2:4], total)
	default:
		binary.LittleEndian.PutUint16(out[0:2], total)
		out[2] = id
	}
	copy(out[hdr:], payload)
	return out
}
