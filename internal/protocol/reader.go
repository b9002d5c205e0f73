package protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// ShortReadError is returned when a fixed-width field runs past the end of a payload.
type ShortReadError struct {
	Field string
	Need  int
	Have  int
}

func (e *ShortReadError) Error() string {
	return fmt.Sprintf("short read on %s: need %d bytes, have %d", e.Field, e.Need, e.Have)
}

// TruncatedFieldError is returned when a string field has no terminating NUL.
type TruncatedFieldError struct {
	Field string
}

func (e *TruncatedFieldError) Error() string {
	return fmt.Sprintf("truncated string field %s: no terminating NUL", e.Field)
}

// ProtocolDesyncError reports a frame header that cannot be trusted. The
// stream cannot be resynchronised after one.
type ProtocolDesyncError struct {
	Kind   Kind
	Reason string
}

func (e *ProtocolDesyncError) Error() string {
	return fmt.Sprintf("%s stream desynchronized: %s", e.Kind, e.Reason)
}

// Reader is a single-pass, forward-only cursor over a frame payload.
type Reader struct {
	data []byte
	off  int
}

// NewReader creates a Reader over a payload.
func NewReader(payload []byte) *Reader {
	return &Reader{data: payload}
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.off
}

func (r *Reader) take(field string, n int) ([]byte, error) {
	if n < 0 || r.Remaining() < n {
		return nil, &ShortReadError{Field: field, Need: n, Have: r.Remaining()}
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b, nil
}

// ReadUint8 reads one byte.
func (r *Reader) ReadUint8(field string) (uint8, error) {
	b, err := r.take(field, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadUint16 reads a little-endian uint16.
func (r *Reader) ReadUint16(field string) (uint16, error) {
	b, err := r.take(field, 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// ReadUint32 reads a little-endian uint32.
func (r *Reader) ReadUint32(field string) (uint32, error) {
	b, err := r.take(field, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// ReadUint64 reads a little-endian uint64.
func (r *Reader) ReadUint64(field string) (uint64, error) {
	b, err := r.take(field, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// ReadBlob reads exactly n bytes. The returned slice is a copy.
func (r *Reader) ReadBlob(field string, n int) ([]byte, error) {
	b, err := r.take(field, n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, b)
	return out, nil
}

// ReadCString reads up to and past the next NUL byte.
func (r *Reader) ReadCString(field string) (string, error) {
	b, err := r.ReadCBytes(field)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ReadCBytes is ReadCString for fields holding binary data, such as stats blobs.
func (r *Reader) ReadCBytes(field string) ([]byte, error) {
	rest := r.data[r.off:]
	i := bytes.IndexByte(rest, 0)
	if i < 0 {
		return nil, &TruncatedFieldError{Field: field}
	}
	out := make([]byte, i)
	copy(out, rest[:i])
	r.off += i + 1
	return out, nil
}
