// Package auth holds the credential primitives a session needs during the
// handshake: the chat server's non-standard SHA-1 variant used for legacy
// password hashing, and the CD-key decoding seam.
package auth

import (
	"encoding/binary"
	"math/bits"
)

// DigestSize is the size in bytes of an XSHA1 digest.
const DigestSize = 20

const blockSize = 64

// XSHA1 computes the chat server's "broken" SHA-1. It differs from SHA-1 in
// three ways: input words are read little-endian, the message schedule
// shifts 1 left by the mixed word instead of rotating the word, and the
// input is zero-padded to a block boundary with no length suffix.
func XSHA1(data []byte) [DigestSize]byte {
	state := [5]uint32{0x67452301, 0xEFCDAB89, 0x98BADCFE, 0x10325476, 0xC3D2E1F0}

	var block [blockSize]byte
	for pos := 0; pos < len(data); pos += blockSize {
		n := copy(block[:], data[pos:])
		for i := n; i < blockSize; i++ {
			block[i] = 0
		}
		xsha1Block(&state, &block)
	}

	var out [DigestSize]byte
	for i, v := range state {
		binary.LittleEndian.PutUint32(out[i*4:], v)
	}
	return out
}

func xsha1Block(state *[5]uint32, block *[blockSize]byte) {
	var w [80]uint32
	for i := 0; i < 16; i++ {
		w[i] = binary.LittleEndian.Uint32(block[i*4:])
	}
	for i := 16; i < 80; i++ {
		mix := w[i-16] ^ w[i-8] ^ w[i-14] ^ w[i-3]
		w[i] = 1 << (mix & 31)
	}

	a, b, c, d, e := state[0], state[1], state[2], state[3], state[4]

	for i := 0; i < 80; i++ {
		var f, k uint32
		switch {
		case i < 20:
			f = (b & c) | (^b & d)
			k = 0x5A827999
		case i < 40:
			f = b ^ c ^ d
			k = 0x6ED9EBA1
		case i < 60:
			f = (b & c) | (b & d) | (c & d)
			k = 0x8F1BBCDC
		default:
			f = b ^ c ^ d
			k = 0xCA62C1D6
		}
		t := bits.RotateLeft32(a, 5) + f + e + k + w[i]
		e = d
		d = c
		c = bits.RotateLeft32(b, 30)
		b = a
		a = t
	}

	state[0] += a
	state[1] += b
	state[2] += c
	state[3] += d
	state[4] += e
}
