package auth

import "encoding/binary"

// PasswordHasher turns a password into the digest the legacy logon path
// sends to the chat server.
type PasswordHasher interface {
	Hash(data []byte) [DigestSize]byte
}

// XSHA1Hasher is the PasswordHasher the chat server expects.
type XSHA1Hasher struct{}

// Hash implements PasswordHasher.
func (XSHA1Hasher) Hash(data []byte) [DigestSize]byte {
	return XSHA1(data)
}

// DoubleHash computes the LOGONRESPONSE2 proof:
// H(clientToken | serverToken | H(password)).
func DoubleHash(h PasswordHasher, clientToken, serverToken uint32, password string) [DigestSize]byte {
	inner := h.Hash([]byte(password))
	return DoubleHashDigest(h, clientToken, serverToken, inner)
}

// DoubleHashDigest is DoubleHash for an already hashed password.
func DoubleHashDigest(h PasswordHasher, clientToken, serverToken uint32, digest [DigestSize]byte) [DigestSize]byte {
	buf := make([]byte, 8+DigestSize)
	binary.LittleEndian.PutUint32(buf[0:], clientToken)
	binary.LittleEndian.PutUint32(buf[4:], serverToken)
	copy(buf[8:], digest[:])
	return h.Hash(buf)
}
