package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/energizer-project/bnetchat/internal/protocol"
)

// ErrNoKeyDecoder is returned when keys are required but nothing can decode them.
var ErrNoKeyDecoder = errors.New("no CD-key decoder available")

// KeyRequest carries everything needed to turn CD-key strings into the
// per-key blocks AUTH_CHECK carries.
type KeyRequest struct {
	Product     protocol.Product
	ClientToken uint32
	ServerToken uint32
	Keys        []string
}

// KeyDecoder decodes CD-keys into AUTH_CHECK key blocks. The decoding
// algorithm itself lives outside this module; the session falls back to the
// login relay's CDKEY_EX service when no local decoder is configured.
type KeyDecoder interface {
	DecodeKeys(ctx context.Context, req KeyRequest) ([]protocol.CDKeyBlock, error)
}

// KeyDecodeError reports which key could not be decoded. Index 1 is the
// expansion key.
type KeyDecodeError struct {
	Index int
	Err   error
}

func (e *KeyDecodeError) Error() string {
	exp := ""
	if e.Index > 0 {
		exp = "expansion "
	}
	if e.Err != nil {
		return fmt.Sprintf("the provided %sCD-key could not be decoded: %v", exp, e.Err)
	}
	return fmt.Sprintf("the provided %sCD-key could not be decoded", exp)
}

func (e *KeyDecodeError) Unwrap() error {
	return e.Err
}

// CleanKey strips the dashes and spaces people paste keys with and
// upper-cases the rest.
func CleanKey(key string) string {
	var b strings.Builder
	for _, r := range key {
		if r == '-' || r == ' ' {
			continue
		}
		b.WriteRune(r)
	}
	return strings.ToUpper(b.String())
}

// SelectKeys returns the keys a product needs, in AUTH_CHECK order.
func SelectKeys(product protocol.Product, key, expansionKey string) ([]string, error) {
	n := product.KeyCount()
	keys := []string{CleanKey(key), CleanKey(expansionKey)}[:n]
	for i, k := range keys {
		if k == "" {
			return nil, &KeyDecodeError{Index: i, Err: errors.New("key is empty")}
		}
	}
	return keys, nil
}
