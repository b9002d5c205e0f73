package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/energizer-project/bnetchat/internal/protocol"
)

func TestXSHA1(t *testing.T) {
	t.Run("empty input yields the initial state", func(t *testing.T) {
		want := [DigestSize]byte{
			0x01, 0x23, 0x45, 0x67,
			0x89, 0xAB, 0xCD, 0xEF,
			0xFE, 0xDC, 0xBA, 0x98,
			0x76, 0x54, 0x32, 0x10,
			0xF0, 0xE1, 0xD2, 0xC3,
		}
		assert.Equal(t, want, XSHA1(nil))
	})

	t.Run("zero padding has no length suffix", func(t *testing.T) {
		assert.Equal(t, XSHA1([]byte("password")), XSHA1([]byte("password\x00\x00\x00")))
	})

	t.Run("second block changes the digest", func(t *testing.T) {
		one := make([]byte, 64)
		two := make([]byte, 65)
		two[64] = 1
		assert.NotEqual(t, XSHA1(one), XSHA1(two))
	})

	t.Run("deterministic and input sensitive", func(t *testing.T) {
		assert.Equal(t, XSHA1([]byte("abc")), XSHA1([]byte("abc")))
		assert.NotEqual(t, XSHA1([]byte("abc")), XSHA1([]byte("abd")))
	})
}

func TestDoubleHash(t *testing.T) {
	h := XSHA1Hasher{}
	inner := h.Hash([]byte("secret"))

	buf := []byte{0x04, 0x03, 0x02, 0x01, 0xDD, 0xCC, 0xBB, 0xAA}
	buf = append(buf, inner[:]...)

	assert.Equal(t, XSHA1(buf), DoubleHash(h, 0x01020304, 0xAABBCCDD, "secret"))
	assert.Equal(t, DoubleHash(h, 1, 2, "secret"), DoubleHashDigest(h, 1, 2, inner))
}

func TestSelectKeys(t *testing.T) {
	tests := []struct {
		name      string
		product   protocol.Product
		key       string
		expansion string
		want      []string
		wantIndex int
		wantErr   bool
	}{
		{name: "no keys for diablo", product: protocol.ProductDRTL, want: []string{}},
		{name: "one key cleaned", product: protocol.ProductSTAR, key: "1234-5678 90123", want: []string{"1234567890123"}},
		{name: "expansion needs both", product: protocol.ProductW3XP, key: "abc", expansion: "def", want: []string{"ABC", "DEF"}},
		{name: "missing expansion key", product: protocol.ProductD2XP, key: "abc", wantErr: true, wantIndex: 1},
		{name: "missing key", product: protocol.ProductSEXP, wantErr: true, wantIndex: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SelectKeys(tt.product, tt.key, tt.expansion)
			if tt.wantErr {
				var kerr *KeyDecodeError
				require.ErrorAs(t, err, &kerr)
				assert.Equal(t, tt.wantIndex, kerr.Index)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
