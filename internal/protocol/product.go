package protocol

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Product is a four-character client identifier stored as a dword.
// The dword 0x53544152 is the text "STAR"; configuration and stats
// strings carry it byte-reversed ("RATS") as it appears on the wire.
type Product uint32

const (
	ProductSTAR Product = 0x53544152
	ProductSEXP Product = 0x53455850
	ProductW2BN Product = 0x5732424E
	ProductD2DV Product = 0x44324456
	ProductD2XP Product = 0x44325850
	ProductJSTR Product = 0x4A535452
	ProductWAR3 Product = 0x57415233
	ProductW3XP Product = 0x57335850
	ProductDRTL Product = 0x4452544C
	ProductDSHR Product = 0x44534852
	ProductSSHR Product = 0x53534852
	ProductCHAT Product = 0x43484154
)

// GameType is the product selector used by the login relay.
type GameType uint32

const (
	GameSTAR GameType = 0x01
	GameSEXP GameType = 0x02
	GameW2BN GameType = 0x03
	GameD2DV GameType = 0x04
	GameD2XP GameType = 0x05
	GameJSTR GameType = 0x06
	GameWAR3 GameType = 0x07
	GameW3XP GameType = 0x08
	GameDRTL GameType = 0x09
	GameDSHR GameType = 0x0A
	GameSSHR GameType = 0x0B
)

// RecordSet selects which ladder records a profile lookup requests.
type RecordSet int

const (
	RecordNone    RecordSet = 0
	RecordNormal  RecordSet = 1 << 0
	RecordLadder  RecordSet = 1 << 1
	RecordIronMan RecordSet = 1 << 2
)

type productInfo struct {
	name       string
	game       GameType
	keys       int
	records    RecordSet
	selectable bool
}

var products = map[Product]productInfo{
	ProductSTAR: {"StarCraft", GameSTAR, 1, RecordNormal | RecordLadder, true},
	ProductSEXP: {"StarCraft: Brood War", GameSEXP, 1, RecordNormal | RecordLadder, true},
	ProductW2BN: {"WarCraft II: Battle.net Edition", GameW2BN, 1, RecordNormal | RecordLadder | RecordIronMan, true},
	ProductD2DV: {"Diablo II", GameD2DV, 1, RecordNone, true},
	ProductD2XP: {"Diablo II: Lord of Destruction", GameD2XP, 2, RecordNone, true},
	ProductJSTR: {"Japanese StarCraft", GameJSTR, 0, RecordNormal | RecordLadder, true},
	ProductWAR3: {"WarCraft III", GameWAR3, 1, RecordNone, true},
	ProductW3XP: {"WarCraft III: The Frozen Throne", GameW3XP, 2, RecordNone, true},
	ProductDRTL: {"Diablo", GameDRTL, 0, RecordNone, true},
	ProductDSHR: {"Diablo Shareware", GameDSHR, 0, RecordNone, true},
	ProductSSHR: {"StarCraft Shareware", GameSSHR, 0, RecordNormal, true},
	ProductCHAT: {"Telnet Chat", 0, 0, RecordNone, false},
}

// ParseProduct reads a product from its configuration form, the reversed
// four-character text ("RATS", "PX3W"). The forward form is also accepted.
func ParseProduct(s string) (Product, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) != 4 {
		return 0, fmt.Errorf("invalid product %q: must be 4 characters", s)
	}
	p := Product(binary.LittleEndian.Uint32([]byte(s)))
	if info, ok := products[p]; ok && info.selectable {
		return p, nil
	}
	p = Product(binary.BigEndian.Uint32([]byte(s)))
	if info, ok := products[p]; ok && info.selectable {
		return p, nil
	}
	return 0, fmt.Errorf("unknown product %q", s)
}

// ID returns the forward four-character text ("STAR").
func (p Product) ID() string {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(p))
	return string(b[:])
}

// Name returns the display name of the product.
func (p Product) Name() string {
	if info, ok := products[p]; ok {
		return info.name
	}
	return "Unknown"
}

// String returns the product id, for logging.
func (p Product) String() string {
	return p.ID()
}

// GameType returns the relay game selector, or zero for products the relay does not serve.
func (p Product) GameType() GameType {
	return products[p].game
}

// KeyCount returns the number of CD-keys the product submits in AUTH_CHECK.
func (p Product) KeyCount() int {
	return products[p].keys
}

// Records returns the ladder record categories stored for the product.
func (p Product) Records() RecordSet {
	return products[p].records
}

// IsDiablo2 reports whether user names carry a "character*account" prefix.
func (p Product) IsDiablo2() bool {
	return p == ProductD2DV || p == ProductD2XP
}

// IsWarcraft3 reports whether the product uses Warcraft III stat strings.
func (p Product) IsWarcraft3() bool {
	return p == ProductWAR3 || p == ProductW3XP
}

// ProductFromStats reads the product prefix of a channel stats blob, which
// carries the id byte-reversed ("RATS 0 0 ...").
func ProductFromStats(stats []byte) Product {
	if len(stats) < 4 {
		return 0
	}
	return Product(binary.LittleEndian.Uint32(stats[:4]))
}
