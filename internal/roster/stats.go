package roster

import (
	"bytes"
	"encoding/binary"

	"github.com/energizer-project/bnetchat/internal/protocol"
)

// Stats is the decoded form of a channel member's stats blob. The concrete
// type depends on the product prefix of the blob.
type Stats interface {
	StatsProduct() protocol.Product
}

// StarStats is the blob of the StarCraft and WarCraft II family.
type StarStats struct {
	Product      protocol.Product
	LadderRating uint32
	LadderRank   uint32
	Wins         uint32
	Spawn        bool
	HighRating   uint32
	IconID       uint32
}

// DiabloStats is the blob of Diablo and its shareware client.
type DiabloStats struct {
	Product    protocol.Product
	Level      uint32
	Class      uint32
	Difficulty uint32
	Strength   uint32
	Magic      uint32
	Dexterity  uint32
	Vitality   uint32
	Gold       uint32
	Spawn      bool
}

// Diablo2Stats is the blob of Diablo II. Open is set for characterless
// "open Battle.net" logons, in which case nothing else is.
type Diablo2Stats struct {
	Product       protocol.Product
	Open          bool
	Realm         string
	Character     string
	Class         byte
	Level         byte
	CreationFlags byte
	CurrentAct    byte
	LadderSeason  byte
}

// Warcraft3Stats is the blob of Warcraft III.
type Warcraft3Stats struct {
	Product protocol.Product
	IconID  uint32
	Level   uint32
	Clan    string
}

// UnknownStats is any blob without a known layout.
type UnknownStats struct {
	Product protocol.Product
}

func (s StarStats) StatsProduct() protocol.Product      { return s.Product }
func (s DiabloStats) StatsProduct() protocol.Product    { return s.Product }
func (s Diablo2Stats) StatsProduct() protocol.Product   { return s.Product }
func (s Warcraft3Stats) StatsProduct() protocol.Product { return s.Product }
func (s UnknownStats) StatsProduct() protocol.Product   { return s.Product }

// DecodeStats decodes a stats blob. Missing trailing fields decode as zero.
func DecodeStats(blob []byte) Stats {
	product := protocol.ProductFromStats(blob)
	var rest []byte
	if len(blob) > 4 {
		rest = blob[4:]
	}

	switch product {
	case protocol.ProductSTAR, protocol.ProductSEXP, protocol.ProductSSHR,
		protocol.ProductJSTR, protocol.ProductW2BN:
		return decodeStar(product, rest)
	case protocol.ProductDRTL, protocol.ProductDSHR:
		return decodeDiablo(product, rest)
	case protocol.ProductD2DV, protocol.ProductD2XP:
		return decodeDiablo2(product, rest)
	case protocol.ProductWAR3, protocol.ProductW3XP:
		return decodeWarcraft3(product, rest)
	default:
		return UnknownStats{Product: product}
	}
}

// numbers reads up to n space separated decimal fields.
func numbers(rest []byte, n int) ([]uint32, []byte) {
	out := make([]uint32, n)
	for i := 0; i < n; i++ {
		if len(rest) == 0 {
			break
		}
		rest = rest[1:]
		end := bytes.IndexByte(rest, ' ')
		if end < 0 {
			end = len(rest)
		}
		out[i] = leadingUint(rest[:end])
		rest = rest[end:]
	}
	return out, rest
}

func leadingUint(b []byte) uint32 {
	var v uint32
	for _, c := range b {
		if c < '0' || c > '9' {
			break
		}
		v = v*10 + uint32(c-'0')
	}
	return v
}

func decodeStar(product protocol.Product, rest []byte) StarStats {
	n, rest := numbers(rest, 8)
	s := StarStats{
		Product:      product,
		LadderRating: n[0],
		LadderRank:   n[1],
		Wins:         n[2],
		Spawn:        n[3] != 0,
		HighRating:   n[5],
	}
	if len(rest) >= 5 {
		s.IconID = binary.LittleEndian.Uint32(rest[1:5])
	}
	return s
}

func decodeDiablo(product protocol.Product, rest []byte) DiabloStats {
	n, _ := numbers(rest, 9)
	return DiabloStats{
		Product:    product,
		Level:      n[0],
		Class:      n[1],
		Difficulty: n[2],
		Strength:   n[3],
		Magic:      n[4],
		Dexterity:  n[5],
		Vitality:   n[6],
		Gold:       n[7],
		Spawn:      n[8] != 0,
	}
}

func decodeDiablo2(product protocol.Product, rest []byte) Diablo2Stats {
	s := Diablo2Stats{Product: product, LadderSeason: 0xFF}
	if len(rest) == 0 {
		s.Open = true
		return s
	}

	parts := bytes.SplitN(rest, []byte(","), 3)
	s.Realm = string(parts[0])
	if len(parts) > 1 {
		s.Character = string(parts[1])
	}
	if len(parts) > 2 {
		b := parts[2]
		at := func(i int) byte {
			if i < len(b) {
				return b[i]
			}
			return 0
		}
		s.Class = at(13)
		s.Level = at(25)
		s.CreationFlags = at(26)
		s.CurrentAct = at(27)
		if len(b) > 30 {
			s.LadderSeason = b[30]
		}
	}
	return s
}

func decodeWarcraft3(product protocol.Product, rest []byte) Warcraft3Stats {
	s := Warcraft3Stats{Product: product}
	if len(rest) < 5 {
		return s
	}
	s.IconID = binary.LittleEndian.Uint32(rest[1:5])
	rest = rest[5:]

	n, rest := numbers(rest, 1)
	s.Level = n[0]

	if len(rest) > 1 {
		tag := rest[1:]
		out := make([]byte, 0, 4)
		for i := len(tag) - 1; i >= 0 && len(out) < 4; i-- {
			out = append(out, tag[i])
		}
		s.Clan = string(out)
	}
	return s
}

var diabloClasses = map[uint32]string{0: "Warrior", 1: "Sorcerer", 2: "Rogue"}

// ClassName returns the character class.
func (s DiabloStats) ClassName() string {
	if name, ok := diabloClasses[s.Class]; ok {
		return name
	}
	return "Unknown"
}

// DifficultyText returns the last difficulty completed.
func (s DiabloStats) DifficultyText() string {
	if s.Difficulty > 3 {
		return "None"
	}
	return difficultyNames[s.Difficulty]
}

var difficultyNames = [4]string{"None", "Normal", "Nightmare", "Hell"}

var diablo2Classes = map[byte]string{
	0x01: "Amazon",
	0x02: "Sorceress",
	0x03: "Necromancer",
	0x04: "Paladin",
	0x05: "Barbarian",
	0x06: "Druid",
	0x07: "Assassin",
}

// ClassName returns the character class.
func (s Diablo2Stats) ClassName() string {
	if name, ok := diablo2Classes[s.Class]; ok {
		return name
	}
	return "Unknown"
}

// Expansion reports whether the character was created on the expansion.
func (s Diablo2Stats) Expansion() bool { return s.CreationFlags&0x20 != 0 }

// Hardcore reports whether the character is hardcore.
func (s Diablo2Stats) Hardcore() bool { return s.CreationFlags&0x04 != 0 }

// Dead reports whether a hardcore character has died.
func (s Diablo2Stats) Dead() bool { return s.CreationFlags&0x08 != 0 }

// Ladder reports whether the character plays the ladder.
func (s Diablo2Stats) Ladder() bool { return s.LadderSeason != 0xFF }

// DifficultyText returns the last difficulty completed. The act byte is
// 1DDAA0 with the high bit set; expansion characters count five acts per
// difficulty, classic characters four.
func (s Diablo2Stats) DifficultyText() string {
	act := (s.CurrentAct ^ 0x80) >> 1
	if s.Expansion() {
		switch {
		case act >= 0x0F:
			if act == 0x0F {
				return "Hell"
			}
			return "None"
		case act >= 0x0A:
			return "Nightmare"
		case act >= 0x05:
			return "Normal"
		default:
			return "None"
		}
	}
	d := act >> 2
	if d > 3 {
		return "None"
	}
	return difficultyNames[d]
}

// Icon returns the icon id as the four characters it is shown as.
func (s Warcraft3Stats) Icon() string {
	if s.IconID == 0 {
		return ""
	}
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], s.IconID)
	return string(b[:])
}
