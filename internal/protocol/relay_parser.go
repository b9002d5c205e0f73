package protocol

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// RelayParser decodes login relay frames into typed packets.
type RelayParser struct {
	logger zerolog.Logger
}

// NewRelayParser creates a new parser for the relay protocol.
func NewRelayParser() *RelayParser {
	return &RelayParser{
		logger: log.With().Str("component", "bnls_parser").Logger(),
	}
}

// VersionByteResponse is BNLS_REQUESTVERSIONBYTE. Product is zero when the
// relay does not know the requested game.
type VersionByteResponse struct {
	Product     Product
	VersionCode uint32
}

// VersionCheckResponse is BNLS_VERSIONCHECKEX2.
type VersionCheckResponse struct {
	Success     bool
	ExeVersion  uint32
	ExeChecksum uint32
	ExeInfo     string
	Cookie      uint32
	VersionCode uint32
}

// RevisionResponse is BNLS_CHOOSENLSREVISION.
type RevisionResponse struct {
	Accepted bool
}

// LogonChallengeResponse is BNLS_LOGONCHALLENGE.
type LogonChallengeResponse struct {
	A []byte
}

// LogonProofResponse is BNLS_LOGONPROOF.
type LogonProofResponse struct {
	M1 []byte
}

// CDKeyExResponse is BNLS_CDKEY_EX. Keys holds one block per successfully
// hashed key, in request order.
type CDKeyExResponse struct {
	Cookie     byte
	Requested  byte
	Successful byte
	Bitmask    uint32
	Keys       []CDKeyBlock
}

// ParseRelayFrame decodes a relay frame. Unknown ids return (nil, nil).
func (p *RelayParser) ParseRelayFrame(f Frame) (interface{}, error) {
	r := NewReader(f.Payload)

	switch f.ID {
	case RelayRequestVersionByte:
		return parseVersionByte(r)
	case RelayVersionCheckEx2:
		return parseVersionCheck(r)
	case RelayChooseNLSRevision:
		ok, err := r.ReadUint32("revision accepted")
		if err != nil {
			return nil, err
		}
		return &RevisionResponse{Accepted: ok != 0}, nil
	case RelayLogonChallenge:
		a, err := r.ReadBlob("A", 32)
		if err != nil {
			return nil, err
		}
		return &LogonChallengeResponse{A: a}, nil
	case RelayLogonProof:
		m1, err := r.ReadBlob("M1", 20)
		if err != nil {
			return nil, err
		}
		return &LogonProofResponse{M1: m1}, nil
	case RelayCDKeyEx:
		return parseCDKeyEx(r)
	default:
		p.logger.Debug().
			Uint8("id", f.ID).
			Int("payload_len", len(f.Payload)).
			Msg("unhandled relay packet")
		return nil, nil
	}
}

func parseVersionByte(r *Reader) (*VersionByteResponse, error) {
	product, err := r.ReadUint32("product")
	if err != nil {
		return nil, err
	}
	res := &VersionByteResponse{Product: Product(product)}
	if product != 0 {
		if res.VersionCode, err = r.ReadUint32("version code"); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func parseVersionCheck(r *Reader) (*VersionCheckResponse, error) {
	success, err := r.ReadUint32("success")
	if err != nil {
		return nil, err
	}
	res := &VersionCheckResponse{Success: success != 0}
	if !res.Success {
		return res, nil
	}
	if res.ExeVersion, err = r.ReadUint32("exe version"); err != nil {
		return nil, err
	}
	if res.ExeChecksum, err = r.ReadUint32("exe checksum"); err != nil {
		return nil, err
	}
	if res.ExeInfo, err = r.ReadCString("exe info"); err != nil {
		return nil, err
	}
	if res.Cookie, err = r.ReadUint32("cookie"); err != nil {
		return nil, err
	}
	if res.VersionCode, err = r.ReadUint32("version code"); err != nil {
		return nil, err
	}
	return res, nil
}

// Format: [cookie:1][requested:1][successful:1][bitmask:4]([client_token:4][key:36])*successful
func parseCDKeyEx(r *Reader) (*CDKeyExResponse, error) {
	var (
		res CDKeyExResponse
		err error
	)
	if res.Cookie, err = r.ReadUint8("cookie"); err != nil {
		return nil, err
	}
	if res.Requested, err = r.ReadUint8("requested"); err != nil {
		return nil, err
	}
	if res.Successful, err = r.ReadUint8("successful"); err != nil {
		return nil, err
	}
	if res.Bitmask, err = r.ReadUint32("bitmask"); err != nil {
		return nil, err
	}
	for i := 0; i < int(res.Successful); i++ {
		if _, err = r.ReadUint32("client token"); err != nil {
			return nil, err
		}
		var k CDKeyBlock
		if k.Length, err = r.ReadUint32("key length"); err != nil {
			return nil, err
		}
		if k.Product, err = r.ReadUint32("key product"); err != nil {
			return nil, err
		}
		if k.Public, err = r.ReadUint32("key public"); err != nil {
			return nil, err
		}
		if k.Private, err = r.ReadUint32("key private"); err != nil {
			return nil, err
		}
		hash, err := r.ReadBlob("key hash", 20)
		if err != nil {
			return nil, err
		}
		copy(k.Hash[:], hash)
		res.Keys = append(res.Keys, k)
	}
	return &res, nil
}
