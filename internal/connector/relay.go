package connector

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/energizer-project/bnetchat/internal/network"
	"github.com/energizer-project/bnetchat/internal/protocol"
)

// Link is one of the session's two sockets. *network.Connection is the
// production implementation.
type Link interface {
	Write(data []byte) error
	Pump(ctx context.Context, out chan<- protocol.Frame) error
	Close() error
	LocalIPv4() uint32
}

// Dialer opens a Link of the given kind.
type Dialer func(ctx context.Context, kind protocol.Kind, addr string) (Link, error)

// NetworkDialer dials real TCP connections with the given timeout.
func NetworkDialer(timeout time.Duration) Dialer {
	return func(ctx context.Context, kind protocol.Kind, addr string) (Link, error) {
		conn, err := network.Dial(ctx, kind, addr, timeout)
		if err != nil {
			return nil, err
		}
		return conn, nil
	}
}

// RelayClient speaks the login relay protocol during logon. The relay
// computes the version check, CD-key hashes and the password proof so the
// client does not have to.
type RelayClient struct {
	link   Link
	parser *protocol.RelayParser
	game   protocol.GameType
	logger zerolog.Logger
}

// NewRelayClient wraps an open relay link for product.
func NewRelayClient(link Link, product protocol.Product) *RelayClient {
	return &RelayClient{
		link:   link,
		parser: protocol.NewRelayParser(),
		game:   product.GameType(),
		logger: log.With().Str("component", "relay_client").Logger(),
	}
}

func (r *RelayClient) send(name string, frame []byte) error {
	r.logger.Debug().Str("request", name).Int("len", len(frame)).Msg("sending relay request")
	return r.link.Write(frame)
}

// RequestVersionByte asks for the product's current version code.
func (r *RelayClient) RequestVersionByte() error {
	return r.send("version_byte", protocol.BuildRelayRequestVersionByte(r.game))
}

// VersionCheck forwards the chat server's AUTH_INFO challenge.
func (r *RelayClient) VersionCheck(challenge *protocol.AuthInfoResponse) error {
	frame, err := protocol.BuildRelayVersionCheckEx2(
		r.game, challenge.MPQFiletime, challenge.MPQFilename, challenge.Formula)
	if err != nil {
		return err
	}
	return r.send("version_check", frame)
}

// DecodeKeys asks the relay to hash keys for the session tokens.
func (r *RelayClient) DecodeKeys(cookie byte, serverToken, clientToken uint32, keys []string) error {
	frame, err := protocol.BuildRelayCDKeyEx(cookie, serverToken, clientToken, keys)
	if err != nil {
		return err
	}
	return r.send("cdkey_ex", frame)
}

// ChooseRevision selects the account logon revision the chat server asked for.
func (r *RelayClient) ChooseRevision(revision uint32) error {
	return r.send("choose_revision", protocol.BuildRelayChooseNLSRevision(revision))
}

// LogonChallenge asks for the A value of the password proof.
func (r *RelayClient) LogonChallenge(username, password string) error {
	frame, err := protocol.BuildRelayLogonChallenge(username, password)
	if err != nil {
		return err
	}
	return r.send("logon_challenge", frame)
}

// LogonProof asks for M1 given the chat server's salt and B.
func (r *RelayClient) LogonProof(saltAndB []byte) error {
	return r.send("logon_proof", protocol.BuildRelayLogonProof(saltAndB))
}

// Parse decodes one relay frame.
func (r *RelayClient) Parse(f protocol.Frame) (interface{}, error) {
	return r.parser.ParseRelayFrame(f)
}

// Close closes the relay link. It is only needed until logon completes.
func (r *RelayClient) Close() error {
	r.logger.Debug().Msg("closing relay link")
	return r.link.Close()
}
