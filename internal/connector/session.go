// Package connector drives one Battle.net chat session: the logon
// handshake over the chat server and the login relay, the chat event
// dispatch that keeps the roster current, and the actions a host issues
// once the session is online.
package connector

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/energizer-project/bnetchat/internal/auth"
	"github.com/energizer-project/bnetchat/internal/commands"
	"github.com/energizer-project/bnetchat/internal/config"
	"github.com/energizer-project/bnetchat/internal/events"
	"github.com/energizer-project/bnetchat/internal/lookup"
	"github.com/energizer-project/bnetchat/internal/protocol"
	"github.com/energizer-project/bnetchat/internal/roster"
)

const (
	frameQueueSize  = 64
	actionQueueSize = 16
)

// errSessionComplete ends Run without an error once a one-shot task such
// as account creation has finished.
var errSessionComplete = errors.New("session complete")

// Option customizes a Session.
type Option func(*Session)

// WithDialer replaces the TCP dialer.
func WithDialer(d Dialer) Option {
	return func(s *Session) { s.dial = d }
}

// WithKeyDecoder decodes CD-keys locally instead of through the relay.
func WithKeyDecoder(d auth.KeyDecoder) Option {
	return func(s *Session) { s.keyDecoder = d }
}

// WithHasher replaces the password hasher used by the legacy logon.
func WithHasher(h auth.PasswordHasher) Option {
	return func(s *Session) { s.hasher = h }
}

// WithSessionID sets the id attached to events instead of a random one.
func WithSessionID(id string) Option {
	return func(s *Session) { s.id = id }
}

// Session is one logon to a chat server. All protocol state is owned by
// the dispatcher goroutine started by Run; host actions are queued to it.
type Session struct {
	id       string
	account  config.AccountConfig
	servers  config.ServersConfig
	chatCfg  config.ChatConfig
	product  protocol.Product
	username string
	server   string

	bus        events.Emitter
	dial       Dialer
	hasher     auth.PasswordHasher
	keyDecoder auth.KeyDecoder
	encoder    *commands.Encoder
	flood      *commands.FloodLimiter
	parser     *protocol.ChatParser
	logger     zerolog.Logger

	relay       *RelayClient
	chat        Link
	relayFrames chan protocol.Frame
	chatFrames  chan protocol.Frame
	actions     chan func() error
	group       *errgroup.Group
	groupCtx    context.Context

	// mu guards everything below against host snapshot readers. The
	// dispatcher holds it while handling a frame or an action.
	mu          sync.RWMutex
	state       State
	running     bool
	cancel      context.CancelFunc
	clientToken uint32
	serverToken uint32
	logonType   uint32
	versionCode uint32
	exeVersion  uint32
	exeChecksum uint32
	exeInfo     string
	keys        []string
	keyBlocks   []protocol.CDKeyBlock
	uniqueName  string
	channels    []string
	channel     roster.Channel
	friends     roster.FriendList
	correlator  *lookup.Correlator
	pending     *lookup.PendingTargets
	welcome     []string
	joinAttempt string
	inChat      bool
	isAway      bool
	isDND       bool
	settingAway bool
	settingDND  bool
	awayMessage string
	dndMessage  string
	keepalive   *time.Ticker
	ticks       uint32
}

// NewSession prepares a session for the configured account. The account
// name is validated here so a bad name never reaches the network.
func NewSession(cfg *config.Config, bus events.Emitter, opts ...Option) (*Session, error) {
	account := cfg.GetAccount()
	servers := cfg.GetServers()
	chatCfg := cfg.GetChat()

	product, err := protocol.ParseProduct(account.Product)
	if err != nil {
		return nil, fmt.Errorf("failed to select product: %w", err)
	}
	username, server, err := commands.SplitAccount(account.Username)
	if err != nil {
		return nil, err
	}

	s := &Session{
		id:          uuid.NewString(),
		account:     account,
		servers:     servers,
		chatCfg:     chatCfg,
		product:     product,
		username:    username,
		server:      server,
		bus:         bus,
		dial:        NetworkDialer(servers.ConnectTimeout()),
		hasher:      auth.XSHA1Hasher{},
		encoder:     commands.NewEncoder(product),
		flood:       commands.NewFloodLimiter(chatCfg.FloodRatePerSec, chatCfg.FloodBurst),
		parser:      protocol.NewChatParser(),
		relayFrames: make(chan protocol.Frame, frameQueueSize),
		chatFrames:  make(chan protocol.Frame, frameQueueSize),
		actions:     make(chan func() error, actionQueueSize),
		clientToken: rand.Uint32(),
		correlator:  lookup.NewCorrelator(),
		pending:     lookup.NewPendingTargets(chatCfg.LookupTTL()),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = log.With().
		Str("component", "session").
		Str("session_id", s.id).
		Str("account", username).
		Logger()
	return s, nil
}

// ID returns the session id attached to every event.
func (s *Session) ID() string {
	return s.id
}

// Run logs on and processes traffic until the session ends. It returns nil
// when ctx is cancelled, Close is called or a one-shot task completes, and
// the terminal error otherwise.
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("session %s is already running", s.id)
	}
	s.running = true
	s.cancel = cancel
	s.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	s.group, s.groupCtx = g, gctx

	g.Go(func() error {
		return s.dispatch(gctx)
	})

	err := g.Wait()
	if errors.Is(err, errSessionComplete) || errors.Is(err, context.Canceled) {
		err = nil
	}

	s.mu.Lock()
	s.running = false
	s.stopKeepalive()
	s.setState(StateClosed)
	s.mu.Unlock()

	payload := events.SessionClosedPayload{SessionID: s.id, Class: ErrorClass(err)}
	if err != nil {
		payload.Reason = err.Error()
		s.logger.Error().Err(err).Str("class", payload.Class).Msg("session ended")
	} else {
		s.logger.Info().Msg("session closed")
	}
	s.emit(events.EventSessionClosed, payload)
	return err
}

// Close ends a running session.
func (s *Session) Close() {
	s.mu.RLock()
	cancel := s.cancel
	s.mu.RUnlock()
	if cancel != nil {
		cancel()
	}
}

// dispatch owns the session state. It starts the logon and then serves
// frames, actions and keepalive ticks in arrival order.
func (s *Session) dispatch(ctx context.Context) error {
	defer s.closeLinks()

	if err := s.locked(func() error { return s.connectRelay(ctx) }); err != nil {
		return err
	}

	for {
		var tick <-chan time.Time
		if s.keepalive != nil {
			tick = s.keepalive.C
		}

		var err error
		select {
		case <-ctx.Done():
			return nil
		case f := <-s.relayFrames:
			err = s.locked(func() error { return s.handleRelayFrame(ctx, f) })
		case f := <-s.chatFrames:
			err = s.locked(func() error { return s.handleChatFrame(ctx, f) })
		case action := <-s.actions:
			err = s.locked(action)
		case <-tick:
			err = s.locked(s.onKeepalive)
		}
		if err != nil {
			return err
		}
	}
}

func (s *Session) locked(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}

// pump starts reading link into out under the session's errgroup.
func (s *Session) pump(link Link, out chan<- protocol.Frame) {
	if s.group == nil {
		return
	}
	ctx := s.groupCtx
	s.group.Go(func() error {
		return link.Pump(ctx, out)
	})
}

func (s *Session) closeLinks() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.relay != nil {
		s.relay.Close()
		s.relay = nil
	}
	if s.chat != nil {
		s.chat.Close()
		s.chat = nil
	}
	s.stopKeepalive()
}

// do queues an action for the dispatcher and waits for its result.
func (s *Session) do(ctx context.Context, fn func() error) error {
	s.mu.RLock()
	running := s.running
	s.mu.RUnlock()
	if !running {
		return commands.ErrNotConnected
	}

	result := make(chan error, 1)
	action := func() error {
		result <- fn()
		return nil
	}

	select {
	case s.actions <- action:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// setState records a transition. Callers hold mu.
func (s *Session) setState(next State) {
	prev := s.state
	if prev == next {
		return
	}
	s.state = next
	s.logger.Info().Str("from", prev.String()).Str("to", next.String()).Msg("session state changed")
	s.emit(events.EventStateChanged, events.StatePayload{
		SessionID: s.id,
		State:     next.String(),
		Previous:  prev.String(),
		Account:   s.username,
	})
}

func (s *Session) emit(t events.EventType, payload interface{}) {
	if s.bus == nil {
		return
	}
	s.bus.Emit(context.Background(), events.Event{
		Type:      t,
		Source:    "session",
		SessionID: s.id,
		Time:      time.Now(),
		Payload:   payload,
	})
}

func (s *Session) notice(severity events.Severity, caption, text string) {
	s.emit(events.EventNotice, events.NoticePayload{
		SessionID: s.id,
		Severity:  severity,
		Caption:   caption,
		Text:      text,
	})
}

// sendFrame sends the result of a builder that can fail.
func (s *Session) sendFrame(frame []byte, err error) error {
	if err != nil {
		return err
	}
	return s.sendChat(frame)
}

// sendChat writes a frame to the chat server. Callers hold mu.
func (s *Session) sendChat(frame []byte) error {
	if s.chat == nil {
		return commands.ErrNotConnected
	}
	if len(frame) > 1 {
		s.logger.Trace().Uint8("id", frame[1]).Int("len", len(frame)).Msg("frame sent")
	}
	return s.chat.Write(frame)
}
