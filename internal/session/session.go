package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/exp/rand"

	"p2pong/internal/loop"
	"p2pong/internal/match"
	"p2pong/internal/netwrk"
	"p2pong/internal/pong"
	"p2pong/internal/transport"
)

var (
	ErrInvalidRoomCode = errors.New("room code must be 6 digits")
	ErrBusy            = errors.New("a match is in progress")
	ErrNothingToRetry  = errors.New("nothing to retry")
)

const (
	DefaultSettleDelay = time.Second
	eventQueueSize     = 256
)

type Options struct {
	Network     transport.Network
	Codec       netwrk.Codec
	Settings    pong.Settings
	SettleDelay time.Duration
	Rand        *rand.Rand
	Input       loop.InputSource
	Renderer    loop.Renderer
	// OnStatus runs on the loop goroutine.
	OnStatus func(Status)
}

// Negotiator turns host and join requests into sessions and feeds transport
// events to the current one. Every method except Do must be called from the
// loop goroutine.
type Negotiator struct {
	opts    Options
	rng     *rand.Rand
	inbox   chan func()
	session *Session

	// last host or join request, for Retry
	tried    bool
	lastRole match.Role
	lastCode string
}

func NewNegotiator(opts Options) *Negotiator {
	if opts.Codec == nil {
		opts.Codec = netwrk.ProtoCodec{}
	}
	if opts.SettleDelay <= 0 {
		opts.SettleDelay = DefaultSettleDelay
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(uint64(time.Now().UnixNano())))
	}
	return &Negotiator{opts: opts, rng: rng, inbox: make(chan func(), 64)}
}

// Session is the current one, or nil when idle.
func (n *Negotiator) Session() *Session {
	return n.session
}

func (n *Negotiator) State() match.State {
	if n.session == nil {
		return match.Idle
	}
	return n.session.ctrl.State()
}

// Do queues f to run on the loop goroutine at the start of the next frame.
func (n *Negotiator) Do(f func()) {
	n.inbox <- f
}

// Host opens a room under a fresh code and waits for a guest.
func (n *Negotiator) Host(ctx context.Context) (string, error) {
	if err := n.replaceable(); err != nil {
		return "", err
	}
	code := strconv.Itoa(100000 + n.rng.Intn(900000))
	n.tried, n.lastRole, n.lastCode = true, match.Host, code

	if err := n.open(ctx, match.Host, code); err != nil {
		n.status(Status{Message: StatusConnectionError, Retryable: true, Err: err})
		return "", err
	}
	n.status(Status{Message: StatusWaiting})
	return code, nil
}

// Join connects to the room a host read out to us.
func (n *Negotiator) Join(ctx context.Context, code string) error {
	if !ValidRoomCode(code) {
		return fmt.Errorf("join %q: %w", code, ErrInvalidRoomCode)
	}
	if err := n.replaceable(); err != nil {
		return err
	}
	n.tried, n.lastRole, n.lastCode = true, match.Client, code

	if err := n.open(ctx, match.Client, code); err != nil {
		n.status(Status{Message: StatusJoinFailed, Retryable: true, Err: err})
		return err
	}
	return nil
}

// Retry repeats the last host or join request after a failure. A host gets
// a fresh room code, a client joins the same one again. It returns the room
// code in use.
func (n *Negotiator) Retry(ctx context.Context) (string, error) {
	if !n.tried {
		return "", ErrNothingToRetry
	}
	if n.lastRole == match.Host {
		return n.Host(ctx)
	}
	code := n.lastCode
	return code, n.Join(ctx, code)
}

// PlayAgain restarts an ended match on both peers.
func (n *Negotiator) PlayAgain() error {
	if n.session == nil {
		return fmt.Errorf("play again while idle: %w", match.ErrNotEnded)
	}
	return n.session.ctrl.PlayAgain()
}

// ReturnToMenu drops the current session, if any.
func (n *Negotiator) ReturnToMenu() {
	if n.session == nil {
		return
	}
	n.session.close()
	n.session = nil
}

func ValidRoomCode(code string) bool {
	if len(code) != 6 {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (n *Negotiator) replaceable() error {
	switch n.State() {
	case match.Playing, match.Ended:
		return ErrBusy
	}
	n.ReturnToMenu()
	return nil
}

func (n *Negotiator) open(ctx context.Context, r match.Role, code string) error {
	s := &Session{
		code:   code,
		codec:  n.opts.Codec,
		events: make(chan transport.Event, eventQueueSize),
	}
	s.ctrl = match.NewController(match.Options{
		Role:     r,
		Settings: n.opts.Settings,
		Rand:     n.rng,
		Peer:     s,
		Input:    n.opts.Input,
		Renderer: n.opts.Renderer,
		OnEnd: func(res match.Result) {
			n.status(winnerStatus(res.Winner))
		},
	})

	var err error
	if r == match.Host {
		s.channel, err = n.opts.Network.OpenAsHost(ctx, code, s.events)
	} else {
		s.channel, err = n.opts.Network.ConnectAsClient(ctx, code, s.events)
	}
	if err != nil {
		return err
	}

	s.ctrl.Connect()
	n.session = s
	slog.Info("session opened", slog.String("role", r.String()), slog.String("code", code))
	return nil
}

func (n *Negotiator) status(s Status) {
	slog.Debug("status", slog.String("message", s.Message), slog.Bool("retryable", s.Retryable), slog.Any("error", s.Err))
	if n.opts.OnStatus != nil {
		n.opts.OnStatus(s)
	}
}

// Frame is one display refresh: queued commands, then transport events,
// then the settle check, then one scheduler tick.
func (n *Negotiator) Frame(now time.Time) {
	for i, queued := 0, len(n.inbox); i < queued; i++ {
		(<-n.inbox)()
	}

	s := n.session
	if s == nil {
		return
	}
	for i, queued := 0, len(s.events); i < queued && n.session == s; i++ {
		n.handleEvent(s, <-s.events, now)
	}
	if n.session != s {
		return
	}

	if s.opened && !s.started && now.Sub(s.openedAt) >= n.opts.SettleDelay {
		s.started = true
		s.ctrl.Start()
	}
	s.ctrl.Scheduler().Tick()
}

func (n *Negotiator) handleEvent(s *Session, ev transport.Event, now time.Time) {
	switch ev.Type {
	case transport.EventOpen:
		if s.opened {
			return
		}
		s.opened = true
		s.openedAt = now
		if s.ctrl.Role() == match.Host {
			n.status(Status{Message: StatusPlayerJoined})
		} else {
			n.status(Status{Message: StatusConnected})
		}

	case transport.EventData:
		msg, err := s.codec.Decode(ev.Payload)
		if err != nil {
			slog.Debug("dropping undecodable message", slog.Any("error", err))
			return
		}
		s.ctrl.HandleMessage(msg)

	case transport.EventError:
		if s.ctrl.State() == match.Playing {
			n.lost(s)
			return
		}
		s.failed = true
		msg := StatusConnectionError
		if s.ctrl.Role() == match.Client {
			msg = StatusJoinFailed
		}
		n.status(Status{Message: msg, Retryable: true, Err: ev.Err})

	case transport.EventClose:
		if s.ctrl.State() == match.Connecting && !s.failed {
			n.status(Status{Message: StatusConnectionError, Retryable: true, Err: transport.ErrClosed})
		}
		n.lost(s)
	}
}

func (n *Negotiator) lost(s *Session) {
	if state := s.ctrl.State(); state == match.Playing || state == match.Ended {
		n.status(Status{Message: StatusOpponentLeft})
	}
	s.close()
	if n.session == s {
		n.session = nil
	}
}

// Run drives Frame from frames until ctx is done.
func (n *Negotiator) Run(ctx context.Context, frames loop.FrameSource) error {
	defer frames.Stop()
	for {
		select {
		case <-ctx.Done():
			n.ReturnToMenu()
			return ctx.Err()
		case now := <-frames.Frames():
			n.Frame(now)
		}
	}
}

// Session is one host or join attempt and the match played over it.
type Session struct {
	code    string
	codec   netwrk.Codec
	channel transport.Channel
	events  chan transport.Event
	ctrl    *match.Controller

	opened   bool
	openedAt time.Time
	started  bool
	failed   bool
}

func (s *Session) Code() string                  { return s.code }
func (s *Session) Controller() *match.Controller { return s.ctrl }

// Send implements match.Peer. Failures are logged and dropped.
func (s *Session) Send(m netwrk.Message) {
	b, err := s.codec.Encode(m)
	if err != nil {
		slog.Debug("could not encode message", slog.String("kind", m.Kind().String()), slog.Any("error", err))
		return
	}
	if err := s.channel.Send(b); err != nil {
		slog.Debug("could not send message", slog.String("kind", m.Kind().String()), slog.Any("error", err))
	}
}

func (s *Session) close() {
	s.ctrl.Disconnect()
	if s.channel != nil {
		s.channel.Close()
	}
}
