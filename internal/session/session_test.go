package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/exp/rand"

	"p2pong/internal/match"
	"p2pong/internal/pong"
	"p2pong/internal/transport"
)

var base = time.Unix(1_700_000_000, 0)

type statusLog struct {
	got []Status
}

func (l *statusLog) record(s Status) { l.got = append(l.got, s) }

func (l *statusLog) last() Status {
	if len(l.got) == 0 {
		return Status{}
	}
	return l.got[len(l.got)-1]
}

func newTestNegotiator(network transport.Network, seed uint64, log *statusLog) *Negotiator {
	return NewNegotiator(Options{
		Network:  network,
		Settings: pong.DefaultSettings(),
		Rand:     rand.New(rand.NewSource(seed)),
		OnStatus: log.record,
	})
}

// connect hosts, joins and runs both sides until they are playing.
func connect(t *testing.T) (h, c *Negotiator, hl, cl *statusLog, network *transport.MemoryNetwork) {
	t.Helper()
	ctx := context.Background()
	network = transport.NewMemoryNetwork()
	hl, cl = &statusLog{}, &statusLog{}
	h = newTestNegotiator(network, 1, hl)
	c = newTestNegotiator(network, 2, cl)

	code, err := h.Host(ctx)
	if err != nil {
		t.Fatalf("Host: %v", err)
	}
	if err := c.Join(ctx, code); err != nil {
		t.Fatalf("Join: %v", err)
	}

	h.Frame(base)
	c.Frame(base)
	h.Frame(base.Add(time.Second))
	c.Frame(base.Add(time.Second))
	if h.State() != match.Playing || c.State() != match.Playing {
		t.Fatalf("states = %s/%s, want playing/playing", h.State(), c.State())
	}
	return h, c, hl, cl, network
}

func TestHostCodeIsSixDigits(t *testing.T) {
	log := &statusLog{}
	n := newTestNegotiator(transport.NewMemoryNetwork(), 9, log)

	for i := 0; i < 50; i++ {
		code, err := n.Host(context.Background())
		if err != nil {
			t.Fatalf("Host: %v", err)
		}
		if !ValidRoomCode(code) || code[0] == '0' {
			t.Fatalf("code %q is not in 100000-999999", code)
		}
	}
	if n.State() != match.Connecting {
		t.Fatalf("state = %s, want connecting", n.State())
	}
	if log.last().Message != StatusWaiting {
		t.Fatalf("status = %q, want %q", log.last().Message, StatusWaiting)
	}
}

func TestJoinRejectsMalformedCodes(t *testing.T) {
	n := newTestNegotiator(transport.NewMemoryNetwork(), 1, &statusLog{})
	for _, code := range []string{"", "12345", "1234567", "12a456", " 12345", "١٢٣٤٥٦"} {
		if err := n.Join(context.Background(), code); !errors.Is(err, ErrInvalidRoomCode) {
			t.Errorf("Join(%q) = %v, want ErrInvalidRoomCode", code, err)
		}
	}
	if n.State() != match.Idle {
		t.Fatalf("state = %s, want idle", n.State())
	}
}

func TestJoinUnknownRoomIsRetryable(t *testing.T) {
	log := &statusLog{}
	n := newTestNegotiator(transport.NewMemoryNetwork(), 1, log)

	err := n.Join(context.Background(), "123456")
	if !errors.Is(err, transport.ErrRoomNotFound) {
		t.Fatalf("err = %v, want ErrRoomNotFound", err)
	}
	s := log.last()
	if s.Message != StatusJoinFailed || !s.Retryable {
		t.Fatalf("status = %+v, want retryable %q", s, StatusJoinFailed)
	}
	if n.State() != match.Idle {
		t.Fatalf("state = %s, want idle", n.State())
	}
}

func TestSettleDelayBeforePlaying(t *testing.T) {
	ctx := context.Background()
	network := transport.NewMemoryNetwork()
	hl, cl := &statusLog{}, &statusLog{}
	h := newTestNegotiator(network, 1, hl)
	c := newTestNegotiator(network, 2, cl)

	code, _ := h.Host(ctx)
	if err := c.Join(ctx, code); err != nil {
		t.Fatalf("Join: %v", err)
	}

	h.Frame(base)
	if hl.last().Message != StatusPlayerJoined {
		t.Fatalf("host status = %q, want %q", hl.last().Message, StatusPlayerJoined)
	}
	c.Frame(base)
	if cl.last().Message != StatusConnected {
		t.Fatalf("client status = %q, want %q", cl.last().Message, StatusConnected)
	}

	h.Frame(base.Add(999 * time.Millisecond))
	if h.State() != match.Connecting {
		t.Fatalf("host state after 999ms = %s, want connecting", h.State())
	}
	if ticks := h.Session().Controller().Scheduler().Ticks(); ticks != 0 {
		t.Fatalf("host ticked %d times before the settle delay", ticks)
	}

	h.Frame(base.Add(time.Second))
	if h.State() != match.Playing {
		t.Fatalf("host state after 1s = %s, want playing", h.State())
	}
	if ticks := h.Session().Controller().Scheduler().Ticks(); ticks != 1 {
		t.Fatalf("host ticks = %d, want 1", ticks)
	}
}

func TestClientMirrorsHost(t *testing.T) {
	h, c, _, _, _ := connect(t)

	for i := 0; i < 30; i++ {
		now := base.Add(time.Second + time.Duration(i+1)*16*time.Millisecond)
		h.Frame(now)
		c.Frame(now)

		hw := h.Session().Controller().World()
		cw := c.Session().Controller().World()
		if cw.Ball.X != hw.Ball.X || cw.Ball.Y != hw.Ball.Y || cw.Score != hw.Score {
			t.Fatalf("frame %d: client ball (%v,%v) score %+v, host ball (%v,%v) score %+v",
				i, cw.Ball.X, cw.Ball.Y, cw.Score, hw.Ball.X, hw.Ball.Y, hw.Score)
		}
		if cw.Paddles[pong.Left].Y != hw.Paddles[pong.Left].Y {
			t.Fatalf("frame %d: client sees host paddle at %v, host has %v", i, cw.Paddles[pong.Left].Y, hw.Paddles[pong.Left].Y)
		}
	}
}

func TestHostWhilePlayingIsBusy(t *testing.T) {
	h, c, _, _, _ := connect(t)

	if _, err := h.Host(context.Background()); !errors.Is(err, ErrBusy) {
		t.Fatalf("Host while playing = %v, want ErrBusy", err)
	}
	if err := c.Join(context.Background(), "123456"); !errors.Is(err, ErrBusy) {
		t.Fatalf("Join while playing = %v, want ErrBusy", err)
	}
	if err := h.PlayAgain(); !errors.Is(err, match.ErrNotEnded) {
		t.Fatalf("PlayAgain while playing = %v, want ErrNotEnded", err)
	}
}

func TestRehostWhileConnectingReplacesRoom(t *testing.T) {
	network := transport.NewMemoryNetwork()
	n := newTestNegotiator(network, 3, &statusLog{})

	first, _ := n.Host(context.Background())
	second, err := n.Host(context.Background())
	if err != nil {
		t.Fatalf("second Host: %v", err)
	}
	if !network.Waiting(second) {
		t.Fatalf("room %s not open", second)
	}
	if first != second && network.Waiting(first) {
		t.Fatalf("old room %s still open", first)
	}
}

func TestOpponentDisconnectReturnsToIdle(t *testing.T) {
	h, c, hl, _, _ := connect(t)

	c.ReturnToMenu()
	if c.State() != match.Idle || c.Session() != nil {
		t.Fatalf("client still has a session after returning to menu")
	}

	h.Frame(base.Add(2 * time.Second))
	if h.State() != match.Idle || h.Session() != nil {
		t.Fatalf("host state = %s, want idle with no session", h.State())
	}
	if s := hl.last(); s.Message != StatusOpponentLeft {
		t.Fatalf("host status = %q, want %q", s.Message, StatusOpponentLeft)
	}
}

func TestDoRunsOnNextFrame(t *testing.T) {
	n := newTestNegotiator(transport.NewMemoryNetwork(), 1, &statusLog{})
	ran := 0
	n.Do(func() { ran++ })
	if ran != 0 {
		t.Fatalf("command ran before a frame")
	}
	n.Frame(base)
	n.Frame(base)
	if ran != 1 {
		t.Fatalf("command ran %d times, want 1", ran)
	}
}

type manualFrames struct {
	c       chan time.Time
	stopped bool
}

func (m *manualFrames) Frames() <-chan time.Time { return m.c }
func (m *manualFrames) Stop()                    { m.stopped = true }

func TestRunStopsOnCancel(t *testing.T) {
	n := newTestNegotiator(transport.NewMemoryNetwork(), 1, &statusLog{})
	if _, err := n.Host(context.Background()); err != nil {
		t.Fatalf("Host: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	frames := &manualFrames{c: make(chan time.Time)}
	errc := make(chan error, 1)
	go func() { errc <- n.Run(ctx, frames) }()

	ran := make(chan struct{})
	n.Do(func() { close(ran) })
	frames.c <- base
	<-ran
	cancel()

	if err := <-errc; !errors.Is(err, context.Canceled) {
		t.Fatalf("Run = %v, want context.Canceled", err)
	}
	if !frames.stopped {
		t.Fatalf("frame source not stopped")
	}
	if n.State() != match.Idle {
		t.Fatalf("state = %s, want idle", n.State())
	}
}

func TestStalledPeerDoesNotBlockHostLoop(t *testing.T) {
	h, _, _, _, _ := connect(t)
	before := h.Session().Controller().Scheduler().Ticks()

	// the client never frames again, so its event queue fills up
	done := make(chan struct{})
	go func() {
		for i := 0; i < 400; i++ {
			h.Frame(base.Add(2*time.Second + time.Duration(i)*16*time.Millisecond))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("host loop blocked on a peer that stopped reading")
	}
	if got := h.Session().Controller().Scheduler().Ticks() - before; got != 400 {
		t.Fatalf("host ticked %d times, want 400", got)
	}
}

// refusingNetwork accepts every request and then reports err, the way the
// lobby answers a hello it cannot serve.
type refusingNetwork struct {
	err    error
	opened []*stubChannel
}

type stubChannel struct {
	closed bool
}

func (c *stubChannel) Send([]byte) error { return nil }
func (c *stubChannel) Close() error      { c.closed = true; return nil }

func (r *refusingNetwork) open(events chan<- transport.Event) (transport.Channel, error) {
	ch := &stubChannel{}
	r.opened = append(r.opened, ch)
	events <- transport.Event{Type: transport.EventError, Err: r.err}
	return ch, nil
}

func (r *refusingNetwork) OpenAsHost(ctx context.Context, code string, events chan<- transport.Event) (transport.Channel, error) {
	return r.open(events)
}

func (r *refusingNetwork) ConnectAsClient(ctx context.Context, code string, events chan<- transport.Event) (transport.Channel, error) {
	return r.open(events)
}

func TestRetryAfterRefusedHello(t *testing.T) {
	network := &refusingNetwork{err: transport.ErrCodeTaken}
	log := &statusLog{}
	n := newTestNegotiator(network, 4, log)

	if _, err := n.Host(context.Background()); err != nil {
		t.Fatalf("Host: %v", err)
	}
	n.Frame(base)
	if s := log.last(); s.Message != StatusConnectionError || !s.Retryable || !errors.Is(s.Err, transport.ErrCodeTaken) {
		t.Fatalf("status = %+v, want retryable connection error", s)
	}
	if n.State() != match.Connecting {
		t.Fatalf("state = %s, want connecting", n.State())
	}

	code, err := n.Retry(context.Background())
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if !ValidRoomCode(code) {
		t.Fatalf("retry code %q is not a room code", code)
	}
	if len(network.opened) != 2 || !network.opened[0].closed {
		t.Fatalf("retry did not replace the old channel (opened %d)", len(network.opened))
	}
}

func TestRetryJoinsSameCode(t *testing.T) {
	ctx := context.Background()
	network := transport.NewMemoryNetwork()
	log := &statusLog{}
	c := newTestNegotiator(network, 5, log)

	if err := c.Join(ctx, "654321"); !errors.Is(err, transport.ErrRoomNotFound) {
		t.Fatalf("Join = %v, want ErrRoomNotFound", err)
	}

	hostEvents := make(chan transport.Event, 4)
	host, err := network.OpenAsHost(ctx, "654321", hostEvents)
	if err != nil {
		t.Fatalf("OpenAsHost: %v", err)
	}
	defer host.Close()

	code, err := c.Retry(ctx)
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if code != "654321" {
		t.Fatalf("retry code = %q, want 654321", code)
	}
	if c.State() != match.Connecting {
		t.Fatalf("state = %s, want connecting", c.State())
	}
	if ev := <-hostEvents; ev.Type != transport.EventOpen {
		t.Fatalf("host event = %v, want open", ev.Type)
	}
}

func TestRetryNeedsAnEarlierAttempt(t *testing.T) {
	n := newTestNegotiator(transport.NewMemoryNetwork(), 1, &statusLog{})
	if _, err := n.Retry(context.Background()); !errors.Is(err, ErrNothingToRetry) {
		t.Fatalf("Retry = %v, want ErrNothingToRetry", err)
	}
}

func TestRetryWhilePlayingIsBusy(t *testing.T) {
	h, _, _, _, _ := connect(t)
	if _, err := h.Retry(context.Background()); !errors.Is(err, ErrBusy) {
		t.Fatalf("Retry while playing = %v, want ErrBusy", err)
	}
}
