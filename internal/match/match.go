package match

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/exp/rand"

	"p2pong/internal/loop"
	"p2pong/internal/netwrk"
	"p2pong/internal/pong"
)

var ErrNotEnded = errors.New("match has not ended")

type State int

const (
	Idle State = iota
	Connecting
	Playing
	Ended
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Connecting:
		return "connecting"
	case Playing:
		return "playing"
	case Ended:
		return "ended"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Peer is the outgoing half of the channel. Sends are fire-and-forget.
type Peer interface {
	Send(m netwrk.Message)
}

// Result is recorded when a match ends on a score.
type Result struct {
	Winner int
	Score  pong.Score
}

type Options struct {
	Role     Role
	Settings pong.Settings
	Rand     *rand.Rand
	Peer     Peer
	Input    loop.InputSource
	Renderer loop.Renderer
	// OnEnd runs on the loop goroutine when the match ends on a score.
	OnEnd func(Result)
}

// Controller owns all match state for one session and coordinates the
// engine, the scheduler and replication. Not safe for concurrent use.
type Controller struct {
	role   role
	kind   Role
	engine *pong.Engine
	world  pong.World
	state  State
	peer   Peer
	sched  *loop.Scheduler
	result Result
	onEnd  func(Result)

	matchID uuid.UUID
}

func NewController(opts Options) *Controller {
	c := &Controller{
		kind:   opts.Role,
		role:   newRole(opts.Role),
		engine: pong.NewEngine(opts.Settings, opts.Rand),
		peer:   opts.Peer,
		onEnd:  opts.OnEnd,
	}
	if c.peer == nil {
		c.peer = discardPeer{}
	}
	c.sched = loop.NewScheduler(c, opts.Input, opts.Renderer)
	c.engine.Reset(&c.world)
	return c
}

func (c *Controller) State() State               { return c.state }
func (c *Controller) Role() Role                 { return c.kind }
func (c *Controller) World() pong.World          { return c.world }
func (c *Controller) Result() Result             { return c.result }
func (c *Controller) Scheduler() *loop.Scheduler { return c.sched }
func (c *Controller) MatchID() uuid.UUID         { return c.matchID }
func (c *Controller) SetPeer(p Peer)             { c.peer = p }
func (c *Controller) ownSide() pong.Side         { return c.role.side() }
func (c *Controller) opponentSide() pong.Side    { return 1 - c.role.side() }
func (c *Controller) send(m netwrk.Message)      { c.peer.Send(m) }

// Connect moves an idle session to Connecting.
func (c *Controller) Connect() {
	if c.state == Idle {
		c.state = Connecting
	}
}

// Start resets the world and begins ticking. Calling it again while
// playing resets the match in place.
func (c *Controller) Start() {
	c.engine.Reset(&c.world)
	c.result = Result{}
	c.matchID = uuid.New()
	c.state = Playing
	c.sched.Start()

	slog.Info("match started", slog.String("match", c.matchID.String()), slog.String("role", c.kind.String()))
}

// PlayAgain is the local replay request, only valid after a match ended.
func (c *Controller) PlayAgain() error {
	if c.state != Ended {
		return fmt.Errorf("play again from %s: %w", c.state, ErrNotEnded)
	}
	c.send(netwrk.PlayAgain{})
	c.Start()
	return nil
}

// Disconnect force-ends whatever is running without a winner. It reports
// whether a match was in progress.
func (c *Controller) Disconnect() bool {
	wasPlaying := c.state == Playing
	c.sched.Stop()
	c.state = Idle
	if wasPlaying {
		slog.Info("match aborted", slog.String("match", c.matchID.String()))
	}
	return wasPlaying
}

func (c *Controller) end(winner int, announce bool) {
	if c.state != Playing {
		return
	}
	c.sched.Stop()
	c.state = Ended
	c.result = Result{Winner: winner, Score: c.world.Score}

	slog.Info("match ended",
		slog.String("match", c.matchID.String()),
		slog.Int("winner", winner),
		slog.Int("score1", c.world.Score.Player1),
		slog.Int("score2", c.world.Score.Player2))

	if announce {
		c.send(c.snapshot())
		c.send(netwrk.GameOver{Winner: winner})
	}
	if c.onEnd != nil {
		c.onEnd(c.result)
	}
}

// ApplyInput moves the local paddle. Implements loop.Game.
func (c *Controller) ApplyInput(in loop.Intent) {
	c.engine.MovePaddle(&c.world.Paddles[c.ownSide()], in.Up, in.Down)
}

// Advance runs the role's simulation for this tick. Implements loop.Game.
func (c *Controller) Advance() {
	if c.state != Playing {
		return
	}
	c.role.advance(c)
}

// Broadcast sends this tick's replication messages. Implements loop.Game.
func (c *Controller) Broadcast() {
	c.role.broadcast(c)
}

func (c *Controller) View() loop.View {
	return loop.View{
		Paddle1Y: c.world.Paddles[pong.Left].Y,
		Paddle2Y: c.world.Paddles[pong.Right].Y,
		BallX:    c.world.Ball.X,
		BallY:    c.world.Ball.Y,
		Score1:   c.world.Score.Player1,
		Score2:   c.world.Score.Player2,
	}
}

func (c *Controller) snapshot() netwrk.GameStateSnapshot {
	return netwrk.GameStateSnapshot{
		Score1:      c.world.Score.Player1,
		Score2:      c.world.Score.Player2,
		BallX:       c.world.Ball.X,
		BallY:       c.world.Ball.Y,
		HostPaddleY: c.world.Paddles[pong.Left].Y,
		Speed:       c.world.Ball.Speed,
	}
}

type discardPeer struct{}

func (discardPeer) Send(netwrk.Message) {}
