package match

import (
	"log/slog"

	"p2pong/internal/netwrk"
	"p2pong/internal/pong"
)

type Role int

const (
	Host Role = iota
	Client
)

func (r Role) String() string {
	if r == Host {
		return "host"
	}
	return "client"
}

// role is what differs between the two peers on every tick.
type role interface {
	side() pong.Side
	advance(c *Controller)
	broadcast(c *Controller)
	applySnapshot(c *Controller, s netwrk.GameStateSnapshot)
	applyGameOver(c *Controller, g netwrk.GameOver)
}

func newRole(r Role) role {
	if r == Host {
		return hostRole{}
	}
	return clientRole{}
}

// hostRole owns the ball and the score.
type hostRole struct{}

func (hostRole) side() pong.Side { return pong.Left }

func (hostRole) advance(c *Controller) {
	scorer := c.engine.Step(&c.world)
	if scorer == 0 {
		return
	}
	slog.Debug("point scored",
		slog.String("match", c.matchID.String()),
		slog.Int("scorer", scorer),
		slog.Int("score1", c.world.Score.Player1),
		slog.Int("score2", c.world.Score.Player2))

	if winner := c.engine.Winner(c.world.Score); winner != 0 {
		c.end(winner, true)
	}
}

func (hostRole) broadcast(c *Controller) {
	c.send(c.snapshot())
	c.send(netwrk.PaddleMove{PaddleY: c.world.Paddles[pong.Left].Y})
}

func (hostRole) applySnapshot(*Controller, netwrk.GameStateSnapshot) {
	slog.Debug("host ignoring snapshot from client")
}

func (hostRole) applyGameOver(*Controller, netwrk.GameOver) {
	slog.Debug("host ignoring game over from client")
}

// clientRole mirrors whatever the host last sent.
type clientRole struct{}

func (clientRole) side() pong.Side { return pong.Right }

func (clientRole) advance(*Controller) {}

func (clientRole) broadcast(c *Controller) {
	c.send(netwrk.PaddleMove{PaddleY: c.world.Paddles[pong.Right].Y})
}

func (clientRole) applySnapshot(c *Controller, s netwrk.GameStateSnapshot) {
	c.world.Score = pong.Score{Player1: s.Score1, Player2: s.Score2}
	c.world.Ball.X = s.BallX
	c.world.Ball.Y = s.BallY
	c.world.Ball.Speed = s.Speed
	c.world.Paddles[pong.Left].Y = s.HostPaddleY
	if c.state == Ended {
		// the host flushes a last snapshot right before GameOver
		c.result.Score = c.world.Score
	}
}

func (clientRole) applyGameOver(c *Controller, g netwrk.GameOver) {
	c.end(g.Winner, false)
}
