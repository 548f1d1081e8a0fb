package match

import (
	"log/slog"

	"p2pong/internal/netwrk"
)

// HandleMessage applies one message from the peer. Nothing is validated:
// positions are taken as-is and the last write wins.
func (c *Controller) HandleMessage(m netwrk.Message) {
	switch msg := m.(type) {
	case netwrk.GameStateSnapshot:
		c.role.applySnapshot(c, msg)

	case netwrk.PaddleMove:
		c.world.Paddles[c.opponentSide()].Y = msg.PaddleY

	case netwrk.GameOver:
		c.role.applyGameOver(c, msg)

	case netwrk.PlayAgain:
		// both peers may ask at once, so a request while playing restarts too
		if c.state == Ended || c.state == Playing {
			slog.Debug("peer requested play again", slog.String("state", c.state.String()))
			c.Start()
		}

	default:
		slog.Debug("ignoring unknown message", slog.Any("message", m))
	}
}
