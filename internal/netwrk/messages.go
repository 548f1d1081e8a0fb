package netwrk

import "fmt"

type Kind int

const (
	KindUnknown Kind = iota
	KindGameState
	KindPaddleMove
	KindGameOver
	KindPlayAgain
)

func (k Kind) String() string {
	switch k {
	case KindGameState:
		return "gameState"
	case KindPaddleMove:
		return "paddleMove"
	case KindGameOver:
		return "gameOver"
	case KindPlayAgain:
		return "playAgain"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Message is one of the four replicated message kinds.
type Message interface {
	Kind() Kind
}

// GameStateSnapshot is the host's canonical state for one tick.
type GameStateSnapshot struct {
	Score1      int
	Score2      int
	BallX       float64
	BallY       float64
	HostPaddleY float64
	Speed       float64
}

// PaddleMove reports the sender's own paddle.
type PaddleMove struct {
	PaddleY float64
}

// GameOver is sent once by the host when a player reaches the winning score.
type GameOver struct {
	Winner int
}

type PlayAgain struct{}

func (GameStateSnapshot) Kind() Kind { return KindGameState }
func (PaddleMove) Kind() Kind        { return KindPaddleMove }
func (GameOver) Kind() Kind          { return KindGameOver }
func (PlayAgain) Kind() Kind         { return KindPlayAgain }
