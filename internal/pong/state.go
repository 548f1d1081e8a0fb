package pong

// Settings are the session constants. Both peers must run with identical
// values, they are never exchanged on the wire.
type Settings struct {
	CanvasWidth    float64 `json:"canvasWidth"`
	CanvasHeight   float64 `json:"canvasHeight"`
	PaddleWidth    float64 `json:"paddleWidth"`
	PaddleHeight   float64 `json:"paddleHeight"`
	BallSize       float64 `json:"ballSize"`
	PaddleSpeed    float64 `json:"paddleSpeed"`
	BaseSpeed      float64 `json:"baseSpeed"`
	MaxSpeed       float64 `json:"maxSpeed"`
	SpeedIncrement float64 `json:"speedIncrement"`
	WinningScore   int     `json:"winningScore"`
}

func DefaultSettings() Settings {
	return Settings{
		CanvasWidth:    1200,
		CanvasHeight:   600,
		PaddleWidth:    15,
		PaddleHeight:   100,
		BallSize:       15,
		PaddleSpeed:    8,
		BaseSpeed:      5,
		MaxSpeed:       12,
		SpeedIncrement: 0.001,
		WinningScore:   10,
	}
}

func (s Settings) ballRadius() float64 {
	return s.BallSize / 2
}

// MaxPaddleY is the lowest legal top edge of a paddle.
func (s Settings) MaxPaddleY() float64 {
	return s.CanvasHeight - s.PaddleHeight
}

type Side int

const (
	Left Side = iota
	Right
)

func (s Side) String() string {
	if s == Left {
		return "left"
	}
	return "right"
}

type Paddle struct {
	Y    float64
	Side Side
}

type Ball struct {
	X     float64
	Y     float64
	VX    float64
	VY    float64
	Speed float64
}

type Score struct {
	Player1 int
	Player2 int
}

// World is everything the simulation reads and writes during a match.
// Paddles[Left] belongs to player 1 (the host), Paddles[Right] to player 2.
type World struct {
	Ball         Ball
	Paddles      [2]Paddle
	Score        Score
	ElapsedTicks int
}
