package pong

import (
	"log/slog"
	"math"
	"time"

	"golang.org/x/exp/rand"
)

const (
	maxBounceAngle = math.Pi / 3 // full spread of paddle bounces, ±60°
	maxServeAngle  = math.Pi / 8 // ±22.5° from horizontal
)

// Engine runs the authoritative ball physics. Only the host steps it.
type Engine struct {
	settings Settings
	rng      *rand.Rand
}

func NewEngine(settings Settings, rng *rand.Rand) *Engine {
	if rng == nil {
		rng = rand.New(rand.NewSource(uint64(time.Now().UnixNano())))
	}
	return &Engine{settings: settings, rng: rng}
}

func (e *Engine) Settings() Settings {
	return e.settings
}

// Reset prepares w for a fresh match: scores zeroed, paddles centered,
// speed back to base and a new serve.
func (e *Engine) Reset(w *World) {
	center := e.settings.CanvasHeight/2 - e.settings.PaddleHeight/2
	w.Score = Score{}
	w.Paddles[Left] = Paddle{Y: center, Side: Left}
	w.Paddles[Right] = Paddle{Y: center, Side: Right}
	w.Ball.Speed = e.settings.BaseSpeed
	w.ElapsedTicks = 0
	e.ResetBall(w)
}

// ResetBall serves from the center at the current speed. Speed is kept
// between points so the match gets harder as it goes.
func (e *Engine) ResetBall(w *World) {
	w.Ball.X = e.settings.CanvasWidth / 2
	w.Ball.Y = e.settings.CanvasHeight / 2

	angle := e.rng.Float64()*2*maxServeAngle - maxServeAngle
	direction := 1.0
	if e.rng.Intn(2) == 1 {
		direction = -1
	}

	w.Ball.VX = math.Cos(angle) * w.Ball.Speed * direction
	w.Ball.VY = math.Sin(angle) * w.Ball.Speed
}

// MovePaddle applies one tick of local input and clamps to the canvas.
func (e *Engine) MovePaddle(p *Paddle, up, down bool) {
	if up {
		p.Y -= e.settings.PaddleSpeed
	}
	if down {
		p.Y += e.settings.PaddleSpeed
	}
	p.Y = min(max(p.Y, 0), e.settings.MaxPaddleY())
}

// Step advances the ball one tick and returns the player that scored
// (1 or 2), or 0.
func (e *Engine) Step(w *World) int {
	e.rampSpeed(w)

	w.Ball.X += w.Ball.VX
	w.Ball.Y += w.Ball.VY

	e.bounceWalls(w)
	e.bouncePaddle(w, Left)
	e.bouncePaddle(w, Right)

	return e.checkScore(w)
}

// Winner returns the player that reached the winning score, or 0.
func (e *Engine) Winner(s Score) int {
	switch {
	case s.Player1 >= e.settings.WinningScore:
		return 1
	case s.Player2 >= e.settings.WinningScore:
		return 2
	}
	return 0
}

func (e *Engine) rampSpeed(w *World) {
	w.ElapsedTicks++
	speed := min(e.settings.MaxSpeed, e.settings.BaseSpeed+float64(w.ElapsedTicks)*e.settings.SpeedIncrement)
	// a mirrored or hand-built world may already be faster than the ramp
	w.Ball.Speed = max(w.Ball.Speed, speed)
}

func (e *Engine) bounceWalls(w *World) {
	r := e.settings.ballRadius()
	if w.Ball.Y <= r && w.Ball.VY < 0 {
		w.Ball.VY = -w.Ball.VY
	}
	if w.Ball.Y >= e.settings.CanvasHeight-r && w.Ball.VY > 0 {
		w.Ball.VY = -w.Ball.VY
	}
}

func (e *Engine) bouncePaddle(w *World, side Side) {
	r := e.settings.ballRadius()
	p := w.Paddles[side]

	var crossed bool
	var away float64
	if side == Left {
		crossed = w.Ball.VX < 0 && w.Ball.X-r <= e.settings.PaddleWidth
		away = 1
	} else {
		crossed = w.Ball.VX > 0 && w.Ball.X+r >= e.settings.CanvasWidth-e.settings.PaddleWidth
		away = -1
	}
	if !crossed || w.Ball.Y < p.Y || w.Ball.Y > p.Y+e.settings.PaddleHeight {
		return
	}

	hitPos := (w.Ball.Y - p.Y) / e.settings.PaddleHeight
	angle := (hitPos - 0.5) * maxBounceAngle

	// |vx| is recomputed from speed rather than kept, so |v| == speed after a hit
	w.Ball.VX = away * math.Cos(angle) * w.Ball.Speed
	w.Ball.VY = math.Sin(angle) * w.Ball.Speed

	// flush against the face so the next tick can't tunnel through
	if side == Left {
		w.Ball.X = e.settings.PaddleWidth + r
	} else {
		w.Ball.X = e.settings.CanvasWidth - e.settings.PaddleWidth - r
	}

	slog.Debug("paddle hit", slog.String("side", side.String()), slog.Float64("hitPos", hitPos))
}

func (e *Engine) checkScore(w *World) int {
	scorer := 0
	if w.Ball.X <= 0 {
		w.Score.Player2++
		scorer = 2
	} else if w.Ball.X >= e.settings.CanvasWidth {
		w.Score.Player1++
		scorer = 1
	}
	if scorer != 0 {
		e.ResetBall(w)
	}
	return scorer
}
