package pong

import (
	"math"
	"testing"
	"time"

	"golang.org/x/exp/rand"
)

const epsilon = 1e-9

func newTestEngine(seed uint64) *Engine {
	return NewEngine(DefaultSettings(), rand.New(rand.NewSource(seed)))
}

func TestBallExitsRightEdgeScoresPlayer1(t *testing.T) {
	e := newTestEngine(1)
	w := &World{}
	e.Reset(w)
	// keep the right paddle out of the ball's path
	w.Paddles[Right].Y = 0
	w.Ball = Ball{X: 600, Y: 300, VX: 5, VY: 0, Speed: 5}

	for i := 1; i < 120; i++ {
		if scorer := e.Step(w); scorer != 0 {
			t.Fatalf("tick %d: unexpected score by player %d", i, scorer)
		}
	}
	if w.Ball.X != 1195 {
		t.Fatalf("ball x after 119 ticks = %v, want 1195", w.Ball.X)
	}

	if scorer := e.Step(w); scorer != 1 {
		t.Fatalf("tick 120: scorer = %d, want 1", scorer)
	}
	if w.Score != (Score{Player1: 1}) {
		t.Fatalf("score = %+v, want player1=1", w.Score)
	}
	if w.Ball.X != 600 || w.Ball.Y != 300 {
		t.Fatalf("ball reset to (%v, %v), want (600, 300)", w.Ball.X, w.Ball.Y)
	}
}

func TestBallExitsLeftEdgeScoresPlayer2(t *testing.T) {
	e := newTestEngine(2)
	w := &World{}
	e.Reset(w)
	w.Paddles[Left].Y = 480
	w.Ball = Ball{X: 10, Y: 100, VX: -11, VY: 0, Speed: 11}

	if scorer := e.Step(w); scorer != 2 {
		t.Fatalf("scorer = %d, want 2", scorer)
	}
	if w.Score.Player2 != 1 || w.Score.Player1 != 0 {
		t.Fatalf("score = %+v, want player2=1", w.Score)
	}
}

func TestResetBallKeepsSpeedAndServeAngle(t *testing.T) {
	e := newTestEngine(42)
	w := &World{}
	e.Reset(w)

	for _, speed := range []float64{5, 7.25, 12} {
		w.Ball.Speed = speed
		for i := 0; i < 200; i++ {
			e.ResetBall(w)
			mag := math.Hypot(w.Ball.VX, w.Ball.VY)
			if math.Abs(mag-speed) > epsilon {
				t.Fatalf("velocity magnitude = %v, want %v", mag, speed)
			}
			angle := math.Atan2(math.Abs(w.Ball.VY), math.Abs(w.Ball.VX))
			if angle > math.Pi/8+epsilon {
				t.Fatalf("serve angle = %v deg, want <= 22.5", angle*180/math.Pi)
			}
			if w.Ball.X != 600 || w.Ball.Y != 300 {
				t.Fatalf("ball not centered: (%v, %v)", w.Ball.X, w.Ball.Y)
			}
		}
	}
}

func TestResetBallServesBothDirections(t *testing.T) {
	e := newTestEngine(7)
	w := &World{}
	e.Reset(w)

	left, right := 0, 0
	for i := 0; i < 100; i++ {
		e.ResetBall(w)
		if w.Ball.VX < 0 {
			left++
		} else {
			right++
		}
	}
	if left == 0 || right == 0 {
		t.Fatalf("serves left=%d right=%d, want both directions", left, right)
	}
}

func TestUnseededEnginesServeDifferently(t *testing.T) {
	serves := func(e *Engine) []float64 {
		w := &World{}
		e.Reset(w)
		var vy []float64
		for i := 0; i < 5; i++ {
			e.ResetBall(w)
			vy = append(vy, w.Ball.VY)
		}
		return vy
	}

	a := serves(NewEngine(DefaultSettings(), nil))
	time.Sleep(time.Millisecond)
	b := serves(NewEngine(DefaultSettings(), nil))
	for i := range a {
		if a[i] != b[i] {
			return
		}
	}
	t.Fatalf("two unseeded engines served the same sequence %v", a)
}

func TestSpeedRampIsMonotonicAndCapped(t *testing.T) {
	e := newTestEngine(3)
	w := &World{}
	e.Reset(w)
	s := e.Settings()

	prev := w.Ball.Speed
	if prev != s.BaseSpeed {
		t.Fatalf("speed after reset = %v, want %v", prev, s.BaseSpeed)
	}
	for i := 0; i < 10000; i++ {
		e.Step(w)
		if w.Ball.Speed < prev {
			t.Fatalf("tick %d: speed dropped from %v to %v", i, prev, w.Ball.Speed)
		}
		if w.Ball.Speed > s.MaxSpeed {
			t.Fatalf("tick %d: speed %v above max %v", i, w.Ball.Speed, s.MaxSpeed)
		}
		prev = w.Ball.Speed
	}
	if prev != s.MaxSpeed {
		t.Fatalf("speed after 10000 ticks = %v, want max %v", prev, s.MaxSpeed)
	}
}

func TestSpeedNotResetBetweenPoints(t *testing.T) {
	e := newTestEngine(4)
	w := &World{}
	e.Reset(w)
	w.ElapsedTicks = 2000
	w.Paddles[Right].Y = 0
	w.Ball = Ball{X: 1190, Y: 300, VX: 20, VY: 0, Speed: 7}

	if scorer := e.Step(w); scorer != 1 {
		t.Fatalf("scorer = %d, want 1", scorer)
	}
	s := e.Settings()
	want := s.BaseSpeed + 2001*s.SpeedIncrement
	if math.Abs(w.Ball.Speed-want) > epsilon {
		t.Fatalf("speed after point = %v, want %v", w.Ball.Speed, want)
	}
	if mag := math.Hypot(w.Ball.VX, w.Ball.VY); math.Abs(mag-want) > epsilon {
		t.Fatalf("serve magnitude = %v, want %v", mag, want)
	}
}

func TestPaddleHitReflectsWithoutTunneling(t *testing.T) {
	e := newTestEngine(5)
	s := e.Settings()
	r := s.BallSize / 2

	tests := []struct {
		name string
		side Side
		ball Ball
	}{
		{"left center", Left, Ball{X: 30, Y: 300, VX: -12, VY: 0, Speed: 12}},
		{"left top edge", Left, Ball{X: 25, Y: 251, VX: -9, VY: -1, Speed: 9}},
		{"right center", Right, Ball{X: 1170, Y: 300, VX: 12, VY: 0, Speed: 12}},
		{"right bottom edge", Right, Ball{X: 1175, Y: 345, VX: 9, VY: 2, Speed: 9}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &World{}
			e.Reset(w)
			w.Ball = tt.ball

			if scorer := e.Step(w); scorer != 0 {
				t.Fatalf("unexpected score by %d", scorer)
			}

			p := w.Paddles[tt.side]
			if tt.side == Left {
				if w.Ball.VX <= 0 {
					t.Fatalf("vx = %v, want moving right", w.Ball.VX)
				}
				if w.Ball.X-r < s.PaddleWidth {
					t.Fatalf("ball left edge %v inside paddle face %v", w.Ball.X-r, s.PaddleWidth)
				}
			} else {
				if w.Ball.VX >= 0 {
					t.Fatalf("vx = %v, want moving left", w.Ball.VX)
				}
				if w.Ball.X+r > s.CanvasWidth-s.PaddleWidth {
					t.Fatalf("ball right edge %v inside paddle face %v", w.Ball.X+r, s.CanvasWidth-s.PaddleWidth)
				}
			}
			if w.Ball.Y < p.Y || w.Ball.Y > p.Y+s.PaddleHeight {
				t.Fatalf("test setup: ball y %v not on paddle [%v, %v]", w.Ball.Y, p.Y, p.Y+s.PaddleHeight)
			}
			if mag := math.Hypot(w.Ball.VX, w.Ball.VY); math.Abs(mag-w.Ball.Speed) > epsilon {
				t.Fatalf("post-hit magnitude = %v, want speed %v", mag, w.Ball.Speed)
			}
		})
	}
}

func TestPaddleHitAngleFollowsHitPosition(t *testing.T) {
	e := newTestEngine(6)
	w := &World{}
	e.Reset(w)
	// paddle spans [250, 350]; hitting near the bottom sends the ball down
	w.Ball = Ball{X: 30, Y: 345, VX: -10, VY: 0, Speed: 10}
	e.Step(w)
	if w.Ball.VY <= 0 {
		t.Fatalf("bottom hit vy = %v, want > 0", w.Ball.VY)
	}

	e.Reset(w)
	w.Ball = Ball{X: 30, Y: 300, VX: -10, VY: 0, Speed: 10}
	e.Step(w)
	if math.Abs(w.Ball.VY) > epsilon {
		t.Fatalf("center hit vy = %v, want 0", w.Ball.VY)
	}
}

func TestWallReflectionInvertsVY(t *testing.T) {
	e := newTestEngine(8)
	w := &World{}
	e.Reset(w)
	w.Ball = Ball{X: 600, Y: 10, VX: 3, VY: -4, Speed: 5}

	e.Step(w)
	if w.Ball.VY != 4 {
		t.Fatalf("vy after top wall = %v, want 4", w.Ball.VY)
	}

	w.Ball = Ball{X: 600, Y: 590, VX: 3, VY: 4, Speed: 5}
	e.Step(w)
	if w.Ball.VY != -4 {
		t.Fatalf("vy after bottom wall = %v, want -4", w.Ball.VY)
	}
}

func TestMovePaddleClamps(t *testing.T) {
	e := newTestEngine(9)
	s := e.Settings()
	p := &Paddle{Y: 3}

	e.MovePaddle(p, true, false)
	if p.Y != 0 {
		t.Fatalf("y after moving up past top = %v, want 0", p.Y)
	}

	p.Y = s.MaxPaddleY() - 1
	e.MovePaddle(p, false, true)
	if p.Y != s.MaxPaddleY() {
		t.Fatalf("y after moving down past bottom = %v, want %v", p.Y, s.MaxPaddleY())
	}

	p.Y = 200
	e.MovePaddle(p, true, true)
	if p.Y != 200 {
		t.Fatalf("y with both keys = %v, want 200", p.Y)
	}
}

func TestWinner(t *testing.T) {
	e := newTestEngine(10)
	if got := e.Winner(Score{Player1: 9, Player2: 9}); got != 0 {
		t.Fatalf("winner at 9-9 = %d, want 0", got)
	}
	if got := e.Winner(Score{Player1: 4, Player2: 10}); got != 2 {
		t.Fatalf("winner at 4-10 = %d, want 2", got)
	}
	if got := e.Winner(Score{Player1: 10, Player2: 3}); got != 1 {
		t.Fatalf("winner at 10-3 = %d, want 1", got)
	}
}
