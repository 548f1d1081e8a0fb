package loop

import "time"

// Intent is the local player's resolved movement for one tick.
type Intent struct {
	Up   bool
	Down bool
}

// InputSource is polled once per tick for the local paddle.
type InputSource interface {
	Poll() Intent
}

// View is what the render collaborator receives every tick.
type View struct {
	Paddle1Y float64
	Paddle2Y float64
	BallX    float64
	BallY    float64
	Score1   int
	Score2   int
}

type Renderer interface {
	Render(v View)
}

// Game is the per-tick work the scheduler orchestrates, in this order.
type Game interface {
	ApplyInput(in Intent)
	Advance()
	Broadcast()
	View() View
}

// Scheduler drives one match tick per frame. It is not safe for concurrent
// use; everything runs on the loop goroutine.
type Scheduler struct {
	game     Game
	input    InputSource
	renderer Renderer
	running  bool
	ticks    uint64
}

func NewScheduler(game Game, input InputSource, renderer Renderer) *Scheduler {
	if input == nil {
		input = NoInput{}
	}
	if renderer == nil {
		renderer = NoRender{}
	}
	return &Scheduler{game: game, input: input, renderer: renderer}
}

func (s *Scheduler) Start() {
	s.running = true
}

// Stop takes effect immediately: no tick fires after it returns.
func (s *Scheduler) Stop() {
	s.running = false
}

func (s *Scheduler) Running() bool {
	return s.running
}

// Ticks is the number of ticks executed since the scheduler was created.
func (s *Scheduler) Ticks() uint64 {
	return s.ticks
}

// Tick runs one tick and reports whether it ran. If the game stops the
// scheduler while advancing, the broadcast is skipped but the final frame
// is still rendered.
func (s *Scheduler) Tick() bool {
	if !s.running {
		return false
	}
	s.ticks++

	s.game.ApplyInput(s.input.Poll())
	s.game.Advance()
	if s.running {
		s.game.Broadcast()
	}
	s.renderer.Render(s.game.View())
	return true
}

// FrameSource delivers display-refresh timestamps.
type FrameSource interface {
	Frames() <-chan time.Time
	Stop()
}

type tickerFrames struct {
	ticker *time.Ticker
}

// NewTicker is the production frame source, fps frames per second.
func NewTicker(fps int) FrameSource {
	if fps <= 0 {
		fps = 60
	}
	return &tickerFrames{ticker: time.NewTicker(time.Second / time.Duration(fps))}
}

func (t *tickerFrames) Frames() <-chan time.Time { return t.ticker.C }
func (t *tickerFrames) Stop()                    { t.ticker.Stop() }

type NoInput struct{}

func (NoInput) Poll() Intent { return Intent{} }

type NoRender struct{}

func (NoRender) Render(View) {}
