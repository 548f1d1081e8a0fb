package renderer

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"
	"sync"

	"p2pong/internal/ansii"
	"p2pong/internal/loop"
	"p2pong/internal/pong"
)

// SizeFunc reports the terminal size in cells.
type SizeFunc func() (width int, height int, err error)

// Terminal draws the match with ANSI escapes. The canvas is scaled to the
// terminal; row 1 holds the scores and the last row the status line.
type Terminal struct {
	out      io.Writer
	settings pong.Settings
	size     SizeFunc

	mu     sync.Mutex
	status string
	code   string
}

func NewTerminal(out io.Writer, settings pong.Settings, size SizeFunc) *Terminal {
	return &Terminal{out: out, settings: settings, size: size}
}

// SetStatus replaces the status line and redraws it right away, since
// nothing else is drawn while no match is running.
func (t *Terminal) SetStatus(msg string) {
	t.mu.Lock()
	t.status = msg
	t.mu.Unlock()

	width, height, err := t.size()
	if err != nil {
		slog.Debug("could not get terminal size", slog.Any("error", err))
		return
	}
	var builder strings.Builder
	builder.WriteString(string(ansii.Screen.PlaceCursor(ansii.Offset{X: 1, Y: height})))
	builder.WriteString(string(ansii.Screen.ClearLine))
	t.drawStatus(&builder, width, height)
	io.WriteString(t.out, builder.String())
}

func (t *Terminal) SetRoomCode(code string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.code = code
}

func (t *Terminal) Render(v loop.View) {
	width, height, err := t.size()
	if err != nil {
		slog.Debug("could not get terminal size", slog.Any("error", err))
		return
	}
	if width < 10 || height < 5 {
		return
	}

	var builder strings.Builder
	builder.WriteString(string(ansii.Screen.HideCursor))
	builder.WriteString(string(ansii.Screen.ClearScreen))

	score := fmt.Sprintf("%d   %d", v.Score1, v.Score2)
	ansii.DrawText(&builder, ansii.Offset{X: max(1, (width-len(score))/2), Y: 1}, score, ansii.Styles.Bold)

	paddleRows := max(1, int(math.Round(t.settings.PaddleHeight/t.settings.CanvasHeight*float64(height-2))))
	left := t.cell(0, v.Paddle1Y, width, height)
	right := t.cell(t.settings.CanvasWidth-1, v.Paddle2Y, width, height)
	ansii.DrawBox(&builder, left, paddleRows, 1, ansii.Colors.Cyan)
	ansii.DrawBox(&builder, right, paddleRows, 1, ansii.Colors.Purple)
	ansii.DrawPixelStyle(&builder, t.cell(v.BallX, v.BallY, width, height), ansii.Colors.White)

	t.drawStatus(&builder, width, height)
	io.WriteString(t.out, builder.String())
}

func (t *Terminal) drawStatus(builder *strings.Builder, width, height int) {
	t.mu.Lock()
	line := t.status
	if t.code != "" {
		line = fmt.Sprintf("Room %s  %s", t.code, line)
	}
	t.mu.Unlock()

	if len(line) > width {
		line = line[:width]
	}
	ansii.DrawText(builder, ansii.Offset{X: 1, Y: height}, line, ansii.Colors.Yellow)
}

// cell maps a canvas point into the play area between the score row and
// the status row.
func (t *Terminal) cell(x, y float64, width, height int) ansii.Offset {
	rows := height - 2
	col := int(x / t.settings.CanvasWidth * float64(width))
	row := int(y / t.settings.CanvasHeight * float64(rows))
	return ansii.Offset{
		X: 1 + min(max(col, 0), width-1),
		Y: 2 + min(max(row, 0), rows-1),
	}
}
