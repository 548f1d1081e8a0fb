package ansii

import (
	"fmt"
	"strings"

	"golang.org/x/term"
)

type ANSI string

const (
	reset       ANSI = "\033[0m"
	plain       ANSI = ""
	bold        ANSI = "\033[1m"
	red         ANSI = "\033[31m"
	green       ANSI = "\033[32m"
	yellow      ANSI = "\033[33m"
	purple      ANSI = "\033[35m"
	cyan        ANSI = "\033[36m"
	white       ANSI = "\033[37m"
	clearScreen ANSI = "\033[2J"
	clearLine   ANSI = "\033[2K"
	hideCursor  ANSI = "\033[?25l"
	showCursor  ANSI = "\033[?25h"
)

// Offset is a terminal cell, 1-based like the cursor escape codes.
type Offset struct {
	X int
	Y int
}

type style struct {
	Reset ANSI
	Plain ANSI
	Bold  ANSI
}

type color struct {
	Red    ANSI
	Green  ANSI
	Yellow ANSI
	Purple ANSI
	Cyan   ANSI
	White  ANSI
}

type screen struct {
	ClearScreen ANSI
	ClearLine   ANSI
	HideCursor  ANSI
	ShowCursor  ANSI
}

type ascii struct {
	Block string
}

var (
	Styles = style{Bold: bold, Reset: reset, Plain: plain}
	Colors = color{Red: red, Green: green, Yellow: yellow, Purple: purple, Cyan: cyan, White: white}
	Screen = screen{ClearScreen: clearScreen, ClearLine: clearLine, HideCursor: hideCursor, ShowCursor: showCursor}
	Blocks = ascii{Block: "█"}
)

func GetTermSize(fd int) (width int, height int, err error) {
	return term.GetSize(fd)
}

func MakeTermRaw(fd int) (*term.State, error) {
	return term.MakeRaw(fd)
}

func RestoreTerm(fd int, prev *term.State) error {
	return term.Restore(fd, prev)
}

func (s screen) PlaceCursor(offset Offset) ANSI {
	return ANSI(fmt.Sprintf("\033[%d;%dH", offset.Y, offset.X))
}

// Draws a filled box of dimensions `height` and `width` at `offset`, the
// top left cell.
func DrawBox(builder *strings.Builder, offset Offset, height int, width int, style ANSI) {
	builder.WriteString(string(style))
	for hIdx := 0; hIdx < height; hIdx++ {
		builder.WriteString(string(Screen.PlaceCursor(Offset{X: offset.X, Y: offset.Y + hIdx})))
		builder.WriteString(strings.Repeat(Blocks.Block, width))
	}
	builder.WriteString(string(Styles.Reset))
}

func DrawPixelStyle(builder *strings.Builder, offset Offset, style ANSI) {
	builder.WriteString(string(style))
	builder.WriteString(string(Screen.PlaceCursor(offset) + ANSI(Blocks.Block)))
	builder.WriteString(string(Styles.Reset))
}

// DrawText writes s starting at offset.
func DrawText(builder *strings.Builder, offset Offset, s string, style ANSI) {
	builder.WriteString(string(Screen.PlaceCursor(offset)))
	builder.WriteString(string(style))
	builder.WriteString(s)
	builder.WriteString(string(Styles.Reset))
}
