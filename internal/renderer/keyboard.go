package renderer

import (
	"bufio"
	"io"
	"sync"
	"time"

	"p2pong/internal/loop"
)

// DefaultHold covers the gap between the first key repeat and the next.
const DefaultHold = 120 * time.Millisecond

// Keyboard turns raw terminal key presses into per-tick intents. Terminals
// never report key releases, so a press counts as held for a short window.
type Keyboard struct {
	hold time.Duration
	now  func() time.Time

	mu        sync.Mutex
	upUntil   time.Time
	downUntil time.Time
}

func NewKeyboard(hold time.Duration) *Keyboard {
	if hold <= 0 {
		hold = DefaultHold
	}
	return &Keyboard{hold: hold, now: time.Now}
}

// Press records a movement key. Other actions are ignored.
func (k *Keyboard) Press(action UiAction) {
	k.mu.Lock()
	defer k.mu.Unlock()

	until := k.now().Add(k.hold)
	switch action {
	case Up, UpArrow:
		k.upUntil = until
		k.downUntil = time.Time{}
	case Down, DownArrow:
		k.downUntil = until
		k.upUntil = time.Time{}
	}
}

// Poll implements loop.InputSource.
func (k *Keyboard) Poll() loop.Intent {
	k.mu.Lock()
	defer k.mu.Unlock()

	now := k.now()
	return loop.Intent{Up: now.Before(k.upUntil), Down: now.Before(k.downUntil)}
}

// Read consumes key presses from r until it fails. Movement keys are
// recorded; every other action is passed to onAction.
func (k *Keyboard) Read(r io.Reader, onAction func(UiAction)) error {
	br := bufio.NewReader(r)
	for {
		action, err := readAction(br)
		if err != nil {
			return err
		}
		switch action {
		case Up, UpArrow, Down, DownArrow:
			k.Press(action)
		case Unknown:
		default:
			onAction(action)
		}
	}
}

// readAction decodes one key, including the ESC [ A / ESC [ B arrow
// sequences.
func readAction(br *bufio.Reader) (UiAction, error) {
	r, _, err := br.ReadRune()
	if err != nil {
		return Unknown, err
	}
	if r != '\033' {
		return ProcessInput(r), nil
	}

	next, _, err := br.ReadRune()
	if err != nil {
		return Unknown, err
	}
	if next != '[' {
		// a lone ESC; the key after it is read next time
		br.UnreadRune()
		return Unknown, nil
	}
	code, _, err := br.ReadRune()
	if err != nil {
		return Unknown, err
	}
	switch code {
	case 'A':
		return UpArrow, nil
	case 'B':
		return DownArrow, nil
	}
	return Unknown, nil
}
