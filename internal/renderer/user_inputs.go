package renderer

type UiAction rune

const (
	Unknown   UiAction = iota
	Quit      UiAction = 81 // 'Q'
	Up        UiAction = 87 // 'W'
	Down      UiAction = 83 // 'S'
	Replay    UiAction = 82 // 'R'
	Retry     UiAction = 78 // 'N'
	Interrupt UiAction = 3  // ctrl-c in raw mode
	UpArrow   UiAction = 8593
	DownArrow UiAction = 8595
)

func ProcessInput(rawInput rune) (action UiAction) {
	inputVal := int(rawInput)
	// Convert to UpperCase
	if inputVal >= 97 && inputVal <= 122 {
		inputVal = inputVal - 32
	}
	return UiAction(inputVal)
}
