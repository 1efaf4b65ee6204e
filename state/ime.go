package state

import "github.com/raventerm/termengine/grid"

// NewImeView builds an ImeView from a preedit string and a caret offset
// given in characters (runes), precomputing the caret's display-column
// offset via the wide-char width table so the renderer never needs to
// re-walk the string.
func NewImeView(preedit string, caretOffsetChars int) ImeView {
	runes := []rune(preedit)
	if caretOffsetChars < 0 {
		caretOffsetChars = 0
	}
	if caretOffsetChars > len(runes) {
		caretOffsetChars = len(runes)
	}

	displayCol := 0
	for _, r := range runes[:caretOffsetChars] {
		displayCol += grid.RuneWidth(r)
	}

	return ImeView{
		Preedit:         preedit,
		CaretOffset:     caretOffsetChars,
		CaretDisplayCol: displayCol,
	}
}
