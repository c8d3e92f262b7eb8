package state

import "unicode"

// field is the text and cursor of the focused input.
type field struct {
	text   *string
	cursor *int
}

func (s *AppState) focusedField() (field, bool) {
	switch s.Focus {
	case FocusQuery:
		return field{text: &s.Query, cursor: &s.QueryCursor}, true
	case FocusImage:
		return field{text: &s.ImagePath, cursor: &s.ImageCursor}, true
	}
	return field{}, false
}

func (f field) runes() ([]rune, int) {
	runes := []rune(*f.text)
	cursor := *f.cursor
	if cursor < 0 {
		cursor = 0
	}
	if cursor > len(runes) {
		cursor = len(runes)
	}
	return runes, cursor
}

func (f field) set(runes []rune, cursor int) {
	*f.text = string(runes)
	*f.cursor = cursor
}

func (f field) insert(r rune) {
	runes, cursor := f.runes()
	buffer := make([]rune, 0, len(runes)+1)
	buffer = append(buffer, runes[:cursor]...)
	buffer = append(buffer, r)
	buffer = append(buffer, runes[cursor:]...)
	f.set(buffer, cursor+1)
}

func (f field) backspace() bool {
	runes, cursor := f.runes()
	if cursor == 0 {
		return false
	}
	buffer := append([]rune{}, runes[:cursor-1]...)
	buffer = append(buffer, runes[cursor:]...)
	f.set(buffer, cursor-1)
	return true
}

func (f field) deleteForward() bool {
	runes, cursor := f.runes()
	if cursor >= len(runes) {
		return false
	}
	buffer := append([]rune{}, runes[:cursor]...)
	buffer = append(buffer, runes[cursor+1:]...)
	f.set(buffer, cursor)
	return true
}

func (f field) deleteWord() bool {
	runes, cursor := f.runes()
	if cursor == 0 {
		return false
	}
	start := previousWordBoundary(runes, cursor)
	buffer := append([]rune{}, runes[:start]...)
	buffer = append(buffer, runes[cursor:]...)
	f.set(buffer, start)
	return true
}

func (f field) move(direction string) {
	runes, cursor := f.runes()
	switch direction {
	case "left":
		if cursor > 0 {
			cursor--
		}
	case "right":
		if cursor < len(runes) {
			cursor++
		}
	case "word-left":
		cursor = previousWordBoundary(runes, cursor)
	case "word-right":
		cursor = nextWordBoundary(runes, cursor)
	case "home":
		cursor = 0
	case "end":
		cursor = len(runes)
	}
	*f.cursor = cursor
}

func isWordRune(r rune) bool {
	return !unicode.IsSpace(r) && r != '/' && r != '\\'
}

func previousWordBoundary(runes []rune, cursor int) int {
	i := cursor
	for i > 0 && !isWordRune(runes[i-1]) {
		i--
	}
	for i > 0 && isWordRune(runes[i-1]) {
		i--
	}
	return i
}

func nextWordBoundary(runes []rune, cursor int) int {
	i := cursor
	for i < len(runes) && !isWordRune(runes[i]) {
		i++
	}
	for i < len(runes) && isWordRune(runes[i]) {
		i++
	}
	return i
}
