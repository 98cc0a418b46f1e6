package voice

import "strings"

// Transcript is a rolling caption window. Fragments accumulate with
// space separators and only the trailing limit runes are retained, so a
// long model turn keeps the display bounded while always showing the
// most recent speech.
type Transcript struct {
	limit int
	text  string
}

// NewTranscript creates a window bounded to limit runes.
func NewTranscript(limit int) *Transcript {
	if limit <= 0 {
		limit = DefaultTranscriptLimit
	}
	return &Transcript{limit: limit}
}

// Append adds a fragment and returns the updated window.
func (t *Transcript) Append(fragment string) string {
	if fragment == "" {
		return t.text
	}
	if t.text == "" {
		t.text = fragment
	} else {
		t.text += " " + fragment
	}
	if r := []rune(t.text); len(r) > t.limit {
		t.text = string(r[len(r)-t.limit:])
	}
	return t.text
}

// Text returns the current window.
func (t *Transcript) Text() string { return t.text }

// Reset clears the window.
func (t *Transcript) Reset() { t.text = "" }

// Words returns the window split on whitespace, for display code that
// animates captions word by word.
func (t *Transcript) Words() []string {
	return strings.Fields(t.text)
}
