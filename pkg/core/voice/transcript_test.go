package voice

import (
	"strings"
	"testing"
)

func TestTranscriptAppend(t *testing.T) {
	tr := NewTranscript(150)

	if got := tr.Append("Hello"); got != "Hello" {
		t.Fatalf("first fragment = %q", got)
	}
	if got := tr.Append("there."); got != "Hello there." {
		t.Fatalf("second fragment = %q", got)
	}
	if got := tr.Append(""); got != "Hello there." {
		t.Fatalf("empty fragment changed window to %q", got)
	}
}

func TestTranscriptWindowBound(t *testing.T) {
	tr := NewTranscript(20)

	tr.Append("one two three four five")
	tr.Append("six seven eight")

	got := tr.Text()
	if n := len([]rune(got)); n > 20 {
		t.Fatalf("window is %d runes, want <= 20", n)
	}
	if !strings.HasSuffix(got, "six seven eight") {
		t.Fatalf("window %q lost the newest speech", got)
	}
}

func TestTranscriptWindowCountsRunes(t *testing.T) {
	tr := NewTranscript(4)

	tr.Append("héllo")
	if got := tr.Text(); got != "éllo" {
		t.Fatalf("rune trim = %q, want %q", got, "éllo")
	}
}

func TestTranscriptReset(t *testing.T) {
	tr := NewTranscript(150)
	tr.Append("something")
	tr.Reset()
	if tr.Text() != "" {
		t.Fatal("reset did not clear window")
	}
	if got := tr.Append("fresh"); got != "fresh" {
		t.Fatalf("append after reset = %q", got)
	}
}

func TestTranscriptWords(t *testing.T) {
	tr := NewTranscript(150)
	tr.Append("take a slow breath")
	want := []string{"take", "a", "slow", "breath"}
	got := tr.Words()
	if len(got) != len(want) {
		t.Fatalf("words = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("words = %v, want %v", got, want)
		}
	}
}
