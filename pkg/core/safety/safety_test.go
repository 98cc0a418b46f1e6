package safety

import "testing"

func TestScreen(t *testing.T) {
	cases := []struct {
		name    string
		message string
		crisis  bool
	}{
		{"plain message", "I had a rough day at work", false},
		{"direct keyword", "I keep thinking about suicide", true},
		{"mixed case", "sometimes I want to KILL MYSELF", true},
		{"hyphenated", "I've been struggling with self-harm again", true},
		{"embedded phrase", "honestly I just want to die some days", true},
		{"near miss", "this diet is killing me", false},
		{"empty", "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, crisis := Screen(tc.message)
			if crisis != tc.crisis {
				t.Fatalf("Screen(%q) crisis = %v, want %v", tc.message, crisis, tc.crisis)
			}
			if crisis && got != CrisisResponse {
				t.Fatalf("crisis match returned %q, want fixed response", got)
			}
			if !crisis && got != "" {
				t.Fatalf("non-crisis returned %q, want empty", got)
			}
		})
	}
}
