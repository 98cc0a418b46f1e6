// Package safety screens user messages for crisis language before they
// reach the model. A match short-circuits the normal reply path with a
// fixed supportive response.
package safety

import "strings"

var crisisKeywords = []string{
	"suicide",
	"kill myself",
	"end my life",
	"self harm",
	"self-harm",
	"hurt myself",
	"harm others",
	"cut myself",
	"want to die",
}

// CrisisResponse is returned verbatim when a message matches a crisis
// keyword. It never goes through the model.
const CrisisResponse = "I'm really glad you told me. What you're feeling matters, and you deserve support right now. " +
	"I'm not able to help with a crisis, but trained people are available for you. " +
	"If you are in immediate danger, please contact your local emergency services. " +
	"You can also reach a crisis line such as 988 (US) or find one at findahelpline.com. " +
	"If you can, please also reach out to someone you trust. You don't have to carry this alone."

// Screen checks message for crisis language. When it matches, Screen
// returns the fixed crisis response and true; otherwise "" and false.
// Matching is case-insensitive substring search.
func Screen(message string) (string, bool) {
	lower := strings.ToLower(message)
	for _, kw := range crisisKeywords {
		if strings.Contains(lower, kw) {
			return CrisisResponse, true
		}
	}
	return "", false
}
