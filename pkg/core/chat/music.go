package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"github.com/calmihq/calmi/pkg/core"
	"github.com/calmihq/calmi/pkg/core/persona"
)

// Track is one music recommendation.
type Track struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Mood   string `json:"mood"`
	Reason string `json:"reason"`
}

// MaxTracks bounds a recommendation set.
const MaxTracks = 6

func musicPrompt(p persona.Profile, mood string) string {
	var b strings.Builder
	b.WriteString("You are a music therapist assistant. Recommend calming, emotionally supportive songs.\n")
	fmt.Fprintf(&b, "The listener's primary support area is %q", p.SupportType)
	if mood != "" {
		fmt.Fprintf(&b, " and they describe their current mood as %q", mood)
	}
	b.WriteString(".\n")
	fmt.Fprintf(&b, "Return a JSON array of at most %d objects with fields: title, artist, mood, reason.\n", MaxTracks)
	b.WriteString("reason must be one short sentence connecting the song to how the listener feels. Return only JSON.")
	return b.String()
}

// RecommendMusic asks the model for a track list matching the profile
// and an optional mood description.
func (e *Engine) RecommendMusic(ctx context.Context, p persona.Profile, mood string) ([]Track, error) {
	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0.9),
		ResponseMIMEType: "application/json",
	}
	resp, err := e.client.Models.GenerateContent(ctx, e.model,
		genai.Text(musicPrompt(p, mood)), config)
	if err != nil {
		return nil, core.WrapAPIError("generate music recommendations", err)
	}
	return ParseTracks(resp.Text())
}

var jsonArrayRE = regexp.MustCompile(`(?s)\[.*\]`)

// ParseTracks extracts a track list from model output. JSON mode usually
// returns a bare array, but the parser tolerates a wrapping object and
// prose around the array, normalizes entries and caps the list at
// MaxTracks. Entries without a title are dropped.
func ParseTracks(raw string) ([]Track, error) {
	raw = strings.TrimSpace(raw)

	var tracks []Track
	if err := json.Unmarshal([]byte(raw), &tracks); err != nil {
		var wrapped struct {
			Tracks []Track `json:"tracks"`
		}
		if err := json.Unmarshal([]byte(raw), &wrapped); err == nil && len(wrapped.Tracks) > 0 {
			tracks = wrapped.Tracks
		} else if m := jsonArrayRE.FindString(raw); m != "" {
			if err := json.Unmarshal([]byte(m), &tracks); err != nil {
				return nil, core.NewDecodeError("no track list in model output", err)
			}
		} else {
			return nil, core.NewDecodeError("no track list in model output", err)
		}
	}

	out := tracks[:0]
	for _, tr := range tracks {
		tr.Title = strings.TrimSpace(tr.Title)
		tr.Artist = strings.TrimSpace(tr.Artist)
		if tr.Title == "" {
			continue
		}
		if tr.ID == "" {
			tr.ID = uuid.NewString()
		}
		out = append(out, tr)
		if len(out) == MaxTracks {
			break
		}
	}
	return out, nil
}
