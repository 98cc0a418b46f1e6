// Package persona renders a user profile into the system instruction
// consumed by the model at session start. The expansion is deterministic:
// the same profile always produces the same instruction, with per-age and
// per-support-area adjustments looked up from fixed tables.
package persona

import (
	"fmt"
	"strings"

	"github.com/calmihq/calmi/pkg/core"
)

// AgeRange buckets a user's age for tone adjustments.
type AgeRange string

const (
	AgeUnder18 AgeRange = "under 18"
	Age18To24  AgeRange = "18–24"
	Age25To34  AgeRange = "25–34"
	Age35Plus  AgeRange = "35+"
)

// RelationshipStatus is the user's self-reported relationship status.
type RelationshipStatus string

const (
	Single         RelationshipStatus = "Single"
	InRelationship RelationshipStatus = "In a relationship"
	Situationship  RelationshipStatus = "Situationship"
	Married        RelationshipStatus = "Married"
	Separated      RelationshipStatus = "Divorced/Separated"
	Widowed        RelationshipStatus = "Widowed"
)

// SupportType is the user's primary support area.
type SupportType string

const (
	SupportAnxiety       SupportType = "anxiety"
	SupportDepression    SupportType = "depression"
	SupportRelationships SupportType = "relationships"
	SupportLoneliness    SupportType = "loneliness"
	SupportOther         SupportType = "something else"
)

// CommunicationPreference selects the interaction mode.
type CommunicationPreference string

const (
	PreferText    CommunicationPreference = "text"
	PreferVoice   CommunicationPreference = "voice"
	PreferJournal CommunicationPreference = "journal"
	PreferMusic   CommunicationPreference = "music"
)

// Profile is the immutable onboarding result. It is read-only for every
// mode component once onboarding completes.
type Profile struct {
	Name                    string                  `json:"name"`
	Identity                string                  `json:"identity"`
	AgeRange                AgeRange                `json:"age_range"`
	RelationshipStatus      RelationshipStatus      `json:"relationship_status"`
	SupportType             SupportType             `json:"support_type"`
	CommunicationPreference CommunicationPreference `json:"communication_type"`
}

// Validate checks that the enumerated fields carry known values.
func (p Profile) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return core.NewInvalidRequestErrorWithParam("name is required", "name")
	}
	switch p.AgeRange {
	case AgeUnder18, Age18To24, Age25To34, Age35Plus:
	default:
		return core.NewInvalidRequestErrorWithParam(
			fmt.Sprintf("unknown age range %q", p.AgeRange), "age_range")
	}
	switch p.RelationshipStatus {
	case Single, InRelationship, Situationship, Married, Separated, Widowed:
	default:
		return core.NewInvalidRequestErrorWithParam(
			fmt.Sprintf("unknown relationship status %q", p.RelationshipStatus), "relationship_status")
	}
	switch p.SupportType {
	case SupportAnxiety, SupportDepression, SupportRelationships, SupportLoneliness, SupportOther:
	default:
		return core.NewInvalidRequestErrorWithParam(
			fmt.Sprintf("unknown support type %q", p.SupportType), "support_type")
	}
	switch p.CommunicationPreference {
	case PreferText, PreferVoice, PreferJournal, PreferMusic:
	default:
		return core.NewInvalidRequestErrorWithParam(
			fmt.Sprintf("unknown communication preference %q", p.CommunicationPreference), "communication_type")
	}
	return nil
}

var ageGuidance = map[AgeRange]string{
	AgeUnder18: "Use simpler language, more reassurance.",
	Age18To24:  "Acknowledge identity formation, pressure, uncertainty.",
	Age25To34:  "Focus on life direction, career, relationships.",
	Age35Plus:  "Emphasize reflection, balance, long-term meaning.",
}

var supportGuidance = map[SupportType]string{
	SupportAnxiety:       "Encourage grounding, slow pacing, present-moment awareness.",
	SupportDepression:    "Focus on validation, small manageable steps, reduce shame.",
	SupportRelationships: "Explore communication, needs, emotional patterns.",
	SupportLoneliness:    "Emphasize connection, belonging, internal dialogue.",
	SupportOther:         "Follow the user's lead and explore gently.",
}

// SystemInstruction renders the full persona prompt for a profile.
func SystemInstruction(p Profile) string {
	var b strings.Builder

	b.WriteString(`You are Calmi. Calmi is a warm, emotionally intelligent conversational companion designed to provide supportive, reflective, and grounding dialogue.
Your purpose: To create a safe emotional space where the user feels heard, understood, and gently guided, without judgment, pressure, or clinical coldness.
You are NOT a licensed therapist. You do NOT diagnose. You do NOT provide medical or psychiatric advice. You do NOT replace professional care. If a situation appears severe, you calmly suggest seeking professional or local support.

USER PROFILE (Contextual Personalization):
`)
	fmt.Fprintf(&b, "Name: %s\n", p.Name)
	fmt.Fprintf(&b, "Identity: %s\n", p.Identity)
	fmt.Fprintf(&b, "Age Range: %s\n", p.AgeRange)
	fmt.Fprintf(&b, "Relationship Status: %s\n", p.RelationshipStatus)
	fmt.Fprintf(&b, "Primary Support Area: %s\n", p.SupportType)

	b.WriteString(`
CORE STYLE:
Tone: Warm, Grounded, Emotionally attuned, Calm, Human-like.
Structure of Responses:
1. Validate emotion first.
2. Reflect back what you hear.
3. Gently explore with an open-ended question.
4. Offer grounding or reframing if appropriate.

CONSTRAINTS:
- Responses must be under 150 words.
- Clear and conversational.
- Softly structured, not clinical.
- Never use bullet points.
- Never sound like a self-help article.
- Never mention being an AI or your policies.
- Do not use motivational cliches.

PERSONALIZATION RULES:
`)
	fmt.Fprintf(&b, "- Age Range is %q: %s\n", p.AgeRange, ageGuidance[p.AgeRange])
	fmt.Fprintf(&b, "- Support Area is %q: %s\n", p.SupportType, supportGuidance[p.SupportType])

	b.WriteString(`
SAFETY PROTOCOL:
If user expresses suicidal thoughts, self-harm, or immediate danger:
1. Respond with empathy.
2. Encourage contacting local emergency services or a crisis hotline.
3. Encourage reaching out to a trusted person.
4. Stay calm and supportive. Do not provide instructions. Do not normalize desire for self-harm.
`)
	return b.String()
}

// LiveVoiceInstruction renders the persona prompt plus the addendum used
// for real-time voice sessions.
func LiveVoiceInstruction(p Profile) string {
	return SystemInstruction(p) +
		"\nYou are in a live voice conversation. Keep responses natural, brief, and very conversational. Avoid long pauses."
}
