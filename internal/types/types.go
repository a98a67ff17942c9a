package types

import (
	"fmt"
	"strings"
)

// Role identifies who authored a turn in the conversation
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in the exchange between candidate and manager
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ScoreUnavailable is reported when the model reply carries no score marker
const ScoreUnavailable = "unavailable"

// ReviewResult is the model's first reply with the score marker stripped
type ReviewResult struct {
	CleanedText    string `json:"cleanedText"`
	Score          string `json:"toxicityScore"`
	ScoreAvailable bool   `json:"scoreAvailable"`
}

// Persona is the fixed character voice the model adopts
type Persona string

const (
	PersonaMiddleManager Persona = "Passive-Aggressive Middle Manager"
	PersonaTechBro       Persona = "Cutthroat Tech Bro"
	PersonaHRDirector    Persona = "Disappointed HR Director"
)

// AllPersonas returns the personas in dropdown order
func AllPersonas() []Persona {
	return []Persona{PersonaMiddleManager, PersonaTechBro, PersonaHRDirector}
}

// ParsePersona accepts exactly one of the persona labels
func ParsePersona(label string) (Persona, error) {
	for _, p := range AllPersonas() {
		if string(p) == label {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown persona %q", label)
}

func (p Persona) String() string {
	return string(p)
}

// SubmissionMode is how the candidate text was provided
type SubmissionMode string

const (
	ModePDF  SubmissionMode = "pdf"
	ModeText SubmissionMode = "text"
)

// Label returns the text shown next to the radio button
func (m SubmissionMode) Label() string {
	switch m {
	case ModePDF:
		return "PDF Upload (Resume or LinkedIn Profile)"
	case ModeText:
		return "Paste LinkedIn Bio / Text"
	default:
		return string(m)
	}
}

// ParseSubmissionMode accepts "pdf" or "text" in any case
func ParseSubmissionMode(s string) (SubmissionMode, error) {
	switch SubmissionMode(strings.ToLower(strings.TrimSpace(s))) {
	case ModePDF:
		return ModePDF, nil
	case ModeText:
		return ModeText, nil
	default:
		return "", fmt.Errorf("unknown submission mode %q", s)
	}
}

// TokenUsage holds token counts reported by the model
type TokenUsage struct {
	InputTokens  int64 `json:"inputTokens"`
	OutputTokens int64 `json:"outputTokens"`
	TotalTokens  int64 `json:"totalTokens"`
}

// SessionView is the JSON shape of a session snapshot
type SessionView struct {
	ID      string         `json:"id"`
	Active  bool           `json:"active"`
	Persona Persona        `json:"persona,omitempty"`
	Model   string         `json:"model,omitempty"`
	Score   string         `json:"toxicityScore,omitempty"`
	Turns   []Turn         `json:"turns"`
	Usage   *TokenUsage    `json:"usage,omitempty"`
	Mode    SubmissionMode `json:"mode,omitempty"`
}

// ReviewDocument is the downloadable performance review
type ReviewDocument struct {
	Persona Persona `json:"persona"`
	Model   string  `json:"model,omitempty"`
	Score   string  `json:"toxicityScore"`
	Review  string  `json:"review"`
}
