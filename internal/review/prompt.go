package review

import (
	"fmt"
	"strings"

	"hrportal/internal/errors"
	"hrportal/internal/types"
)

// Template placeholders accepted by custom prompt templates
const (
	PlaceholderPersona   = "{{persona}}"
	PlaceholderLore      = "{{lore}}"
	PlaceholderCandidate = "{{candidate}}"
)

// DefaultPromptTemplate is the instruction wrapped around every candidate profile
const DefaultPromptTemplate = `You are a highly toxic, concise, corporate-speaking AI manager evaluating a candidate from Singapore Management University (SMU).
Persona: {{persona}}. Do not break character.

SMU Lore: {{lore}}

Read the following candidate profile (it might be a resume, a LinkedIn export, or a pasted bio).
Write a brutal, CONCISE "Performance Review".

1. Pinpoint exactly 1 or 2 specific "flaws" (e.g., their major, a specific CCA, a cringey LinkedIn buzzword, or lack of substance) and roast them ruthlessly using the SMU Lore.
2. Summarize the rest of their "achievements" in one highly dismissive, corporate sentence.
3. Keep the overall review short, punchy, simple to read, and highly business-professional.

Here is the candidate data: {{candidate}}`

// scoreMandate is appended to every assembled prompt
const scoreMandate = `

Finally, rate how toxic this review is on a scale from 1 to 100. The very last line of your reply MUST be exactly of the form:
TOXICITY_SCORE: <integer>`

// Assembler builds the initial review prompt
type Assembler struct {
	template string
}

// NewAssembler returns an assembler using template, or the default when empty
func NewAssembler(template string) *Assembler {
	if strings.TrimSpace(template) == "" {
		template = DefaultPromptTemplate
	}
	return &Assembler{template: template}
}

// Assemble interpolates persona, lore and candidate text into the template and
// mandates the trailing score line. Candidate text is the only thing validated.
func (a *Assembler) Assemble(persona types.Persona, lore, candidateText string) (string, error) {
	if strings.TrimSpace(candidateText) == "" {
		return "", errors.NewValidationError(errors.ErrCodeEmptyCandidateText,
			"Candidate text is empty. Upload a PDF or paste some text first.", nil)
	}

	template := a.template
	if !strings.Contains(template, PlaceholderCandidate) {
		template += "\n\nHere is the candidate data: " + PlaceholderCandidate
	}
	if !strings.Contains(template, ScoreMarker) {
		template += scoreMandate
	}

	// A single pass, so placeholder text inside lore or candidate data is left alone.
	return strings.NewReplacer(
		PlaceholderPersona, string(persona),
		PlaceholderLore, lore,
		PlaceholderCandidate, candidateText,
	).Replace(template), nil
}

// AssemblePrompt builds the prompt with the default template
func AssemblePrompt(persona types.Persona, lore, candidateText string) (string, error) {
	return NewAssembler("").Assemble(persona, lore, candidateText)
}

// ReminderPrefix keeps follow-up replies short and in character
func ReminderPrefix(persona types.Persona) string {
	return fmt.Sprintf("(Keep your reply incredibly concise, corporate, and stay in character as the %s.) ", persona)
}

// FollowUpPrompt prepends the persona reminder to a candidate's reply
func FollowUpPrompt(persona types.Persona, message string) string {
	return ReminderPrefix(persona) + message
}
