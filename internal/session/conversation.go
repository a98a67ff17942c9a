package session

import (
	"context"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"hrportal/internal/ai"
	"hrportal/internal/errors"
	"hrportal/internal/review"
	"hrportal/internal/types"
)

// State of a conversation
type State int

const (
	// Idle means no review has been generated yet
	Idle State = iota
	// Active means a review exists and the chat is open
	Active
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Active:
		return "active"
	default:
		return "unknown"
	}
}

// Submission is the input collected by the form
type Submission struct {
	Persona       types.Persona
	Mode          types.SubmissionMode
	CandidateText string
	Lore          string
}

// Conversation holds one browser's transcript, score and chat handle.
// Every exported method takes the conversation lock, so at most one
// transition runs at a time.
type Conversation struct {
	mu sync.Mutex

	id       string
	state    State
	turns    []types.Turn
	result   types.ReviewResult
	persona  types.Persona
	mode     types.SubmissionMode
	chat     ai.ChatSession
	usage    types.TokenUsage
	now      func() time.Time

	// unix nanos, read by the sweeper without taking mu
	lastSeen atomic.Int64
}

// NewConversation returns an idle conversation
func NewConversation(id string) *Conversation {
	c := &Conversation{id: id, now: time.Now}
	c.touch()
	return c
}

// ID returns the session id
func (c *Conversation) ID() string {
	return c.id
}

// State returns the current state
func (c *Conversation) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Persona returns the persona chosen at submission, empty while idle
func (c *Conversation) Persona() types.Persona {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.persona
}

// Start moves Idle to Active. It assembles the review prompt, opens a fresh
// chat and sends the prompt. The cleaned reply becomes the only turn. Any
// failure leaves the conversation idle and untouched.
func (c *Conversation) Start(ctx context.Context, starter ai.ChatStarter, assembler *review.Assembler, sub Submission) (types.ReviewResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()

	if c.state == Active {
		return types.ReviewResult{}, errors.NewValidationError(errors.ErrCodeSessionActive,
			"A review is already in progress. Reset to evaluate a new candidate.", nil)
	}
	if _, err := types.ParsePersona(string(sub.Persona)); err != nil {
		return types.ReviewResult{}, errors.NewValidationError(errors.ErrCodeInvalidPersona,
			"Unknown persona selected", err)
	}
	if assembler == nil {
		assembler = review.NewAssembler("")
	}

	prompt, err := assembler.Assemble(sub.Persona, sub.Lore, sub.CandidateText)
	if err != nil {
		return types.ReviewResult{}, err
	}

	chat, err := starter.StartChat(ctx)
	if err != nil {
		return types.ReviewResult{}, err
	}

	reply, err := chat.Send(ctx, prompt)
	if err != nil {
		return types.ReviewResult{}, err
	}

	result := review.ExtractScore(reply.Text)

	c.state = Active
	c.persona = sub.Persona
	c.mode = sub.Mode
	c.chat = chat
	c.result = result
	c.turns = []types.Turn{{Role: types.RoleAssistant, Content: result.CleanedText}}
	c.usage = types.TokenUsage{}
	c.addUsage(reply.Usage)

	return result, nil
}

// Reply moves Active to Active. The user turn is appended, the message is sent
// with the persona reminder on the same chat, and the assistant turn follows.
// On failure the user turn is rolled back.
func (c *Conversation) Reply(ctx context.Context, message string) (types.Turn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()

	if c.state != Active {
		return types.Turn{}, errors.NewValidationError(errors.ErrCodeSessionNotActive,
			"Submit a candidate before chatting with the manager.", nil)
	}
	if strings.TrimSpace(message) == "" {
		return types.Turn{}, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			"Message is empty", nil)
	}

	prior := len(c.turns)
	c.turns = append(c.turns, types.Turn{Role: types.RoleUser, Content: message})

	reply, err := c.chat.Send(ctx, review.FollowUpPrompt(c.persona, message))
	if err != nil {
		c.turns = c.turns[:prior]
		return types.Turn{}, err
	}

	turn := types.Turn{Role: types.RoleAssistant, Content: reply.Text}
	c.turns = append(c.turns, turn)
	c.addUsage(reply.Usage)
	return turn, nil
}

// Reset drops the transcript, score, persona and chat. Resetting an idle
// conversation is a no-op.
func (c *Conversation) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()

	c.state = Idle
	c.turns = nil
	c.result = types.ReviewResult{}
	c.persona = ""
	c.mode = ""
	c.chat = nil
	c.usage = types.TokenUsage{}
}

// Snapshot returns a copy of the conversation for rendering
func (c *Conversation) Snapshot() types.SessionView {
	c.mu.Lock()
	defer c.mu.Unlock()

	view := types.SessionView{
		ID:     c.id,
		Active: c.state == Active,
		Turns:  slices.Clone(c.turns),
	}
	if view.Turns == nil {
		view.Turns = []types.Turn{}
	}
	if c.state == Active {
		view.Persona = c.persona
		view.Mode = c.mode
		view.Score = c.result.Score
		if c.chat != nil {
			view.Model = c.chat.Model()
		}
		usage := c.usage
		view.Usage = &usage
	}
	return view
}

// FirstAssistantTurn returns the performance review, the download artifact
func (c *Conversation) FirstAssistantTurn() (types.Turn, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, t := range c.turns {
		if t.Role == types.RoleAssistant {
			return t, true
		}
	}
	return types.Turn{}, false
}

// Result returns the extracted score of the active review
func (c *Conversation) Result() (types.ReviewResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result, c.state == Active
}

func (c *Conversation) idleSince(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, c.lastSeen.Load()))
}

func (c *Conversation) touch() {
	c.lastSeen.Store(c.now().UnixNano())
}

func (c *Conversation) addUsage(u *types.TokenUsage) {
	if u == nil {
		return
	}
	c.usage.InputTokens += u.InputTokens
	c.usage.OutputTokens += u.OutputTokens
	c.usage.TotalTokens += u.TotalTokens
}
