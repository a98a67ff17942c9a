package session

import (
	"context"
	"strings"
	"testing"

	"hrportal/internal/errors"
	"hrportal/internal/review"
	"hrportal/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func techBroSubmission() Submission {
	return Submission{
		Persona:       types.PersonaTechBro,
		Mode:          types.ModeText,
		CandidateText: "Built a blockchain app in my dorm room",
		Lore:          review.FallbackLore,
	}
}

func TestStartEndToEnd(t *testing.T) {
	chat := &fakeChat{replies: []string{"Review body\nTOXICITY_SCORE: 42"}}
	starter := &fakeStarter{chat: chat}
	conv := NewConversation("s1")

	result, err := conv.Start(context.Background(), starter, nil, techBroSubmission())
	require.NoError(t, err)

	assert.Equal(t, "Review body", result.CleanedText)
	assert.Equal(t, "42", result.Score)

	require.Len(t, chat.sent, 1)
	prompt := chat.sent[0]
	assert.Contains(t, prompt, "Cutthroat Tech Bro")
	assert.Contains(t, prompt, "Built a blockchain app in my dorm room")
	assert.Contains(t, prompt, review.FallbackLore)

	view := conv.Snapshot()
	assert.True(t, view.Active)
	assert.Equal(t, "42", view.Score)
	assert.Equal(t, "gemini-test-flash", view.Model)
	require.Len(t, view.Turns, 1)
	assert.Equal(t, types.Turn{Role: types.RoleAssistant, Content: "Review body"}, view.Turns[0])
}

func TestStartWithoutMarker(t *testing.T) {
	chat := &fakeChat{replies: []string{"No score from me."}}
	conv := NewConversation("s1")

	result, err := conv.Start(context.Background(), &fakeStarter{chat: chat}, nil, techBroSubmission())
	require.NoError(t, err)
	assert.Equal(t, types.ScoreUnavailable, result.Score)
	assert.Equal(t, "No score from me.", result.CleanedText)
}

func TestStartFailureLeavesIdle(t *testing.T) {
	tests := []struct {
		name    string
		starter *fakeStarter
		sub     Submission
		code    string
	}{
		{
			name:    "api failure",
			starter: &fakeStarter{chat: &fakeChat{errs: []error{errors.NewAIError(errors.ErrCodeAIServiceFailed, "down", nil)}}},
			sub:     techBroSubmission(),
			code:    errors.ErrCodeAIServiceFailed,
		},
		{
			name:    "chat cannot start",
			starter: &fakeStarter{err: errors.NewAIError(errors.ErrCodeModelDiscoveryFailed, "no models", nil)},
			sub:     techBroSubmission(),
			code:    errors.ErrCodeModelDiscoveryFailed,
		},
		{
			name:    "empty candidate",
			starter: &fakeStarter{chat: &fakeChat{}},
			sub:     Submission{Persona: types.PersonaHRDirector, CandidateText: "   "},
			code:    errors.ErrCodeEmptyCandidateText,
		},
		{
			name:    "unknown persona",
			starter: &fakeStarter{chat: &fakeChat{}},
			sub:     Submission{Persona: "Friendly Mentor", CandidateText: "hi"},
			code:    errors.ErrCodeInvalidPersona,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conv := NewConversation("s1")
			_, err := conv.Start(context.Background(), tt.starter, nil, tt.sub)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, tt.code), "got %v", err)

			assert.Equal(t, Idle, conv.State())
			view := conv.Snapshot()
			assert.Empty(t, view.Turns)
			assert.Empty(t, view.Score)
		})
	}
}

func TestStartWhileActive(t *testing.T) {
	chat := &fakeChat{replies: []string{"first TOXICITY_SCORE: 10"}}
	starter := &fakeStarter{chat: chat}
	conv := NewConversation("s1")

	_, err := conv.Start(context.Background(), starter, nil, techBroSubmission())
	require.NoError(t, err)

	_, err = conv.Start(context.Background(), starter, nil, techBroSubmission())
	assert.True(t, errors.IsCode(err, errors.ErrCodeSessionActive))
	assert.Equal(t, 1, starter.started)
}

func TestReplyUsesReminderOnSameChat(t *testing.T) {
	chat := &fakeChat{replies: []string{
		"Review TOXICITY_SCORE: 88",
		"Noted. Circle back never.",
		"Per my last email.",
	}}
	starter := &fakeStarter{chat: chat}
	conv := NewConversation("s1")

	_, err := conv.Start(context.Background(), starter, nil, techBroSubmission())
	require.NoError(t, err)

	turn, err := conv.Reply(context.Background(), "I shipped to prod on day one")
	require.NoError(t, err)
	assert.Equal(t, "Noted. Circle back never.", turn.Content)

	_, err = conv.Reply(context.Background(), "That is unfair")
	require.NoError(t, err)

	assert.Equal(t, 1, starter.started, "follow-ups must reuse the chat")
	require.Len(t, chat.sent, 3)
	prefix := review.ReminderPrefix(types.PersonaTechBro)
	assert.Equal(t, prefix+"I shipped to prod on day one", chat.sent[1])
	assert.Equal(t, prefix+"That is unfair", chat.sent[2])

	view := conv.Snapshot()
	require.Len(t, view.Turns, 5)
	assert.Equal(t, types.RoleUser, view.Turns[1].Role)
	assert.Equal(t, "I shipped to prod on day one", view.Turns[1].Content)
	assert.Equal(t, "88", view.Score)
	require.NotNil(t, view.Usage)
	assert.Equal(t, int64(15), view.Usage.TotalTokens)
}

func TestReplyFailureRollsBack(t *testing.T) {
	chat := &fakeChat{
		replies: []string{"Review TOXICITY_SCORE: 5", ""},
		errs:    []error{nil, errors.NewAIError(errors.ErrCodeAITimeout, "slow", nil)},
	}
	conv := NewConversation("s1")

	_, err := conv.Start(context.Background(), &fakeStarter{chat: chat}, nil, techBroSubmission())
	require.NoError(t, err)

	_, err = conv.Reply(context.Background(), "hello?")
	assert.True(t, errors.IsCode(err, errors.ErrCodeAITimeout))

	view := conv.Snapshot()
	assert.True(t, view.Active)
	require.Len(t, view.Turns, 1)
	assert.Equal(t, types.RoleAssistant, view.Turns[0].Role)
}

func TestReplyValidation(t *testing.T) {
	conv := NewConversation("s1")

	_, err := conv.Reply(context.Background(), "hi")
	assert.True(t, errors.IsCode(err, errors.ErrCodeSessionNotActive))

	chat := &fakeChat{replies: []string{"Review"}}
	_, err = conv.Start(context.Background(), &fakeStarter{chat: chat}, nil, techBroSubmission())
	require.NoError(t, err)

	_, err = conv.Reply(context.Background(), "  \n")
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidRequest))
	assert.Len(t, chat.sent, 1)
}

func TestResetClearsEverything(t *testing.T) {
	chat := &fakeChat{replies: []string{"Review TOXICITY_SCORE: 70", "ok", "ok", "ok"}}
	conv := NewConversation("s1")

	_, err := conv.Start(context.Background(), &fakeStarter{chat: chat}, nil, techBroSubmission())
	require.NoError(t, err)
	for range 3 {
		_, err := conv.Reply(context.Background(), "more")
		require.NoError(t, err)
	}
	require.Len(t, conv.Snapshot().Turns, 7)

	conv.Reset()

	view := conv.Snapshot()
	assert.False(t, view.Active)
	assert.Empty(t, view.Turns)
	assert.Empty(t, view.Score)
	assert.Empty(t, view.Persona)
	assert.Nil(t, view.Usage)
	_, ok := conv.FirstAssistantTurn()
	assert.False(t, ok)

	// Reset on idle is harmless
	conv.Reset()
	assert.Equal(t, Idle, conv.State())
}

func TestFirstAssistantTurnIsReview(t *testing.T) {
	chat := &fakeChat{replies: []string{"The review.\nTOXICITY_SCORE: 61", "later reply"}}
	conv := NewConversation("s1")

	_, err := conv.Start(context.Background(), &fakeStarter{chat: chat}, nil, techBroSubmission())
	require.NoError(t, err)
	_, err = conv.Reply(context.Background(), "why")
	require.NoError(t, err)

	turn, ok := conv.FirstAssistantTurn()
	require.True(t, ok)
	assert.Equal(t, "The review.", turn.Content)
}

func TestCustomAssemblerTemplate(t *testing.T) {
	chat := &fakeChat{replies: []string{"ok"}}
	conv := NewConversation("s1")
	assembler := review.NewAssembler("As {{persona}}, judge: {{candidate}}")

	_, err := conv.Start(context.Background(), &fakeStarter{chat: chat}, assembler, techBroSubmission())
	require.NoError(t, err)

	require.Len(t, chat.sent, 1)
	assert.True(t, strings.HasPrefix(chat.sent[0], "As Cutthroat Tech Bro, judge: Built a blockchain"))
	assert.Contains(t, chat.sent[0], review.ScoreMarker)
}

func TestSnapshotIsACopy(t *testing.T) {
	chat := &fakeChat{replies: []string{"Review"}}
	conv := NewConversation("s1")
	_, err := conv.Start(context.Background(), &fakeStarter{chat: chat}, nil, techBroSubmission())
	require.NoError(t, err)

	view := conv.Snapshot()
	view.Turns[0].Content = "tampered"

	assert.Equal(t, "Review", conv.Snapshot().Turns[0].Content)
}
