package session

import (
	"context"
	"errors"

	"hrportal/internal/ai"
	"hrportal/internal/types"
)

type fakeChat struct {
	replies []string
	errs    []error
	sent    []string
}

func (f *fakeChat) Model() string { return "gemini-test-flash" }

func (f *fakeChat) Send(_ context.Context, message string) (*ai.Reply, error) {
	idx := len(f.sent)
	f.sent = append(f.sent, message)
	if idx < len(f.errs) && f.errs[idx] != nil {
		return nil, f.errs[idx]
	}
	if idx >= len(f.replies) {
		return nil, errors.New("no scripted reply")
	}
	return &ai.Reply{
		Text:  f.replies[idx],
		Model: f.Model(),
		Usage: &types.TokenUsage{InputTokens: 3, OutputTokens: 2, TotalTokens: 5},
	}, nil
}

type fakeStarter struct {
	chat    *fakeChat
	err     error
	started int
}

func (f *fakeStarter) StartChat(context.Context) (ai.ChatSession, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.started++
	return f.chat, nil
}
