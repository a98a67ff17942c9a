package common

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"hrportal/internal/ai"
	"hrportal/internal/errors"
	"hrportal/internal/session"
	"hrportal/internal/types"
)

type scriptedChat struct {
	reply string
}

func (s *scriptedChat) Model() string { return "gemini-flash-test" }

func (s *scriptedChat) Send(context.Context, string) (*ai.Reply, error) {
	return &ai.Reply{Text: s.reply, Model: s.Model()}, nil
}

type scriptedStarter struct {
	chat *scriptedChat
}

func (s scriptedStarter) StartChat(context.Context) (ai.ChatSession, error) {
	return s.chat, nil
}

func TestReviewRunnerPrintsReview(t *testing.T) {
	var out bytes.Buffer
	runner := &ReviewRunner{
		Starter: scriptedStarter{chat: &scriptedChat{reply: "Synergy deficit detected.\nTOXICITY_SCORE: 64"}},
		Output:  NewOutputHandler(nil).WithWriter(&out),
	}
	conv := session.NewConversation("cli")

	result, err := runner.Run(context.Background(), conv, ReviewRequest{
		Persona:       types.PersonaMiddleManager,
		CandidateText: "Treasurer of three CCAs",
	}, CommandConfig{OutputFormat: "text"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Score != "64" {
		t.Errorf("expected score 64, got %q", result.Score)
	}
	if strings.TrimSpace(out.String()) != "Synergy deficit detected." {
		t.Errorf("unexpected output %q", out.String())
	}
	if conv.State() != session.Active {
		t.Error("conversation should be active after the review")
	}
}

func TestReviewRunnerWritesFile(t *testing.T) {
	outFile := filepath.Join(t.TempDir(), "out", "review.md")
	runner := &ReviewRunner{
		Starter: scriptedStarter{chat: &scriptedChat{reply: "Meh. TOXICITY_SCORE: 12"}},
		Output:  NewOutputHandler(nil),
	}

	_, err := runner.Run(context.Background(), session.NewConversation("cli"), ReviewRequest{
		Persona:       types.PersonaTechBro,
		CandidateText: "Dean's list",
	}, CommandConfig{OutputFile: outFile, OutputFormat: "markdown"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(outFile)
	if err != nil {
		t.Fatalf("expected output file: %v", err)
	}
	if !strings.Contains(string(data), "12/100") {
		t.Errorf("expected score in markdown, got:\n%s", data)
	}
}

func TestLoadCandidate(t *testing.T) {
	dir := t.TempDir()
	bio := filepath.Join(dir, "bio.txt")
	if err := os.WriteFile(bio, []byte("Case comp champion"), 0600); err != nil {
		t.Fatal(err)
	}

	text, mode, err := ReviewRequest{CandidateFile: bio, MaxFileSize: 1024}.LoadCandidate(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "Case comp champion" || mode != types.ModeText {
		t.Errorf("got %q (%s)", text, mode)
	}

	_, _, err = ReviewRequest{CandidateFile: bio, CandidateText: "also this"}.LoadCandidate(nil)
	if !errors.IsCode(err, errors.ErrCodeInvalidMode) {
		t.Errorf("expected INVALID_SUBMISSION_MODE, got %v", err)
	}

	_, _, err = ReviewRequest{}.LoadCandidate(nil)
	if !errors.IsCode(err, errors.ErrCodeEmptyCandidateText) {
		t.Errorf("expected EMPTY_CANDIDATE_TEXT, got %v", err)
	}
}

func TestResolvedFormat(t *testing.T) {
	tests := []struct {
		name     string
		config   CommandConfig
		expected string
	}{
		{name: "explicit format wins", config: CommandConfig{OutputFile: "review.md", OutputFormat: "json"}, expected: "json"},
		{name: "explicit alias", config: CommandConfig{OutputFormat: "md"}, expected: "markdown"},
		{name: "markdown extension", config: CommandConfig{OutputFile: "out/review.MD"}, expected: "markdown"},
		{name: "json extension", config: CommandConfig{OutputFile: "review.json"}, expected: "json"},
		{name: "unknown extension falls back", config: CommandConfig{OutputFile: "review.log"}, expected: "markdown"},
		{name: "stdout falls back", config: CommandConfig{}, expected: "markdown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.config.ResolvedFormat("md"); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}
