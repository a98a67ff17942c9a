package ai

import (
	"context"

	"hrportal/internal/types"
)

// Reply is one model response within a chat
type Reply struct {
	Text  string            `json:"text"`
	Model string            `json:"model"`
	Usage *types.TokenUsage `json:"usage,omitempty"`
}

// ChatSession is one ongoing conversation with the model. Earlier turns are kept
// by the session, so callers only send the newest message.
type ChatSession interface {
	Send(ctx context.Context, message string) (*Reply, error)
	Model() string
}

// ChatStarter opens new chat sessions with empty history
type ChatStarter interface {
	StartChat(ctx context.Context) (ChatSession, error)
}

// AIProvider interface for different AI implementations
type AIProvider interface {
	ChatStarter
	ResolveModel(ctx context.Context) (string, error)
	ListModels(ctx context.Context) ([]ModelInfo, error)
	GetModelInfo(ctx context.Context) *ModelInfo
	GetCircuitBreakerStats() map[string]any
	Close() error
}
