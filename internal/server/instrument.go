package server

import (
	"context"

	"hrportal/internal/ai"
	"hrportal/internal/observability"
)

// instrumentStarter records duration and token usage for every model call
// made through starter. A nil starter stays nil.
func instrumentStarter(starter ai.ChatStarter, metrics *observability.Metrics) ai.ChatStarter {
	if starter == nil {
		return nil
	}
	return &instrumentedStarter{next: starter, metrics: metrics}
}

type instrumentedStarter struct {
	next    ai.ChatStarter
	metrics *observability.Metrics
}

func (i *instrumentedStarter) StartChat(ctx context.Context) (ai.ChatSession, error) {
	chat, err := i.next.StartChat(ctx)
	if err != nil {
		return nil, err
	}
	return &instrumentedChat{next: chat, metrics: i.metrics}, nil
}

type instrumentedChat struct {
	next    ai.ChatSession
	metrics *observability.Metrics
}

func (c *instrumentedChat) Model() string {
	return c.next.Model()
}

func (c *instrumentedChat) Send(ctx context.Context, message string) (*ai.Reply, error) {
	var reply *ai.Reply
	err := c.metrics.TrackAIOperation(ctx, "chat_send", c.next.Model(), func(ctx context.Context) *observability.AIOperationResult {
		r, sendErr := c.next.Send(ctx, message)
		reply = r
		result := &observability.AIOperationResult{Error: sendErr}
		if r != nil {
			result.TokenUsage = r.Usage
		}
		return result
	})
	return reply, err
}
