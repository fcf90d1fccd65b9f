package supervisor

import (
	"context"

	"github.com/deepresearch/internal/conversation"
)

// ToolSpec declares a tool the reasoning model may call
type ToolSpec struct {
	Name        string
	Description string
	// InputSchema is a JSON schema object with "properties" and "required"
	InputSchema map[string]any
}

// Request is one call to the reasoning model. Turns are sent exactly as stored.
type Request struct {
	System         string
	Turns          []conversation.Turn
	Tools          []ToolSpec
	ToolChoiceNone bool
	MaxTokens      int
}

// Response is the ordered block sequence returned by the model
type Response struct {
	Blocks     []conversation.Block
	StopReason string
}

// Reasoner is a multi-turn reasoning model with tool use
type Reasoner interface {
	Reason(ctx context.Context, req Request) (*Response, error)
}

// ReasonerFunc adapts a function to the Reasoner interface
type ReasonerFunc func(ctx context.Context, req Request) (*Response, error)

func (f ReasonerFunc) Reason(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}
