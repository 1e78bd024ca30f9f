// Package model provides the provider-agnostic LLM client abstraction (D1)
// used by the Lean Executor, Focus Planner, and Session Analyzer: a single
// Complete call plus a bounded, temperature-escalating retry helper for
// JSON-mode turns.
package model

import (
	"context"
	"errors"
)

// Client is the contract every provider wrapper implements. Streaming is
// intentionally omitted: every caller in this runtime needs the complete
// reply before it can parse a tool call or validate JSON, so there is no
// incremental-chunk consumer to justify the teacher's Streamer interface.
type Client interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// Message mirrors a single chat turn.
type Message struct {
	Role    string
	Content string
}

// ToolDefinition describes a tool schema offered to the model for function
// calling.
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema any
}

// ToolCall captures a tool invocation requested by the model.
type ToolCall struct {
	Name    string
	Payload any
}

// TokenUsage records prompt/completion token counts when the provider
// reports them.
type TokenUsage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// Request captures the normalized parameters for one model invocation.
type Request struct {
	Model       string
	Messages    []Message
	System      string
	Temperature float32
	Tools       []ToolDefinition
	MaxTokens   int
}

// Response wraps the generated content and any tool call requested by the
// model.
type Response struct {
	Content    string
	ToolCalls  []ToolCall
	Usage      TokenUsage
	StopReason string
}

// ErrRateLimited marks a provider response indicating the caller exceeded
// its rate limit; CallWithRetry does not retry this case itself (the
// AdaptiveRateLimiter in front of Client is the intended defense), but
// callers can match on it with errors.Is.
var ErrRateLimited = errors.New("model: rate limited")

// ErrProvider wraps any other provider-side failure (network, auth,
// malformed response) that isn't a rate limit.
var ErrProvider = errors.New("model: provider error")
