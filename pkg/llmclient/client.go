// Package llmclient talks to the language model that backs entity and fact
// extraction (spec §4.2). A Client is a narrow chat-completion contract;
// retry, circuit breaking, and JSON repair are separate decorators so the
// Episode Queue's retry policy stays independent of any one provider.
package llmclient

import (
	"context"

	"github.com/kortexhq/kortex/pkg/types"
)

// Client sends chat completions to an LLM provider.
type Client interface {
	Chat(ctx context.Context, messages []types.Message) (*types.CompletionResponse, error)
	// ChatJSON asks for a structured JSON response matching schema's shape
	// (used as a hint, not a strict json-schema enforcement) and repairs
	// near-valid JSON before returning it.
	ChatJSON(ctx context.Context, messages []types.Message, schema any) (*types.CompletionResponse, error)
	Close() error
}

// Config holds provider-agnostic chat parameters.
type Config struct {
	Model       string
	BaseURL     string
	Temperature float32
	MaxTokens   int
	TopP        float32
}
