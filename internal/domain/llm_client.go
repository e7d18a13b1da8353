package domain

import "context"

// LLMClient defines the capability to send prompts to a generation model and
// receive textual responses. Structured output is requested by the adapter;
// parsing and validation happen in the usecase layer.
type LLMClient interface {
	Generate(ctx context.Context, prompt string, maxTokens int) (*LLMResponse, error)
	Version() string
}

// LLMResponse carries the model output and whether the generation finished.
type LLMResponse struct {
	Text string
	Done bool
}
