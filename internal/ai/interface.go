// README: LLM provider contract, generation result and sentinel errors.
package ai

import (
	"context"
	"errors"
)

var (
	// ErrBlocked is returned when the provider refused to answer (safety or recitation filters).
	ErrBlocked = errors.New("model response blocked")
	// ErrEmptyResponse is returned when the provider answered without any text.
	ErrEmptyResponse = errors.New("model returned no text")
)

// LLMProvider defines the contract for interacting with AI models.
// This interface allows for swapping different AI providers in the future.
type LLMProvider interface {
	// Generate runs one single-turn completion for prompt.
	Generate(ctx context.Context, prompt string) (*Generation, error)
}

// Generation is one model answer with the provider's own token accounting.
// Token counts are zero when the provider did not report them.
type Generation struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
	FinishReason     string
}
