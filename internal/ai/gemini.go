// README: Gemini implementation of LLMProvider on the official generative-ai-go SDK.
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const DefaultModel = "gemini-2.5-flash"

// ModelOptions tunes the generation config.
type ModelOptions struct {
	Model           string
	Temperature     float32
	MaxOutputTokens int32
}

// GeminiProvider implements LLMProvider using Google's Gemini models.
type GeminiProvider struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGeminiProvider initializes a new Gemini client.
// apiKey should be provided from environment variables.
func NewGeminiProvider(ctx context.Context, apiKey string, opts ModelOptions) (*GeminiProvider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("gemini: missing api key")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	name := opts.Model
	if name == "" {
		name = DefaultModel
	}
	model := client.GenerativeModel(name)
	model.SetTemperature(opts.Temperature)
	if opts.MaxOutputTokens > 0 {
		model.SetMaxOutputTokens(opts.MaxOutputTokens)
	}

	// Travel prompts trip the default filters on harmless content (nightlife, local customs).
	model.SafetySettings = []*genai.SafetySetting{
		{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockNone},
	}

	return &GeminiProvider{client: client, model: model}, nil
}

// Close cleans up the Gemini client resources.
func (p *GeminiProvider) Close() {
	p.client.Close()
}

func (p *GeminiProvider) Generate(ctx context.Context, prompt string) (*Generation, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, errors.New("gemini: empty prompt")
	}

	resp, err := p.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		var blocked *genai.BlockedError
		if errors.As(err, &blocked) {
			return nil, fmt.Errorf("%w: %s", ErrBlocked, blocked.Error())
		}
		return nil, fmt.Errorf("gemini generation error: %w", err)
	}

	gen := &Generation{}
	if resp.UsageMetadata != nil {
		gen.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		gen.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return gen, ErrEmptyResponse
	}

	cand := resp.Candidates[0]
	gen.FinishReason = cand.FinishReason.String()
	if cand.FinishReason == genai.FinishReasonSafety || cand.FinishReason == genai.FinishReasonRecitation {
		return gen, fmt.Errorf("%w: finish reason %s", ErrBlocked, gen.FinishReason)
	}

	var text strings.Builder
	for _, part := range cand.Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			text.WriteString(string(txt))
		}
	}
	gen.Text = strings.TrimSpace(text.String())
	if gen.Text == "" {
		return gen, ErrEmptyResponse
	}
	return gen, nil
}
