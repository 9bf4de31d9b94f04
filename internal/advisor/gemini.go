package advisor

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// DefaultModelName is the Gemini model used for advice.
const DefaultModelName = "gemini-2.5-flash"

// Advisor produces free-form advice for a summary.
type Advisor interface {
	Advise(ctx context.Context, s Summary) (string, error)
}

// UpstreamError wraps a failure of the advice service. It never implies the
// ledger was touched.
type UpstreamError struct {
	Model string
	Err   error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("advice service error (%s): %v", e.Model, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// ContentGenerator is the subset of *genai.Models used here.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiConfig configures NewGeminiAdvisor.
type GeminiConfig struct {
	// APIKey for the Gemini Developer API. When empty the client falls back
	// to GOOGLE_API_KEY / GEMINI_API_KEY from the environment.
	APIKey string
	// Model defaults to DefaultModelName.
	Model string
}

// GeminiAdvisor asks a Gemini model for advice.
type GeminiAdvisor struct {
	models ContentGenerator
	model  string
}

// NewGeminiAdvisor creates a genai client for the Gemini Developer API.
func NewGeminiAdvisor(ctx context.Context, cfg GeminiConfig) (*GeminiAdvisor, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("NewGeminiAdvisor: create genai client: %w", err)
	}
	return NewGeminiAdvisorWith(client.Models, cfg.Model), nil
}

// NewGeminiAdvisorWith wraps an existing content generator.
func NewGeminiAdvisorWith(models ContentGenerator, model string) *GeminiAdvisor {
	if model == "" {
		model = DefaultModelName
	}
	return &GeminiAdvisor{models: models, model: model}
}

// Advise sends the coaching prompt and returns the model's text. Every
// failure of the call is reported as *UpstreamError.
func (g *GeminiAdvisor) Advise(ctx context.Context, s Summary) (string, error) {
	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: BuildPrompt(s)}},
		},
	}

	resp, err := g.models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", &UpstreamError{Model: g.model, Err: err}
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", &UpstreamError{Model: g.model, Err: fmt.Errorf("empty response from model")}
	}
	return text, nil
}

var _ Advisor = (*GeminiAdvisor)(nil)
