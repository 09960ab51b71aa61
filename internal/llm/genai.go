package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// DefaultGenAIModel is used when no model is configured.
const DefaultGenAIModel = "gemini-2.5-flash"

// GenAI generates through the Gemini API.
type GenAI struct {
	client *genai.Client
	model  string
}

// NewGenAI creates a client. apiKey is required.
func NewGenAI(ctx context.Context, apiKey, model string) (*GenAI, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	if model == "" {
		model = DefaultGenAIModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create GenAI client: %w", err)
	}
	return &GenAI{client: client, model: model}, nil
}

// Generate sends prompt as a single user turn.
func (g *GenAI) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("GenAI generate: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("GenAI returned no text")
	}
	return text, nil
}

func (g *GenAI) Name() string { return "genai:" + g.model }
