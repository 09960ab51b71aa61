package embedding

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// DefaultGenAIModel is used when no model is configured.
const DefaultGenAIModel = "gemini-embedding-001"

// genaiBatchLimit is the most contents the API accepts per EmbedContent call.
const genaiBatchLimit = 100

// genaiDimensions truncates gemini-embedding-001 output to the size the
// other engines produce.
const genaiDimensions = 768

// GenAIEngine embeds through the Gemini API.
type GenAIEngine struct {
	client   *genai.Client
	model    string
	taskType string
}

// NewGenAIEngine creates an engine. apiKey is required.
func NewGenAIEngine(ctx context.Context, apiKey, model, taskType string) (*GenAIEngine, error) {
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

	return &GenAIEngine{
		client:   client,
		model:    model,
		taskType: parseTaskType(taskType),
	}, nil
}

func parseTaskType(s string) string {
	switch s {
	case "RETRIEVAL_QUERY", "SEMANTIC_SIMILARITY", "QUESTION_ANSWERING":
		return s
	default:
		return "RETRIEVAL_DOCUMENT"
	}
}

// Embed embeds a single text.
func (e *GenAIEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := e.embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedBatch embeds texts in groups the API accepts.
func (e *GenAIEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += genaiBatchLimit {
		end := min(start+genaiBatchLimit, len(texts))
		vs, err := e.embed(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embed texts %d-%d: %w", start, end-1, err)
		}
		out = append(out, vs...)
	}
	return out, nil
}

func (e *GenAIEngine) embed(ctx context.Context, texts []string) ([][]float32, error) {
	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	result, err := e.client.Models.EmbedContent(ctx, e.model, contents, &genai.EmbedContentConfig{
		TaskType:             e.taskType,
		OutputDimensionality: genai.Ptr[int32](genaiDimensions),
	})
	if err != nil {
		return nil, fmt.Errorf("GenAI embed: %w", err)
	}
	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("GenAI returned %d embeddings for %d texts", len(result.Embeddings), len(texts))
	}

	out := make([][]float32, len(texts))
	for i, emb := range result.Embeddings {
		out[i] = emb.Values
	}
	return out, nil
}

func (e *GenAIEngine) Dimensions() int { return genaiDimensions }

func (e *GenAIEngine) Name() string { return "genai:" + e.model }
