// Package embedding turns document text into vectors for the index.
package embedding

import (
	"context"
	"fmt"

	"trackqa/internal/registry"
)

// Engine produces embeddings.
type Engine interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	// Dimensions is the vector length the engine's model is expected to return.
	Dimensions() int
	Name() string
}

// Config selects and configures an engine.
type Config struct {
	Provider string `mapstructure:"provider"` // ollama or genai.
	Model    string `mapstructure:"model"`
	Endpoint string `mapstructure:"endpoint"` // Ollama base URL.
	APIKey   string `mapstructure:"api_key"`
	TaskType string `mapstructure:"task_type"` // GenAI task type.
}

// DefaultConfig targets a local Ollama server.
func DefaultConfig() Config {
	return Config{
		Provider: "ollama",
		Model:    DefaultOllamaModel,
		Endpoint: DefaultOllamaEndpoint,
	}
}

// Factory builds an engine from configuration.
type Factory func(ctx context.Context, cfg Config) (Engine, error)

var providers = registry.New[Factory]("embedding provider")

func init() {
	providers.Register("ollama", func(_ context.Context, cfg Config) (Engine, error) {
		return NewOllamaEngine(cfg.Endpoint, cfg.Model)
	})
	providers.Register("genai", func(ctx context.Context, cfg Config) (Engine, error) {
		return NewGenAIEngine(ctx, cfg.APIKey, cfg.Model, cfg.TaskType)
	})
}

// Providers lists the registered provider names.
func Providers() []string {
	return providers.Names()
}

// New builds the engine named by cfg.Provider.
func New(ctx context.Context, cfg Config) (Engine, error) {
	f, err := providers.Lookup(cfg.Provider)
	if err != nil {
		return nil, err
	}
	e, err := f(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create %s embedding engine: %w", cfg.Provider, err)
	}
	return e, nil
}
