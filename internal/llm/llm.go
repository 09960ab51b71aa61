// Package llm sends composed prompts to a language model.
package llm

import (
	"context"
	"fmt"

	"trackqa/internal/registry"
)

// Model answers a prompt.
type Model interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Name() string
}

// Config selects and configures a model provider.
type Config struct {
	Provider string `mapstructure:"provider"` // ollama or genai.
	Model    string `mapstructure:"model"`
	Endpoint string `mapstructure:"endpoint"`
	APIKey   string `mapstructure:"api_key"`
}

// DefaultConfig targets deepseek-r1 on a local Ollama server.
func DefaultConfig() Config {
	return Config{
		Provider: "ollama",
		Model:    DefaultOllamaModel,
		Endpoint: DefaultOllamaEndpoint,
	}
}

// Factory builds a model client from configuration.
type Factory func(ctx context.Context, cfg Config) (Model, error)

var providers = registry.New[Factory]("model provider")

func init() {
	providers.Register("ollama", func(_ context.Context, cfg Config) (Model, error) {
		return NewOllama(cfg.Endpoint, cfg.Model), nil
	})
	providers.Register("genai", func(ctx context.Context, cfg Config) (Model, error) {
		return NewGenAI(ctx, cfg.APIKey, cfg.Model)
	})
}

// Providers lists the registered provider names.
func Providers() []string {
	return providers.Names()
}

// New builds the client named by cfg.Provider.
func New(ctx context.Context, cfg Config) (Model, error) {
	f, err := providers.Lookup(cfg.Provider)
	if err != nil {
		return nil, err
	}
	m, err := f(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create %s model: %w", cfg.Provider, err)
	}
	return m, nil
}
