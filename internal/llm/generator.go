// internal/llm/generator.go
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/javajoker/rfp-backend/internal/config"
)

// Decoding parameters shared by every provider.
const (
	Temperature     = 0.7
	TopP            = 0.95
	TopK            = 40
	MaxOutputTokens = 8192
)

var ErrNotConfigured = errors.New("AI provider is not configured")

// Generator submits a text prompt to a generative model and returns its text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Name() string
}

// NewGenerator picks the provider named in cfg.
func NewGenerator(ctx context.Context, cfg config.AIConfig) (Generator, error) {
	switch cfg.Provider {
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			return unconfigured{name: "gemini", reason: "GEMINI_API_KEY is not set"}, nil
		}
		return NewGeminiGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	case "ollama":
		return NewOllamaGenerator(cfg.OllamaBaseURL, cfg.OllamaModel, nil), nil
	default:
		return nil, fmt.Errorf("unsupported AI provider %q", cfg.Provider)
	}
}

// Close releases provider resources when the generator holds any.
func Close(g Generator) error {
	if c, ok := g.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

// unconfigured keeps the API serving CRUD routes when no model credentials
// are present; every generation attempt fails.
type unconfigured struct {
	name   string
	reason string
}

func (u unconfigured) Generate(context.Context, string) (string, error) {
	return "", fmt.Errorf("%w: %s", ErrNotConfigured, u.reason)
}

func (u unconfigured) Name() string {
	return u.name
}
