// Package llm adapts langchaingo chat models to port.LLM.
package llm

import (
	"context"
	"fmt"
	"os"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"paperrag/config"
)

// LangChain generates text with any langchaingo model.
type LangChain struct {
	model llms.Model
	name  string
	opts  []llms.CallOption
}

func Wrap(model llms.Model, name string, opts ...llms.CallOption) *LangChain {
	return &LangChain{model: model, name: name, opts: opts}
}

// New builds the model selected by cfg.Provider.
func New(ctx context.Context, cfg config.LLMConfig) (*LangChain, error) {
	var (
		model llms.Model
		err   error
	)

	switch cfg.Provider {
	case "googleai":
		key := os.Getenv(cfg.APIKeyEnv)
		if key == "" {
			return nil, fmt.Errorf("API key not found in environment variable: %s", cfg.APIKeyEnv)
		}
		model, err = googleai.New(ctx,
			googleai.WithAPIKey(key),
			googleai.WithDefaultModel(cfg.Model),
		)
	case "ollama":
		opts := []ollama.Option{ollama.WithModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
		}
		model, err = ollama.New(opts...)
	case "openai":
		key := os.Getenv(cfg.APIKeyEnv)
		if key == "" {
			return nil, fmt.Errorf("API key not found in environment variable: %s", cfg.APIKeyEnv)
		}
		opts := []openai.Option{openai.WithModel(cfg.Model), openai.WithToken(key)}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		model, err = openai.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("creating %s client: %w", cfg.Provider, err)
	}

	return Wrap(model, cfg.Model), nil
}

func (l *LangChain) Generate(ctx context.Context, prompt string) (string, error) {
	out, err := llms.GenerateFromSinglePrompt(ctx, l.model, prompt, l.opts...)
	if err != nil {
		return "", fmt.Errorf("generate with %s: %w", l.name, err)
	}
	return out, nil
}

func (l *LangChain) ModelName() string {
	return l.name
}
