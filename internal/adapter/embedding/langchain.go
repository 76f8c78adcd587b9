package embedding

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// LangChainEmbedder adapts a langchaingo embedder to port.Embedder.
type LangChainEmbedder struct {
	embedder  embeddings.Embedder
	model     string
	dimension int
}

// NewLangChainEmbedder wraps any langchaingo embedding client.
func NewLangChainEmbedder(client embeddings.EmbedderClient, model string, dimension int) (*LangChainEmbedder, error) {
	e, err := embeddings.NewEmbedder(client)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}
	return &LangChainEmbedder{embedder: e, model: model, dimension: dimension}, nil
}

// NewGoogleAIEmbedder embeds through the Gemini API.
func NewGoogleAIEmbedder(ctx context.Context, apiKey, model string, dimension int) (*LangChainEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("googleai embedder: API key is empty")
	}
	client, err := googleai.New(ctx,
		googleai.WithAPIKey(apiKey),
		googleai.WithDefaultEmbeddingModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("creating googleai client: %w", err)
	}
	return NewLangChainEmbedder(client, model, dimension)
}

// NewOllamaEmbedder embeds through a local Ollama server.
func NewOllamaEmbedder(model, serverURL string, dimension int) (*LangChainEmbedder, error) {
	opts := []ollama.Option{ollama.WithModel(model)}
	if serverURL != "" {
		opts = append(opts, ollama.WithServerURL(serverURL))
	}
	client, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating ollama client: %w", err)
	}
	return NewLangChainEmbedder(client, model, dimension)
}

// NewOpenAIEmbedder embeds through an OpenAI-compatible /embeddings endpoint.
// An empty baseURL means api.openai.com; dimension 0 picks the known size for
// model.
func NewOpenAIEmbedder(apiKey, model, baseURL string, dimension int) (*LangChainEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai embedder: API key is empty")
	}
	opts := []openai.Option{
		openai.WithToken(apiKey),
		openai.WithEmbeddingModel(model),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating openai client: %w", err)
	}
	if dimension <= 0 {
		dimension = openAIDimension(model)
	}
	return NewLangChainEmbedder(client, model, dimension)
}

func openAIDimension(model string) int {
	switch model {
	case "text-embedding-3-large":
		return 3072
	case "nomic-embed-text":
		return 768
	case "jina-embeddings-v3", "mxbai-embed-large":
		return 1024
	default:
		return 1536
	}
}

func (e *LangChainEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.embedder.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embedding text: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embedding text: provider returned %d vectors for 1 input", len(vecs))
	}
	return vecs[0], nil
}

func (e *LangChainEmbedder) Dimension() int {
	return e.dimension
}

func (e *LangChainEmbedder) ModelName() string {
	return e.model
}
