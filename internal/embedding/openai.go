package embedding

import (
	"context"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/hyperjump/docsage/internal/apperr"
)

// OpenAIEmbedder calls an OpenAI-compatible embeddings endpoint
// (OpenAI, Ollama, SiliconFlow, and similar). Every call is bounded by the
// configured timeout; a cut-off call surfaces as a Timeout error.
type OpenAIEmbedder struct {
	client     *openai.Client
	model      string
	dimensions int
	timeout    time.Duration
}

// OpenAIOptions configures an OpenAIEmbedder.
type OpenAIOptions struct {
	APIKey     string
	BaseURL    string // empty = api.openai.com
	Model      string
	Dimensions int
	Timeout    time.Duration
}

// NewOpenAIEmbedder creates an embedder for an OpenAI-compatible endpoint.
func NewOpenAIEmbedder(opts OpenAIOptions) (*OpenAIEmbedder, error) {
	if opts.Model == "" {
		return nil, apperr.New(apperr.KindInvalidConfiguration, "embedding model is required")
	}
	if opts.Dimensions <= 0 {
		return nil, apperr.New(apperr.KindInvalidConfiguration, "embedding dimensions must be positive")
	}
	clientConfig := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		clientConfig.BaseURL = opts.BaseURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &OpenAIEmbedder{
		client:     openai.NewClientWithConfig(clientConfig),
		model:      opts.Model,
		dimensions: opts.Dimensions,
		timeout:    timeout,
	}, nil
}

// Embed returns the embedding for a single text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch returns one embedding per input text, in input order.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      texts,
		Model:      openai.EmbeddingModel(e.model),
		Dimensions: e.dimensions,
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindEmbeddingProvider, "create embeddings", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, apperr.Newf(apperr.KindEmbeddingProvider, "provider returned %d embeddings for %d texts", len(resp.Data), len(texts))
	}
	vectors := make([][]float32, len(resp.Data))
	for i, data := range resp.Data {
		if len(data.Embedding) != e.dimensions {
			return nil, apperr.Newf(apperr.KindEmbeddingMismatch, "provider returned %d dimensions, expected %d", len(data.Embedding), e.dimensions)
		}
		vectors[i] = data.Embedding
	}
	return vectors, nil
}

// Dimensions returns the embedding dimension.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op; the underlying HTTP client holds no resources.
func (e *OpenAIEmbedder) Close() error {
	return nil
}
