package synthesis

import (
	"context"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/hyperjump/docsage/internal/apperr"
)

// OpenAISynthesizer calls an OpenAI-compatible chat completions endpoint.
type OpenAISynthesizer struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
	timeout     time.Duration
}

// Options configures an OpenAISynthesizer.
type Options struct {
	APIKey      string
	BaseURL     string // empty = api.openai.com
	Model       string
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration
}

// NewOpenAISynthesizer creates a synthesizer for an OpenAI-compatible endpoint.
func NewOpenAISynthesizer(opts Options) (*OpenAISynthesizer, error) {
	if opts.Model == "" {
		return nil, apperr.New(apperr.KindInvalidConfiguration, "synthesis model is required")
	}
	clientConfig := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		clientConfig.BaseURL = opts.BaseURL
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &OpenAISynthesizer{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       opts.Model,
		maxTokens:   maxTokens,
		temperature: opts.Temperature,
		timeout:     timeout,
	}, nil
}

// Complete sends prompt as a single user message and returns the trimmed
// completion text. The call is bounded by the configured timeout.
func (s *OpenAISynthesizer) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		MaxTokens:   s.maxTokens,
		Temperature: s.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", apperr.Wrap(apperr.KindSynthesis, "chat completion", err)
	}
	if len(resp.Choices) == 0 {
		return "", apperr.New(apperr.KindSynthesis, "empty completion response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Close is a no-op; the underlying HTTP client holds no resources.
func (s *OpenAISynthesizer) Close() error {
	return nil
}
