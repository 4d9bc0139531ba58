package ai

import (
	"context"
	"strings"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

type openAIConfig struct {
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url"`
}

// openAIProvider talks to any OpenAI-compatible endpoint (OpenAI itself,
// OpenRouter, vLLM and friends) through langchaingo.
type openAIProvider struct {
	apiKey  string
	baseURL string
}

func (p *openAIProvider) Name() string {
	return "openai"
}

func (p *openAIProvider) Generate(ctx context.Context, model string, prompt string) (string, error) {
	if p.apiKey == "" {
		return "", ErrUnavailable
	}
	llm, err := openai.New(p.clientOptions(openai.WithModel(model))...)
	if err != nil {
		return "", err
	}
	res, err := llms.GenerateFromSinglePrompt(ctx, llm, prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(res), nil
}

func (p *openAIProvider) Embed(ctx context.Context, model string, text string, taskType string) ([]float32, error) {
	if p.apiKey == "" {
		return nil, ErrUnavailable
	}
	_ = taskType // the OpenAI embeddings API has no task type dimension
	llm, err := openai.New(p.clientOptions(openai.WithEmbeddingModel(model))...)
	if err != nil {
		return nil, err
	}
	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, err
	}
	return embedder.EmbedQuery(ctx, text)
}

func (p *openAIProvider) clientOptions(extra ...openai.Option) []openai.Option {
	opts := []openai.Option{
		openai.WithToken(strings.TrimPrefix(p.apiKey, "Bearer ")),
	}
	if p.baseURL != "" {
		opts = append(opts, openai.WithBaseURL(p.baseURL))
	}
	return append(opts, extra...)
}

func createOpenAIProvider(args interface{}) (IProvider, error) {
	cfg := &openAIConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	return &openAIProvider{
		apiKey:  strings.TrimSpace(cfg.APIKey),
		baseURL: strings.TrimSpace(cfg.BaseURL),
	}, nil
}

func init() {
	Register("openai", createOpenAIProvider)
}
