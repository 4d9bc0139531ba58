package ai

import (
	"context"
	"strings"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

const defaultOllamaBaseURL = "http://localhost:11434"

type ollamaConfig struct {
	BaseURL string `json:"base_url"`
}

type ollamaProvider struct {
	baseURL string
}

func (p *ollamaProvider) Name() string {
	return "ollama"
}

func (p *ollamaProvider) Generate(ctx context.Context, model string, prompt string) (string, error) {
	llm, err := ollama.New(
		ollama.WithServerURL(p.baseURL),
		ollama.WithModel(model),
	)
	if err != nil {
		return "", err
	}
	res, err := llms.GenerateFromSinglePrompt(ctx, llm, prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(res), nil
}

func (p *ollamaProvider) Embed(ctx context.Context, model string, text string, taskType string) ([]float32, error) {
	_ = taskType
	llm, err := ollama.New(
		ollama.WithServerURL(p.baseURL),
		ollama.WithModel(model),
	)
	if err != nil {
		return nil, err
	}
	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, err
	}
	return embedder.EmbedQuery(ctx, text)
}

func createOllamaProvider(args interface{}) (IProvider, error) {
	cfg := &ollamaConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}
	return &ollamaProvider{baseURL: baseURL}, nil
}

func init() {
	Register("ollama", createOllamaProvider)
}
