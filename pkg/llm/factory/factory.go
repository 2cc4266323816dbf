package factory

import (
	"fmt"

	"brainstorm-be/pkg/llm"
	"brainstorm-be/pkg/llm/ollama"
	"brainstorm-be/pkg/llm/openai"
)

type Config struct {
	Provider string // "ollama" or "openai"
	Model    string
	BaseURL  string
	APIKey   string
}

func NewLLMProvider(cfg Config) (llm.LLMProvider, error) {
	switch cfg.Provider {
	case "ollama":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		p := ollama.NewOllamaProvider(baseURL, cfg.Model)
		p.Format = "json"
		return p, nil
	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai provider requires an API key")
		}
		p := openai.NewOpenAIProvider(cfg.APIKey, cfg.BaseURL, cfg.Model)
		p.JSONMode = true
		return p, nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
