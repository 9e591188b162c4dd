package llm

import (
	"fmt"
	"strings"

	"github.com/ppiankov/symptomlog/internal/model"
)

// NewProvider creates the configured provider. An empty provider name
// returns nil, nil: recaps are disabled.
func NewProvider(config Config) (Provider, error) {
	switch strings.ToLower(config.Provider) {
	case "openai":
		return NewOpenAIProvider(config)

	case "ollama":
		return NewOllamaProvider(config)

	case "":
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai, ollama)", config.Provider)
	}
}

// ConfigFromModel converts the application config
func ConfigFromModel(cfg model.LLMConfig, source model.SourceConfig) Config {
	return Config{
		Provider:   cfg.Provider,
		Model:      cfg.Model,
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Timeout:    cfg.Timeout,
		MaxTokens:  cfg.MaxTokens,
		Strict:     cfg.Strict,
		HTTPProxy:  source.HTTPProxy,
		HTTPSProxy: source.HTTPSProxy,
	}
}
