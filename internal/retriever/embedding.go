package retriever

import (
	"fmt"

	chromem "github.com/philippgille/chromem-go"
)

// Embedding providers.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// EmbeddingConfig selects the embedding backend. The index and every query
// must use the same provider and model.
type EmbeddingConfig struct {
	Provider string
	Model    string
	BaseURL  string
	APIKey   string
}

// NewEmbeddingFunc returns the chromem embedding function for cfg.
func NewEmbeddingFunc(cfg EmbeddingConfig) (chromem.EmbeddingFunc, error) {
	switch cfg.Provider {
	case "", ProviderOllama:
		model := cfg.Model
		if model == "" {
			model = "all-minilm"
		}
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434/api"
		}
		return chromem.NewEmbeddingFuncOllama(model, baseURL), nil
	case ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("%w: embedding API key not configured", ErrIndexUnavailable)
		}
		model := cfg.Model
		if model == "" {
			model = "text-embedding-3-small"
		}
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "https://api.openai.com/v1"
		}
		normalized := true
		return chromem.NewEmbeddingFuncOpenAICompat(baseURL, cfg.APIKey, model, &normalized), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}
