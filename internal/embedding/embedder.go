// Package embedding selects the text embedder configured for the pipeline.
package embedding

import (
	"fmt"
	"time"

	"ragqa/internal/config"
	"ragqa/internal/domain"
	"ragqa/internal/embedding/ollama"
	"ragqa/internal/embedding/openai"
	"ragqa/internal/embedding/tfidf"
)

// New builds the embedder described by cfg.
func New(cfg config.EmbedderConfig) (domain.Embedder, error) {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	switch cfg.Type {
	case "ollama", "":
		oc := cfg.Ollama
		if oc == nil {
			oc = &config.OllamaConfig{}
		}
		return ollama.NewEmbedder(ollama.Config{
			BaseURL: oc.BaseURL,
			Model:   oc.Model,
			Timeout: timeout,
		}), nil
	case "openai":
		if cfg.OpenAI == nil {
			return nil, fmt.Errorf("openai embedder config missing")
		}
		return openai.NewEmbedder(openai.Config{
			BaseURL:   cfg.OpenAI.BaseURL,
			APIKeyEnv: cfg.OpenAI.APIKeyEnv,
			Model:     cfg.OpenAI.Model,
			Timeout:   timeout,
		})
	case "tfidf":
		return tfidf.NewEmbedder(), nil
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Type)
	}
}
