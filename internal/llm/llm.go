// Package llm selects the generative chat model configured for the pipeline.
package llm

import (
	"fmt"
	"time"

	"ragqa/internal/config"
	"ragqa/internal/domain"
	"ragqa/internal/llm/ollama"
	"ragqa/internal/llm/openai"
)

// New builds the chat model described by cfg.
func New(cfg config.LLMConfig) (domain.ChatModel, error) {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	switch cfg.Type {
	case "ollama", "":
		oc := cfg.Ollama
		if oc == nil {
			oc = &config.OllamaConfig{}
		}
		return ollama.NewChatModel(ollama.Config{
			BaseURL:     oc.BaseURL,
			Model:       oc.Model,
			Timeout:     timeout,
			Temperature: cfg.Temperature,
		}), nil
	case "openai":
		if cfg.OpenAI == nil {
			return nil, fmt.Errorf("openai llm config missing")
		}
		return openai.NewChatModel(openai.Config{
			BaseURL:     cfg.OpenAI.BaseURL,
			APIKeyEnv:   cfg.OpenAI.APIKeyEnv,
			Model:       cfg.OpenAI.Model,
			Timeout:     timeout,
			Temperature: cfg.Temperature,
		})
	default:
		return nil, fmt.Errorf("unknown llm: %s", cfg.Type)
	}
}
