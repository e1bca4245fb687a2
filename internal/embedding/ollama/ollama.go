// Package ollama provides an embedder backed by a local Ollama server.
package ollama

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"ragqa/internal/domain"
)

var _ domain.Embedder = (*Embedder)(nil)

const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "qwen2:0.5b"
	DefaultTimeout = 30 * time.Second
)

// Config configures the Ollama embedder.
type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Embedder calls Ollama's /api/embeddings endpoint.
type Embedder struct {
	client *resty.Client
	model  string
}

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float64 `json:"embedding"`
}

// NewEmbedder creates an embedder, filling unset fields with defaults.
func NewEmbedder(cfg Config) *Embedder {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json")
	return &Embedder{client: client, model: cfg.Model}
}

func (e *Embedder) Name() string { return "ollama/" + e.model }

// Prepare is a no-op; the model is already trained.
func (e *Embedder) Prepare([]string) error { return nil }

// Embed returns the embedding vector for text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float64, error) {
	var out embedResponse
	resp, err := e.client.R().
		SetContext(ctx).
		SetBody(embedRequest{Model: e.model, Prompt: text}).
		SetResult(&out).
		ForceContentType("application/json").
		Post("/api/embeddings")
	if err != nil {
		return nil, fmt.Errorf("%w: ollama request: %w", domain.ErrEmbedding, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: ollama status %d: %s", domain.ErrEmbedding, resp.StatusCode(), resp.String())
	}
	if len(out.Embedding) == 0 {
		return nil, fmt.Errorf("%w: ollama returned an empty embedding", domain.ErrEmbedding)
	}
	return out.Embedding, nil
}
