// Package ollama provides a chat model backed by a local Ollama server.
package ollama

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"ragqa/internal/domain"
)

var _ domain.ChatModel = (*ChatModel)(nil)

const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "qwen2:0.5b"
	DefaultTimeout = 120 * time.Second
)

// Config configures the Ollama chat model.
type Config struct {
	BaseURL     string
	Model       string
	Timeout     time.Duration
	Temperature float64
}

// ChatModel calls Ollama's non-streaming /api/chat endpoint.
type ChatModel struct {
	client      *resty.Client
	model       string
	temperature float64
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type options struct {
	Temperature float64 `json:"temperature,omitempty"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  *options      `json:"options,omitempty"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`
}

// NewChatModel creates a chat model, filling unset fields with defaults.
func NewChatModel(cfg Config) *ChatModel {
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
	return &ChatModel{client: client, model: cfg.Model, temperature: cfg.Temperature}
}

func (m *ChatModel) Name() string { return "ollama/" + m.model }

// Chat sends the conversation and returns the assistant reply.
func (m *ChatModel) Chat(ctx context.Context, messages []domain.Message) (string, error) {
	req := chatRequest{Model: m.model, Messages: make([]chatMessage, len(messages))}
	for i, msg := range messages {
		req.Messages[i] = chatMessage{Role: msg.Role, Content: msg.Content}
	}
	if m.temperature > 0 {
		req.Options = &options{Temperature: m.temperature}
	}
	var out chatResponse
	resp, err := m.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		ForceContentType("application/json").
		Post("/api/chat")
	if err != nil {
		return "", fmt.Errorf("%w: ollama request: %w", domain.ErrGeneration, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("%w: ollama status %d: %s", domain.ErrGeneration, resp.StatusCode(), resp.String())
	}
	if strings.TrimSpace(out.Message.Content) == "" {
		return "", fmt.Errorf("%w: ollama returned an empty reply", domain.ErrGeneration)
	}
	return out.Message.Content, nil
}
