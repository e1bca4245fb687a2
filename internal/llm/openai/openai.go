// Package openai provides a chat model for OpenAI-compatible APIs.
package openai

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"ragqa/internal/domain"
)

var _ domain.ChatModel = (*ChatModel)(nil)

// Config configures the OpenAI-compatible chat client.
type Config struct {
	BaseURL     string
	APIKeyEnv   string
	Model       string
	Timeout     time.Duration
	Temperature float64
}

// ChatModel wraps the chat completions endpoint.
type ChatModel struct {
	client      *goopenai.Client
	model       string
	temperature float32
}

// NewChatModel creates a client using the API key found in cfg.APIKeyEnv.
func NewChatModel(cfg Config) (*ChatModel, error) {
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = "OPENAI_API_KEY"
	}
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.Model == "" {
		cfg.Model = goopenai.GPT4oMini
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	clientCfg := goopenai.DefaultConfig(key)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	return &ChatModel{
		client:      goopenai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: float32(cfg.Temperature),
	}, nil
}

func (m *ChatModel) Name() string { return "openai/" + m.model }

// Chat sends the conversation and returns the first choice.
func (m *ChatModel) Chat(ctx context.Context, messages []domain.Message) (string, error) {
	req := goopenai.ChatCompletionRequest{
		Model:       m.model,
		Messages:    make([]goopenai.ChatCompletionMessage, len(messages)),
		Temperature: m.temperature,
	}
	for i, msg := range messages {
		req.Messages[i] = goopenai.ChatCompletionMessage{Role: msg.Role, Content: msg.Content}
	}
	resp, err := m.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%w: openai: %w", domain.ErrGeneration, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: openai returned no choices", domain.ErrGeneration)
	}
	reply := resp.Choices[0].Message.Content
	if strings.TrimSpace(reply) == "" {
		return "", fmt.Errorf("%w: openai returned an empty reply", domain.ErrGeneration)
	}
	return reply, nil
}
