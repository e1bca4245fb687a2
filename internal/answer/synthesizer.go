// Package answer composes a grounded prompt from retrieved passages and asks
// the chat model for a reply.
package answer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ragqa/internal/domain"
	"ragqa/internal/logger"
	"ragqa/internal/metrics"
)

// Fallback is returned whenever the chat model cannot produce an answer.
const Fallback = "error generating answer"

// NoReferences stands in for the reference block when nothing was retrieved.
const NoReferences = "(no relevant reference material found)"

// CannotAnswer is the phrase the model is told to use when the references
// do not cover the question.
const CannotAnswer = "I cannot answer based on the available material"

const systemPrompt = `You are a company knowledge assistant. Answer the user's question using the reference material provided.

Rules:
1. If the references contain relevant content, base your answer on it.
2. If there is no relevant reference material, say clearly: "` + CannotAnswer + `".
3. Mark which reference each piece of information comes from.
4. Keep the answer accurate, concise and professional.`

const userTemplate = `Answer my question using the following reference material:

[References]
%s

[Question]
%s`

type Synthesizer struct {
	model   domain.ChatModel
	timeout time.Duration
	log     logger.Logger
	metrics *metrics.Recorder
}

type Option func(*Synthesizer)

// WithTimeout bounds each chat call.
func WithTimeout(d time.Duration) Option { return func(s *Synthesizer) { s.timeout = d } }

func WithLogger(l logger.Logger) Option { return func(s *Synthesizer) { s.log = l } }

func WithMetrics(m *metrics.Recorder) Option { return func(s *Synthesizer) { s.metrics = m } }

func New(model domain.ChatModel, opts ...Option) *Synthesizer {
	s := &Synthesizer{model: model, log: logger.Discard()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BuildReferences renders passages as numbered reference entries in order.
func BuildReferences(passages []domain.RetrievedPassage) string {
	if len(passages) == 0 {
		return NoReferences
	}
	entries := make([]string, len(passages))
	for i, p := range passages {
		entries[i] = fmt.Sprintf("[Reference %d] (similarity: %.2f%%)\n%s", i+1, p.Similarity*100, p.Content)
	}
	return strings.Join(entries, "\n\n")
}

// Messages returns the system and user turns sent to the model.
func Messages(query string, passages []domain.RetrievedPassage) []domain.Message {
	return []domain.Message{
		{Role: domain.RoleSystem, Content: systemPrompt},
		{Role: domain.RoleUser, Content: fmt.Sprintf(userTemplate, BuildReferences(passages), query)},
	}
}

// Synthesize never fails: any model error or timeout yields Fallback.
func (s *Synthesizer) Synthesize(ctx context.Context, query string, passages []domain.RetrievedPassage) string {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	reply, err := s.model.Chat(ctx, Messages(query, passages))
	if err != nil {
		s.log.Warn("generation failed", "model", s.model.Name(), "err", err)
		s.metrics.GenerationFailed()
		return Fallback
	}
	return reply
}
