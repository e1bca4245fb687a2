package answer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragqa/internal/domain"
)

type stubModel struct {
	reply string
	err   error
	delay time.Duration
	got   []domain.Message
}

func (*stubModel) Name() string { return "stub" }

func (m *stubModel) Chat(ctx context.Context, msgs []domain.Message) (string, error) {
	m.got = msgs
	if m.delay > 0 {
		select {
		case <-ctx.Done():
			return "", errors.Join(domain.ErrGeneration, ctx.Err())
		case <-time.After(m.delay):
		}
	}
	return m.reply, m.err
}

func TestBuildReferences(t *testing.T) {
	t.Run("ShouldNumberPassagesInOrder", func(t *testing.T) {
		got := BuildReferences([]domain.RetrievedPassage{
			{Content: "A", Similarity: 0.8},
			{Content: "B", Similarity: 0.5},
		})
		assert.Equal(t, "[Reference 1] (similarity: 80.00%)\nA\n\n[Reference 2] (similarity: 50.00%)\nB", got)
		assert.Less(t, strings.Index(got, "80.00%"), strings.Index(got, "50.00%"))
	})

	t.Run("ShouldUseSentinelWhenEmpty", func(t *testing.T) {
		assert.Equal(t, NoReferences, BuildReferences(nil))
	})
}

func TestMessages(t *testing.T) {
	msgs := Messages("How many days of leave?", []domain.RetrievedPassage{{Content: "Twenty days.", Similarity: 1}})
	require.Len(t, msgs, 2)
	assert.Equal(t, domain.RoleSystem, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, CannotAnswer)
	assert.Equal(t, domain.RoleUser, msgs[1].Role)
	assert.Contains(t, msgs[1].Content, "[Reference 1] (similarity: 100.00%)\nTwenty days.")
	assert.True(t, strings.HasSuffix(msgs[1].Content, "How many days of leave?"))
}

func TestSynthesize(t *testing.T) {
	ctx := context.Background()

	t.Run("ShouldReturnModelReply", func(t *testing.T) {
		m := &stubModel{reply: "Twenty days [Reference 1]."}
		got := New(m).Synthesize(ctx, "leave?", []domain.RetrievedPassage{{Content: "Twenty days.", Similarity: 0.9}})
		assert.Equal(t, "Twenty days [Reference 1].", got)
		require.Len(t, m.got, 2)
	})

	t.Run("ShouldStillAskWithoutPassages", func(t *testing.T) {
		m := &stubModel{reply: CannotAnswer}
		got := New(m).Synthesize(ctx, "leave?", nil)
		assert.Equal(t, CannotAnswer, got)
		assert.Contains(t, m.got[1].Content, NoReferences)
	})

	t.Run("ShouldFallBackOnError", func(t *testing.T) {
		m := &stubModel{err: domain.ErrGeneration}
		assert.Equal(t, Fallback, New(m).Synthesize(ctx, "leave?", nil))
	})

	t.Run("ShouldFallBackOnTimeout", func(t *testing.T) {
		m := &stubModel{reply: "late", delay: time.Second}
		assert.Equal(t, Fallback, New(m, WithTimeout(10*time.Millisecond)).Synthesize(ctx, "leave?", nil))
	})
}
