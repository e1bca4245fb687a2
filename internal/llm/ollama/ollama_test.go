package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragqa/internal/domain"
)

func TestChatModel(t *testing.T) {
	t.Run("ShouldSendMessagesInOrder", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/chat", r.URL.Path)
			var req chatRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.False(t, req.Stream)
			require.Len(t, req.Messages, 2)
			assert.Equal(t, "system", req.Messages[0].Role)
			assert.Equal(t, "user", req.Messages[1].Role)
			assert.Equal(t, "how many leave days?", req.Messages[1].Content)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"Fifteen."},"done":true}`))
		}))
		defer srv.Close()

		m := NewChatModel(Config{BaseURL: srv.URL})
		reply, err := m.Chat(context.Background(), []domain.Message{
			{Role: domain.RoleSystem, Content: "be brief"},
			{Role: domain.RoleUser, Content: "how many leave days?"},
		})
		require.NoError(t, err)
		assert.Equal(t, "Fifteen.", reply)
		assert.Equal(t, "ollama/qwen2:0.5b", m.Name())
	})

	t.Run("ShouldWrapFailuresAsGenerationErrors", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer srv.Close()

		_, err := NewChatModel(Config{BaseURL: srv.URL}).Chat(context.Background(), nil)
		require.ErrorIs(t, err, domain.ErrGeneration)
	})
	t.Run("ShouldRejectEmptyReply", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":""},"done":true}`))
		}))
		defer srv.Close()

		reply, err := NewChatModel(Config{BaseURL: srv.URL}).Chat(context.Background(), []domain.Message{
			{Role: domain.RoleUser, Content: "how many leave days?"},
		})
		require.ErrorIs(t, err, domain.ErrGeneration)
		assert.Empty(t, reply)
	})
}
