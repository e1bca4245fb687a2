package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, h http.Handler) (int, string) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return rec.Code, string(body)
}

func TestRecorder(t *testing.T) {
	t.Run("ShouldExposeRecordedValues", func(t *testing.T) {
		r := New()
		r.ObserveQuery(OutcomeAnswered, 120*time.Millisecond)
		r.ObserveQuery(OutcomeRejected, time.Millisecond)
		r.ObserveBuild(nil, 42, time.Second)
		r.ObserveBuild(errors.New("boom"), 0, time.Second)
		r.EmbedFailed("query")
		r.GenerationFailed()
		r.Retrieved(3)

		code, body := scrape(t, r.Handler())
		assert.Equal(t, http.StatusOK, code)
		assert.Contains(t, body, `ragqa_queries_total{outcome="answered"} 1`)
		assert.Contains(t, body, `ragqa_queries_total{outcome="rejected"} 1`)
		assert.Contains(t, body, `ragqa_index_builds_total{outcome="ok"} 1`)
		assert.Contains(t, body, `ragqa_index_builds_total{outcome="failed"} 1`)
		assert.Contains(t, body, "ragqa_indexed_chunks 42")
		assert.Contains(t, body, `ragqa_embedding_failures_total{stage="query"} 1`)
		assert.Contains(t, body, "ragqa_generation_failures_total 1")
	})

	t.Run("ShouldKeepRegistriesIndependent", func(t *testing.T) {
		a, b := New(), New()
		a.GenerationFailed()
		_, body := scrape(t, b.Handler())
		assert.Contains(t, body, "ragqa_generation_failures_total 0")
	})

	t.Run("ShouldTolerateNilRecorder", func(t *testing.T) {
		var r *Recorder
		assert.NotPanics(t, func() {
			r.ObserveQuery(OutcomeFailed, time.Second)
			r.ObserveBuild(nil, 1, time.Second)
			r.EmbedFailed("index")
			r.GenerationFailed()
			r.Retrieved(1)
		})
		code, _ := scrape(t, r.Handler())
		assert.Equal(t, http.StatusServiceUnavailable, code)
	})
}
