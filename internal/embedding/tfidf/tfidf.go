// Package tfidf is an offline embedder that needs no model server. It builds
// its vocabulary from the chunks it is prepared with, so it only fits corpora
// that are known before the first query.
package tfidf

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"slices"
	"strings"
	"sync"

	"ragqa/internal/domain"
)

var _ domain.Embedder = (*Embedder)(nil)

var (
	termRe    = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`)
	stopwords = toSet(
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by",
		"with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those",
		"from", "up", "down", "over", "under", "than", "so", "such", "into", "about", "between", "through",
		"during", "before", "after", "out", "off", "same", "too", "very", "can", "will", "just", "should", "now",
	)
)

// model is an immutable fitted vocabulary; Prepare swaps in a new one.
type model struct {
	index map[string]int
	idf   []float64
}

// Embedder is a TF-IDF vectoriser with L2-normalised output. Its dimension is
// the vocabulary size of the last prepared corpus.
type Embedder struct {
	mu sync.RWMutex
	m  *model
}

func NewEmbedder() *Embedder { return &Embedder{} }

func (e *Embedder) Name() string { return "tfidf" }

// CorpusBound is true: every Prepare builds a new vocabulary.
func (e *Embedder) CorpusBound() bool { return true }

// Prepare fits smoothed IDF weights, ln((1+n)/(1+df))+1, over corpus.
func (e *Embedder) Prepare(corpus []string) error {
	if len(corpus) == 0 {
		return errors.New("tfidf: empty corpus")
	}
	df := map[string]int{}
	for _, text := range corpus {
		for term := range termCounts(text) {
			df[term]++
		}
	}
	if len(df) == 0 {
		return errors.New("tfidf: corpus has no indexable terms")
	}
	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	slices.Sort(terms)

	m := &model{index: make(map[string]int, len(terms)), idf: make([]float64, len(terms))}
	n := float64(len(corpus))
	for i, term := range terms {
		m.index[term] = i
		m.idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}
	e.mu.Lock()
	e.m = m
	e.mu.Unlock()
	return nil
}

// Embed returns a unit vector, or a zero vector when text shares no terms
// with the vocabulary.
func (e *Embedder) Embed(_ context.Context, text string) ([]float64, error) {
	e.mu.RLock()
	m := e.m
	e.mu.RUnlock()
	if m == nil {
		return nil, fmt.Errorf("%w: tfidf embedder not prepared", domain.ErrEmbedding)
	}

	vec := make([]float64, len(m.idf))
	counts := termCounts(text)
	total := 0
	for term, c := range counts {
		if _, ok := m.index[term]; ok {
			total += c
		}
	}
	if total == 0 {
		return vec, nil
	}
	sumSq := 0.0
	for term, c := range counts {
		i, ok := m.index[term]
		if !ok {
			continue
		}
		vec[i] = float64(c) / float64(total) * m.idf[i]
		sumSq += vec[i] * vec[i]
	}
	norm := math.Sqrt(sumSq)
	for i := range vec {
		vec[i] /= norm
	}
	return vec, nil
}

// termCounts lowercases text and counts its non-stopword terms.
func termCounts(text string) map[string]int {
	counts := map[string]int{}
	for _, t := range termRe.FindAllString(strings.ToLower(text), -1) {
		if _, stop := stopwords[t]; !stop {
			counts[t]++
		}
	}
	return counts
}

func toSet(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
