package chunker

import (
	"regexp"
	"strings"

	"ragqa/internal/domain"
)

// SentenceChunker groups sentences into chunks with a sentence overlap.
type SentenceChunker struct {
	sentencesPerChunk int
	overlapSentences  int
	splitter          *regexp.Regexp
}

func NewSentenceChunker(sentencesPerChunk, overlapSentences int) *SentenceChunker {
	if sentencesPerChunk <= 0 {
		sentencesPerChunk = 5
	}
	if overlapSentences < 0 || overlapSentences >= sentencesPerChunk {
		overlapSentences = 0
	}
	return &SentenceChunker{
		sentencesPerChunk: sentencesPerChunk,
		overlapSentences:  overlapSentences,
		splitter:          regexp.MustCompile(`(?m)(?U)([^.!?。！？]+[.!?。！？])`),
	}
}

func (c *SentenceChunker) Chunk(document domain.Document) ([]domain.Chunk, error) {
	sentences := c.sentences(document.Content)
	if len(sentences) == 0 {
		return nil, nil
	}
	var chunks []domain.Chunk
	step := c.sentencesPerChunk - c.overlapSentences
	for i := 0; i < len(sentences); i += step {
		end := min(i+c.sentencesPerChunk, len(sentences))
		text := strings.TrimSpace(strings.Join(sentences[i:end], " "))
		if text != "" {
			chunks = append(chunks, domain.Chunk{Content: text, Index: len(chunks)})
		}
		if end == len(sentences) {
			break
		}
	}
	return chunks, nil
}

func (c *SentenceChunker) sentences(text string) []string {
	raw := c.splitter.FindAllString(text, -1)
	out := make([]string, 0, len(raw)+1)
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	// Text after the last terminator would otherwise be lost.
	if idx := lastTerminator(text, raw); idx < len(text) {
		if tail := strings.TrimSpace(text[idx:]); tail != "" {
			out = append(out, tail)
		}
	}
	return out
}

func lastTerminator(text string, matches []string) int {
	if len(matches) == 0 {
		return 0
	}
	last := matches[len(matches)-1]
	pos := strings.LastIndex(text, last)
	if pos < 0 {
		return len(text)
	}
	return pos + len(last)
}
