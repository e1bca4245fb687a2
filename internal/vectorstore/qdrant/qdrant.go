package qdrant

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"ragqa/internal/domain"
)

// pointNamespace scopes the deterministic point IDs derived from chunk IDs.
var pointNamespace = uuid.MustParse("5b0f6c1e-2f7d-4c55-9b1e-6a7c1d0e8f42")

// Storage is a minimal REST client to Qdrant.
// It always uses cosine distance and owns a single collection.
type Storage struct {
	client     *resty.Client
	collection string
	dimension  int
}

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

type point struct {
	ID      string         `json:"id"`
	Vector  []float64      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

type searchResponse struct {
	Result []struct {
		Score   float64 `json:"score"`
		Payload struct {
			ChunkIndex int    `json:"chunk_index"`
			Text       string `json:"text"`
		} `json:"payload"`
	} `json:"result"`
}

func NewStorage(cfg Config) *Storage {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	client := resty.New().
		SetBaseURL(cfg.URL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		client.SetHeader("api-key", cfg.APIKey)
	}
	return &Storage{client: client, collection: cfg.Collection}
}

func (s *Storage) Name() string { return s.collection }

// SharedCollection is always true: the collection lives on the server.
func (s *Storage) SharedCollection() bool { return true }

// PointID maps a chunk ID to the UUID Qdrant stores it under.
func PointID(chunkID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(chunkID)).String()
}

// Init deletes the collection if present and recreates it empty.
func (s *Storage) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid dimension %d", dimension)
	}
	if err := s.Clear(ctx); err != nil {
		return err
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	resp, err := s.client.R().SetContext(ctx).SetBody(body).Put(s.collectionPath())
	if err = check("create collection", resp, err); err != nil {
		return err
	}
	s.dimension = dimension
	return nil
}

func (s *Storage) Upsert(ctx context.Context, chunks []domain.EmbeddedChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	points := make([]point, len(chunks))
	for i, c := range chunks {
		if s.dimension != 0 && len(c.Vector) != s.dimension {
			return fmt.Errorf("%w: chunk %d has %d dims, want %d", domain.ErrDimensionMismatch, c.Index, len(c.Vector), s.dimension)
		}
		points[i] = point{
			ID:     PointID(c.ID()),
			Vector: c.Vector,
			Payload: map[string]any{
				"chunk_id":    c.ID(),
				"chunk_index": c.Index,
				"text":        c.Content,
			},
		}
	}
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParam("wait", "true").
		SetBody(map[string]any{"points": points}).
		Put(s.collectionPath() + "/points")
	return check("upsert points", resp, err)
}

// Search converts Qdrant's cosine similarity score into a distance. Ties are
// re-sorted by chunk index since Qdrant does not guarantee an order for them.
func (s *Storage) Search(ctx context.Context, vector []float64, topK int) ([]domain.Hit, error) {
	if s.dimension != 0 && len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: query has %d dims, want %d", domain.ErrDimensionMismatch, len(vector), s.dimension)
	}
	if topK <= 0 {
		return nil, nil
	}
	var out searchResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"vector":       vector,
			"limit":        topK,
			"with_payload": true,
		}).
		SetResult(&out).
		ForceContentType("application/json").
		Post(s.collectionPath() + "/points/search")
	if err = check("search", resp, err); err != nil {
		return nil, err
	}
	hits := make([]domain.Hit, 0, len(out.Result))
	for _, r := range out.Result {
		hits = append(hits, domain.Hit{
			Content:    r.Payload.Text,
			ChunkIndex: r.Payload.ChunkIndex,
			Distance:   max(0, 1-r.Score),
		})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Distance == hits[j].Distance {
			return hits[i].ChunkIndex < hits[j].ChunkIndex
		}
		return hits[i].Distance < hits[j].Distance
	})
	return hits, nil
}

// Clear drops the collection. A missing collection is not an error.
func (s *Storage) Clear(ctx context.Context) error {
	resp, err := s.client.R().SetContext(ctx).Delete(s.collectionPath())
	if err == nil && resp.StatusCode() == http.StatusNotFound {
		return nil
	}
	return check("delete collection", resp, err)
}

func (s *Storage) collectionPath() string {
	return "/collections/" + s.collection
}

func check(op string, resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("qdrant %s: %w", op, err)
	}
	if resp.IsError() {
		return fmt.Errorf("qdrant %s failed: %s: %s", op, resp.Status(), resp.String())
	}
	return nil
}
