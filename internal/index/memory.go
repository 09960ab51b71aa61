package index

import (
	"context"
	"fmt"
	"slices"

	"gonum.org/v1/gonum/floats"

	"trackqa/internal/document"
	"trackqa/internal/embedding"
)

func init() {
	kinds.Register("memory", func(_ context.Context, _ Config, engine embedding.Engine) (Index, error) {
		return NewMemoryIndex(engine), nil
	})
}

// MemoryIndex keeps documents and their embeddings in process and ranks by
// brute-force cosine similarity.
type MemoryIndex struct {
	engine embedding.Engine
	docs   []document.Document
	vecs   [][]float64
	norms  []float64
}

// NewMemoryIndex creates an empty index embedding with engine.
func NewMemoryIndex(engine embedding.Engine) *MemoryIndex {
	return &MemoryIndex{engine: engine}
}

func (m *MemoryIndex) dims() int {
	if len(m.vecs) == 0 {
		return 0
	}
	return len(m.vecs[0])
}

// Add embeds and stores docs.
func (m *MemoryIndex) Add(ctx context.Context, docs []document.Document) error {
	if len(docs) == 0 {
		return nil
	}
	vecs, err := embedDocuments(ctx, m.engine, docs, m.dims())
	if err != nil {
		return err
	}
	for i, v := range vecs {
		f := toFloat64(v)
		m.docs = append(m.docs, docs[i].Clone())
		m.vecs = append(m.vecs, f)
		m.norms = append(m.norms, floats.Norm(f, 2))
	}
	return nil
}

// Search ranks every stored document against query. Ties keep insertion order.
func (m *MemoryIndex) Search(ctx context.Context, query string, k int) ([]Hit, error) {
	if k <= 0 || len(m.docs) == 0 {
		return nil, nil
	}
	qv, err := m.engine.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query with %s: %w", m.engine.Name(), err)
	}
	if len(qv) != m.dims() {
		return nil, fmt.Errorf("%w: query has %d dimensions, want %d", ErrDimensions, len(qv), m.dims())
	}
	q := toFloat64(qv)
	qn := floats.Norm(q, 2)

	hits := make([]Hit, len(m.docs))
	for i, v := range m.vecs {
		hits[i] = Hit{Document: m.docs[i], Score: cosine(q, v, qn, m.norms[i])}
	}
	slices.SortStableFunc(hits, func(a, b Hit) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})
	return hits[:min(k, len(hits))], nil
}

// Documents returns the stored documents in insertion order.
func (m *MemoryIndex) Documents(context.Context) ([]document.Document, error) {
	return slices.Clone(m.docs), nil
}

func (m *MemoryIndex) Close() error { return nil }

func cosine(a, b []float64, na, nb float64) float64 {
	if na == 0 || nb == 0 {
		return 0
	}
	return floats.Dot(a, b) / (na * nb)
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}
