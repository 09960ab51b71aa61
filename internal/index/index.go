// Package index stores embedded documents and answers similarity searches.
package index

import (
	"context"
	"errors"
	"fmt"

	"trackqa/internal/document"
	"trackqa/internal/embedding"
	"trackqa/internal/registry"
)

// DefaultK is the number of documents retrieved per question.
const DefaultK = 100

// ErrDimensions is returned when an engine returns vectors of differing length.
var ErrDimensions = errors.New("embedding dimension mismatch")

// Hit is a search result.
type Hit struct {
	Document document.Document
	Score    float64 // Cosine similarity, higher is closer.
}

// Index is a searchable collection of embedded documents.
type Index interface {
	// Add embeds docs and stores them after any already present.
	Add(ctx context.Context, docs []document.Document) error
	// Search returns up to k documents ranked by similarity to query.
	Search(ctx context.Context, query string, k int) ([]Hit, error)
	// Documents returns every stored document in insertion order.
	Documents(ctx context.Context) ([]document.Document, error)
	Close() error
}

// Config selects and configures an index.
type Config struct {
	Kind string `mapstructure:"kind"` // memory or sqlite-vec.
	Path string `mapstructure:"path"` // Database file for sqlite-vec.
	K    int    `mapstructure:"k"`
}

// DefaultConfig keeps the index in memory.
func DefaultConfig() Config {
	return Config{
		Kind: "memory",
		Path: "track_index.db",
		K:    DefaultK,
	}
}

// Factory builds an empty index.
type Factory func(ctx context.Context, cfg Config, engine embedding.Engine) (Index, error)

var kinds = registry.New[Factory]("index kind")

// Kinds lists the registered index kinds.
func Kinds() []string {
	return kinds.Names()
}

// New builds an empty index of kind cfg.Kind. Any index previously persisted
// at cfg.Path is discarded.
func New(ctx context.Context, cfg Config, engine embedding.Engine) (Index, error) {
	f, err := kinds.Lookup(cfg.Kind)
	if err != nil {
		return nil, err
	}
	idx, err := f(ctx, cfg, engine)
	if err != nil {
		return nil, fmt.Errorf("create %s index: %w", cfg.Kind, err)
	}
	return idx, nil
}

// Build creates an index and adds docs to it.
func Build(ctx context.Context, cfg Config, engine embedding.Engine, docs []document.Document) (Index, error) {
	idx, err := New(ctx, cfg, engine)
	if err != nil {
		return nil, err
	}
	if err := idx.Add(ctx, docs); err != nil {
		idx.Close()
		return nil, fmt.Errorf("index documents: %w", err)
	}
	return idx, nil
}

// FindSource returns the first stored document whose source tag is source.
func FindSource(ctx context.Context, idx Index, source string) (document.Document, bool, error) {
	docs, err := idx.Documents(ctx)
	if err != nil {
		return document.Document{}, false, err
	}
	for _, d := range docs {
		if d.Source() == source {
			return d, true, nil
		}
	}
	return document.Document{}, false, nil
}

// embedDocuments embeds the text of every doc and checks that all vectors
// share one length. want is the required length, or 0 to accept the first.
func embedDocuments(ctx context.Context, engine embedding.Engine, docs []document.Document, want int) ([][]float32, error) {
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
	}
	vecs, err := engine.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed with %s: %w", engine.Name(), err)
	}
	if len(vecs) != len(docs) {
		return nil, fmt.Errorf("embed with %s: got %d vectors for %d documents", engine.Name(), len(vecs), len(docs))
	}
	for i, v := range vecs {
		if want == 0 {
			want = len(v)
		}
		if len(v) == 0 || len(v) != want {
			return nil, fmt.Errorf("%w: document %d has %d dimensions, want %d", ErrDimensions, i, len(v), want)
		}
	}
	return vecs, nil
}
