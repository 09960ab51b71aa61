//go:build cgo

package index

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trackqa/internal/document"
	"trackqa/internal/embedding/embeddingtest"
)

func TestSQLiteVecRoundTrip(t *testing.T) {
	ctx := context.Background()
	cfg := Config{Kind: "sqlite-vec", Path: filepath.Join(t.TempDir(), "index.db")}

	idx, err := Build(ctx, cfg, embeddingtest.New(64), testDocs())
	require.NoError(t, err)
	defer idx.Close()

	docs, err := idx.Documents(ctx)
	require.NoError(t, err)
	assert.Equal(t, testDocs(), docs)

	hits, err := idx.Search(ctx, "Distance meters Ascent Calories", 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, document.SourceStats, hits[0].Document.Source())
	assert.GreaterOrEqual(t, hits[0].Score, hits[1].Score)

	d, ok, err := FindSource(ctx, idx, document.SourceStats)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, d.Text, "Calories: 450")
}

func TestSQLiteVecRebuildDiscardsPrevious(t *testing.T) {
	ctx := context.Background()
	cfg := Config{Kind: "sqlite-vec", Path: filepath.Join(t.TempDir(), "index.db")}

	first, err := Build(ctx, cfg, embeddingtest.New(8), testDocs())
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := Build(ctx, cfg, embeddingtest.New(8), testDocs()[:1])
	require.NoError(t, err)
	defer second.Close()

	docs, err := second.Documents(ctx)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestSQLiteVecAddTwice(t *testing.T) {
	ctx := context.Background()
	idx, err := OpenSQLiteVec(ctx, filepath.Join(t.TempDir(), "index.db"), embeddingtest.New(8))
	require.NoError(t, err)
	defer idx.Close()

	require.NoError(t, idx.Add(ctx, testDocs()[:2]))
	require.NoError(t, idx.Add(ctx, testDocs()[2:]))

	docs, err := idx.Documents(ctx)
	require.NoError(t, err)
	assert.Equal(t, testDocs(), docs)
}
