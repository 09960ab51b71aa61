// Package embeddingtest provides a deterministic embedding engine for tests.
package embeddingtest

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// Engine hashes words into a fixed number of buckets and normalises the
// counts, so texts sharing words land close together.
type Engine struct {
	Dims  int
	Err   error // Returned by every call when set.
	Calls int
}

// New returns an engine producing dims-length vectors.
func New(dims int) *Engine {
	return &Engine{Dims: dims}
}

func (e *Engine) Embed(_ context.Context, text string) ([]float32, error) {
	e.Calls++
	if e.Err != nil {
		return nil, e.Err
	}
	return e.vector(text), nil
}

func (e *Engine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e *Engine) Dimensions() int { return e.Dims }

func (e *Engine) Name() string { return "test" }

func (e *Engine) vector(text string) []float32 {
	v := make([]float32, e.Dims)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		h.Write([]byte(w))
		v[h.Sum32()%uint32(e.Dims)]++
	}

	var norm float64
	for _, x := range v {
		norm += float64(x * x)
	}
	if norm == 0 {
		v[0] = 1
		return v
	}
	n := float32(math.Sqrt(norm))
	for i := range v {
		v[i] /= n
	}
	return v
}
