package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trackqa/internal/registry"
)

func ollamaServer(t *testing.T, handler func(req ollamaEmbedRequest) (int, any)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		var req ollamaEmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		status, body := handler(req)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOllamaEmbed(t *testing.T) {
	var seen []ollamaEmbedRequest
	srv := ollamaServer(t, func(req ollamaEmbedRequest) (int, any) {
		seen = append(seen, req)
		return http.StatusOK, ollamaEmbedResponse{Embedding: []float32{float32(len(req.Prompt)), 1}}
	})

	e, err := NewOllamaEngine(srv.URL+"/", "")
	require.NoError(t, err)

	v, err := e.Embed(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, []float32{3, 1}, v)
	require.Len(t, seen, 1)
	assert.Equal(t, DefaultOllamaModel, seen[0].Model)
	assert.Equal(t, "ollama:"+DefaultOllamaModel, e.Name())
}

func TestOllamaEmbedBatch(t *testing.T) {
	srv := ollamaServer(t, func(req ollamaEmbedRequest) (int, any) {
		return http.StatusOK, ollamaEmbedResponse{Embedding: []float32{float32(len(req.Prompt))}}
	})
	e, err := NewOllamaEngine(srv.URL, "custom")
	require.NoError(t, err)

	vs, err := e.EmbedBatch(context.Background(), []string{"a", "bb", "ccc"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1}, {2}, {3}}, vs)
}

func TestOllamaErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    any
		wantErr string
	}{
		{"server error", http.StatusInternalServerError, map[string]string{"error": "model not found"}, "status 500"},
		{"empty embedding", http.StatusOK, ollamaEmbedResponse{}, "empty embedding"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := ollamaServer(t, func(ollamaEmbedRequest) (int, any) { return tt.status, tt.body })
			e, err := NewOllamaEngine(srv.URL, "")
			require.NoError(t, err)

			_, err = e.EmbedBatch(context.Background(), []string{"x"})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Contains(t, err.Error(), "embed text 0")
		})
	}
}

func TestOllamaUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	e, err := NewOllamaEngine(url, "")
	require.NoError(t, err)
	_, err = e.Embed(context.Background(), "x")
	assert.ErrorContains(t, err, "ollama request")
}

func TestNewByProvider(t *testing.T) {
	assert.Equal(t, []string{"genai", "ollama"}, Providers())

	e, err := New(context.Background(), Config{Provider: "Ollama", Endpoint: "http://example.invalid"})
	require.NoError(t, err)
	assert.IsType(t, &OllamaEngine{}, e)

	_, err = New(context.Background(), Config{Provider: "word2vec"})
	assert.ErrorIs(t, err, registry.ErrUnknown)

	_, err = New(context.Background(), Config{Provider: "genai"})
	assert.ErrorContains(t, err, "API key is required")
}
