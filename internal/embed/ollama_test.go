package embed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/ctxrank/pkg/version"
)

func newFakeOllama(t *testing.T, requests *[]ollamaEmbedRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/embed", r.URL.Path)
		require.Equal(t, version.UserAgent(), r.Header.Get("User-Agent"))

		var req ollamaEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		*requests = append(*requests, req)

		resp := ollamaEmbedResponse{Model: req.Model}
		for range req.Input {
			resp.Embeddings = append(resp.Embeddings, []float32{3, 4})
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestOllamaEmbedder_EmbedBatch_SplitsAndNormalizes(t *testing.T) {
	// Given: a fake Ollama server and a batch size of 2
	var requests []ollamaEmbedRequest
	srv := newFakeOllama(t, &requests)
	defer srv.Close()

	e := NewOllamaEmbedder(OllamaConfig{Host: srv.URL + "/", Model: "m", BatchSize: 2})
	defer func() { _ = e.Close() }()

	// When: embedding three non-empty texts and one blank
	out, err := e.EmbedBatch(context.Background(), []string{"a", " ", "b", "c"})

	// Then: two requests were made, vectors are unit length, blank is zero
	require.NoError(t, err)
	require.Len(t, out, 4)
	assert.Len(t, requests, 2)
	assert.InDeltaSlice(t, []float32{0.6, 0.8}, out[0], 1e-6)
	assert.Equal(t, []float32{0, 0}, out[1])
	assert.Equal(t, 2, e.Dimensions())
	assert.Equal(t, "m", e.ModelName())
}

func TestOllamaEmbedder_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	e := NewOllamaEmbedder(OllamaConfig{Host: srv.URL})

	_, err := e.Embed(context.Background(), "poème")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestNewEmbedder_SelectsProvider(t *testing.T) {
	static, err := NewEmbedder(FactoryConfig{})
	require.NoError(t, err)
	assert.IsType(t, &StaticEmbedder{}, static)

	cachedOllama, err := NewEmbedder(FactoryConfig{Provider: "Ollama", CacheSize: 8})
	require.NoError(t, err)
	assert.IsType(t, &CachedEmbedder{}, cachedOllama)
	assert.Equal(t, DefaultOllamaModel, cachedOllama.ModelName())

	_, err = NewEmbedder(FactoryConfig{Provider: "openai"})
	assert.Error(t, err)
}
