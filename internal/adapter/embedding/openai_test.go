package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func embeddingServer(t *testing.T, calls *int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer ollama", r.Header.Get("Authorization"))

		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		// Answer out of order to check index mapping.
		var resp embeddingResponse
		for i := len(req.Input) - 1; i >= 0; i-- {
			resp.Data = append(resp.Data, embeddingData{
				Index:     i,
				Embedding: []float32{float32(len(req.Input[i])), 1},
			})
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestOpenAIEmbedder_EmbedDocuments(t *testing.T) {
	var calls int
	srv := embeddingServer(t, &calls)
	defer srv.Close()

	e := NewOllamaEmbedder("tiny", srv.URL, 2)
	e.maxBatch = 2

	vecs, err := e.EmbedDocuments(context.Background(), []string{"a", "bb", "ccc"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	assert.Equal(t, []float32{1, 1}, vecs[0])
	assert.Equal(t, []float32{2, 1}, vecs[1])
	assert.Equal(t, []float32{3, 1}, vecs[2])
	assert.Equal(t, 2, calls, "three texts in batches of two")
}

func TestOpenAIEmbedder_EmbedQuery(t *testing.T) {
	var calls int
	srv := embeddingServer(t, &calls)
	defer srv.Close()

	e := NewOllamaEmbedder("tiny", srv.URL, 2)
	vec, err := e.EmbedQuery(context.Background(), "four")
	require.NoError(t, err)
	assert.Equal(t, []float32{4, 1}, vec)
}

func TestOpenAIEmbedder_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	e := NewOllamaEmbedder("missing", srv.URL, 2)
	_, err := e.EmbedQuery(context.Background(), "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")

	wrongDim := NewOllamaEmbedder("tiny", "", 3)
	var calls int
	ok := embeddingServer(t, &calls)
	defer ok.Close()
	wrongDim.baseURL = ok.URL
	_, err = wrongDim.EmbedQuery(context.Background(), "q")
	assert.ErrorContains(t, err, "dimension")
}

func TestNewOpenAICompatibleEmbedder_RequiresKey(t *testing.T) {
	t.Setenv("DOCSEARCH_TEST_KEY", "")
	_, err := NewOpenAICompatibleEmbedder("DOCSEARCH_TEST_KEY", "text-embedding-3-small", "", 0)
	assert.Error(t, err)

	t.Setenv("DOCSEARCH_TEST_KEY", "sk-test")
	e, err := NewOpenAICompatibleEmbedder("DOCSEARCH_TEST_KEY", "text-embedding-3-large", "", 0)
	require.NoError(t, err)
	assert.Equal(t, 3072, e.Dimension())
	assert.Equal(t, "text-embedding-3-large", e.ModelName())
}
