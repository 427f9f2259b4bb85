package retriever

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docsearch/internal/domain"
)

type fakeScorer struct {
	scores map[string]float64
	calls  int
	err    error
}

func (s *fakeScorer) Score(_ context.Context, _ string, texts []string) ([]float64, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make([]float64, len(texts))
	for i, text := range texts {
		out[i] = s.scores[text]
	}
	return out, nil
}

func (s *fakeScorer) ModelName() string { return "fake" }

func TestReranker_EmptyCandidates(t *testing.T) {
	scorer := &fakeScorer{}
	r := NewReranker(scorer)

	results, err := r.Rerank(context.Background(), "query", nil, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.NotNil(t, results)
	assert.Equal(t, 0, scorer.calls)
}

func TestReranker_SortsAndTruncates(t *testing.T) {
	scorer := &fakeScorer{scores: map[string]float64{"a": 0.1, "b": 0.9, "c": -2, "d": 0.5}}
	r := NewReranker(scorer)

	candidates := []domain.ScoredResult{
		semanticResult("a", 0.1),
		semanticResult("b", 0.2),
		semanticResult("c", 0.3),
		semanticResult("d", 0.4),
	}

	results, err := r.Rerank(context.Background(), "query", candidates, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "d", "a"}, resultIDs(results))
	assert.Equal(t, 1, scorer.calls)

	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, *results[i-1].RerankScore, *results[i].RerankScore)
	}
	for _, res := range results {
		assert.NotNil(t, res.Distance, "earlier score fields are kept")
	}
	for _, c := range candidates {
		assert.Nil(t, c.RerankScore, "input is not mutated")
	}
}

func TestReranker_TopKLargerThanCandidates(t *testing.T) {
	r := NewReranker(&fakeScorer{scores: map[string]float64{"a": 1, "b": 2}})

	results, err := r.Rerank(context.Background(), "q",
		[]domain.ScoredResult{semanticResult("a", 0), semanticResult("b", 0)}, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, resultIDs(results))
}

func TestReranker_ScorerError(t *testing.T) {
	boom := errors.New("model unavailable")
	r := NewReranker(&fakeScorer{err: boom})

	_, err := r.Rerank(context.Background(), "q", []domain.ScoredResult{semanticResult("a", 0)}, 1)
	assert.ErrorIs(t, err, boom)
}

func TestOverlapScorer(t *testing.T) {
	s := NewOverlapScorer()

	scores, err := s.Score(context.Background(), "Van Helsing, vampire", []string{
		"Dr. Van Helsing arrived.",
		"the vampire slept",
		"nothing relevant",
	})
	require.NoError(t, err)
	require.Len(t, scores, 3)
	assert.InDelta(t, 2.0/3, scores[0], 1e-9)
	assert.InDelta(t, 1.0/3, scores[1], 1e-9)
	assert.Equal(t, 0.0, scores[2])

	scores, err = s.Score(context.Background(), "", []string{"x"})
	require.NoError(t, err)
	assert.Equal(t, []float64{0}, scores)
}

func TestCohereScorer_MapsScoresToInputOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/rerank", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req cohereRerankRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "mina", req.Query)
		assert.Equal(t, "test-model", req.Model)

		// Sorted by relevance, like the real API.
		_ = json.NewEncoder(w).Encode(cohereRerankResponse{Results: []cohereRerankResult{
			{Index: 1, RelevanceScore: 0.8},
			{Index: 0, RelevanceScore: 0.2},
		}})
	}))
	defer server.Close()

	t.Setenv("TEST_RERANK_KEY", "secret")
	s, err := NewCohereScorer("TEST_RERANK_KEY", "test-model", server.URL+"/")
	require.NoError(t, err)
	assert.Equal(t, "test-model", s.ModelName())

	scores, err := s.Score(context.Background(), "mina", []string{"first", "second"})
	require.NoError(t, err)
	assert.Equal(t, []float64{0.2, 0.8}, scores)
}

func TestCohereScorer_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	s, err := NewCohereScorer("", "", server.URL)
	require.NoError(t, err)

	_, err = s.Score(context.Background(), "q", []string{"a"})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "503"))
}

func TestCohereScorer_RequiresKeyForHostedAPI(t *testing.T) {
	t.Setenv("TEST_MISSING_KEY", "")
	_, err := NewCohereScorer("TEST_MISSING_KEY", "", "")
	assert.Error(t, err)
}
