package retriever

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"docsearch/internal/domain"
	"docsearch/internal/port"
)

// Reranker reorders a small candidate set by pairwise relevance to the query.
type Reranker struct {
	scorer port.Scorer
}

// NewReranker creates a reranker backed by scorer.
func NewReranker(scorer port.Scorer) *Reranker {
	return &Reranker{scorer: scorer}
}

// ModelName returns the scorer's model name.
func (r *Reranker) ModelName() string {
	return r.scorer.ModelName()
}

// Rerank scores every (query, candidate) pair, attaches RerankScore, sorts
// descending and keeps the top topK. Candidates are copied, never mutated.
// An empty candidate list returns without calling the scorer.
func (r *Reranker) Rerank(ctx context.Context, query string, candidates []domain.ScoredResult, topK int) ([]domain.ScoredResult, error) {
	if len(candidates) == 0 {
		return []domain.ScoredResult{}, nil
	}

	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.Chunk.Text
	}

	scores, err := r.scorer.Score(ctx, query, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to score candidates: %w", err)
	}
	if len(scores) != len(candidates) {
		return nil, fmt.Errorf("scorer returned %d scores for %d candidates", len(scores), len(candidates))
	}

	reranked := make([]domain.ScoredResult, len(candidates))
	for i, c := range candidates {
		reranked[i] = c.Clone()
		reranked[i].RerankScore = domain.Score(scores[i])
	}

	sort.SliceStable(reranked, func(i, j int) bool {
		return *reranked[i].RerankScore > *reranked[j].RerankScore
	})

	return truncate(reranked, topK), nil
}

// CohereScorer scores query-document pairs using a Cohere-compatible
// /v1/rerank endpoint.
type CohereScorer struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

type cohereRerankRequest struct {
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	Model     string   `json:"model"`
	TopN      int      `json:"top_n,omitempty"`
}

type cohereRerankResponse struct {
	Results []cohereRerankResult `json:"results"`
}

type cohereRerankResult struct {
	Index          int     `json:"index"`
	RelevanceScore float64 `json:"relevance_score"`
}

const defaultCohereBaseURL = "https://api.cohere.ai"

// NewCohereScorer creates a scorer. The API key is read from apiKeyEnv; it is
// required only for the hosted Cohere endpoint.
func NewCohereScorer(apiKeyEnv, model, baseURL string) (*CohereScorer, error) {
	if baseURL == "" {
		baseURL = defaultCohereBaseURL
	}
	apiKey := ""
	if apiKeyEnv != "" {
		apiKey = os.Getenv(apiKeyEnv)
	}
	if apiKey == "" && baseURL == defaultCohereBaseURL {
		return nil, fmt.Errorf("API key not found in environment variable: %s", apiKeyEnv)
	}
	if model == "" {
		model = "rerank-english-v3.0"
	}

	return &CohereScorer{
		apiKey:  apiKey,
		model:   model,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// Score returns relevance scores aligned with texts.
func (s *CohereScorer) Score(ctx context.Context, query string, texts []string) ([]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	reqBody := cohereRerankRequest{
		Query:     query,
		Documents: texts,
		Model:     s.model,
		TopN:      len(texts),
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/rerank", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	var rerankResp cohereRerankResponse
	if err := json.Unmarshal(body, &rerankResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	// Results arrive sorted by relevance; map them back to input order.
	scores := make([]float64, len(texts))
	seen := make([]bool, len(texts))
	for _, res := range rerankResp.Results {
		if res.Index < 0 || res.Index >= len(texts) {
			return nil, fmt.Errorf("API returned out-of-range index %d", res.Index)
		}
		scores[res.Index] = res.RelevanceScore
		seen[res.Index] = true
	}
	for i, ok := range seen {
		if !ok {
			return nil, fmt.Errorf("API returned no score for document %d", i)
		}
	}

	return scores, nil
}

// ModelName returns the model name.
func (s *CohereScorer) ModelName() string {
	return s.model
}

// OverlapScorer scores a text by the fraction of distinct query terms it
// contains. Used when no rerank model is available.
type OverlapScorer struct{}

// NewOverlapScorer creates a new overlap scorer.
func NewOverlapScorer() *OverlapScorer {
	return &OverlapScorer{}
}

// Score performs term-overlap scoring.
func (s *OverlapScorer) Score(_ context.Context, query string, texts []string) ([]float64, error) {
	queryTerms := termSet(query)
	scores := make([]float64, len(texts))
	if len(queryTerms) == 0 {
		return scores, nil
	}

	for i, text := range texts {
		docTerms := termSet(text)
		matches := 0
		for term := range queryTerms {
			if _, ok := docTerms[term]; ok {
				matches++
			}
		}
		scores[i] = float64(matches) / float64(len(queryTerms))
	}
	return scores, nil
}

// ModelName returns the model name.
func (s *OverlapScorer) ModelName() string {
	return "term-overlap"
}

// termSet splits on anything that is not a letter, digit or underscore.
func termSet(text string) map[string]struct{} {
	terms := make(map[string]struct{})
	for _, word := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_' || r > 127)
	}) {
		terms[word] = struct{}{}
	}
	return terms
}
