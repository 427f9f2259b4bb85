package retriever

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docsearch/internal/domain"
)

func semanticResult(id string, distance float64) domain.ScoredResult {
	return domain.ScoredResult{Chunk: chunk(id, id), Distance: domain.Score(distance)}
}

func keywordResult(id string, score float64) domain.ScoredResult {
	return domain.ScoredResult{Chunk: chunk(id, id), BM25Score: domain.Score(score)}
}

func TestRankFuser_SumsContributions(t *testing.T) {
	fuser := NewRankFuser(60)

	semantic := []domain.ScoredResult{semanticResult("A", 0.1), semanticResult("B", 0.2)}
	keyword := []domain.ScoredResult{keywordResult("B", 3.0), keywordResult("C", 1.0)}

	fused := fuser.Fuse(semantic, keyword)
	require.Len(t, fused, 3)

	assert.Equal(t, "B", fused[0].Chunk.ID)
	assert.InDelta(t, 1.0/61+1.0/62, *fused[0].RRFScore, 1e-12)

	byID := make(map[string]domain.ScoredResult)
	for _, r := range fused {
		byID[r.Chunk.ID] = r
	}
	assert.InDelta(t, 1.0/61, *byID["A"].RRFScore, 1e-12)
	assert.InDelta(t, 1.0/62, *byID["C"].RRFScore, 1e-12)
}

func TestRankFuser_TieKeepsFirstSeenOrder(t *testing.T) {
	fuser := NewRankFuser(60)

	semantic := []domain.ScoredResult{semanticResult("A", 0.1)}
	keyword := []domain.ScoredResult{keywordResult("C", 1.0)}

	fused := fuser.Fuse(semantic, keyword)
	assert.Equal(t, []string{"A", "C"}, resultIDs(fused))
}

func TestRankFuser_PrimaryPayloadWins(t *testing.T) {
	fuser := NewRankFuser(60)

	sem := semanticResult("B", 0.25)
	sem.Chunk.Text = "semantic version"
	kw := keywordResult("B", 4.5)
	kw.Chunk.Text = "keyword version"

	fused := fuser.Fuse([]domain.ScoredResult{sem}, []domain.ScoredResult{kw})
	require.Len(t, fused, 1)

	got := fused[0]
	assert.Equal(t, "semantic version", got.Chunk.Text)
	require.NotNil(t, got.Distance)
	assert.Equal(t, 0.25, *got.Distance)
	assert.Nil(t, got.BM25Score, "secondary fields are not merged in")
	assert.NotNil(t, got.RRFScore)
}

func TestRankFuser_SingleSourceFieldsPersist(t *testing.T) {
	fuser := NewRankFuser(60)

	fused := fuser.Fuse(
		[]domain.ScoredResult{semanticResult("A", 0.3)},
		[]domain.ScoredResult{keywordResult("C", 2.0)},
	)
	require.Len(t, fused, 2)
	assert.NotNil(t, fused[0].Distance)
	assert.Nil(t, fused[0].BM25Score)
	assert.NotNil(t, fused[1].BM25Score)
	assert.Nil(t, fused[1].Distance)
}

func TestRankFuser_DoesNotMutateInputs(t *testing.T) {
	fuser := NewRankFuser(60)

	semantic := []domain.ScoredResult{semanticResult("A", 0.1)}
	fuser.Fuse(semantic, nil)

	assert.Nil(t, semantic[0].RRFScore)
}

func TestRankFuser_EmptyInputs(t *testing.T) {
	fuser := NewRankFuser(0)

	assert.Equal(t, DefaultRRFConstant, fuser.K())
	assert.Empty(t, fuser.Fuse(nil, nil))

	fused := fuser.Fuse(nil, []domain.ScoredResult{keywordResult("C", 1), keywordResult("D", 0.5)})
	assert.Equal(t, []string{"C", "D"}, resultIDs(fused))
}

func TestHybridSearcher_FallbackWithoutKeywordIndex(t *testing.T) {
	h := NewHybridSearcher(NewRankFuser(60), nil, 20)
	assert.False(t, h.Enabled())

	semantic := []domain.ScoredResult{
		semanticResult("A", 0.1),
		semanticResult("B", 0.2),
		semanticResult("C", 0.3),
	}

	results := h.Search("query", semantic, 2)
	assert.Equal(t, []string{"A", "B"}, resultIDs(results))
	for _, r := range results {
		assert.Nil(t, r.RRFScore)
	}
}

func TestHybridSearcher_FusesKeywordResults(t *testing.T) {
	idx := NewKeywordIndex([]domain.Chunk{
		chunk("A", "dracula castle"),
		chunk("B", "van helsing hunts vampires"),
		chunk("C", "mina harker writes letters"),
	}, DefaultK1, DefaultB)
	h := NewHybridSearcher(nil, idx, 0)
	assert.Equal(t, DefaultKeywordCandidates, h.Candidates())

	semantic := []domain.ScoredResult{semanticResult("A", 0.1), semanticResult("C", 0.4)}

	results := h.Search("helsing", semantic, 5)
	assert.ElementsMatch(t, []string{"A", "B", "C"}, resultIDs(results))
	for _, r := range results {
		assert.NotNil(t, r.RRFScore)
	}

	assert.Len(t, h.Search("helsing", semantic, 1), 1)
}
