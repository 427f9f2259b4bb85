package retriever

import (
	"sort"

	"docsearch/internal/domain"
)

// DefaultRRFConstant is the standard RRF smoothing parameter.
const DefaultRRFConstant = 60

// DefaultKeywordCandidates is how many keyword results are fused with the
// semantic list.
const DefaultKeywordCandidates = 20

// RankFuser merges ranked lists with Reciprocal Rank Fusion.
// RRF score = Σ 1/(k + rank) for each list where the document appears,
// with 1-based ranks.
type RankFuser struct {
	k int
}

// NewRankFuser creates a fuser with the given constant. If k <= 0, defaults to 60.
func NewRankFuser(k int) *RankFuser {
	if k <= 0 {
		k = DefaultRRFConstant
	}
	return &RankFuser{k: k}
}

// K returns the smoothing constant.
func (f *RankFuser) K() int {
	return f.k
}

// Fuse combines primary and secondary into one list ordered by descending
// RRF score. No input document is dropped.
//
// When an ID is present in both lists the primary version is kept, so its
// score fields carry over and the secondary version's are discarded. The
// retriever passes the semantic list as primary. Equal scores keep first-seen
// order: primary order, then secondary-only IDs in secondary order.
func (f *RankFuser) Fuse(primary, secondary []domain.ScoredResult) []domain.ScoredResult {
	scores := make(map[string]float64, len(primary)+len(secondary))
	var order []string
	for _, list := range [][]domain.ScoredResult{primary, secondary} {
		for rank, result := range list {
			id := result.Chunk.ID
			if _, seen := scores[id]; !seen {
				order = append(order, id)
			}
			scores[id] += 1 / float64(f.k+rank+1)
		}
	}

	lookup := make(map[string]domain.ScoredResult, len(scores))
	for _, result := range secondary {
		lookup[result.Chunk.ID] = result
	}
	for _, result := range primary {
		lookup[result.Chunk.ID] = result
	}

	fused := make([]domain.ScoredResult, 0, len(order))
	for _, id := range order {
		result := lookup[id].Clone()
		result.RRFScore = domain.Score(scores[id])
		fused = append(fused, result)
	}

	sort.SliceStable(fused, func(i, j int) bool {
		return *fused[i].RRFScore > *fused[j].RRFScore
	})

	return fused
}

// HybridSearcher fuses semantic results with keyword results.
type HybridSearcher struct {
	fuser      *RankFuser
	keyword    *KeywordIndex
	candidates int
}

// NewHybridSearcher creates a hybrid searcher. keyword may be nil, in which
// case Search passes semantic results through.
func NewHybridSearcher(fuser *RankFuser, keyword *KeywordIndex, candidates int) *HybridSearcher {
	if fuser == nil {
		fuser = NewRankFuser(DefaultRRFConstant)
	}
	if candidates <= 0 {
		candidates = DefaultKeywordCandidates
	}
	return &HybridSearcher{
		fuser:      fuser,
		keyword:    keyword,
		candidates: candidates,
	}
}

// Search runs keyword search for query and fuses it with semantic, returning
// the top n. Without a keyword index the semantic list is truncated to n
// and returned unmodified.
func (h *HybridSearcher) Search(query string, semantic []domain.ScoredResult, n int) []domain.ScoredResult {
	if h.keyword == nil {
		return truncate(semantic, n)
	}
	return h.Fuse(semantic, h.keyword.Search(query, h.candidates), n)
}

// Fuse merges precomputed semantic and keyword lists, returning the top n.
func (h *HybridSearcher) Fuse(semantic, keyword []domain.ScoredResult, n int) []domain.ScoredResult {
	return truncate(h.fuser.Fuse(semantic, keyword), n)
}

// Enabled reports whether a keyword index is attached.
func (h *HybridSearcher) Enabled() bool {
	return h.keyword != nil
}

// Candidates returns how many keyword results are fused per query.
func (h *HybridSearcher) Candidates() int {
	return h.candidates
}

func truncate(results []domain.ScoredResult, n int) []domain.ScoredResult {
	if n < 0 {
		n = 0
	}
	if len(results) > n {
		return results[:n]
	}
	return results
}
