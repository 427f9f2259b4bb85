package retriever

import (
	"math"
	"sort"
	"strings"

	"docsearch/internal/domain"
)

const (
	DefaultK1 = 1.5
	DefaultB  = 0.75
)

// KeywordIndex is an in-memory BM25 index over a fixed set of chunks.
// Tokenization is lower-casing plus whitespace splitting, with no stemming
// or stop-word removal, so only exact terms match.
type KeywordIndex struct {
	chunks    []domain.Chunk
	termFreqs []map[string]int
	docLens   []int
	docFreq   map[string]int
	avgDocLen float64
	k1        float64
	b         float64
}

// NewKeywordIndex builds an index over chunks. An empty set yields an index
// that always returns no results.
func NewKeywordIndex(chunks []domain.Chunk, k1, b float64) *KeywordIndex {
	if k1 <= 0 {
		k1 = DefaultK1
	}
	if b < 0 || b > 1 {
		b = DefaultB
	}

	idx := &KeywordIndex{
		chunks:    append([]domain.Chunk(nil), chunks...),
		termFreqs: make([]map[string]int, len(chunks)),
		docLens:   make([]int, len(chunks)),
		docFreq:   make(map[string]int),
		k1:        k1,
		b:         b,
	}

	totalLen := 0
	for i, chunk := range chunks {
		tokens := Tokenize(chunk.Text)
		tf := make(map[string]int, len(tokens))
		for _, token := range tokens {
			tf[token]++
		}
		for term := range tf {
			idx.docFreq[term]++
		}
		idx.termFreqs[i] = tf
		idx.docLens[i] = len(tokens)
		totalLen += len(tokens)
	}
	if len(chunks) > 0 {
		idx.avgDocLen = float64(totalLen) / float64(len(chunks))
	}

	return idx
}

// Tokenize lower-cases text and splits it on whitespace.
func Tokenize(text string) []string {
	return strings.Fields(strings.ToLower(text))
}

// Len returns the number of indexed chunks.
func (idx *KeywordIndex) Len() int {
	return len(idx.chunks)
}

// Search scores every chunk against query and returns at most n results with
// a positive score, highest first. Each result carries BM25Score.
func (idx *KeywordIndex) Search(query string, n int) []domain.ScoredResult {
	queryTokens := Tokenize(query)
	if len(queryTokens) == 0 || len(idx.chunks) == 0 || n <= 0 {
		return nil
	}

	scores := idx.scores(queryTokens)

	order := make([]int, 0, len(scores))
	for i, score := range scores {
		if score > 0 {
			order = append(order, i)
		}
	}
	sort.SliceStable(order, func(i, j int) bool {
		return scores[order[i]] > scores[order[j]]
	})
	if len(order) > n {
		order = order[:n]
	}

	results := make([]domain.ScoredResult, len(order))
	for i, docIdx := range order {
		results[i] = domain.ScoredResult{
			Chunk:     idx.chunks[docIdx],
			BM25Score: domain.Score(scores[docIdx]),
		}
	}
	return results
}

func (idx *KeywordIndex) scores(queryTokens []string) []float64 {
	scores := make([]float64, len(idx.chunks))
	N := float64(len(idx.chunks))

	for _, term := range queryTokens {
		df, ok := idx.docFreq[term]
		if !ok {
			continue
		}
		n := float64(df)
		idf := math.Log((N-n+0.5)/(n+0.5) + 1)

		for i, tf := range idx.termFreqs {
			freq, ok := tf[term]
			if !ok {
				continue
			}
			f := float64(freq)
			dl := float64(idx.docLens[i])
			scores[i] += idf * (f * (idx.k1 + 1)) / (f + idx.k1*(1-idx.b+idx.b*dl/idx.avgDocLen))
		}
	}
	return scores
}
