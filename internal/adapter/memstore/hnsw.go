package memstore

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/coder/hnsw"

	"docsearch/internal/port"
)

// HNSWIndex is an in-memory approximate nearest-neighbour VectorIndex backed
// by coder/hnsw. Vectors are normalized so graph distance is cosine distance.
type HNSWIndex struct {
	mu        sync.RWMutex
	graph     *hnsw.Graph[uint64]
	dimension int

	// Replaced vectors stay in the graph as orphans; only keyMap entries are live.
	idMap   map[string]uint64
	keyMap  map[uint64]string
	nextKey uint64
}

// NewHNSWIndex creates an empty index for vectors of the given dimension.
func NewHNSWIndex(dimension int) *HNSWIndex {
	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = 16
	graph.EfSearch = 64
	graph.Ml = 0.25

	return &HNSWIndex{
		graph:     graph,
		dimension: dimension,
		idMap:     make(map[string]uint64),
		keyMap:    make(map[uint64]string),
	}
}

// Upsert adds vectors; an existing ID is re-pointed at the new vector.
func (s *HNSWIndex) Upsert(items []port.VectorItem) error {
	for _, item := range items {
		if len(item.Vector) != s.dimension {
			return fmt.Errorf("vector dimension mismatch: expected %d, got %d", s.dimension, len(item.Vector))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range items {
		if existing, ok := s.idMap[item.ID]; ok {
			delete(s.keyMap, existing)
		}

		key := s.nextKey
		s.nextKey++

		s.graph.Add(hnsw.MakeNode(key, normalized(item.Vector)))
		s.idMap[item.ID] = key
		s.keyMap[key] = item.ID
	}
	return nil
}

// Search returns up to k live vectors nearest to query.
func (s *HNSWIndex) Search(query []float32, k int) ([]port.VectorHit, error) {
	if len(query) != s.dimension {
		return nil, fmt.Errorf("query dimension mismatch: expected %d, got %d", s.dimension, len(query))
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.idMap) == 0 || k <= 0 {
		return nil, nil
	}

	q := normalized(query)
	if isZero(q) {
		return s.unranked(k), nil
	}

	orphans := s.graph.Len() - len(s.idMap)
	nodes := s.graph.Search(q, k+orphans)

	hits := make([]port.VectorHit, 0, len(nodes))
	for _, node := range nodes {
		id, ok := s.keyMap[node.Key]
		if !ok {
			continue
		}
		hits = append(hits, port.VectorHit{
			ID:       id,
			Distance: 1 - cosineSimilarity(q, node.Value),
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Distance < hits[j].Distance
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Count returns the number of live vectors.
func (s *HNSWIndex) Count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.idMap), nil
}

// unranked returns k live IDs at distance 1, the cosine distance of a zero
// vector to anything.
func (s *HNSWIndex) unranked(k int) []port.VectorHit {
	ids := make([]string, 0, len(s.idMap))
	for id := range s.idMap {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	if len(ids) > k {
		ids = ids[:k]
	}
	hits := make([]port.VectorHit, len(ids))
	for i, id := range ids {
		hits[i] = port.VectorHit{ID: id, Distance: 1}
	}
	return hits
}

func isZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

func normalized(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)

	var sum float64
	for _, x := range out {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return out
	}
	norm := float32(math.Sqrt(sum))
	for i := range out {
		out[i] /= norm
	}
	return out
}

func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
