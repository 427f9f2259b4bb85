package memstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docsearch/internal/port"
)

func vectorItems(id string, v []float32) []port.VectorItem {
	return []port.VectorItem{{ID: id, Vector: v}}
}

func hitIDs(hits []port.VectorHit) []string {
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	return ids
}

func TestHNSWIndex_Search(t *testing.T) {
	idx := NewHNSWIndex(2)
	require.NoError(t, idx.Upsert([]port.VectorItem{
		{ID: "east", Vector: []float32{1, 0}},
		{ID: "north", Vector: []float32{0, 1}},
		{ID: "west", Vector: []float32{-1, 0.1}},
	}))

	hits, err := idx.Search([]float32{1, 0.05}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "east", hits[0].ID)
	assert.Less(t, hits[0].Distance, 0.01)

	n, err := idx.Count()
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestHNSWIndex_ReplaceOrphansOldVector(t *testing.T) {
	idx := NewHNSWIndex(2)
	require.NoError(t, idx.Upsert(vectorItems("a", []float32{1, 0})))
	require.NoError(t, idx.Upsert(vectorItems("b", []float32{0, 1})))
	require.NoError(t, idx.Upsert(vectorItems("a", []float32{0, 1})))

	n, err := idx.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	hits, err := idx.Search([]float32{1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	for _, h := range hits {
		assert.InDelta(t, 1.0, h.Distance, 1e-6, "replaced vector must not be returned")
	}
}

func TestHNSWIndex_EdgeCases(t *testing.T) {
	idx := NewHNSWIndex(2)

	hits, err := idx.Search([]float32{1, 0}, 3)
	require.NoError(t, err)
	assert.Empty(t, hits)

	assert.Error(t, idx.Upsert(vectorItems("bad", []float32{1})))
	_, err = idx.Search([]float32{1}, 1)
	assert.Error(t, err)

	require.NoError(t, idx.Upsert([]port.VectorItem{
		{ID: "b", Vector: []float32{1, 0}},
		{ID: "a", Vector: []float32{0, 1}},
	}))
	hits, err = idx.Search([]float32{0, 0}, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, hitIDs(hits))
	assert.Equal(t, 1.0, hits[0].Distance)
}
