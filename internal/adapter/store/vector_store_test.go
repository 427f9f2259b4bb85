package store

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

func TestBoltVectorStore_Search(t *testing.T) {
	s := openTestStore(t)
	vs, err := NewBoltVectorStore(s.DB(), 2)
	require.NoError(t, err)

	require.NoError(t, vs.Upsert([]port.VectorItem{
		{ID: "east", Vector: []float32{1, 0}},
		{ID: "north", Vector: []float32{0, 1}},
		{ID: "northeast", Vector: []float32{1, 1}},
	}))

	hits, err := vs.Search([]float32{1, 0}, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"east", "northeast"}, hitIDs(hits))
	assert.InDelta(t, 0.0, hits[0].Distance, 1e-9)
	assert.InDelta(t, 1-1/1.4142135623730951, hits[1].Distance, 1e-6)

	n, err := vs.Count()
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestBoltVectorStore_DimensionMismatch(t *testing.T) {
	s := openTestStore(t)
	vs, err := NewBoltVectorStore(s.DB(), 3)
	require.NoError(t, err)

	assert.Error(t, vs.Upsert(vectorItems("a", []float32{1, 0})))
	_, err = vs.Search([]float32{1, 0}, 1)
	assert.Error(t, err)

	n, err := vs.Count()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestBoltVectorStore_ReloadsFromDisk(t *testing.T) {
	s := openTestStore(t)
	vs, err := NewBoltVectorStore(s.DB(), 2)
	require.NoError(t, err)
	require.NoError(t, vs.Upsert(vectorItems("a", []float32{0, 1})))

	reloaded, err := NewBoltVectorStore(s.DB(), 2)
	require.NoError(t, err)
	hits, err := reloaded.Search([]float32{0, 1}, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, hitIDs(hits))
}

func TestBoltVectorStore_TiesOrderedByID(t *testing.T) {
	s := openTestStore(t)
	vs, err := NewBoltVectorStore(s.DB(), 2)
	require.NoError(t, err)
	require.NoError(t, vs.Upsert([]port.VectorItem{
		{ID: "b", Vector: []float32{1, 0}},
		{ID: "a", Vector: []float32{2, 0}},
	}))

	hits, err := vs.Search([]float32{1, 0}, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, hitIDs(hits))
}
