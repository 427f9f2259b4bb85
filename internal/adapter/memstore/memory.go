package memstore

import (
	"fmt"
	"sync"

	"docsearch/internal/domain"
)

type MemoryStore struct {
	mu     sync.RWMutex
	chunks map[string]domain.Chunk
	order  []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		chunks: make(map[string]domain.Chunk),
	}
}

func (s *MemoryStore) PutChunks(chunks []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, chunk := range chunks {
		if _, exists := s.chunks[chunk.ID]; !exists {
			s.order = append(s.order, chunk.ID)
		}
		s.chunks[chunk.ID] = chunk
	}
	return nil
}

func (s *MemoryStore) GetChunk(id string) (domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chunk, ok := s.chunks[id]
	if !ok {
		return domain.Chunk{}, fmt.Errorf("chunk not found: %s", id)
	}
	return chunk, nil
}

// ListChunks returns chunks in first-insertion order.
func (s *MemoryStore) ListChunks() ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chunks := make([]domain.Chunk, 0, len(s.order))
	for _, id := range s.order {
		chunks = append(chunks, s.chunks[id])
	}
	return chunks, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
