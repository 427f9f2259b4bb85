package port

import "docsearch/internal/domain"

// ChunkStore persists chunk payloads keyed by chunk ID.
type ChunkStore interface {
	PutChunks(chunks []domain.Chunk) error

	GetChunk(id string) (domain.Chunk, error)

	ListChunks() ([]domain.Chunk, error)

	Close() error
}
