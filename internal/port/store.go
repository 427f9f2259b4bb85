package port

import (
	"context"

	"docsearch/internal/domain"
)

// SemanticStore is the embedding-backed chunk store used for semantic recall.
type SemanticStore interface {
	// Add embeds and stores chunks. Existing IDs are replaced.
	Add(ctx context.Context, chunks []domain.Chunk) error

	// Search returns up to n chunks ordered by ascending Distance.
	Search(ctx context.Context, query string, n int) ([]domain.ScoredResult, error)

	// Count returns the number of stored chunks.
	Count(ctx context.Context) (int, error)

	// Chunks enumerates every stored chunk.
	Chunks(ctx context.Context) ([]domain.Chunk, error)
}
