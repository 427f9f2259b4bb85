package port

import "context"

// Embedder generates vector embeddings for text.
type Embedder interface {
	// EmbedDocuments generates one vector per input text, in order.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery generates the vector for a single query string.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// Dimension returns the embedding vector dimension.
	Dimension() int

	// ModelName returns the name of the embedding model.
	ModelName() string
}

// VectorIndex stores and searches embedding vectors.
type VectorIndex interface {
	// Upsert adds or replaces vectors by ID.
	Upsert(items []VectorItem) error

	// Search finds the k nearest vectors to the query, nearest first.
	Search(query []float32, k int) ([]VectorHit, error)

	// Count returns the number of vectors in the index.
	Count() (int, error)
}

// VectorItem represents a vector to be stored.
type VectorItem struct {
	ID     string    // Chunk ID
	Vector []float32 // Embedding vector
}

// VectorHit is a single nearest-neighbour match.
type VectorHit struct {
	ID       string  // Chunk ID
	Distance float64 // Cosine distance (lower is more similar)
}
