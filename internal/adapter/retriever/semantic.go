package retriever

import (
	"context"
	"fmt"
	"log/slog"

	"docsearch/internal/domain"
	"docsearch/internal/port"
)

// DefaultEmbedBatchSize is how many chunk texts are embedded per call.
const DefaultEmbedBatchSize = 64

// SemanticStore embeds chunks into a vector index and keeps their payloads
// in a chunk store, so search results can be hydrated back into chunks.
type SemanticStore struct {
	embedder   port.Embedder
	vectors    port.VectorIndex
	chunkStore port.ChunkStore
	batchSize  int
	onProgress func(done, total int)
	logger     *slog.Logger
}

// SemanticOption configures a SemanticStore.
type SemanticOption func(*SemanticStore)

// WithBatchSize sets the embedding batch size.
func WithBatchSize(n int) SemanticOption {
	return func(s *SemanticStore) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithProgress registers a callback invoked after each embedded batch.
func WithProgress(fn func(done, total int)) SemanticOption {
	return func(s *SemanticStore) {
		s.onProgress = fn
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) SemanticOption {
	return func(s *SemanticStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewSemanticStore(
	embedder port.Embedder,
	vectors port.VectorIndex,
	chunkStore port.ChunkStore,
	opts ...SemanticOption,
) *SemanticStore {
	s := &SemanticStore{
		embedder:   embedder,
		vectors:    vectors,
		chunkStore: chunkStore,
		batchSize:  DefaultEmbedBatchSize,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetProgress replaces the progress callback.
func (s *SemanticStore) SetProgress(fn func(done, total int)) {
	s.onProgress = fn
}

// Add embeds chunks in batches and stores vectors and payloads.
func (s *SemanticStore) Add(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	for i := 0; i < len(chunks); i += s.batchSize {
		end := i + s.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[i:end]

		texts := make([]string, len(batch))
		for j, c := range batch {
			texts[j] = c.Text
		}

		embeddings, err := s.embedder.EmbedDocuments(ctx, texts)
		if err != nil {
			return fmt.Errorf("failed to embed chunks: %w", err)
		}
		if len(embeddings) != len(batch) {
			return fmt.Errorf("embedder returned %d vectors for %d chunks", len(embeddings), len(batch))
		}

		if err := s.chunkStore.PutChunks(batch); err != nil {
			return fmt.Errorf("failed to store chunks: %w", err)
		}

		items := make([]port.VectorItem, len(batch))
		for j, c := range batch {
			items[j] = port.VectorItem{ID: c.ID, Vector: embeddings[j]}
		}
		if err := s.vectors.Upsert(items); err != nil {
			return fmt.Errorf("failed to store vectors: %w", err)
		}

		s.logger.Debug("embedded batch", "done", end, "total", len(chunks), "model", s.embedder.ModelName())
		if s.onProgress != nil {
			s.onProgress(end, len(chunks))
		}
	}

	return nil
}

// Search embeds query and returns the n nearest chunks with Distance set.
func (s *SemanticStore) Search(ctx context.Context, query string, n int) ([]domain.ScoredResult, error) {
	if n <= 0 {
		return nil, nil
	}

	vec, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	hits, err := s.vectors.Search(vec, n)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	results := make([]domain.ScoredResult, 0, len(hits))
	for _, hit := range hits {
		chunk, err := s.chunkStore.GetChunk(hit.ID)
		if err != nil {
			s.logger.Warn("vector without stored chunk", "id", hit.ID, "error", err)
			continue
		}
		results = append(results, domain.ScoredResult{
			Chunk:    chunk,
			Distance: domain.Score(hit.Distance),
		})
	}

	return results, nil
}

// Count returns the number of indexed vectors.
func (s *SemanticStore) Count(_ context.Context) (int, error) {
	return s.vectors.Count()
}

// Chunks returns every stored chunk.
func (s *SemanticStore) Chunks(_ context.Context) ([]domain.Chunk, error) {
	return s.chunkStore.ListChunks()
}
