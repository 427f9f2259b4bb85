package chunker

import (
	"fmt"
	"strings"

	"docsearch/internal/domain"
)

// WordChunker splits documents into overlapping windows of whitespace-separated words.
type WordChunker struct {
	chunkSize int
	overlap   int
}

// NewWordChunker creates a chunker emitting windows of chunkSize words where
// consecutive windows share overlap words. Overlap must lie in [0, chunkSize/2].
func NewWordChunker(chunkSize, overlap int) (*WordChunker, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrInvalidConfig, chunkSize)
	}
	if overlap < 0 || 2*overlap > chunkSize {
		return nil, fmt.Errorf("%w: overlap must be between 0 and half the chunk size, got overlap=%d chunk_size=%d",
			domain.ErrInvalidConfig, overlap, chunkSize)
	}
	return &WordChunker{
		chunkSize: chunkSize,
		overlap:   overlap,
	}, nil
}

// ChunkSize returns the window size in words.
func (c *WordChunker) ChunkSize() int {
	return c.chunkSize
}

// Overlap returns the number of words shared by consecutive windows.
func (c *WordChunker) Overlap() int {
	return c.overlap
}

// Chunk splits doc into windows. Chunks inherit a copy of doc.Metadata.
func (c *WordChunker) Chunk(doc domain.Document) []domain.Chunk {
	words := strings.Fields(doc.Text)

	// Short documents are kept verbatim rather than re-joined.
	if len(words) <= c.chunkSize {
		return []domain.Chunk{newChunk(doc, 0, doc.Text)}
	}

	step := c.chunkSize - c.overlap
	chunks := make([]domain.Chunk, 0, (len(words)+step-1)/step)
	for start, index := 0, 0; start < len(words); start, index = start+step, index+1 {
		end := start + c.chunkSize
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, newChunk(doc, index, strings.Join(words[start:end], " ")))
	}
	return chunks
}

func newChunk(doc domain.Document, index int, text string) domain.Chunk {
	meta := make(map[string]any, len(doc.Metadata))
	for k, v := range doc.Metadata {
		meta[k] = v
	}
	return domain.Chunk{
		ID:       fmt.Sprintf("%s_%d", doc.ID, index),
		DocID:    doc.ID,
		Index:    index,
		Text:     text,
		Metadata: meta,
	}
}
