package port

import "docsearch/internal/domain"

type Chunker interface {
	Chunk(doc domain.Document) []domain.Chunk
}
