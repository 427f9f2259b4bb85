package port

import (
	"context"

	"docsearch/internal/domain"
)

// DocumentLoader reads every supported file in a directory into documents.
type DocumentLoader interface {
	LoadDocuments(ctx context.Context, dir string) ([]domain.Document, error)
}
