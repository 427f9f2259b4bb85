package port

import "context"

// Scorer computes pairwise (query, text) relevance. Higher is more relevant.
type Scorer interface {
	// Score returns one score per text, in input order.
	Score(ctx context.Context, query string, texts []string) ([]float64, error)

	// ModelName returns the name of the scoring model.
	ModelName() string
}
