package domain

// Document is a unit of ingested text. IDs are unique within a corpus snapshot.
type Document struct {
	ID       string
	Text     string
	Metadata map[string]any
}

// Chunk is a contiguous word window of a parent document.
// ID is "{DocID}_{Index}". Metadata carries the parent's metadata.
type Chunk struct {
	ID       string
	DocID    string
	Index    int
	Text     string
	Metadata map[string]any
}

// ScoredResult is a chunk annotated by the pipeline stages that touched it.
// A nil score field means the stage producing it did not run for this result.
type ScoredResult struct {
	Chunk       Chunk
	Distance    *float64 // semantic, lower is more similar
	BM25Score   *float64 // keyword, higher is more relevant
	RRFScore    *float64 // fused rank score
	RerankScore *float64 // pairwise relevance
}

// Score returns a pointer to v for use in the optional score fields.
func Score(v float64) *float64 {
	return &v
}

// Clone returns a copy whose score pointers are not shared with r.
func (r ScoredResult) Clone() ScoredResult {
	out := ScoredResult{Chunk: r.Chunk}
	if r.Distance != nil {
		out.Distance = Score(*r.Distance)
	}
	if r.BM25Score != nil {
		out.BM25Score = Score(*r.BM25Score)
	}
	if r.RRFScore != nil {
		out.RRFScore = Score(*r.RRFScore)
	}
	if r.RerankScore != nil {
		out.RerankScore = Score(*r.RerankScore)
	}
	return out
}

// ChunkMetadata flattens a chunk's typed fields and inherited metadata
// into a single map, as exposed to callers.
func ChunkMetadata(c Chunk) map[string]any {
	m := make(map[string]any, len(c.Metadata)+2)
	for k, v := range c.Metadata {
		m[k] = v
	}
	m["chunk"] = c.Index
	m["doc_id"] = c.DocID
	return m
}

// Stats describes the retriever's corpus state.
type Stats struct {
	Indexed bool
	Chunks  int
}
