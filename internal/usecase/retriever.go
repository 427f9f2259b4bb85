package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"docsearch/internal/adapter/retriever"
	"docsearch/internal/domain"
	"docsearch/internal/port"
)

// Options configures a Retriever.
type Options struct {
	// NResults is the result count used when a search does not set one.
	NResults int
	// Hybrid builds a keyword index alongside the semantic store.
	Hybrid bool
	// RRFK is the fusion smoothing constant.
	RRFK int
	// KeywordCandidates is how many keyword results are fused per query.
	KeywordCandidates int
	// RerankCandidates is the semantic recall floor when reranking.
	RerankCandidates int
	// K1 and B are the BM25 parameters.
	K1, B float64
}

// DefaultOptions returns the standard retrieval settings.
func DefaultOptions() Options {
	return Options{
		NResults:          5,
		Hybrid:            true,
		RRFK:              retriever.DefaultRRFConstant,
		KeywordCandidates: retriever.DefaultKeywordCandidates,
		RerankCandidates:  20,
		K1:                retriever.DefaultK1,
		B:                 retriever.DefaultB,
	}
}

// SearchOptions overrides retrieval behaviour for one call. A nil toggle
// keeps the configured behaviour; false disables the stage. A stage that was
// not configured cannot be enabled per call.
type SearchOptions struct {
	NResults  int
	UseHybrid *bool
	UseRerank *bool
}

// Bool returns a pointer to v for SearchOptions toggles.
func Bool(v bool) *bool {
	return &v
}

// IndexResult contains the results of an indexing operation.
type IndexResult struct {
	DocumentsLoaded int
	ChunksAdded     int // growth of the semantic store
	TotalChunks     int
}

// Retriever runs the load, chunk, index and search pipeline. It starts out
// empty and becomes indexed after the first successful Index or a Restore
// that finds stored chunks.
type Retriever struct {
	mu sync.RWMutex

	loader   port.DocumentLoader
	chunker  port.Chunker
	store    port.SemanticStore
	reranker *retriever.Reranker // nil when reranking is not configured
	hybrid   *retriever.HybridSearcher
	opts     Options
	logger   *slog.Logger

	// corpus is every chunk ever indexed, keyed by ID, in first-seen order.
	corpus  map[string]domain.Chunk
	order   []string
	keyword *retriever.KeywordIndex
	indexed bool
}

// NewRetriever wires the pipeline. reranker may be nil to disable reranking.
// A nil logger falls back to slog.Default().
func NewRetriever(
	loader port.DocumentLoader,
	chunker port.Chunker,
	store port.SemanticStore,
	reranker *retriever.Reranker,
	opts Options,
	logger *slog.Logger,
) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.NResults <= 0 {
		opts.NResults = DefaultOptions().NResults
	}
	if opts.RerankCandidates <= 0 {
		opts.RerankCandidates = DefaultOptions().RerankCandidates
	}

	r := &Retriever{
		loader:   loader,
		chunker:  chunker,
		store:    store,
		reranker: reranker,
		opts:     opts,
		logger:   logger,
		corpus:   make(map[string]domain.Chunk),
	}
	if opts.Hybrid {
		r.keyword = retriever.NewKeywordIndex(nil, opts.K1, opts.B)
		r.hybrid = r.newHybrid()
	}
	return r
}

func (r *Retriever) newHybrid() *retriever.HybridSearcher {
	return retriever.NewHybridSearcher(retriever.NewRankFuser(r.opts.RRFK), r.keyword, r.opts.KeywordCandidates)
}

// Index loads every document in dir, chunks it and adds the chunks to the
// semantic store. With hybrid search configured, the keyword index is
// rebuilt over all chunks indexed so far; a chunk ID seen again replaces
// its earlier version. If the store fails partway, the keyword corpus takes
// only the chunks the store committed before the error.
func (r *Retriever) Index(ctx context.Context, dir string) (*IndexResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	docs, err := r.loader.LoadDocuments(ctx, dir)
	if err != nil {
		return nil, err
	}

	result, err := r.indexDocuments(ctx, docs)
	if err != nil {
		return nil, err
	}
	r.logger.Info("indexed directory",
		"dir", dir,
		"documents", result.DocumentsLoaded,
		"chunks_added", result.ChunksAdded,
		"total_chunks", result.TotalChunks,
	)
	return result, nil
}

// IndexDocuments indexes documents that were loaded elsewhere, with the
// same semantics as Index.
func (r *Retriever) IndexDocuments(ctx context.Context, docs []domain.Document) (*IndexResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.indexDocuments(ctx, docs)
}

func (r *Retriever) indexDocuments(ctx context.Context, docs []domain.Document) (*IndexResult, error) {
	var chunks []domain.Chunk
	for _, doc := range docs {
		chunks = append(chunks, r.chunker.Chunk(doc)...)
	}

	before, err := r.store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count stored chunks: %w", err)
	}
	if err := r.store.Add(ctx, chunks); err != nil {
		r.addCommitted(ctx, chunks)
		return nil, fmt.Errorf("failed to index chunks: %w", err)
	}
	after, err := r.store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count stored chunks: %w", err)
	}

	r.addToCorpus(chunks)
	r.indexed = true

	return &IndexResult{
		DocumentsLoaded: len(docs),
		ChunksAdded:     after - before,
		TotalChunks:     after,
	}, nil
}

// Restore rebuilds in-memory state from chunks already held by the semantic
// store, such as a persistent index from an earlier run. It returns the
// number of chunks found; the retriever becomes indexed if there are any.
func (r *Retriever) Restore(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	chunks, err := r.store.Chunks(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list stored chunks: %w", err)
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	r.corpus = make(map[string]domain.Chunk, len(chunks))
	r.order = nil
	r.addToCorpus(chunks)
	r.indexed = true

	r.logger.Debug("restored index", "chunks", len(chunks))
	return len(chunks), nil
}

// addCommitted adds to the corpus the chunks of a failed Add that the store
// nevertheless holds. Must be called with the write lock held.
func (r *Retriever) addCommitted(ctx context.Context, chunks []domain.Chunk) {
	stored, err := r.store.Chunks(ctx)
	if err != nil {
		r.logger.Warn("could not list stored chunks after failed add", "error", err)
		return
	}

	want := make(map[string]struct{}, len(chunks))
	for _, c := range chunks {
		want[c.ID] = struct{}{}
	}
	var committed []domain.Chunk
	for _, c := range stored {
		if _, ok := want[c.ID]; ok {
			committed = append(committed, c)
		}
	}
	if len(committed) == 0 {
		return
	}

	r.addToCorpus(committed)
	r.indexed = true
	r.logger.Warn("index partially applied", "committed", len(committed), "requested", len(chunks))
}

// addToCorpus must be called with the write lock held.
func (r *Retriever) addToCorpus(chunks []domain.Chunk) {
	for _, c := range chunks {
		if _, ok := r.corpus[c.ID]; !ok {
			r.order = append(r.order, c.ID)
		}
		r.corpus[c.ID] = c
	}

	if r.keyword == nil {
		return
	}
	all := make([]domain.Chunk, len(r.order))
	for i, id := range r.order {
		all[i] = r.corpus[id]
	}
	r.keyword = retriever.NewKeywordIndex(all, r.opts.K1, r.opts.B)
	r.hybrid = r.newHybrid()
}

// Search returns up to n chunks relevant to query.
//
// Semantic recall fetches max(RerankCandidates, n) results when reranking
// applies and n otherwise. With hybrid search the semantic list is fused
// with keyword results and cut to n. Reranking then reorders the remaining
// candidates and cuts to n.
func (r *Retriever) Search(ctx context.Context, query string, opts SearchOptions) ([]domain.ScoredResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.indexed {
		return nil, domain.ErrNotIndexed
	}

	n := opts.NResults
	if n <= 0 {
		n = r.opts.NResults
	}
	applyHybrid := !isFalse(opts.UseHybrid) && r.hybrid != nil
	applyRerank := !isFalse(opts.UseRerank) && r.reranker != nil

	initialK := n
	if applyRerank {
		initialK = max(r.opts.RerankCandidates, n)
	}

	var semantic, keyword []domain.ScoredResult
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		semantic, err = r.store.Search(gctx, query, initialK)
		if err != nil {
			return fmt.Errorf("semantic search failed: %w", err)
		}
		return nil
	})
	if applyHybrid {
		g.Go(func() error {
			keyword = r.keyword.Search(query, r.hybrid.Candidates())
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	results := semantic
	if applyHybrid {
		results = r.hybrid.Fuse(semantic, keyword, n)
	}

	if applyRerank {
		reranked, err := r.reranker.Rerank(ctx, query, results, n)
		if err != nil {
			return nil, err
		}
		results = reranked
	} else if len(results) > n {
		results = results[:n]
	}

	r.logger.Debug("search",
		"query", query,
		"n", n,
		"initial_k", initialK,
		"hybrid", applyHybrid,
		"rerank", applyRerank,
		"results", len(results),
	)
	return results, nil
}

// Stats reports whether the retriever is indexed and how many chunks the
// semantic store holds.
func (r *Retriever) Stats(ctx context.Context) (domain.Stats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count, err := r.store.Count(ctx)
	if err != nil {
		return domain.Stats{}, err
	}
	return domain.Stats{Indexed: r.indexed, Chunks: count}, nil
}

// HybridConfigured reports whether a keyword index is maintained.
func (r *Retriever) HybridConfigured() bool {
	return r.hybrid != nil
}

// RerankConfigured reports whether a reranker is attached.
func (r *Retriever) RerankConfigured() bool {
	return r.reranker != nil
}

func isFalse(b *bool) bool {
	return b != nil && !*b
}
