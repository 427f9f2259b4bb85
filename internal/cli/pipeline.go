package cli

import (
	"fmt"
	"log/slog"

	"docsearch/config"
	"docsearch/internal/adapter/chunker"
	"docsearch/internal/adapter/embedding"
	"docsearch/internal/adapter/loader"
	"docsearch/internal/adapter/memstore"
	"docsearch/internal/adapter/retriever"
	"docsearch/internal/adapter/store"
	"docsearch/internal/port"
	"docsearch/internal/usecase"
)

// pipeline holds a wired Retriever and the resources behind it.
type pipeline struct {
	retriever *usecase.Retriever
	semantic  *retriever.SemanticStore
	bolt      *store.BoltStore // nil for the memory backend
	dbPath    string
	rebuilt   string // non-empty when a stale bolt index was cleared
}

func (p *pipeline) Close() error {
	if p.bolt != nil {
		return p.bolt.Close()
	}
	return nil
}

// stamp records the config the bolt index was built with.
func (p *pipeline) stamp(cfg *config.Config) error {
	if p.bolt == nil {
		return nil
	}
	return p.bolt.Stamp(cfg)
}

// openPipeline wires the retriever for cfg. With the bolt backend the index
// lives under root; a stale index is cleared when clearStale is set and
// reported as an error otherwise.
func openPipeline(cfg *config.Config, root string, clearStale bool, log *slog.Logger) (*pipeline, error) {
	if log == nil {
		log = slog.Default()
	}

	embedder, err := embedding.New(cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	p := &pipeline{}
	var chunkStore port.ChunkStore
	var vectors port.VectorIndex

	switch cfg.Store.Backend {
	case "memory":
		chunkStore = memstore.NewMemoryStore()
		vectors = memstore.NewHNSWIndex(embedder.Dimension())
	default:
		if err := config.EnsureDir(root); err != nil {
			return nil, fmt.Errorf("failed to create %s directory: %w", config.DirName, err)
		}
		p.dbPath = config.IndexDBPath(root)
		st, err := store.NewBoltStore(p.dbPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open index store: %w", err)
		}
		p.bolt = st

		check, err := st.CheckSchema(cfg)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("failed to check index schema: %w", err)
		}
		if check.NeedsRebuild {
			if !clearStale {
				st.Close()
				return nil, fmt.Errorf("index is out of date (%s); run 'docsearch index' again", check.Reason)
			}
			log.Warn("clearing stale index", "reason", check.Reason)
			if err := st.Clear(); err != nil {
				st.Close()
				return nil, fmt.Errorf("failed to clear index: %w", err)
			}
			p.rebuilt = check.Reason
		}

		vs, err := store.NewBoltVectorStore(st.DB(), embedder.Dimension())
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("failed to open vector store: %w", err)
		}
		chunkStore = st
		vectors = vs
	}

	chk, err := chunker.NewWordChunker(cfg.Index.ChunkSize, cfg.Index.ChunkOverlap)
	if err != nil {
		p.Close()
		return nil, err
	}

	p.semantic = retriever.NewSemanticStore(embedder, vectors, chunkStore,
		retriever.WithBatchSize(cfg.Embedding.BatchSize),
		retriever.WithLogger(log),
	)

	p.retriever = usecase.NewRetriever(
		loader.NewDirectoryLoader(cfg.Index.Includes, log),
		chk,
		p.semantic,
		newReranker(cfg, log),
		retrieverOptions(cfg),
		log,
	)
	return p, nil
}

// newReranker returns nil when reranking is disabled or unavailable.
func newReranker(cfg *config.Config, log *slog.Logger) *retriever.Reranker {
	if !cfg.Retrieve.Rerank {
		return nil
	}

	var scorer port.Scorer
	switch cfg.Rerank.Provider {
	case "overlap":
		scorer = retriever.NewOverlapScorer()
	default:
		s, err := retriever.NewCohereScorer(cfg.Rerank.APIKeyEnv, cfg.Rerank.Model, cfg.Rerank.BaseURL)
		if err != nil {
			log.Warn("reranking disabled", "error", err)
			return nil
		}
		scorer = s
	}
	return retriever.NewReranker(scorer)
}

func retrieverOptions(cfg *config.Config) usecase.Options {
	return usecase.Options{
		NResults:          cfg.Retrieve.NResults,
		Hybrid:            cfg.Retrieve.Hybrid,
		RRFK:              cfg.Retrieve.RRFK,
		KeywordCandidates: cfg.Retrieve.KeywordCandidates,
		RerankCandidates:  cfg.Retrieve.RerankCandidates,
		K1:                cfg.Index.K1,
		B:                 cfg.Index.B,
	}
}
