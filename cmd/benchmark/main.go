package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"docsearch/config"
	"docsearch/internal/adapter/chunker"
	"docsearch/internal/adapter/embedding"
	"docsearch/internal/adapter/loader"
	"docsearch/internal/adapter/memstore"
	"docsearch/internal/adapter/retriever"
	"docsearch/internal/domain"
	"docsearch/internal/logging"
	"docsearch/internal/usecase"
)

type mode struct {
	name   string
	hybrid bool
	rerank bool
}

var modes = []mode{
	{"semantic", false, false},
	{"hybrid", true, false},
	{"rerank", false, true},
	{"hybrid+rerank", true, true},
}

func main() {
	docsPath := flag.String("docs", ".", "Directory of documents to index")
	query := flag.String("q", "", "Query to test")
	topK := flag.Int("n", 5, "Number of results")
	relevant := flag.String("relevant", "", "Comma-separated chunk IDs expected in the results")
	offline := flag.Bool("offline", false, "Use the hash embedder and overlap scorer")
	flag.Parse()

	if *query == "" {
		fmt.Println("Usage: go run ./cmd/benchmark -docs ./testdata -q \"query\" [-relevant a_0,b_1]")
		fmt.Println("\nCompares the four search modes on one query:")
		fmt.Println("  semantic, hybrid (BM25 fusion), rerank, hybrid+rerank")
		os.Exit(1)
	}

	cfg, err := config.LoadFromDir(*docsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *offline {
		cfg.Embedding.Provider = "hash"
		cfg.Embedding.Dimension = 256
		cfg.Rerank.Provider = "overlap"
	}
	logger := logging.New(cfg.Logging, os.Stderr)

	r, err := buildRetriever(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Setup failed: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	result, err := r.Index(ctx, *docsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Indexing failed: %v\n", err)
		os.Exit(1)
	}
	logger.Info("benchmark corpus ready", "documents", result.DocumentsLoaded, "chunks", result.TotalChunks)

	var relevantIDs []string
	if *relevant != "" {
		relevantIDs = strings.Split(*relevant, ",")
	}

	fmt.Println("SEARCH MODE BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Query: \"%s\"\n", *query)
	fmt.Printf("Embedding: %s (%s)\n", cfg.Embedding.Model, cfg.Embedding.Provider)
	fmt.Printf("Reranker available: %v\n\n", r.RerankConfigured())

	for _, m := range modes {
		results, err := r.Search(ctx, *query, usecase.SearchOptions{
			NResults:  *topK,
			UseHybrid: usecase.Bool(m.hybrid),
			UseRerank: usecase.Bool(m.rerank),
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: search error: %v\n", m.name, err)
			continue
		}

		fmt.Printf("%s\n", m.name)
		fmt.Println(strings.Repeat("-", 70))
		ids := make([]string, len(results))
		for i, res := range results {
			ids[i] = res.Chunk.ID
			fmt.Printf("%d. %-24s %s\n", i+1, res.Chunk.ID, scores(res))
		}

		if len(relevantIDs) > 0 {
			gains, ideal := retriever.BinaryGains(ids, relevantIDs)
			fmt.Printf("   P@%d %.3f  R@%d %.3f  MRR %.3f  nDCG %.3f\n",
				*topK, retriever.PrecisionAtK(ids, relevantIDs),
				*topK, retriever.RecallAtK(ids, relevantIDs),
				retriever.ReciprocalRank(ids, relevantIDs[0]),
				retriever.NDCG(gains, ideal),
			)
		}
		fmt.Println()
	}
}

func buildRetriever(cfg *config.Config) (*usecase.Retriever, error) {
	embedder, err := embedding.New(cfg.Embedding)
	if err != nil {
		return nil, err
	}
	chk, err := chunker.NewWordChunker(cfg.Index.ChunkSize, cfg.Index.ChunkOverlap)
	if err != nil {
		return nil, err
	}

	semantic := retriever.NewSemanticStore(embedder, memstore.NewHNSWIndex(embedder.Dimension()), memstore.NewMemoryStore())

	var rr *retriever.Reranker
	switch cfg.Rerank.Provider {
	case "overlap":
		rr = retriever.NewReranker(retriever.NewOverlapScorer())
	default:
		scorer, err := retriever.NewCohereScorer(cfg.Rerank.APIKeyEnv, cfg.Rerank.Model, cfg.Rerank.BaseURL)
		if err == nil {
			rr = retriever.NewReranker(scorer)
		}
	}

	opts := usecase.DefaultOptions()
	opts.RRFK = cfg.Retrieve.RRFK
	opts.KeywordCandidates = cfg.Retrieve.KeywordCandidates
	opts.RerankCandidates = cfg.Retrieve.RerankCandidates
	opts.K1, opts.B = cfg.Index.K1, cfg.Index.B

	return usecase.NewRetriever(loader.NewDirectoryLoader(cfg.Index.Includes, nil), chk, semantic, rr, opts, nil), nil
}

func scores(r domain.ScoredResult) string {
	var parts []string
	if r.Distance != nil {
		parts = append(parts, fmt.Sprintf("dist=%.3f", *r.Distance))
	}
	if r.RRFScore != nil {
		parts = append(parts, fmt.Sprintf("rrf=%.4f", *r.RRFScore))
	}
	if r.RerankScore != nil {
		parts = append(parts, fmt.Sprintf("rerank=%.3f", *r.RerankScore))
	}
	return strings.Join(parts, " ")
}
