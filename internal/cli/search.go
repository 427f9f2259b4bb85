package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"docsearch/internal/domain"
	"docsearch/internal/usecase"
)

var (
	searchQuery    string
	searchN        int
	searchJSON     bool
	searchNoHybrid bool
	searchNoRerank bool
	searchDocs     string
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search indexed documents",
	Long: `Search for relevant chunks. Semantic results are fused with BM25 keyword
results and reranked unless disabled.

Examples:
  docsearch search -q "warranty terms"
  docsearch search -q "warranty terms" -n 10 --no-rerank --json
  docsearch search -q "setup" --docs ./manuals   # index, then search`,
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringVarP(&searchQuery, "query", "q", "", "search query (required)")
	searchCmd.Flags().IntVarP(&searchN, "n-results", "n", 0, "number of results (default from config)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output as JSON")
	searchCmd.Flags().BoolVar(&searchNoHybrid, "no-hybrid", false, "disable keyword fusion")
	searchCmd.Flags().BoolVar(&searchNoRerank, "no-rerank", false, "disable cross-encoder reranking")
	searchCmd.Flags().StringVar(&searchDocs, "docs", "", "index this directory before searching")
	searchCmd.MarkFlagRequired("query")
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	ctx := cmd.Context()

	p, err := openPipeline(cfg, GetRootDir(), searchDocs != "", logger)
	if err != nil {
		return err
	}
	defer p.Close()

	if _, err := p.retriever.Restore(ctx); err != nil {
		return err
	}
	if searchDocs != "" {
		dir, err := filepath.Abs(searchDocs)
		if err != nil {
			return fmt.Errorf("invalid path: %w", err)
		}
		if _, err := p.retriever.Index(ctx, dir); err != nil {
			return fmt.Errorf("indexing failed: %w", err)
		}
		if err := p.stamp(cfg); err != nil {
			return fmt.Errorf("failed to update schema info: %w", err)
		}
	}

	opts := usecase.SearchOptions{NResults: searchN}
	if searchNoHybrid {
		opts.UseHybrid = usecase.Bool(false)
	}
	if searchNoRerank {
		opts.UseRerank = usecase.Bool(false)
	}

	results, err := p.retriever.Search(ctx, searchQuery, opts)
	if errors.Is(err, domain.ErrNotIndexed) {
		return fmt.Errorf("no index found. Run 'docsearch index' or pass --docs")
	}
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		output, _ := json.MarshalIndent(toResultJSON(results), "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}
	fmt.Printf("Found %d results for: %s\n\n", len(results), searchQuery)
	for i, r := range results {
		fmt.Printf("--- [%d] %s (%s) ---\n", i+1, r.Chunk.ID, scoreSummary(r))
		fmt.Println(preview(r.Chunk.Text, 500))
		fmt.Println()
	}
	return nil
}

// preview cuts text to at most limit bytes on a rune boundary.
func preview(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "..."
}

// resultJSON is the JSON shape of a search result. Absent stages are omitted.
type resultJSON struct {
	ID          string         `json:"id"`
	Text        string         `json:"text"`
	Metadata    map[string]any `json:"metadata"`
	Distance    *float64       `json:"distance,omitempty"`
	BM25Score   *float64       `json:"bm25_score,omitempty"`
	RRFScore    *float64       `json:"rrf_score,omitempty"`
	RerankScore *float64       `json:"rerank_score,omitempty"`
}

func toResultJSON(results []domain.ScoredResult) []resultJSON {
	out := make([]resultJSON, len(results))
	for i, r := range results {
		out[i] = resultJSON{
			ID:          r.Chunk.ID,
			Text:        r.Chunk.Text,
			Metadata:    domain.ChunkMetadata(r.Chunk),
			Distance:    r.Distance,
			BM25Score:   r.BM25Score,
			RRFScore:    r.RRFScore,
			RerankScore: r.RerankScore,
		}
	}
	return out
}

func scoreSummary(r domain.ScoredResult) string {
	s := ""
	add := func(name string, v *float64) {
		if v == nil {
			return
		}
		if s != "" {
			s += ", "
		}
		s += fmt.Sprintf("%s: %.4f", name, *v)
	}
	add("distance", r.Distance)
	add("bm25", r.BM25Score)
	add("rrf", r.RRFScore)
	add("rerank", r.RerankScore)
	return s
}
