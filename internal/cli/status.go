package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show index state and retrieval settings",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	p, err := openPipeline(cfg, GetRootDir(), false, logger)
	if err != nil {
		return err
	}
	defer p.Close()

	if _, err := p.retriever.Restore(cmd.Context()); err != nil {
		return err
	}
	stats, err := p.retriever.Stats(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("Backend:    %s\n", cfg.Store.Backend)
	if p.dbPath != "" {
		fmt.Printf("Index:      %s\n", p.dbPath)
	}
	fmt.Printf("Indexed:    %v\n", stats.Indexed)
	fmt.Printf("Chunks:     %d\n", stats.Chunks)
	fmt.Printf("Chunking:   %d words, %d overlap\n", cfg.Index.ChunkSize, cfg.Index.ChunkOverlap)
	fmt.Printf("Embedding:  %s (%s, dim %d)\n", cfg.Embedding.Model, cfg.Embedding.Provider, cfg.Embedding.Dimension)
	fmt.Printf("Hybrid:     %v\n", p.retriever.HybridConfigured())
	fmt.Printf("Rerank:     %v\n", p.retriever.RerankConfigured())
	return nil
}
