package cli

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Index documents for retrieval",
	Long: `Index the .txt and .pdf files in the specified directory.
With the bolt backend the index is stored in .docsearch/index.db under --dir
and grows across runs; re-indexed files replace their earlier chunks.

Examples:
  docsearch index              # Index current directory
  docsearch index ./manuals    # Index a specific directory`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	path := GetRootDir()
	if len(args) > 0 {
		var err error
		path, err = filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("invalid path: %w", err)
		}
	}

	cfg := GetConfig()
	p, err := openPipeline(cfg, GetRootDir(), true, logger)
	if err != nil {
		return err
	}
	defer p.Close()

	if p.rebuilt != "" {
		fmt.Printf("Index rebuild required: %s\n", p.rebuilt)
	}
	if _, err := p.retriever.Restore(cmd.Context()); err != nil {
		return err
	}

	fmt.Printf("Indexing %s...\n", path)

	var bar *progressbar.ProgressBar
	var barMu sync.Mutex
	var startTime time.Time

	p.semantic.SetProgress(func(done, total int) {
		barMu.Lock()
		defer barMu.Unlock()

		if bar == nil {
			startTime = time.Now()
			bar = progressbar.NewOptions(total,
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowBytes(false),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]Embedding[reset]"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					fmt.Println()
				}),
			)
		}

		bar.Set(done)

		elapsed := time.Since(startTime)
		rate := float64(done) / elapsed.Seconds()
		if rate > 0 {
			eta := time.Duration(float64(total-done)/rate) * time.Second
			bar.Describe(fmt.Sprintf("[cyan]Embedding[reset] ETA: %s", formatDuration(eta)))
		}
	})

	result, err := p.retriever.Index(cmd.Context(), path)
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	if err := p.stamp(cfg); err != nil {
		return fmt.Errorf("failed to update schema info: %w", err)
	}

	fmt.Printf("\nIndexing complete:\n")
	fmt.Printf("  Documents loaded: %d\n", result.DocumentsLoaded)
	fmt.Printf("  Chunks added:     %d\n", result.ChunksAdded)
	fmt.Printf("  Total chunks:     %d\n", result.TotalChunks)
	fmt.Printf("  Embedding model:  %s (%s)\n", cfg.Embedding.Model, cfg.Embedding.Provider)

	if p.dbPath != "" {
		fmt.Printf("\nIndex stored at: %s\n", p.dbPath)
	} else {
		fmt.Println("\nMemory backend: the index is discarded on exit. Use 'docsearch search --docs' instead.")
	}
	return nil
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "<1s"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", h, m)
}
