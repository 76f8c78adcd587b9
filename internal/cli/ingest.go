package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"paperrag/internal/adapter/fs"
	"paperrag/internal/adapter/pdf"
	"paperrag/internal/usecase"
)

var ingestForce bool

var ingestCmd = &cobra.Command{
	Use:   "ingest [dir]",
	Short: "Ingest PDFs into the vector store",
	Long: `Parse every PDF in the directory, extract its metadata, embed it and
append it to the vector store. Files already ingested with the same content
are skipped unless --force is given. Unreadable PDFs are reported and skipped.

Examples:
  rag ingest                  # Ingest the configured corpus directory
  rag ingest ./papers         # Ingest a specific directory
  rag ingest ./papers --force # Re-ingest everything`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().BoolVar(&ingestForce, "force", false, "re-ingest files already recorded in the manifest")
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	logger := GetLogger()

	path := cfg.Corpus.Dir
	if len(args) > 0 {
		var err error
		path, err = filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("invalid path: %w", err)
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("path does not exist: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}

	a, err := openApp(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	walker := fs.NewWalker(cfg.Corpus.Includes, cfg.Corpus.Excludes)
	ingestUC := usecase.NewIngestUseCase(pdf.NewReader(), walker, a.store, a.manifest, logger)

	fmt.Printf("Scanning %s...\n", path)

	progress := newStageProgress()
	result, err := ingestUC.Run(cmd.Context(), path, usecase.IngestOptions{
		Force:    ingestForce,
		Progress: progress.update,
	})
	progress.finish()
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	fmt.Printf("\nIngestion complete:\n")
	fmt.Printf("  PDFs found:     %d\n", result.FilesFound)
	fmt.Printf("  Ingested:       %d\n", result.FilesIngested)
	fmt.Printf("  Skipped:        %d (already ingested)\n", result.FilesSkipped)
	fmt.Printf("  Failed:         %d\n", result.FilesFailed)
	fmt.Printf("  Documents:      %d\n", result.TotalDocs)

	if len(result.Errors) > 0 {
		fmt.Printf("\nWarnings:\n")
		for _, e := range result.Errors {
			fmt.Printf("  - %s\n", e)
		}
	}

	fmt.Printf("\nStore at: %s\n", cfg.Store.Dir)
	return nil
}

// stageProgress shows one progress bar per ingestion stage.
type stageProgress struct {
	mu    sync.Mutex
	stage string
	bar   *progressbar.ProgressBar
	start time.Time
}

func newStageProgress() *stageProgress {
	return &stageProgress{}
}

func (p *stageProgress) update(stage string, done, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if stage != p.stage {
		if p.bar != nil {
			p.bar.Finish()
		}
		p.stage = stage
		p.start = time.Now()
		p.bar = progressbar.NewOptions(total,
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionShowBytes(false),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionSetDescription(stageLabel(stage)),
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

	p.bar.Set(done)

	if done > 0 && done < total {
		elapsed := time.Since(p.start)
		rate := float64(done) / elapsed.Seconds()
		if rate > 0 {
			eta := time.Duration(float64(total-done)/rate) * time.Second
			p.bar.Describe(fmt.Sprintf("%s ETA: %s", stageLabel(stage), formatDuration(eta)))
		}
	}
}

func (p *stageProgress) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar != nil {
		p.bar.Finish()
	}
}

func stageLabel(stage string) string {
	switch stage {
	case usecase.StageParse:
		return "[cyan]Parsing[reset]"
	case usecase.StageEmbed:
		return "[cyan]Embedding[reset]"
	default:
		return stage
	}
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
