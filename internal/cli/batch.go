package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/symptomlog/internal/model"
	"github.com/ppiankov/symptomlog/internal/pipeline"
	"github.com/ppiankov/symptomlog/internal/worker"
)

type batchOptions struct {
	userID      string
	concurrency int
	outputDir   string
	timeout     time.Duration
	noCache     bool
	llm         bool
}

var batchOpts batchOptions

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Record many journal entries from a file in parallel",
	Long: `Batch records one submission per line:
- JSON lines: {"user_id": "...", "transcript": "...", "recorded_at": "..."}
- Plain lines: a bare transcript for --user
Blank lines and # comments are skipped. "-" reads stdin.

Example:
  symptomlog batch week.jsonl
  symptomlog batch notes.txt --user alice --concurrency 8
  symptomlog batch week.jsonl --output-dir ./entries`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBatch(cmd.Context(), appCfg, args[0], batchOpts, os.Stderr)
	},
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringVar(&batchOpts.userID, "user", "", "user for plain-text lines and JSON lines without user_id")
	batchCmd.Flags().IntVar(&batchOpts.concurrency, "concurrency", 0, "number of concurrent workers (default: concurrency.workers)")
	batchCmd.Flags().StringVar(&batchOpts.outputDir, "output-dir", "", "also write each entry as <id>.json to this directory")
	batchCmd.Flags().DurationVar(&batchOpts.timeout, "timeout", 10*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().BoolVar(&batchOpts.noCache, "no-cache", false, "disable the result cache")
	batchCmd.Flags().BoolVar(&batchOpts.llm, "llm", false, "attach LLM recaps (requires llm.provider)")
}

func runBatch(ctx context.Context, cfg *model.Config, file string, opts batchOptions, stderr io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	workers := opts.concurrency
	if workers <= 0 {
		workers = cfg.Concurrency.Workers
	}
	cfg.Cache.Enabled = cfg.Cache.Enabled && !opts.noCache

	fmt.Fprintf(stderr, "\n")
	fmt.Fprintf(stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(stderr, "  symptomlog batch\n")
	fmt.Fprintf(stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(stderr, "\n")
	fmt.Fprintf(stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(stderr, "  Workers:      %d\n", workers)
	fmt.Fprintf(stderr, "  Journal:      %s\n", cfg.Store.Path)
	fmt.Fprintf(stderr, "\n")

	items, err := worker.ReadSubmissionsFile(file, opts.userID)
	if err != nil {
		return fmt.Errorf("read submissions: %w", err)
	}
	fmt.Fprintf(stderr, "✓ Loaded %d submissions\n\n", len(items))

	if opts.outputDir != "" {
		if err := os.MkdirAll(opts.outputDir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	a, err := newApp(cfg, appOptions{persist: true, recap: opts.llm})
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	results := worker.NewBatchProcessor(a.pipeline, workers).Process(ctx, items)

	renderer := pipeline.NewRenderer(cfg.Output.IncludeFooter)
	successCount, failureCount := 0, 0
	for _, result := range results {
		if result.Error != nil {
			failureCount++
			fmt.Fprintf(stderr, "✗ line %d: %v\n", result.Line, result.Error)
			continue
		}
		successCount++

		if opts.outputDir != "" {
			path := filepath.Join(opts.outputDir, result.Entry.ID+".json")
			if err := renderer.RenderJSON(result.Entry, path); err != nil {
				fmt.Fprintf(stderr, "✗ line %d: failed to write JSON: %v\n", result.Line, err)
				continue
			}
		}

		fmt.Fprintf(stderr, "✓ line %d: %s %s (confidence: %d/100)\n",
			result.Line, result.UserID, result.Entry.ID, result.Entry.Confidence.Index)
	}

	fmt.Fprintf(stderr, "\n")
	fmt.Fprintf(stderr, "  Total:     %d\n", len(results))
	fmt.Fprintf(stderr, "  Success:   %d\n", successCount)
	fmt.Fprintf(stderr, "  Failures:  %d\n", failureCount)
	fmt.Fprintf(stderr, "\n")

	if failureCount > 0 && successCount == 0 {
		return fmt.Errorf("all %d submissions failed", failureCount)
	}
	return nil
}
