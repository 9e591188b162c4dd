package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/symptomlog/internal/model"
	"github.com/ppiankov/symptomlog/internal/pipeline"
)

type extractOptions struct {
	userID     string
	recordedAt string
	outJSON    string
	outMD      string
	timeout    time.Duration
	noCache    bool
	noFooter   bool
	llm        bool
	llmModel   string
}

var extractOpts extractOptions

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract <source>",
	Short: "Extract structured symptoms from a journal entry",
	Long: `Extract reads a transcript from a file, an http(s) URL or stdin ("-")
and prints the structured result: symptom values, activities, triggers and
the confidence breakdown.

With --user the entry is also saved to the journal.

Example:
  echo "Pain about 6/10, grip weak, walked in the cold" | symptomlog extract -
  symptomlog extract today.txt --user alice --md today.md
  symptomlog extract notes.txt --user alice --llm`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExtract(cmd.Context(), appCfg, args[0], extractOpts, os.Stderr)
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringVar(&extractOpts.userID, "user", "", "save the entry for this user")
	extractCmd.Flags().StringVar(&extractOpts.recordedAt, "at", "", "entry time, RFC 3339 (default: now)")
	extractCmd.Flags().StringVar(&extractOpts.outJSON, "json", "-", "output JSON path (\"-\" = stdout, \"\" = none)")
	extractCmd.Flags().StringVar(&extractOpts.outMD, "md", "", "output Markdown path (optional)")
	extractCmd.Flags().DurationVar(&extractOpts.timeout, "timeout", time.Minute, "overall timeout")
	extractCmd.Flags().BoolVar(&extractOpts.noCache, "no-cache", false, "disable the result cache")
	extractCmd.Flags().BoolVar(&extractOpts.noFooter, "no-footer", false, "disable footer in Markdown reports")
	extractCmd.Flags().BoolVar(&extractOpts.llm, "llm", false, "attach an LLM recap (requires llm.provider)")
	extractCmd.Flags().StringVar(&extractOpts.llmModel, "llm-model", "", "override llm.model")
}

func runExtract(ctx context.Context, cfg *model.Config, src string, opts extractOptions, stderr io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	cfg.Cache.Enabled = cfg.Cache.Enabled && !opts.noCache
	cfg.Output.IncludeFooter = cfg.Output.IncludeFooter && !opts.noFooter
	if opts.llmModel != "" {
		cfg.LLM.Model = opts.llmModel
	}
	if opts.llm && cfg.LLM.Provider == "" {
		return fmt.Errorf("--llm needs llm.provider (config file or SYMPTOMLOG_LLM_PROVIDER)")
	}

	var recordedAt time.Time
	if opts.recordedAt != "" {
		t, err := time.Parse(time.RFC3339, opts.recordedAt)
		if err != nil {
			return fmt.Errorf("invalid --at: %w", err)
		}
		recordedAt = t
	}

	source, err := pipeline.NewSourceLoader(cfg.Source).Load(ctx, src)
	if err != nil {
		return fmt.Errorf("load source: %w", err)
	}
	if cfg.Output.Verbose {
		fmt.Fprintf(stderr, "✓ Loaded %d bytes from %s\n", len(source.Text), source.Origin)
	}

	a, err := newApp(cfg, appOptions{persist: opts.userID != "", recap: opts.llm})
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	var entry *model.Entry
	if opts.userID != "" {
		entry, err = a.pipeline.Record(ctx, pipeline.Submission{
			UserID:     opts.userID,
			Transcript: source.Text,
			RecordedAt: recordedAt,
		})
		if err != nil {
			return fmt.Errorf("record entry: %w", err)
		}
		fmt.Fprintf(stderr, "✓ Saved entry %s for %s\n", entry.ID, entry.UserID)
	} else {
		analysis, err := a.pipeline.Analyze(ctx, source.Text)
		if err != nil {
			return fmt.Errorf("extract: %w", err)
		}
		entry = &model.Entry{RecordedAt: recordedAt, Result: analysis.Result, Confidence: analysis.Confidence}
		if a.recapper != nil {
			recap, err := a.recapper.Recap(ctx, entry)
			if err != nil {
				fmt.Fprintf(stderr, "✗ Recap failed: %v\n", err)
			} else {
				entry.Recap = recap
			}
		}
	}

	if cfg.Output.Verbose {
		pipeline.NewRenderer(cfg.Output.IncludeFooter).RenderSummary(stderr, entry)
	}

	return renderEntry(cfg, entry, opts.outJSON, opts.outMD)
}

func renderEntry(cfg *model.Config, entry *model.Entry, outJSON, outMD string) error {
	renderer := pipeline.NewRenderer(cfg.Output.IncludeFooter)
	if outJSON != "" {
		if err := renderer.RenderJSON(entry, outJSON); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
	}
	if outMD != "" {
		if err := renderer.RenderMarkdown(entry, outMD); err != nil {
			return fmt.Errorf("render Markdown: %w", err)
		}
	}
	return nil
}
