package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/symptomlog/internal/model"
	"github.com/ppiankov/symptomlog/internal/pipeline"
)

var (
	statsJSON   bool
	statsRecent int
)

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats <user>",
	Short: "Show per-symptom statistics for a user",
	Long: `Stats aggregates a user's saved entries: how often each symptom was
recorded, the average/min/max of numeric severities and the most frequent
category of categorical symptoms.

Example:
  symptomlog stats alice
  symptomlog stats alice --recent 5
  symptomlog stats alice --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStats(cmd.Context(), appCfg, args[0], os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "print JSON")
	statsCmd.Flags().IntVar(&statsRecent, "recent", 0, "also list the N most recent entries")
}

type statsReport struct {
	UserID   string              `json:"user_id"`
	Symptoms []model.SymptomStat `json:"symptoms"`
	Recent   []*model.Entry      `json:"recent,omitempty"`
}

func runStats(ctx context.Context, cfg *model.Config, userID string, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(cfg, appOptions{persist: true})
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	report := statsReport{UserID: userID}
	if report.Symptoms, err = a.store.SymptomStats(ctx, userID); err != nil {
		return fmt.Errorf("symptom stats: %w", err)
	}
	if statsRecent > 0 {
		if report.Recent, err = a.store.ListByUser(ctx, userID, statsRecent); err != nil {
			return fmt.Errorf("list entries: %w", err)
		}
	}

	if statsJSON {
		return pipeline.WriteJSON(out, report)
	}
	return writeStatsTable(out, report)
}

func writeStatsTable(out io.Writer, report statsReport) error {
	if len(report.Symptoms) == 0 {
		fmt.Fprintf(out, "No symptoms recorded for %s\n", report.UserID)
	} else {
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "SYMPTOM\tKIND\tCOUNT\tAVG\tMIN\tMAX\tTOP CATEGORY")
		for _, s := range report.Symptoms {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
				s.Name, s.KindName, s.Occurrences,
				formatFloat(s.AverageScore), formatInt(s.MinScore), formatInt(s.MaxScore),
				dashIfEmpty(s.TopCategory))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if len(report.Recent) > 0 {
		fmt.Fprintf(out, "\nRecent entries:\n")
		for _, e := range report.Recent {
			fmt.Fprintf(out, "  %s  %s  %d symptoms  confidence %d/100\n",
				e.RecordedAt.Format(time.RFC3339), e.ID, len(e.Result.Symptoms), e.Confidence.Index)
		}
	}
	return nil
}

func formatFloat(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f", *v)
}

func formatInt(v *int) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *v)
}

func dashIfEmpty(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
