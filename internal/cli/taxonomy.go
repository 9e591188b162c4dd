package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/symptomlog/internal/taxonomy"
)

var (
	taxonomyFile      string
	taxonomyThreshold float64
)

// taxonomyCmd represents the taxonomy command
var taxonomyCmd = &cobra.Command{
	Use:   "taxonomy",
	Short: "Inspect and check the symptom taxonomy",
	Long: `The taxonomy lists the symptoms, activities and triggers that extraction
looks for. The built-in taxonomy is used unless extraction.taxonomy_file
(or --file) points at a YAML file with the same shape as "taxonomy show".`,
}

var taxonomyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the taxonomy as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		tax, err := loadTaxonomy(taxonomyPath())
		if err != nil {
			return err
		}
		return writeTaxonomy(os.Stdout, tax)
	},
}

var taxonomyLintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Report colliding and near-duplicate keywords",
	RunE: func(cmd *cobra.Command, args []string) error {
		tax, err := loadTaxonomy(taxonomyPath())
		if err != nil {
			return err
		}
		return lintTaxonomy(os.Stdout, tax, taxonomyThreshold)
	},
}

func init() {
	rootCmd.AddCommand(taxonomyCmd)
	taxonomyCmd.AddCommand(taxonomyShowCmd)
	taxonomyCmd.AddCommand(taxonomyLintCmd)

	taxonomyCmd.PersistentFlags().StringVar(&taxonomyFile, "file", "", "taxonomy YAML file (default: extraction.taxonomy_file or built-in)")
	taxonomyLintCmd.Flags().Float64Var(&taxonomyThreshold, "threshold", taxonomy.DefaultLintThreshold, "Jaro-Winkler similarity reported as near-duplicate")
}

func taxonomyPath() string {
	if taxonomyFile != "" {
		return taxonomyFile
	}
	return appCfg.Extraction.TaxonomyFile
}

func writeTaxonomy(out io.Writer, tax *taxonomy.Taxonomy) error {
	data, err := taxonomy.Marshal(tax)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "# fingerprint: %s\n", tax.Fingerprint())
	_, err = out.Write(data)
	return err
}

// lintTaxonomy prints lint warnings and fails when there are any
func lintTaxonomy(out io.Writer, tax *taxonomy.Taxonomy, threshold float64) error {
	warnings := taxonomy.Lint(tax, threshold)
	if len(warnings) == 0 {
		fmt.Fprintf(out, "✓ %d symptoms, %d activities, %d triggers: no issues\n",
			len(tax.Symptoms()), len(tax.Activities()), len(tax.Triggers()))
		return nil
	}

	for _, w := range warnings {
		fmt.Fprintf(out, "✗ [%s] %s\n", w.Kind, w.Message)
	}
	return fmt.Errorf("%d taxonomy warnings", len(warnings))
}
