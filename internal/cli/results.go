package cli

import (
	"context"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hatchpoint/variance/internal/domain"
)

var resultsCmd = &cobra.Command{
	Use:   "results <experiment-id> <metric-name>",
	Short: "Show experiment results for a metric",
	Long: `Aggregate per-variant statistics for one metric and, with exactly two
variants, test the difference of means for statistical significance.

Examples:
  variance results 7f9c... score
  variance results 7f9c... score --confidence 0.99`,
	Args: cobra.ExactArgs(2),
	RunE: runResults,
}

var resultsConfidence float64

func init() {
	rootCmd.AddCommand(resultsCmd)
	resultsCmd.Flags().Float64Var(&resultsConfidence, "confidence", 0, "Confidence level, e.g. 0.95 (default from config)")
}

func runResults(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, cleanup, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	confidence := resultsConfidence
	if confidence == 0 {
		confidence = a.cfg.Confidence
	}

	results, err := a.service.Results(ctx, args[0], args[1], confidence)
	if err != nil {
		return err
	}

	counts, err := a.service.AssignmentCounts(ctx, args[0])
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Printf("  Experiment: %s (%s)\n", results.ExperimentName, results.Status)
	fmt.Printf("  Metric:     %s\n", args[1])
	fmt.Println()

	if len(results.VariantStats) == 0 {
		fmt.Println("  No observations recorded for assigned subjects")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "  VARIANT\tASSIGNED\tN\tMEAN\tSTDDEV\tMIN\tMAX")
	for _, name := range sortedVariantNames(results.VariantStats) {
		vs := results.VariantStats[name]
		fmt.Fprintf(w, "  %s\t%d\t%d\t%.4f\t%.4f\t%.4f\t%.4f\n",
			vs.VariantName, counts[vs.VariantName], vs.SubjectCount, vs.Mean, vs.StdDev, vs.Min, vs.Max)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Println()
	if results.PValue != nil {
		fmt.Printf("  p-value:     %.6g (confidence %.2f)\n", *results.PValue, results.ConfidenceLevel)
		if results.IsSignificant {
			fmt.Println("  Significant: yes")
		} else {
			fmt.Println("  Significant: no")
		}
	} else {
		fmt.Println("  Significance not computed (needs exactly 2 variants with at least 2 subjects each)")
	}
	fmt.Println()
	return nil
}

func sortedVariantNames(stats map[string]domain.VariantStats) []string {
	names := make([]string, 0, len(stats))
	for name := range stats {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
