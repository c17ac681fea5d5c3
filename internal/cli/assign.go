package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/hatchpoint/variance/internal/domain"
)

var assignCmd = &cobra.Command{
	Use:   "assign <experiment-id> <subject-id>",
	Short: "Assign a subject to a variant",
	Long: `Deterministically assign a subject to a variant of a running experiment.

Repeated calls for the same subject always return the same variant.
Subjects outside the experiment's traffic percentage are excluded and
no assignment is recorded.`,
	Args: cobra.ExactArgs(2),
	RunE: runAssign,
}

var metricCmd = &cobra.Command{
	Use:   "metric",
	Short: "Record metric observations",
}

var metricRecordCmd = &cobra.Command{
	Use:   "record <experiment-id> <subject-id> <metric-name> <value>",
	Short: "Record a metric observation for a subject",
	Args:  cobra.ExactArgs(4),
	RunE:  runMetricRecord,
}

func init() {
	rootCmd.AddCommand(assignCmd)
	rootCmd.AddCommand(metricCmd)
	metricCmd.AddCommand(metricRecordCmd)
}

func runAssign(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, cleanup, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	variant, err := a.service.Assign(ctx, args[0], args[1])
	if err != nil {
		if domain.IsKind(err, domain.KindTrafficExcluded) {
			fmt.Println("Subject excluded by traffic percentage")
			return nil
		}
		return err
	}

	fmt.Printf("Variant: %s\n", variant)
	return nil
}

func runMetricRecord(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, cleanup, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	value, err := strconv.ParseFloat(args[3], 64)
	if err != nil {
		return fmt.Errorf("invalid metric value %q: %w", args[3], err)
	}

	if err := a.service.RecordMetric(ctx, args[0], args[1], args[2], value); err != nil {
		return err
	}

	fmt.Printf("Recorded %s=%g for subject %s\n", args[2], value, args[1])
	return nil
}
