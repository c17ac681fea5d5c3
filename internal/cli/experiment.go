package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/hatchpoint/variance/internal/domain"
	"github.com/hatchpoint/variance/internal/experiments"
)

var experimentCmd = &cobra.Command{
	Use:   "experiment",
	Short: "Manage experiments",
	Long:  `Create, list, start, stop, and inspect A/B test experiments.`,
}

var experimentCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new experiment in draft",
	Long: `Create a new experiment in draft state.

Examples:
  variance experiment create "chat_top_k_test" --org acme \
    --variants '{"control":{},"treatment":{"top_k":10}}' --traffic 50`,
	Args: cobra.ExactArgs(1),
	RunE: runExperimentCreate,
}

var experimentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List experiments for an organization",
	RunE:  runExperimentList,
}

var experimentUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update a draft experiment",
	Long:  `Update a draft experiment. Only supplied flags are changed.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runExperimentUpdate,
}

var experimentStartCmd = &cobra.Command{
	Use:   "start <id>",
	Short: "Start a draft experiment",
	Args:  cobra.ExactArgs(1),
	RunE:  runExperimentStart,
}

var experimentStopCmd = &cobra.Command{
	Use:   "stop <id>",
	Short: "Stop a running experiment",
	Args:  cobra.ExactArgs(1),
	RunE:  runExperimentStop,
}

var experimentGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one experiment",
	Args:  cobra.ExactArgs(1),
	RunE:  runExperimentGet,
}

// Flags
var (
	expOrg         string
	expDescription string
	expVariants    string
	expTargeting   string
	expTraffic     int
	expStatus      string
	expLimit       int64
	expOffset      int64
)

func init() {
	rootCmd.AddCommand(experimentCmd)

	experimentCmd.AddCommand(experimentCreateCmd)
	experimentCmd.AddCommand(experimentListCmd)
	experimentCmd.AddCommand(experimentUpdateCmd)
	experimentCmd.AddCommand(experimentStartCmd)
	experimentCmd.AddCommand(experimentStopCmd)
	experimentCmd.AddCommand(experimentGetCmd)

	experimentCreateCmd.Flags().StringVarP(&expOrg, "org", "o", "", "Owning organization id")
	experimentCreateCmd.Flags().StringVarP(&expDescription, "description", "d", "", "Description of the experiment")
	experimentCreateCmd.Flags().StringVar(&expVariants, "variants", "", "Variant configurations as a JSON object (at least 2 entries)")
	experimentCreateCmd.Flags().StringVar(&expTargeting, "targeting", "", "Targeting rules as JSON (opaque to the engine)")
	experimentCreateCmd.Flags().IntVar(&expTraffic, "traffic", 100, "Traffic percentage in [1,100]")
	_ = experimentCreateCmd.MarkFlagRequired("variants")

	experimentListCmd.Flags().StringVarP(&expOrg, "org", "o", "", "Owning organization id")
	experimentListCmd.Flags().StringVar(&expStatus, "status", "", "Filter by status (draft|running|paused|completed)")
	experimentListCmd.Flags().Int64Var(&expLimit, "limit", 50, "Maximum experiments to list")
	experimentListCmd.Flags().Int64Var(&expOffset, "offset", 0, "Offset into the listing")

	experimentUpdateCmd.Flags().StringVarP(&expDescription, "description", "d", "", "New description")
	experimentUpdateCmd.Flags().StringVar(&expVariants, "variants", "", "New variant configurations as a JSON object")
	experimentUpdateCmd.Flags().StringVar(&expTargeting, "targeting", "", "New targeting rules as JSON")
	experimentUpdateCmd.Flags().IntVar(&expTraffic, "traffic", 0, "New traffic percentage in [1,100]")
}

func runExperimentCreate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, cleanup, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	variants, err := parseVariants(expVariants)
	if err != nil {
		return err
	}

	params := experiments.CreateParams{
		Name:              args[0],
		OrgID:             a.orgOrDefault(expOrg),
		Variants:          variants,
		TrafficPercentage: expTraffic,
	}
	if expDescription != "" {
		params.Description = &expDescription
	}
	if expTargeting != "" {
		params.TargetingRules = json.RawMessage(expTargeting)
	}

	experiment, err := a.service.Create(ctx, params)
	if err != nil {
		return err
	}

	fmt.Printf("Created experiment %q (%s) in %s\n", experiment.Name, experiment.ID, experiment.Status)
	return nil
}

func runExperimentList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, cleanup, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	var status *domain.Status
	if expStatus != "" {
		s := domain.Status(expStatus)
		if !s.Valid() {
			return fmt.Errorf("invalid status filter: %s", expStatus)
		}
		status = &s
	}

	list, err := a.service.List(ctx, a.orgOrDefault(expOrg), status, expLimit, expOffset)
	if err != nil {
		return err
	}

	if len(list) == 0 {
		fmt.Println("No experiments found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSTATUS\tVARIANTS\tTRAFFIC\tCREATED")
	for _, e := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d%%\t%s\n",
			e.ID, e.Name, e.Status, len(e.Variants), e.TrafficPercentage,
			e.CreatedAt.Format(time.DateOnly))
	}
	return w.Flush()
}

func runExperimentUpdate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, cleanup, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	var patch experiments.UpdatePatch
	if cmd.Flags().Changed("description") {
		patch.Description = &expDescription
	}
	if cmd.Flags().Changed("variants") {
		variants, err := parseVariants(expVariants)
		if err != nil {
			return err
		}
		patch.Variants = variants
	}
	if cmd.Flags().Changed("targeting") {
		patch.TargetingRules = json.RawMessage(expTargeting)
	}
	if cmd.Flags().Changed("traffic") {
		patch.TrafficPercentage = &expTraffic
	}

	experiment, err := a.service.Update(ctx, args[0], patch)
	if err != nil {
		return err
	}

	fmt.Printf("Updated experiment %q\n", experiment.Name)
	return nil
}

func runExperimentStart(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, cleanup, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	experiment, err := a.service.Start(ctx, args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Started experiment %q at %s\n", experiment.Name, experiment.StartedAt.Format(time.RFC3339))
	return nil
}

func runExperimentStop(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, cleanup, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	experiment, err := a.service.Stop(ctx, args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Stopped experiment %q at %s\n", experiment.Name, experiment.EndedAt.Format(time.RFC3339))
	return nil
}

func runExperimentGet(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, cleanup, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	e, err := a.service.Get(ctx, args[0])
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Printf("  Experiment: %s\n", e.Name)
	fmt.Printf("  ID:         %s\n", e.ID)
	fmt.Printf("  Status:     %s\n", e.Status)
	if e.Description != nil && *e.Description != "" {
		fmt.Printf("  Description: %s\n", *e.Description)
	}
	fmt.Printf("  Traffic:    %d%%\n", e.TrafficPercentage)
	for _, name := range e.VariantNames() {
		fmt.Printf("  Variant:    %s %s\n", name, string(e.Variants[name]))
	}
	if e.StartedAt != nil {
		fmt.Printf("  Started:    %s\n", e.StartedAt.Format(time.RFC3339))
	}
	if e.EndedAt != nil {
		fmt.Printf("  Ended:      %s\n", e.EndedAt.Format(time.RFC3339))
	}
	fmt.Println()
	return nil
}

func parseVariants(raw string) (map[string]json.RawMessage, error) {
	var variants map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &variants); err != nil {
		return nil, fmt.Errorf("invalid --variants JSON: %w", err)
	}
	return variants, nil
}
