package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var flagCmd = &cobra.Command{
	Use:   "flag",
	Short: "Query feature flags",
	Long: `Query feature flags backed by running experiments.

A flag is "on" for a subject when a running experiment with the flag's
name exists and the subject's assigned variant is not "control". Any
failure reads as off.`,
}

var flagEnabledCmd = &cobra.Command{
	Use:   "enabled <flag-name> <subject-id>",
	Short: "Check whether a flag is on for a subject",
	Args:  cobra.ExactArgs(2),
	RunE:  runFlagEnabled,
}

var flagVariantCmd = &cobra.Command{
	Use:   "variant <flag-name> <subject-id>",
	Short: "Show the variant assigned to a subject for a flag",
	Args:  cobra.ExactArgs(2),
	RunE:  runFlagVariant,
}

var flagOrg string

func init() {
	rootCmd.AddCommand(flagCmd)
	flagCmd.AddCommand(flagEnabledCmd)
	flagCmd.AddCommand(flagVariantCmd)

	flagCmd.PersistentFlags().StringVarP(&flagOrg, "org", "o", "", "Organization scope (strongly recommended)")
}

func runFlagEnabled(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, cleanup, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if a.flags.IsEnabled(ctx, args[0], args[1], a.orgOrDefault(flagOrg)) {
		fmt.Println("on")
	} else {
		fmt.Println("off")
	}
	return nil
}

func runFlagVariant(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, cleanup, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	variant := a.flags.Variant(ctx, args[0], args[1], a.orgOrDefault(flagOrg))
	if variant == "" {
		fmt.Println("(none)")
		return nil
	}
	fmt.Println(variant)
	return nil
}
