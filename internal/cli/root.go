package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "variance",
	Short: "Experimentation and feature-flag engine",
	Long: `variance is an A/B-testing and feature-flag engine.

Define experiments with named variants, bucket subjects deterministically
with sticky assignment and traffic gating, record metric observations,
and test variant differences for statistical significance.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
