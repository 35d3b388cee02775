// Package cli wires the cobra command tree for the cogsched binary.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "cogsched",
	Short: "Cognitive-energy-aware daily scheduler",
	Long: `cogsched builds a time-ordered daily plan of study and work tasks that
respects cognitive energy, fatigue, fixed commitments, and chronotype.`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
