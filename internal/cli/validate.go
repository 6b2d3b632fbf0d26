package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a world's timelines for consistency issues",
		Run:   runValidate,
	}

	cmd.Flags().StringP("world", "w", "", "World id (required)")

	cmd.MarkFlagRequired("world")

	RootCmd.AddCommand(cmd)
}

func runValidate(cmd *cobra.Command, args []string) {
	worldID, _ := cmd.Flags().GetString("world")

	c, store, err := openCoordinator()
	if err != nil {
		exitErr("open", err)
	}
	defer store.Close()

	report, err := c.ValidateConsistency(cmd.Context(), worldID)
	if err != nil {
		exitErr("validate", err)
	}
	printJSON(report)
	if !report.Clean() {
		fmt.Fprintf(os.Stderr, "%d consistency issues found\n", len(report.Issues))
		os.Exit(1)
	}
}
