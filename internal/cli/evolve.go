package cli

import (
	"time"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "evolve",
		Short: "Advance a world's simulated time",
		Run:   runEvolve,
	}

	cmd.Flags().StringP("world", "w", "", "World id (required)")
	cmd.Flags().Float64("hours", 24, "Simulated hours to advance")

	cmd.MarkFlagRequired("world")

	RootCmd.AddCommand(cmd)
}

func runEvolve(cmd *cobra.Command, args []string) {
	worldID, _ := cmd.Flags().GetString("world")
	hours, _ := cmd.Flags().GetFloat64("hours")

	c, store, err := openCoordinator()
	if err != nil {
		exitErr("open", err)
	}
	defer store.Close()

	report, err := c.Evolve(cmd.Context(), worldID, time.Duration(hours*float64(time.Hour)))
	if err != nil {
		exitErr("evolve", err)
	}
	printJSON(report)
}
