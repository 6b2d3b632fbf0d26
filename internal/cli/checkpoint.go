package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	checkpoint := &cobra.Command{
		Use:   "checkpoint",
		Short: "Capture a named restore point for a world",
		Long:  "Captures a restore point. Checkpoints live in process memory, so rollback only sees checkpoints taken in the same run; use scenario scripts to combine them.",
		Run:   runCheckpoint,
	}
	checkpoint.Flags().StringP("world", "w", "", "World id (required)")
	checkpoint.Flags().StringP("label", "l", "", "Checkpoint label")
	checkpoint.MarkFlagRequired("world")
	RootCmd.AddCommand(checkpoint)

	rollback := &cobra.Command{
		Use:   "rollback",
		Short: "Restore a world from a checkpoint",
		Run:   runRollback,
	}
	rollback.Flags().StringP("world", "w", "", "World id (required)")
	rollback.Flags().String("checkpoint", "", "Checkpoint id (default: most recent)")
	rollback.MarkFlagRequired("world")
	RootCmd.AddCommand(rollback)
}

func runCheckpoint(cmd *cobra.Command, args []string) {
	worldID, _ := cmd.Flags().GetString("world")
	label, _ := cmd.Flags().GetString("label")

	c, store, err := openCoordinator()
	if err != nil {
		exitErr("open", err)
	}
	defer store.Close()

	cp, err := c.CreateCheckpoint(cmd.Context(), worldID, label)
	if err != nil {
		exitErr("checkpoint", err)
	}
	printJSON(map[string]any{"id": cp.ID, "label": cp.Label, "created_at": cp.CreatedAt})
}

func runRollback(cmd *cobra.Command, args []string) {
	worldID, _ := cmd.Flags().GetString("world")
	checkpointID, _ := cmd.Flags().GetString("checkpoint")

	c, store, err := openCoordinator()
	if err != nil {
		exitErr("open", err)
	}
	defer store.Close()

	cp, err := c.Rollback(cmd.Context(), worldID, checkpointID)
	if err != nil {
		exitErr("rollback", err)
	}
	printJSON(map[string]any{"restored": cp.ID, "label": cp.Label, "created_at": cp.CreatedAt})
}
