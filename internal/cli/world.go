package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	show := &cobra.Command{
		Use:   "world",
		Short: "Show a world's current state",
		Run:   runWorld,
	}
	show.Flags().StringP("world", "w", "", "World id (required)")
	show.MarkFlagRequired("world")
	RootCmd.AddCommand(show)

	pause := &cobra.Command{
		Use:   "pause",
		Short: "Pause a world, rejecting mutations until resumed",
		Run:   runPause,
	}
	pause.Flags().StringP("world", "w", "", "World id (required)")
	pause.MarkFlagRequired("world")
	RootCmd.AddCommand(pause)

	resume := &cobra.Command{
		Use:   "resume",
		Short: "Resume a paused world",
		Run:   runResume,
	}
	resume.Flags().StringP("world", "w", "", "World id (required)")
	resume.MarkFlagRequired("world")
	RootCmd.AddCommand(resume)
}

func runWorld(cmd *cobra.Command, args []string) {
	worldID, _ := cmd.Flags().GetString("world")

	c, store, err := openCoordinator()
	if err != nil {
		exitErr("open", err)
	}
	defer store.Close()

	w, err := c.World(cmd.Context(), worldID)
	if err != nil {
		exitErr("load world", err)
	}
	printJSON(w)
}

func runPause(cmd *cobra.Command, args []string) {
	worldID, _ := cmd.Flags().GetString("world")

	c, store, err := openCoordinator()
	if err != nil {
		exitErr("open", err)
	}
	defer store.Close()

	if err := c.Pause(cmd.Context(), worldID); err != nil {
		exitErr("pause", err)
	}
}

func runResume(cmd *cobra.Command, args []string) {
	worldID, _ := cmd.Flags().GetString("world")

	c, store, err := openCoordinator()
	if err != nil {
		exitErr("open", err)
	}
	defer store.Close()

	if err := c.Resume(cmd.Context(), worldID); err != nil {
		exitErr("resume", err)
	}
}
