package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/loreweave/loreweave/internal/platform/id"
	"github.com/loreweave/loreweave/internal/world/coordinator"
)

func init() {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a new world",
		Run:   runInit,
	}

	cmd.Flags().StringP("world", "w", "", "World id (default: a fresh generated id)")
	cmd.Flags().String("start", "", "Initial simulated time, RFC 3339 (default: now)")

	RootCmd.AddCommand(cmd)
}

func runInit(cmd *cobra.Command, args []string) {
	worldID, _ := cmd.Flags().GetString("world")
	startFlag, _ := cmd.Flags().GetString("start")

	if worldID == "" {
		generated, err := id.NewID()
		if err != nil {
			exitErr("generate world id", err)
		}
		worldID = generated
	}

	seed := coordinator.Seed{}
	if startFlag != "" {
		start, err := time.Parse(time.RFC3339, startFlag)
		if err != nil {
			exitErr("parse start", err)
		}
		seed.Start = start
	}

	c, store, err := openCoordinator()
	if err != nil {
		exitErr("open", err)
	}
	defer store.Close()

	w, err := c.Initialize(cmd.Context(), worldID, seed)
	if err != nil {
		exitErr("initialize", err)
	}
	printJSON(w)
}
