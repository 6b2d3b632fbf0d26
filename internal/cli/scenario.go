package cli

import (
	"github.com/spf13/cobra"

	"github.com/loreweave/loreweave/internal/scenario"
)

func init() {
	cmd := &cobra.Command{
		Use:   "scenario <script.lua>",
		Short: "Run a Lua scenario script against the store",
		Args:  cobra.ExactArgs(1),
		Run:   runScenario,
	}
	RootCmd.AddCommand(cmd)
}

func runScenario(cmd *cobra.Command, args []string) {
	sc, err := scenario.Load(args[0])
	if err != nil {
		exitErr("load scenario", err)
	}

	c, store, err := openCoordinator()
	if err != nil {
		exitErr("open", err)
	}
	defer store.Close()

	report, err := scenario.NewRunner(c).Run(cmd.Context(), sc)
	if err != nil {
		exitErr("run scenario", err)
	}
	printJSON(report)
}
