package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	export := &cobra.Command{
		Use:   "export",
		Short: "Write a world snapshot to stdout or a file",
		Run:   runExport,
	}
	export.Flags().StringP("world", "w", "", "World id (required)")
	export.Flags().StringP("out", "o", "", "Output file (default: stdout)")
	export.MarkFlagRequired("world")
	RootCmd.AddCommand(export)

	imp := &cobra.Command{
		Use:   "import",
		Short: "Load a world snapshot from a file",
		Run:   runImport,
	}
	imp.Flags().StringP("file", "f", "", "Snapshot file (required)")
	imp.MarkFlagRequired("file")
	RootCmd.AddCommand(imp)
}

func runExport(cmd *cobra.Command, args []string) {
	worldID, _ := cmd.Flags().GetString("world")
	out, _ := cmd.Flags().GetString("out")

	c, store, err := openCoordinator()
	if err != nil {
		exitErr("open", err)
	}
	defer store.Close()

	blob, err := c.Export(cmd.Context(), worldID)
	if err != nil {
		exitErr("export", err)
	}
	if out == "" {
		fmt.Println(string(blob))
		return
	}
	if err := os.WriteFile(out, blob, 0o644); err != nil {
		exitErr("write snapshot", err)
	}
}

func runImport(cmd *cobra.Command, args []string) {
	file, _ := cmd.Flags().GetString("file")

	blob, err := os.ReadFile(file)
	if err != nil {
		exitErr("read snapshot", err)
	}

	c, store, err := openCoordinator()
	if err != nil {
		exitErr("open", err)
	}
	defer store.Close()

	worldID, err := c.Import(cmd.Context(), blob)
	if err != nil {
		exitErr("import", err)
	}
	fmt.Println(worldID)
}
