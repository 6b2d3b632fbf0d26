package cli

import (
	"github.com/spf13/cobra"

	"github.com/loreweave/loreweave/internal/storage"
)

func init() {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "List a world's timeline events",
		Long:  `Lists stored timeline events. --filter accepts an AIP-160 expression over event fields, e.g. 'entity_kind = "character" AND significance >= 5'.`,
		Run:   runEvents,
	}

	cmd.Flags().StringP("world", "w", "", "World id (required)")
	cmd.Flags().StringP("entity", "e", "", "Restrict to one entity's timeline")
	cmd.Flags().String("filter", "", "AIP-160 filter expression")
	cmd.Flags().Int("min-significance", 0, "Drop events below this significance")
	cmd.Flags().Int("limit", 0, "Maximum events to return")

	cmd.MarkFlagRequired("world")

	RootCmd.AddCommand(cmd)
}

func runEvents(cmd *cobra.Command, args []string) {
	worldID, _ := cmd.Flags().GetString("world")
	entityID, _ := cmd.Flags().GetString("entity")
	filter, _ := cmd.Flags().GetString("filter")
	minSignificance, _ := cmd.Flags().GetInt("min-significance")
	limit, _ := cmd.Flags().GetInt("limit")

	c, store, err := openCoordinator()
	if err != nil {
		exitErr("open", err)
	}
	defer store.Close()

	events, err := c.TimelineEvents(cmd.Context(), worldID, storage.EventQuery{
		EntityID:        entityID,
		Filter:          filter,
		MinSignificance: minSignificance,
		Limit:           limit,
	})
	if err != nil {
		exitErr("list events", err)
	}
	printJSON(events)
}
