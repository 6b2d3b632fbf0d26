package cli

import (
	"github.com/spf13/cobra"

	"github.com/loreweave/loreweave/internal/narrative"
	"github.com/loreweave/loreweave/internal/platform/id"
)

func init() {
	cmd := &cobra.Command{
		Use:   "decide",
		Short: "Record a narrative decision and propagate its consequences",
		Run:   runDecide,
	}

	cmd.Flags().StringP("world", "w", "", "World id (required)")
	cmd.Flags().StringP("category", "c", "", "Decision category: social, environmental, emotional, creative (required)")
	cmd.Flags().StringP("title", "t", "", "Short headline")
	cmd.Flags().String("text", "", "Decision prose")
	cmd.Flags().String("actor", "", "Deciding character id")
	cmd.Flags().String("location", "", "Location id")
	cmd.Flags().Float64("weight", 1, "Initial propagation strength")
	cmd.Flags().Float64("impact", 0, "Emotional impact, -1..1")

	cmd.MarkFlagRequired("world")
	cmd.MarkFlagRequired("category")

	RootCmd.AddCommand(cmd)
}

func runDecide(cmd *cobra.Command, args []string) {
	worldID, _ := cmd.Flags().GetString("world")
	category, _ := cmd.Flags().GetString("category")
	title, _ := cmd.Flags().GetString("title")
	text, _ := cmd.Flags().GetString("text")
	actor, _ := cmd.Flags().GetString("actor")
	location, _ := cmd.Flags().GetString("location")
	weight, _ := cmd.Flags().GetFloat64("weight")
	impact, _ := cmd.Flags().GetFloat64("impact")

	c, store, err := openCoordinator()
	if err != nil {
		exitErr("open", err)
	}
	defer store.Close()

	result, err := c.RecordDecision(cmd.Context(), worldID, narrative.Decision{
		ID:              id.NewEventID(),
		Category:        narrative.Category(category),
		Title:           title,
		Text:            text,
		ActorID:         actor,
		LocationID:      location,
		Weight:          weight,
		EmotionalImpact: impact,
	})
	if err != nil {
		exitErr("decide", err)
	}
	printJSON(result)
}
