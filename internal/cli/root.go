// Package cli implements the loreweave command line interface.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/loreweave/loreweave/internal/cache"
	"github.com/loreweave/loreweave/internal/platform/config"
	"github.com/loreweave/loreweave/internal/safety"
	"github.com/loreweave/loreweave/internal/storage/memory"
	"github.com/loreweave/loreweave/internal/storage/sqlite"
	"github.com/loreweave/loreweave/internal/world/coordinator"
)

// Config holds the environment-driven CLI settings.
type Config struct {
	// DBPath locates the sqlite database file.
	DBPath string `env:"LOREWEAVE_DB" envDefault:"loreweave.db"`
	// OptionalPersistence tolerates durable-store failures.
	OptionalPersistence bool `env:"LOREWEAVE_OPTIONAL_PERSISTENCE"`
	// MaxActiveWorlds bounds resident worlds.
	MaxActiveWorlds int `env:"LOREWEAVE_MAX_ACTIVE_WORLDS" envDefault:"100"`
}

var (
	cfg    Config
	dbPath string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "loreweave",
	Short: "Interactive fiction world engine",
	Long:  "Manages simulated story worlds: entities, timelines, decisions, consequence propagation, and recovery. SQLite-backed, single binary.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: $LOREWEAVE_DB or loreweave.db)")
}

// Execute parses the environment and runs the root command.
func Execute(ctx context.Context) error {
	if err := config.ParseEnv(&cfg); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}
	return RootCmd.ExecuteContext(ctx)
}

func databasePath() string {
	if dbPath != "" {
		return dbPath
	}
	return cfg.DBPath
}

// openCoordinator builds a coordinator over the sqlite store. The caller
// must Close the returned store.
func openCoordinator() (*coordinator.Coordinator, *sqlite.Store, error) {
	store, err := sqlite.Open(databasePath())
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	wcfg := coordinator.DefaultConfig()
	wcfg.OptionalPersistence = cfg.OptionalPersistence
	if cfg.MaxActiveWorlds > 0 {
		wcfg.MaxActiveWorlds = cfg.MaxActiveWorlds
	}
	c := coordinator.New(wcfg, cache.NewVersioned(memory.NewCache()), store, safety.NewFilter())
	return c, store, nil
}

func printJSON(v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
