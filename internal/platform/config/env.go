// Package config holds the environment plumbing shared by the CLI and
// any future entry points. Settings structs live with their consumers;
// this package only parses and fails them uniformly.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// ParseEnv fills target from environment variables according to its
// `env` struct tags, falling back to `envDefault` values so a bare
// environment still yields a usable configuration.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
