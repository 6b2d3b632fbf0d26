package config

import (
	"fmt"
	"os"
)

// Exitf prints a formatted message to stderr and terminates the process
// with exit code 1. Intended for main functions that cannot recover,
// such as a failed tracing setup before the command runner starts.
func Exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
