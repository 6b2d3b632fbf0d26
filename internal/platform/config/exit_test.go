package config_test

import (
	"os"
	"os/exec"
	"strings"
	"testing"

	"github.com/loreweave/loreweave/internal/platform/config"
)

// Exitf calls os.Exit, so the assertion runs the test binary again as a
// subprocess and inspects its exit code and stderr from outside.
func TestExitfTerminatesWithCode1(t *testing.T) {
	if os.Getenv("LOREWEAVE_EXITF_SUBPROCESS") == "1" {
		config.Exitf("open world database %s: %s", "loreweave.db", "disk full")
		return
	}

	cmd := exec.Command(os.Args[0], "-test.run=^TestExitfTerminatesWithCode1$")
	cmd.Env = append(os.Environ(), "LOREWEAVE_EXITF_SUBPROCESS=1")

	out, err := cmd.CombinedOutput()

	exitErr, ok := err.(*exec.ExitError)
	if !ok {
		t.Fatalf("expected *exec.ExitError, got %T: %v", err, err)
	}
	if exitErr.ExitCode() != 1 {
		t.Fatalf("expected exit code 1, got %d", exitErr.ExitCode())
	}
	if !strings.Contains(string(out), "open world database loreweave.db: disk full") {
		t.Fatalf("expected stderr to carry the formatted message, got %q", string(out))
	}
}
