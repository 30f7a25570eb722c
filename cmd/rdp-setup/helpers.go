package main

import (
	"os"
	"path/filepath"

	ui "github.com/rdptools/rdp-setup-cli/internal/ui"
)

// silentErr wraps an error that was already reported to the user;
// Execute() skips printing it again.
type silentErr struct{ error }

func (e silentErr) Unwrap() error { return e.error }

// getenvDefault returns the environment value for k, or default d
// when k is not set.
func getenvDefault(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

// getPrinter returns a UI printer bound to the current --output flag.
func getPrinter() ui.Printer { return ui.NewPrinterFromGlobal(flagOutput) }

// stateDir is where the CLI keeps its own state (update-check cache).
// Falls back to a temp path when no home directory is available.
func stateDir() string {
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return filepath.Join(home, ".rdp-setup")
	}
	return filepath.Join(os.TempDir(), "rdp-setup")
}
