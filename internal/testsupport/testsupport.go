// Package testsupport provides fixture helpers shared by gtfscache tests.
package testsupport

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gtfscache/internal/config"
)

// WriteInput writes a stop_times input file with the given header and data
// rows into a fresh temp directory and returns its path.
func WriteInput(t testing.TB, header string, rows ...string) string {
	t.Helper()

	lines := append([]string{header}, rows...)
	path := filepath.Join(t.TempDir(), "stop_times.txt")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("write input %s: %v", path, err)
	}
	return path
}

// CanonicalHeader is the stop_times header in canonical column order.
const CanonicalHeader = "trip_id,stop_id,arrival_time,departure_time,stop_sequence"

// OutputPath returns a writable output destination in a fresh temp directory.
func OutputPath(t testing.TB) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "stop_times.msgpack")
}

// NewConfig produces a validated config with test-friendly defaults: no
// throttling and headless progress.
func NewConfig(t testing.TB) *config.Config {
	t.Helper()

	cfg := config.Default()
	cfg.Limits.CPUPercent = 100
	cfg.Progress.Enabled = false
	if err := cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return &cfg
}
