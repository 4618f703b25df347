// Package testutil provides shared test fixtures for the store packages.
package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/banshee-data/brillouin/internal/monitoring"
	"github.com/banshee-data/brillouin/internal/timeutil"
)

// Epoch is the fixed time test clocks start at.
var Epoch = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

// MuteLogs silences the store logger for the duration of the test.
func MuteLogs(t testing.TB) {
	t.Helper()
	original := monitoring.Logf
	monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.Logf = original })
}

// NewClock returns a mock clock set to Epoch.
func NewClock() *timeutil.MockClock {
	return timeutil.NewMockClock(Epoch)
}

// DAT renders a spectrometer file: headerLines filler lines followed by one
// sample per line.
func DAT(headerLines int, samples ...string) []byte {
	return []byte(strings.Repeat("Header line\n", headerLines) + strings.Join(samples, "\n") + "\n")
}

// WriteFile writes data to dir/name and returns the path.
func WriteFile(t testing.TB, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
