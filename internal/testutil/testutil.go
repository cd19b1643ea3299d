// Package testutil provides shared test helpers and fixtures.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/banshee-data/selective.report/internal/monitoring"
)

// QuietLogs mutes the package logger for the duration of the test.
func QuietLogs(t testing.TB) {
	t.Helper()
	original := monitoring.Logf
	monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.Logf = original })
}

// CaptureLogs redirects the package logger into the returned builder for
// the duration of the test.
func CaptureLogs(t testing.TB) *strings.Builder {
	t.Helper()
	original := monitoring.Logf
	var b strings.Builder
	monitoring.SetLogger(func(format string, v ...interface{}) {
		fmt.Fprintf(&b, format+"\n", v...)
	})
	t.Cleanup(func() { monitoring.Logf = original })
	return &b
}

// WriteFile writes content to dir/name and returns the path.
func WriteFile(t testing.TB, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// ScoreCSV returns a score file of n examples whose reservation rises with
// the row index. Every fourth example is wrong.
func ScoreCSV(n int) string {
	var b strings.Builder
	b.WriteString("reservation,softmax_response,correct\n")
	for i := 0; i < n; i++ {
		r := float64(i) / float64(n)
		fmt.Fprintf(&b, "%.4f,%.4f,%v\n", r, 1-r, i%4 != 3)
	}
	return b.String()
}
