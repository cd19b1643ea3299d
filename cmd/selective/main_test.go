package main

import (
	"bytes"
	"errors"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/banshee-data/selective.report/internal/config"
	"github.com/banshee-data/selective.report/internal/db"
	"github.com/banshee-data/selective.report/internal/selective"
	"github.com/banshee-data/selective.report/internal/testutil"
	"github.com/banshee-data/selective.report/internal/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_Version(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run([]string{"-version"}, &out))
	assert.Contains(t, out.String(), version.Version)
}

func TestRun_RequiresRecords(t *testing.T) {
	var out bytes.Buffer
	assert.Error(t, run(nil, &out))
}

func TestRun_Help(t *testing.T) {
	var out bytes.Buffer
	err := run([]string{"-h"}, &out)
	assert.True(t, errors.Is(err, flag.ErrHelp))
	assert.Contains(t, out.String(), "Usage: selective")
}

func TestRun_PrintsReports(t *testing.T) {
	testutil.QuietLogs(t)
	dir := t.TempDir()
	records := testutil.WriteFile(t, dir, "scores.csv", testutil.ScoreCSV(20))

	var out bytes.Buffer
	require.NoError(t, run([]string{"-records", records, "-risk", "1", "-coverage", "100,50"}, &out))

	text := out.String()
	// The three least-reserved examples are correct, the fourth is not.
	assert.Contains(t, text, "test: sac=0.1500 top1=0.7500 n=20")
	assert.Contains(t, text, "Abstention Logit: accuracy of coverage 100: 75.000, 50: 80.000, ")
	assert.Contains(t, text, "\nAbstention\tLogit\tTest\tCoverage\tError\n")
	assert.Contains(t, text, "100,\t100.00,\t\t25.000\n")
}

func TestRun_AllOutputs(t *testing.T) {
	testutil.QuietLogs(t)
	dir := t.TempDir()
	records := testutil.WriteFile(t, dir, "scores.csv", testutil.ScoreCSV(40))
	dbPath := filepath.Join(dir, "selective.db")
	plotDir := filepath.Join(dir, "plots")

	args := []string{
		"-records", records,
		"-db", dbPath,
		"-run", "cifar10",
		"-plot", plotDir,
		"-html", filepath.Join(dir, "report.html"),
		"-csv", filepath.Join(dir, "report.csv"),
		"-metrics-out", filepath.Join(dir, "metrics.prom"),
	}
	var out bytes.Buffer
	require.NoError(t, run(append(args, "-epoch", "1"), &out))
	require.NoError(t, run(append(args, "-epoch", "2"), &out))

	for _, name := range []string{"report.html", "report.csv", "metrics.prom", "plots/risk_coverage.png", "plots/pass_history.png"} {
		info, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err, name)
		assert.Greater(t, info.Size(), int64(0), name)
	}

	metrics, err := os.ReadFile(filepath.Join(dir, "metrics.prom"))
	require.NoError(t, err)
	assert.Contains(t, string(metrics), `selective_passes_total{phase="test"} 1`)

	database, err := db.NewDB(dbPath)
	require.NoError(t, err)
	defer database.Close()

	runs, err := database.Runs().ListRuns("cifar10")
	require.NoError(t, err)
	require.Len(t, runs, 1, "second invocation reuses the run")

	passes, err := database.Passes().ListPasses(runs[0].RunID, "test")
	require.NoError(t, err)
	require.Len(t, passes, 2)
	assert.Equal(t, 40, passes[1].N)

	reports, err := database.Reports().ListReports(runs[0].RunID)
	require.NoError(t, err)
	assert.Len(t, reports[selective.SourceAbstention], len(selective.DefaultCoverages))
}

func TestRun_Migrate(t *testing.T) {
	testutil.QuietLogs(t)
	dbPath := filepath.Join(t.TempDir(), "m.db")

	var out bytes.Buffer
	require.NoError(t, run([]string{"migrate", "-db", dbPath, "up"}, &out))
	assert.Contains(t, out.String(), "Current version:")
}

func TestLoadConfig_FlagsOverrideFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "eval.json")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`{"risk": 0.9, "loss": "ce", "run_name": "from-file"}`), 0o644))

	var out bytes.Buffer
	o, err := parseFlags([]string{"-config", cfgPath, "-run", "from-flag", "-coverage", "90, 80"}, &out)
	require.NoError(t, err)

	cfg, err := loadConfig(o)
	require.NoError(t, err)
	assert.Equal(t, 0.9, cfg.GetRisk())
	assert.Equal(t, "ce", cfg.GetLoss())
	assert.Equal(t, "from-flag", cfg.GetRunName())
	assert.Equal(t, []float64{90, 80}, cfg.GetCoverages())
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"risk above one", []string{"-risk", "1.5"}},
		{"coverage not a number", []string{"-coverage", "100,abc"}},
		{"coverage out of range", []string{"-coverage", "0"}},
		{"unknown loss", []string{"-loss", "hinge"}},
		{"empty coverage list", []string{"-coverage", ""}},
		{"coverage separators only", []string{"-coverage", " , "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			o, err := parseFlags(tt.args, &out)
			require.NoError(t, err)
			_, err = loadConfig(o)
			assert.True(t, errors.Is(err, selective.ErrConfiguration), "got %v", err)
		})
	}
}

func TestRun_MigrateFlagAfterAction(t *testing.T) {
	testutil.QuietLogs(t)
	target := filepath.Join(t.TempDir(), "wanted.db")

	var out bytes.Buffer
	require.NoError(t, run([]string{"migrate", "up", "-db", target}, &out))
	assert.Contains(t, out.String(), "Current version: 2")
	assert.FileExists(t, target)

	database, err := db.OpenDB(target)
	require.NoError(t, err)
	defer database.Close()
	v, _, err := database.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(db.LatestSchemaVersion), v)
}

func TestRun_MigrateUsage(t *testing.T) {
	var out bytes.Buffer
	err := run([]string{"-h"}, &out)
	require.True(t, errors.Is(err, flag.ErrHelp))
	assert.Contains(t, out.String(), "selective migrate [-db path] <action>")
}

func TestRun_DuplicateCoveragesPersist(t *testing.T) {
	testutil.QuietLogs(t)
	dir := t.TempDir()
	records := testutil.WriteFile(t, dir, "scores.csv", testutil.ScoreCSV(20))
	dbPath := filepath.Join(dir, "dup.db")

	var out bytes.Buffer
	require.NoError(t, run([]string{"-records", records, "-coverage", "50,50", "-db", dbPath, "-run", "dup"}, &out))

	database, err := db.NewDB(dbPath)
	require.NoError(t, err)
	defer database.Close()
	runs, err := database.Runs().ListRuns("dup")
	require.NoError(t, err)
	require.Len(t, runs, 1)
	reports, err := database.Reports().ListReports(runs[0].RunID)
	require.NoError(t, err)
	assert.Equal(t, []float64{50, 50}, reports[selective.SourceAbstention].Targets())
}

func TestRun_WarnsWhenRunSettingsChange(t *testing.T) {
	logs := testutil.CaptureLogs(t)
	dir := t.TempDir()
	records := testutil.WriteFile(t, dir, "scores.csv", testutil.ScoreCSV(20))
	dbPath := filepath.Join(dir, "runs.db")
	base := []string{"-records", records, "-coverage", "100,50", "-db", dbPath, "-run", "cifar10"}

	var out bytes.Buffer
	require.NoError(t, run(base, &out))
	require.NoError(t, run(append(base, "-epoch", "1"), &out))
	assert.NotContains(t, logs.String(), "WARNING")

	require.NoError(t, run(append(base, "-epoch", "2", "-risk", "0.9"), &out))
	assert.Contains(t, logs.String(), "WARNING: run cifar10 was created with loss=sat risk=0.99")
}

func TestSameSettings(t *testing.T) {
	cfg := config.DefaultEvaluationConfig()
	r := &db.Run{Loss: cfg.GetLoss(), Risk: cfg.GetRisk(), Coverages: cfg.GetCoverages()}
	assert.True(t, sameSettings(r, cfg))

	tests := []struct {
		name   string
		mutate func(r *db.Run)
	}{
		{"loss", func(r *db.Run) { r.Loss = "ce" }},
		{"risk", func(r *db.Run) { r.Risk = 0.5 }},
		{"coverage count", func(r *db.Run) { r.Coverages = r.Coverages[:3] }},
		{"coverage value", func(r *db.Run) { r.Coverages[0] = 42 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			changed := &db.Run{Loss: r.Loss, Risk: r.Risk, Coverages: cfg.GetCoverages()}
			tt.mutate(changed)
			assert.False(t, sameSettings(changed, cfg))
		})
	}
}
