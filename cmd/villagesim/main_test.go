package main

import (
	"bytes"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/hamlet/internal/agents"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func fast(db, n string) []string {
	return []string{"run", "--db", db, "--days", n, "--port", "0",
		"--speed", "1000", "--day-length", "1ms", "--log-level", "error"}
}

func TestRunThenResumeThenReport(t *testing.T) {
	db := filepath.Join(t.TempDir(), "data", "village.db")

	out, err := execute(t, append(fast(db, "3"), "--population", "5", "--seed", "3")...)
	require.NoError(t, err)
	assert.Contains(t, out, "The village is alive: 5 villagers")
	assert.Contains(t, out, "Simulation stopped on day 3.")
	assert.NotContains(t, out, "Resuming")

	out, err = execute(t, fast(db, "2")...)
	require.NoError(t, err)
	assert.Contains(t, out, "Resuming from day 3 (Spring Day 3, Year 1)")
	assert.Contains(t, out, "Simulation stopped on day 5.")

	out, err = execute(t, "report", "--db", db, "--events", "3", "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "Spring Day 5, Year 1 (the 5th day)")
	assert.Contains(t, out, "villagers  5")
	assert.Contains(t, out, "PERSONALITY")
}

func TestReportWithoutVillage(t *testing.T) {
	db := filepath.Join(t.TempDir(), "empty.db")
	_, err := execute(t, "report", "--db", db, "--log-level", "error")
	assert.ErrorIs(t, err, ErrNoVillage)
}

func TestUnknownLogLevel(t *testing.T) {
	_, err := execute(t, "report", "--log-level", "loud")
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"":        slog.LevelInfo,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	} {
		got, err := parseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestMostMeaningful(t *testing.T) {
	assert.Equal(t, "-", mostMeaningful(map[agents.Activity]float64{agents.Hunting: 0}))
	assert.Equal(t, "cooking (0.60)", mostMeaningful(map[agents.Activity]float64{
		agents.Hunting: 0.2,
		agents.Cooking: 0.6,
	}))
}

func TestTrueRandomWithoutKey(t *testing.T) {
	t.Setenv("RANDOM_ORG_API_KEY", "")
	t.Cleanup(func() { trueRandom = false })

	db := filepath.Join(t.TempDir(), "village.db")
	out, err := execute(t, append(fast(db, "2"), "--true-random")...)
	require.NoError(t, err)
	assert.Contains(t, out, "Simulation stopped on day 2.")
}
