package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cachegc/internal/report"
	"github.com/roach88/cachegc/internal/storepath"
	"github.com/roach88/cachegc/internal/testutil"
)

// writeRecords writes records as a JSON listing and returns its path.
func writeRecords(t *testing.T, records ...storepath.Record) string {
	t.Helper()
	data, err := json.Marshal(records)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "paths.json")
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// sampleRecords keeps a (registered now) and b, deletes c, d and e.
// d and e share an origin.
func sampleRecords() []storepath.Record {
	now := time.Now().Unix()
	return []storepath.Record{
		testutil.WithOrigin(testutil.Record('a', now, 'b'), "nar/a.nar.xz", 1000),
		testutil.WithOrigin(testutil.Record('b', 100), "nar/b.nar.xz", 2000),
		testutil.WithOrigin(testutil.Record('c', 100), "nar/c.nar.xz", 1048576),
		testutil.WithOrigin(testutil.Record('d', 100, 'c'), "nar/shared.nar.xz", 524288),
		testutil.WithOrigin(testutil.Record('e', 100), "nar/shared.nar.xz", 524288),
	}
}

const sampleSummary = "Will delete 3/5 paths and 2/4 nar files, totalling 1.5 MiB."

func TestPlanCommand_Text(t *testing.T) {
	path := writeRecords(t, sampleRecords()...)

	stdout, stderr, err := execute(t, "", "plan", path)
	require.NoError(t, err)

	want := testutil.Hash('c') + ".narinfo\n" +
		testutil.Hash('d') + ".narinfo\n" +
		testutil.Hash('e') + ".narinfo\n" +
		"nar/c.nar.xz\n" +
		"nar/shared.nar.xz\n"
	assert.Equal(t, want, stdout)
	assert.Contains(t, stderr, sampleSummary)
	assert.Contains(t, stderr, "run_id=")
	assert.Contains(t, stderr, "level=INFO msg=\"closure progress\"")
	assert.Contains(t, stderr, "done=5 total=5")
}

func TestPlanCommand_Keys(t *testing.T) {
	path := writeRecords(t, sampleRecords()...)

	stdout, _, err := execute(t, "", "plan", path, "--keys")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, testutil.Hash('c'), lines[0])
}

func TestPlanCommand_StdinWithPositionalDays(t *testing.T) {
	data, err := json.Marshal(sampleRecords())
	require.NoError(t, err)

	stdout, stderr, err := execute(t, string(data), "plan", "-", "30")
	require.NoError(t, err)
	assert.Contains(t, stdout, testutil.Hash('e')+".narinfo")
	assert.Contains(t, stderr, sampleSummary)
	assert.Contains(t, stderr, "retention_days=30")
}

func TestPlanCommand_InvalidDaysFallsBack(t *testing.T) {
	path := writeRecords(t, sampleRecords()...)

	_, stderr, err := execute(t, "", "plan", path, "--days=-5")
	require.NoError(t, err)
	assert.Contains(t, stderr, "invalid retention window, using default")
	assert.Contains(t, stderr, "retention_days=90")
}

func TestPlanCommand_InvalidPositionalDaysFallsBack(t *testing.T) {
	path := writeRecords(t, sampleRecords()...)

	stdout, stderr, err := execute(t, "", "plan", path, "-5")
	require.NoError(t, err)
	assert.Contains(t, stderr, "invalid retention window, using default")
	assert.Contains(t, stderr, "retention_days=90")
	assert.Contains(t, stdout, testutil.Hash('c')+".narinfo")
	assert.Contains(t, stderr, sampleSummary)
}

func TestPlanCommand_FlagsAroundPositionals(t *testing.T) {
	path := writeRecords(t, sampleRecords()...)

	tests := []struct {
		name string
		args []string
		days string
	}{
		{"flags first", []string{"plan", "--format", "json", "-v", path, "30"}, "retention_days=30"},
		{"flags last", []string{"plan", path, "30", "--format=json", "--missing", "skip"}, "retention_days=30"},
		{"negative days then flag", []string{"plan", path, "-7", "--format", "json"}, "retention_days=90"},
		{"days flag with separate value", []string{"plan", path, "--days", "-5", "--format", "json"}, "retention_days=90"},
		{"end of flags", []string{"plan", "--format", "json", "--", path, "-3"}, "retention_days=90"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, stderr, err := execute(t, "", tt.args...)
			require.NoError(t, err)
			assert.Contains(t, stderr, tt.days)

			var resp Envelope
			require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
			assert.Equal(t, "ok", resp.Status)
		})
	}
}

func TestPlanCommand_ArgumentErrors(t *testing.T) {
	path := writeRecords(t, sampleRecords()...)

	tests := []struct {
		name     string
		args     []string
		contains string
	}{
		{"unknown flag", []string{"plan", path, "--bogus"}, "invalid flags"},
		{"unknown shorthand", []string{"plan", path, "-x"}, "invalid flags"},
		{"too many positionals", []string{"plan", path, "30", "extra"}, "invalid arguments"},
		{"bad format", []string{"plan", path, "--format", "xml"}, "invalid format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, "", tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, ExitCode(err))
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestPlanCommand_Help(t *testing.T) {
	stdout, _, err := execute(t, "", "plan", "--help")
	require.NoError(t, err)
	assert.Contains(t, stdout, "plan [input] [days]")
	assert.Contains(t, stdout, "--missing")
}

func TestPlanCommand_JSON(t *testing.T) {
	path := writeRecords(t, sampleRecords()...)

	stdout, _, err := execute(t, "", "plan", path, "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status  string            `json:"status"`
		Data    report.PlanResult `json:"data"`
		TraceID string            `json:"trace_id"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotEmpty(t, resp.TraceID)
	assert.Equal(t, 5, resp.Data.Objects)
	assert.Equal(t, 1, resp.Data.Roots)
	assert.Equal(t, 3, resp.Data.DeletableObjects)
	assert.Equal(t, int64(1572864), resp.Data.ReclaimableBytes)
	assert.Equal(t, []string{"nar/c.nar.xz", "nar/shared.nar.xz"}, resp.Data.DeleteOrigins)
}

func TestPlanCommand_MalformedInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"not": "an array"}`), 0644))

	stdout, _, err := execute(t, "", "plan", path, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, ExitCode(err))

	var resp Envelope
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeInputMalformed, resp.Error.Code)
}

func TestPlanCommand_MissingInput(t *testing.T) {
	_, _, err := execute(t, "", "plan", filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, ExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeInputNotFound)
}

func TestPlanCommand_DanglingReference(t *testing.T) {
	now := time.Now().Unix()
	path := writeRecords(t,
		testutil.Record('a', now, 'z'),
		testutil.Record('b', 100),
	)

	t.Run("skip", func(t *testing.T) {
		stdout, stderr, err := execute(t, "", "plan", path)
		require.NoError(t, err)
		assert.Equal(t, testutil.Hash('b')+".narinfo\n", stdout)
		assert.Contains(t, stderr, "dangling reference")
	})

	t.Run("abort", func(t *testing.T) {
		_, _, err := execute(t, "", "plan", path, "--missing", "abort")
		require.Error(t, err)
		assert.Equal(t, ExitFailure, ExitCode(err))
		assert.Contains(t, err.Error(), ErrCodeMissingReference)
		assert.Contains(t, err.Error(), testutil.Hash('z'))
	})

	t.Run("invalid policy", func(t *testing.T) {
		_, _, err := execute(t, "", "plan", path, "--missing", "ignore")
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, ExitCode(err))
	})
}

func TestPlanCommand_MetricsFile(t *testing.T) {
	path := writeRecords(t, sampleRecords()...)
	metricsPath := filepath.Join(t.TempDir(), "cachegc.prom")

	_, _, err := execute(t, "", "plan", path, "--metrics-file", metricsPath)
	require.NoError(t, err)

	data, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "cachegc_objects_total 5")
	assert.Contains(t, text, "cachegc_objects_deletable 3")
	assert.Contains(t, text, "cachegc_origins_deletable 2")
	assert.Contains(t, text, "cachegc_roots 1")
	assert.Contains(t, text, "# TYPE cachegc_reclaimable_bytes gauge")
}

func TestRunPlan_FixedClock(t *testing.T) {
	path := writeRecords(t,
		testutil.Record('a', 1000, 'b'),
		testutil.Record('b', 100),
		testutil.Record('c', 600),
	)
	clock := testutil.NewFixedClock(86400 + 500)

	opts := &PlanOptions{
		RootOptions: &RootOptions{Format: "text"},
		Days:        "1",
		Keys:        true,
		Now:         clock.Now,
	}
	stdout := &bytes.Buffer{}
	cmd := &cobra.Command{}
	cmd.SetOut(stdout)
	cmd.SetErr(&bytes.Buffer{})

	require.NoError(t, runPlan(opts, []string{path}, cmd))
	// Cutoff is 500: a and c are roots, b is kept through a.
	assert.Empty(t, stdout.String())

	opts.Now = testutil.NewFixedClock(86400 + 700).Now
	stdout.Reset()
	require.NoError(t, runPlan(opts, []string{path}, cmd))
	// Cutoff is 700: c falls out of the window.
	assert.Equal(t, testutil.Hash('c')+"\n", stdout.String())
}
