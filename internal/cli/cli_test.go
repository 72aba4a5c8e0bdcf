package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/paycore/payroll-engine/internal/domain"
	"github.com/paycore/payroll-engine/pkg/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixturePath = filepath.Join("..", "config", "testdata", "paycheck.yaml")
var catalogPath = filepath.Join("..", "config", "testdata", "catalog.yaml")

// execute runs paycalc with a clean settings environment.
func execute(t *testing.T, env map[string]string, args ...string) (string, string, error) {
	t.Helper()
	for _, key := range []string{"LEDGER_DRIVER", "LEDGER_DSN", "REDIS_ADDR", "CATALOG_FILE", "NRA_TABLE_FILE", "LOG_LEVEL", "WITHHOLDING_METHOD"} {
		t.Setenv("PAYROLL_"+key, "")
	}
	t.Setenv("PAYROLL_LEDGER_DRIVER", "memory")
	for k, v := range env {
		t.Setenv(k, v)
	}

	cmd := NewRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func sqliteEnv(t *testing.T) map[string]string {
	return map[string]string{
		"PAYROLL_LEDGER_DRIVER": "sqlite",
		"PAYROLL_LEDGER_DSN":    filepath.Join(t.TempDir(), "ledger.db"),
	}
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "paycalc", cmd.Use)

	for _, name := range []string{"calc", "batch", "ledger", "rules", "serve", "worker"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}

	verbose := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "v", verbose.Shorthand)
	format := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "console", format.DefValue)
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: ExitSuccess},
		{name: "plain error", err: errors.New("boom"), want: ExitFailure},
		{name: "command error", err: WrapExitError(ExitCommandError, "bad flag", errors.New("x")), want: ExitCommandError},
		{name: "wrapped exit error", err: errors.Join(errors.New("ctx"), &ExitError{Code: ExitCommandError, Message: "m"}), want: ExitCommandError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}

	err := WrapExitError(ExitFailure, "failed to apply events", errors.New("disk full"))
	assert.Equal(t, "failed to apply events: disk full", err.Error())
}

func TestCalcCommand(t *testing.T) {
	t.Run("console stub", func(t *testing.T) {
		out, _, err := execute(t, nil, "calc", fixturePath)
		require.NoError(t, err)
		assert.Contains(t, out, "PAY STUB PC-100")
		assert.Contains(t, out, "PAY STUB PC-200")
	})

	t.Run("csv summary", func(t *testing.T) {
		out, _, err := execute(t, nil, "calc", fixturePath, "--format", "csv")
		require.NoError(t, err)
		lines := strings.Split(strings.TrimSpace(out), "\n")
		require.Len(t, lines, 3)
		assert.True(t, strings.HasPrefix(lines[0], "PaycheckID,PayRunID"))
	})

	t.Run("report directory", func(t *testing.T) {
		dir := t.TempDir()
		out, _, err := execute(t, nil, "calc", fixturePath, "--format", "json", "--output-dir", dir)
		require.NoError(t, err)
		written := strings.TrimSpace(out)
		assert.Equal(t, dir, filepath.Dir(written))
		assert.Equal(t, ".json", filepath.Ext(written))
		_, statErr := os.Stat(written)
		assert.NoError(t, statErr)
	})

	t.Run("explicit catalog", func(t *testing.T) {
		out, _, err := execute(t, nil, "calc", fixturePath, "--catalog", catalogPath, "--format", "detailed-csv")
		require.NoError(t, err)
		assert.Contains(t, out, "US_FICA_SS")
	})

	t.Run("invalid format", func(t *testing.T) {
		_, _, err := execute(t, nil, "calc", fixturePath, "--format", "docx")
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
	})

	t.Run("invalid settings", func(t *testing.T) {
		_, _, err := execute(t, map[string]string{"PAYROLL_LEDGER_DRIVER": "mongo"}, "calc", fixturePath)
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
	})

	t.Run("missing fixture", func(t *testing.T) {
		_, _, err := execute(t, nil, "calc", filepath.Join(t.TempDir(), "missing.yaml"))
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
	})

	t.Run("enqueue without redis", func(t *testing.T) {
		_, _, err := execute(t, nil, "calc", fixturePath, "--enqueue")
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
	})
}

func TestBatchCommand(t *testing.T) {
	out, _, err := execute(t, nil, "batch", fixturePath, fixturePath, "--workers", "3", "--format", "console-lite")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "PC-100"))
	assert.Contains(t, out, "Paychecks: 4")
}

func TestCalcApplyThenLedgerShow(t *testing.T) {
	env := sqliteEnv(t)

	_, stderr, err := execute(t, env, "calc", fixturePath, "--apply", "--format", "console-lite")
	require.NoError(t, err)
	assert.Contains(t, stderr, "ledger updated")

	out, _, err := execute(t, env, "ledger", "show", "ACME", "E-100")
	require.NoError(t, err)
	assert.Contains(t, out, "ORDER")
	assert.Contains(t, out, "CS-1")
	assert.Contains(t, out, "ACTIVE")

	out, _, err = execute(t, env, "ledger", "show", "ACME", "E-200")
	require.NoError(t, err)
	assert.Contains(t, out, "No ledger entries.")
}

func TestLedgerApplyCommand(t *testing.T) {
	env := sqliteEnv(t)
	amount := money.MustParse("75")
	events := []domain.WithholdingEvent{{
		EventID:          "ev-1",
		EmployerID:       "ACME",
		EmployeeID:       "E-300",
		OrderID:          "CRED-9",
		PaycheckID:       "PC-9",
		CheckDate:        time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
		Withheld:         amount,
		AppliedToCurrent: amount,
		AppliedToArrears: money.Zero(),
		NetPay:           money.MustParse("700"),
	}}
	data, err := json.Marshal(map[string]any{"events": events})
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "events.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	out, _, err := execute(t, env, "ledger", "apply", path)
	require.NoError(t, err)
	assert.Contains(t, out, `"applied": 1`)

	out, _, err = execute(t, env, "ledger", "apply", path)
	require.NoError(t, err)
	assert.Contains(t, out, `"duplicates": 1`)

	out, _, err = execute(t, env, "ledger", "show", "ACME", "E-300", "--format", "json")
	require.NoError(t, err)
	var entries []domain.LedgerEntry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, int64(7500), entries[0].TotalWithheld.Cents)
	assert.Equal(t, 1, entries[0].EventCount)

	_, _, err = execute(t, env, "ledger", "apply", filepath.Join(t.TempDir(), "missing.json"))
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRulesShowCommand(t *testing.T) {
	out, _, err := execute(t, nil, "rules", "show", "--catalog", catalogPath,
		"--employer", "ACME", "--work-state", "CA", "--as-of", "2025-03-14")
	require.NoError(t, err)
	assert.Contains(t, out, "id: US_FICA_SS")
	assert.Contains(t, out, "id: CA_PIT")
	assert.NotContains(t, out, "id: NY_PIT")

	_, _, err = execute(t, nil, "rules", "show")
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, _, err = execute(t, nil, "rules", "show", "--catalog", catalogPath, "--as-of", "03/14/2025")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRedisCommandsNeedAddress(t *testing.T) {
	for _, args := range [][]string{{"worker"}, {"rules", "invalidate"}} {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			_, _, err := execute(t, nil, args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
		})
	}
}
