package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rongwang/rentledger/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("STORE", "memory")
	t.Setenv("LOG_LEVEL", "error")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "dev\n", out)
}

func TestSummaryCommandJSON(t *testing.T) {
	out, err := run(t, "summary", "--month", "3", "--year", "2024")
	require.NoError(t, err)

	var resp models.PortfolioSummaryResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "success", resp.Status)
	assert.Empty(t, resp.Buildings)
	assert.Equal(t, 3, resp.Total.Month)
}

func TestSummaryCommandText(t *testing.T) {
	out, err := run(t, "summary", "--month", "3", "--year", "2024", "--format", "text")
	require.NoError(t, err)
	assert.Contains(t, out, "Building")
	assert.Contains(t, out, "Total")
}

func TestSummaryCommandRequiresPeriod(t *testing.T) {
	_, err := run(t, "summary", "--month", "3")
	assert.Error(t, err)
}

func TestSummaryCommandUnknownBuilding(t *testing.T) {
	_, err := run(t, "summary", "--month", "3", "--year", "2024", "--building", "7")
	assert.Error(t, err)
}

func TestExportCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")

	out, err := run(t, "export", "--month", "3", "--year", "2024", "-o", path)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote "+path)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestInvalidConfigIsRejected(t *testing.T) {
	t.Setenv("SERVER_PORT", "0")
	_, err := run(t, "summary", "--month", "3", "--year", "2024")
	assert.ErrorContains(t, err, "invalid config")
}
