package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/ogulcanaydogan/cloudsaver/internal/auth"
	"github.com/ogulcanaydogan/cloudsaver/internal/config"
	"github.com/ogulcanaydogan/cloudsaver/pkg/model"
	"github.com/ogulcanaydogan/cloudsaver/pkg/report"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintSummary(t *testing.T) {
	color.NoColor = true

	summary := &report.Summary{
		Services: []model.ServiceTotal{
			{Service: "Amazon EC2", TotalCost: decimal.RequireFromString("15")},
			{Service: "Amazon S3", TotalCost: decimal.RequireFromString("15")},
			{Service: "AWS Lambda", TotalCost: decimal.RequireFromString("0.5")},
		},
		Total:   decimal.RequireFromString("30.5"),
		Records: 4,
	}

	var buf bytes.Buffer
	printSummary(&buf, summary, 2)
	out := buf.String()

	assert.Contains(t, out, "(4 records)")
	assert.Contains(t, out, "Amazon EC2  $15.00")
	assert.Contains(t, out, "Amazon S3   $15.00")
	assert.NotContains(t, out, "AWS Lambda")
	assert.Contains(t, out, "$30.50")
}

func TestInitVerifier(t *testing.T) {
	cfg := &config.Config{}
	_, err := initVerifier(cfg)
	assert.Error(t, err)

	cfg.Auth.URL = "https://id.example.com"
	v, err := initVerifier(cfg)
	require.NoError(t, err)
	assert.IsType(t, &auth.HTTPVerifier{}, v)

	cfg.Auth.StaticTokens = []config.StaticToken{{Token: "t1", Email: "ops@example.com"}}
	v, err = initVerifier(cfg)
	require.NoError(t, err)
	id, err := v.Verify(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", id.Name())
}

func TestInitSources(t *testing.T) {
	cfg := &config.Config{}
	cfg.Source.Mock.Seed = 1

	registry, err := initSources(context.Background(), cfg, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"mock"}, registry.List())

	registry, err = initSources(context.Background(), cfg, "dump.json")
	require.NoError(t, err)
	assert.Equal(t, []string{"file", "mock"}, registry.List())
}

func TestStorageFailureReportsOnlyKind(t *testing.T) {
	// A directory cannot be opened as a database file.
	dbPath := t.TempDir()
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	data := fmt.Sprintf("storage:\n  path: %s\nlogging:\n  level: error\n", dbPath)
	require.NoError(t, os.WriteFile(cfgPath, []byte(data), 0o644))

	cfgFile = cfgPath
	t.Cleanup(func() { cfgFile = "" })

	tests := []struct {
		op  string
		cmd *cobra.Command
		run func(*cobra.Command, []string) error
	}{
		{"query costs", costsCmd, runCosts},
		{"summarize costs", summaryCmd, runSummary},
		{"ingest", ingestCmd, runIngest},
	}
	for _, tt := range tests {
		t.Run(tt.op, func(t *testing.T) {
			tt.cmd.SetContext(context.Background())

			err := tt.run(tt.cmd, nil)
			require.Error(t, err)
			assert.Equal(t, tt.op+" failed: storage_unavailable", err.Error())
			assert.NotContains(t, err.Error(), dbPath)
		})
	}
}

func TestFailed(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	storageErr := fmt.Errorf("%w: open /var/lib/cloudsaver.db: disk I/O error", model.ErrStorageUnavailable)
	err := failed(logger, "ingest", storageErr)
	assert.EqualError(t, err, "ingest failed: storage_unavailable")
	assert.NotErrorIs(t, err, model.ErrStorageUnavailable)

	inputErr := &model.InputError{Kind: model.ErrInvalidAmount, Date: "2024-01-01", Service: "EC2", Reason: "missing Amount"}
	err = failed(logger, "ingest", inputErr)
	assert.ErrorIs(t, err, model.ErrInvalidAmount)
	assert.Contains(t, err.Error(), "ingest failed: invalid_amount")
	assert.Contains(t, err.Error(), "2024-01-01/EC2")
}

func TestSummaryTopDefault(t *testing.T) {
	top := summaryCmd.Flags().Lookup("top")
	require.NotNil(t, top)
	assert.Equal(t, "10", top.DefValue)
}
