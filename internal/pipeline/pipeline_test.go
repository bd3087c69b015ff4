package pipeline

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/ajitpratap0/txprofile/internal/exporter"
	"github.com/ajitpratap0/txprofile/internal/loader"
	"github.com/ajitpratap0/txprofile/internal/profiler"
	"github.com/ajitpratap0/txprofile/pkg/config"
	"github.com/ajitpratap0/txprofile/pkg/errors"
	jsonpool "github.com/ajitpratap0/txprofile/pkg/json"
	"github.com/ajitpratap0/txprofile/pkg/testutil"
)

const testRows = 300

type PipelineSuite struct {
	testutil.IntegrationTestSuite
}

func TestPipelineSuite(t *testing.T) {
	suite.Run(t, new(PipelineSuite))
}

// newConfig returns the default configuration reading a generated file and
// writing into a fresh directory
func (s *PipelineSuite) newConfig() *config.Config {
	dir := s.TempDir()
	cfg := config.Default()
	cfg.Source.Path = testutil.WriteTransactions(s.T(), dir, testRows)
	cfg.Source.BatchSize = 64
	cfg.Output.Dir = filepath.Join(dir, "results")
	cfg.Charts.Width, cfg.Charts.Height = 400, 300
	return cfg
}

func (s *PipelineSuite) readStats(path string) []profiler.ColumnStat {
	data, err := os.ReadFile(path)
	s.Require().NoError(err)

	var stats []profiler.ColumnStat
	s.Require().NoError(jsonpool.Unmarshal(data, &stats))
	return stats
}

func (s *PipelineSuite) TestRun() {
	cfg := s.newConfig()

	result, err := New(cfg, testutil.TestLogger(s.T())).Run(s.Context())
	s.Require().NoError(err)

	s.NotEmpty(result.RunID)
	s.Equal(testRows, result.Rows)
	s.Len(result.Stages, 6)
	s.Equal(StageLoad, result.Stages[0].Stage)
	s.Equal(StageRender, result.Stages[5].Stage)
	s.Less(result.After.TotalBytes, result.Before.TotalBytes)

	for _, name := range []string{
		cfg.Output.StatsBefore, cfg.Output.StatsAfter, cfg.Export.FileName,
		cfg.Charts.LineChart, cfg.Charts.BarChart, cfg.Charts.PieChart,
		cfg.Charts.ScatterPlot, cfg.Charts.Histogram,
	} {
		s.FileExists(cfg.OutputPath(name))
	}

	// exported header and row count
	file, err := os.Open(cfg.OutputPath(cfg.Export.FileName))
	s.Require().NoError(err)
	defer file.Close()
	records, err := csv.NewReader(file).ReadAll()
	s.Require().NoError(err)
	s.Equal(config.DefaultColumns, records[0])
	s.Len(records, testRows+1)

	// shares sum to one and the footprint matches the report
	for _, path := range []string{cfg.OutputPath(cfg.Output.StatsBefore), cfg.OutputPath(cfg.Output.StatsAfter)} {
		var shares float64
		for _, stat := range s.readStats(path) {
			shares += stat.MemoryShare
		}
		s.InDelta(1.0, shares, 1e-9)
	}

	after := s.readStats(cfg.OutputPath(cfg.Output.StatsAfter))
	types := make(map[string]string, len(after))
	for _, stat := range after {
		types[stat.Column] = stat.DataType
	}
	s.Equal("category", types["use_chip"])
	s.Equal("category", types["merchant_state"])
	s.Equal("datetime64[ns]", types["date"])
	s.Equal("int16", types["client_id"])

	for _, change := range result.Changes {
		if change.To == "category" {
			s.Less(change.DistinctRatio, 0.5)
		}
	}
}

func (s *PipelineSuite) TestRunIsIdempotent() {
	cfg := s.newConfig()

	_, err := New(cfg, nil).Run(context.Background())
	s.Require().NoError(err)
	first := s.snapshot(cfg)

	_, err = New(cfg, nil).Run(context.Background())
	s.Require().NoError(err)
	s.Equal(first, s.snapshot(cfg))
}

func (s *PipelineSuite) snapshot(cfg *config.Config) map[string]string {
	out := make(map[string]string)
	for _, name := range []string{cfg.Output.StatsBefore, cfg.Output.StatsAfter, cfg.Export.FileName} {
		data, err := os.ReadFile(cfg.OutputPath(name))
		s.Require().NoError(err)
		out[name] = string(data)
	}
	return out
}

func (s *PipelineSuite) TestOptimizationKeepsValues() {
	cfg := s.newConfig()
	_, err := New(cfg, nil).Run(s.Context())
	s.Require().NoError(err)
	optimized, err := os.ReadFile(cfg.OutputPath(cfg.Export.FileName))
	s.Require().NoError(err)

	table, err := loader.New(cfg.Source, nil).Load(s.Context())
	s.Require().NoError(err)
	plainDir := s.TempDir()
	exported, err := exporter.New(cfg.Export, plainDir, nil).Export(s.Context(), table, cfg.Source.Columns)
	s.Require().NoError(err)
	plain, err := os.ReadFile(exported.Path)
	s.Require().NoError(err)

	s.Equal(string(plain), string(optimized))
}

func (s *PipelineSuite) TestRunWithMetricsAndTracing() {
	cfg := s.newConfig()
	cfg.Metrics.Textfile = "txprofile.prom"
	cfg.Tracing.File = "traces.json"

	_, err := New(cfg, nil).Run(s.Context())
	s.Require().NoError(err)

	prom, err := os.ReadFile(cfg.OutputPath(cfg.Metrics.Textfile))
	s.Require().NoError(err)
	s.Contains(string(prom), "txprofile_rows_loaded_total 300")
	s.Contains(string(prom), `txprofile_stage_duration_seconds_count{stage="render"} 1`)

	traces, err := os.ReadFile(cfg.OutputPath(cfg.Tracing.File))
	s.Require().NoError(err)
	for _, name := range []string{"txprofile.run", StageLoad, StageOptimize, StageRender} {
		s.True(strings.Contains(string(traces), `"Name":"`+name+`"`), name)
	}
	s.Contains(string(traces), `"Name":"column optimized"`)
	s.Contains(string(traces), `"Value":"category"`)
}

func (s *PipelineSuite) TestRunBadDateAborts() {
	cfg := s.newConfig()
	rows := testutil.TransactionRows(3)
	rows[2] = strings.Replace(rows[2], "2010-01-01", "01/01/2010", 1)
	cfg.Source.Path = testutil.WriteFile(s.T(), s.TempDir(), "bad.csv", testutil.CSV(testutil.TransactionsHeader, rows...))

	_, err := New(cfg, nil).Run(s.Context())
	s.Require().Error(err)
	s.True(errors.IsType(err, errors.ErrorTypeParse))
	s.NoFileExists(cfg.OutputPath(cfg.Output.StatsBefore))
}

func (s *PipelineSuite) TestRunMissingInput() {
	cfg := s.newConfig()
	cfg.Source.Path = filepath.Join(s.TempDir(), "missing.csv")

	_, err := New(cfg, nil).Run(s.Context())
	s.True(errors.IsType(err, errors.ErrorTypeFile))
	s.DirExists(cfg.Output.Dir)
}

func (s *PipelineSuite) TestRunInvalidConfig() {
	cfg := s.newConfig()
	cfg.Source.BatchSize = 0

	_, err := New(cfg, nil).Run(s.Context())
	s.True(errors.IsType(err, errors.ErrorTypeConfig))
}

func (s *PipelineSuite) TestRunHeaderOnlyFailsAtRender() {
	cfg := s.newConfig()
	cfg.Source.Path = testutil.WriteFile(s.T(), s.TempDir(), "empty.csv", testutil.CSV(testutil.TransactionsHeader))

	result, err := New(cfg, nil).Run(s.Context())
	s.Require().Error(err)
	s.True(errors.IsType(err, errors.ErrorTypeData))
	s.Len(result.Stages, 5)
	s.FileExists(cfg.OutputPath(cfg.Export.FileName))
}

func (s *PipelineSuite) TestRunCancelled() {
	cfg := s.newConfig()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(cfg, nil).Run(ctx)
	s.ErrorIs(err, context.Canceled)
}
