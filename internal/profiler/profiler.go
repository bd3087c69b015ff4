// Package profiler reports the deep memory footprint of a table per column.
package profiler

import (
	"fmt"
	"os"
	"sort"

	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"

	"github.com/ajitpratap0/txprofile/pkg/columnar"
	"github.com/ajitpratap0/txprofile/pkg/errors"
	jsonpool "github.com/ajitpratap0/txprofile/pkg/json"
)

const bytesPerMB = 1024 * 1024

// jsonIndent is the indentation of written reports
const jsonIndent = "    "

// ColumnStat is the footprint of one column
type ColumnStat struct {
	Column        string  `json:"column"`
	MemoryUsageMB float64 `json:"memory_usage_mb"`
	MemoryShare   float64 `json:"memory_share"`
	DataType      string  `json:"data_type"`

	Bytes int64 `json:"-"`
}

// Report is the footprint of a whole table, largest column first
type Report struct {
	Columns    []ColumnStat
	TotalBytes int64
}

// TotalMB returns the total footprint in MiB
func (r *Report) TotalMB() float64 {
	return float64(r.TotalBytes) / bytesPerMB
}

// Profile measures t. Shares sum to 1 for a non-empty table; a table without
// any bytes reports zero shares.
func Profile(t *columnar.Table) *Report {
	names := t.ColumnNames()
	report := &Report{
		Columns:    make([]ColumnStat, 0, len(names)),
		TotalBytes: t.MemoryUsage(),
	}

	for _, name := range names {
		col, _ := t.Column(name)
		usage := col.MemoryUsage()

		share := 0.0
		if report.TotalBytes > 0 {
			share = float64(usage) / float64(report.TotalBytes)
		}
		report.Columns = append(report.Columns, ColumnStat{
			Column:        name,
			MemoryUsageMB: float64(usage) / bytesPerMB,
			MemoryShare:   share,
			DataType:      col.DataType(),
			Bytes:         usage,
		})
	}

	sort.SliceStable(report.Columns, func(i, j int) bool {
		return report.Columns[i].Bytes > report.Columns[j].Bytes
	})
	return report
}

// Marshal renders the report as an indented JSON array
func (r *Report) Marshal() ([]byte, error) {
	return jsonpool.MarshalIndent(r.Columns, jsonIndent)
}

// WriteJSON writes the report to path, replacing any existing file
func (r *Report) WriteJSON(path string) error {
	data, err := r.Marshal()
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to encode statistics")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write statistics").
			WithDetail("path", path)
	}
	return nil
}

// Profiler profiles a table, logs the result and persists it
type Profiler struct {
	logger *zap.Logger
}

// New creates a profiler
func New(logger *zap.Logger) *Profiler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Profiler{logger: logger}
}

// Run profiles t and writes the report to path. label names the phase in logs.
func (p *Profiler) Run(t *columnar.Table, label, path string) (*Report, error) {
	report := Profile(t)

	fields := []zap.Field{
		zap.String("phase", label),
		zap.String("total_mb", fmt.Sprintf("%.2f", report.TotalMB())),
		zap.Int64("total_bytes", report.TotalBytes),
	}
	if rss, err := residentSetSize(); err == nil {
		fields = append(fields, zap.Uint64("process_rss_bytes", rss))
	} else {
		p.logger.Debug("process memory unavailable", zap.Error(err))
	}
	p.logger.Info("memory footprint", fields...)

	for _, stat := range report.Columns {
		p.logger.Debug("column footprint",
			zap.String("column", stat.Column),
			zap.String("data_type", stat.DataType),
			zap.Int64("bytes", stat.Bytes),
			zap.Float64("share", stat.MemoryShare))
	}

	if err := report.WriteJSON(path); err != nil {
		return nil, err
	}
	p.logger.Info("statistics saved", zap.String("path", path))
	return report, nil
}

func residentSetSize() (uint64, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0, err
	}
	info, err := proc.MemoryInfo()
	if err != nil {
		return 0, err
	}
	return info.RSS, nil
}
