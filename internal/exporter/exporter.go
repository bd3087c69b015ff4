// Package exporter writes the selected columns of a table to disk.
//
// The primary output is a CSV file with a header and no index column. It can
// be compressed with any codec from pkg/compression, and Arrow IPC, Avro or
// Parquet copies of the same projection can be written next to it.
package exporter

import (
	"bufio"
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/ajitpratap0/txprofile/pkg/columnar"
	"github.com/ajitpratap0/txprofile/pkg/compression"
	"github.com/ajitpratap0/txprofile/pkg/config"
	"github.com/ajitpratap0/txprofile/pkg/errors"
	"github.com/ajitpratap0/txprofile/pkg/formats"
)

const (
	writeBuffer = 64 * 1024
	// rows written between cancellation checks
	checkEvery = 10000
)

// newCodecWriter opens the compression stream of the CSV export
var newCodecWriter = compression.NewWriter

// Result describes the files written by one export
type Result struct {
	Path     string
	Rows     int
	Columns  int
	Sidecars []string
}

// Exporter writes filtered data files into one directory
type Exporter struct {
	cfg    config.ExportConfig
	dir    string
	logger *zap.Logger
}

// New creates an exporter writing into dir
func New(cfg config.ExportConfig, dir string, logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{cfg: cfg, dir: dir, logger: logger}
}

// Export projects t onto columns, in that order, and writes the result
func (e *Exporter) Export(ctx context.Context, t *columnar.Table, columns []string) (Result, error) {
	projected, err := t.Project(columns)
	if err != nil {
		return Result{}, errors.Wrap(err, errors.ErrorTypeValidation, "failed to select export columns")
	}

	algo, err := compression.Parse(e.cfg.Compression)
	if err != nil {
		return Result{}, errors.Wrap(err, errors.ErrorTypeConfig, "invalid export compression")
	}

	path := filepath.Join(e.dir, e.cfg.FileName) + compression.Extension(algo)
	if err := e.writeCSV(ctx, path, projected, algo); err != nil {
		return Result{}, err
	}

	result := Result{
		Path:    path,
		Rows:    projected.NumRows(),
		Columns: projected.NumColumns(),
	}
	e.logger.Info("filtered data saved",
		zap.String("path", path),
		zap.Int("rows", result.Rows),
		zap.Int("columns", result.Columns),
		zap.String("compression", string(algo)))

	for _, format := range e.sidecarFormats() {
		sidecar, err := e.writeSidecar(format, projected)
		if err != nil {
			return result, err
		}
		result.Sidecars = append(result.Sidecars, sidecar)
		e.logger.Info("sidecar saved", zap.String("path", sidecar), zap.String("format", string(format)))
	}

	return result, nil
}

func (e *Exporter) sidecarFormats() []formats.Format {
	var out []formats.Format
	if e.cfg.Arrow {
		out = append(out, formats.Arrow)
	}
	if e.cfg.Avro {
		out = append(out, formats.Avro)
	}
	if e.cfg.Parquet {
		out = append(out, formats.Parquet)
	}
	return out
}

func (e *Exporter) writeCSV(ctx context.Context, path string, t *columnar.Table, algo compression.Algorithm) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to create export file").WithDetail("path", path)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, errors.ErrorTypeFile, "failed to close export file").WithDetail("path", path)
		}
	}()

	buffered := bufio.NewWriterSize(file, writeBuffer)
	compressed, err := newCodecWriter(buffered, algo, compression.Default)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to create compression writer")
	}

	closed := false
	defer func() {
		if !closed {
			compressed.Close()
		}
	}()

	if err := WriteCSV(ctx, compressed, t); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write export file").WithDetail("path", path)
	}
	closed = true
	if err := compressed.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to flush compression").WithDetail("path", path)
	}
	if err := buffered.Flush(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to flush export file").WithDetail("path", path)
	}
	return nil
}

// WriteCSV writes t with a header row. Missing values are empty cells.
func WriteCSV(ctx context.Context, w io.Writer, t *columnar.Table) error {
	writer := csv.NewWriter(w)
	names := t.ColumnNames()
	if err := writer.Write(names); err != nil {
		return err
	}

	cols := make([]columnar.Column, len(names))
	for j, name := range names {
		cols[j], _ = t.Column(name)
	}

	record := make([]string, len(cols))
	for i := 0; i < t.NumRows(); i++ {
		if i%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		for j, col := range cols {
			record[j] = col.Format(i)
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func (e *Exporter) writeSidecar(format formats.Format, t *columnar.Table) (string, error) {
	base := strings.TrimSuffix(e.cfg.FileName, filepath.Ext(e.cfg.FileName))
	path := filepath.Join(e.dir, base+format.Extension())

	file, err := os.Create(path)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeFile, "failed to create sidecar").WithDetail("path", path)
	}

	buffered := bufio.NewWriterSize(file, writeBuffer)
	if err := formats.Write(buffered, format, t); err != nil {
		file.Close()
		return "", errors.Wrap(err, errors.ErrorTypeFile, "failed to write sidecar").WithDetail("path", path)
	}
	if err := buffered.Flush(); err != nil {
		file.Close()
		return "", errors.Wrap(err, errors.ErrorTypeFile, "failed to flush sidecar").WithDetail("path", path)
	}
	if err := file.Close(); err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeFile, "failed to close sidecar").WithDetail("path", path)
	}
	return path, nil
}
