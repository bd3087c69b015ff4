// Package loader reads the transactions CSV into a columnar.Table.
//
// The file is read in batches of SourceConfig.BatchSize rows. Each batch is
// coerced column by column according to the column's parse rule and appended
// to per-column builders, so memory never holds more than one batch of raw
// text beyond the typed columns themselves.
package loader

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/ajitpratap0/txprofile/pkg/columnar"
	"github.com/ajitpratap0/txprofile/pkg/config"
	"github.com/ajitpratap0/txprofile/pkg/errors"
)

const (
	bytesPerMB = 1024 * 1024
	readBuffer = 64 * 1024
	utf8BOM    = "\ufeff"
)

// Loader loads one CSV file
type Loader struct {
	cfg    config.SourceConfig
	logger *zap.Logger
	na     map[string]struct{}
}

// New creates a loader for the configured source
func New(cfg config.SourceConfig, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = config.Default().Source.BatchSize
	}

	na := make(map[string]struct{}, len(cfg.NAValues))
	for _, v := range cfg.NAValues {
		na[v] = struct{}{}
	}

	return &Loader{
		cfg:    cfg,
		logger: logger.With(zap.String("source", cfg.Path)),
		na:     na,
	}
}

// selected is a chosen column with its position in the header
type selected struct {
	name   string
	index  int
	column columnLoader
}

// Load reads the whole file. Columns keep the order of the file header.
func (l *Loader) Load(ctx context.Context) (*columnar.Table, error) {
	info, err := os.Stat(l.cfg.Path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to stat source file").
			WithDetail("path", l.cfg.Path)
	}
	l.logger.Info("source file size on disk",
		zap.String("size_mb", fmt.Sprintf("%.2f", float64(info.Size())/bytesPerMB)),
		zap.Int64("bytes", info.Size()))

	file, err := os.Open(l.cfg.Path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open source file").
			WithDetail("path", l.cfg.Path)
	}
	defer file.Close()

	reader := csv.NewReader(bufio.NewReaderSize(file, readBuffer))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.New(errors.ErrorTypeData, "source file has no header").
			WithDetail("path", l.cfg.Path)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeParse, "failed to read header").
			WithDetail("path", l.cfg.Path)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}

	cols, err := l.resolve(header)
	if err != nil {
		return nil, err
	}

	rows := 0
	batch := make([][]string, 0, l.cfg.BatchSize)
	for {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeInternal, "load cancelled").
				WithDetail("rows", rows)
		}

		batch, err = l.readBatch(reader, batch[:0], len(header), rows)
		if err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			break
		}

		for _, col := range cols {
			for i, record := range batch {
				raw := ""
				if col.index < len(record) {
					raw = record[col.index]
				}
				if err := col.column.append(raw, l.isNA(raw)); err != nil {
					return nil, errors.Wrap(err, errors.ErrorTypeParse, "failed to coerce value").
						WithDetail("column", col.name).
						WithDetail("row", rows+i).
						WithDetail("value", raw)
				}
			}
		}

		rows += len(batch)
		l.logger.Debug("batch loaded", zap.Int("batch_rows", len(batch)), zap.Int("rows", rows))

		if len(batch) < l.cfg.BatchSize {
			break
		}
	}

	table := columnar.NewTable()
	for _, col := range cols {
		if err := table.AddColumn(col.name, col.column.finish()); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to assemble table")
		}
	}

	l.logger.Info("source loaded",
		zap.Int("rows", table.NumRows()),
		zap.Int("columns", table.NumColumns()))
	l.logPreview(table)

	return table, nil
}

// resolve maps the selection onto header positions, in header order
func (l *Loader) resolve(header []string) ([]selected, error) {
	positions := make(map[string]int, len(header))
	for i, name := range header {
		if _, dup := positions[name]; !dup {
			positions[name] = i
		}
	}

	cols := make([]selected, 0, len(l.cfg.Columns))
	for _, name := range l.cfg.Columns {
		idx, ok := positions[name]
		if !ok {
			return nil, errors.New(errors.ErrorTypeValidation, "selected column not found in header").
				WithDetail("column", name).
				WithDetail("path", l.cfg.Path)
		}
		cols = append(cols, selected{
			name:   name,
			index:  idx,
			column: newColumnLoader(l.cfg.RuleFor(name), l.cfg.DateLayout, l.cfg.BatchSize),
		})
	}

	sort.SliceStable(cols, func(i, j int) bool { return cols[i].index < cols[j].index })
	return cols, nil
}

// readBatch reads up to BatchSize records. offset is the number of data rows
// read before this batch.
func (l *Loader) readBatch(reader *csv.Reader, batch [][]string, width, offset int) ([][]string, error) {
	for len(batch) < l.cfg.BatchSize {
		record, err := reader.Read()
		if err == io.EOF {
			return batch, nil
		}
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeParse, "malformed CSV record").
				WithDetail("row", offset+len(batch))
		}
		if len(record) > width {
			return nil, errors.Newf(errors.ErrorTypeParse, "record has %d fields, header has %d", len(record), width).
				WithDetail("row", offset+len(batch))
		}
		batch = append(batch, record)
	}
	return batch, nil
}

func (l *Loader) isNA(raw string) bool {
	_, ok := l.na[raw]
	return ok
}

func (l *Loader) logPreview(table *columnar.Table) {
	if l.cfg.PreviewRows == 0 {
		return
	}
	l.logger.Info("data preview", zap.Strings("columns", table.ColumnNames()))
	for i, row := range table.Head(l.cfg.PreviewRows) {
		l.logger.Info("preview row", zap.Int("index", i), zap.Strings("values", row))
	}
}
