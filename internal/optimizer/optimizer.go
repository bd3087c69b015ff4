// Package optimizer reduces the memory footprint of a loaded table.
//
// Text columns with few distinct values become categorical. Integer columns
// are narrowed to the smallest signed width that holds their range, and float
// columns to float32 when no value changes beyond the configured tolerance.
// Values never change, only their storage.
package optimizer

import (
	"context"
	"math"

	"go.uber.org/zap"

	"github.com/ajitpratap0/txprofile/pkg/columnar"
	"github.com/ajitpratap0/txprofile/pkg/config"
	"github.com/ajitpratap0/txprofile/pkg/errors"
)

// Change records one column whose storage was replaced
type Change struct {
	Column string
	From   string
	To     string
	// DistinctRatio is set for categorical conversions: distinct values over
	// rows, measured before the conversion
	DistinctRatio float64
}

// Optimizer downcasts table columns in place
type Optimizer struct {
	cfg    config.OptimizerConfig
	logger *zap.Logger
}

// New creates an optimizer
func New(cfg config.OptimizerConfig, logger *zap.Logger) *Optimizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Optimizer{cfg: cfg, logger: logger}
}

// Optimize replaces column storage in t and returns the changes in table
// order. An empty table is left untouched.
func (o *Optimizer) Optimize(ctx context.Context, t *columnar.Table) ([]Change, error) {
	if t.NumRows() == 0 {
		o.logger.Info("table is empty, nothing to optimize")
		return nil, nil
	}

	var changes []Change
	for _, name := range t.ColumnNames() {
		if err := ctx.Err(); err != nil {
			return changes, errors.Wrap(err, errors.ErrorTypeInternal, "optimization cancelled")
		}

		col, _ := t.Column(name)
		replacement, ratio := o.optimizeColumn(col, t.NumRows())
		if replacement == nil {
			continue
		}

		if err := t.Replace(name, replacement); err != nil {
			return changes, errors.Wrap(err, errors.ErrorTypeInternal, "failed to replace column").
				WithDetail("column", name)
		}

		change := Change{
			Column:        name,
			From:          col.DataType(),
			To:            replacement.DataType(),
			DistinctRatio: ratio,
		}
		changes = append(changes, change)
		o.logger.Info("column optimized",
			zap.String("column", name),
			zap.String("from", change.From),
			zap.String("to", change.To),
			zap.Int64("bytes_before", col.MemoryUsage()),
			zap.Int64("bytes_after", replacement.MemoryUsage()))
	}
	return changes, nil
}

// optimizeColumn returns the narrower storage for col, or nil to keep it
func (o *Optimizer) optimizeColumn(col columnar.Column, rows int) (columnar.Column, float64) {
	switch col.Kind() {
	case columnar.KindString:
		s := col.(*columnar.StringColumn)
		ratio := float64(s.Distinct()) / float64(rows)
		if ratio < o.cfg.CategoryThreshold {
			return columnar.NewCategoryColumn(s), ratio
		}
	case columnar.KindInt:
		c := col.(*columnar.IntColumn)
		lo, hi, ok := c.Range()
		if !ok {
			return nil, 0
		}
		if width := IntWidth(lo, hi); width < c.Width() {
			return c.WithWidth(width), 0
		}
	case columnar.KindFloat:
		c := col.(*columnar.FloatColumn)
		if c.Width() == 8 && FitsFloat32(c, o.cfg.FloatTolerance) {
			return c.Float32(), 0
		}
	}
	return nil, 0
}

// IntWidth is the smallest signed byte width holding [lo, hi]
func IntWidth(lo, hi int64) int {
	switch {
	case lo >= math.MinInt8 && hi <= math.MaxInt8:
		return 1
	case lo >= math.MinInt16 && hi <= math.MaxInt16:
		return 2
	case lo >= math.MinInt32 && hi <= math.MaxInt32:
		return 4
	default:
		return 8
	}
}

// FitsFloat32 reports whether every value survives a float32 round trip
// within tol. Missing values and infinities carry over unchanged.
func FitsFloat32(c *columnar.FloatColumn, tol float64) bool {
	for i := 0; i < c.Len(); i++ {
		v := c.Value(i)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		if math.Abs(v) > math.MaxFloat32 {
			return false
		}
		if math.Abs(float64(float32(v))-v) > tol {
			return false
		}
	}
	return true
}
