package visualizer

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/ajitpratap0/txprofile/pkg/columnar"
	"github.com/ajitpratap0/txprofile/pkg/errors"
)

// LabelCount is the number of rows carrying one label
type LabelCount struct {
	Label string
	Count int
}

// LabelShare is a label with its share of a group of counts
type LabelShare struct {
	LabelCount
	Share float64
}

// SumByTime sums amounts per distinct timestamp in ascending time order.
// Missing timestamps are dropped. A timestamp whose amounts are all missing
// sums to zero.
func SumByTime(dates, amounts columnar.Column) ([]time.Time, []float64, error) {
	ts, ok := dates.(*columnar.TimestampColumn)
	if !ok {
		return nil, nil, kindError("date", dates, columnar.KindTimestamp)
	}
	if err := requireNumeric("amount", amounts); err != nil {
		return nil, nil, err
	}

	sums := make(map[int64]float64)
	for i := 0; i < ts.Len(); i++ {
		if ts.IsNull(i) {
			continue
		}
		v, ok := numeric(amounts, i)
		if !ok {
			v = 0
		}
		sums[ts.Nanos(i)] += v
	}

	keys := make([]int64, 0, len(sums))
	for k := range sums {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	xs := make([]time.Time, len(keys))
	ys := make([]float64, len(keys))
	for i, k := range keys {
		xs[i] = time.Unix(0, k).UTC()
		ys[i] = sums[k]
	}
	return xs, ys, nil
}

// CountByLabel counts non-missing labels, most frequent first. Ties are
// ordered by label. Numeric columns are counted by their text form.
func CountByLabel(col columnar.Column) []LabelCount {
	counts := make(map[string]int)
	for i := 0; i < col.Len(); i++ {
		if col.IsNull(i) {
			continue
		}
		counts[col.Format(i)]++
	}

	out := make([]LabelCount, 0, len(counts))
	for label, n := range counts {
		out = append(out, LabelCount{Label: label, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// TopShares keeps the n most frequent labels and computes each one's share
// of their combined count
func TopShares(counts []LabelCount, n int) []LabelShare {
	if n < len(counts) {
		counts = counts[:n]
	}
	total := 0
	for _, c := range counts {
		total += c.Count
	}

	out := make([]LabelShare, len(counts))
	for i, c := range counts {
		out[i] = LabelShare{LabelCount: c}
		if total > 0 {
			out[i].Share = float64(c.Count) / float64(total)
		}
	}
	return out
}

// Pairs returns the rows where both x and y are present
func Pairs(x, y columnar.Column) ([]float64, []float64, error) {
	if err := requireNumeric("x", x); err != nil {
		return nil, nil, err
	}
	if err := requireNumeric("y", y); err != nil {
		return nil, nil, err
	}

	xs := make([]float64, 0, x.Len())
	ys := make([]float64, 0, y.Len())
	for i := 0; i < x.Len(); i++ {
		xv, xok := numeric(x, i)
		yv, yok := numeric(y, i)
		if !xok || !yok {
			continue
		}
		xs = append(xs, xv)
		ys = append(ys, yv)
	}
	return xs, ys, nil
}

// Values returns the present finite values of a numeric column
func Values(col columnar.Column) ([]float64, error) {
	if err := requireNumeric("value", col); err != nil {
		return nil, err
	}
	out := make([]float64, 0, col.Len())
	for i := 0; i < col.Len(); i++ {
		if v, ok := numeric(col, i); ok && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out, nil
}

// Histogram bins values into equal-width bins spanning [min, max]. The
// maximum falls into the last bin. A single distinct value is centred in a
// range of width one. NaN and infinite values are not binned.
func Histogram(values []float64, bins int) (edges, counts []float64) {
	if bins <= 0 {
		return nil, nil
	}

	sorted := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			sorted = append(sorted, v)
		}
	}
	if len(sorted) == 0 {
		return nil, nil
	}
	sort.Float64s(sorted)

	lo, hi := sorted[0], sorted[len(sorted)-1]
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}

	edges = floats.Span(make([]float64, bins+1), lo, hi)
	dividers := append([]float64(nil), edges...)
	dividers[bins] = math.Nextafter(hi, math.Inf(1))

	counts = stat.Histogram(nil, dividers, sorted, nil)
	return edges, counts
}

func numeric(col columnar.Column, i int) (float64, bool) {
	switch c := col.(type) {
	case *columnar.FloatColumn:
		v := c.Value(i)
		return v, !math.IsNaN(v)
	case *columnar.IntColumn:
		return float64(c.Value(i)), true
	default:
		return 0, false
	}
}

func requireNumeric(role string, col columnar.Column) error {
	switch col.Kind() {
	case columnar.KindInt, columnar.KindFloat:
		return nil
	default:
		return kindError(role, col, columnar.KindFloat)
	}
}

func kindError(role string, col columnar.Column, want columnar.Kind) error {
	return errors.New(errors.ErrorTypeData, "column has the wrong kind for this chart").
		WithDetail("role", role).
		WithDetail("kind", col.Kind().String()).
		WithDetail("want", want.String())
}
