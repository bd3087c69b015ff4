package columnar

import (
	"math"
	"strconv"
)

// Builder accumulates one column across load batches
type Builder interface {
	Len() int
	Finish() Column
}

// FloatBuilder collects already parsed floats
type FloatBuilder struct {
	values []float64
}

// NewFloatBuilder creates a float builder
func NewFloatBuilder(capacity int) *FloatBuilder {
	return &FloatBuilder{values: make([]float64, 0, capacity)}
}

func (b *FloatBuilder) Append(v float64) { b.values = append(b.values, v) }
func (b *FloatBuilder) AppendNull()      { b.values = append(b.values, math.NaN()) }
func (b *FloatBuilder) Len() int         { return len(b.values) }
func (b *FloatBuilder) Finish() Column   { return NewFloatColumn(b.values) }

// TimestampBuilder collects already parsed instants
type TimestampBuilder struct {
	values []int64
}

// NewTimestampBuilder creates a timestamp builder
func NewTimestampBuilder(capacity int) *TimestampBuilder {
	return &TimestampBuilder{values: make([]int64, 0, capacity)}
}

func (b *TimestampBuilder) Append(nanos int64) { b.values = append(b.values, nanos) }
func (b *TimestampBuilder) AppendNull()        { b.values = append(b.values, NaT) }
func (b *TimestampBuilder) Len() int           { return len(b.values) }
func (b *TimestampBuilder) Finish() Column     { return NewTimestampColumn(b.values) }

// InferBuilder detects the narrowest kind that holds every value seen so far.
// Kinds only widen: int, then float, then string. Until the first non-missing
// value arrives the builder only counts missing rows. While the column is
// numeric the raw cells are kept so a promotion to string keeps their text.
type InferBuilder struct {
	kind     Kind
	seen     bool
	pending  int
	ints     []int64
	floats   []float64
	raws     []string // "" marks a missing row
	strs     *StringColumn
	capacity int
}

// NewInferBuilder creates an inferring builder
func NewInferBuilder(capacity int) *InferBuilder {
	return &InferBuilder{capacity: capacity}
}

// Kind returns the kind inferred so far; KindFloat before any value is seen
func (b *InferBuilder) Kind() Kind {
	if !b.seen {
		return KindFloat
	}
	return b.kind
}

func (b *InferBuilder) Len() int {
	if !b.seen {
		return b.pending
	}
	switch b.kind {
	case KindInt:
		return len(b.ints)
	case KindFloat:
		return len(b.floats)
	default:
		return b.strs.Len()
	}
}

// AppendNull adds a missing value, promoting an int column to float
func (b *InferBuilder) AppendNull() {
	if !b.seen {
		b.pending++
		return
	}
	switch b.kind {
	case KindInt:
		b.toFloat()
		b.floats = append(b.floats, math.NaN())
		b.raws = append(b.raws, "")
	case KindFloat:
		b.floats = append(b.floats, math.NaN())
		b.raws = append(b.raws, "")
	default:
		b.strs.AppendNull()
	}
}

// Append adds a raw non-missing cell
func (b *InferBuilder) Append(raw string) {
	if !b.seen {
		b.start(raw)
	}

	switch b.kind {
	case KindInt:
		if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
			b.ints = append(b.ints, v)
			b.raws = append(b.raws, raw)
			return
		}
		if _, err := strconv.ParseFloat(raw, 64); err == nil {
			b.toFloat()
		} else {
			b.toString()
		}
		b.Append(raw)
	case KindFloat:
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			b.floats = append(b.floats, v)
			b.raws = append(b.raws, raw)
			return
		}
		b.toString()
		b.Append(raw)
	default:
		b.strs.Append(raw)
	}
}

// start picks the initial kind from the first value and back-fills the
// missing rows seen before it
func (b *InferBuilder) start(raw string) {
	b.seen = true
	switch {
	case isInt(raw) && b.pending == 0:
		b.kind = KindInt
		b.ints = make([]int64, 0, b.capacity)
		b.raws = make([]string, 0, b.capacity)
	case isInt(raw) || isFloat(raw):
		b.kind = KindFloat
		b.floats = make([]float64, 0, b.capacity)
		b.raws = make([]string, b.pending, max(b.pending, b.capacity))
		for i := 0; i < b.pending; i++ {
			b.floats = append(b.floats, math.NaN())
		}
	default:
		b.kind = KindString
		b.strs = NewStringColumn(b.capacity)
		for i := 0; i < b.pending; i++ {
			b.strs.AppendNull()
		}
	}
	b.pending = 0
}

func (b *InferBuilder) toFloat() {
	b.floats = make([]float64, len(b.ints), max(len(b.ints), b.capacity))
	for i, v := range b.ints {
		b.floats[i] = float64(v)
	}
	b.ints = nil
	b.kind = KindFloat
}

func (b *InferBuilder) toString() {
	b.strs = NewStringColumn(max(len(b.raws), b.capacity))
	for _, raw := range b.raws {
		if raw == "" {
			b.strs.AppendNull()
			continue
		}
		b.strs.Append(raw)
	}
	b.ints, b.floats, b.raws = nil, nil, nil
	b.kind = KindString
}

// Finish returns the built column; a column of only missing values is float
func (b *InferBuilder) Finish() Column {
	if !b.seen {
		values := make([]float64, b.pending)
		for i := range values {
			values[i] = math.NaN()
		}
		return NewFloatColumn(values)
	}
	b.raws = nil
	switch b.kind {
	case KindInt:
		return NewIntColumn(b.ints)
	case KindFloat:
		return NewFloatColumn(b.floats)
	default:
		return b.strs
	}
}

func isInt(raw string) bool {
	_, err := strconv.ParseInt(raw, 10, 64)
	return err == nil
}

func isFloat(raw string) bool {
	_, err := strconv.ParseFloat(raw, 64)
	return err == nil
}
