package columnar

import (
	"math"
	"sort"
	"strconv"
	"time"
)

// Kind is the storage family of a column
type Kind int

const (
	KindString Kind = iota
	KindCategory
	KindInt
	KindFloat
	KindTimestamp
)

// String returns the kind name
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindCategory:
		return "category"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindTimestamp:
		return "timestamp"
	default:
		return "unknown"
	}
}

// TimestampLayout is the text form of timestamps in previews and exports.
const TimestampLayout = "2006-01-02 15:04:05"

// NaT marks a missing timestamp.
const NaT int64 = math.MinInt64

const stringHeaderSize = 16

// Column is the base interface for all column types
type Column interface {
	Kind() Kind
	Len() int
	IsNull(i int) bool
	// Format renders row i as text; missing values render as ""
	Format(i int) string
	// DataType is the resolved storage type name
	DataType() string
	// MemoryUsage is the deep size in bytes
	MemoryUsage() int64
}

// bitmap is a growable bit set, 64 bits per word
type bitmap struct {
	words []uint64
	n     int
}

func (b *bitmap) append(v bool) {
	word, bit := b.n/64, uint(b.n%64)
	if word >= len(b.words) {
		b.words = append(b.words, 0)
	}
	if v {
		b.words[word] |= 1 << bit
	}
	b.n++
}

func (b *bitmap) get(i int) bool {
	return b.words[i/64]&(1<<uint(i%64)) != 0
}

func (b *bitmap) bytes() int64 {
	return int64(len(b.words) * 8)
}

// StringColumn stores text values with a null bitmap
type StringColumn struct {
	values    []string
	nulls     bitmap
	nullCount int
}

// NewStringColumn creates an empty string column
func NewStringColumn(capacity int) *StringColumn {
	return &StringColumn{values: make([]string, 0, capacity)}
}

// Append adds a non-missing value
func (c *StringColumn) Append(v string) {
	c.values = append(c.values, v)
	c.nulls.append(false)
}

// AppendNull adds a missing value
func (c *StringColumn) AppendNull() {
	c.values = append(c.values, "")
	c.nulls.append(true)
	c.nullCount++
}

func (c *StringColumn) Kind() Kind         { return KindString }
func (c *StringColumn) Len() int           { return len(c.values) }
func (c *StringColumn) IsNull(i int) bool  { return c.nulls.get(i) }
func (c *StringColumn) Value(i int) string { return c.values[i] }
func (c *StringColumn) NullCount() int     { return c.nullCount }
func (c *StringColumn) DataType() string   { return "object" }
func (c *StringColumn) Format(i int) string {
	if c.IsNull(i) {
		return ""
	}
	return c.values[i]
}

// Distinct returns the number of distinct non-missing values
func (c *StringColumn) Distinct() int {
	seen := make(map[string]struct{})
	for i, v := range c.values {
		if !c.nulls.get(i) {
			seen[v] = struct{}{}
		}
	}
	return len(seen)
}

func (c *StringColumn) MemoryUsage() int64 {
	total := int64(len(c.values)) * stringHeaderSize
	for i, v := range c.values {
		if !c.nulls.get(i) {
			total += int64(len(v))
		}
	}
	return total + c.nulls.bytes()
}

// CategoryColumn stores text as a sorted label dictionary plus per-row codes.
// Code -1 marks a missing value.
type CategoryColumn struct {
	categories []string
	width      int
	codes8     []int8
	codes16    []int16
	codes32    []int32
	n          int
}

// NewCategoryColumn dictionary-encodes a string column
func NewCategoryColumn(src *StringColumn) *CategoryColumn {
	labels := make(map[string]int32)
	for i, v := range src.values {
		if !src.IsNull(i) {
			labels[v] = 0
		}
	}
	categories := make([]string, 0, len(labels))
	for v := range labels {
		categories = append(categories, v)
	}
	sort.Strings(categories)
	for code, v := range categories {
		labels[v] = int32(code)
	}

	codes := make([]int64, src.Len())
	for i, v := range src.values {
		if src.IsNull(i) {
			codes[i] = -1
			continue
		}
		codes[i] = int64(labels[v])
	}

	c := &CategoryColumn{
		categories: categories,
		width:      categoryCodeWidth(len(categories)),
		n:          len(codes),
	}
	switch c.width {
	case 1:
		c.codes8 = narrowInts[int8](codes)
	case 2:
		c.codes16 = narrowInts[int16](codes)
	default:
		c.codes32 = narrowInts[int32](codes)
	}
	return c
}

// categoryCodeWidth picks the narrowest signed code type for n labels
func categoryCodeWidth(n int) int {
	switch {
	case n < math.MaxInt8:
		return 1
	case n < math.MaxInt16:
		return 2
	default:
		return 4
	}
}

// Code returns the dictionary code of row i, or -1 when missing
func (c *CategoryColumn) Code(i int) int {
	switch c.width {
	case 1:
		return int(c.codes8[i])
	case 2:
		return int(c.codes16[i])
	default:
		return int(c.codes32[i])
	}
}

func (c *CategoryColumn) Kind() Kind           { return KindCategory }
func (c *CategoryColumn) Len() int             { return c.n }
func (c *CategoryColumn) IsNull(i int) bool    { return c.Code(i) < 0 }
func (c *CategoryColumn) Categories() []string { return c.categories }
func (c *CategoryColumn) CodeWidth() int       { return c.width }
func (c *CategoryColumn) DataType() string     { return "category" }

// Value returns the label of row i, or "" when missing
func (c *CategoryColumn) Value(i int) string {
	code := c.Code(i)
	if code < 0 {
		return ""
	}
	return c.categories[code]
}

func (c *CategoryColumn) Format(i int) string { return c.Value(i) }

func (c *CategoryColumn) MemoryUsage() int64 {
	total := int64(c.n * c.width)
	for _, v := range c.categories {
		total += stringHeaderSize + int64(len(v))
	}
	return total
}

type signed interface {
	~int8 | ~int16 | ~int32 | ~int64
}

func narrowInts[T signed](src []int64) []T {
	out := make([]T, len(src))
	for i, v := range src {
		out[i] = T(v)
	}
	return out
}

// IntColumn stores non-missing signed integers at a fixed byte width
type IntColumn struct {
	width int
	i8    []int8
	i16   []int16
	i32   []int32
	i64   []int64
}

// NewIntColumn wraps int64 values
func NewIntColumn(values []int64) *IntColumn {
	return &IntColumn{width: 8, i64: values}
}

func (c *IntColumn) Kind() Kind        { return KindInt }
func (c *IntColumn) IsNull(int) bool   { return false }
func (c *IntColumn) Width() int        { return c.width }
func (c *IntColumn) DataType() string  { return "int" + strconv.Itoa(c.width*8) }
func (c *IntColumn) MemoryUsage() int64 { return int64(c.Len() * c.width) }

func (c *IntColumn) Len() int {
	switch c.width {
	case 1:
		return len(c.i8)
	case 2:
		return len(c.i16)
	case 4:
		return len(c.i32)
	default:
		return len(c.i64)
	}
}

// Value returns row i widened to int64
func (c *IntColumn) Value(i int) int64 {
	switch c.width {
	case 1:
		return int64(c.i8[i])
	case 2:
		return int64(c.i16[i])
	case 4:
		return int64(c.i32[i])
	default:
		return c.i64[i]
	}
}

func (c *IntColumn) Format(i int) string {
	return strconv.FormatInt(c.Value(i), 10)
}

// Range returns the minimum and maximum value; ok is false for an empty column
func (c *IntColumn) Range() (lo, hi int64, ok bool) {
	n := c.Len()
	if n == 0 {
		return 0, 0, false
	}
	lo, hi = c.Value(0), c.Value(0)
	for i := 1; i < n; i++ {
		v := c.Value(i)
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi, true
}

// WithWidth returns a copy stored at width bytes (1, 2, 4 or 8). The caller
// guarantees every value fits.
func (c *IntColumn) WithWidth(width int) *IntColumn {
	values := make([]int64, c.Len())
	for i := range values {
		values[i] = c.Value(i)
	}
	out := &IntColumn{width: width}
	switch width {
	case 1:
		out.i8 = narrowInts[int8](values)
	case 2:
		out.i16 = narrowInts[int16](values)
	case 4:
		out.i32 = narrowInts[int32](values)
	default:
		out.width = 8
		out.i64 = values
	}
	return out
}

// FloatColumn stores floating point values; NaN is the missing value
type FloatColumn struct {
	width int
	f32   []float32
	f64   []float64
}

// NewFloatColumn wraps float64 values
func NewFloatColumn(values []float64) *FloatColumn {
	return &FloatColumn{width: 8, f64: values}
}

func (c *FloatColumn) Kind() Kind         { return KindFloat }
func (c *FloatColumn) Width() int         { return c.width }
func (c *FloatColumn) DataType() string   { return "float" + strconv.Itoa(c.width*8) }
func (c *FloatColumn) IsNull(i int) bool  { return math.IsNaN(c.Value(i)) }
func (c *FloatColumn) MemoryUsage() int64 { return int64(c.Len() * c.width) }

func (c *FloatColumn) Len() int {
	if c.width == 4 {
		return len(c.f32)
	}
	return len(c.f64)
}

// Value returns row i widened to float64
func (c *FloatColumn) Value(i int) float64 {
	if c.width == 4 {
		return float64(c.f32[i])
	}
	return c.f64[i]
}

func (c *FloatColumn) Format(i int) string {
	v := c.Value(i)
	if math.IsNaN(v) {
		return ""
	}
	bits := 64
	if c.width == 4 {
		bits = 32
	}
	return FormatFloat(v, bits)
}

// Float32 returns a copy stored as float32
func (c *FloatColumn) Float32() *FloatColumn {
	out := &FloatColumn{width: 4, f32: make([]float32, c.Len())}
	for i := range out.f32 {
		out.f32[i] = float32(c.Value(i))
	}
	return out
}

// FormatFloat renders v in its shortest form for the given bit size and
// keeps a ".0" suffix on integral values.
func FormatFloat(v float64, bits int) string {
	if math.IsInf(v, 1) {
		return "inf"
	}
	if math.IsInf(v, -1) {
		return "-inf"
	}
	s := strconv.FormatFloat(v, 'f', -1, bits)
	if v == math.Trunc(v) && math.Abs(v) < 1e16 {
		s += ".0"
	}
	return s
}

// TimestampColumn stores UTC instants as nanoseconds since the epoch
type TimestampColumn struct {
	values []int64
}

// NewTimestampColumn wraps nanosecond values; NaT marks missing rows
func NewTimestampColumn(values []int64) *TimestampColumn {
	return &TimestampColumn{values: values}
}

func (c *TimestampColumn) Kind() Kind         { return KindTimestamp }
func (c *TimestampColumn) Len() int           { return len(c.values) }
func (c *TimestampColumn) IsNull(i int) bool  { return c.values[i] == NaT }
func (c *TimestampColumn) Nanos(i int) int64  { return c.values[i] }
func (c *TimestampColumn) DataType() string   { return "datetime64[ns]" }
func (c *TimestampColumn) MemoryUsage() int64 { return int64(len(c.values) * 8) }

// Value returns row i as a UTC time; callers check IsNull first
func (c *TimestampColumn) Value(i int) time.Time {
	return time.Unix(0, c.values[i]).UTC()
}

func (c *TimestampColumn) Format(i int) string {
	if c.IsNull(i) {
		return ""
	}
	return c.Value(i).Format(TimestampLayout)
}
