package columnar

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cell is a raw builder input; nil means missing
func cell(s string) *string { return &s }

func build(cells ...*string) Column {
	b := NewInferBuilder(4)
	for _, c := range cells {
		if c == nil {
			b.AppendNull()
			continue
		}
		b.Append(*c)
	}
	return b.Finish()
}

func TestInferBuilder(t *testing.T) {
	tests := []struct {
		name     string
		cells    []*string
		kind     Kind
		dataType string
		want     []string
	}{
		{"ints", []*string{cell("1"), cell("2"), cell("3")}, KindInt, "int64", []string{"1", "2", "3"}},
		{"null promotes int", []*string{cell("1"), nil, cell("3")}, KindFloat, "float64", []string{"1.0", "", "3.0"}},
		{"leading null", []*string{nil, cell("5")}, KindFloat, "float64", []string{"", "5.0"}},
		{"int then float", []*string{cell("1"), cell("2.5")}, KindFloat, "float64", []string{"1.0", "2.5"}},
		{"int then text", []*string{cell("2"), cell("x")}, KindString, "object", []string{"2", "x"}},
		{"float then text", []*string{cell("1.5"), nil, cell("abc")}, KindString, "object", []string{"1.5", "", "abc"}},
		{"text keeps numeric spelling", []*string{cell("007"), cell("1.50"), nil, cell("abc")}, KindString, "object", []string{"007", "1.50", "", "abc"}},
		{"leading null then text", []*string{nil, cell("1e3"), cell("zip")}, KindString, "object", []string{"", "1e3", "zip"}},
		{"all missing", []*string{nil, nil}, KindFloat, "float64", []string{"", ""}},
		{"text with leading null", []*string{nil, cell("a")}, KindString, "object", []string{"", "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			col := build(tt.cells...)
			assert.Equal(t, tt.kind, col.Kind())
			assert.Equal(t, tt.dataType, col.DataType())
			require.Equal(t, len(tt.want), col.Len())
			for i, want := range tt.want {
				assert.Equal(t, want, col.Format(i), "row %d", i)
				assert.Equal(t, want == "", col.IsNull(i), "row %d", i)
			}
		})
	}
}

func TestStringColumnMemory(t *testing.T) {
	c := NewStringColumn(2)
	c.Append("ab")
	c.AppendNull()

	assert.Equal(t, int64(2*16+2+8), c.MemoryUsage())
	assert.Equal(t, 1, c.NullCount())
	assert.Equal(t, 1, c.Distinct())
}

func TestCategoryColumn(t *testing.T) {
	src := NewStringColumn(4)
	src.Append("b")
	src.Append("a")
	src.Append("b")
	src.AppendNull()

	c := NewCategoryColumn(src)
	assert.Equal(t, []string{"a", "b"}, c.Categories())
	assert.Equal(t, 1, c.CodeWidth())
	assert.Equal(t, "category", c.DataType())
	assert.Equal(t, []int{1, 0, 1, -1}, []int{c.Code(0), c.Code(1), c.Code(2), c.Code(3)})
	assert.True(t, c.IsNull(3))
	assert.Equal(t, "", c.Format(3))
	for i := 0; i < 3; i++ {
		assert.Equal(t, src.Value(i), c.Value(i))
	}
	assert.Equal(t, int64(4+2*(16+1)), c.MemoryUsage())
}

func TestCategoryCodeWidth(t *testing.T) {
	assert.Equal(t, 1, categoryCodeWidth(126))
	assert.Equal(t, 2, categoryCodeWidth(127))
	assert.Equal(t, 2, categoryCodeWidth(32766))
	assert.Equal(t, 4, categoryCodeWidth(32767))
}

func TestIntColumnWidth(t *testing.T) {
	c := NewIntColumn([]int64{-5, 100, 7})
	lo, hi, ok := c.Range()
	require.True(t, ok)
	assert.Equal(t, int64(-5), lo)
	assert.Equal(t, int64(100), hi)

	narrow := c.WithWidth(1)
	assert.Equal(t, "int8", narrow.DataType())
	assert.Equal(t, int64(3), narrow.MemoryUsage())
	for i := 0; i < c.Len(); i++ {
		assert.Equal(t, c.Value(i), narrow.Value(i))
	}

	_, _, ok = NewIntColumn(nil).Range()
	assert.False(t, ok)
}

func TestFloatColumn(t *testing.T) {
	c := NewFloatColumn([]float64{1.5, math.NaN(), -77})
	assert.Equal(t, "float64", c.DataType())
	assert.Equal(t, []string{"1.5", "", "-77.0"}, []string{c.Format(0), c.Format(1), c.Format(2)})

	f32 := c.Float32()
	assert.Equal(t, "float32", f32.DataType())
	assert.Equal(t, int64(12), f32.MemoryUsage())
	assert.True(t, f32.IsNull(1))
	assert.Equal(t, "1.5", f32.Format(0))
}

func TestFormatFloat(t *testing.T) {
	assert.Equal(t, "12.5", FormatFloat(12.5, 64))
	assert.Equal(t, "58523.0", FormatFloat(58523, 64))
	assert.Equal(t, "0.1", FormatFloat(float64(float32(0.1)), 32))
	assert.Equal(t, "inf", FormatFloat(math.Inf(1), 64))
}

func TestTimestampColumn(t *testing.T) {
	ts := time.Date(2022, 1, 1, 10, 0, 0, 0, time.UTC)
	c := NewTimestampColumn([]int64{ts.UnixNano(), NaT})

	assert.Equal(t, "2022-01-01 10:00:00", c.Format(0))
	assert.True(t, c.Value(0).Equal(ts))
	assert.True(t, c.IsNull(1))
	assert.Equal(t, "", c.Format(1))
	assert.Equal(t, "datetime64[ns]", c.DataType())
}

func TestTable(t *testing.T) {
	tbl := NewTable()
	require.NoError(t, tbl.AddColumn("a", NewIntColumn([]int64{1, 2})))
	require.NoError(t, tbl.AddColumn("b", NewFloatColumn([]float64{0.5, 1})))

	assert.Error(t, tbl.AddColumn("a", NewIntColumn([]int64{1, 2})))
	assert.Error(t, tbl.AddColumn("c", NewIntColumn([]int64{1})))
	assert.Error(t, tbl.Replace("a", NewIntColumn([]int64{1})))
	assert.Error(t, tbl.Replace("zz", NewIntColumn([]int64{1, 2})))

	assert.Equal(t, 2, tbl.NumRows())
	assert.Equal(t, []string{"a", "b"}, tbl.ColumnNames())
	assert.Equal(t, int64(32), tbl.MemoryUsage())

	proj, err := tbl.Project([]string{"b", "a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, proj.ColumnNames())

	_, err = tbl.Project([]string{"missing"})
	assert.Error(t, err)

	assert.Equal(t, [][]string{{"1", "0.5"}, {"2", "1.0"}}, tbl.Head(10))

	_, err = tbl.Row(2)
	assert.Error(t, err)

	require.NoError(t, tbl.Replace("a", NewIntColumn([]int64{1, 2}).WithWidth(1)))
	assert.Equal(t, int64(18), tbl.MemoryUsage())
}
