package visualizer

import (
	"bytes"
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/txprofile/pkg/columnar"
	"github.com/ajitpratap0/txprofile/pkg/config"
	"github.com/ajitpratap0/txprofile/pkg/errors"
	"github.com/ajitpratap0/txprofile/pkg/testutil"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func labels(values ...string) *columnar.StringColumn {
	c := columnar.NewStringColumn(len(values))
	for _, v := range values {
		if v == "" {
			c.AppendNull()
			continue
		}
		c.Append(v)
	}
	return c
}

func at(h int) int64 {
	return time.Date(2022, 1, 1, h, 0, 0, 0, time.UTC).UnixNano()
}

func chartTable(t *testing.T) *columnar.Table {
	t.Helper()

	tbl := columnar.NewTable()
	require.NoError(t, tbl.AddColumn("date", columnar.NewTimestampColumn([]int64{at(10), at(9), at(10), columnar.NaT, at(11)})))
	require.NoError(t, tbl.AddColumn("amount", columnar.NewFloatColumn([]float64{10, 5, 2.5, 100, math.NaN()})))
	require.NoError(t, tbl.AddColumn("client_id", columnar.NewIntColumn([]int64{1, 2, 3, 4, 5}).WithWidth(1)))
	require.NoError(t, tbl.AddColumn("use_chip", columnar.NewCategoryColumn(labels("Swipe", "Chip", "Swipe", "Online", "Chip"))))
	require.NoError(t, tbl.AddColumn("merchant_state", labels("CA", "TX", "CA", "", "NY")))
	return tbl
}

func TestSumByTime(t *testing.T) {
	tbl := chartTable(t)
	dates, _ := tbl.Column("date")
	amounts, _ := tbl.Column("amount")

	xs, ys, err := SumByTime(dates, amounts)
	require.NoError(t, err)
	require.Len(t, xs, 3)
	assert.Equal(t, []float64{5, 12.5, 0}, ys)
	assert.True(t, xs[0].Before(xs[1]) && xs[1].Before(xs[2]))

	_, _, err = SumByTime(amounts, amounts)
	assert.True(t, errors.IsType(err, errors.ErrorTypeData))
}

func TestCountByLabel(t *testing.T) {
	got := CountByLabel(labels("b", "a", "c", "a", "b", "", "d"))
	assert.Equal(t, []LabelCount{{"a", 2}, {"b", 2}, {"c", 1}, {"d", 1}}, got)
	assert.Empty(t, CountByLabel(labels("", "")))
}

func TestTopShares(t *testing.T) {
	counts := []LabelCount{{"CA", 6}, {"TX", 2}, {"NY", 1}, {"FL", 1}, {"OH", 0}, {"WA", 0}}
	shares := TopShares(counts, 3)
	require.Len(t, shares, 3)
	assert.InDelta(t, 6.0/9.0, shares[0].Share, 1e-12)
	assert.InDelta(t, 1.0/9.0, shares[2].Share, 1e-12)

	assert.Len(t, TopShares(counts[:2], 5), 2)
}

func TestPairs(t *testing.T) {
	tbl := chartTable(t)
	clients, _ := tbl.Column("client_id")
	amounts, _ := tbl.Column("amount")

	xs, ys, err := Pairs(clients, amounts)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3, 4}, xs)
	assert.Equal(t, []float64{10, 5, 2.5, 100}, ys)

	chip, _ := tbl.Column("use_chip")
	_, _, err = Pairs(chip, amounts)
	assert.Error(t, err)
}

func TestHistogram(t *testing.T) {
	values := []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	edges, counts := Histogram(values, 5)

	assert.Equal(t, []float64{0, 2, 4, 6, 8, 10}, edges)
	assert.Equal(t, []float64{2, 2, 2, 2, 3}, counts)

	var total float64
	for _, c := range counts {
		total += c
	}
	assert.Equal(t, float64(len(values)), total)
}

func TestHistogramSingleValue(t *testing.T) {
	edges, counts := Histogram([]float64{7, 7, 7}, 2)
	assert.Equal(t, []float64{6.5, 7, 7.5}, edges)
	assert.Equal(t, []float64{0, 3}, counts)

	edges, counts = Histogram(nil, 30)
	assert.Nil(t, edges)
	assert.Nil(t, counts)
}

func TestHistogramSkipsNonFinite(t *testing.T) {
	values := []float64{1, math.Inf(1), 3, math.NaN(), math.Inf(-1), 2}
	require.NotPanics(t, func() {
		edges, counts := Histogram(values, 2)
		assert.Equal(t, []float64{1, 2, 3}, edges)
		assert.Equal(t, []float64{1, 2}, counts)
	})

	edges, counts := Histogram([]float64{math.Inf(1), math.Inf(-1)}, 4)
	assert.Nil(t, edges)
	assert.Nil(t, counts)
}

func TestRender(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default().Charts
	cfg.Width, cfg.Height = 320, 240

	require.NoError(t, New(cfg, dir, testutil.TestLogger(t)).Render(context.Background(), chartTable(t)))

	for _, name := range []string{cfg.LineChart, cfg.BarChart, cfg.PieChart, cfg.ScatterPlot, cfg.Histogram} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err, name)
		assert.True(t, bytes.HasPrefix(data, pngMagic), name)
	}
}

func TestRenderSingleRow(t *testing.T) {
	tbl := columnar.NewTable()
	require.NoError(t, tbl.AddColumn("date", columnar.NewTimestampColumn([]int64{at(1)})))
	require.NoError(t, tbl.AddColumn("amount", columnar.NewFloatColumn([]float64{3})))
	require.NoError(t, tbl.AddColumn("client_id", columnar.NewIntColumn([]int64{9})))
	require.NoError(t, tbl.AddColumn("use_chip", labels("Chip")))
	require.NoError(t, tbl.AddColumn("merchant_state", labels("CA")))

	cfg := config.Default().Charts
	cfg.Width, cfg.Height = 320, 240
	assert.NoError(t, New(cfg, t.TempDir(), nil).Render(context.Background(), tbl))
}

func TestRenderEmptyTable(t *testing.T) {
	dir := t.TempDir()
	tbl := columnar.NewTable()
	require.NoError(t, tbl.AddColumn("amount", columnar.NewFloatColumn(nil)))

	err := New(config.Default().Charts, dir, nil).Render(context.Background(), tbl)
	assert.True(t, errors.IsType(err, errors.ErrorTypeData))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRenderMissingColumn(t *testing.T) {
	tbl := columnar.NewTable()
	require.NoError(t, tbl.AddColumn("amount", columnar.NewFloatColumn([]float64{1})))

	err := New(config.Default().Charts, t.TempDir(), nil).Render(context.Background(), tbl)
	assert.True(t, errors.IsType(err, errors.ErrorTypeData))
}
