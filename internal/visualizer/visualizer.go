// Package visualizer renders the transaction charts as PNG images.
//
// Each chart is built from a pure aggregation over the table (see
// aggregate.go) and drawn with go-chart:
//
//   - line chart: transaction amount summed per timestamp
//   - bar chart: frequency of each use_chip value
//   - pie chart: the most frequent merchant states
//   - scatter plot: amount against client_id
//   - histogram: distribution of amounts
package visualizer

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"

	"github.com/ajitpratap0/txprofile/pkg/columnar"
	"github.com/ajitpratap0/txprofile/pkg/config"
	"github.com/ajitpratap0/txprofile/pkg/errors"
)

// Source columns of the charts
const (
	DateColumn     = "date"
	AmountColumn   = "amount"
	ChipColumn     = "use_chip"
	StateColumn    = "merchant_state"
	ClientIDColumn = "client_id"
)

// headroom above the tallest value on charts starting at zero
const headroom = 1.05

var (
	seriesColor = drawing.ColorFromHex("1f77b4")
	background  = chart.Style{Padding: chart.Box{Top: 50, Left: 20, Right: 40, Bottom: 20}}
)

// Visualizer renders every chart into one directory
type Visualizer struct {
	cfg    config.ChartConfig
	dir    string
	logger *zap.Logger
}

// New creates a visualizer writing into dir
func New(cfg config.ChartConfig, dir string, logger *zap.Logger) *Visualizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Visualizer{cfg: cfg, dir: dir, logger: logger}
}

type renderer interface {
	Render(rp chart.RendererProvider, w io.Writer) error
}

// Render draws all five charts. An empty table is an error and writes nothing.
func (v *Visualizer) Render(ctx context.Context, t *columnar.Table) error {
	if t.NumRows() == 0 {
		return errors.New(errors.ErrorTypeData, "cannot render charts for an empty table")
	}

	steps := []struct {
		name  string
		file  string
		build func(*columnar.Table) (renderer, error)
	}{
		{"line", v.cfg.LineChart, v.lineChart},
		{"bar", v.cfg.BarChart, v.barChart},
		{"pie", v.cfg.PieChart, v.pieChart},
		{"scatter", v.cfg.ScatterPlot, v.scatterPlot},
		{"histogram", v.cfg.Histogram, v.histogram},
	}

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, errors.ErrorTypeInternal, "rendering cancelled")
		}

		graph, err := step.build(t)
		if err != nil {
			return err
		}

		path := filepath.Join(v.dir, step.file)
		if err := writePNG(path, graph); err != nil {
			return errors.Wrap(err, errors.ErrorTypeRender, "failed to render chart").
				WithDetail("chart", step.name).
				WithDetail("path", path)
		}
		v.logger.Info("chart saved", zap.String("chart", step.name), zap.String("path", path))
	}
	return nil
}

func writePNG(path string, graph renderer) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return graph.Render(chart.PNG, file)
}

func column(t *columnar.Table, name string) (columnar.Column, error) {
	col, ok := t.Column(name)
	if !ok {
		return nil, errors.New(errors.ErrorTypeData, "chart column is missing").WithDetail("column", name)
	}
	return col, nil
}

func noData(chartName string) error {
	return errors.New(errors.ErrorTypeData, "no values to plot").WithDetail("chart", chartName)
}

func (v *Visualizer) lineChart(t *columnar.Table) (renderer, error) {
	dates, err := column(t, DateColumn)
	if err != nil {
		return nil, err
	}
	amounts, err := column(t, AmountColumn)
	if err != nil {
		return nil, err
	}

	xs, ys, err := SumByTime(dates, amounts)
	if err != nil {
		return nil, err
	}
	if len(xs) == 0 {
		return nil, noData("line")
	}

	lo, hi := float64(xs[0].UnixNano()), float64(xs[len(xs)-1].UnixNano())
	if lo == hi {
		pad := float64(time.Hour)
		lo, hi = lo-pad, hi+pad
	}

	return &chart.Chart{
		Title:      "Transaction amount over time",
		Width:      v.cfg.Width,
		Height:     v.cfg.Height,
		Background: background,
		XAxis: chart.XAxis{
			Name:           "date",
			ValueFormatter: chart.TimeValueFormatterWithFormat("2006-01-02"),
			Range:          &chart.ContinuousRange{Min: lo, Max: hi},
		},
		YAxis: chart.YAxis{
			Name:  "Transaction amount",
			Range: paddedRange(floats.Min(ys), floats.Max(ys)),
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "amount",
				Style:   chart.Style{StrokeColor: seriesColor, StrokeWidth: 1},
				XValues: xs,
				YValues: ys,
			},
		},
	}, nil
}

func (v *Visualizer) barChart(t *columnar.Table) (renderer, error) {
	col, err := column(t, ChipColumn)
	if err != nil {
		return nil, err
	}

	counts := CountByLabel(col)
	if len(counts) == 0 {
		return nil, noData("bar")
	}

	bars := make([]chart.Value, len(counts))
	for i, c := range counts {
		bars[i] = chart.Value{
			Label: c.Label,
			Value: float64(c.Count),
			Style: chart.Style{FillColor: seriesColor, StrokeColor: seriesColor},
		}
	}

	return &chart.BarChart{
		Title:      "Chip usage frequency",
		Width:      v.cfg.Width,
		Height:     v.cfg.Height,
		Background: background,
		BarWidth:   v.cfg.Width / (2 * len(bars)),
		YAxis: chart.YAxis{
			Name:  "Frequency",
			Range: &chart.ContinuousRange{Min: 0, Max: float64(counts[0].Count) * headroom},
		},
		Bars: bars,
	}, nil
}

func (v *Visualizer) pieChart(t *columnar.Table) (renderer, error) {
	col, err := column(t, StateColumn)
	if err != nil {
		return nil, err
	}

	shares := TopShares(CountByLabel(col), v.cfg.PieTop)
	if len(shares) == 0 {
		return nil, noData("pie")
	}

	values := make([]chart.Value, len(shares))
	for i, s := range shares {
		values[i] = chart.Value{
			Label: fmt.Sprintf("%s %.1f%%", s.Label, s.Share*100),
			Value: float64(s.Count),
		}
	}

	return &chart.PieChart{
		Title:      "Transactions by state",
		Width:      v.cfg.Width,
		Height:     v.cfg.Height,
		Background: background,
		Values:     values,
	}, nil
}

func (v *Visualizer) scatterPlot(t *columnar.Table) (renderer, error) {
	clients, err := column(t, ClientIDColumn)
	if err != nil {
		return nil, err
	}
	amounts, err := column(t, AmountColumn)
	if err != nil {
		return nil, err
	}

	xs, ys, err := Pairs(clients, amounts)
	if err != nil {
		return nil, err
	}
	if len(xs) == 0 {
		return nil, noData("scatter")
	}

	return &chart.Chart{
		Title:      "Transaction amount by client ID",
		Width:      v.cfg.Width,
		Height:     v.cfg.Height,
		Background: background,
		XAxis: chart.XAxis{
			Name:  "client_id",
			Range: paddedRange(floats.Min(xs), floats.Max(xs)),
		},
		YAxis: chart.YAxis{
			Name:  "amount",
			Range: paddedRange(floats.Min(ys), floats.Max(ys)),
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Style: chart.Style{
					StrokeWidth: chart.Disabled,
					DotWidth:    2,
					DotColor:    seriesColor,
				},
				XValues: xs,
				YValues: ys,
			},
		},
	}, nil
}

func (v *Visualizer) histogram(t *columnar.Table) (renderer, error) {
	amounts, err := column(t, AmountColumn)
	if err != nil {
		return nil, err
	}

	values, err := Values(amounts)
	if err != nil {
		return nil, err
	}
	edges, counts := Histogram(values, v.cfg.HistogramBins)
	if len(counts) == 0 {
		return nil, noData("histogram")
	}

	// outline of the bins as one step series filled down to zero
	xs := make([]float64, 0, 2*len(counts)+2)
	ys := make([]float64, 0, 2*len(counts)+2)
	xs, ys = append(xs, edges[0]), append(ys, 0)
	for i, c := range counts {
		xs = append(xs, edges[i], edges[i+1])
		ys = append(ys, c, c)
	}
	xs, ys = append(xs, edges[len(edges)-1]), append(ys, 0)

	return &chart.Chart{
		Title:      "Transaction amount distribution",
		Width:      v.cfg.Width,
		Height:     v.cfg.Height,
		Background: background,
		XAxis: chart.XAxis{
			Name:  "Transaction amount",
			Range: &chart.ContinuousRange{Min: edges[0], Max: edges[len(edges)-1]},
		},
		YAxis: chart.YAxis{
			Name:  "Frequency",
			Range: &chart.ContinuousRange{Min: 0, Max: floats.Max(counts) * headroom},
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Style: chart.Style{
					StrokeColor: seriesColor,
					StrokeWidth: 1,
					FillColor:   seriesColor.WithAlpha(160),
				},
				XValues: xs,
				YValues: ys,
			},
		},
	}, nil
}

// paddedRange spans [lo, hi] with a margin, widening a degenerate range
func paddedRange(lo, hi float64) *chart.ContinuousRange {
	if lo == hi {
		pad := math.Max(math.Abs(lo)*0.05, 1)
		return &chart.ContinuousRange{Min: lo - pad, Max: hi + pad}
	}
	pad := (hi - lo) * 0.05
	return &chart.ContinuousRange{Min: lo - pad, Max: hi + pad}
}
