package config

import (
	"path/filepath"

	"github.com/ajitpratap0/txprofile/pkg/errors"
)

// ParseRule selects how a source column is coerced while loading.
type ParseRule string

const (
	// ParseInfer detects int, float or string per value, promoting the column as needed
	ParseInfer ParseRule = "infer"
	// ParseCurrency strips "$" and parses a float; anything else unparseable is fatal
	ParseCurrency ParseRule = "currency"
	// ParseDatetime parses DateLayout strictly; a non-conforming value is fatal
	ParseDatetime ParseRule = "datetime"
	// ParseNumeric parses a float and turns any failure into a missing value
	ParseNumeric ParseRule = "numeric"
)

// DefaultColumns is the fixed ten-column selection used for loading and export.
var DefaultColumns = []string{
	"date", "amount", "client_id", "use_chip", "merchant_state",
	"card_id", "merchant_id", "mcc", "zip", "errors",
}

// DefaultNAValues are the cell values read as missing.
var DefaultNAValues = []string{
	"", "#N/A", "#N/A N/A", "#NA", "-1.#IND", "-1.#QNAN", "-NaN", "-nan",
	"1.#IND", "1.#QNAN", "<NA>", "N/A", "NA", "NULL", "NaN", "None",
	"n/a", "nan", "null",
}

// Config is the complete configuration of a run.
type Config struct {
	Source    SourceConfig    `yaml:"source" json:"source"`
	Optimizer OptimizerConfig `yaml:"optimizer" json:"optimizer"`
	Export    ExportConfig    `yaml:"export" json:"export"`
	Charts    ChartConfig     `yaml:"charts" json:"charts"`
	Output    OutputConfig    `yaml:"output" json:"output"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics" json:"metrics"`
	Tracing   TracingConfig   `yaml:"tracing" json:"tracing"`
}

// SourceConfig describes the input CSV and how its columns are coerced.
type SourceConfig struct {
	// Path is the input CSV file
	Path string `yaml:"path" json:"path"`
	// Columns are the selected columns; every one must exist in the header
	Columns []string `yaml:"columns" json:"columns"`
	// BatchSize is the number of rows read and coerced at a time
	BatchSize int `yaml:"batch_size" json:"batch_size"`
	// DateLayout is the Go time layout for datetime columns
	DateLayout string `yaml:"date_layout" json:"date_layout"`
	// ParseRules maps column names to coercion rules; unlisted columns are inferred
	ParseRules map[string]ParseRule `yaml:"parse_rules" json:"parse_rules"`
	// NAValues are the cell values treated as missing
	NAValues []string `yaml:"na_values" json:"na_values"`
	// PreviewRows is the number of leading rows logged after loading
	PreviewRows int `yaml:"preview_rows" json:"preview_rows"`
}

// OptimizerConfig controls storage downcasting.
type OptimizerConfig struct {
	// CategoryThreshold is the distinct/rows ratio below which text becomes categorical
	CategoryThreshold float64 `yaml:"category_threshold" json:"category_threshold"`
	// FloatTolerance is the absolute error allowed when narrowing float64 to float32
	FloatTolerance float64 `yaml:"float_tolerance" json:"float_tolerance"`
}

// ExportConfig controls the filtered data outputs.
type ExportConfig struct {
	FileName    string `yaml:"file_name" json:"file_name"`
	Compression string `yaml:"compression" json:"compression"`
	Arrow       bool   `yaml:"arrow" json:"arrow"`
	Avro        bool   `yaml:"avro" json:"avro"`
	Parquet     bool   `yaml:"parquet" json:"parquet"`
}

// ChartConfig controls chart rendering.
type ChartConfig struct {
	Width         int    `yaml:"width" json:"width"`
	Height        int    `yaml:"height" json:"height"`
	HistogramBins int    `yaml:"histogram_bins" json:"histogram_bins"`
	PieTop        int    `yaml:"pie_top" json:"pie_top"`
	LineChart     string `yaml:"line_chart" json:"line_chart"`
	BarChart      string `yaml:"bar_chart" json:"bar_chart"`
	PieChart      string `yaml:"pie_chart" json:"pie_chart"`
	ScatterPlot   string `yaml:"scatter_plot" json:"scatter_plot"`
	Histogram     string `yaml:"histogram" json:"histogram"`
}

// OutputConfig names the results directory and the statistics reports.
type OutputConfig struct {
	Dir         string `yaml:"dir" json:"dir"`
	StatsBefore string `yaml:"stats_before" json:"stats_before"`
	StatsAfter  string `yaml:"stats_after" json:"stats_after"`
}

// LoggingConfig controls the zap logger.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// MetricsConfig controls the Prometheus text exposition written at the end of a run.
type MetricsConfig struct {
	// Textfile is written relative to Output.Dir when set; empty disables it
	Textfile string `yaml:"textfile" json:"textfile"`
}

// TracingConfig controls OpenTelemetry span export.
type TracingConfig struct {
	// File receives JSON spans relative to Output.Dir; empty disables tracing
	File        string `yaml:"file" json:"file"`
	ServiceName string `yaml:"service_name" json:"service_name"`
}

// Default returns the configuration of the fixed transactions analysis.
func Default() *Config {
	return &Config{
		Source: SourceConfig{
			Path:       "transactions_data.csv",
			Columns:    append([]string(nil), DefaultColumns...),
			BatchSize:  10000,
			DateLayout: "2006-01-02 15:04:05",
			ParseRules: map[string]ParseRule{
				"date":   ParseDatetime,
				"amount": ParseCurrency,
				"zip":    ParseNumeric,
			},
			NAValues:    append([]string(nil), DefaultNAValues...),
			PreviewRows: 5,
		},
		Optimizer: OptimizerConfig{
			CategoryThreshold: 0.5,
			FloatTolerance:    0,
		},
		Export: ExportConfig{
			FileName: "filtered_data.csv",
		},
		Charts: ChartConfig{
			Width:         1024,
			Height:        768,
			HistogramBins: 30,
			PieTop:        5,
			LineChart:     "line_chart.png",
			BarChart:      "bar_chart.png",
			PieChart:      "pie_chart.png",
			ScatterPlot:   "scatter_plot.png",
			Histogram:     "histogram.png",
		},
		Output: OutputConfig{
			Dir:         "results",
			StatsBefore: "data_statistics_no_optimization.json",
			StatsAfter:  "data_statistics_optimized.json",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Tracing: TracingConfig{
			ServiceName: "txprofile",
		},
	}
}

// OutputPath joins name onto the results directory.
func (c *Config) OutputPath(name string) string {
	return filepath.Join(c.Output.Dir, name)
}

// RuleFor returns the parse rule of a column, defaulting to ParseInfer.
func (s *SourceConfig) RuleFor(column string) ParseRule {
	if r, ok := s.ParseRules[column]; ok && r != "" {
		return r
	}
	return ParseInfer
}

// Validate checks the configuration for values the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Source.Path == "" {
		return errors.New(errors.ErrorTypeConfig, "source.path is required")
	}
	if len(c.Source.Columns) == 0 {
		return errors.New(errors.ErrorTypeConfig, "source.columns must not be empty")
	}
	seen := make(map[string]struct{}, len(c.Source.Columns))
	for _, col := range c.Source.Columns {
		if col == "" {
			return errors.New(errors.ErrorTypeConfig, "source.columns contains an empty name")
		}
		if _, dup := seen[col]; dup {
			return errors.New(errors.ErrorTypeConfig, "source.columns contains a duplicate").
				WithDetail("column", col)
		}
		seen[col] = struct{}{}
	}
	if c.Source.BatchSize <= 0 {
		return errors.New(errors.ErrorTypeConfig, "source.batch_size must be positive")
	}
	if c.Source.DateLayout == "" {
		return errors.New(errors.ErrorTypeConfig, "source.date_layout is required")
	}
	if c.Source.PreviewRows < 0 {
		return errors.New(errors.ErrorTypeConfig, "source.preview_rows cannot be negative")
	}
	for col, rule := range c.Source.ParseRules {
		switch rule {
		case ParseInfer, ParseCurrency, ParseDatetime, ParseNumeric, "":
		default:
			return errors.New(errors.ErrorTypeConfig, "unknown parse rule").
				WithDetail("column", col).
				WithDetail("rule", string(rule))
		}
	}

	if c.Optimizer.CategoryThreshold <= 0 || c.Optimizer.CategoryThreshold > 1 {
		return errors.New(errors.ErrorTypeConfig, "optimizer.category_threshold must be in (0, 1]")
	}
	if c.Optimizer.FloatTolerance < 0 {
		return errors.New(errors.ErrorTypeConfig, "optimizer.float_tolerance cannot be negative")
	}

	if c.Export.FileName == "" {
		return errors.New(errors.ErrorTypeConfig, "export.file_name is required")
	}
	switch c.Export.Compression {
	case "", "none", "gzip", "zstd", "snappy", "s2", "lz4":
	default:
		return errors.New(errors.ErrorTypeConfig, "unsupported export.compression").
			WithDetail("compression", c.Export.Compression)
	}

	if c.Charts.Width <= 0 || c.Charts.Height <= 0 {
		return errors.New(errors.ErrorTypeConfig, "charts.width and charts.height must be positive")
	}
	if c.Charts.HistogramBins <= 0 {
		return errors.New(errors.ErrorTypeConfig, "charts.histogram_bins must be positive")
	}
	if c.Charts.PieTop <= 0 {
		return errors.New(errors.ErrorTypeConfig, "charts.pie_top must be positive")
	}

	if c.Output.Dir == "" {
		return errors.New(errors.ErrorTypeConfig, "output.dir is required")
	}

	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return errors.New(errors.ErrorTypeConfig, "logging.format must be console or json").
			WithDetail("format", c.Logging.Format)
	}

	return nil
}
