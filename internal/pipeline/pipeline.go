// Package pipeline runs the txprofile stages in order over one table.
//
// # Overview
//
// A run is strictly sequential:
//
//	load → profile (before) → optimize → profile (after) → export → render
//
// The table produced by the loader is passed explicitly to every later
// stage. The first failing stage aborts the run; files written by earlier
// stages stay on disk.
//
// # Observability
//
// Every stage is timed, logged with the run's ID and the stage name,
// observed in the run's Prometheus collector and wrapped in an OpenTelemetry
// span. Each optimizer change is added to the run span as an event. Metrics
// and spans are only written to disk when configured.
//
// # Basic Usage
//
//	cfg := config.Default()
//	result, err := pipeline.New(cfg, logger).Run(ctx)
package pipeline

import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/ajitpratap0/txprofile/internal/exporter"
	"github.com/ajitpratap0/txprofile/internal/loader"
	"github.com/ajitpratap0/txprofile/internal/optimizer"
	"github.com/ajitpratap0/txprofile/internal/profiler"
	"github.com/ajitpratap0/txprofile/internal/visualizer"
	"github.com/ajitpratap0/txprofile/pkg/columnar"
	"github.com/ajitpratap0/txprofile/pkg/config"
	"github.com/ajitpratap0/txprofile/pkg/errors"
	applog "github.com/ajitpratap0/txprofile/pkg/logger"
	"github.com/ajitpratap0/txprofile/pkg/metrics"
	"github.com/ajitpratap0/txprofile/pkg/observability"
)

// Stage names, in run order
const (
	StageLoad          = "load"
	StageProfileBefore = "profile_before"
	StageOptimize      = "optimize"
	StageProfileAfter  = "profile_after"
	StageExport        = "export"
	StageRender        = "render"
)

// Version is reported as the traced service version
var Version = "dev"

// StageTiming is the wall time of one completed stage
type StageTiming struct {
	Stage    string
	Duration time.Duration
}

// Result summarizes a completed run
type Result struct {
	RunID   string
	Rows    int
	Before  *profiler.Report
	After   *profiler.Report
	Changes []optimizer.Change
	Export  exporter.Result
	Stages  []StageTiming
}

// Pipeline wires the stages for one configuration
type Pipeline struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *metrics.Collector
	tracing *observability.Provider
}

// New creates a pipeline. A nil logger falls back to the global logger.
func New(cfg *config.Config, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = applog.Get()
	}
	return &Pipeline{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics.NewCollector(),
	}
}

// Metrics returns the collector the pipeline records into
func (p *Pipeline) Metrics() *metrics.Collector {
	return p.metrics
}

// Run executes every stage once
func (p *Pipeline) Run(ctx context.Context) (result *Result, err error) {
	if err := p.cfg.Validate(); err != nil {
		return nil, err
	}

	result = &Result{RunID: uuid.NewString()}
	ctx = applog.WithRunID(ctx, result.RunID)
	log := applog.FromContext(ctx, p.logger)

	if err := os.MkdirAll(p.cfg.Output.Dir, 0o755); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to create output directory").
			WithDetail("dir", p.cfg.Output.Dir)
	}

	stopTracing, err := p.startTracing(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if terr := stopTracing(); terr != nil {
			log.Warn("failed to flush traces", zap.Error(terr))
		}
	}()
	defer p.writeMetrics(log)

	ctx, span := p.tracing.StartSpan(ctx, "txprofile.run")
	span.SetAttribute("run_id", result.RunID)
	span.SetAttribute("source", p.cfg.Source.Path)
	defer func() {
		span.RecordError(err)
		span.End()
	}()

	log.Info("starting run",
		zap.String("source", p.cfg.Source.Path),
		zap.String("output_dir", p.cfg.Output.Dir))

	var table *columnar.Table
	stages := []struct {
		name string
		run  func(context.Context, *zap.Logger) error
	}{
		{StageLoad, func(ctx context.Context, log *zap.Logger) error {
			loaded, err := loader.New(p.cfg.Source, log).Load(ctx)
			if err != nil {
				return err
			}
			table = loaded
			result.Rows = table.NumRows()
			p.metrics.RecordRowsLoaded(result.Rows)
			return nil
		}},
		{StageProfileBefore, func(_ context.Context, log *zap.Logger) error {
			report, err := p.profile(log, table, "before", p.cfg.Output.StatsBefore)
			result.Before = report
			return err
		}},
		{StageOptimize, func(ctx context.Context, log *zap.Logger) error {
			changes, err := optimizer.New(p.cfg.Optimizer, log).Optimize(ctx, table)
			result.Changes = changes
			for _, change := range changes {
				p.metrics.RecordChange(change.To)
				span.AddEvent("column optimized",
					attribute.String("column", change.Column),
					attribute.String("from", change.From),
					attribute.String("to", change.To))
			}
			return err
		}},
		{StageProfileAfter, func(_ context.Context, log *zap.Logger) error {
			report, err := p.profile(log, table, "after", p.cfg.Output.StatsAfter)
			result.After = report
			return err
		}},
		{StageExport, func(ctx context.Context, log *zap.Logger) error {
			exported, err := exporter.New(p.cfg.Export, p.cfg.Output.Dir, log).
				Export(ctx, table, p.cfg.Source.Columns)
			result.Export = exported
			return err
		}},
		{StageRender, func(ctx context.Context, log *zap.Logger) error {
			return visualizer.New(p.cfg.Charts, p.cfg.Output.Dir, log).Render(ctx, table)
		}},
	}

	for _, stage := range stages {
		d, err := p.runStage(ctx, stage.name, stage.run)
		if err != nil {
			log.Error("run failed", zap.String("stage", stage.name), zap.Error(err))
			return result, err
		}
		result.Stages = append(result.Stages, StageTiming{Stage: stage.name, Duration: d})
	}

	log.Info("run completed",
		zap.Int("rows", result.Rows),
		zap.String("memory_before_mb", formatMB(result.Before)),
		zap.String("memory_after_mb", formatMB(result.After)),
		zap.Int("optimized_columns", len(result.Changes)))
	return result, nil
}

// runStage runs fn inside a span with a stage-scoped logger and records its duration
func (p *Pipeline) runStage(ctx context.Context, name string, fn func(context.Context, *zap.Logger) error) (time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeInternal, "run cancelled").WithDetail("stage", name)
	}

	ctx = applog.WithStage(ctx, name)
	log := applog.FromContext(ctx, p.logger)

	ctx, span := p.tracing.StartSpan(ctx, name)
	timer := metrics.NewTimer(name)

	err := fn(ctx, log)

	duration := timer.Stop()
	span.SetAttribute("duration_ms", duration.Milliseconds())
	span.RecordError(err)
	span.End()
	p.metrics.ObserveStage(name, duration)

	if err != nil {
		return duration, err
	}
	log.Info("stage completed", zap.Duration("duration", duration))
	return duration, nil
}

func (p *Pipeline) profile(log *zap.Logger, table *columnar.Table, phase, file string) (*profiler.Report, error) {
	report, err := profiler.New(log).Run(table, phase, p.cfg.OutputPath(file))
	if err != nil {
		return nil, err
	}
	for _, stat := range report.Columns {
		p.metrics.RecordColumnMemory(phase, stat.Column, stat.Bytes)
	}
	p.metrics.RecordTableMemory(phase, report.TotalBytes)
	return report, nil
}

// startTracing opens the span file when tracing is configured. The returned
// function flushes spans and closes the file.
func (p *Pipeline) startTracing(ctx context.Context) (func() error, error) {
	if p.cfg.Tracing.File == "" {
		return func() error { return nil }, nil
	}

	path := p.cfg.OutputPath(p.cfg.Tracing.File)
	file, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to create trace file").WithDetail("path", path)
	}

	provider, err := observability.InitTracing(ctx, observability.TracingConfig{
		ServiceName:    p.cfg.Tracing.ServiceName,
		ServiceVersion: Version,
		Writer:         file,
	})
	if err != nil {
		file.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to initialise tracing")
	}
	p.tracing = provider

	return func() error {
		serr := provider.Shutdown(context.Background())
		p.tracing = nil
		if cerr := file.Close(); serr == nil {
			serr = cerr
		}
		return serr
	}, nil
}

func (p *Pipeline) writeMetrics(log *zap.Logger) {
	if p.cfg.Metrics.Textfile == "" {
		return
	}
	path := p.cfg.OutputPath(p.cfg.Metrics.Textfile)
	if err := p.metrics.WriteTextfile(path); err != nil {
		log.Warn("failed to write metrics", zap.String("path", path), zap.Error(err))
		return
	}
	log.Info("metrics saved", zap.String("path", path))
}

func formatMB(r *profiler.Report) string {
	if r == nil {
		return ""
	}
	return strconv.FormatFloat(r.TotalMB(), 'f', 2, 64)
}
