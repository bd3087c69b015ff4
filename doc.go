// Package txprofile profiles the memory footprint of a card transactions CSV,
// downcasts its storage and charts it.
//
// A run loads ten selected columns of transactions_data.csv, writes a JSON
// memory report per column, narrows every column to the smallest storage that
// keeps its values (categorical text, narrow integers, float32), writes a
// second report, exports the filtered columns and renders five charts into
// the results directory.
//
// # Architecture
//
// The stages live under internal/ and run strictly in order, passing one
// in-memory table between them:
//
//   - loader: batched CSV reading with per-column coercion rules
//   - profiler: per-column deep memory usage and share
//   - optimizer: categorical, integer and float downcasting
//   - exporter: filtered CSV plus optional compression and Arrow/Avro sidecars
//   - visualizer: line, bar, pie, scatter and histogram PNGs
//
// The table itself is pkg/columnar. Configuration, structured errors, zap
// logging, Prometheus metrics and OpenTelemetry tracing live under pkg/.
//
// # Quick Start
//
//	txprofile --input transactions_data.csv --output-dir results
//
// or from Go:
//
//	cfg := config.Default()
//	result, err := pipeline.New(cfg, logger).Run(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Printf("%d rows, %.2f MB -> %.2f MB\n",
//		result.Rows, result.Before.TotalMB(), result.After.TotalMB())
//
// # Configuration
//
// Every constant of the fixed analysis is a default in pkg/config and may be
// overridden from a YAML file, command line flags or TXPROFILE_* environment
// variables.
package txprofile
