// Package config provides the configuration for a txprofile run.
//
// A single Config structure describes every stage of the pipeline. Default
// returns the fixed values of the standard analysis (input file, ten selected
// columns, 10,000-row batches, results directory and output file names), so a
// run without any configuration file performs the fixed analysis unchanged.
//
// The configuration is organized into sections:
//   - Source: input path, selected columns, batching and per-column parse rules
//   - Optimizer: categorical threshold and float downcast tolerance
//   - Export: filtered CSV name, compression and columnar sidecars
//   - Charts: image size, histogram bins, pie slice count and file names
//   - Output: results directory and statistics file names
//   - Logging, Metrics, Tracing: ambient observability
//
// # Usage
//
//	cfg := config.Default()
//	if err := config.Load("txprofile.yaml", cfg); err != nil {
//		log.Fatal(err)
//	}
//	if err := cfg.Validate(); err != nil {
//		log.Fatal(err)
//	}
//
// # Environment Variable Substitution
//
// Configuration files may reference environment variables with ${VAR_NAME}.
// They are substituted before the YAML is parsed:
//
//	source:
//	  path: ${TXPROFILE_DATA_DIR}/transactions_data.csv
package config
