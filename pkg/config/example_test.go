package config_test

import (
	"fmt"
	"log"

	"github.com/ajitpratap0/txprofile/pkg/config"
)

// ExampleDefault demonstrates the fixed defaults of a run.
func ExampleDefault() {
	cfg := config.Default()

	fmt.Printf("Input: %s\n", cfg.Source.Path)
	fmt.Printf("Batch Size: %d\n", cfg.Source.BatchSize)
	fmt.Printf("Columns: %d\n", len(cfg.Source.Columns))
	fmt.Printf("Report: %s\n", cfg.OutputPath(cfg.Output.StatsBefore))

	// Output:
	// Input: transactions_data.csv
	// Batch Size: 10000
	// Columns: 10
	// Report: results/data_statistics_no_optimization.json
}

// ExampleConfig_Validate shows how to validate a configuration
// before using it.
func ExampleConfig_Validate() {
	cfg := config.Default()
	cfg.Source.BatchSize = 500
	cfg.Export.Compression = "zstd"

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	fmt.Println("Configuration is valid!")

	// Output:
	// Configuration is valid!
}
