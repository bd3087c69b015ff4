// Package formats writes a columnar.Table to columnar interchange files.
package formats

import (
	"fmt"
	"io"

	"github.com/ajitpratap0/txprofile/pkg/columnar"
)

// Format represents a columnar storage format
type Format string

const (
	// Arrow is Apache Arrow IPC file format
	Arrow Format = "arrow"
	// Avro is Apache Avro object container format
	Avro Format = "avro"
	// Parquet is Apache Parquet format
	Parquet Format = "parquet"
)

// DefaultBatchSize is the number of rows per Arrow record batch and Parquet row group
const DefaultBatchSize = 10000

// Extension returns the file extension for a format
func (f Format) Extension() string {
	return "." + string(f)
}

// Write encodes t to w in the given format
func Write(w io.Writer, format Format, t *columnar.Table) error {
	switch format {
	case Arrow:
		return WriteArrow(w, t, DefaultBatchSize)
	case Avro:
		return WriteAvro(w, t)
	case Parquet:
		return WriteParquet(w, t, DefaultBatchSize)
	default:
		return fmt.Errorf("unsupported columnar format: %s", format)
	}
}
