package formats

import (
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/ajitpratap0/txprofile/pkg/columnar"
)

// WriteParquet writes t as a snappy-compressed Parquet file with one row
// group per batchSize rows. The column types follow ArrowSchema.
func WriteParquet(w io.Writer, t *columnar.Table, batchSize int) error {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	schema, err := ArrowSchema(t)
	if err != nil {
		return fmt.Errorf("failed to convert schema: %w", err)
	}

	pool := memory.NewGoAllocator()
	props := parquet.NewWriterProperties(
		parquet.WithCompression(compress.Codecs.Snappy),
		parquet.WithDictionaryDefault(true),
		parquet.WithAllocator(pool),
	)
	arrowProps := pqarrow.NewArrowWriterProperties(
		pqarrow.WithAllocator(pool),
		pqarrow.WithStoreSchema(),
	)

	fw, err := pqarrow.NewFileWriter(schema, w, props, arrowProps)
	if err != nil {
		return fmt.Errorf("failed to create Parquet writer: %w", err)
	}

	if err := writeRecords(pool, schema, t, batchSize, fw.Write); err != nil {
		fw.Close()
		return err
	}

	if err := fw.Close(); err != nil {
		return fmt.Errorf("failed to close Parquet writer: %w", err)
	}
	return nil
}
