package formats

import (
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/ajitpratap0/txprofile/pkg/columnar"
)

// ArrowSchema maps table columns to nullable Arrow fields. Categories are
// written as their decoded labels.
func ArrowSchema(t *columnar.Table) (*arrow.Schema, error) {
	names := t.ColumnNames()
	fields := make([]arrow.Field, 0, len(names))
	for _, name := range names {
		col, _ := t.Column(name)
		dt, err := arrowType(col)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", name, err)
		}
		fields = append(fields, arrow.Field{Name: name, Type: dt, Nullable: true})
	}
	return arrow.NewSchema(fields, nil), nil
}

func arrowType(col columnar.Column) (arrow.DataType, error) {
	switch c := col.(type) {
	case *columnar.StringColumn, *columnar.CategoryColumn:
		return arrow.BinaryTypes.String, nil
	case *columnar.IntColumn:
		switch c.Width() {
		case 1:
			return arrow.PrimitiveTypes.Int8, nil
		case 2:
			return arrow.PrimitiveTypes.Int16, nil
		case 4:
			return arrow.PrimitiveTypes.Int32, nil
		default:
			return arrow.PrimitiveTypes.Int64, nil
		}
	case *columnar.FloatColumn:
		if c.Width() == 4 {
			return arrow.PrimitiveTypes.Float32, nil
		}
		return arrow.PrimitiveTypes.Float64, nil
	case *columnar.TimestampColumn:
		return &arrow.TimestampType{Unit: arrow.Nanosecond, TimeZone: "UTC"}, nil
	default:
		return nil, fmt.Errorf("unsupported column kind %s", col.Kind())
	}
}

// WriteArrow writes t as an Arrow IPC file in record batches of batchSize rows
func WriteArrow(w io.Writer, t *columnar.Table, batchSize int) error {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	schema, err := ArrowSchema(t)
	if err != nil {
		return fmt.Errorf("failed to convert schema: %w", err)
	}

	pool := memory.NewGoAllocator()
	fw, err := ipc.NewFileWriter(w, ipc.WithSchema(schema), ipc.WithAllocator(pool))
	if err != nil {
		return fmt.Errorf("failed to create Arrow writer: %w", err)
	}

	if err := writeRecords(pool, schema, t, batchSize, fw.Write); err != nil {
		return err
	}

	if err := fw.Close(); err != nil {
		return fmt.Errorf("failed to close Arrow writer: %w", err)
	}
	return nil
}

// writeRecords slices t into record batches of batchSize rows and hands each
// one to write. The record is released after write returns.
func writeRecords(pool memory.Allocator, schema *arrow.Schema, t *columnar.Table, batchSize int, write func(arrow.Record) error) error {
	rb := array.NewRecordBuilder(pool, schema)
	defer rb.Release()

	names := t.ColumnNames()
	for start := 0; start < t.NumRows(); start += batchSize {
		end := min(start+batchSize, t.NumRows())
		for j, name := range names {
			col, _ := t.Column(name)
			appendArrowRange(rb.Field(j), col, start, end)
		}

		record := rb.NewRecord()
		err := write(record)
		record.Release()
		if err != nil {
			return fmt.Errorf("failed to write record batch: %w", err)
		}
	}
	return nil
}

// appendArrowRange copies rows [start, end) of col into the builder chosen by arrowType
func appendArrowRange(builder array.Builder, col columnar.Column, start, end int) {
	builder.Reserve(end - start)
	for i := start; i < end; i++ {
		if col.IsNull(i) {
			builder.AppendNull()
			continue
		}
		switch c := col.(type) {
		case *columnar.StringColumn:
			builder.(*array.StringBuilder).Append(c.Value(i))
		case *columnar.CategoryColumn:
			builder.(*array.StringBuilder).Append(c.Value(i))
		case *columnar.IntColumn:
			v := c.Value(i)
			switch b := builder.(type) {
			case *array.Int8Builder:
				b.Append(int8(v))
			case *array.Int16Builder:
				b.Append(int16(v))
			case *array.Int32Builder:
				b.Append(int32(v))
			case *array.Int64Builder:
				b.Append(v)
			}
		case *columnar.FloatColumn:
			switch b := builder.(type) {
			case *array.Float32Builder:
				b.Append(float32(c.Value(i)))
			case *array.Float64Builder:
				b.Append(c.Value(i))
			}
		case *columnar.TimestampColumn:
			builder.(*array.TimestampBuilder).Append(arrow.Timestamp(c.Nanos(i)))
		}
	}
}
