package formats

import (
	"fmt"
	"io"

	"github.com/linkedin/goavro/v2"

	"github.com/ajitpratap0/txprofile/pkg/columnar"
	jsonpool "github.com/ajitpratap0/txprofile/pkg/json"
)

// AvroRecordName is the record name in generated Avro schemas
const AvroRecordName = "Transaction"

// AvroSchema builds a record schema where every field is a ["null", T] union.
// Timestamps are longs holding nanoseconds since the epoch.
func AvroSchema(t *columnar.Table) (string, error) {
	names := t.ColumnNames()
	fields := make([]map[string]interface{}, 0, len(names))
	for _, name := range names {
		col, _ := t.Column(name)
		fields = append(fields, map[string]interface{}{
			"name":    name,
			"type":    []interface{}{"null", avroType(col)},
			"default": nil,
		})
	}

	schema, err := jsonpool.Marshal(map[string]interface{}{
		"type":   "record",
		"name":   AvroRecordName,
		"fields": fields,
	})
	if err != nil {
		return "", err
	}
	return string(schema), nil
}

func avroType(col columnar.Column) string {
	switch c := col.(type) {
	case *columnar.IntColumn:
		if c.Width() <= 4 {
			return "int"
		}
		return "long"
	case *columnar.FloatColumn:
		if c.Width() == 4 {
			return "float"
		}
		return "double"
	case *columnar.TimestampColumn:
		return "long"
	default:
		return "string"
	}
}

// WriteAvro writes t as a deflate-compressed Avro object container file
func WriteAvro(w io.Writer, t *columnar.Table) error {
	schema, err := AvroSchema(t)
	if err != nil {
		return fmt.Errorf("failed to build Avro schema: %w", err)
	}

	codec, err := goavro.NewCodec(schema)
	if err != nil {
		return fmt.Errorf("failed to create Avro codec: %w", err)
	}

	ocfWriter, err := goavro.NewOCFWriter(goavro.OCFConfig{
		W:               w,
		Codec:           codec,
		CompressionName: goavro.CompressionDeflateLabel,
	})
	if err != nil {
		return fmt.Errorf("failed to create Avro writer: %w", err)
	}

	names := t.ColumnNames()
	cols := make([]columnar.Column, len(names))
	for j, name := range names {
		cols[j], _ = t.Column(name)
	}

	const blockRows = 1000
	block := make([]interface{}, 0, blockRows)
	for i := 0; i < t.NumRows(); i++ {
		native := make(map[string]interface{}, len(names))
		for j, name := range names {
			native[name] = avroValue(cols[j], i)
		}
		block = append(block, native)

		if len(block) == blockRows {
			if err := ocfWriter.Append(block); err != nil {
				return fmt.Errorf("failed to write Avro record: %w", err)
			}
			block = block[:0]
		}
	}
	if len(block) > 0 {
		if err := ocfWriter.Append(block); err != nil {
			return fmt.Errorf("failed to write Avro record: %w", err)
		}
	}
	return nil
}

func avroValue(col columnar.Column, i int) interface{} {
	if col.IsNull(i) {
		return nil
	}
	switch c := col.(type) {
	case *columnar.StringColumn:
		return goavro.Union("string", c.Value(i))
	case *columnar.CategoryColumn:
		return goavro.Union("string", c.Value(i))
	case *columnar.IntColumn:
		if c.Width() <= 4 {
			return goavro.Union("int", int32(c.Value(i)))
		}
		return goavro.Union("long", c.Value(i))
	case *columnar.FloatColumn:
		if c.Width() == 4 {
			return goavro.Union("float", float32(c.Value(i)))
		}
		return goavro.Union("double", c.Value(i))
	case *columnar.TimestampColumn:
		return goavro.Union("long", c.Nanos(i))
	default:
		return goavro.Union("string", col.Format(i))
	}
}
