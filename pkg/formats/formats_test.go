package formats

import (
	"bytes"
	"context"
	"math"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/linkedin/goavro/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/txprofile/pkg/columnar"
)

var testDate = time.Date(2022, 1, 1, 10, 0, 0, 0, time.UTC)

func testTable(t *testing.T) *columnar.Table {
	t.Helper()

	state := columnar.NewStringColumn(3)
	state.Append("CA")
	state.AppendNull()
	state.Append("CA")

	chip := columnar.NewStringColumn(3)
	chip.Append("Swipe Transaction")
	chip.Append("Chip Transaction")
	chip.Append("Swipe Transaction")

	tbl := columnar.NewTable()
	require.NoError(t, tbl.AddColumn("date", columnar.NewTimestampColumn([]int64{testDate.UnixNano(), columnar.NaT, testDate.UnixNano()})))
	require.NoError(t, tbl.AddColumn("amount", columnar.NewFloatColumn([]float64{12.5, math.NaN(), -3}).Float32()))
	require.NoError(t, tbl.AddColumn("client_id", columnar.NewIntColumn([]int64{1, 2, 300}).WithWidth(2)))
	require.NoError(t, tbl.AddColumn("merchant_state", state))
	require.NoError(t, tbl.AddColumn("use_chip", columnar.NewCategoryColumn(chip)))
	return tbl
}

func TestWriteArrow(t *testing.T) {
	tbl := testTable(t)

	var buf bytes.Buffer
	require.NoError(t, WriteArrow(&buf, tbl, 2))

	r, err := ipc.NewFileReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, 2, r.NumRecords())
	schema := r.Schema()
	assert.Equal(t, arrow.PrimitiveTypes.Float32, schema.Field(1).Type)
	assert.Equal(t, arrow.PrimitiveTypes.Int16, schema.Field(2).Type)
	assert.Equal(t, arrow.BinaryTypes.String, schema.Field(4).Type)

	first, err := r.Record(0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), first.NumRows())

	dates := first.Column(0).(*array.Timestamp)
	assert.Equal(t, arrow.Timestamp(testDate.UnixNano()), dates.Value(0))
	assert.True(t, dates.IsNull(1))

	amounts := first.Column(1).(*array.Float32)
	assert.Equal(t, float32(12.5), amounts.Value(0))
	assert.True(t, amounts.IsNull(1))

	assert.True(t, first.Column(3).IsNull(1))
	assert.Equal(t, "Chip Transaction", first.Column(4).(*array.String).Value(1))

	second, err := r.Record(1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), second.NumRows())
	assert.Equal(t, int16(300), second.Column(2).(*array.Int16).Value(0))
}

func TestWriteAvro(t *testing.T) {
	tbl := testTable(t)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, Avro, tbl))

	r, err := goavro.NewOCFReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, goavro.CompressionDeflateLabel, r.CompressionName())

	var rows []map[string]interface{}
	for r.Scan() {
		datum, err := r.Read()
		require.NoError(t, err)
		rows = append(rows, datum.(map[string]interface{}))
	}
	require.NoError(t, r.Err())
	require.Len(t, rows, 3)

	assert.Equal(t, map[string]interface{}{"long": testDate.UnixNano()}, rows[0]["date"])
	assert.Nil(t, rows[1]["date"])
	assert.Equal(t, map[string]interface{}{"float": float32(12.5)}, rows[0]["amount"])
	assert.Nil(t, rows[1]["amount"])
	assert.Equal(t, map[string]interface{}{"int": int32(300)}, rows[2]["client_id"])
	assert.Nil(t, rows[1]["merchant_state"])
	assert.Equal(t, map[string]interface{}{"string": "Chip Transaction"}, rows[1]["use_chip"])
}

func TestWriteParquet(t *testing.T) {
	tbl := testTable(t)

	var buf bytes.Buffer
	require.NoError(t, WriteParquet(&buf, tbl, 2))

	fr, err := file.NewParquetReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer fr.Close()

	assert.Equal(t, int64(3), fr.NumRows())
	assert.Equal(t, 2, fr.NumRowGroups())

	reader, err := pqarrow.NewFileReader(fr, pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
	require.NoError(t, err)
	table, err := reader.ReadTable(context.Background())
	require.NoError(t, err)
	defer table.Release()

	schema := table.Schema()
	assert.Equal(t, []string{"date", "amount", "client_id", "merchant_state", "use_chip"}, fieldNames(schema))
	assert.Equal(t, arrow.PrimitiveTypes.Int16, schema.Field(2).Type)
	assert.Equal(t, arrow.PrimitiveTypes.Float32, schema.Field(1).Type)

	states := table.Column(3).Data().Chunk(0)
	assert.True(t, states.IsNull(1))
}

func fieldNames(schema *arrow.Schema) []string {
	names := make([]string, 0, schema.NumFields())
	for _, f := range schema.Fields() {
		names = append(names, f.Name)
	}
	return names
}

func TestAvroSchema(t *testing.T) {
	schema, err := AvroSchema(testTable(t))
	require.NoError(t, err)

	_, err = goavro.NewCodec(schema)
	require.NoError(t, err)
	assert.Contains(t, schema, `"name":"Transaction"`)
}

func TestWriteUnsupportedFormat(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, Write(&buf, Format("orc"), testTable(t)))
	assert.Equal(t, ".arrow", Arrow.Extension())
	assert.Equal(t, ".parquet", Parquet.Extension())
}
