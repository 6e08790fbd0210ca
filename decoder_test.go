package pqdecode_test

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/hexops/gotextdiff"
	"github.com/hexops/gotextdiff/myers"
	"github.com/hexops/gotextdiff/span"
	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/deprecated"
	"github.com/stretchr/testify/require"

	"github.com/segmentio/pqdecode"
)

var writerConfigs = []struct {
	scenario string
	options  []parquet.WriterOption
}{
	{scenario: "v2", options: []parquet.WriterOption{parquet.DataPageVersion(2)}},
	{scenario: "v2 small pages", options: []parquet.WriterOption{parquet.DataPageVersion(2), parquet.PageBufferSize(64)}},
	{scenario: "snappy", options: []parquet.WriterOption{parquet.Compression(&parquet.Snappy)}},
	{scenario: "zstd", options: []parquet.WriterOption{parquet.Compression(&parquet.Zstd), parquet.PageBufferSize(128)}},
	{scenario: "gzip", options: []parquet.WriterOption{parquet.Compression(&parquet.Gzip), parquet.PageBufferSize(256)}},
}

var rowGroups = []int{30, 27}

func le16(v int16) []byte { return binary.LittleEndian.AppendUint16(nil, uint16(v)) }
func le32(v int32) []byte { return binary.LittleEndian.AppendUint32(nil, uint32(v)) }
func le64(v int64) []byte { return binary.LittleEndian.AppendUint64(nil, uint64(v)) }

func f32(v float32) []byte { return binary.LittleEndian.AppendUint32(nil, math.Float32bits(v)) }
func f64(v float64) []byte { return binary.LittleEndian.AppendUint64(nil, math.Float64bits(v)) }

func fixedBytes(row, size int) []byte {
	b := make([]byte, size)
	for i := range b {
		b[i] = byte(row*31 + i)
	}
	return b
}

func reversed(b []byte) []byte {
	r := make([]byte, len(b))
	for i := range b {
		r[i] = b[len(b)-1-i]
	}
	return r
}

func int96Of(micros int64) deprecated.Int96 {
	const microsPerDay = 86400 * 1000 * 1000
	days := micros / microsPerDay
	nanos := uint64(micros%microsPerDay) * 1000
	return deprecated.Int96{uint32(nanos), uint32(nanos >> 32), uint32(days + 2440588)}
}

func TestDecodeFixedColumns(t *testing.T) {
	tests := []struct {
		scenario string
		node     parquet.Node
		typ      pqdecode.ColumnTypeTag
		value    func(row int) parquet.Value
		want     func(row int) []byte
	}{
		{
			scenario: "int",
			node:     parquet.Leaf(parquet.Int32Type),
			typ:      pqdecode.Int,
			value:    func(row int) parquet.Value { return parquet.Int32Value(int32(row*7 - 100)) },
			want:     func(row int) []byte { return le32(int32(row*7 - 100)) },
		},
		{
			scenario: "int dictionary",
			node:     parquet.Encoded(parquet.Leaf(parquet.Int32Type), &parquet.RLEDictionary),
			typ:      pqdecode.Int,
			value:    func(row int) parquet.Value { return parquet.Int32Value(int32(row % 5)) },
			want:     func(row int) []byte { return le32(int32(row % 5)) },
		},
		{
			scenario: "int delta",
			node:     parquet.Encoded(parquet.Leaf(parquet.Int32Type), &parquet.DeltaBinaryPacked),
			typ:      pqdecode.Int,
			value:    func(row int) parquet.Value { return parquet.Int32Value(int32(row * row)) },
			want:     func(row int) []byte { return le32(int32(row * row)) },
		},
		{
			scenario: "long",
			node:     parquet.Leaf(parquet.Int64Type),
			typ:      pqdecode.Long,
			value:    func(row int) parquet.Value { return parquet.Int64Value(int64(row) << 33) },
			want:     func(row int) []byte { return le64(int64(row) << 33) },
		},
		{
			scenario: "long dictionary",
			node:     parquet.Encoded(parquet.Leaf(parquet.Int64Type), &parquet.RLEDictionary),
			typ:      pqdecode.Long,
			value:    func(row int) parquet.Value { return parquet.Int64Value(int64(row%3) - 1) },
			want:     func(row int) []byte { return le64(int64(row%3) - 1) },
		},
		{
			scenario: "long delta",
			node:     parquet.Encoded(parquet.Leaf(parquet.Int64Type), &parquet.DeltaBinaryPacked),
			typ:      pqdecode.Long,
			value:    func(row int) parquet.Value { return parquet.Int64Value(1e12 - int64(row)*997) },
			want:     func(row int) []byte { return le64(1e12 - int64(row)*997) },
		},
		{
			scenario: "short",
			node:     parquet.Int(16),
			typ:      pqdecode.Short,
			value:    func(row int) parquet.Value { return parquet.Int32Value(int32(row - 25)) },
			want:     func(row int) []byte { return le16(int16(row - 25)) },
		},
		{
			scenario: "short delta",
			node:     parquet.Encoded(parquet.Int(16), &parquet.DeltaBinaryPacked),
			typ:      pqdecode.Short,
			value:    func(row int) parquet.Value { return parquet.Int32Value(int32(row * -300)) },
			want:     func(row int) []byte { return le16(int16(row * -300)) },
		},
		{
			scenario: "byte",
			node:     parquet.Int(8),
			typ:      pqdecode.Byte,
			value:    func(row int) parquet.Value { return parquet.Int32Value(int32(row%100 - 50)) },
			want:     func(row int) []byte { return []byte{byte(int8(row%100 - 50))} },
		},
		{
			scenario: "float",
			node:     parquet.Leaf(parquet.FloatType),
			typ:      pqdecode.Float,
			value:    func(row int) parquet.Value { return parquet.FloatValue(float32(row) / 4) },
			want:     func(row int) []byte { return f32(float32(row) / 4) },
		},
		{
			scenario: "float dictionary",
			node:     parquet.Encoded(parquet.Leaf(parquet.FloatType), &parquet.RLEDictionary),
			typ:      pqdecode.Float,
			value:    func(row int) parquet.Value { return parquet.FloatValue(float32(row % 4)) },
			want:     func(row int) []byte { return f32(float32(row % 4)) },
		},
		{
			scenario: "double",
			node:     parquet.Leaf(parquet.DoubleType),
			typ:      pqdecode.Double,
			value:    func(row int) parquet.Value { return parquet.DoubleValue(float64(row) * 1.5) },
			want:     func(row int) []byte { return f64(float64(row) * 1.5) },
		},
		{
			scenario: "double dictionary",
			node:     parquet.Encoded(parquet.Leaf(parquet.DoubleType), &parquet.RLEDictionary),
			typ:      pqdecode.Double,
			value:    func(row int) parquet.Value { return parquet.DoubleValue(float64(row%6) / 8) },
			want:     func(row int) []byte { return f64(float64(row%6) / 8) },
		},
		{
			scenario: "decimal",
			node:     parquet.Decimal(2, 9, parquet.Int32Type),
			typ:      pqdecode.Double,
			value:    func(row int) parquet.Value { return parquet.Int32Value(int32(row * 25)) },
			want:     func(row int) []byte { return f64(float64(row*25) / 100) },
		},
		{
			scenario: "boolean",
			node:     parquet.Leaf(parquet.BooleanType),
			typ:      pqdecode.Boolean,
			value:    func(row int) parquet.Value { return parquet.BooleanValue(row%4 < 2) },
			want: func(row int) []byte {
				if row%4 < 2 {
					return []byte{1}
				}
				return []byte{0}
			},
		},
		{
			scenario: "date",
			node:     parquet.Date(),
			typ:      pqdecode.Date,
			value:    func(row int) parquet.Value { return parquet.Int32Value(int32(19000 + row)) },
			want:     func(row int) []byte { return le64(int64(19000+row) * 86400 * 1000) },
		},
		{
			scenario: "timestamp millis",
			node:     parquet.Timestamp(parquet.Millisecond),
			typ:      pqdecode.Date,
			value:    func(row int) parquet.Value { return parquet.Int64Value(1700000000000 + int64(row)) },
			want:     func(row int) []byte { return le64(1700000000000 + int64(row)) },
		},
		{
			scenario: "timestamp micros",
			node:     parquet.Timestamp(parquet.Microsecond),
			typ:      pqdecode.Timestamp,
			value:    func(row int) parquet.Value { return parquet.Int64Value(1700000000000000 + int64(row)*1001) },
			want:     func(row int) []byte { return le64(1700000000000000 + int64(row)*1001) },
		},
		{
			scenario: "timestamp nanos",
			node:     parquet.Timestamp(parquet.Nanosecond),
			typ:      pqdecode.Timestamp,
			value:    func(row int) parquet.Value { return parquet.Int64Value(1700000000000000000 + int64(row)*1000001) },
			want:     func(row int) []byte { return le64((1700000000000000000 + int64(row)*1000001) / 1000) },
		},
		{
			scenario: "timestamp nanos delta",
			node:     parquet.Encoded(parquet.Timestamp(parquet.Nanosecond), &parquet.DeltaBinaryPacked),
			typ:      pqdecode.Timestamp,
			value:    func(row int) parquet.Value { return parquet.Int64Value(1700000000000000000 + int64(row)*3000) },
			want:     func(row int) []byte { return le64((1700000000000000000 + int64(row)*3000) / 1000) },
		},
		{
			scenario: "int96",
			node:     parquet.Leaf(parquet.Int96Type),
			typ:      pqdecode.Timestamp,
			value:    func(row int) parquet.Value { return parquet.Int96Value(int96Of(1600000000000000 + int64(row)*7)) },
			want:     func(row int) []byte { return le64(1600000000000000 + int64(row)*7) },
		},
		{
			scenario: "uuid",
			node:     parquet.UUID(),
			typ:      pqdecode.Uuid,
			value:    func(row int) parquet.Value { return parquet.FixedLenByteArrayValue(fixedBytes(row, 16)) },
			want:     func(row int) []byte { return reversed(fixedBytes(row, 16)) },
		},
		{
			scenario: "long128",
			node:     parquet.Leaf(parquet.FixedLenByteArrayType(16)),
			typ:      pqdecode.Long128,
			value:    func(row int) parquet.Value { return parquet.FixedLenByteArrayValue(fixedBytes(row, 16)) },
			want:     func(row int) []byte { return fixedBytes(row, 16) },
		},
		{
			scenario: "long256",
			node:     parquet.Leaf(parquet.FixedLenByteArrayType(32)),
			typ:      pqdecode.Long256,
			value:    func(row int) parquet.Value { return parquet.FixedLenByteArrayValue(fixedBytes(row, 32)) },
			want:     func(row int) []byte { return fixedBytes(row, 32) },
		},
		{
			scenario: "long256 dictionary",
			node:     parquet.Encoded(parquet.Leaf(parquet.FixedLenByteArrayType(32)), &parquet.RLEDictionary),
			typ:      pqdecode.Long256,
			value:    func(row int) parquet.Value { return parquet.FixedLenByteArrayValue(fixedBytes(row%3, 32)) },
			want:     func(row int) []byte { return fixedBytes(row%3, 32) },
		},
	}

	for _, config := range writerConfigs {
		t.Run(config.scenario, func(t *testing.T) {
			for _, test := range tests {
				t.Run(test.scenario, func(t *testing.T) {
					columns := []testColumn{
						{name: "required", node: test.node, value: test.value},
						{name: "optional", node: test.node, optional: true, value: nullEvery(3, test.value)},
					}
					d := openFile(t, writeFile(t, columns, rowGroups, config.options...))
					typ := test.typ.ColumnType()

					for _, c := range d.Columns() {
						require.Equal(t, typ, c.Type, "column %q", c.Name)
					}

					var want []byte
					for row := 0; row < rowGroups[0]+rowGroups[1]; row++ {
						want = append(want, test.want(row)...)
					}
					got, n := decodeAll(t, d, "required")
					require.Equal(t, rowGroups[0]+rowGroups[1], n)
					require.Equal(t, want, got)

					want = want[:0]
					for row := 0; row < rowGroups[0]+rowGroups[1]; row++ {
						if row%3 == 2 {
							want = append(want, typ.Null()...)
						} else {
							want = append(want, test.want(row)...)
						}
					}
					got, n = decodeAll(t, d, "optional")
					require.Equal(t, rowGroups[0]+rowGroups[1], n)
					require.Equal(t, want, got)
				})
			}
		})
	}
}

// The writer only produces valid data pages v1 for required columns, pages v1
// of optional columns are covered by hand-assembled page tests.
func TestDecodeDataPageV1(t *testing.T) {
	columns := []testColumn{
		{name: "int", node: parquet.Leaf(parquet.Int32Type), value: func(row int) parquet.Value { return parquet.Int32Value(int32(row * 3)) }},
		{name: "long", node: parquet.Encoded(parquet.Leaf(parquet.Int64Type), &parquet.DeltaBinaryPacked), value: func(row int) parquet.Value { return parquet.Int64Value(int64(-row)) }},
	}
	options := []parquet.WriterOption{parquet.DataPageVersion(1), parquet.PageBufferSize(64), parquet.Compression(&parquet.Gzip)}
	d := openFile(t, writeFile(t, columns, rowGroups, options...))

	var ints, longs []byte
	for row := 0; row < rowGroups[0]+rowGroups[1]; row++ {
		ints = append(ints, le32(int32(row*3))...)
		longs = append(longs, le64(int64(-row))...)
	}

	got, n := decodeAll(t, d, "int")
	require.Equal(t, rowGroups[0]+rowGroups[1], n)
	require.Equal(t, ints, got)

	got, n = decodeAll(t, d, "long")
	require.Equal(t, rowGroups[0]+rowGroups[1], n)
	require.Equal(t, longs, got)
}

var textValues = []string{
	"",
	"a",
	"hello wor",
	"hello world!",
	"héllo wörld, ünïcode",
	"😀 outside of the basic multilingual plane",
	strings.Repeat("long value ", 20),
}

func textValue(row int) string { return textValues[(row*5)%len(textValues)] }

var textEncodings = []struct {
	scenario string
	encoding func(parquet.Node) parquet.Node
}{
	{scenario: "plain", encoding: func(n parquet.Node) parquet.Node { return parquet.Encoded(n, &parquet.Plain) }},
	{scenario: "dictionary", encoding: func(n parquet.Node) parquet.Node { return parquet.Encoded(n, &parquet.RLEDictionary) }},
	{scenario: "delta length", encoding: func(n parquet.Node) parquet.Node { return parquet.Encoded(n, &parquet.DeltaLengthByteArray) }},
	{scenario: "delta", encoding: func(n parquet.Node) parquet.Node { return parquet.Encoded(n, &parquet.DeltaByteArray) }},
}

func textColumn(node parquet.Node) []testColumn {
	return []testColumn{{
		name:     "text",
		node:     node,
		optional: true,
		value: nullEvery(4, func(row int) parquet.Value {
			return parquet.ByteArrayValue([]byte(textValue(row)))
		}),
	}}
}

func TestDecodeVarchar(t *testing.T) {
	for _, config := range writerConfigs {
		for _, enc := range textEncodings {
			t.Run(config.scenario+"/"+enc.scenario, func(t *testing.T) {
				data := writeFile(t, textColumn(enc.encoding(parquet.String())), rowGroups, config.options...)
				d := openFile(t, data)
				require.Equal(t, pqdecode.Varchar.ColumnType(), d.Columns()[0].Type)

				bufs := pqdecode.NewRowGroupBuffers(1)
				row := 0
				for g := 0; g < d.RowGroupCount(); g++ {
					n, err := d.DecodeRowGroup(bufs, []pqdecode.ColumnRequest{request(t, d, "text")}, g)
					require.NoError(t, err)
					require.Equal(t, rowGroups[g], n)

					col := bufs.Column(0)
					require.Len(t, col.Aux(), 16*n)
					for i := 0; i < n; i++ {
						v, ok := col.VarcharAt(i)
						if row%4 == 3 {
							require.False(t, ok, "row %d", row)
						} else {
							require.True(t, ok, "row %d", row)
							require.Equal(t, textValue(row), string(v), "row %d", row)
						}
						row++
					}
				}
			})
		}
	}
}

func TestDecodeString(t *testing.T) {
	for _, enc := range textEncodings {
		t.Run(enc.scenario, func(t *testing.T) {
			data := writeFile(t, textColumn(enc.encoding(parquet.String())), rowGroups,
				parquet.KeyValueMetadata("questdb", `{"version":1,"schema":[{"column_type":11}]}`),
				parquet.PageBufferSize(100),
			)
			d := openFile(t, data)
			require.Equal(t, pqdecode.String.ColumnType(), d.Columns()[0].Type)

			bufs := pqdecode.NewRowGroupBuffers(1)
			row := 0
			for g := 0; g < d.RowGroupCount(); g++ {
				n, err := d.DecodeRowGroup(bufs, []pqdecode.ColumnRequest{request(t, d, "text")}, g)
				require.NoError(t, err)

				col := bufs.Column(0)
				require.Len(t, col.Aux(), 8*(n+1))
				require.Equal(t, uint64(len(col.Data())), binary.LittleEndian.Uint64(col.Aux()[8*n:]))
				for i := 0; i < n; i++ {
					v, ok := col.StringAt(i)
					if row%4 == 3 {
						require.False(t, ok, "row %d", row)
					} else {
						require.True(t, ok, "row %d", row)
						require.Equal(t, textValue(row), v, "row %d", row)
					}
					row++
				}
			}
		})
	}
}

func TestDecodeBinary(t *testing.T) {
	for _, enc := range textEncodings {
		t.Run(enc.scenario, func(t *testing.T) {
			data := writeFile(t, textColumn(enc.encoding(parquet.Leaf(parquet.ByteArrayType))), rowGroups)
			d := openFile(t, data)
			require.Equal(t, pqdecode.Binary.ColumnType(), d.Columns()[0].Type)

			bufs := pqdecode.NewRowGroupBuffers(1)
			n, err := d.DecodeRowGroup(bufs, []pqdecode.ColumnRequest{request(t, d, "text")}, 0)
			require.NoError(t, err)

			col := bufs.Column(0)
			require.Len(t, col.Aux(), 8*(n+1))
			for i := 0; i < n; i++ {
				v, ok := col.BinaryAt(i)
				if i%4 == 3 {
					require.False(t, ok, "row %d", i)
				} else {
					require.True(t, ok, "row %d", i)
					require.Equal(t, []byte(textValue(i)), v, "row %d", i)
				}
			}
		})
	}
}

func TestDecodeSymbol(t *testing.T) {
	value := func(row int) parquet.Value { return parquet.ByteArrayValue([]byte(fmt.Sprintf("sym-%d", row%4))) }
	columns := []testColumn{{
		name:     "sym",
		node:     parquet.Encoded(parquet.String(), &parquet.RLEDictionary),
		optional: true,
		value:    nullEvery(5, value),
	}}
	data := writeFile(t, columns, rowGroups,
		parquet.KeyValueMetadata("questdb", `{"version":1,"schema":[{"column_type":12,"format":1}]}`),
	)
	d := openFile(t, data)
	require.Equal(t, pqdecode.Symbol.ColumnType(), d.Columns()[0].Type)

	keys := pqdecode.NewRowGroupBuffers(1)
	n, err := d.DecodeRowGroup(keys, []pqdecode.ColumnRequest{{Index: 0, Type: pqdecode.Symbol.ColumnType()}}, 0)
	require.NoError(t, err)
	require.Equal(t, rowGroups[0], n)

	values := pqdecode.NewRowGroupBuffers(1)
	n, err = d.DecodeRowGroup(values, []pqdecode.ColumnRequest{{Index: 0, Type: pqdecode.Varchar.ColumnType()}}, 0)
	require.NoError(t, err)
	require.Equal(t, rowGroups[0], n)

	symbols := map[int32]string{}
	for i := 0; i < n; i++ {
		key := keys.Column(0).Int32At(i)
		v, ok := values.Column(0).VarcharAt(i)
		if i%5 == 4 {
			require.Equal(t, int32(math.MinInt32), key)
			require.False(t, ok)
			continue
		}
		require.True(t, ok)
		require.Equal(t, fmt.Sprintf("sym-%d", i%4), string(v))
		if s, seen := symbols[key]; seen {
			require.Equal(t, s, string(v), "key %d", key)
		}
		symbols[key] = string(v)
	}
	require.Len(t, symbols, 4)
}

func TestDecodeSymbolWithoutGlobalKeys(t *testing.T) {
	columns := []testColumn{{
		name:  "sym",
		node:  parquet.Encoded(parquet.String(), &parquet.RLEDictionary),
		value: func(row int) parquet.Value { return parquet.ByteArrayValue([]byte("x")) },
	}}
	data := writeFile(t, columns, []int{10},
		parquet.KeyValueMetadata("questdb", `{"version":1,"schema":[{"column_type":12}]}`),
	)
	d := openFile(t, data)

	_, err := d.DecodeRowGroup(pqdecode.NewRowGroupBuffers(1), []pqdecode.ColumnRequest{{Index: 0, Type: pqdecode.Symbol.ColumnType()}}, 0)
	require.ErrorIs(t, err, pqdecode.ErrUnsupported)

	var e *pqdecode.Error
	require.ErrorAs(t, err, &e)
	require.NotNil(t, e.Cell)
	require.Equal(t, pqdecode.Symbol.ColumnType(), e.Cell.ColumnType)
	require.True(t, e.Cell.HasDictionary)
	require.Contains(t, err.Error(), "LocalKeyIsGlobal")
}

func TestDecodeOptionalIntScenario(t *testing.T) {
	columns := []testColumn{{
		name:     "x",
		node:     parquet.Leaf(parquet.Int32Type),
		optional: true,
		value: func(row int) parquet.Value {
			if row%2 == 1 {
				return parquet.NullValue()
			}
			return parquet.Int32Value(int32(row / 2))
		},
	}}

	for _, config := range writerConfigs {
		t.Run(config.scenario, func(t *testing.T) {
			d := openFile(t, writeFile(t, columns, []int{10}, config.options...))
			bufs := pqdecode.NewRowGroupBuffers(1)

			n, err := d.DecodeRowGroup(bufs, []pqdecode.ColumnRequest{{Index: 0, Type: pqdecode.Int.ColumnType()}}, 0)
			require.NoError(t, err)
			require.Equal(t, 10, n)

			data := bufs.Column(0).Data()
			require.Len(t, data, 40)
			for i := 0; i < 10; i++ {
				if i%2 == 1 {
					require.Equal(t, []byte{0x00, 0x00, 0x00, 0x80}, data[4*i:4*i+4], "row %d", i)
				} else {
					require.Equal(t, int32(i/2), bufs.Column(0).Int32At(i), "row %d", i)
				}
			}
		})
	}
}

func TestDecodeDecimalDictionary(t *testing.T) {
	columns := []testColumn{{
		name: "price",
		node: parquet.Encoded(parquet.Decimal(2, 9, parquet.Int32Type), &parquet.RLEDictionary),
		value: func(row int) parquet.Value {
			return parquet.Int32Value(int32(100 * (row + 1)))
		},
	}}

	d := openFile(t, writeFile(t, columns, []int{2}))
	require.Equal(t, pqdecode.Double.ColumnType(), d.Columns()[0].Type)

	bufs := pqdecode.NewRowGroupBuffers(1)
	n, err := d.DecodeRowGroup(bufs, []pqdecode.ColumnRequest{{Index: 0, Type: pqdecode.Double.ColumnType()}}, 0)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, 1.0, bufs.Column(0).Float64At(0))
	require.Equal(t, 2.0, bufs.Column(0).Float64At(1))
}

func intColumns() []testColumn {
	return []testColumn{
		{name: "a", node: parquet.Leaf(parquet.Int32Type), value: func(row int) parquet.Value { return parquet.Int32Value(int32(row)) }},
		{name: "b", node: parquet.Leaf(parquet.Int64Type), optional: true, value: nullEvery(2, func(row int) parquet.Value { return parquet.Int64Value(int64(row)) })},
	}
}

func TestColumnTypeMismatch(t *testing.T) {
	d := openFile(t, writeFile(t, intColumns(), []int{10}))
	bufs := pqdecode.NewRowGroupBuffers(1)

	_, err := d.DecodeRowGroup(bufs, []pqdecode.ColumnRequest{{Index: 0, Type: pqdecode.Long.ColumnType()}}, 0)
	require.ErrorIs(t, err, pqdecode.ErrInvalid)

	_, err = d.DecodeColumnChunk(bufs.Column(0), 0, pqdecode.ColumnRequest{Index: 0, Type: pqdecode.Long.ColumnType()})
	require.ErrorIs(t, err, pqdecode.ErrInvalid)
}

func TestInvalidIndexes(t *testing.T) {
	d := openFile(t, writeFile(t, intColumns(), []int{10}))
	bufs := pqdecode.NewRowGroupBuffers(1)

	tests := []struct {
		scenario string
		decode   func() error
	}{
		{
			scenario: "row group",
			decode: func() error {
				_, err := d.DecodeRowGroup(bufs, []pqdecode.ColumnRequest{request(t, d, "a")}, 1)
				return err
			},
		},
		{
			scenario: "negative row group",
			decode: func() error {
				_, err := d.DecodeRowGroup(bufs, []pqdecode.ColumnRequest{request(t, d, "a")}, -1)
				return err
			},
		},
		{
			scenario: "column",
			decode: func() error {
				_, err := d.DecodeRowGroup(bufs, []pqdecode.ColumnRequest{{Index: 2, Type: pqdecode.Int.ColumnType()}}, 0)
				return err
			},
		},
		{
			scenario: "overlapping intervals",
			decode: func() error {
				_, err := d.DecodeRowGroupSelected(bufs, []pqdecode.ColumnRequest{request(t, d, "a")}, 0,
					[]pqdecode.Interval{{Start: 0, End: 5}, {Start: 4, End: 6}})
				return err
			},
		},
		{
			scenario: "stats column",
			decode: func() error {
				return d.UpdateColumnChunkStats(bufs, 0, 5, 0)
			},
		},
	}

	for _, test := range tests {
		t.Run(test.scenario, func(t *testing.T) {
			require.ErrorIs(t, test.decode(), pqdecode.ErrInvalid)
		})
	}
}

func TestRequiredColumnWithoutLevels(t *testing.T) {
	for _, config := range writerConfigs {
		t.Run(config.scenario, func(t *testing.T) {
			d := openFile(t, writeFile(t, intColumns(), []int{100}, config.options...))
			bufs := pqdecode.NewRowGroupBuffers(1)

			n, err := d.DecodeRowGroup(bufs, []pqdecode.ColumnRequest{request(t, d, "a")}, 0)
			require.NoError(t, err)
			require.Equal(t, 100, n)
			for i := 0; i < n; i++ {
				require.Equal(t, int32(i), bufs.Column(0).Int32At(i))
			}
		})
	}
}

func TestDecodeMultipleColumns(t *testing.T) {
	d := openFile(t, writeFile(t, intColumns(), rowGroups, parquet.PageBufferSize(64)))
	require.Equal(t, 2, d.RowGroupCount())
	require.Equal(t, int64(rowGroups[0]+rowGroups[1]), d.RowCount())

	bufs := pqdecode.NewRowGroupBuffers(0)
	requests := []pqdecode.ColumnRequest{request(t, d, "b"), request(t, d, "a")}

	for g := 0; g < d.RowGroupCount(); g++ {
		n, err := d.DecodeRowGroup(bufs, requests, g)
		require.NoError(t, err)
		require.Equal(t, d.RowGroupSize(g), n)
		require.Equal(t, 2, bufs.Len())

		offset := g * rowGroups[0]
		for i := 0; i < n; i++ {
			row := offset + i
			require.Equal(t, int32(row), bufs.Column(1).Int32At(i))
			if row%2 == 1 {
				require.Equal(t, int64(math.MinInt64), bufs.Column(0).Int64At(i))
			} else {
				require.Equal(t, int64(row), bufs.Column(0).Int64At(i))
			}
		}
	}
}

func hexdump(b []byte) string {
	var s strings.Builder
	for i := 0; i < len(b); i += 16 {
		fmt.Fprintf(&s, "%08x  % x\n", i, b[i:min(i+16, len(b))])
	}
	return s.String()
}

func requireSameBytes(t *testing.T, want, got []byte) {
	t.Helper()
	if !bytes.Equal(want, got) {
		a, b := hexdump(want), hexdump(got)
		edits := myers.ComputeEdits(span.URIFromPath("want"), a, b)
		t.Fatalf("buffers differ:\n%s", gotextdiff.ToUnified("want", "got", a, edits))
	}
}

func TestDecodeIdempotent(t *testing.T) {
	columns := append(intColumns(), textColumn(parquet.String())...)
	d := openFile(t, writeFile(t, columns, rowGroups, parquet.PageBufferSize(100)))

	requests := []pqdecode.ColumnRequest{request(t, d, "a"), request(t, d, "b"), request(t, d, "text")}
	first := pqdecode.NewRowGroupBuffers(len(requests))
	second := pqdecode.NewRowGroupBuffers(len(requests))

	for g := 0; g < d.RowGroupCount(); g++ {
		n1, err := d.DecodeRowGroup(first, requests, g)
		require.NoError(t, err)
		// Decode another row group in between to reuse the buffers.
		_, err = d.DecodeRowGroup(second, requests, (g+1)%d.RowGroupCount())
		require.NoError(t, err)
		n2, err := d.DecodeRowGroup(second, requests, g)
		require.NoError(t, err)
		require.Equal(t, n1, n2)

		for i := range requests {
			requireSameBytes(t, first.Column(i).Data(), second.Column(i).Data())
			requireSameBytes(t, first.Column(i).Aux(), second.Column(i).Aux())
		}
	}
}

func TestDecodeSelectedRows(t *testing.T) {
	columns := []testColumn{
		{name: "delta", node: parquet.Encoded(parquet.Leaf(parquet.Int64Type), &parquet.DeltaBinaryPacked), optional: true,
			value: nullEvery(3, func(row int) parquet.Value { return parquet.Int64Value(int64(row * row)) })},
		{name: "dict", node: parquet.Encoded(parquet.Leaf(parquet.Int32Type), &parquet.RLEDictionary), optional: true,
			value: nullEvery(4, func(row int) parquet.Value { return parquet.Int32Value(int32(row % 7)) })},
		{name: "text", node: parquet.Encoded(parquet.String(), &parquet.DeltaByteArray), optional: true,
			value: nullEvery(5, func(row int) parquet.Value { return parquet.ByteArrayValue([]byte(textValue(row))) })},
		{name: "symbols", node: parquet.Encoded(parquet.String(), &parquet.RLEDictionary),
			value: func(row int) parquet.Value { return parquet.ByteArrayValue([]byte(textValue(row))) }},
	}

	selections := []struct {
		scenario  string
		intervals []pqdecode.Interval
	}{
		{scenario: "none", intervals: []pqdecode.Interval{}},
		{scenario: "all", intervals: []pqdecode.Interval{{Start: 0, End: 200}}},
		{scenario: "first", intervals: []pqdecode.Interval{{Start: 0, End: 1}}},
		{scenario: "last", intervals: []pqdecode.Interval{{Start: 199, End: 200}}},
		{scenario: "sparse", intervals: []pqdecode.Interval{{Start: 3, End: 4}, {Start: 17, End: 40}, {Start: 41, End: 42}, {Start: 150, End: 190}}},
		{scenario: "empty intervals", intervals: []pqdecode.Interval{{Start: 5, End: 5}, {Start: 10, End: 20}, {Start: 20, End: 20}}},
		{scenario: "beyond the end", intervals: []pqdecode.Interval{{Start: 190, End: 500}}},
	}

	for _, config := range writerConfigs {
		t.Run(config.scenario, func(t *testing.T) {
			d := openFile(t, writeFile(t, columns, []int{200}, append(config.options, parquet.PageBufferSize(128))...))
			requests := []pqdecode.ColumnRequest{request(t, d, "delta"), request(t, d, "dict"), request(t, d, "text"), request(t, d, "symbols")}

			all := pqdecode.NewRowGroupBuffers(len(requests))
			n, err := d.DecodeRowGroup(all, requests, 0)
			require.NoError(t, err)
			require.Equal(t, 200, n)

			for _, sel := range selections {
				t.Run(sel.scenario, func(t *testing.T) {
					bufs := pqdecode.NewRowGroupBuffers(len(requests))
					n, err := d.DecodeRowGroupSelected(bufs, requests, 0, sel.intervals)
					require.NoError(t, err)

					var rows []int
					for _, iv := range sel.intervals {
						for row := iv.Start; row < min(iv.End, 200); row++ {
							rows = append(rows, row)
						}
					}
					require.Equal(t, len(rows), n)

					for i, row := range rows {
						require.Equal(t, all.Column(0).Int64At(row), bufs.Column(0).Int64At(i), "row %d", row)
						require.Equal(t, all.Column(1).Int32At(row), bufs.Column(1).Int32At(i), "row %d", row)

						want, wantOK := all.Column(2).VarcharAt(row)
						got, gotOK := bufs.Column(2).VarcharAt(i)
						require.Equal(t, wantOK, gotOK, "row %d", row)
						require.Equal(t, string(want), string(got), "row %d", row)

						want, _ = all.Column(3).VarcharAt(row)
						got, _ = bufs.Column(3).VarcharAt(i)
						require.Equal(t, string(want), string(got), "row %d", row)
					}
				})
			}
		})
	}
}

func TestDecodeStringSelectedNone(t *testing.T) {
	data := writeFile(t, textColumn(parquet.String()), []int{20},
		parquet.KeyValueMetadata("questdb", `{"version":1,"schema":[{"column_type":11}]}`),
	)
	d := openFile(t, data)
	bufs := pqdecode.NewRowGroupBuffers(1)

	n, err := d.DecodeRowGroupSelected(bufs, []pqdecode.ColumnRequest{request(t, d, "text")}, 0, nil)
	require.NoError(t, err)
	require.Equal(t, 0, n)
	require.Empty(t, bufs.Column(0).Data())
	// String columns always hold the offset of the end of the data.
	require.Equal(t, make([]byte, 8), bufs.Column(0).Aux())
}

func TestUpdateColumnChunkStats(t *testing.T) {
	d := openFile(t, writeFile(t, intColumns(), rowGroups))
	bufs := pqdecode.NewRowGroupBuffers(1)

	for g := 0; g < d.RowGroupCount(); g++ {
		require.NoError(t, d.UpdateColumnChunkStats(bufs, g, columnIndex(t, d, "a"), 2))
		require.Equal(t, 3, bufs.Len())
		require.Equal(t, le32(int32(g*rowGroups[0])), bufs.Stats(2).MinValue())
	}
}

func TestColumnsMetadata(t *testing.T) {
	columns := []testColumn{
		{name: "geo", node: parquet.Leaf(parquet.Int32Type), value: func(row int) parquet.Value { return parquet.Int32Value(int32(row)) }},
		{name: "ip", node: parquet.Leaf(parquet.Int32Type), value: func(row int) parquet.Value { return parquet.Int32Value(int32(row)) }},
		{name: "ts", node: parquet.Timestamp(parquet.Microsecond), value: func(row int) parquet.Value { return parquet.Int64Value(int64(row)) }},
	}
	geo := pqdecode.NewGeoHashType(20)
	metadata := fmt.Sprintf(`{"version":1,"schema":[{"column_type":%d},{"column_type":25},{"column_type":8}]}`, geo.Code())

	d := openFile(t, writeFile(t, columns, []int{4}, parquet.KeyValueMetadata("questdb", metadata)))
	require.Equal(t, []pqdecode.ColumnMeta{
		{ID: 0, Type: geo, Name: "geo"},
		{ID: 1, Type: pqdecode.IPv4.ColumnType(), Name: "ip"},
		{ID: 2, Type: pqdecode.Timestamp.ColumnType(), Name: "ts"},
	}, d.Columns())

	bufs := pqdecode.NewRowGroupBuffers(2)
	n, err := d.DecodeRowGroup(bufs, []pqdecode.ColumnRequest{{Index: 0, Type: geo}, {Index: 1, Type: pqdecode.IPv4.ColumnType()}}, 0)
	require.NoError(t, err)
	require.Equal(t, 4, n)
	require.Equal(t, int32(3), bufs.Column(0).Int32At(3))
	require.Equal(t, int32(2), bufs.Column(1).Int32At(2))
}

func TestColumnsMetadataFieldID(t *testing.T) {
	columns := []testColumn{
		{name: "a", node: parquet.FieldID(parquet.Leaf(parquet.Int32Type), 2), value: func(row int) parquet.Value { return parquet.Int32Value(int32(row)) }},
		{name: "b", node: parquet.Leaf(parquet.Int32Type), value: func(row int) parquet.Value { return parquet.Int32Value(int32(row)) }},
	}
	geo := pqdecode.NewGeoHashType(20)
	// Column "a" holds field id 2, column "b" has no field id.
	metadata := fmt.Sprintf(`{"version":1,"schema":[{"column_type":%d},{"column_type":%d},{"column_type":25}]}`, geo.Code(), pqdecode.Int.ColumnType().Code())

	d := openFile(t, writeFile(t, columns, []int{2}, parquet.KeyValueMetadata("questdb", metadata)))
	require.Equal(t, []pqdecode.ColumnMeta{
		{ID: 0, Type: pqdecode.IPv4.ColumnType(), Name: "a"},
		{ID: 1, Type: pqdecode.Int.ColumnType(), Name: "b"},
	}, d.Columns())
}

func TestInvalidMetadata(t *testing.T) {
	tests := []struct {
		scenario string
		metadata string
	}{
		{scenario: "malformed", metadata: `{"version":1,`},
		{scenario: "version", metadata: `{"version":2,"schema":[]}`},
		{scenario: "column type", metadata: `{"version":1,"schema":[{"column_type":99}]}`},
		{scenario: "format", metadata: `{"version":1,"schema":[{"column_type":5,"format":7}]}`},
	}

	for _, test := range tests {
		t.Run(test.scenario, func(t *testing.T) {
			data := writeFile(t, intColumns(), []int{1}, parquet.KeyValueMetadata("questdb", test.metadata))
			_, err := pqdecode.OpenDecoder(bytes.NewReader(data), int64(len(data)))
			require.ErrorIs(t, err, pqdecode.ErrInvalid)
		})
	}
}

func TestUndefinedColumns(t *testing.T) {
	columns := []testColumn{
		{name: "fixed8", node: parquet.Leaf(parquet.FixedLenByteArrayType(8)), value: func(row int) parquet.Value { return parquet.FixedLenByteArrayValue(fixedBytes(row, 8)) }},
		{name: "u64", node: parquet.Uint(64), value: func(row int) parquet.Value { return parquet.Int64Value(int64(row)) }},
	}
	d := openFile(t, writeFile(t, columns, []int{3}))

	for _, c := range d.Columns() {
		require.Equal(t, pqdecode.ColumnType(0), c.Type, "column %q", c.Name)
	}
	_, err := d.DecodeRowGroup(pqdecode.NewRowGroupBuffers(1), []pqdecode.ColumnRequest{{Index: 0, Type: pqdecode.Varchar.ColumnType()}}, 0)
	require.ErrorIs(t, err, pqdecode.ErrUnsupported)
}

func TestOpenInvalidFile(t *testing.T) {
	data := []byte("definitely not a parquet file")
	_, err := pqdecode.OpenDecoder(bytes.NewReader(data), int64(len(data)))
	require.Error(t, err)

	var e *pqdecode.Error
	require.ErrorAs(t, err, &e)
}

func TestCorruptedPage(t *testing.T) {
	columns := []testColumn{{
		name:  "x",
		node:  parquet.Leaf(parquet.Int64Type),
		value: func(row int) parquet.Value { return parquet.Int64Value(0x0123456789ABCDEF) },
	}}
	data := writeFile(t, columns, []int{100}, parquet.Compression(&parquet.Uncompressed))

	// Flip a byte of the values, which are the only occurrence of the pattern
	// in the file.
	i := bytes.Index(data, le64(0x0123456789ABCDEF))
	require.GreaterOrEqual(t, i, 0)
	corrupted := bytes.Clone(data)
	corrupted[i] ^= 0xFF

	d := openFile(t, corrupted)
	_, err := d.DecodeRowGroup(pqdecode.NewRowGroupBuffers(1), []pqdecode.ColumnRequest{request(t, d, "x")}, 0)
	require.ErrorIs(t, err, pqdecode.ErrLayout)
	require.Contains(t, err.Error(), "corrupted page")

	d = openFile(t, corrupted, pqdecode.VerifyChecksums(false))
	bufs := pqdecode.NewRowGroupBuffers(1)
	n, err := d.DecodeRowGroup(bufs, []pqdecode.ColumnRequest{request(t, d, "x")}, 0)
	require.NoError(t, err)
	require.Equal(t, 100, n)
}

func TestUUIDLayout(t *testing.T) {
	u := uuid.MustParse("0f1e2d3c-4b5a-6978-8796-a5b4c3d2e1f0")
	columns := []testColumn{{
		name:  "id",
		node:  parquet.UUID(),
		value: func(row int) parquet.Value { return parquet.FixedLenByteArrayValue(u[:]) },
	}}
	d := openFile(t, writeFile(t, columns, []int{1}))

	bufs := pqdecode.NewRowGroupBuffers(1)
	_, err := d.DecodeRowGroup(bufs, []pqdecode.ColumnRequest{request(t, d, "id")}, 0)
	require.NoError(t, err)

	data := bufs.Column(0).Data()
	// The engine stores the least significant half first.
	require.Equal(t, uint64(0x8796a5b4c3d2e1f0), binary.LittleEndian.Uint64(data[0:]))
	require.Equal(t, uint64(0x0f1e2d3c4b5a6978), binary.LittleEndian.Uint64(data[8:]))
}
