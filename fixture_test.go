package pqdecode_test

import (
	"bytes"
	"errors"
	"io"
	"slices"
	"strings"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/require"

	"github.com/segmentio/pqdecode"
)

// testColumn describes a leaf column of a test file and how its values are
// generated. value returns a null value for null rows.
type testColumn struct {
	name     string
	node     parquet.Node
	optional bool
	value    func(row int) parquet.Value
}

// writeFile writes a parquet file in memory with one row group per entry of
// groups, which hold the number of rows of each row group.
func writeFile(t testing.TB, columns []testColumn, groups []int, options ...parquet.WriterOption) []byte {
	t.Helper()

	columns = slices.Clone(columns)
	slices.SortFunc(columns, func(a, b testColumn) int { return strings.Compare(a.name, b.name) })

	group := parquet.Group{}
	for _, c := range columns {
		node := c.node
		if c.optional {
			node = parquet.Optional(node)
		}
		group[c.name] = node
	}

	buf := new(bytes.Buffer)
	w := parquet.NewWriter(buf, append([]parquet.WriterOption{parquet.NewSchema("test", group)}, options...)...)

	// Rows are written one at a time so the writer cuts pages at the
	// configured page buffer size.
	row := 0
	for _, n := range groups {
		for i := 0; i < n; i++ {
			values := make(parquet.Row, len(columns))
			for j, c := range columns {
				v := c.value(row)
				switch {
				case v.IsNull():
					require.True(t, c.optional, "null value in required column %q", c.name)
					values[j] = parquet.NullValue().Level(0, 0, j)
				case c.optional:
					values[j] = v.Level(0, 1, j)
				default:
					values[j] = v.Level(0, 0, j)
				}
			}
			_, err := w.WriteRows([]parquet.Row{values})
			require.NoError(t, err)
			row++
		}
		require.NoError(t, w.Flush())
	}

	require.NoError(t, w.Close())

	// The file must read back with the reader of the library that wrote it.
	r := parquet.NewReader(bytes.NewReader(buf.Bytes()))
	defer r.Close()
	rows := make([]parquet.Row, 16)
	read := 0
	for {
		n, err := r.ReadRows(rows)
		read += n
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
	}
	require.Equal(t, row, read)

	return buf.Bytes()
}

func openFile(t testing.TB, data []byte, options ...pqdecode.DecoderOption) *pqdecode.Decoder {
	t.Helper()
	d, err := pqdecode.OpenDecoder(bytes.NewReader(data), int64(len(data)), options...)
	require.NoError(t, err)
	return d
}

// columnIndex returns the position of the leaf column with the given name.
func columnIndex(t testing.TB, d *pqdecode.Decoder, name string) int {
	t.Helper()
	for _, c := range d.Columns() {
		if c.Name == name {
			return c.ID
		}
	}
	t.Fatalf("column %q not found", name)
	return -1
}

// request returns the request decoding the named column to its stored type.
func request(t testing.TB, d *pqdecode.Decoder, name string) pqdecode.ColumnRequest {
	t.Helper()
	i := columnIndex(t, d, name)
	return pqdecode.ColumnRequest{Index: i, Type: d.Columns()[i].Type}
}

// decodeAll decodes the named column of every row group, concatenating the
// data buffers.
func decodeAll(t testing.TB, d *pqdecode.Decoder, name string) ([]byte, int) {
	t.Helper()
	bufs := pqdecode.NewRowGroupBuffers(1)
	req := request(t, d, name)

	var data []byte
	rows := 0
	for g := 0; g < d.RowGroupCount(); g++ {
		n, err := d.DecodeRowGroup(bufs, []pqdecode.ColumnRequest{req}, g)
		require.NoError(t, err)
		data = append(data, bufs.Column(0).Data()...)
		rows += n
	}
	return data, rows
}

func nullEvery(k int, value func(row int) parquet.Value) func(int) parquet.Value {
	return func(row int) parquet.Value {
		if row%k == k-1 {
			return parquet.NullValue()
		}
		return value(row)
	}
}
