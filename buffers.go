package pqdecode

import (
	"encoding/binary"
	"math"
	"unicode/utf16"
	"unsafe"
)

// ColumnChunkBuffers holds the decoded values of one column chunk.
//
// Fixed size columns only use the data buffer. Variable length columns store
// their payload in the data buffer and per-row offsets or headers in the aux
// buffer. The buffers are cleared and reused across row groups.
type ColumnChunkBuffers struct {
	// Host visible header, see ColumnChunkBuffersLayout. The fields mirror
	// the slices below and are refreshed after each mutation.
	dataPtr  unsafe.Pointer
	dataSize uint64
	auxPtr   unsafe.Pointer
	auxSize  uint64

	data       []byte
	aux        []byte
	generation uint64
}

// Data returns the data buffer. The slice is only valid until the next call
// mutating b.
func (b *ColumnChunkBuffers) Data() []byte { return b.data }

// Aux returns the aux buffer. The slice is only valid until the next call
// mutating b.
func (b *ColumnChunkBuffers) Aux() []byte { return b.aux }

// DataView returns a view of the data buffer which panics when accessed after
// b was mutated.
func (b *ColumnChunkBuffers) DataView() View {
	return View{owner: b, generation: b.generation, bytes: b.data}
}

// AuxView returns a view of the aux buffer which panics when accessed after b
// was mutated.
func (b *ColumnChunkBuffers) AuxView() View {
	return View{owner: b, generation: b.generation, bytes: b.aux}
}

// Reset clears the buffers, retaining the allocated memory.
func (b *ColumnChunkBuffers) Reset() {
	b.data = b.data[:0]
	b.aux = b.aux[:0]
	b.sync()
}

func (b *ColumnChunkBuffers) sync() {
	b.dataPtr = unsafe.Pointer(unsafe.SliceData(b.data))
	b.dataSize = uint64(len(b.data))
	b.auxPtr = unsafe.Pointer(unsafe.SliceData(b.aux))
	b.auxSize = uint64(len(b.aux))
	b.generation++
}

// View is a pointer and length pair over a buffer. A view is valid until the
// next mutation of the buffers it was obtained from.
type View struct {
	owner      *ColumnChunkBuffers
	generation uint64
	bytes      []byte
}

// Valid returns false if the buffer was mutated after the view was obtained.
func (v View) Valid() bool {
	return v.owner != nil && v.owner.generation == v.generation
}

func (v View) check() {
	if !v.Valid() {
		panic("pqdecode: access to a buffer view after its buffer was mutated")
	}
}

// Bytes returns the content of the view.
func (v View) Bytes() []byte { v.check(); return v.bytes }

// Len returns the length of the view in bytes.
func (v View) Len() int { v.check(); return len(v.bytes) }

// Pointer returns the address of the first byte of the view, or nil if the
// buffer was never allocated.
func (v View) Pointer() unsafe.Pointer {
	v.check()
	return unsafe.Pointer(unsafe.SliceData(v.bytes))
}

// Int32At returns the i-th value of a 32 bits column.
func (b *ColumnChunkBuffers) Int32At(i int) int32 {
	return int32(binary.LittleEndian.Uint32(b.data[4*i:]))
}

// Int64At returns the i-th value of a 64 bits column.
func (b *ColumnChunkBuffers) Int64At(i int) int64 {
	return int64(binary.LittleEndian.Uint64(b.data[8*i:]))
}

// Float32At returns the i-th value of a FLOAT column.
func (b *ColumnChunkBuffers) Float32At(i int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b.data[4*i:]))
}

// Float64At returns the i-th value of a DOUBLE column.
func (b *ColumnChunkBuffers) Float64At(i int) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(b.data[8*i:]))
}

// FixedAt returns the bytes of the i-th value of a fixed size column.
func (b *ColumnChunkBuffers) FixedAt(i, width int) []byte {
	return b.data[i*width : (i+1)*width]
}

// VarcharAt returns the i-th value of a VARCHAR column, or false if the value
// is null.
func (b *ColumnChunkBuffers) VarcharAt(i int) ([]byte, bool) {
	entry := b.aux[i*varcharAuxSize : (i+1)*varcharAuxSize]
	flags := entry[0]

	switch {
	case flags&varcharNull != 0:
		return nil, false
	case flags&varcharInlined != 0:
		n := int(flags >> 4)
		return entry[1 : 1+n], true
	default:
		n := int(binary.LittleEndian.Uint32(entry) >> 4)
		offset := int(varcharOffset(entry))
		return b.data[offset : offset+n], true
	}
}

// StringAt returns the i-th value of a STRING column, or false if the value is
// null.
func (b *ColumnChunkBuffers) StringAt(i int) (string, bool) {
	offset := binary.LittleEndian.Uint64(b.aux[8*i:])
	n := int32(binary.LittleEndian.Uint32(b.data[offset:]))
	if n < 0 {
		return "", false
	}
	units := make([]uint16, n)
	for j := range units {
		units[j] = binary.LittleEndian.Uint16(b.data[int(offset)+4+2*j:])
	}
	return string(utf16.Decode(units)), true
}

// BinaryAt returns the i-th value of a BINARY column, or false if the value is
// null.
func (b *ColumnChunkBuffers) BinaryAt(i int) ([]byte, bool) {
	offset := binary.LittleEndian.Uint64(b.aux[8*i:])
	n := int64(binary.LittleEndian.Uint64(b.data[offset:]))
	if n < 0 {
		return nil, false
	}
	start := int(offset) + 8
	return b.data[start : start+int(n)], true
}

// ColumnChunkStats holds the statistics of a column chunk recorded by the
// writer.
type ColumnChunkStats struct {
	// Host visible header, see ColumnChunkStatsLayout.
	minValuePtr  unsafe.Pointer
	minValueSize uint64

	minValue []byte
}

// MinValue returns the minimum value of the column chunk in its parquet plain
// encoding, or an empty slice if the writer did not record it.
func (s *ColumnChunkStats) MinValue() []byte { return s.minValue }

func (s *ColumnChunkStats) setMinValue(v []byte) {
	s.minValue = append(s.minValue[:0], v...)
	s.minValuePtr = unsafe.Pointer(unsafe.SliceData(s.minValue))
	s.minValueSize = uint64(len(s.minValue))
}

// RowGroupBuffers holds one ColumnChunkBuffers and one ColumnChunkStats per
// destination column of a row group decoding call.
type RowGroupBuffers struct {
	// Host visible header, see RowGroupBuffersLayout.
	columnBufsPtr   unsafe.Pointer
	columnBufsSize  uint64
	columnStatsPtr  unsafe.Pointer
	columnStatsSize uint64

	columns []ColumnChunkBuffers
	stats   []ColumnChunkStats
}

// NewRowGroupBuffers returns buffers for n destination columns.
func NewRowGroupBuffers(n int) *RowGroupBuffers {
	bufs := new(RowGroupBuffers)
	bufs.ensure(n)
	return bufs
}

// Len returns the number of destination columns held by bufs.
func (bufs *RowGroupBuffers) Len() int { return len(bufs.columns) }

// Column returns the buffers of the i-th destination column.
func (bufs *RowGroupBuffers) Column(i int) *ColumnChunkBuffers { return &bufs.columns[i] }

// Stats returns the statistics of the i-th destination column.
func (bufs *RowGroupBuffers) Stats(i int) *ColumnChunkStats { return &bufs.stats[i] }

// ensure grows bufs to hold at least n columns. The buffers of existing
// columns are moved to the new backing arrays; views obtained from the
// previous locations are invalidated.
func (bufs *RowGroupBuffers) ensure(n int) {
	if n > len(bufs.columns) {
		if n > cap(bufs.columns) {
			columns := make([]ColumnChunkBuffers, n)
			copy(columns, bufs.columns)
			for i := range bufs.columns {
				bufs.columns[i].generation++
			}
			bufs.columns = columns
		} else {
			bufs.columns = bufs.columns[:n]
		}
	}
	if n > len(bufs.stats) {
		stats := make([]ColumnChunkStats, n)
		copy(stats, bufs.stats)
		bufs.stats = stats
	}
	bufs.columnBufsPtr = unsafe.Pointer(unsafe.SliceData(bufs.columns))
	bufs.columnBufsSize = uint64(len(bufs.columns))
	bufs.columnStatsPtr = unsafe.Pointer(unsafe.SliceData(bufs.stats))
	bufs.columnStatsSize = uint64(len(bufs.stats))
}
