package pqdecode

import (
	"unsafe"
)

// Field describes the position of a field in a record shared with a host
// process reading the decoder state from memory.
type Field struct {
	Name   string
	Offset uintptr
	Size   uintptr
}

// RecordLayout is the description of a record shared with a host process. Arrays
// of records are laid out contiguously, Size bytes apart.
type RecordLayout struct {
	Size   uintptr
	Fields []Field
}

// Lookup returns the field of l with the given name.
func (l RecordLayout) Lookup(name string) (Field, bool) {
	for _, f := range l.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// decoderHeader is the host visible record of a Decoder.
type decoderHeader struct {
	colCount          int32
	rowGroupCount     int32
	rowCount          int64
	rowGroupSizesPtr  unsafe.Pointer
	rowGroupSizesSize uint64
	columnsPtr        unsafe.Pointer
}

// columnRecord is the host visible record of a column, names are encoded in
// UTF-16.
type columnRecord struct {
	columnType int32
	id         int32
	nameSize   int64
	namePtr    unsafe.Pointer
}

func field[T any](name string, offset uintptr) Field {
	var v T
	return Field{Name: name, Offset: offset, Size: unsafe.Sizeof(v)}
}

// DecoderLayout returns the layout of the record pointed to by
// Decoder.Pointer.
func DecoderLayout() RecordLayout {
	var h decoderHeader
	return RecordLayout{
		Size: unsafe.Sizeof(h),
		Fields: []Field{
			field[int32]("col_count", unsafe.Offsetof(h.colCount)),
			field[int64]("row_count", unsafe.Offsetof(h.rowCount)),
			field[int32]("row_group_count", unsafe.Offsetof(h.rowGroupCount)),
			field[unsafe.Pointer]("row_group_sizes_ptr", unsafe.Offsetof(h.rowGroupSizesPtr)),
			field[uint64]("row_group_sizes_size", unsafe.Offsetof(h.rowGroupSizesSize)),
			field[unsafe.Pointer]("columns_ptr", unsafe.Offsetof(h.columnsPtr)),
		},
	}
}

// ColumnRecordLayout returns the layout of the column records referenced by
// the columns_ptr field of the decoder record.
func ColumnRecordLayout() RecordLayout {
	var r columnRecord
	return RecordLayout{
		Size: unsafe.Sizeof(r),
		Fields: []Field{
			field[int32]("column_type", unsafe.Offsetof(r.columnType)),
			field[int32]("id", unsafe.Offsetof(r.id)),
			field[unsafe.Pointer]("name_ptr", unsafe.Offsetof(r.namePtr)),
			field[int64]("name_size", unsafe.Offsetof(r.nameSize)),
		},
	}
}

// RowGroupBuffersLayout returns the layout of the record pointed to by
// RowGroupBuffers.Pointer.
func RowGroupBuffersLayout() RecordLayout {
	var b RowGroupBuffers
	return RecordLayout{
		Size: unsafe.Offsetof(b.columns),
		Fields: []Field{
			field[unsafe.Pointer]("column_bufs_ptr", unsafe.Offsetof(b.columnBufsPtr)),
			field[uint64]("column_bufs_size", unsafe.Offsetof(b.columnBufsSize)),
			field[unsafe.Pointer]("column_stats_ptr", unsafe.Offsetof(b.columnStatsPtr)),
			field[uint64]("column_stats_size", unsafe.Offsetof(b.columnStatsSize)),
		},
	}
}

// ColumnChunkBuffersLayout returns the layout of the records referenced by
// the column_bufs_ptr field of row group buffers.
func ColumnChunkBuffersLayout() RecordLayout {
	var b ColumnChunkBuffers
	return RecordLayout{
		Size: unsafe.Sizeof(b),
		Fields: []Field{
			field[unsafe.Pointer]("data_ptr", unsafe.Offsetof(b.dataPtr)),
			field[uint64]("data_size", unsafe.Offsetof(b.dataSize)),
			field[unsafe.Pointer]("aux_ptr", unsafe.Offsetof(b.auxPtr)),
			field[uint64]("aux_size", unsafe.Offsetof(b.auxSize)),
		},
	}
}

// ColumnChunkStatsLayout returns the layout of the records referenced by the
// column_stats_ptr field of row group buffers.
func ColumnChunkStatsLayout() RecordLayout {
	var s ColumnChunkStats
	return RecordLayout{
		Size: unsafe.Sizeof(s),
		Fields: []Field{
			field[unsafe.Pointer]("min_value_ptr", unsafe.Offsetof(s.minValuePtr)),
			field[uint64]("min_value_size", unsafe.Offsetof(s.minValueSize)),
		},
	}
}

// Pointer returns the address of the host visible record of bufs.
func (bufs *RowGroupBuffers) Pointer() unsafe.Pointer { return unsafe.Pointer(bufs) }

// Pointer returns the address of the host visible record of d.
func (d *Decoder) Pointer() unsafe.Pointer { return unsafe.Pointer(&d.header) }
