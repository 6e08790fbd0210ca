package pqdecode

import (
	"errors"
	"io"
	"unicode/utf16"
	"unsafe"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/format"
)

// ColumnRequest selects a leaf column of the file and the type it is decoded
// to.
type ColumnRequest struct {
	// Position of the column among the leaf columns of the file.
	Index int
	Type  ColumnType
}

// Decoder decodes the column chunks of a parquet file into column buffers.
//
// Decoders are not safe for concurrent use, distinct decoders of the same
// file may be used concurrently.
type Decoder struct {
	header decoderHeader

	reader  io.ReaderAt
	size    int64
	config  *DecoderConfig
	logger  log.Logger
	metrics *metrics

	version       int32
	rowGroups     []format.RowGroup
	rowGroupSizes []int32
	columns       []columnInfo
	metas         []ColumnMeta
	records       []columnRecord
	names         [][]uint16

	pages     pageReader
	dict      dictionaryPage
	intervals []Interval
}

// OpenDecoder reads the footer of the parquet file of the given size read
// from r, and returns a decoder of its column chunks.
func OpenDecoder(r io.ReaderAt, size int64, options ...DecoderOption) (*Decoder, error) {
	config, err := NewDecoderConfig(options...)
	if err != nil {
		return nil, err
	}

	f, err := parquet.OpenFile(r, size,
		parquet.SkipPageIndex(true),
		parquet.SkipBloomFilters(true),
	)
	if err != nil {
		if isIOError(err) {
			return nil, errIO(err, "reading parquet footer")
		}
		return nil, &Error{Kind: Invalid, Message: "reading parquet footer", Err: err}
	}

	return newDecoder(f, r, size, config)
}

func newDecoder(f *parquet.File, r io.ReaderAt, size int64, config *DecoderConfig) (*Decoder, error) {
	metadata := f.Metadata()
	if metadata.Version != 1 && metadata.Version != 2 {
		return nil, errUnsupported("unsupported parquet file version %d", metadata.Version)
	}

	columns, err := fileColumns(f)
	if err != nil {
		return nil, err
	}

	m, err := newMetrics(config.Registerer)
	if err != nil {
		return nil, err
	}

	d := &Decoder{
		reader:        r,
		size:          size,
		config:        config,
		logger:        config.Logger,
		metrics:       m,
		version:       metadata.Version,
		rowGroups:     metadata.RowGroups,
		rowGroupSizes: make([]int32, len(metadata.RowGroups)),
		columns:       columns,
		metas:         make([]ColumnMeta, len(columns)),
		records:       make([]columnRecord, len(columns)),
		names:         make([][]uint16, len(columns)),
	}

	for i := range d.rowGroups {
		if n := len(d.rowGroups[i].Columns); n != len(columns) {
			return nil, errInvalid("row group %d has %d column chunks but the schema has %d leaf columns", i, n, len(columns))
		}
		d.rowGroupSizes[i] = int32(d.rowGroups[i].NumRows)
	}

	for i := range columns {
		c := &columns[i]
		d.metas[i] = ColumnMeta{ID: i, Type: c.columnType, Name: c.name}
		d.names[i] = utf16.Encode([]rune(c.name))
		d.records[i] = columnRecord{
			columnType: int32(c.columnType),
			id:         int32(i),
			nameSize:   int64(len(d.names[i])),
			namePtr:    unsafe.Pointer(unsafe.SliceData(d.names[i])),
		}
		if c.columnType == 0 {
			level.Warn(d.logger).Log("msg", "column cannot be decoded", "column", c.name, "id", i,
				"physical_type", c.physical, "logical_type", c.logicalName, "converted_type", c.convertedName)
		}
	}

	d.header = decoderHeader{
		colCount:          int32(len(columns)),
		rowGroupCount:     int32(len(d.rowGroups)),
		rowCount:          metadata.NumRows,
		rowGroupSizesPtr:  unsafe.Pointer(unsafe.SliceData(d.rowGroupSizes)),
		rowGroupSizesSize: uint64(len(d.rowGroupSizes)),
		columnsPtr:        unsafe.Pointer(unsafe.SliceData(d.records)),
	}

	level.Debug(d.logger).Log("msg", "opened parquet file", "version", d.version,
		"row_groups", len(d.rowGroups), "columns", len(columns), "rows", metadata.NumRows)
	return d, nil
}

// Columns returns the leaf columns of the file. Columns that cannot be
// decoded have a zero type.
func (d *Decoder) Columns() []ColumnMeta { return d.metas }

// Version returns the version of the parquet file format.
func (d *Decoder) Version() int { return int(d.version) }

// RowCount returns the total number of rows in the file.
func (d *Decoder) RowCount() int64 { return d.header.rowCount }

// RowGroupCount returns the number of row groups in the file.
func (d *Decoder) RowGroupCount() int { return len(d.rowGroups) }

// RowGroupSize returns the number of rows in the i-th row group.
func (d *Decoder) RowGroupSize(i int) int { return int(d.rowGroupSizes[i]) }

// DecodeRowGroup decodes the requested columns of a row group. The values of
// the i-th requested column are written to bufs.Column(i).
//
// The method returns the number of rows decoded, which is the same for all
// columns.
func (d *Decoder) DecodeRowGroup(bufs *RowGroupBuffers, columns []ColumnRequest, rowGroup int) (int, error) {
	n, err := d.decodeRowGroup(bufs, columns, rowGroup, nil)
	d.metrics.failed(err)
	return n, err
}

// DecodeRowGroupSelected is like DecodeRowGroup but only decodes the rows
// within the selected intervals, which are relative to the start of the row
// group and must be ordered and not overlap.
func (d *Decoder) DecodeRowGroupSelected(bufs *RowGroupBuffers, columns []ColumnRequest, rowGroup int, selected []Interval) (int, error) {
	if err := validateIntervals(selected); err != nil {
		d.metrics.failed(err)
		return 0, err
	}
	if selected == nil {
		selected = []Interval{}
	}
	n, err := d.decodeRowGroup(bufs, columns, rowGroup, selected)
	d.metrics.failed(err)
	return n, err
}

// DecodeColumnChunk decodes a single column chunk to bufs.
func (d *Decoder) DecodeColumnChunk(bufs *ColumnChunkBuffers, rowGroup int, column ColumnRequest) (int, error) {
	n, err := d.decodeSingleColumnChunk(bufs, rowGroup, column)
	d.metrics.failed(err)
	if err == nil {
		d.metrics.decoded(n)
	}
	return n, err
}

func (d *Decoder) decodeSingleColumnChunk(bufs *ColumnChunkBuffers, rowGroup int, column ColumnRequest) (int, error) {
	if err := d.checkRowGroup(rowGroup); err != nil {
		return 0, err
	}
	t, err := d.checkColumn(column)
	if err != nil {
		return 0, err
	}
	return d.decodeColumnChunk(bufs, rowGroup, column.Index, t, nil)
}

// UpdateColumnChunkStats copies the statistics recorded for a column chunk
// to bufs.Stats(destColumn), without reading pages.
func (d *Decoder) UpdateColumnChunkStats(bufs *RowGroupBuffers, rowGroup, fileColumn, destColumn int) error {
	if err := d.checkRowGroup(rowGroup); err != nil {
		return err
	}
	if fileColumn < 0 || fileColumn >= len(d.columns) {
		return errInvalid("column index %d out of range [0,%d)", fileColumn, len(d.columns))
	}
	if destColumn < 0 {
		return errInvalid("invalid destination column index %d", destColumn)
	}
	bufs.ensure(destColumn + 1)

	stats := &d.rowGroups[rowGroup].Columns[fileColumn].MetaData.Statistics
	minValue := stats.MinValue
	if minValue == nil {
		minValue = stats.Min
	}
	bufs.Stats(destColumn).setMinValue(minValue)
	return nil
}

func (d *Decoder) checkRowGroup(rowGroup int) error {
	if rowGroup < 0 || rowGroup >= len(d.rowGroups) {
		return errInvalid("row group index %d out of range [0,%d)", rowGroup, len(d.rowGroups))
	}
	return nil
}

// checkColumn validates a column request, returning the destination type of
// the values.
func (d *Decoder) checkColumn(req ColumnRequest) (ColumnType, error) {
	if req.Index < 0 || req.Index >= len(d.columns) {
		return 0, errInvalid("column index %d out of range [0,%d)", req.Index, len(d.columns))
	}
	c := &d.columns[req.Index]
	stored := c.columnType

	if stored == 0 {
		return 0, errUnsupported("column %q of type %s cannot be decoded", c.name, c.physical)
	}
	if stored.Tag() == Symbol && req.Type.Tag() == Varchar {
		return req.Type, nil
	}
	if stored != req.Type {
		return 0, errInvalid("requested column type %s does not match the type %s of column %q", req.Type, stored, c.name)
	}
	return stored, nil
}

func (d *Decoder) decodeRowGroup(bufs *RowGroupBuffers, columns []ColumnRequest, rowGroup int, selected []Interval) (int, error) {
	if err := d.checkRowGroup(rowGroup); err != nil {
		return 0, err
	}
	types := make([]ColumnType, len(columns))
	for i, req := range columns {
		t, err := d.checkColumn(req)
		if err != nil {
			return 0, err
		}
		types[i] = t
	}

	bufs.ensure(len(columns))
	rowCount, first := 0, true

	for i, req := range columns {
		n, err := d.decodeColumnChunk(bufs.Column(i), rowGroup, req.Index, types[i], selected)
		if err != nil {
			return 0, err
		}
		if first {
			rowCount, first = n, false
		} else if n != rowCount {
			return 0, errLayout("column chunk size %d does not match previous size %d", n, rowCount)
		}
	}

	d.metrics.decoded(rowCount)
	level.Debug(d.logger).Log("msg", "decoded row group", "row_group", rowGroup, "columns", len(columns), "rows", rowCount)
	return rowCount, nil
}

func (d *Decoder) decodeColumnChunk(bufs *ColumnChunkBuffers, rowGroup, column int, t ColumnType, selected []Interval) (rows int, err error) {
	bufs.data = bufs.data[:0]
	bufs.aux = bufs.aux[:0]
	defer bufs.sync()

	info := &d.columns[column]
	if !info.flat {
		return 0, errUnsupported("column %q is nested or repeated", info.name)
	}

	chunk := &d.rowGroups[rowGroup].Columns[column]
	if chunk.FilePath != "" {
		return 0, errUnsupported("column chunk of column %q is stored in the external file %q", info.name, chunk.FilePath)
	}
	if err := d.pages.reset(d.reader, d.size, &chunk.MetaData, d.config); err != nil {
		return 0, withContext(err, "could not read column %q in row group %d", info.name, rowGroup)
	}

	hasDict := false
	pageStart := 0

	for {
		p, err := d.pages.next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return 0, withContext(err, "could not read page for column %q in row group %d", info.name, rowGroup)
		}

		switch p.header.Type {
		case format.DictionaryPage:
			h := p.header.DictionaryPageHeader
			if h.NumValues < 0 {
				return 0, withContext(errLayout("dictionary page with negative number of values %d", h.NumValues), "could not read page for column %q in row group %d", info.name, rowGroup)
			}
			d.dict.reset(p.data, int(h.NumValues))
			hasDict = true
			d.metrics.page("dictionary", len(p.data))
			level.Debug(d.logger).Log("msg", "loaded dictionary page", "column", info.name, "row_group", rowGroup,
				"values", d.dict.numValues, "bytes", len(p.data))

		case format.DataPage, format.DataPageV2:
			dp, err := newDataPage(info, p)
			if err != nil {
				return 0, withContext(err, "could not decode page for column %q in row group %d", info.name, rowGroup)
			}
			d.metrics.page(p.header.Type.String(), len(p.data))

			pageEnd := pageStart + dp.numValues
			if selected != nil {
				d.intervals = clipIntervals(d.intervals[:0], selected, pageStart, pageEnd)
				if len(d.intervals) == 0 {
					pageStart = pageEnd
					continue
				}
				dp.selected = d.intervals
			}

			var dict *dictionaryPage
			if hasDict {
				dict = &d.dict
			}
			n, err := decodePage(dp, dict, info, t, bufs)
			if err != nil {
				return 0, withContext(err, "could not decode page for column %q in row group %d", info.name, rowGroup)
			}
			rows += n
			pageStart = pageEnd

		default:
			d.metrics.page(p.header.Type.String(), 0)
		}
	}

	if tag := t.Tag(); (tag == String || tag == Binary) && len(bufs.aux) == 0 {
		appendOffset(bufs)
	}
	return rows, nil
}
