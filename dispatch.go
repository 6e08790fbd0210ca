package pqdecode

import (
	"github.com/parquet-go/parquet-go/format"
)

type physicalClass uint8

const (
	physicalBoolean physicalClass = iota
	physicalInt32
	physicalInt64
	physicalInt96
	physicalFloat
	physicalDouble
	physicalByteArray
	physicalFixed16
	physicalFixed32
	physicalFixedOther
)

func classifyPhysicalType(t format.Type, typeLength int) physicalClass {
	switch t {
	case format.Boolean:
		return physicalBoolean
	case format.Int32:
		return physicalInt32
	case format.Int64:
		return physicalInt64
	case format.Int96:
		return physicalInt96
	case format.Float:
		return physicalFloat
	case format.Double:
		return physicalDouble
	case format.ByteArray:
		return physicalByteArray
	}
	switch typeLength {
	case 16:
		return physicalFixed16
	case 32:
		return physicalFixed32
	default:
		return physicalFixedOther
	}
}

type encodingClass uint8

const (
	encodingUnknown encodingClass = iota
	encodingPlain
	encodingDict
	encodingRLE
	encodingDeltaBinaryPacked
	encodingDeltaLengthByteArray
	encodingDeltaByteArray
)

func classifyEncoding(e format.Encoding) encodingClass {
	switch e {
	case format.Plain:
		return encodingPlain
	case format.PlainDictionary, format.RLEDictionary:
		return encodingDict
	case format.RLE:
		return encodingRLE
	case format.DeltaBinaryPacked:
		return encodingDeltaBinaryPacked
	case format.DeltaLengthByteArray:
		return encodingDeltaLengthByteArray
	case format.DeltaByteArray:
		return encodingDeltaByteArray
	default:
		return encodingUnknown
	}
}

// cellKey is the set of discriminators selecting how a data page is decoded
// to a destination column type.
type cellKey struct {
	physical physicalClass
	logical  logicalClass
	encoding encodingClass
	// The column chunk has a dictionary page.
	dict bool
	tag  ColumnTypeTag
}

// cellContext carries the inputs of a cell factory.
type cellContext struct {
	page       *dataPage
	dict       *dictionaryPage
	info       *columnInfo
	bufs       *ColumnChunkBuffers
	columnType ColumnType
	encoding   encodingClass
}

type cellFactory func(*cellContext) (sink, error)

var cells = map[cellKey]cellFactory{}

// register adds f to the table for each combination of the given logical
// classes, encodings, and tags. Cells of non-dictionary encodings are also
// used by the fallback pages of column chunks that have a dictionary.
func register(f cellFactory, physical physicalClass, logicals []logicalClass, encodings []encodingClass, tags ...ColumnTypeTag) {
	for _, logical := range logicals {
		for _, encoding := range encodings {
			for _, tag := range tags {
				key := cellKey{physical: physical, logical: logical, encoding: encoding, dict: true, tag: tag}
				cells[key] = f
				if encoding != encodingDict {
					key.dict = false
					cells[key] = f
				}
			}
		}
	}
}

// fixed returns a slicer of the values of fixed size of the page. For
// dictionary and plain encodings the width is the size of values in the file,
// for the delta encoding it is the size of the produced values.
func (c *cellContext) fixed(width int) (slicer, error) {
	switch c.encoding {
	case encodingPlain:
		return &plainSlicer{data: c.page.values, width: width}, nil
	case encodingDict:
		dict, err := c.dict.fixedDictionary(width)
		if err != nil {
			return nil, err
		}
		return newDictSlicer(c.page.values, dict, c.page.numValues)
	case encodingDeltaBinaryPacked:
		return newDeltaSlicer(c.page.values, width)
	}
	return nil, c.unsupported()
}

func (c *cellContext) variable() (slicer, error) {
	switch c.encoding {
	case encodingPlain:
		return &plainVarSlicer{data: c.page.values}, nil
	case encodingDict:
		dict, err := c.dict.varDictionary()
		if err != nil {
			return nil, err
		}
		return newDictSlicer(c.page.values, dict, c.page.numValues)
	case encodingDeltaLengthByteArray:
		return newDeltaLengthSlicer(c.page.values)
	case encodingDeltaByteArray:
		return newDeltaByteArraySlicer(c.page.values)
	}
	return nil, c.unsupported()
}

func (c *cellContext) cell() Cell {
	return c.info.cell(c.page.encoding, c.dict != nil, c.columnType)
}

func (c *cellContext) unsupported() *Error { return unsupportedCell(c.cell()) }

func copyCell(width int) cellFactory {
	return func(c *cellContext) (sink, error) {
		values, err := c.fixed(width)
		if err != nil {
			return nil, err
		}
		return newCopySink(c.bufs, values, c.columnType), nil
	}
}

// narrowCell copies 32 bits integers to destination columns of 1 or 2 bytes.
// Delta encoded values are produced at the destination width directly.
func narrowCell(c *cellContext) (sink, error) {
	if c.encoding == encodingDeltaBinaryPacked {
		return copyCell(c.columnType.Width())(c)
	}
	values, err := c.fixed(4)
	if err != nil {
		return nil, err
	}
	return newConvertSink(c.bufs, values, c.columnType, narrowValue(c.columnType)), nil
}

func convertCell(width int, convert func(dst, src []byte)) cellFactory {
	return func(c *cellContext) (sink, error) {
		values, err := c.fixed(width)
		if err != nil {
			return nil, err
		}
		return newConvertSink(c.bufs, values, c.columnType, convert), nil
	}
}

// rescaleCell converts values with a converting slicer producing 8 bytes.
func rescaleCell(width int, convert func(dst, src []byte)) cellFactory {
	return func(c *cellContext) (sink, error) {
		values, err := c.fixed(width)
		if err != nil {
			return nil, err
		}
		s := &convertSlicer{inner: values, width: 8, count: c.page.numValues, convert: convert}
		return newCopySink(c.bufs, s, c.columnType), nil
	}
}

func decimalCell(width int) cellFactory {
	return func(c *cellContext) (sink, error) {
		return convertCell(width, decimalValue(c.info.scale))(c)
	}
}

func booleanCell(c *cellContext) (sink, error) {
	var values slicer
	switch c.encoding {
	case encodingPlain:
		values = &booleanSlicer{data: c.page.values}
	case encodingRLE:
		s, err := newRLEBooleanSlicer(c.page.values, c.page.numValues)
		if err != nil {
			return nil, err
		}
		values = s
	default:
		return nil, c.unsupported()
	}
	return newCopySink(c.bufs, values, c.columnType), nil
}

func varCell(layout varLayout) cellFactory {
	return func(c *cellContext) (sink, error) {
		values, err := c.variable()
		if err != nil {
			return nil, err
		}
		return newVarSink(c.bufs, values, layout), nil
	}
}

func symbolCell(c *cellContext) (sink, error) {
	if c.info.format != FormatLocalKeyIsGlobal {
		cell := c.cell()
		return nil, &Error{
			Kind:    Unsupported,
			Message: "only LocalKeyIsGlobal-encoded symbol columns are supported",
			Cell:    &cell,
		}
	}
	return newSymbolSink(c.bufs, c.page.values)
}

var (
	anyLogical = []logicalClass{logicalAny}

	plainDict      = []encodingClass{encodingPlain, encodingDict}
	plainDeltaDict = []encodingClass{encodingPlain, encodingDeltaBinaryPacked, encodingDict}
	dictOnly       = []encodingClass{encodingDict}
	byteArrays     = []encodingClass{encodingPlain, encodingDeltaLengthByteArray, encodingDeltaByteArray, encodingDict}
)

func init() {
	// INT32
	register(copyCell(4), physicalInt32, anyLogical, plainDeltaDict, Int, GeoInt, IPv4)
	register(narrowCell, physicalInt32, anyLogical, plainDeltaDict, Short, Char, GeoShort, Byte, GeoByte)
	register(rescaleCell(4, daysToMillis), physicalInt32, anyLogical, plainDeltaDict, Date)
	register(decimalCell(4), physicalInt32, anyLogical, plainDeltaDict, Double)

	// INT64
	register(copyCell(8), physicalInt64, anyLogical, plainDeltaDict, Long, Date, GeoLong, Timestamp)
	register(rescaleCell(8, nanosToMicros), physicalInt64, []logicalClass{logicalTimestampNanos}, plainDeltaDict, Timestamp)
	register(rescaleCell(8, millisToMicros), physicalInt64, []logicalClass{logicalTimestampMillis}, plainDeltaDict, Timestamp)
	register(decimalCell(8), physicalInt64, []logicalClass{logicalDecimal}, plainDeltaDict, Double)

	// INT96
	register(convertCell(12, int96Value), physicalInt96, anyLogical, plainDict, Timestamp)

	// FLOAT, DOUBLE
	register(copyCell(4), physicalFloat, anyLogical, plainDict, Float)
	register(copyCell(8), physicalDouble, anyLogical, plainDict, Double)

	// BOOLEAN
	register(booleanCell, physicalBoolean, anyLogical, []encodingClass{encodingPlain, encodingRLE}, Boolean)

	// FIXED_LEN_BYTE_ARRAY
	register(convertCell(16, reverseValue), physicalFixed16, []logicalClass{logicalUUID}, plainDict, Uuid)
	register(copyCell(16), physicalFixed16, anyLogical, plainDict, Long128)
	register(copyCell(32), physicalFixed32, anyLogical, plainDict, Long256)

	// BYTE_ARRAY
	text := []logicalClass{logicalString}
	register(varCell(varcharLayout{}), physicalByteArray, text, byteArrays, Varchar)
	register(varCell(stringLayout{}), physicalByteArray, text, byteArrays, String)
	register(symbolCell, physicalByteArray, text, dictOnly, Symbol)
	// Symbol keys do not need the dictionary page, the symbol table of the
	// engine holds the values.
	cells[cellKey{physical: physicalByteArray, logical: logicalString, encoding: encodingDict, tag: Symbol}] = symbolCell
	register(varCell(binaryLayout{}), physicalByteArray, anyLogical, byteArrays, Binary)
}

// lookupCell returns the factory of the cell matching the discriminators,
// falling back to the cells accepting any logical type.
func lookupCell(key cellKey) (cellFactory, bool) {
	if f, ok := cells[key]; ok {
		return f, true
	}
	key.logical = logicalAny
	f, ok := cells[key]
	return f, ok
}

// newPageSink selects the sink decoding page to a column of type t.
func newPageSink(page *dataPage, dict *dictionaryPage, info *columnInfo, t ColumnType, bufs *ColumnChunkBuffers) (sink, error) {
	c := &cellContext{
		page:       page,
		dict:       dict,
		info:       info,
		bufs:       bufs,
		columnType: t,
		encoding:   classifyEncoding(page.encoding),
	}

	key := cellKey{
		physical: classifyPhysicalType(info.physical, info.typeLength),
		logical:  info.logical,
		encoding: c.encoding,
		dict:     dict != nil,
		tag:      t.Tag(),
	}

	f, ok := lookupCell(key)
	if !ok {
		if !key.dict && key.encoding == encodingDict {
			key.dict = true
			if _, ok := lookupCell(key); ok {
				return nil, errLayout("dictionary page missing for %s encoded page of column %q", page.encoding, info.name)
			}
		}
		return nil, c.unsupported()
	}
	return f(c)
}
