package pqdecode

import (
	"fmt"

	"github.com/parquet-go/parquet-go"
	pqdeprecated "github.com/parquet-go/parquet-go/deprecated"
	"github.com/parquet-go/parquet-go/format"
	"github.com/segmentio/encoding/json"
)

// The key of the custom metadata written by the engine in the footer of
// parquet files.
const metadataKey = "questdb"

// ColumnFormat is a hint describing how the values of a column were encoded
// by the engine.
type ColumnFormat int32

const (
	FormatNone ColumnFormat = 0
	// The local dictionary indexes of symbol columns are the keys of the
	// global symbol table.
	FormatLocalKeyIsGlobal ColumnFormat = 1
)

func (f ColumnFormat) String() string {
	switch f {
	case FormatNone:
		return "none"
	case FormatLocalKeyIsGlobal:
		return "LocalKeyIsGlobal"
	default:
		return fmt.Sprintf("ColumnFormat(%d)", int32(f))
	}
}

// ColumnMeta describes a leaf column of a parquet file.
type ColumnMeta struct {
	// Position of the column among the leaf columns of the file.
	ID int
	// Type of the column, zero when the column cannot be decoded.
	Type ColumnType
	Name string
}

type metadataDocument struct {
	Version int                    `json:"version"`
	Schema  []metadataColumnSchema `json:"schema"`
}

type metadataColumnSchema struct {
	ColumnType int32        `json:"column_type"`
	Format     ColumnFormat `json:"format,omitempty"`
}

// parseMetadata parses the custom metadata document of the engine, the
// returned slice holds one entry per leaf column described by the document.
func parseMetadata(value string) ([]metadataColumnSchema, error) {
	doc := metadataDocument{}

	if err := json.Unmarshal([]byte(value), &doc); err != nil {
		return nil, &Error{Kind: Invalid, Message: "malformed " + metadataKey + " metadata", Err: err}
	}
	if doc.Version != 1 {
		return nil, errInvalid("unsupported %s metadata version %d", metadataKey, doc.Version)
	}

	for i, col := range doc.Schema {
		if _, err := ParseColumnType(col.ColumnType); err != nil {
			return nil, withContext(err, "%s metadata of column %d", metadataKey, i)
		}
		switch col.Format {
		case FormatNone, FormatLocalKeyIsGlobal:
		default:
			return nil, errInvalid("%s metadata of column %d: invalid column format %d", metadataKey, i, col.Format)
		}
	}

	return doc.Schema, nil
}

type logicalClass uint8

const (
	logicalAny logicalClass = iota
	logicalString
	logicalDecimal
	logicalDate
	logicalTimestampMillis
	logicalTimestampMicros
	logicalTimestampNanos
	logicalUUID
	logicalInt8
	logicalInt16
	logicalUint16
	logicalInt32
	logicalInt64
	logicalOther
)

// columnInfo holds what the decoder knows about a leaf column.
type columnInfo struct {
	name               string
	physical           format.Type
	typeLength         int
	logical            logicalClass
	logicalName        string
	convertedName      string
	scale              int
	columnType         ColumnType
	format             ColumnFormat
	maxDefinitionLevel int
	maxRepetitionLevel int
	// False when the column is nested or repeated.
	flat bool
}

func (c *columnInfo) cell(encoding format.Encoding, hasDictionary bool, t ColumnType) Cell {
	return Cell{
		PhysicalType:  c.physical,
		TypeLength:    c.typeLength,
		Encoding:      encoding,
		LogicalType:   c.logicalName,
		ConvertedType: c.convertedName,
		HasDictionary: hasDictionary,
		ColumnType:    t,
		Format:        c.format,
	}
}

// fileColumns returns the leaf columns of f in the order of their column
// chunks in row groups.
func fileColumns(f *parquet.File) ([]columnInfo, error) {
	metadata := f.Metadata()

	// Primitive schema elements are listed in the depth-first order of the
	// leaf columns.
	elements := make([]*format.SchemaElement, 0, len(metadata.Schema))
	for i := range metadata.Schema {
		if metadata.Schema[i].Type != nil {
			elements = append(elements, &metadata.Schema[i])
		}
	}

	var schema []metadataColumnSchema
	if value, ok := f.Lookup(metadataKey); ok {
		var err error
		if schema, err = parseMetadata(value); err != nil {
			return nil, err
		}
	}

	columns := make([]columnInfo, 0, len(elements))
	var walk func(col *parquet.Column, depth int, flat bool) error

	walk = func(col *parquet.Column, depth int, flat bool) error {
		if !col.Leaf() {
			for _, child := range col.Columns() {
				if err := walk(child, depth+1, flat && !col.Repeated()); err != nil {
					return err
				}
			}
			return nil
		}
		i := len(columns)
		if i >= len(elements) {
			return errInvalid("schema has more leaf columns than primitive elements")
		}
		info := newColumnInfo(elements[i])
		info.maxDefinitionLevel = col.MaxDefinitionLevel()
		info.maxRepetitionLevel = col.MaxRepetitionLevel()
		info.flat = flat && depth <= 1 && !col.Repeated() && info.maxRepetitionLevel == 0 && info.maxDefinitionLevel <= 1
		if !info.flat {
			info.columnType = 0
		}
		// Entries are keyed by field id, columns written without one use
		// their position.
		key := i
		if id := int(elements[i].FieldID); id > 0 {
			key = id
		}
		if info.flat && key < len(schema) {
			info.columnType = ColumnType(schema[key].ColumnType)
			info.format = schema[key].Format
		}
		columns = append(columns, info)
		return nil
	}

	for _, col := range f.Root().Columns() {
		if err := walk(col, 1, true); err != nil {
			return nil, err
		}
	}
	if len(columns) != len(elements) {
		return nil, errInvalid("schema has %d leaf columns but %d primitive elements", len(columns), len(elements))
	}
	return columns, nil
}

func newColumnInfo(se *format.SchemaElement) columnInfo {
	info := columnInfo{
		name:     se.Name,
		physical: *se.Type,
	}
	if se.TypeLength != nil {
		info.typeLength = int(*se.TypeLength)
	}
	if se.Scale != nil {
		info.scale = int(*se.Scale)
	}
	if se.ConvertedType != nil {
		info.convertedName = fmt.Sprint(*se.ConvertedType)
	}
	info.logical, info.logicalName = classifyLogicalType(se.LogicalType, se.ConvertedType)
	if se.LogicalType != nil && se.LogicalType.Decimal != nil {
		info.scale = int(se.LogicalType.Decimal.Scale)
	}
	info.columnType = descriptorColumnType(&info)
	return info
}

func classifyLogicalType(lt *format.LogicalType, ct *pqdeprecated.ConvertedType) (logicalClass, string) {
	if lt != nil {
		switch {
		case lt.UTF8 != nil:
			return logicalString, "STRING"
		case lt.Enum != nil:
			return logicalString, "ENUM"
		case lt.Json != nil:
			return logicalString, "JSON"
		case lt.Decimal != nil:
			return logicalDecimal, fmt.Sprintf("DECIMAL(%d,%d)", lt.Decimal.Precision, lt.Decimal.Scale)
		case lt.Date != nil:
			return logicalDate, "DATE"
		case lt.Timestamp != nil:
			switch unit := lt.Timestamp.Unit; {
			case unit.Millis != nil:
				return logicalTimestampMillis, "TIMESTAMP(MILLIS)"
			case unit.Nanos != nil:
				return logicalTimestampNanos, "TIMESTAMP(NANOS)"
			default:
				return logicalTimestampMicros, "TIMESTAMP(MICROS)"
			}
		case lt.UUID != nil:
			return logicalUUID, "UUID"
		case lt.Integer != nil:
			name := fmt.Sprintf("INT(%d,%t)", lt.Integer.BitWidth, lt.Integer.IsSigned)
			switch {
			case lt.Integer.BitWidth == 8 && lt.Integer.IsSigned:
				return logicalInt8, name
			case lt.Integer.BitWidth == 16 && lt.Integer.IsSigned:
				return logicalInt16, name
			case lt.Integer.BitWidth == 16:
				return logicalUint16, name
			case lt.Integer.BitWidth == 32 && lt.Integer.IsSigned:
				return logicalInt32, name
			case lt.Integer.BitWidth == 64 && lt.Integer.IsSigned:
				return logicalInt64, name
			default:
				return logicalOther, name
			}
		default:
			return logicalOther, "OTHER"
		}
	}

	if ct != nil {
		switch *ct {
		case pqdeprecated.UTF8:
			return logicalString, ""
		case pqdeprecated.Decimal:
			return logicalDecimal, ""
		case pqdeprecated.Date:
			return logicalDate, ""
		case pqdeprecated.TimestampMillis:
			return logicalTimestampMillis, ""
		case pqdeprecated.TimestampMicros:
			return logicalTimestampMicros, ""
		case pqdeprecated.Int8:
			return logicalInt8, ""
		case pqdeprecated.Int16:
			return logicalInt16, ""
		case pqdeprecated.Uint16:
			return logicalUint16, ""
		case pqdeprecated.Int32:
			return logicalInt32, ""
		case pqdeprecated.Int64:
			return logicalInt64, ""
		default:
			return logicalOther, ""
		}
	}

	return logicalAny, ""
}

// descriptorColumnType returns the column type of columns of files that were
// not written by the engine.
func descriptorColumnType(c *columnInfo) ColumnType {
	switch c.physical {
	case format.Boolean:
		if c.logical == logicalAny {
			return Boolean.ColumnType()
		}
	case format.Int32:
		switch c.logical {
		case logicalDecimal:
			return Double.ColumnType()
		case logicalInt16:
			return Short.ColumnType()
		case logicalUint16, logicalInt32, logicalAny:
			return Int.ColumnType()
		case logicalInt8:
			return Byte.ColumnType()
		case logicalDate:
			return Date.ColumnType()
		}
	case format.Int64:
		switch c.logical {
		case logicalTimestampMicros, logicalTimestampNanos:
			return Timestamp.ColumnType()
		case logicalTimestampMillis:
			return Date.ColumnType()
		case logicalInt64, logicalAny:
			return Long.ColumnType()
		}
	case format.Int96:
		if c.logical == logicalAny {
			return Timestamp.ColumnType()
		}
	case format.Float:
		if c.logical == logicalAny {
			return Float.ColumnType()
		}
	case format.Double:
		if c.logical == logicalAny {
			return Double.ColumnType()
		}
	case format.ByteArray:
		switch c.logical {
		case logicalString:
			return Varchar.ColumnType()
		case logicalAny:
			return Binary.ColumnType()
		}
	case format.FixedLenByteArray:
		switch {
		case c.typeLength == 16 && c.logical == logicalUUID:
			return Uuid.ColumnType()
		case c.typeLength == 16 && c.logical == logicalAny:
			return Long128.ColumnType()
		case c.typeLength == 32 && c.logical == logicalAny:
			return Long256.ColumnType()
		}
	}
	return 0
}
