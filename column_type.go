package pqdecode

import (
	"encoding/binary"
	"fmt"
)

// ColumnTypeTag identifies the kind of a column type. It is the low byte of
// the column type code.
type ColumnTypeTag uint8

const (
	Undefined ColumnTypeTag = 0
	Boolean   ColumnTypeTag = 1
	Byte      ColumnTypeTag = 2
	Short     ColumnTypeTag = 3
	Char      ColumnTypeTag = 4
	Int       ColumnTypeTag = 5
	Long      ColumnTypeTag = 6
	Date      ColumnTypeTag = 7
	Timestamp ColumnTypeTag = 8
	Float     ColumnTypeTag = 9
	Double    ColumnTypeTag = 10
	String    ColumnTypeTag = 11
	Symbol    ColumnTypeTag = 12
	Long256   ColumnTypeTag = 13
	GeoByte   ColumnTypeTag = 14
	GeoShort  ColumnTypeTag = 15
	GeoInt    ColumnTypeTag = 16
	GeoLong   ColumnTypeTag = 17
	Binary    ColumnTypeTag = 18
	Uuid      ColumnTypeTag = 19
	Long128   ColumnTypeTag = 24
	IPv4      ColumnTypeTag = 25
	Varchar   ColumnTypeTag = 26
)

type tagInfo struct {
	name  string
	width int
	null  []byte
}

var (
	intNull     = le32(0x80000000)
	longNull    = le64(0x8000000000000000)
	floatNull   = le32(0x7FC00000)
	doubleNull  = le64(0x7FF8000000000000)
	long128Null = repeat(longNull, 2)
	long256Null = repeat(longNull, 4)
)

var tags = [...]tagInfo{
	Boolean:   {name: "BOOLEAN", width: 1, null: []byte{0}},
	Byte:      {name: "BYTE", width: 1, null: []byte{0}},
	Short:     {name: "SHORT", width: 2, null: []byte{0, 0}},
	Char:      {name: "CHAR", width: 2, null: []byte{0, 0}},
	Int:       {name: "INT", width: 4, null: intNull},
	Long:      {name: "LONG", width: 8, null: longNull},
	Date:      {name: "DATE", width: 8, null: longNull},
	Timestamp: {name: "TIMESTAMP", width: 8, null: longNull},
	Float:     {name: "FLOAT", width: 4, null: floatNull},
	Double:    {name: "DOUBLE", width: 8, null: doubleNull},
	String:    {name: "STRING", width: -1},
	Symbol:    {name: "SYMBOL", width: 4, null: intNull},
	Long256:   {name: "LONG256", width: 32, null: long256Null},
	GeoByte:   {name: "GEOBYTE", width: 1, null: []byte{0xFF}},
	GeoShort:  {name: "GEOSHORT", width: 2, null: []byte{0xFF, 0xFF}},
	GeoInt:    {name: "GEOINT", width: 4, null: le32(0xFFFFFFFF)},
	GeoLong:   {name: "GEOLONG", width: 8, null: le64(0xFFFFFFFFFFFFFFFF)},
	Binary:    {name: "BINARY", width: -1},
	Uuid:      {name: "UUID", width: 16, null: long128Null},
	Long128:   {name: "LONG128", width: 16, null: long128Null},
	IPv4:      {name: "IPv4", width: 4, null: []byte{0, 0, 0, 0}},
	Varchar:   {name: "VARCHAR", width: -1},
}

func (t ColumnTypeTag) info() *tagInfo {
	if int(t) < len(tags) && tags[t].name != "" {
		return &tags[t]
	}
	return nil
}

// ColumnType returns the column type made of the tag t.
func (t ColumnTypeTag) ColumnType() ColumnType { return ColumnType(t) }

// Valid returns true if t is one of the known column type tags.
func (t ColumnTypeTag) Valid() bool { return t.info() != nil }

func (t ColumnTypeTag) String() string {
	if info := t.info(); info != nil {
		return info.name
	}
	return fmt.Sprintf("ColumnTypeTag(%d)", uint8(t))
}

// Geohash precisions are stored in the second byte of geohash type codes.
const (
	geoBitsShift = 8
	maxGeoBits   = 60
)

// ColumnType is the code of a column type of the engine. The low byte holds
// the tag, geohash types carry their precision in bits in the second byte.
type ColumnType int32

// NewGeoHashType returns the geohash column type of the given precision.
func NewGeoHashType(bits int) ColumnType {
	var tag ColumnTypeTag
	switch {
	case bits < 8:
		tag = GeoByte
	case bits < 16:
		tag = GeoShort
	case bits < 32:
		tag = GeoInt
	default:
		tag = GeoLong
	}
	return ColumnType(int32(bits)<<geoBitsShift | int32(tag))
}

// ParseColumnType validates code as a column type.
func ParseColumnType(code int32) (ColumnType, error) {
	t := ColumnType(code)
	tag := t.Tag()

	if !tag.Valid() {
		return 0, errInvalid("invalid column type code %d", code)
	}

	switch tag {
	case GeoByte, GeoShort, GeoInt, GeoLong:
		bits := t.GeoHashBits()
		if bits < 1 || bits > maxGeoBits || NewGeoHashType(bits) != t {
			return 0, errInvalid("invalid geohash column type code %d of %d bits", code, bits)
		}
	default:
		if uint32(code)>>8 != 0 {
			return 0, errInvalid("invalid column type code %d", code)
		}
	}

	return t, nil
}

// Tag returns the tag of t.
func (t ColumnType) Tag() ColumnTypeTag { return ColumnTypeTag(uint32(t) & 0xFF) }

// Code returns the integer code of t.
func (t ColumnType) Code() int32 { return int32(t) }

// GeoHashBits returns the precision of geohash types, or zero.
func (t ColumnType) GeoHashBits() int {
	switch t.Tag() {
	case GeoByte, GeoShort, GeoInt, GeoLong:
		return int(uint32(t)>>geoBitsShift) & 0xFF
	default:
		return 0
	}
}

// Width returns the size of values of type t in bytes, or -1 for variable
// length types.
func (t ColumnType) Width() int {
	if info := t.Tag().info(); info != nil {
		return info.width
	}
	return 0
}

// Null returns the bytes written to fixed size columns for null values. The
// returned slice must not be modified.
func (t ColumnType) Null() []byte {
	if info := t.Tag().info(); info != nil {
		return info.null
	}
	return nil
}

func (t ColumnType) String() string {
	if bits := t.GeoHashBits(); bits != 0 {
		return fmt.Sprintf("GEOHASH(%db)", bits)
	}
	return t.Tag().String()
}

func le32(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func le64(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

func repeat(b []byte, n int) []byte {
	r := make([]byte, 0, n*len(b))
	for i := 0; i < n; i++ {
		r = append(r, b...)
	}
	return r
}
