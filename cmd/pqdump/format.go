package main

import (
	"encoding/hex"
	"math"
	"net/netip"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/segmentio/pqdecode"
)

const null = "NULL"

// formatValue renders the i-th value of a column chunk.
func formatValue(bufs *pqdecode.ColumnChunkBuffers, t pqdecode.ColumnType, i int) string {
	data := bufs.Data()

	switch t.Tag() {
	case pqdecode.Boolean:
		return strconv.FormatBool(data[i] != 0)
	case pqdecode.Byte:
		return strconv.Itoa(int(int8(data[i])))
	case pqdecode.Short:
		return strconv.Itoa(int(int16(uint16(data[2*i]) | uint16(data[2*i+1])<<8)))
	case pqdecode.Char:
		return strconv.QuoteRune(rune(uint16(data[2*i]) | uint16(data[2*i+1])<<8))
	case pqdecode.Int:
		v := bufs.Int32At(i)
		if v == math.MinInt32 {
			return null
		}
		return strconv.Itoa(int(v))
	case pqdecode.Symbol:
		return "#" + strconv.Itoa(int(bufs.Int32At(i)))
	case pqdecode.IPv4:
		v := uint32(bufs.Int32At(i))
		if v == 0 {
			return null
		}
		return netip.AddrFrom4([4]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}).String()
	case pqdecode.Long:
		return formatLong(bufs.Int64At(i), strconv.FormatInt(bufs.Int64At(i), 10))
	case pqdecode.Date:
		v := bufs.Int64At(i)
		return formatLong(v, time.UnixMilli(v).UTC().Format(time.RFC3339Nano))
	case pqdecode.Timestamp:
		v := bufs.Int64At(i)
		return formatLong(v, time.UnixMicro(v).UTC().Format(time.RFC3339Nano))
	case pqdecode.Float:
		v := bufs.Float32At(i)
		if v != v {
			return null
		}
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case pqdecode.Double:
		v := bufs.Float64At(i)
		if math.IsNaN(v) {
			return null
		}
		return strconv.FormatFloat(v, 'g', -1, 64)
	case pqdecode.GeoByte, pqdecode.GeoShort, pqdecode.GeoInt, pqdecode.GeoLong:
		return formatGeoHash(bufs.FixedAt(i, t.Width()))
	case pqdecode.Uuid:
		return formatUUID(bufs.FixedAt(i, 16))
	case pqdecode.Long128, pqdecode.Long256:
		return formatLongs(bufs.FixedAt(i, t.Width()))
	case pqdecode.Varchar:
		v, ok := bufs.VarcharAt(i)
		if !ok {
			return null
		}
		return strconv.Quote(string(v))
	case pqdecode.String:
		v, ok := bufs.StringAt(i)
		if !ok {
			return null
		}
		return strconv.Quote(v)
	case pqdecode.Binary:
		v, ok := bufs.BinaryAt(i)
		if !ok {
			return null
		}
		return "0x" + hex.EncodeToString(v)
	default:
		return "?"
	}
}

func formatLong(v int64, s string) string {
	if v == math.MinInt64 {
		return null
	}
	return s
}

// formatGeoHash renders geohashes as the hexadecimal value of their bits.
func formatGeoHash(b []byte) string {
	var v int64
	for i := len(b) - 1; i >= 0; i-- {
		v = v<<8 | int64(b[i])
	}
	if v == -1 || (len(b) < 8 && v == int64(1)<<(8*len(b))-1) {
		return null
	}
	return "0x" + strconv.FormatInt(v, 16)
}

// formatUUID renders a uuid stored as two little endian 64 bits words, the
// least significant word first.
func formatUUID(b []byte) string {
	if isLongsNull(b) {
		return null
	}
	var u uuid.UUID
	for i := range u {
		u[i] = b[len(b)-1-i]
	}
	return u.String()
}

// formatLongs renders values made of little endian 64 bits words, most
// significant word first.
func formatLongs(b []byte) string {
	if isLongsNull(b) {
		return null
	}
	s := make([]byte, 0, 2+2*len(b))
	s = append(s, "0x"...)
	for w := len(b)/8 - 1; w >= 0; w-- {
		for j := 7; j >= 0; j-- {
			s = hex.AppendEncode(s, b[8*w+j:8*w+j+1])
		}
	}
	return string(s)
}

func isLongsNull(b []byte) bool {
	for w := 0; w < len(b); w += 8 {
		if b[w+7] != 0x80 {
			return false
		}
		for _, c := range b[w : w+7] {
			if c != 0 {
				return false
			}
		}
	}
	return true
}
