// Package deprecated implements conversions for the deprecated INT96 parquet
// type, which writers used to store nanosecond timestamps.
package deprecated

import (
	"encoding/binary"
)

const (
	// JulianDayOfEpoch is the julian day number of 1970-01-01.
	JulianDayOfEpoch = 2440588

	microsPerDay   = 86400 * 1000 * 1000
	nanosPerMicros = 1000
)

// Int96 is an implementation of the deprecated INT96 parquet type.
//
// As a timestamp, the first two words hold the nanoseconds within the day and
// the last word holds the julian day number.
type Int96 [3]uint32

// Int96FromBytes loads an Int96 from its 12 bytes little-endian encoding.
func Int96FromBytes(b []byte) Int96 {
	_ = b[11]
	return Int96{
		binary.LittleEndian.Uint32(b[0:]),
		binary.LittleEndian.Uint32(b[4:]),
		binary.LittleEndian.Uint32(b[8:]),
	}
}

// IsZero returns true if all bits of i are zero, which writers use to
// represent empty timestamps.
func (i Int96) IsZero() bool {
	return i == Int96{}
}

// JulianDay returns the julian day number of i interpreted as a timestamp.
func (i Int96) JulianDay() int64 {
	return int64(int32(i[2]))
}

// NanosOfDay returns the nanoseconds within the day of i interpreted as a
// timestamp.
func (i Int96) NanosOfDay() int64 {
	return int64(uint64(i[1])<<32 | uint64(i[0]))
}

// UnixMicros returns the number of microseconds since the unix epoch of i
// interpreted as a timestamp.
func (i Int96) UnixMicros() int64 {
	return (i.JulianDay()-JulianDayOfEpoch)*microsPerDay + i.NanosOfDay()/nanosPerMicros
}
