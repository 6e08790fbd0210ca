// Package delta implements cursors over the DELTA_BINARY_PACKED,
// DELTA_LENGTH_BYTE_ARRAY, and DELTA_BYTE_ARRAY parquet encodings.
//
// The cursors are forward-only: values are produced in order by Next and
// Skip decodes the values it discards, since every value depends on the
// running state accumulated by the previous ones.
//
// https://github.com/apache/parquet-format/blob/master/Encodings.md#delta-encoding-delta_binary_packed--5
package delta

import (
	"errors"
	"math"
)

var (
	// ErrTruncated is returned when a stream ends before all declared values
	// were decoded.
	ErrTruncated = errors.New("delta: stream is truncated")

	// ErrCorrupted is returned when a stream holds values that violate the
	// encoding constraints.
	ErrCorrupted = errors.New("delta: stream is corrupted")
)

func resize[T any](buf []T, size int) []T {
	if cap(buf) < size {
		buf = make([]T, size)
	} else {
		buf = buf[:size]
	}
	return buf
}

func toInt(u uint64) (int, bool) {
	if u > math.MaxInt32 {
		return 0, false
	}
	return int(u), true
}
