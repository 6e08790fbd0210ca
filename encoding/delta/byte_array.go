package delta

import (
	"fmt"
)

// ByteArrayDecoder is a cursor over a DELTA_BYTE_ARRAY stream, where each
// value is made of a prefix of the previous value followed by a suffix.
type ByteArrayDecoder struct {
	prefixes  BinaryPackedDecoder
	lengths   []int64
	suffixes  LengthByteArrayDecoder
	previous  []byte
	value     []byte
	index     int
	totalSize int
}

// Reset positions d at the beginning of the stream in data.
func (d *ByteArrayDecoder) Reset(data []byte) error {
	if err := d.prefixes.Reset(data); err != nil {
		return fmt.Errorf("DELTA_BYTE_ARRAY: %w", err)
	}

	lengths, err := d.prefixes.DecodeAll(d.lengths[:0])
	if err != nil {
		return fmt.Errorf("DELTA_BYTE_ARRAY: decoding prefix lengths: %w", err)
	}
	d.lengths = lengths

	if err := d.suffixes.Reset(data[d.prefixes.Offset():]); err != nil {
		return fmt.Errorf("DELTA_BYTE_ARRAY: %w", err)
	}
	if d.suffixes.Len() != len(lengths) {
		return fmt.Errorf("DELTA_BYTE_ARRAY: number of prefixes and suffixes mismatch: %d != %d: %w", len(lengths), d.suffixes.Len(), ErrCorrupted)
	}

	totalSize := d.suffixes.TotalSize()
	previous := int64(0)
	for i, n := range lengths {
		if n < 0 {
			return fmt.Errorf("DELTA_BYTE_ARRAY: invalid negative prefix length at index %d (%d): %w", i, n, ErrCorrupted)
		}
		if n > previous {
			return fmt.Errorf("DELTA_BYTE_ARRAY: prefix length %d at index %d exceeds the length %d of the previous value: %w", n, i, previous, ErrCorrupted)
		}
		previous = n + d.suffixes.sizes[i]
		totalSize += int(n)
	}

	d.previous = d.previous[:0]
	d.value = d.value[:0]
	d.index = 0
	d.totalSize = totalSize
	return nil
}

// Len returns the number of values in the stream.
func (d *ByteArrayDecoder) Len() int { return len(d.lengths) }

// TotalSize returns the sum of the lengths of all values in the stream.
func (d *ByteArrayDecoder) TotalSize() int { return d.totalSize }

// Next returns the next value. The returned slice is only valid until the
// next call to Next or Skip.
func (d *ByteArrayDecoder) Next() ([]byte, error) {
	if d.index >= len(d.lengths) {
		return nil, fmt.Errorf("DELTA_BYTE_ARRAY: reading value %d of %d: %w", d.index, len(d.lengths), ErrTruncated)
	}

	prefix := int(d.lengths[d.index])
	if prefix > len(d.previous) {
		return nil, fmt.Errorf("DELTA_BYTE_ARRAY: prefix length %d exceeds the length %d of the previous value: %w", prefix, len(d.previous), ErrCorrupted)
	}

	suffix, err := d.suffixes.Next()
	if err != nil {
		return nil, err
	}

	d.value = append(d.value[:0], d.previous[:prefix]...)
	d.value = append(d.value, suffix...)
	d.previous, d.value = d.value, d.previous
	d.index++
	return d.previous, nil
}

// Skip decodes and discards the next n values.
func (d *ByteArrayDecoder) Skip(n int) error {
	for ; n > 0; n-- {
		if _, err := d.Next(); err != nil {
			return err
		}
	}
	return nil
}
