package delta

import (
	"fmt"
)

// LengthByteArrayDecoder is a cursor over a DELTA_LENGTH_BYTE_ARRAY stream.
type LengthByteArrayDecoder struct {
	lengths   BinaryPackedDecoder
	sizes     []int64
	data      []byte
	offset    int
	index     int
	totalSize int
}

// Reset positions d at the beginning of the stream in data. The lengths of
// all values are decoded eagerly since the concatenated values follow them.
func (d *LengthByteArrayDecoder) Reset(data []byte) error {
	if err := d.lengths.Reset(data); err != nil {
		return fmt.Errorf("DELTA_LENGTH_BYTE_ARRAY: %w", err)
	}

	sizes, err := d.lengths.DecodeAll(d.sizes[:0])
	if err != nil {
		return fmt.Errorf("DELTA_LENGTH_BYTE_ARRAY: decoding lengths: %w", err)
	}

	values := data[d.lengths.Offset():]
	totalSize := 0
	for i, n := range sizes {
		if n < 0 {
			return fmt.Errorf("DELTA_LENGTH_BYTE_ARRAY: invalid negative length at index %d (%d): %w", i, n, ErrCorrupted)
		}
		if n > int64(len(values)-totalSize) {
			return fmt.Errorf("DELTA_LENGTH_BYTE_ARRAY: length of value %d (%d) exceeds the %d bytes left in the page: %w", i, n, len(values)-totalSize, ErrTruncated)
		}
		totalSize += int(n)
	}

	d.sizes = sizes
	d.data = values
	d.offset = 0
	d.index = 0
	d.totalSize = totalSize
	return nil
}

// Len returns the number of values in the stream.
func (d *LengthByteArrayDecoder) Len() int { return len(d.sizes) }

// TotalSize returns the sum of the lengths of all values in the stream.
func (d *LengthByteArrayDecoder) TotalSize() int { return d.totalSize }

// Next returns the next value. The returned slice aliases the stream.
func (d *LengthByteArrayDecoder) Next() ([]byte, error) {
	if d.index >= len(d.sizes) {
		return nil, fmt.Errorf("DELTA_LENGTH_BYTE_ARRAY: reading value %d of %d: %w", d.index, len(d.sizes), ErrTruncated)
	}
	n := int(d.sizes[d.index])
	v := d.data[d.offset : d.offset+n : d.offset+n]
	d.offset += n
	d.index++
	return v, nil
}

// Skip discards the next n values.
func (d *LengthByteArrayDecoder) Skip(n int) error {
	for ; n > 0; n-- {
		if _, err := d.Next(); err != nil {
			return err
		}
	}
	return nil
}
