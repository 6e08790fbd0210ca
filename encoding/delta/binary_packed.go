package delta

import (
	"encoding/binary"
	"fmt"

	"github.com/segmentio/pqdecode/internal/bits"
)

// BinaryPackedDecoder is a cursor over a DELTA_BINARY_PACKED stream.
//
// Arithmetic on values is performed modulo 2^64, which matches the modulo
// 2^32 semantic of INT32 columns once the output is truncated to 32 bits.
type BinaryPackedDecoder struct {
	data          []byte
	offset        int
	blockSize     int
	numMiniBlocks int
	miniBlockSize int
	totalValues   int
	valueIndex    int
	lastValue     uint64
	minDelta      uint64
	bitWidths     []byte
	miniBlock     int
	deltas        []uint64
	deltaIndex    int
}

// Reset positions d at the beginning of the stream in data and decodes the
// stream header.
func (d *BinaryPackedDecoder) Reset(data []byte) error {
	*d = BinaryPackedDecoder{
		data:      data,
		bitWidths: d.bitWidths[:0],
		deltas:    d.deltas[:0],
	}

	blockSize, err := d.uvarint("block size")
	if err != nil {
		return err
	}
	numMiniBlocks, err := d.uvarint("number of mini blocks")
	if err != nil {
		return err
	}
	totalValues, err := d.uvarint("number of values")
	if err != nil {
		return err
	}
	firstValue, n := binary.Varint(d.data[d.offset:])
	if n <= 0 {
		return fmt.Errorf("DELTA_BINARY_PACKED: reading first value: %w", ErrTruncated)
	}
	d.offset += n

	if blockSize <= 0 || (blockSize%128) != 0 {
		return fmt.Errorf("DELTA_BINARY_PACKED: invalid block size is not a multiple of 128 (%d): %w", blockSize, ErrCorrupted)
	}
	if numMiniBlocks <= 0 || (blockSize%numMiniBlocks) != 0 || ((blockSize/numMiniBlocks)%32) != 0 {
		return fmt.Errorf("DELTA_BINARY_PACKED: invalid mini block size is not a multiple of 32 (%d/%d): %w", blockSize, numMiniBlocks, ErrCorrupted)
	}

	d.blockSize = blockSize
	d.numMiniBlocks = numMiniBlocks
	d.miniBlockSize = blockSize / numMiniBlocks
	d.miniBlock = numMiniBlocks
	d.totalValues = totalValues
	d.lastValue = uint64(firstValue)
	return nil
}

// Len returns the number of values declared in the stream header.
func (d *BinaryPackedDecoder) Len() int { return d.totalValues }

// Remaining returns the number of values that were not decoded yet.
func (d *BinaryPackedDecoder) Remaining() int { return d.totalValues - d.valueIndex }

// Offset returns the number of bytes of the stream consumed so far. Once all
// values were decoded it is the position of the data following the stream.
func (d *BinaryPackedDecoder) Offset() int { return d.offset }

// Next decodes the next value.
func (d *BinaryPackedDecoder) Next() (int64, error) {
	if d.valueIndex >= d.totalValues {
		return 0, fmt.Errorf("DELTA_BINARY_PACKED: reading value %d of %d: %w", d.valueIndex, d.totalValues, ErrTruncated)
	}

	if d.valueIndex > 0 {
		if d.deltaIndex == len(d.deltas) {
			if err := d.decodeMiniBlock(); err != nil {
				return 0, err
			}
		}
		d.lastValue += d.minDelta + d.deltas[d.deltaIndex]
		d.deltaIndex++
	}

	d.valueIndex++
	return int64(d.lastValue), nil
}

// Skip decodes and discards the next n values.
func (d *BinaryPackedDecoder) Skip(n int) error {
	for ; n > 0; n-- {
		if _, err := d.Next(); err != nil {
			return err
		}
	}
	return nil
}

// DecodeAll decodes the remaining values and appends them to dst.
func (d *BinaryPackedDecoder) DecodeAll(dst []int64) ([]int64, error) {
	for d.valueIndex < d.totalValues {
		v, err := d.Next()
		if err != nil {
			return dst, err
		}
		dst = append(dst, v)
	}
	return dst, nil
}

func (d *BinaryPackedDecoder) decodeMiniBlock() error {
	if d.miniBlock == d.numMiniBlocks {
		minDelta, n := binary.Varint(d.data[d.offset:])
		if n <= 0 {
			return fmt.Errorf("DELTA_BINARY_PACKED: reading min delta: %w", ErrTruncated)
		}
		d.offset += n

		if len(d.data)-d.offset < d.numMiniBlocks {
			return fmt.Errorf("DELTA_BINARY_PACKED: reading %d bit widths: %w", d.numMiniBlocks, ErrTruncated)
		}
		d.bitWidths = append(d.bitWidths[:0], d.data[d.offset:d.offset+d.numMiniBlocks]...)
		d.offset += d.numMiniBlocks
		d.minDelta = uint64(minDelta)
		d.miniBlock = 0
	}

	bitWidth := uint(d.bitWidths[d.miniBlock])
	if bitWidth > 64 {
		return fmt.Errorf("DELTA_BINARY_PACKED: invalid bit width %d of mini block %d: %w", bitWidth, d.miniBlock, ErrCorrupted)
	}
	d.miniBlock++

	count := d.miniBlockSize
	size := bits.ByteCount(uint(count) * bitWidth)
	remain := len(d.data) - d.offset

	// The padding of the last mini block may be omitted by the writer.
	if size > remain {
		count = min(count, d.totalValues-d.valueIndex)
		size = bits.ByteCount(uint(count) * bitWidth)
		if size > remain {
			return fmt.Errorf("DELTA_BINARY_PACKED: reading mini block of %d bytes with %d remaining: %w", size, remain, ErrTruncated)
		}
	}

	d.deltas = resize(d.deltas, count)
	d.offset += bits.Unpack(d.deltas, d.data[d.offset:], bitWidth)
	d.deltaIndex = 0
	return nil
}

func (d *BinaryPackedDecoder) uvarint(what string) (int, error) {
	u, n := binary.Uvarint(d.data[d.offset:])
	if n <= 0 {
		return 0, fmt.Errorf("DELTA_BINARY_PACKED: reading %s: %w", what, ErrTruncated)
	}
	d.offset += n
	v, ok := toInt(u)
	if !ok {
		return 0, fmt.Errorf("DELTA_BINARY_PACKED: %s is too large (%d): %w", what, u, ErrCorrupted)
	}
	return v, nil
}
