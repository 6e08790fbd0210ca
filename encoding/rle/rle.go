// Package rle implements decoding of the parquet RLE/bit-packed hybrid
// encoding, used for definition levels, dictionary indexes, and booleans.
//
// https://github.com/apache/parquet-format/blob/master/Encodings.md#run-length-encoding--bit-packing-hybrid-rle--3
package rle

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/segmentio/pqdecode/internal/bits"
)

var (
	// ErrTruncated is returned when a stream ends before the number of values
	// requested by the caller were decoded.
	ErrTruncated = errors.New("RLE: stream is truncated")

	// ErrInvalidBitWidth is returned when a stream declares a bit width that
	// cannot be decoded into 64 bits words.
	ErrInvalidBitWidth = errors.New("RLE: invalid bit width")
)

// LengthPrefixed splits data into the 4 bytes length-prefixed hybrid stream
// at its beginning and the bytes that follow it.
func LengthPrefixed(data []byte) (stream, rest []byte, err error) {
	if len(data) < 4 {
		return nil, nil, fmt.Errorf("reading RLE length prefix of %d bytes buffer: %w", len(data), ErrTruncated)
	}
	n := binary.LittleEndian.Uint32(data)
	data = data[4:]
	if uint64(n) > uint64(len(data)) {
		return nil, nil, fmt.Errorf("RLE length prefix %d exceeds remaining %d bytes: %w", n, len(data), ErrTruncated)
	}
	return data[:n], data[n:], nil
}

// Page value counts are 32 bits integers, longer runs are clamped.
const maxRunLength = 1<<31 - 1

// Run describes the values remaining in the run at the decoder position.
type Run struct {
	// Packed is true for bit-packed runs, Value is meaningless in that case
	// and the values are read from Bytes starting at Offset.
	Packed bool
	Value  uint64
	Bytes  []byte
	Offset int
	// Number of values remaining in the run.
	Count int
}

// At returns the i-th remaining value of the run.
func (r *Run) At(i int, bitWidth uint) uint64 {
	if !r.Packed {
		return r.Value
	}
	return bits.Extract(r.Bytes, r.Offset+i, bitWidth)
}

// Decoder is a forward-only cursor over a hybrid stream.
type Decoder struct {
	data     []byte
	offset   int
	bitWidth uint
	run      Run
}

// NewDecoder returns a decoder reading values of bitWidth bits from data.
func NewDecoder(data []byte, bitWidth uint) *Decoder {
	d := &Decoder{}
	d.Reset(data, bitWidth)
	return d
}

// Reset repositions d at the beginning of data.
func (d *Decoder) Reset(data []byte, bitWidth uint) {
	*d = Decoder{data: data, bitWidth: bitWidth}
}

// BitWidth returns the bit width of values in the stream.
func (d *Decoder) BitWidth() uint { return d.bitWidth }

// Peek returns the run at the current position, reading the next run
// header when the previous run was consumed. The returned run value is a
// copy; Advance must be called to consume values from it.
func (d *Decoder) Peek() (Run, error) {
	if d.run.Count == 0 {
		if err := d.readRun(); err != nil {
			return Run{}, err
		}
	}
	return d.run, nil
}

// Advance consumes n values of the current run. The caller must not advance
// beyond the count of the run returned by Peek.
func (d *Decoder) Advance(n int) {
	d.run.Count -= n
	d.run.Offset += n
}

// Next decodes the next value.
func (d *Decoder) Next() (uint64, error) {
	run, err := d.Peek()
	if err != nil {
		return 0, err
	}
	v := run.At(0, d.bitWidth)
	d.Advance(1)
	return v, nil
}

// Skip discards the next n values.
func (d *Decoder) Skip(n int) error {
	for n > 0 {
		run, err := d.Peek()
		if err != nil {
			return err
		}
		k := min(n, run.Count)
		d.Advance(k)
		n -= k
	}
	return nil
}

func (d *Decoder) readRun() error {
	if d.bitWidth > 64 {
		return fmt.Errorf("%w: %d", ErrInvalidBitWidth, d.bitWidth)
	}

	for {
		if d.offset >= len(d.data) {
			return ErrTruncated
		}

		u, n := binary.Uvarint(d.data[d.offset:])
		if n <= 0 {
			return fmt.Errorf("decoding RLE run header at offset %d: %w", d.offset, ErrTruncated)
		}
		d.offset += n
		count := u >> 1

		if (u & 1) != 0 {
			size := count * uint64(d.bitWidth)
			remain := uint64(len(d.data) - d.offset)
			values := count * 8

			// Writers are allowed to omit the padding of the last group.
			if size > remain {
				size = remain
				if d.bitWidth != 0 {
					values = (8 * size) / uint64(d.bitWidth)
				}
			}
			values = min(values, maxRunLength)
			if values == 0 {
				if count == 0 {
					continue
				}
				return fmt.Errorf("decoding RLE bit-packed run of %d groups: %w", count, ErrTruncated)
			}

			d.run = Run{
				Packed: true,
				Bytes:  d.data[d.offset : d.offset+int(size)],
				Count:  int(values),
			}
			d.offset += int(size)
		} else {
			size := bits.ByteCount(d.bitWidth)
			if len(d.data)-d.offset < size {
				return fmt.Errorf("decoding RLE repeated value of %d bytes: %w", size, ErrTruncated)
			}

			var buf [8]byte
			copy(buf[:], d.data[d.offset:d.offset+size])
			d.offset += size

			if count == 0 {
				continue
			}
			d.run = Run{
				Value: binary.LittleEndian.Uint64(buf[:]),
				Count: int(min(count, maxRunLength)),
			}
		}
		return nil
	}
}
