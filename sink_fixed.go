package pqdecode

import (
	"encoding/binary"
	"math"
	"slices"

	"github.com/segmentio/pqdecode/deprecated"
	"github.com/segmentio/pqdecode/encoding/rle"
)

// fixedSink appends values of a fixed size to the data buffer.
//
// When convert is nil the first width bytes of each value are copied,
// otherwise convert writes the destination value from the source bytes.
type fixedSink struct {
	bufs    *ColumnChunkBuffers
	values  slicer
	width   int
	null    []byte
	convert func(dst, src []byte)
	// The slicer produces values of exactly width bytes that can be copied
	// in bulk.
	bulk  bool
	start int
	rows  int
}

func newCopySink(bufs *ColumnChunkBuffers, values slicer, t ColumnType) *fixedSink {
	return &fixedSink{bufs: bufs, values: values, width: t.Width(), null: t.Null(), bulk: true}
}

func newConvertSink(bufs *ColumnChunkBuffers, values slicer, t ColumnType, convert func(dst, src []byte)) *fixedSink {
	return &fixedSink{bufs: bufs, values: values, width: t.Width(), null: t.Null(), convert: convert}
}

func (s *fixedSink) reserve(n int) {
	s.bufs.data = slices.Grow(s.bufs.data, n*s.width)
	s.start = len(s.bufs.data)
	s.rows = 0
}

func (s *fixedSink) push() error {
	v, err := s.values.next()
	if err != nil {
		return err
	}
	s.append(v)
	s.rows++
	return nil
}

func (s *fixedSink) append(v []byte) {
	if s.convert == nil {
		s.bufs.data = append(s.bufs.data, v[:s.width]...)
		return
	}
	n := len(s.bufs.data)
	s.bufs.data = slices.Grow(s.bufs.data, s.width)[:n+s.width]
	s.convert(s.bufs.data[n:], v)
}

func (s *fixedSink) pushSlice(n int) error {
	if s.bulk {
		data, err := s.values.nextSlice(s.bufs.data, n)
		s.bufs.data = data
		if err != nil {
			return err
		}
		s.rows += n
		return nil
	}
	for ; n > 0; n-- {
		if err := s.push(); err != nil {
			return err
		}
	}
	return nil
}

func (s *fixedSink) pushNull() error {
	s.bufs.data = append(s.bufs.data, s.null...)
	s.rows++
	return nil
}

func (s *fixedSink) pushNulls(n int) error {
	for i := 0; i < n; i++ {
		s.bufs.data = append(s.bufs.data, s.null...)
	}
	s.rows += n
	return nil
}

func (s *fixedSink) skip(n int) error { return s.values.skip(n) }

func (s *fixedSink) result() error {
	if size := len(s.bufs.data) - s.start; size != s.rows*s.width {
		return errLayout("decoded %d bytes for %d values of %d bytes", size, s.rows, s.width)
	}
	return nil
}

// narrowValue converts 32 bits integers to a narrower destination type, the
// Int null is converted to the null of the destination type.
func narrowValue(t ColumnType) func(dst, src []byte) {
	null := t.Null()
	return func(dst, src []byte) {
		if int32(binary.LittleEndian.Uint32(src)) == math.MinInt32 {
			copy(dst, null)
		} else {
			copy(dst, src[:len(dst)])
		}
	}
}

// decimalValue converts fixed point integers of 4 or 8 bytes to doubles.
func decimalValue(scale int) func(dst, src []byte) {
	divisor := math.Pow10(scale)
	return func(dst, src []byte) {
		var v int64
		if len(src) == 4 {
			v = int64(int32(binary.LittleEndian.Uint32(src)))
		} else {
			v = int64(binary.LittleEndian.Uint64(src))
		}
		binary.LittleEndian.PutUint64(dst, math.Float64bits(float64(v)/divisor))
	}
}

// reverseValue copies values with their bytes in the reverse order, parquet
// stores UUIDs in big-endian where the engine stores two little-endian longs.
func reverseValue(dst, src []byte) {
	n := len(dst)
	for i := range dst {
		dst[i] = src[n-1-i]
	}
}

func int96Value(dst, src []byte) {
	binary.LittleEndian.PutUint64(dst, uint64(deprecated.Int96FromBytes(src).UnixMicros()))
}

// symbolSink writes the dictionary indexes of a page as symbol keys, files
// produced by the engine guarantee that local dictionary indexes are global
// symbol keys.
type symbolSink struct {
	bufs    *ColumnChunkBuffers
	indexes rle.Decoder
	start   int
	rows    int
	key     [4]byte
}

func newSymbolSink(bufs *ColumnChunkBuffers, data []byte) (*symbolSink, error) {
	s := &symbolSink{bufs: bufs}
	if err := newIndexDecoder(&s.indexes, data); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *symbolSink) reserve(n int) {
	s.bufs.data = slices.Grow(s.bufs.data, 4*n)
	s.start = len(s.bufs.data)
	s.rows = 0
}

func (s *symbolSink) appendKey(v uint64) {
	binary.LittleEndian.PutUint32(s.key[:], uint32(v))
	s.bufs.data = append(s.bufs.data, s.key[:]...)
}

func (s *symbolSink) push() error { return s.pushSlice(1) }

func (s *symbolSink) pushSlice(n int) error {
	for n > 0 {
		run, err := s.indexes.Peek()
		if err != nil {
			return classify(err)
		}
		k := min(n, run.Count)

		if run.Packed {
			for i := 0; i < k; i++ {
				s.appendKey(run.At(i, s.indexes.BitWidth()))
			}
		} else {
			s.appendKey(run.Value)
			for i := 1; i < k; i++ {
				s.bufs.data = append(s.bufs.data, s.key[:]...)
			}
		}

		s.indexes.Advance(k)
		s.rows += k
		n -= k
	}
	return nil
}

func (s *symbolSink) pushNull() error { return s.pushNulls(1) }

func (s *symbolSink) pushNulls(n int) error {
	for i := 0; i < n; i++ {
		s.bufs.data = append(s.bufs.data, intNull...)
	}
	s.rows += n
	return nil
}

func (s *symbolSink) skip(n int) error {
	if err := s.indexes.Skip(n); err != nil {
		return classify(err)
	}
	return nil
}

func (s *symbolSink) result() error {
	if size := len(s.bufs.data) - s.start; size != 4*s.rows {
		return errLayout("decoded %d bytes for %d symbol keys", size, s.rows)
	}
	return nil
}
