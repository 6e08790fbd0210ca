package pqdecode

import (
	"encoding/binary"

	"github.com/segmentio/pqdecode/encoding/delta"
)

// deltaSlicer reads DELTA_BINARY_PACKED integers, producing values truncated
// to the little-endian width of the destination.
type deltaSlicer struct {
	values delta.BinaryPackedDecoder
	width  int
	buf    [8]byte
}

func newDeltaSlicer(data []byte, width int) (*deltaSlicer, error) {
	s := &deltaSlicer{width: width}
	if err := s.values.Reset(data); err != nil {
		return nil, classify(err)
	}
	return s, nil
}

func (s *deltaSlicer) next() ([]byte, error) {
	v, err := s.values.Next()
	if err != nil {
		return nil, classify(err)
	}
	binary.LittleEndian.PutUint64(s.buf[:], uint64(v))
	return s.buf[:s.width], nil
}

func (s *deltaSlicer) nextSlice(dst []byte, n int) ([]byte, error) {
	return appendNext(s, dst, n)
}

func (s *deltaSlicer) skip(n int) error {
	if err := s.values.Skip(n); err != nil {
		return classify(err)
	}
	return nil
}

func (s *deltaSlicer) dataSize() int { return s.values.Len() * s.width }

type deltaLengthSlicer struct {
	values delta.LengthByteArrayDecoder
}

func newDeltaLengthSlicer(data []byte) (*deltaLengthSlicer, error) {
	s := new(deltaLengthSlicer)
	if err := s.values.Reset(data); err != nil {
		return nil, classify(err)
	}
	return s, nil
}

func (s *deltaLengthSlicer) next() ([]byte, error) {
	v, err := s.values.Next()
	if err != nil {
		return nil, classify(err)
	}
	return v, nil
}

func (s *deltaLengthSlicer) nextSlice(dst []byte, n int) ([]byte, error) {
	return appendNext(s, dst, n)
}

func (s *deltaLengthSlicer) skip(n int) error {
	if err := s.values.Skip(n); err != nil {
		return classify(err)
	}
	return nil
}

func (s *deltaLengthSlicer) dataSize() int { return s.values.TotalSize() }

// deltaByteArraySlicer reconstructs DELTA_BYTE_ARRAY values from the prefix
// of the previous value and their suffix, skipped values are decoded to keep
// the previous value current.
type deltaByteArraySlicer struct {
	values delta.ByteArrayDecoder
}

func newDeltaByteArraySlicer(data []byte) (*deltaByteArraySlicer, error) {
	s := new(deltaByteArraySlicer)
	if err := s.values.Reset(data); err != nil {
		return nil, classify(err)
	}
	return s, nil
}

func (s *deltaByteArraySlicer) next() ([]byte, error) {
	v, err := s.values.Next()
	if err != nil {
		return nil, classify(err)
	}
	return v, nil
}

func (s *deltaByteArraySlicer) nextSlice(dst []byte, n int) ([]byte, error) {
	return appendNext(s, dst, n)
}

func (s *deltaByteArraySlicer) skip(n int) error {
	if err := s.values.Skip(n); err != nil {
		return classify(err)
	}
	return nil
}

func (s *deltaByteArraySlicer) dataSize() int { return s.values.TotalSize() }
