package pqdecode

import (
	"encoding/binary"

	"github.com/segmentio/pqdecode/encoding/rle"
	"github.com/segmentio/pqdecode/internal/bits"
)

// slicer produces the raw bytes of the successive non-null values of a page.
//
// Slicers are cursors: values are produced in order, there is no way to seek
// so stateful encodings can only be advanced by decoding their values.
type slicer interface {
	// Returns the bytes of the next value. The slice may be overwritten by
	// the following call.
	next() ([]byte, error)
	// Appends the bytes of the next n values to dst.
	nextSlice(dst []byte, n int) ([]byte, error)
	// Advances the cursor by n values.
	skip(n int) error
	// Estimate of the total size of the values in bytes.
	dataSize() int
}

func appendNext(s slicer, dst []byte, n int) ([]byte, error) {
	for ; n > 0; n-- {
		v, err := s.next()
		if err != nil {
			return dst, err
		}
		dst = append(dst, v...)
	}
	return dst, nil
}

func skipNext(s slicer, n int) error {
	for ; n > 0; n-- {
		if _, err := s.next(); err != nil {
			return err
		}
	}
	return nil
}

func errTruncatedPage(what string, index int) *Error {
	return errLayout("page truncated reading %s value at index %d", what, index)
}

// plainSlicer reads PLAIN encoded fixed size values.
type plainSlicer struct {
	data   []byte
	width  int
	offset int
}

func (s *plainSlicer) next() ([]byte, error) {
	end := s.offset + s.width
	if end > len(s.data) {
		return nil, errTruncatedPage("plain", s.offset/s.width)
	}
	v := s.data[s.offset:end]
	s.offset = end
	return v, nil
}

func (s *plainSlicer) nextSlice(dst []byte, n int) ([]byte, error) {
	end := s.offset + n*s.width
	if end > len(s.data) {
		return dst, errTruncatedPage("plain", len(s.data)/s.width)
	}
	dst = append(dst, s.data[s.offset:end]...)
	s.offset = end
	return dst, nil
}

func (s *plainSlicer) skip(n int) error {
	end := s.offset + n*s.width
	if end > len(s.data) {
		return errTruncatedPage("plain", len(s.data)/s.width)
	}
	s.offset = end
	return nil
}

func (s *plainSlicer) dataSize() int { return len(s.data) }

// plainVarSlicer reads PLAIN encoded BYTE_ARRAY values, each prefixed by its
// length on 4 bytes.
type plainVarSlicer struct {
	data   []byte
	offset int
	index  int
}

func (s *plainVarSlicer) next() ([]byte, error) {
	if len(s.data)-s.offset < 4 {
		return nil, errTruncatedPage("plain byte array", s.index)
	}
	n := binary.LittleEndian.Uint32(s.data[s.offset:])
	start := s.offset + 4
	if uint64(n) > uint64(len(s.data)-start) {
		return nil, errTruncatedPage("plain byte array", s.index)
	}
	end := start + int(n)
	s.offset = end
	s.index++
	return s.data[start:end:end], nil
}

func (s *plainVarSlicer) nextSlice(dst []byte, n int) ([]byte, error) {
	return appendNext(s, dst, n)
}

func (s *plainVarSlicer) skip(n int) error { return skipNext(s, n) }

func (s *plainVarSlicer) dataSize() int { return len(s.data) }

// booleanSlicer reads PLAIN encoded booleans, packed LSB first. Values are
// produced as single bytes of value 0 or 1.
type booleanSlicer struct {
	data  []byte
	index int
	buf   [1]byte
}

func (s *booleanSlicer) next() ([]byte, error) {
	if s.index >= 8*len(s.data) {
		return nil, errTruncatedPage("boolean", s.index)
	}
	s.buf[0] = 0
	if bits.Test(s.data, s.index) {
		s.buf[0] = 1
	}
	s.index++
	return s.buf[:], nil
}

func (s *booleanSlicer) nextSlice(dst []byte, n int) ([]byte, error) {
	if s.index+n > 8*len(s.data) {
		return dst, errTruncatedPage("boolean", 8*len(s.data))
	}
	for end := s.index + n; s.index < end; s.index++ {
		b := byte(0)
		if bits.Test(s.data, s.index) {
			b = 1
		}
		dst = append(dst, b)
	}
	return dst, nil
}

func (s *booleanSlicer) skip(n int) error {
	if s.index+n > 8*len(s.data) {
		return errTruncatedPage("boolean", 8*len(s.data))
	}
	s.index += n
	return nil
}

func (s *booleanSlicer) dataSize() int { return 8 * len(s.data) }

// rleBooleanSlicer reads RLE encoded booleans.
type rleBooleanSlicer struct {
	values rle.Decoder
	count  int
	buf    [1]byte
}

func newRLEBooleanSlicer(data []byte, count int) (*rleBooleanSlicer, error) {
	stream, _, err := rle.LengthPrefixed(data)
	if err != nil {
		return nil, classify(err)
	}
	s := &rleBooleanSlicer{count: count}
	s.values.Reset(stream, 1)
	return s, nil
}

func (s *rleBooleanSlicer) next() ([]byte, error) {
	v, err := s.values.Next()
	if err != nil {
		return nil, classify(err)
	}
	s.buf[0] = byte(v)
	return s.buf[:], nil
}

func (s *rleBooleanSlicer) nextSlice(dst []byte, n int) ([]byte, error) {
	return appendNext(s, dst, n)
}

func (s *rleBooleanSlicer) skip(n int) error {
	if err := s.values.Skip(n); err != nil {
		return classify(err)
	}
	return nil
}

func (s *rleBooleanSlicer) dataSize() int { return s.count }

// convertSlicer applies a conversion to the values of an inner slicer,
// producing values of a fixed width.
type convertSlicer struct {
	inner   slicer
	width   int
	count   int
	convert func(dst, src []byte)
	buf     [16]byte
}

func (s *convertSlicer) next() ([]byte, error) {
	v, err := s.inner.next()
	if err != nil {
		return nil, err
	}
	b := s.buf[:s.width]
	s.convert(b, v)
	return b, nil
}

func (s *convertSlicer) nextSlice(dst []byte, n int) ([]byte, error) {
	return appendNext(s, dst, n)
}

func (s *convertSlicer) skip(n int) error { return s.inner.skip(n) }

func (s *convertSlicer) dataSize() int { return s.count * s.width }

const (
	millisPerDay    = 86400 * 1000
	nanosPerMicros  = 1000
	microsPerMillis = 1000
)

func daysToMillis(dst, src []byte) {
	days := int64(int32(binary.LittleEndian.Uint32(src)))
	binary.LittleEndian.PutUint64(dst, uint64(days*millisPerDay))
}

func nanosToMicros(dst, src []byte) {
	nanos := int64(binary.LittleEndian.Uint64(src))
	binary.LittleEndian.PutUint64(dst, uint64(nanos/nanosPerMicros))
}

func millisToMicros(dst, src []byte) {
	millis := int64(binary.LittleEndian.Uint64(src))
	binary.LittleEndian.PutUint64(dst, uint64(millis*microsPerMillis))
}
