package pqdecode

import (
	"encoding/binary"
	"slices"
	"unicode/utf16"
	"unicode/utf8"
)

// varLayout is the encoding of variable length values in the data and aux
// buffers of a column.
type varLayout interface {
	// Prepares the buffers of a column chunk to receive n values of a total
	// size estimated to dataSize bytes.
	reserve(bufs *ColumnChunkBuffers, n, dataSize int)
	appendValue(bufs *ColumnChunkBuffers, v []byte) error
	appendNull(bufs *ColumnChunkBuffers)
	// Size of the aux entries written for each value.
	auxEntrySize() int
}

// varSink appends variable length values to the buffers of a column using a
// layout of the destination type.
type varSink struct {
	bufs     *ColumnChunkBuffers
	values   slicer
	layout   varLayout
	startAux int
	rows     int
}

func newVarSink(bufs *ColumnChunkBuffers, values slicer, layout varLayout) *varSink {
	return &varSink{bufs: bufs, values: values, layout: layout}
}

func (s *varSink) reserve(n int) {
	s.layout.reserve(s.bufs, n, s.values.dataSize())
	s.startAux = len(s.bufs.aux)
	s.rows = 0
}

func (s *varSink) push() error {
	v, err := s.values.next()
	if err != nil {
		return err
	}
	if err := s.layout.appendValue(s.bufs, v); err != nil {
		return err
	}
	s.rows++
	return nil
}

func (s *varSink) pushSlice(n int) error {
	for ; n > 0; n-- {
		if err := s.push(); err != nil {
			return err
		}
	}
	return nil
}

func (s *varSink) pushNull() error {
	s.layout.appendNull(s.bufs)
	s.rows++
	return nil
}

func (s *varSink) pushNulls(n int) error {
	for i := 0; i < n; i++ {
		s.layout.appendNull(s.bufs)
	}
	s.rows += n
	return nil
}

func (s *varSink) skip(n int) error { return s.values.skip(n) }

func (s *varSink) result() error {
	if size := len(s.bufs.aux) - s.startAux; size != s.rows*s.layout.auxEntrySize() {
		return errLayout("decoded %d aux bytes for %d values with entries of %d bytes", size, s.rows, s.layout.auxEntrySize())
	}
	return nil
}

const (
	varcharAuxSize    = 16
	varcharInlined    = 1
	varcharASCII      = 2
	varcharNull       = 4
	varcharMaxInlined = 9
	varcharPrefixSize = 6
	varcharMaxLength  = 1<<28 - 1
)

func varcharOffset(entry []byte) uint64 {
	return uint64(binary.LittleEndian.Uint16(entry[10:])) | uint64(binary.LittleEndian.Uint32(entry[12:]))<<16
}

func putVarcharOffset(entry []byte, offset uint64) {
	binary.LittleEndian.PutUint16(entry[10:], uint16(offset))
	binary.LittleEndian.PutUint32(entry[12:], uint32(offset>>16))
}

func isASCII(b []byte) bool {
	for _, c := range b {
		if c >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// varcharLayout writes 16 bytes aux entries per value. Values of up to 9
// bytes are inlined in the aux entry, longer values are appended to the data
// buffer and their 6 first bytes are copied in the aux entry.
type varcharLayout struct{}

func (varcharLayout) auxEntrySize() int { return varcharAuxSize }

func (varcharLayout) reserve(bufs *ColumnChunkBuffers, n, dataSize int) {
	bufs.aux = slices.Grow(bufs.aux, n*varcharAuxSize)
	bufs.data = slices.Grow(bufs.data, dataSize)
}

func (varcharLayout) appendValue(bufs *ColumnChunkBuffers, v []byte) error {
	var entry [varcharAuxSize]byte
	flags := byte(0)
	if isASCII(v) {
		flags = varcharASCII
	}

	if len(v) <= varcharMaxInlined {
		entry[0] = byte(len(v)<<4) | varcharInlined | flags
		copy(entry[1:1+varcharMaxInlined], v)
		putVarcharOffset(entry[:], uint64(len(bufs.data)))
	} else {
		if len(v) > varcharMaxLength {
			return errLayout("varchar value of %d bytes exceeds the maximum length of %d bytes", len(v), varcharMaxLength)
		}
		binary.LittleEndian.PutUint32(entry[:], uint32(len(v))<<4|uint32(flags))
		copy(entry[4:4+varcharPrefixSize], v)
		putVarcharOffset(entry[:], uint64(len(bufs.data)))
		bufs.data = append(bufs.data, v...)
	}

	bufs.aux = append(bufs.aux, entry[:]...)
	return nil
}

func (varcharLayout) appendNull(bufs *ColumnChunkBuffers) {
	var entry [varcharAuxSize]byte
	binary.LittleEndian.PutUint32(entry[:], varcharNull)
	putVarcharOffset(entry[:], uint64(len(bufs.data)))
	bufs.aux = append(bufs.aux, entry[:]...)
}

// appendOffset appends the current size of the data buffer to the aux buffer
// of string and binary columns, which hold rows+1 offsets.
func appendOffset(bufs *ColumnChunkBuffers) {
	bufs.aux = binary.LittleEndian.AppendUint64(bufs.aux, uint64(len(bufs.data)))
}

func reserveOffsets(bufs *ColumnChunkBuffers, n int) {
	bufs.aux = slices.Grow(bufs.aux, 8*(n+1))
	if len(bufs.aux) == 0 {
		appendOffset(bufs)
	}
}

// stringLayout writes values as their count of UTF-16 code units followed by
// the code units.
type stringLayout struct{}

func (stringLayout) auxEntrySize() int { return 8 }

func (stringLayout) reserve(bufs *ColumnChunkBuffers, n, dataSize int) {
	reserveOffsets(bufs, n)
	bufs.data = slices.Grow(bufs.data, 4*n+2*dataSize)
}

func (stringLayout) appendValue(bufs *ColumnChunkBuffers, v []byte) error {
	start := len(bufs.data)
	bufs.data = append(bufs.data, 0, 0, 0, 0)
	count := 0

	for len(v) > 0 {
		r, size := utf8.DecodeRune(v)
		v = v[size:]

		if r >= 0x10000 {
			r1, r2 := utf16.EncodeRune(r)
			bufs.data = binary.LittleEndian.AppendUint16(bufs.data, uint16(r1))
			bufs.data = binary.LittleEndian.AppendUint16(bufs.data, uint16(r2))
			count += 2
		} else {
			bufs.data = binary.LittleEndian.AppendUint16(bufs.data, uint16(r))
			count++
		}
	}

	binary.LittleEndian.PutUint32(bufs.data[start:], uint32(count))
	appendOffset(bufs)
	return nil
}

func (stringLayout) appendNull(bufs *ColumnChunkBuffers) {
	bufs.data = binary.LittleEndian.AppendUint32(bufs.data, 0xFFFFFFFF)
	appendOffset(bufs)
}

// binaryLayout writes values as their length on 8 bytes followed by the
// bytes.
type binaryLayout struct{}

func (binaryLayout) auxEntrySize() int { return 8 }

func (binaryLayout) reserve(bufs *ColumnChunkBuffers, n, dataSize int) {
	reserveOffsets(bufs, n)
	bufs.data = slices.Grow(bufs.data, 8*n+dataSize)
}

func (binaryLayout) appendValue(bufs *ColumnChunkBuffers, v []byte) error {
	bufs.data = binary.LittleEndian.AppendUint64(bufs.data, uint64(len(v)))
	bufs.data = append(bufs.data, v...)
	appendOffset(bufs)
	return nil
}

func (binaryLayout) appendNull(bufs *ColumnChunkBuffers) {
	bufs.data = binary.LittleEndian.AppendUint64(bufs.data, 0xFFFFFFFFFFFFFFFF)
	appendOffset(bufs)
}
