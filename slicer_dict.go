package pqdecode

import (
	"github.com/segmentio/pqdecode/encoding/rle"
)

// Dictionary indexes are 32 bits integers.
const maxIndexBitWidth = 32

// newIndexDecoder positions d at the beginning of the indexes of a
// RLE_DICTIONARY data page, which starts with the bit width of the indexes.
func newIndexDecoder(d *rle.Decoder, data []byte) error {
	if len(data) == 0 {
		d.Reset(nil, 0)
		return nil
	}
	bitWidth := uint(data[0])
	if bitWidth > maxIndexBitWidth {
		return errLayout("invalid bit width of dictionary indexes: %d", bitWidth)
	}
	d.Reset(data[1:], bitWidth)
	return nil
}

// dictSlicer resolves the indexes of a RLE_DICTIONARY data page against the
// dictionary of the column chunk.
type dictSlicer struct {
	dict    dictionary
	indexes rle.Decoder
	count   int
}

func newDictSlicer(data []byte, dict dictionary, count int) (*dictSlicer, error) {
	s := &dictSlicer{dict: dict, count: count}
	if err := newIndexDecoder(&s.indexes, data); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *dictSlicer) next() ([]byte, error) {
	i, err := s.indexes.Next()
	if err != nil {
		return nil, classify(err)
	}
	return s.dict.index(i)
}

func (s *dictSlicer) nextSlice(dst []byte, n int) ([]byte, error) {
	for n > 0 {
		run, err := s.indexes.Peek()
		if err != nil {
			return dst, classify(err)
		}
		k := min(n, run.Count)

		if !run.Packed {
			v, err := s.dict.index(run.Value)
			if err != nil {
				return dst, err
			}
			for i := 0; i < k; i++ {
				dst = append(dst, v...)
			}
		} else {
			for i := 0; i < k; i++ {
				v, err := s.dict.index(run.At(i, s.indexes.BitWidth()))
				if err != nil {
					return dst, err
				}
				dst = append(dst, v...)
			}
		}

		s.indexes.Advance(k)
		n -= k
	}
	return dst, nil
}

func (s *dictSlicer) skip(n int) error {
	if err := s.indexes.Skip(n); err != nil {
		return classify(err)
	}
	return nil
}

func (s *dictSlicer) dataSize() int { return s.count * s.dict.avgSize() }
