package pqdecode

import (
	"encoding/binary"
)

// dictionary is a random access table of values built from a dictionary page.
type dictionary interface {
	// Number of entries in the dictionary.
	len() int
	// Returns the bytes of the entry at index i.
	index(i uint64) ([]byte, error)
	// Average size of the entries in bytes.
	avgSize() int
}

type fixedDictionary struct {
	data  []byte
	width int
	count int
}

func newFixedDictionary(data []byte, count, width int) (*fixedDictionary, error) {
	if size := uint64(count) * uint64(width); size > uint64(len(data)) {
		return nil, errLayout("dictionary page of %d values of %d bytes does not fit in %d bytes", count, width, len(data))
	}
	return &fixedDictionary{data: data, width: width, count: count}, nil
}

func (d *fixedDictionary) len() int { return d.count }

func (d *fixedDictionary) avgSize() int { return d.width }

func (d *fixedDictionary) index(i uint64) ([]byte, error) {
	if i >= uint64(d.count) {
		return nil, errLayout("dictionary index %d out of range of %d entries", i, d.count)
	}
	j := int(i) * d.width
	return d.data[j : j+d.width : j+d.width], nil
}

// varDictionary holds the entries of a BYTE_ARRAY dictionary page, an offset
// index is built on construction since the entries are length-prefixed.
type varDictionary struct {
	data    []byte
	offsets []uint32
}

func newVarDictionary(data []byte, count int) (*varDictionary, error) {
	if count < 0 {
		return nil, errLayout("dictionary page with negative number of values %d", count)
	}
	// Each entry holds at least its 4 bytes length prefix.
	offsets := make([]uint32, 0, 2*min(count, len(data)/4))
	offset := 0

	for i := 0; i < count; i++ {
		if len(data)-offset < 4 {
			return nil, errLayout("dictionary page truncated reading the length of value %d of %d", i, count)
		}
		n := binary.LittleEndian.Uint32(data[offset:])
		offset += 4
		if uint64(n) > uint64(len(data)-offset) {
			return nil, errLayout("dictionary page truncated reading value %d of %d bytes", i, n)
		}
		offsets = append(offsets, uint32(offset), uint32(offset)+n)
		offset += int(n)
	}

	return &varDictionary{data: data, offsets: offsets}, nil
}

func (d *varDictionary) len() int { return len(d.offsets) / 2 }

func (d *varDictionary) avgSize() int {
	if n := d.len(); n > 0 {
		return int(d.offsets[len(d.offsets)-1]-d.offsets[0]) / n
	}
	return 0
}

func (d *varDictionary) index(i uint64) ([]byte, error) {
	if i >= uint64(d.len()) {
		return nil, errLayout("dictionary index %d out of range of %d entries", i, d.len())
	}
	j, k := d.offsets[2*i], d.offsets[2*i+1]
	return d.data[j:k:k], nil
}

// dictionaryPage is the most recent dictionary page of a column chunk. The
// tables are built on first use and reused by the following data pages.
type dictionaryPage struct {
	data      []byte
	numValues int
	fixed     map[int]*fixedDictionary
	variable  *varDictionary
}

func (p *dictionaryPage) reset(data []byte, numValues int) {
	p.data = append(p.data[:0], data...)
	p.numValues = numValues
	p.variable = nil
	for width := range p.fixed {
		delete(p.fixed, width)
	}
}

func (p *dictionaryPage) fixedDictionary(width int) (dictionary, error) {
	if d := p.fixed[width]; d != nil {
		return d, nil
	}
	d, err := newFixedDictionary(p.data, p.numValues, width)
	if err != nil {
		return nil, err
	}
	if p.fixed == nil {
		p.fixed = make(map[int]*fixedDictionary)
	}
	p.fixed[width] = d
	return d, nil
}

func (p *dictionaryPage) varDictionary() (dictionary, error) {
	if p.variable == nil {
		d, err := newVarDictionary(p.data, p.numValues)
		if err != nil {
			return nil, err
		}
		p.variable = d
	}
	return p.variable, nil
}
