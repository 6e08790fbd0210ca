package pqdecode

import (
	"github.com/parquet-go/parquet-go/format"

	"github.com/segmentio/pqdecode/encoding/rle"
)

// dataPage is a data page split into its definition levels and values.
type dataPage struct {
	encoding  format.Encoding
	numValues int
	levels    []byte
	values    []byte
	// Page relative selected rows, nil when all rows are decoded.
	selected []Interval
}

func newDataPage(info *columnInfo, p page) (*dataPage, error) {
	switch p.header.Type {
	case format.DataPage:
		h := p.header.DataPageHeader
		if h.NumValues < 0 {
			return nil, errLayout("invalid number of values in data page: %d", h.NumValues)
		}
		dp := &dataPage{encoding: h.Encoding, numValues: int(h.NumValues), values: p.data}
		if info.maxDefinitionLevel > 0 {
			if h.DefinitionLevelEncoding != format.RLE {
				return nil, errUnsupported("unsupported encoding of definition levels: %s", h.DefinitionLevelEncoding)
			}
			levels, values, err := rle.LengthPrefixed(p.data)
			if err != nil {
				return nil, classify(err)
			}
			dp.levels, dp.values = levels, values
		}
		return dp, nil

	default:
		h := p.header.DataPageHeaderV2
		if h.NumValues < 0 {
			return nil, errLayout("invalid number of values in data page: %d", h.NumValues)
		}
		dp := &dataPage{encoding: h.Encoding, numValues: int(h.NumValues), values: p.data}
		if info.maxDefinitionLevel > 0 {
			dp.levels = p.levels[h.RepetitionLevelsByteLength:]
		}
		return dp, nil
	}
}

// decodePage appends the values of a data page to bufs, returning the number
// of rows appended.
func decodePage(page *dataPage, dict *dictionaryPage, info *columnInfo, t ColumnType, bufs *ColumnChunkBuffers) (int, error) {
	s, err := newPageSink(page, dict, info, t, bufs)
	if err != nil {
		return 0, err
	}
	return drive(s, page.levels, page.numValues, page.selected)
}
