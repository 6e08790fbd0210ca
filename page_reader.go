package pqdecode

import (
	"bufio"
	"errors"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/parquet-go/parquet-go/format"
	"github.com/segmentio/encoding/thrift"

	"github.com/segmentio/pqdecode/compress"
)

// pageReader reads the pages of a column chunk in file order.
type pageReader struct {
	section  io.SectionReader
	buffer   *bufio.Reader
	protocol thrift.CompactProtocol
	decoder  thrift.Decoder

	codec           compress.Codec
	verifyChecksums bool
	numValues       int64
	readValues      int64

	header       format.PageHeader
	compressed   []byte
	decompressed []byte
}

// reset positions r at the first page of the column chunk described by meta.
func (r *pageReader) reset(file io.ReaderAt, fileSize int64, meta *format.ColumnMetaData, config *DecoderConfig) error {
	offset := meta.DataPageOffset
	if meta.DictionaryPageOffset > 0 && meta.DictionaryPageOffset < offset {
		offset = meta.DictionaryPageOffset
	}
	length := meta.TotalCompressedSize

	if offset < 0 || length < 0 || offset > fileSize || length > fileSize-offset {
		return errLayout("column chunk of %d bytes at offset %d overflows the file of %d bytes", length, offset, fileSize)
	}

	codec, err := compressionCodecs.Lookup(meta.Codec)
	if err != nil {
		return &Error{Kind: Unsupported, Message: "column chunk compression", Err: err}
	}

	r.section = *io.NewSectionReader(file, offset, length)
	if r.buffer == nil {
		r.buffer = bufio.NewReaderSize(&r.section, config.ReadBufferSize)
	} else {
		r.buffer.Reset(&r.section)
	}
	r.decoder.Reset(r.protocol.NewReader(r.buffer))
	r.codec = codec
	r.verifyChecksums = config.VerifyChecksums
	r.numValues = meta.NumValues
	r.readValues = 0
	return nil
}

// remaining returns the number of bytes of the column chunk that were not
// consumed yet.
func (r *pageReader) remaining() int64 {
	pos, _ := r.section.Seek(0, io.SeekCurrent)
	return r.section.Size() - pos + int64(r.buffer.Buffered())
}

// page is a page of a column chunk, the slices are only valid until the next
// call to next.
type page struct {
	header *format.PageHeader
	// The repetition and definition levels of data pages v2, which are never
	// compressed.
	levels []byte
	// The decompressed content of the page, after the levels for pages v2.
	data []byte
}

// next reads the next page of the column chunk. It returns io.EOF after the
// last page.
func (r *pageReader) next() (page, error) {
	if r.numValues > 0 && r.readValues >= r.numValues {
		return page{}, io.EOF
	}

	r.header = format.PageHeader{}
	if err := r.decoder.Decode(&r.header); err != nil {
		if errors.Is(err, io.EOF) {
			return page{}, io.EOF
		}
		if isIOError(err) && !errors.Is(err, io.ErrUnexpectedEOF) {
			return page{}, errIO(err, "reading page header")
		}
		return page{}, &Error{Kind: Layout, Message: "decoding page header", Err: err}
	}

	h := &r.header
	if h.CompressedPageSize < 0 || h.UncompressedPageSize < 0 {
		return page{}, errLayout("invalid page sizes: compressed=%d uncompressed=%d", h.CompressedPageSize, h.UncompressedPageSize)
	}

	if remaining := r.remaining(); int64(h.CompressedPageSize) > remaining {
		return page{}, errLayout("page of %d bytes overflows the %d bytes left in the column chunk", h.CompressedPageSize, remaining)
	}

	r.compressed = resizeBuffer(r.compressed, int(h.CompressedPageSize))
	if n, err := io.ReadFull(r.buffer, r.compressed); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return page{}, errLayout("page truncated after %d/%d bytes", n, h.CompressedPageSize)
		}
		return page{}, errIO(err, "reading %d bytes of page data", h.CompressedPageSize)
	}

	if r.verifyChecksums && h.CRC != 0 {
		if sum := crc32.ChecksumIEEE(r.compressed); sum != uint32(h.CRC) {
			return page{}, errLayout("corrupted page: crc32 checksum mismatch: 0x%08X != 0x%08X", uint32(h.CRC), sum)
		}
	}

	switch h.Type {
	case format.DictionaryPage:
		if h.DictionaryPageHeader == nil {
			return page{}, errLayout("dictionary page without a dictionary page header")
		}
		data, err := r.decompress(r.compressed, int(h.UncompressedPageSize), true)
		return page{header: h, data: data}, err

	case format.DataPage:
		if h.DataPageHeader == nil {
			return page{}, errLayout("data page without a data page header")
		}
		r.readValues += int64(h.DataPageHeader.NumValues)
		data, err := r.decompress(r.compressed, int(h.UncompressedPageSize), true)
		return page{header: h, data: data}, err

	case format.DataPageV2:
		v2 := h.DataPageHeaderV2
		if v2 == nil {
			return page{}, errLayout("data page v2 without a data page header")
		}
		levelsSize := int64(v2.RepetitionLevelsByteLength) + int64(v2.DefinitionLevelsByteLength)
		if v2.RepetitionLevelsByteLength < 0 || v2.DefinitionLevelsByteLength < 0 || levelsSize > int64(len(r.compressed)) {
			return page{}, errLayout("levels of %d bytes overflow the page of %d bytes", levelsSize, len(r.compressed))
		}
		r.readValues += int64(v2.NumValues)
		compressed := v2.IsCompressed == nil || *v2.IsCompressed
		data, err := r.decompress(r.compressed[levelsSize:], int(h.UncompressedPageSize)-int(levelsSize), compressed)
		return page{header: h, levels: r.compressed[:levelsSize], data: data}, err

	default:
		// Index pages and pages of unknown types carry no values.
		return page{header: h}, nil
	}
}

func (r *pageReader) decompress(src []byte, size int, compressed bool) ([]byte, error) {
	if !compressed || r.codec.CompressionCodec() == format.Uncompressed {
		return src, nil
	}
	if size < 0 {
		return nil, errLayout("invalid uncompressed page size %d", size)
	}
	if cap(r.decompressed) < size {
		r.decompressed = make([]byte, 0, size)
	}
	data, err := r.codec.Decode(r.decompressed[:0], src)
	if err != nil {
		return nil, &Error{Kind: Layout, Message: fmt.Sprintf("decompressing %s page", r.codec), Err: err}
	}
	if len(data) != size {
		return nil, errLayout("decompressed %s page of %d bytes instead of %d", r.codec, len(data), size)
	}
	r.decompressed = data
	return data, nil
}

func resizeBuffer(buf []byte, size int) []byte {
	if cap(buf) < size {
		return make([]byte, size)
	}
	return buf[:size]
}
