package pqdecode

import (
	"github.com/segmentio/pqdecode/compress"
	"github.com/segmentio/pqdecode/compress/brotli"
	"github.com/segmentio/pqdecode/compress/gzip"
	"github.com/segmentio/pqdecode/compress/lz4"
	"github.com/segmentio/pqdecode/compress/snappy"
	"github.com/segmentio/pqdecode/compress/uncompressed"
	"github.com/segmentio/pqdecode/compress/zstd"
)

// compressionCodecs holds the codecs of the page compressions supported by
// the decoder. LZO and the legacy framing of LZ4 are not supported.
var compressionCodecs compress.Registry

func init() {
	for _, codec := range []compress.Codec{
		new(uncompressed.Codec),
		new(snappy.Codec),
		new(gzip.Codec),
		new(brotli.Codec),
		new(zstd.Codec),
		new(lz4.Codec),
	} {
		compressionCodecs.Register(codec)
	}
}
