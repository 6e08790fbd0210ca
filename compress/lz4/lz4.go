// Package lz4 implements the LZ4_RAW parquet compression codec, made of a
// single lz4 block without framing.
package lz4

import (
	"github.com/parquet-go/parquet-go/format"
	"github.com/pierrec/lz4/v4"
)

// Upper bound of the expansion of a lz4 block.
const maxExpansion = 512

type Codec struct {
}

func (c *Codec) String() string {
	return "LZ4_RAW"
}

func (c *Codec) CompressionCodec() format.CompressionCodec {
	return format.Lz4Raw
}

func (c *Codec) Decode(dst, src []byte) ([]byte, error) {
	size := cap(dst)
	if size == 0 {
		size = 4 * len(src)
	}
	limit := maxExpansion*len(src) + 1024

	for {
		if cap(dst) < size {
			dst = make([]byte, size)
		}
		n, err := lz4.UncompressBlock(src, dst[:size])
		if err == nil {
			return dst[:n], nil
		}
		if size >= limit {
			return dst[:0], err
		}
		size = min(2*size, limit)
	}
}
