// Package snappy implements the SNAPPY parquet compression codec.
//
// Parquet pages are compressed with the snappy block format, not the framed
// stream format.
package snappy

import (
	"github.com/klauspost/compress/snappy"
	"github.com/parquet-go/parquet-go/format"
)

type Codec struct {
}

func (c *Codec) String() string {
	return "SNAPPY"
}

func (c *Codec) CompressionCodec() format.CompressionCodec {
	return format.Snappy
}

func (c *Codec) Decode(dst, src []byte) ([]byte, error) {
	return snappy.Decode(dst[:cap(dst)], src)
}
