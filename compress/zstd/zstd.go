// Package zstd implements the ZSTD parquet compression codec.
package zstd

import (
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/parquet-go/parquet-go/format"
)

const (
	DefaultConcurrency = 1
)

type Codec struct {
	// Number of goroutines used by each call to Decode, zero means
	// DefaultConcurrency.
	Concurrency int

	once    sync.Once
	decoder *zstd.Decoder
	err     error
}

func (c *Codec) String() string {
	return "ZSTD"
}

func (c *Codec) CompressionCodec() format.CompressionCodec {
	return format.Zstd
}

func (c *Codec) Decode(dst, src []byte) ([]byte, error) {
	c.once.Do(func() {
		c.decoder, c.err = zstd.NewReader(nil,
			zstd.WithDecoderConcurrency(c.concurrency()),
		)
	})
	if c.err != nil {
		return dst[:0], c.err
	}
	return c.decoder.DecodeAll(src, dst[:0])
}

func (c *Codec) concurrency() int {
	if c.Concurrency != 0 {
		return c.Concurrency
	}
	return DefaultConcurrency
}
