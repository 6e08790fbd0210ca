// Package compress provides the generic APIs implemented by parquet compression
// codecs.
//
// https://github.com/apache/parquet-format/blob/master/Compression.md
package compress

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/parquet-go/parquet-go/format"
)

// The Codec interface represents parquet compression codecs implemented by the
// compress sub-packages.
//
// Codec instances must be safe to use concurrently from multiple goroutines.
type Codec interface {
	// Returns a human-readable name for the codec.
	String() string

	// Returns the code of the compression codec in the parquet format.
	CompressionCodec() format.CompressionCodec

	// Writes the uncompressed version of src to dst and returns it.
	//
	// The capacity of dst is used as a hint of the uncompressed size, the
	// method reallocates the output buffer if it was too small to hold the
	// uncompressed data.
	Decode(dst, src []byte) ([]byte, error)
}

// Reader is implemented by the stream decompressors pooled by Decompressor.
type Reader interface {
	io.Reader
	Reset(io.Reader) error
}

// Decompressor pools the stream readers of codecs which do not expose a block
// decoding API.
type Decompressor struct {
	readers sync.Pool
}

func (d *Decompressor) Decode(dst, src []byte, newReader func(io.Reader) (Reader, error)) ([]byte, error) {
	input := bytes.NewReader(src)

	r, _ := d.readers.Get().(Reader)
	if r != nil {
		if err := r.Reset(input); err != nil {
			return dst, err
		}
	} else {
		var err error
		if r, err = newReader(input); err != nil {
			return dst, err
		}
	}
	defer d.readers.Put(r)

	output := bytes.NewBuffer(dst[:0])
	_, err := output.ReadFrom(r)
	return output.Bytes(), err
}

// Registry maps parquet compression codec codes to their implementation.
type Registry struct {
	codecs map[format.CompressionCodec]Codec
}

func (r *Registry) Register(codec Codec) {
	if r.codecs == nil {
		r.codecs = make(map[format.CompressionCodec]Codec)
	}
	r.codecs[codec.CompressionCodec()] = codec
}

// Lookup returns the codec registered for the given code, or an error if the
// codec is not supported.
func (r *Registry) Lookup(code format.CompressionCodec) (Codec, error) {
	codec, ok := r.codecs[code]
	if !ok {
		return nil, fmt.Errorf("compression codec %s: %w", code, ErrNotSupported)
	}
	return codec, nil
}

// ErrNotSupported is returned by Registry.Lookup for unregistered codecs.
var ErrNotSupported = errors.New("not supported")
