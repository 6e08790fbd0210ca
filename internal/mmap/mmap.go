// Package mmap exposes read-only memory mappings of files as io.ReaderAt.
package mmap

import (
	"errors"
	"io"
	"os"
)

var errClosed = errors.New("mmap: read from closed file")

// File is a read-only view of the content of a file.
type File struct {
	data  []byte
	unmap func([]byte) error
}

// Open maps the file at path in memory. On platforms without memory mappings
// the content of the file is read into a heap allocated buffer.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.Size() == 0 {
		return &File{data: []byte{}}, nil
	}
	return mapFile(f, info.Size())
}

// Size returns the size of the mapped file.
func (f *File) Size() int64 { return int64(len(f.data)) }

// ReadAt implements io.ReaderAt.
func (f *File) ReadAt(b []byte, off int64) (int, error) {
	if f.data == nil {
		return 0, errClosed
	}
	if off < 0 {
		return 0, os.ErrInvalid
	}
	if off >= int64(len(f.data)) {
		return 0, io.EOF
	}
	n := copy(b, f.data[off:])
	if n < len(b) {
		return n, io.EOF
	}
	return n, nil
}

// Close releases the mapping. Reading from f after Close returns an error.
func (f *File) Close() error {
	data := f.data
	f.data = nil
	if f.unmap == nil || data == nil {
		return nil
	}
	return f.unmap(data)
}
