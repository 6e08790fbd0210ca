//go:build unix

package mmap

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

func mapFile(f *os.File, size int64) (*File, error) {
	if int64(int(size)) != size {
		return nil, fmt.Errorf("mmap: file of %d bytes is too large to be mapped", size)
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap: %s: %w", f.Name(), err)
	}
	return &File{data: data, unmap: unix.Munmap}, nil
}
