// Package bits implements the bit-level helpers used by the page decoders.
package bits

import (
	"math/bits"
)

// BitCount returns the number of bits held by count bytes.
func BitCount(count int) uint {
	return 8 * uint(count)
}

// ByteCount returns the number of bytes needed to hold count bits.
func ByteCount(count uint) int {
	return int((count + 7) / 8)
}

// Test reports whether bit i is set in the LSB-first bitmap.
func Test(bitmap []byte, i int) bool {
	return (bitmap[i>>3]>>(uint(i)&7))&1 != 0
}

// CountOnes returns the number of set bits in the LSB-first bitmap between
// offset (inclusive) and offset+length (exclusive).
func CountOnes(bitmap []byte, offset, length int) int {
	n := 0
	i, end := offset, offset+length

	for i < end && i&7 != 0 {
		if Test(bitmap, i) {
			n++
		}
		i++
	}

	for ; i+64 <= end; i += 64 {
		b := bitmap[i>>3 : (i>>3)+8]
		n += bits.OnesCount64(uint64(b[0]) | uint64(b[1])<<8 | uint64(b[2])<<16 | uint64(b[3])<<24 |
			uint64(b[4])<<32 | uint64(b[5])<<40 | uint64(b[6])<<48 | uint64(b[7])<<56)
	}

	for ; i+8 <= end; i += 8 {
		n += bits.OnesCount8(bitmap[i>>3])
	}

	for ; i < end; i++ {
		if Test(bitmap, i) {
			n++
		}
	}
	return n
}
