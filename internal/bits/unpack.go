package bits

// Extract returns the index-th word of bitWidth bits packed LSB first in src.
func Extract(src []byte, index int, bitWidth uint) uint64 {
	return extract(src, uint(index)*bitWidth, bitWidth)
}

// Unpack decodes len(dst) little-endian words of bitWidth bits packed LSB
// first in src, returning the number of bytes consumed.
//
// The function panics if src holds fewer than ByteCount(len(dst)*bitWidth)
// bytes; callers validate the length ahead of time to report truncation.
func Unpack(dst []uint64, src []byte, bitWidth uint) int {
	if bitWidth == 0 {
		for i := range dst {
			dst[i] = 0
		}
		return 0
	}

	size := ByteCount(uint(len(dst)) * bitWidth)
	src = src[:size]

	for i := range dst {
		dst[i] = extract(src, uint(i)*bitWidth, bitWidth)
	}
	return size
}

func extract(src []byte, bitOffset, bitWidth uint) uint64 {
	v := uint64(0)

	for n := uint(0); n < bitWidth; {
		shift := bitOffset & 7
		take := 8 - shift
		if take > bitWidth-n {
			take = bitWidth - n
		}
		b := (uint64(src[bitOffset>>3]) >> shift) & (1<<take - 1)
		v |= b << n
		n += take
		bitOffset += take
	}

	return v
}
