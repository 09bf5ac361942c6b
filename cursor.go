package zipdir

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
)

// u16 consumes two bytes from the front of *b and returns them as an unsigned little-endian integer.
//
// The caller must have already verified *b holds enough bytes; a short slice panics, since every call site sizes
// its region via the record searches first.
func u16(b *[]byte) uint16 {
	v := binary.LittleEndian.Uint16(*b)
	*b = (*b)[2:]
	return v
}

// u32 consumes four bytes from the front of *b, see u16.
func u32(b *[]byte) uint32 {
	v := binary.LittleEndian.Uint32(*b)
	*b = (*b)[4:]
	return v
}

// u64 consumes eight bytes from the front of *b, see u16.
func u64(b *[]byte) uint64 {
	v := binary.LittleEndian.Uint64(*b)
	*b = (*b)[8:]
	return v
}

// toInt converts a 64-bit length or offset to int, failing with ErrSizeOverflow instead of truncating when the
// value cannot be indexed on this platform (relevant on 32-bit targets).
func toInt(v uint64) (int, error) {
	if v > math.MaxInt {
		return 0, fmt.Errorf("%w: %d does not fit in a %d-bit int", ErrSizeOverflow, v, strconv.IntSize)
	}
	return int(v), nil
}
