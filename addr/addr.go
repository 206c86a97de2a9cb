// Package addr locates a single bit within the free-block bitmap.
package addr

// Addr names one bit in the bitmap: byte offset within the bitmap slice,
// and bit position (0-7) within that byte.
type Addr struct {
	Byte int
	Bit  uint
}

// Flatbit returns the absolute bit index this address names.
func (a Addr) Flatbit() uint64 {
	return uint64(a.Byte)*8 + uint64(a.Bit)
}

// MkBitAddr locates the n-th bit of a bitmap.
func MkBitAddr(n uint64) Addr {
	return Addr{Byte: int(n / 8), Bit: uint(n % 8)}
}
