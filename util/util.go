// Package util holds the small arithmetic helpers used by the inode
// layer's file read/write/truncate code.
package util

// RoundUp divides n by sz, rounding up.
func RoundUp(n uint64, sz uint64) uint64 {
	return (n + sz - 1) / sz
}

// Min returns the smaller of n and m.
func Min(n uint64, m uint64) uint64 {
	if n < m {
		return n
	}
	return m
}
