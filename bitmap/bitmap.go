// Package bitmap implements the block allocator: a single free-block
// bitmap living in the arena's header region, scanned lowest-bit-first so
// that freeing a block makes it the next one reused (deterministic,
// rather than a rotating allocation hint meant to spread writes across a
// disk for concurrent allocators).
package bitmap

import (
	"github.com/pkg/errors"

	"github.com/arenafs/arenafs/addr"
	"github.com/arenafs/arenafs/arena"
	"github.com/arenafs/arenafs/common"
)

// Alloc is a handle onto one superblock's free-block bitmap. It carries
// no state of its own - every call re-derives what it needs from the
// arena.
type Alloc struct {
	sb *arena.Superblock
}

func New(sb *arena.Superblock) *Alloc {
	return &Alloc{sb: sb}
}

// AllocBlock scans the bitmap for the lowest-indexed free block, marks it
// allocated, zero-fills it, decrements free_blocks, and returns its
// index. It fails with ENOSPC if every block is taken.
func (a *Alloc) AllocBlock() (common.Bnum, error) {
	bm := a.sb.Bitmap()
	count := a.sb.BlockCount()

	for byteIdx := 0; byteIdx < len(bm); byteIdx++ {
		if bm[byteIdx] == 0xff {
			continue
		}
		for bit := uint(0); bit < 8; bit++ {
			at := addr.Addr{Byte: byteIdx, Bit: bit}
			n := at.Flatbit()
			if n >= count {
				break
			}
			if bm[byteIdx]&(1<<bit) == 0 {
				bm[byteIdx] |= 1 << bit
				a.sb.SetFreeBlocks(a.sb.FreeBlocks() - 1)
				blk := common.Bnum(n)
				zero(a.sb.BlockAt(blk))
				return blk, nil
			}
		}
	}
	return 0, errors.WithStack(common.ENOSPC)
}

// FreeBlock clears block i's bit, zero-fills it, and increments
// free_blocks. Freeing an already-free block is a programming error, so
// it panics instead of silently corrupting free_blocks.
func (a *Alloc) FreeBlock(i common.Bnum) {
	bm := a.sb.Bitmap()
	at := addr.MkBitAddr(uint64(i))
	if bm[at.Byte]&(1<<at.Bit) == 0 {
		panic(errors.Errorf("bitmap: double free of block %d", i))
	}
	bm[at.Byte] &^= 1 << at.Bit
	a.sb.SetFreeBlocks(a.sb.FreeBlocks() + 1)
	zero(a.sb.BlockAt(i))
}

// NumFree reports the bitmap's own count of free blocks.
func (a *Alloc) NumFree() uint64 {
	return a.sb.FreeBlocks()
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
