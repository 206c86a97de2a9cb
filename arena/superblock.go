package arena

import (
	"github.com/pkg/errors"
	"github.com/tchajed/marshal"

	"github.com/arenafs/arenafs/common"
)

// superblockBytes is the fixed on-arena width of the superblock record:
// seven 8-byte little-endian fields.
const superblockBytes = 7 * 8

// Superblock is a typed view over the arena's header (superblock +
// bitmap) and its block region. It holds no state beyond slices into the
// arena's own backing array - every field is read from and written
// straight back to the arena, so two Superblock handles obtained from the
// same arena always agree: there is no cached or duplicated state to go
// stale.
type Superblock struct {
	ar *Arena
}

func (sb *Superblock) header() []byte { return sb.ar.bytes[:superblockBytes] }

func (sb *Superblock) field(i int) uint64 {
	dec := marshal.NewDec(sb.header()[i*8 : i*8+8])
	return dec.GetInt()
}

func (sb *Superblock) setField(i int, v uint64) {
	enc := marshal.NewEnc(8)
	enc.PutInt(v)
	copy(sb.header()[i*8:i*8+8], enc.Finish())
}

func (sb *Superblock) Magic() uint64          { return sb.field(0) }
func (sb *Superblock) BlockSize() uint64      { return sb.field(1) }
func (sb *Superblock) BlockCount() uint64     { return sb.field(2) }
func (sb *Superblock) FreeBlocks() uint64     { return sb.field(3) }
func (sb *Superblock) BitmapOffset() uint64   { return sb.field(4) }
func (sb *Superblock) RootInodeBlock() common.Bnum {
	return common.Bnum(sb.field(5))
}
func (sb *Superblock) TotalSize() uint64 { return sb.field(6) }

func (sb *Superblock) SetFreeBlocks(n uint64)           { sb.setField(3, n) }
func (sb *Superblock) SetRootInodeBlock(b common.Bnum)  { sb.setField(5, uint64(b)) }

// SetMagic stamps the sentinel that marks the superblock (and everything
// it describes) consistent. Callers must only call this once every other
// field, the bitmap, and the root inode have been written.
func (sb *Superblock) SetMagic() { sb.setField(0, common.SuperblockMagic) }

// blockRegionStart is the byte offset of block 0, the first byte after the
// header rounded up to a block boundary.
func (sb *Superblock) blockRegionStart() uint64 {
	return roundUp(sb.BitmapOffset()+bitmapBytesFor(sb.BlockCount()), common.BlockSize)
}

// Bitmap returns the free-block bitmap as a slice directly into the
// arena: setting or clearing a bit is visible to every other holder of
// this arena's bytes immediately, since both see the same backing array.
func (sb *Superblock) Bitmap() []byte {
	off := sb.BitmapOffset()
	n := bitmapBytesFor(sb.BlockCount())
	return sb.ar.bytes[off : off+n]
}

// BlockAt returns a BlockSize-byte slice for block i of the block region.
// It panics if i is out of range, which is a programming error (an
// out-of-range Bnum should never have been handed out by the allocator or
// stored on the arena).
func (sb *Superblock) BlockAt(i common.Bnum) []byte {
	if uint64(i) >= sb.BlockCount() {
		panic("arena: block index out of range")
	}
	start := sb.blockRegionStart() + uint64(i)*common.BlockSize
	return sb.ar.bytes[start : start+common.BlockSize]
}

// roundUp rounds n up to the next multiple of sz.
func roundUp(n, sz uint64) uint64 {
	return (n + sz - 1) / sz * sz
}

func bitmapBytesFor(blockCount uint64) uint64 {
	return (blockCount + 7) / 8
}

// computeGeometry solves the mutual dependency between block_count and
// the bitmap's own size: the bitmap must have one bit per block, but its
// size (in the header, before the block region) affects how many blocks
// fit. The fixed point is reached in at most a couple of iterations since
// each iteration can only shrink blockCount (bitmapBytes grows much
// slower than blockCount).
//
// See DESIGN.md for why the block region is taken to start at the next
// 4096-byte boundary after the header rather than at a fixed offset.
func computeGeometry(size uint64) (blockCount uint64, bitmapOffset uint64) {
	bitmapOffset = superblockBytes
	blockCount = (size - superblockBytes) / common.BlockSize
	for {
		regionStart := roundUp(bitmapOffset+bitmapBytesFor(blockCount), common.BlockSize)
		if regionStart >= size {
			if blockCount == 0 {
				break
			}
			blockCount--
			continue
		}
		next := (size - regionStart) / common.BlockSize
		if next == blockCount {
			break
		}
		blockCount = next
	}
	return blockCount, bitmapOffset
}

// EnsureInitialized recognizes or formats an arena. If the arena already
// carries a valid superblock, it is returned immediately with fresh=false
// and no writes. Otherwise the arena is assumed all-zero and its
// superblock, bitmap, and block region are formatted (zeroed, sized, and
// linked up) and fresh=true is returned so the caller can go on to
// allocate and format the root inode (which needs the allocator and
// inode layers this package cannot import without a cycle) before
// calling Superblock.SetMagic to finish initialization. The magic must
// not be set until that root inode exists, so that "magic set" always
// implies "everything else is consistent".
func EnsureInitialized(ar *Arena) (sb *Superblock, fresh bool, err error) {
	sb = &Superblock{ar: ar}
	if sb.Magic() == common.SuperblockMagic {
		return sb, false, nil
	}

	size := uint64(ar.Size())
	blockCount, bitmapOffset := computeGeometry(size)
	if blockCount < 2 {
		return nil, false, errors.Wrapf(common.EFAULT, "arena of %d bytes yields %d usable blocks, need >= 2", size, blockCount)
	}

	sb.setField(1, common.BlockSize)
	sb.setField(2, blockCount)
	sb.setField(4, bitmapOffset)
	sb.setField(6, size)

	for i := range sb.Bitmap() {
		sb.Bitmap()[i] = 0
	}
	for i := sb.blockRegionStart(); i < uint64(len(ar.bytes)); i++ {
		ar.bytes[i] = 0
	}

	sb.SetFreeBlocks(blockCount)
	return sb, true, nil
}
