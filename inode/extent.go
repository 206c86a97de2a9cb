package inode

import (
	"github.com/pkg/errors"

	"github.com/arenafs/arenafs/bitmap"
	"github.com/arenafs/arenafs/common"
	"github.com/arenafs/arenafs/util"
)

const extentSlotsPerBlock = common.ExtentSlotsPerBlock

func extentSlotOffset(slot int) int { return slot * 8 }

// extentTableBlockFor returns the extent-table block holding the slot for
// logical data-block index lidx, allocating and chaining table blocks via
// alloc as needed when grow is true. This only ever grows the *table*
// chain; it never allocates the data block itself, so holes fall out
// naturally as absent slots - a newly allocated table block is
// zero-filled, i.e. every slot in it starts as a hole.
func (f *Inode) extentTableBlockFor(alloc *bitmap.Alloc, lidx uint64, grow bool) (tblk common.Bnum, slot int, allocated []common.Bnum, err error) {
	chainIdx := lidx / uint64(extentSlotsPerBlock)
	slot = int(lidx % uint64(extentSlotsPerBlock))

	first := f.TableBlock()
	if first == common.NullBnum {
		if !grow {
			return 0, 0, nil, nil
		}
		nb, e := alloc.AllocBlock()
		if e != nil {
			return 0, 0, nil, e
		}
		allocated = append(allocated, nb)
		f.setTableBlock(nb)
		first = nb
	}

	cur := first
	for step := uint64(0); step < chainIdx; step++ {
		next := chainNext(f.sb.BlockAt(cur))
		if next == common.NullBnum {
			if !grow {
				return 0, 0, allocated, nil
			}
			nb, e := alloc.AllocBlock()
			if e != nil {
				return 0, 0, allocated, e
			}
			allocated = append(allocated, nb)
			setChainNext(f.sb.BlockAt(cur), nb)
			next = nb
		}
		cur = next
	}
	return cur, slot, allocated, nil
}

// dataBlockFor returns the data block index stored for logical block
// lidx, or NullBnum if it's a hole (including the case where the extent
// table itself doesn't reach that far yet).
func (f *Inode) dataBlockFor(lidx uint64) common.Bnum {
	tblk, slot, _, _ := f.extentTableBlockFor(nil, lidx, false)
	if tblk == common.NullBnum {
		return common.NullBnum
	}
	data := f.sb.BlockAt(tblk)
	off := extentSlotOffset(slot)
	return common.Bnum(getU64(data[off : off+8]))
}

// Read copies up to len(dst) bytes starting at offset into dst, returning
// the number of bytes actually copied. Reads past EOF return fewer bytes
// than requested rather than an error; holes read as zeros.
func (f *Inode) Read(offset uint64, dst []byte) int {
	size := f.Size()
	if offset >= size {
		return 0
	}
	n := util.Min(uint64(len(dst)), size-offset)
	var done uint64
	for done < n {
		lidx := (offset + done) / common.BlockSize
		inBlk := (offset + done) % common.BlockSize
		chunk := util.Min(common.BlockSize-inBlk, n-done)

		blk := f.dataBlockFor(lidx)
		if blk == common.NullBnum {
			for i := uint64(0); i < chunk; i++ {
				dst[done+i] = 0
			}
		} else {
			copy(dst[done:done+chunk], f.sb.BlockAt(blk)[inBlk:inBlk+chunk])
		}
		done += chunk
	}
	return int(n)
}

// Write copies src into the file starting at offset, growing the extent
// table and allocating data blocks as needed, and grows the logical size
// if the write extends past it. Any gap between the old size and offset
// is left as holes. On ENOSPC partway through, every block
// this call allocated (table or data) is unlinked from the file's table
// chain and freed before returning, leaving free_blocks exactly as it was
// at entry and the file's logical size untouched. Bytes already copied
// into blocks the file held before the call keep their new contents.
func (f *Inode) Write(alloc *bitmap.Alloc, offset uint64, src []byte) (int, error) {
	var allocated []common.Bnum
	rollback := func() {
		isNew := map[common.Bnum]bool{}
		for _, b := range allocated {
			isNew[b] = true
		}
		if isNew[f.TableBlock()] {
			f.setTableBlock(common.NullBnum)
		}
		// Clear every extent slot and chain link that points at a new block.
		for _, tblk := range chainBlocks(f.sb, f.TableBlock()) {
			tdata := f.sb.BlockAt(tblk)
			for off := 0; off < int(common.BlockSize); off += 8 {
				if isNew[common.Bnum(getU64(tdata[off:off+8]))] {
					putU64(tdata[off:off+8], 0)
				}
			}
		}
		for _, b := range allocated {
			alloc.FreeBlock(b)
		}
	}

	var done uint64
	n := uint64(len(src))
	for done < n {
		lidx := (offset + done) / common.BlockSize
		inBlk := (offset + done) % common.BlockSize
		chunk := util.Min(common.BlockSize-inBlk, n-done)

		tblk, slot, newTableBlocks, err := f.extentTableBlockFor(alloc, lidx, true)
		allocated = append(allocated, newTableBlocks...)
		if err != nil {
			rollback()
			return 0, err
		}
		tdata := f.sb.BlockAt(tblk)
		off := extentSlotOffset(slot)
		dblk := common.Bnum(getU64(tdata[off : off+8]))
		if dblk == common.NullBnum {
			nb, err := alloc.AllocBlock()
			if err != nil {
				rollback()
				return 0, err
			}
			allocated = append(allocated, nb)
			putU64(tdata[off:off+8], uint64(nb))
			dblk = nb
		}
		copy(f.sb.BlockAt(dblk)[inBlk:inBlk+chunk], src[done:done+chunk])
		done += chunk
	}

	if offset+n > f.Size() {
		f.SetSize(offset + n)
	}
	return int(n), nil
}

// Truncate resizes the file to newSize. Shrinking frees every data block
// whose entire byte range falls at or past newSize and zeroes the tail of
// the last retained block; growing only changes the logical size, never
// eagerly allocating blocks for the new hole.
func (f *Inode) Truncate(alloc *bitmap.Alloc, newSize uint64) {
	oldSize := f.Size()
	if newSize >= oldSize {
		f.SetSize(newSize)
		return
	}

	firstFreedIdx := util.RoundUp(newSize, common.BlockSize)
	lastIdx := (oldSize + common.BlockSize - 1) / common.BlockSize
	for lidx := firstFreedIdx; lidx < lastIdx; lidx++ {
		tblk, slot, _, _ := f.extentTableBlockFor(alloc, lidx, false)
		if tblk == common.NullBnum {
			continue
		}
		tdata := f.sb.BlockAt(tblk)
		off := extentSlotOffset(slot)
		dblk := common.Bnum(getU64(tdata[off : off+8]))
		if dblk != common.NullBnum {
			alloc.FreeBlock(dblk)
			putU64(tdata[off:off+8], 0)
		}
	}

	if newSize%common.BlockSize != 0 {
		lidx := newSize / common.BlockSize
		if blk := f.dataBlockFor(lidx); blk != common.NullBnum {
			data := f.sb.BlockAt(blk)
			tailStart := newSize % common.BlockSize
			for i := tailStart; i < common.BlockSize; i++ {
				data[i] = 0
			}
		}
	}

	f.SetSize(newSize)
}

// FreeAll releases every data block and every extent-table block
// belonging to f, for unlink.
func (f *Inode) FreeAll(alloc *bitmap.Alloc) {
	for _, tblk := range chainBlocks(f.sb, f.TableBlock()) {
		tdata := f.sb.BlockAt(tblk)
		for slot := 0; slot < extentSlotsPerBlock; slot++ {
			off := extentSlotOffset(slot)
			if dblk := common.Bnum(getU64(tdata[off : off+8])); dblk != common.NullBnum {
				alloc.FreeBlock(dblk)
			}
		}
		alloc.FreeBlock(tblk)
	}
	f.setTableBlock(common.NullBnum)
}

// FreeDirentTable releases the (assumed empty) dirent-table chain
// belonging to a directory, for rmdir. It is a programming error to call
// this on a non-empty directory.
func (d *Inode) FreeDirentTable(alloc *bitmap.Alloc) {
	if d.ChildCount() != 0 {
		panic(errors.Errorf("inode: FreeDirentTable on non-empty directory %d", d.Blk))
	}
	for _, blk := range chainBlocks(d.sb, d.TableBlock()) {
		alloc.FreeBlock(blk)
	}
	d.setTableBlock(common.NullBnum)
}
