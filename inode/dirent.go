package inode

import (
	"github.com/pkg/errors"

	"github.com/arenafs/arenafs/bitmap"
	"github.com/arenafs/arenafs/common"
)

const entriesPerBlock = common.DirentsPerBlock

func direntOffset(slot int) int { return slot * common.DirentSize }

// chainBlocks walks a dirent or extent chain from first, returning every
// block index in order. Directory and file chains are bounded by the
// arena's own block count, so materializing the list is cheap and keeps
// Lookup/Insert/Remove simple - directories are not required to scale
// past what a single process's arena can hold.
func chainBlocks(sb interface{ BlockAt(common.Bnum) []byte }, first common.Bnum) []common.Bnum {
	var blocks []common.Bnum
	for b := first; b != common.NullBnum; {
		blocks = append(blocks, b)
		b = chainNext(sb.BlockAt(b))
	}
	return blocks
}

// Lookup finds name among d's children, returning ENOENT if absent.
func (d *Inode) Lookup(name string) (common.Bnum, error) {
	found := common.NullBnum
	err := d.forEachEntry(func(n string, child common.Bnum, _ common.Bnum, _ int) bool {
		if n == name {
			found = child
			return false
		}
		return true
	})
	if err != nil {
		return 0, err
	}
	if found == common.NullBnum {
		return 0, errors.WithStack(common.ENOENT)
	}
	return found, nil
}

// Iterate yields every (name, child) pair in stored order: insertion
// order, except that Remove moves the last entry into the removed entry's
// slot. Stops early if f returns false.
func (d *Inode) Iterate(f func(name string, child common.Bnum) bool) error {
	return d.forEachEntry(func(n string, child common.Bnum, _ common.Bnum, _ int) bool {
		return f(n, child)
	})
}

// forEachEntry walks the live entries (0..ChildCount()-1) in order,
// calling back with the entry's name, child, the block it lives in, and
// its slot within that block. Stops when cb returns false or entries are
// exhausted.
func (d *Inode) forEachEntry(cb func(name string, child common.Bnum, blk common.Bnum, slot int) bool) error {
	count := d.ChildCount()
	if count == 0 {
		return nil
	}
	blocks := chainBlocks(d.sb, d.TableBlock())
	var i uint64
	for _, blk := range blocks {
		data := d.sb.BlockAt(blk)
		for slot := 0; slot < entriesPerBlock && i < count; slot, i = slot+1, i+1 {
			off := direntOffset(slot)
			nameBytes := data[off : off+common.DirentNameSize]
			n := cstring(nameBytes)
			child := getBnum32(data[off+common.DirentNameSize : off+common.DirentSize])
			if !cb(n, child, blk, slot) {
				return nil
			}
		}
	}
	return nil
}

func cstring(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

// slotFor returns the block and in-block slot index that holds logical
// position pos (0-indexed) within the chain rooted at first, allocating
// and chaining a new block via alloc when grow is true and pos falls
// beyond the chain's current length.
func (d *Inode) slotFor(alloc *bitmap.Alloc, pos uint64, grow bool) (blk common.Bnum, slot int, allocated []common.Bnum, err error) {
	blockIdx := pos / uint64(entriesPerBlock)
	slot = int(pos % uint64(entriesPerBlock))

	first := d.TableBlock()
	if first == common.NullBnum {
		if !grow {
			return 0, 0, nil, errors.WithStack(common.ENOENT)
		}
		nb, e := alloc.AllocBlock()
		if e != nil {
			return 0, 0, nil, e
		}
		allocated = append(allocated, nb)
		d.setTableBlock(nb)
		first = nb
	}

	cur := first
	for step := uint64(0); step < blockIdx; step++ {
		next := chainNext(d.sb.BlockAt(cur))
		if next == common.NullBnum {
			if !grow {
				return 0, 0, allocated, errors.WithStack(common.ENOENT)
			}
			nb, e := alloc.AllocBlock()
			if e != nil {
				return 0, 0, allocated, e
			}
			allocated = append(allocated, nb)
			setChainNext(d.sb.BlockAt(cur), nb)
			next = nb
		}
		cur = next
	}
	return cur, slot, allocated, nil
}

// Insert adds a new (name, child) entry at the end of d's dense dirent
// array, growing the chain if the last block is full. Fails EEXIST if
// name is already present, ENAMETOOLONG if name exceeds the configured
// limit, ENOSPC if no block is free - in which case any block
// this call itself allocated while growing the chain is freed before
// returning, leaving free_blocks exactly as it was at entry.
func (d *Inode) Insert(alloc *bitmap.Alloc, name string, child common.Bnum) error {
	if len(name) > common.NameMax {
		return errors.WithStack(common.ENAMETOOLONG)
	}
	if _, err := d.Lookup(name); err == nil {
		return errors.WithStack(common.EEXIST)
	} else if errno, ok := common.AsErrno(err); !ok || errno != common.ENOENT {
		return err
	}

	pos := d.ChildCount()
	blk, slot, allocated, err := d.slotFor(alloc, pos, true)
	if err != nil {
		for _, b := range allocated {
			alloc.FreeBlock(b)
		}
		return err
	}

	data := d.sb.BlockAt(blk)
	off := direntOffset(slot)
	nameArea := data[off : off+common.DirentNameSize]
	for i := range nameArea {
		nameArea[i] = 0
	}
	copy(nameArea, name)
	putBnum32(data[off+common.DirentNameSize:off+common.DirentSize], child)

	d.setChildCount(pos + 1)
	return nil
}

// Remove deletes name's entry, compacting by moving the dense array's
// last entry into the freed slot, and frees the chain's tail block if
// that move drains it empty.
func (d *Inode) Remove(alloc *bitmap.Alloc, name string) error {
	count := d.ChildCount()
	if count == 0 {
		return errors.WithStack(common.ENOENT)
	}

	var targetBlk common.Bnum
	var targetSlot int
	found := false
	err := d.forEachEntry(func(n string, _ common.Bnum, blk common.Bnum, slot int) bool {
		if n == name {
			targetBlk, targetSlot, found = blk, slot, true
			return false
		}
		return true
	})
	if err != nil {
		return err
	}
	if !found {
		return errors.WithStack(common.ENOENT)
	}

	lastPos := count - 1
	lastBlk, lastSlot, _, err := d.slotFor(alloc, lastPos, false)
	if err != nil {
		return err
	}
	lastData := d.sb.BlockAt(lastBlk)
	lastOff := direntOffset(lastSlot)

	if lastBlk != targetBlk || lastSlot != targetSlot {
		targetData := d.sb.BlockAt(targetBlk)
		targetOff := direntOffset(targetSlot)
		copy(targetData[targetOff:targetOff+common.DirentSize], lastData[lastOff:lastOff+common.DirentSize])
	}
	for i := 0; i < common.DirentSize; i++ {
		lastData[lastOff+i] = 0
	}

	d.setChildCount(lastPos)

	if lastPos%uint64(entriesPerBlock) == 0 {
		d.freeTailBlock(alloc, lastBlk)
	}
	return nil
}

// freeTailBlock unlinks and frees drained, which must be the current last
// block in d's chain, and clears d's table-block pointer if drained was
// also the first (and only) block.
func (d *Inode) freeTailBlock(alloc *bitmap.Alloc, drained common.Bnum) {
	first := d.TableBlock()
	if drained == first {
		d.setTableBlock(common.NullBnum)
		alloc.FreeBlock(drained)
		return
	}
	prev := first
	for {
		next := chainNext(d.sb.BlockAt(prev))
		if next == drained {
			setChainNext(d.sb.BlockAt(prev), common.NullBnum)
			break
		}
		prev = next
	}
	alloc.FreeBlock(drained)
}
