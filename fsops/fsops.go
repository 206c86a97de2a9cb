// Package fsops implements the operation layer: the POSIX-shaped
// operations an adapter calls, built on top of the block allocator
// (bitmap), the inode/directory/file model (inode), and the path
// resolver (pathwalk).
//
// FS is a handle that every operation takes as receiver, Errno values
// are carried the same way common.Errno is defined, and
// github.com/pkg/errors wraps errors at the boundary.
package fsops

import (
	"time"

	"github.com/pkg/errors"

	"github.com/arenafs/arenafs/arena"
	"github.com/arenafs/arenafs/bitmap"
	"github.com/arenafs/arenafs/common"
	"github.com/arenafs/arenafs/inode"
	"github.com/arenafs/arenafs/logging"
)

// FS is a mounted arena: an initialized superblock plus the allocator
// bound to it. Every C5 operation is a method on FS.
type FS struct {
	sb    *arena.Superblock
	alloc *bitmap.Alloc
}

// Mount ensures ar's arena is initialized (formatting it if this is its
// first mount) and returns an FS ready to serve operations. Every
// operation conceptually begins by ensuring initialization; here that
// gate is the FS constructor itself - there is no way to obtain an FS
// without it having run, so every method below can assume it.
func Mount(ar *arena.Arena) (*FS, error) {
	sb, fresh, err := arena.EnsureInitialized(ar)
	if err != nil {
		return nil, err
	}
	alloc := bitmap.New(sb)
	if fresh {
		rootBlk, err := alloc.AllocBlock()
		if err != nil {
			return nil, errors.Wrap(err, "allocating root inode")
		}
		if _, err := inode.Init(sb, rootBlk, common.KindDir, "/", 0, nowNanos()); err != nil {
			return nil, errors.Wrap(err, "formatting root inode")
		}
		sb.SetRootInodeBlock(rootBlk)
		sb.SetMagic()
		logging.DPrintf(1, "fsops: formatted fresh arena, root at block %d\n", rootBlk)
	}
	return &FS{sb: sb, alloc: alloc}, nil
}

func nowNanos() int64 {
	return time.Now().UnixNano()
}

// StatfsResult is statfs's return shape.
type StatfsResult struct {
	BlockSize   uint64
	Blocks      uint64
	BlocksFree  uint64
	BlocksAvail uint64
	NameMax     uint64
}

// Statfs reports block_size, block_count, free_blocks (as both free and
// available, since this filesystem has no reserved-for-root reservation),
// and name_max.
func (fs *FS) Statfs() StatfsResult {
	return StatfsResult{
		BlockSize:   fs.sb.BlockSize(),
		Blocks:      fs.sb.BlockCount(),
		BlocksFree:  fs.sb.FreeBlocks(),
		BlocksAvail: fs.sb.FreeBlocks(),
		NameMax:     common.NameMax,
	}
}
