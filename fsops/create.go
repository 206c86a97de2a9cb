package fsops

import (
	"github.com/arenafs/arenafs/common"
	"github.com/arenafs/arenafs/inode"
	"github.com/arenafs/arenafs/pathwalk"
)

// Mknod creates an empty file at path, owned by uid. Fails ENOENT/ENOTDIR
// if path's parent doesn't resolve, EEXIST if the name is already taken,
// ENAMETOOLONG if the final component is too long, or ENOSPC if no block
// is free for the new inode. On ENOSPC after the inode block was
// allocated but before it could be linked into the parent, that block is
// freed before returning.
func (fs *FS) Mknod(path string, uid uint64) error {
	return fs.create(path, uid, common.KindFile)
}

// Mkdir is as Mknod, but formats a directory inode. Linking it into the
// parent via Insert is what updates the parent's child count - there is
// no separate subdirectory counter.
func (fs *FS) Mkdir(path string, uid uint64) error {
	return fs.create(path, uid, common.KindDir)
}

func (fs *FS) create(path string, uid uint64, kind common.InodeKind) error {
	parent, name, err := pathwalk.ResolveParent(fs.sb, path)
	if err != nil {
		return err
	}
	parentDir := inode.Open(fs.sb, parent)

	if _, err := parentDir.Lookup(name); err == nil {
		return errExist()
	} else if errno, ok := common.AsErrno(err); !ok || errno != common.ENOENT {
		return err
	}

	blk, err := fs.alloc.AllocBlock()
	if err != nil {
		return err
	}
	now := nowNanos()
	if _, err := inode.Init(fs.sb, blk, kind, name, uid, now); err != nil {
		fs.alloc.FreeBlock(blk)
		return err
	}
	if err := parentDir.Insert(fs.alloc, name, blk); err != nil {
		fs.alloc.FreeBlock(blk)
		return err
	}
	parentDir.SetMtime(now)
	return nil
}
