package fsops

import (
	"github.com/arenafs/arenafs/inode"
	"github.com/arenafs/arenafs/pathwalk"
)

// Unlink removes a file's directory entry and frees its inode and data
// blocks. Fails ENOENT if path doesn't exist, EISDIR if it names a
// directory.
func (fs *FS) Unlink(path string) error {
	parent, name, err := pathwalk.ResolveParent(fs.sb, path)
	if err != nil {
		return err
	}
	parentDir := inode.Open(fs.sb, parent)

	childBlk, err := parentDir.Lookup(name)
	if err != nil {
		return err
	}
	target := inode.Open(fs.sb, childBlk)
	if target.IsDir() {
		return errIsDir()
	}

	target.FreeAll(fs.alloc)
	if err := parentDir.Remove(fs.alloc, name); err != nil {
		return err
	}
	fs.alloc.FreeBlock(childBlk)
	parentDir.SetMtime(nowNanos())
	return nil
}

// Rmdir removes an empty, non-root directory. Fails ENOENT if path
// doesn't exist, ENOTDIR if it names a file, EBUSY if it is the root,
// ENOTEMPTY if it has any children. EBUSY is checked before ENOTEMPTY:
// rmdir on the root always fails EBUSY regardless of whether the root
// happens to be empty.
func (fs *FS) Rmdir(path string) error {
	target, err := pathwalk.Resolve(fs.sb, path)
	if err != nil {
		return err
	}
	targetDir := inode.Open(fs.sb, target)
	if !targetDir.IsDir() {
		return errNotDir()
	}
	if target == fs.sb.RootInodeBlock() {
		return errBusy()
	}
	if targetDir.ChildCount() != 0 {
		return errNotEmpty()
	}

	parent, name, err := pathwalk.ResolveParent(fs.sb, path)
	if err != nil {
		return err
	}
	targetDir.FreeDirentTable(fs.alloc)
	parentDir := inode.Open(fs.sb, parent)
	if err := parentDir.Remove(fs.alloc, name); err != nil {
		return err
	}
	fs.alloc.FreeBlock(target)
	parentDir.SetMtime(nowNanos())
	return nil
}
