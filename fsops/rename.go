package fsops

import (
	"github.com/arenafs/arenafs/inode"
	"github.com/arenafs/arenafs/pathwalk"
)

// Rename moves or renames an entry. The ordering below
// follows the rule's own dependencies: the no-op short circuit must come
// before any lookup of the destination (renaming a path onto itself is
// always legal), the cycle check must come before the destination is
// deleted (a detected cycle must leave an existing destination intact),
// and the rollback that restores the source entry can only run after the
// source has actually been unlinked from its old parent.
func (fs *FS) Rename(from, to string) error {
	fromParent, fromName, err := pathwalk.ResolveParent(fs.sb, from)
	if err != nil {
		return err
	}
	fromParentDir := inode.Open(fs.sb, fromParent)
	fromChild, err := fromParentDir.Lookup(fromName)
	if err != nil {
		return err
	}

	toParent, toName, err := pathwalk.ResolveParent(fs.sb, to)
	if err != nil {
		return err
	}

	if fromParent == toParent && fromName == toName {
		return nil
	}

	fromInode := inode.Open(fs.sb, fromChild)
	fromIsDir := fromInode.IsDir()

	if fromIsDir && pathwalk.IsAncestor(fs.sb, fromChild, toParent) {
		return errInval()
	}

	toParentDir := inode.Open(fs.sb, toParent)
	toChild, toErr := toParentDir.Lookup(toName)
	if toErr == nil {
		toInode := inode.Open(fs.sb, toChild)
		toIsDir := toInode.IsDir()
		switch {
		case !fromIsDir && toIsDir:
			return errIsDir()
		case fromIsDir && !toIsDir:
			return errNotDir()
		case toIsDir && toInode.ChildCount() != 0:
			return errNotEmpty()
		}

		if toIsDir {
			toInode.FreeDirentTable(fs.alloc)
		} else {
			toInode.FreeAll(fs.alloc)
		}
		if err := toParentDir.Remove(fs.alloc, toName); err != nil {
			return err
		}
		fs.alloc.FreeBlock(toChild)
	}

	if err := fromParentDir.Remove(fs.alloc, fromName); err != nil {
		return err
	}

	if err := toParentDir.Insert(fs.alloc, toName, fromChild); err != nil {
		// Allocation failed partway through linking the new name in;
		// restore the source entry so the rename as a whole fails
		// cleanly rather than losing the file.
		fromParentDir.Insert(fs.alloc, fromName, fromChild)
		return err
	}

	now := nowNanos()
	fromParentDir.SetMtime(now)
	toParentDir.SetMtime(now)
	return nil
}
