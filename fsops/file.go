package fsops

import (
	"github.com/arenafs/arenafs/inode"
	"github.com/arenafs/arenafs/pathwalk"
)

// Open resolves path and reports whether it exists, for adapters that
// need to validate a handle before issuing reads or writes. There is no
// separate file-descriptor table to populate - every other operation
// re-resolves the path it's given.
func (fs *FS) Open(path string) error {
	_, err := pathwalk.Resolve(fs.sb, path)
	return err
}

// Truncate resizes a file to newSize, freeing trailing blocks on shrink
// and leaving the new range a hole on grow. Fails EISDIR if path names a
// directory.
func (fs *FS) Truncate(path string, newSize uint64) error {
	blk, err := pathwalk.Resolve(fs.sb, path)
	if err != nil {
		return err
	}
	f := inode.Open(fs.sb, blk)
	if f.IsDir() {
		return errIsDir()
	}
	f.Truncate(fs.alloc, newSize)
	f.SetMtime(nowNanos())
	return nil
}

// Read copies up to len(buf) bytes from path starting at offset into buf,
// returning the number of bytes copied (fewer than requested at EOF).
// Fails EISDIR if path names a directory.
func (fs *FS) Read(path string, offset uint64, buf []byte) (int, error) {
	blk, err := pathwalk.Resolve(fs.sb, path)
	if err != nil {
		return 0, err
	}
	f := inode.Open(fs.sb, blk)
	if f.IsDir() {
		return 0, errIsDir()
	}
	n := f.Read(offset, buf)
	f.SetAtime(nowNanos())
	return n, nil
}

// Write copies data into path starting at offset, growing the file and
// its extent table as needed. Fails EISDIR if path names a directory,
// ENOSPC if no block is free partway through (in which case, per
// inode.Inode.Write's own rollback, no block allocated by the call stays
// allocated or referenced and the file's size is unchanged; bytes already
// copied into blocks the file held before the call are not restored).
func (fs *FS) Write(path string, offset uint64, data []byte) (int, error) {
	blk, err := pathwalk.Resolve(fs.sb, path)
	if err != nil {
		return 0, err
	}
	f := inode.Open(fs.sb, blk)
	if f.IsDir() {
		return 0, errIsDir()
	}
	n, err := f.Write(fs.alloc, offset, data)
	if err != nil {
		return 0, err
	}
	now := nowNanos()
	f.SetAtime(now)
	f.SetMtime(now)
	return n, nil
}

// Utimens sets path's access and modification times directly, the way a
// caller restoring timestamps (e.g. an archive extractor) would.
func (fs *FS) Utimens(path string, atime, mtime int64) error {
	blk, err := pathwalk.Resolve(fs.sb, path)
	if err != nil {
		return err
	}
	f := inode.Open(fs.sb, blk)
	f.SetAtime(atime)
	f.SetMtime(mtime)
	return nil
}
