// Package arena owns the single contiguous byte region the whole
// filesystem lives in, plus the superblock at its head.
//
// The arena is addressed as one flat []byte, mapped into a host
// process's address space rather than accessed through block read/write
// calls. The file-backed mode mmaps its backing file
// (golang.org/x/sys/unix.Mmap) rather than doing block-granularity
// Pread/Pwrite, since every structure built on top of the arena must
// stay position-independent across a remap at a different host address -
// mmap is what actually produces that situation to guard against, where
// Pread/Pwrite would not.
package arena

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/arenafs/arenafs/common"
	"github.com/arenafs/arenafs/logging"
)

// MinSize is the smallest arena size Create and CreateAnon accept. An
// arena of MinSize bytes is still too small for EnsureInitialized, which
// needs room for at least two blocks after the header.
const MinSize = 2048

// Arena is the mmap'd (or anonymous in-memory) byte region plus whatever
// file descriptor backs it, if any.
type Arena struct {
	bytes []byte
	fd    int // -1 for anonymous arenas
	path  string
}

// CreateAnon allocates a purely in-memory, zero-filled arena of size
// bytes. Used by tests and by hosts with no durability requirement.
func CreateAnon(size int) (*Arena, error) {
	if size < MinSize {
		return nil, errors.Wrapf(common.EFAULT, "arena size %d below minimum %d", size, MinSize)
	}
	return &Arena{bytes: make([]byte, size), fd: -1}, nil
}

// Create opens (creating if necessary) a backing file at path, truncates
// it to size bytes, and mmaps it read/write. A freshly created file is
// zero-filled by the OS, which is the precondition EnsureInitialized
// relies on to recognize and format a brand new arena.
func Create(path string, size int) (*Arena, error) {
	if size < MinSize {
		return nil, errors.Wrapf(common.EFAULT, "arena size %d below minimum %d", size, MinSize)
	}
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CREAT, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		unix.Close(fd)
		return nil, errors.Wrapf(err, "ftruncate %s to %d", path, size)
	}
	return mapFd(path, fd, size)
}

// Open mmaps an existing backing file at path in its current size,
// restoring a previously unmounted arena verbatim.
func Open(path string) (*Arena, error) {
	fd, err := unix.Open(path, unix.O_RDWR, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		unix.Close(fd)
		return nil, errors.Wrapf(err, "fstat %s", path)
	}
	return mapFd(path, fd, int(st.Size))
}

func mapFd(path string, fd int, size int) (*Arena, error) {
	data, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, errors.Wrapf(err, "mmap %s", path)
	}
	logging.DPrintf(1, "arena: mapped %s (%d bytes) fd=%d\n", path, size, fd)
	return &Arena{bytes: data, fd: fd, path: path}, nil
}

// Bytes returns the arena's backing byte slice. Every layer built on top
// of it treats an offset into this slice as relative to the arena's own
// base - never as a host pointer stashed elsewhere, so the arena can be
// remapped at a different address without invalidating anything stored
// on it.
func (a *Arena) Bytes() []byte {
	return a.bytes
}

// Size returns the arena's total size in bytes.
func (a *Arena) Size() int {
	return len(a.bytes)
}

// Unmount flushes a file-backed arena to disk and releases the mapping.
// Anonymous arenas have nothing to flush and simply drop their backing
// slice. After Unmount, the Arena must not be used again.
func (a *Arena) Unmount() error {
	if a.fd < 0 {
		a.bytes = nil
		return nil
	}
	if err := unix.Msync(a.bytes, unix.MS_SYNC); err != nil {
		return errors.Wrapf(err, "msync %s", a.path)
	}
	if err := unix.Munmap(a.bytes); err != nil {
		return errors.Wrapf(err, "munmap %s", a.path)
	}
	if err := unix.Close(a.fd); err != nil {
		return errors.Wrapf(err, "close %s", a.path)
	}
	logging.DPrintf(1, "arena: unmounted %s\n", a.path)
	a.bytes = nil
	a.fd = -1
	return nil
}
