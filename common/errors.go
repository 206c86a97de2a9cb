package common

import (
	"golang.org/x/sys/unix"
)

// Errno is a POSIX error kind surfaced through an operation's error_out
// slot. Its underlying values are golang.org/x/sys/unix's own errno
// constants, so an adapter never needs a translation table between an
// internal enum and the numbers the kernel/FUSE expects.
type Errno int

func (e Errno) Error() string {
	return unix.Errno(e).Error()
}

// The error kinds an operation can fail with, mapped onto real POSIX codes.
const (
	EFAULT     = Errno(unix.EFAULT)
	ENOENT     = Errno(unix.ENOENT)
	ENOTDIR    = Errno(unix.ENOTDIR)
	EISDIR     = Errno(unix.EISDIR)
	EEXIST     = Errno(unix.EEXIST)
	ENOTEMPTY  = Errno(unix.ENOTEMPTY)
	EINVAL     = Errno(unix.EINVAL)
	ENAMETOOLONG = Errno(unix.ENAMETOOLONG)
	ENOSPC     = Errno(unix.ENOSPC)
	EBUSY      = Errno(unix.EBUSY)
)

// AsErrno unwraps err (which may have been wrapped with github.com/pkg/errors)
// down to the Errno that caused it, returning false if err is not (or does
// not wrap) an Errno.
func AsErrno(err error) (Errno, bool) {
	type causer interface {
		Cause() error
	}
	for err != nil {
		if e, ok := err.(Errno); ok {
			return e, true
		}
		c, ok := err.(causer)
		if !ok {
			return 0, false
		}
		err = c.Cause()
	}
	return 0, false
}
