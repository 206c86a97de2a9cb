package fsops

import (
	"golang.org/x/sys/unix"

	"github.com/arenafs/arenafs/common"
	"github.com/arenafs/arenafs/inode"
	"github.com/arenafs/arenafs/pathwalk"
)

// Attr is getattr's return shape.
type Attr struct {
	Mode  uint32
	Nlink uint32
	Size  uint64
	Uid   uint32
	Gid   uint32
	Atime int64
	Mtime int64
}

// GetAttr resolves path and reports its kind, size, ownership, and
// timestamps. Nlink is 1 for a file; for a directory it is 2 plus the
// number of direct subdirectories, counted on the fly since nothing on
// the arena tracks it as a stored field. Uid and gid are echoed back
// verbatim from the caller rather than read off the inode; atime/mtime
// come from the inode itself.
func (fs *FS) GetAttr(path string, uid, gid uint32) (Attr, error) {
	blk, err := pathwalk.Resolve(fs.sb, path)
	if err != nil {
		return Attr{}, err
	}
	ip := inode.Open(fs.sb, blk)

	mode := uint32(unix.S_IFREG) | 0755
	nlink := uint32(1)
	if ip.IsDir() {
		mode = uint32(unix.S_IFDIR) | 0755
		nlink = 2
		ip.Iterate(func(_ string, child common.Bnum) bool {
			if inode.Open(fs.sb, child).IsDir() {
				nlink++
			}
			return true
		})
	}

	return Attr{
		Mode:  mode,
		Nlink: nlink,
		Size:  ip.Size(),
		Uid:   uid,
		Gid:   gid,
		Atime: ip.Atime(),
		Mtime: ip.Mtime(),
	}, nil
}

// ReadDir resolves path and returns its children's names in stored order
// (see inode.Inode.Iterate). Fails ENOTDIR if path is not a directory.
func (fs *FS) ReadDir(path string) ([]string, error) {
	blk, err := pathwalk.Resolve(fs.sb, path)
	if err != nil {
		return nil, err
	}
	d := inode.Open(fs.sb, blk)
	if !d.IsDir() {
		return nil, errNotDir()
	}

	var names []string
	d.Iterate(func(name string, _ common.Bnum) bool {
		names = append(names, name)
		return true
	})
	d.SetAtime(nowNanos())
	return names, nil
}
