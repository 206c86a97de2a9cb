// Package fuseadapter binds fsops's operations to
// github.com/hanwen/go-fuse/v2, so an arena can be mounted as a real
// POSIX filesystem. It is additive to the core: nothing under fsops,
// inode, bitmap, arena, or pathwalk imports this package. It wraps one
// FUSE node per arena path, since fsops itself is already path-addressed
// and keeps no open-file-handle state to mirror.
package fuseadapter

import (
	"context"
	"path"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/arenafs/arenafs/common"
	"github.com/arenafs/arenafs/fsops"
)

// Node is one FUSE inode, identified by its absolute arena path. It
// caches nothing: every callback re-resolves through fsops, since the
// arena is the single source of truth and re-resolution is cheap.
type Node struct {
	fs.Inode
	arena *fsops.FS
	path  string
}

var (
	_ fs.InodeEmbedder = (*Node)(nil)
	_ fs.NodeLookuper   = (*Node)(nil)
	_ fs.NodeGetattrer  = (*Node)(nil)
	_ fs.NodeSetattrer  = (*Node)(nil)
	_ fs.NodeReaddirer  = (*Node)(nil)
	_ fs.NodeMkdirer    = (*Node)(nil)
	_ fs.NodeCreater    = (*Node)(nil)
	_ fs.NodeUnlinker   = (*Node)(nil)
	_ fs.NodeRmdirer    = (*Node)(nil)
	_ fs.NodeRenamer    = (*Node)(nil)
	_ fs.NodeOpener     = (*Node)(nil)
	_ fs.NodeReader     = (*Node)(nil)
	_ fs.NodeWriter     = (*Node)(nil)
	_ fs.NodeStatfser   = (*Node)(nil)
)

// Mount starts a FUSE server rooted at mountPoint, serving ar. It blocks
// until the filesystem is unmounted.
func Mount(ar *fsops.FS, mountPoint string, debug bool) error {
	root := &Node{arena: ar, path: "/"}
	rawFS := fs.NewNodeFS(root, &fs.Options{
		NullPermissions: true,
	})
	server, err := fuse.NewServer(rawFS, mountPoint, &fuse.MountOptions{
		FsName: "arenafs",
		Debug:  debug,
	})
	if err != nil {
		return err
	}
	server.Serve()
	return nil
}

func errnoOf(err error) syscall.Errno {
	if err == nil {
		return 0
	}
	if e, ok := common.AsErrno(err); ok {
		return syscall.Errno(e)
	}
	return syscall.EIO
}

func (n *Node) childPath(name string) string {
	return path.Join(n.path, name)
}

func attrToFuse(a fsops.Attr, out *fuse.Attr) {
	out.Mode = a.Mode
	out.Nlink = a.Nlink
	out.Size = a.Size
	out.Uid = a.Uid
	out.Gid = a.Gid
	out.Atime = uint64(a.Atime / 1e9)
	out.Atimensec = uint32(a.Atime % 1e9)
	out.Mtime = uint64(a.Mtime / 1e9)
	out.Mtimensec = uint32(a.Mtime % 1e9)
	out.Blocks = (a.Size + 4095) / 4096
}

// Lookup resolves name within n, returning a child Node whose attributes
// are filled from fsops.GetAttr.
func (n *Node) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	child := n.childPath(name)
	attr, err := n.arena.GetAttr(child, callerUid(ctx), callerGid(ctx))
	if err != nil {
		return nil, errnoOf(err)
	}
	attrToFuse(attr, &out.Attr)
	cn := &Node{arena: n.arena, path: child}
	mode := fuse.S_IFREG
	if attr.Mode&syscallIFDIR != 0 {
		mode = fuse.S_IFDIR
	}
	return n.NewInode(ctx, cn, fs.StableAttr{Mode: uint32(mode)}), 0
}

const syscallIFDIR = syscall.S_IFDIR

func callerGid(ctx context.Context) uint32 {
	if caller, ok := fuse.FromContext(ctx); ok {
		return caller.Gid
	}
	return 0
}

func (n *Node) Getattr(ctx context.Context, f fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	attr, err := n.arena.GetAttr(n.path, callerUid(ctx), callerGid(ctx))
	if err != nil {
		return errnoOf(err)
	}
	attrToFuse(attr, &out.Attr)
	return 0
}

func (n *Node) Setattr(ctx context.Context, f fs.FileHandle, in *fuse.SetAttrIn, out *fuse.AttrOut) syscall.Errno {
	if sz, ok := in.GetSize(); ok {
		if err := n.arena.Truncate(n.path, sz); err != nil {
			return errnoOf(err)
		}
	}
	if atime, mok := in.GetATime(); mok {
		mtime, _ := in.GetMTime()
		if err := n.arena.Utimens(n.path, atime.UnixNano(), mtime.UnixNano()); err != nil {
			return errnoOf(err)
		}
	}
	attr, err := n.arena.GetAttr(n.path, callerUid(ctx), callerGid(ctx))
	if err != nil {
		return errnoOf(err)
	}
	attrToFuse(attr, &out.Attr)
	return 0
}

func (n *Node) Statfs(ctx context.Context, out *fuse.StatfsOut) syscall.Errno {
	s := n.arena.Statfs()
	out.Bsize = uint32(s.BlockSize)
	out.Blocks = s.Blocks
	out.Bfree = s.BlocksFree
	out.Bavail = s.BlocksAvail
	out.NameLen = uint32(s.NameMax)
	return 0
}
