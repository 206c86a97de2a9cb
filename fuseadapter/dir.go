package fuseadapter

import (
	"context"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
)

type dirStream struct {
	names []string
	i     int
}

func (s *dirStream) HasNext() bool { return s.i < len(s.names) }

func (s *dirStream) Next() (fuse.DirEntry, syscall.Errno) {
	name := s.names[s.i]
	s.i++
	return fuse.DirEntry{Name: name}, 0
}

func (s *dirStream) Close() {}

func (n *Node) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	names, err := n.arena.ReadDir(n.path)
	if err != nil {
		return nil, errnoOf(err)
	}
	return &dirStream{names: names}, 0
}

func (n *Node) Mkdir(ctx context.Context, name string, mode uint32, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	child := n.childPath(name)
	if err := n.arena.Mkdir(child, uint64(callerUid(ctx))); err != nil {
		return nil, errnoOf(err)
	}
	attr, err := n.arena.GetAttr(child, callerUid(ctx), callerGid(ctx))
	if err != nil {
		return nil, errnoOf(err)
	}
	attrToFuse(attr, &out.Attr)
	cn := &Node{arena: n.arena, path: child}
	return n.NewInode(ctx, cn, fs.StableAttr{Mode: fuse.S_IFDIR}), 0
}

func callerUid(ctx context.Context) uint32 {
	if caller, ok := fuse.FromContext(ctx); ok {
		return caller.Uid
	}
	return 0
}

func (n *Node) Create(ctx context.Context, name string, flags uint32, mode uint32, out *fuse.EntryOut) (*fs.Inode, fs.FileHandle, uint32, syscall.Errno) {
	child := n.childPath(name)
	if err := n.arena.Mknod(child, uint64(callerUid(ctx))); err != nil {
		return nil, nil, 0, errnoOf(err)
	}
	attr, err := n.arena.GetAttr(child, callerUid(ctx), callerGid(ctx))
	if err != nil {
		return nil, nil, 0, errnoOf(err)
	}
	attrToFuse(attr, &out.Attr)
	cn := &Node{arena: n.arena, path: child}
	inode := n.NewInode(ctx, cn, fs.StableAttr{Mode: fuse.S_IFREG})
	return inode, nil, 0, 0
}

func (n *Node) Unlink(ctx context.Context, name string) syscall.Errno {
	return errnoOf(n.arena.Unlink(n.childPath(name)))
}

func (n *Node) Rmdir(ctx context.Context, name string) syscall.Errno {
	return errnoOf(n.arena.Rmdir(n.childPath(name)))
}

func (n *Node) Rename(ctx context.Context, name string, newParent fs.InodeEmbedder, newName string, flags uint32) syscall.Errno {
	dst, ok := newParent.(*Node)
	if !ok {
		return syscall.EINVAL
	}
	return errnoOf(n.arena.Rename(n.childPath(name), dst.childPath(newName)))
}
