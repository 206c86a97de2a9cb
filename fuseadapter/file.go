package fuseadapter

import (
	"context"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
)

func (n *Node) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	if err := n.arena.Open(n.path); err != nil {
		return nil, 0, errnoOf(err)
	}
	return nil, 0, 0
}

func (n *Node) Read(ctx context.Context, f fs.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	got, err := n.arena.Read(n.path, uint64(off), dest)
	if err != nil {
		return nil, errnoOf(err)
	}
	return fuse.ReadResultData(dest[:got]), 0
}

func (n *Node) Write(ctx context.Context, f fs.FileHandle, data []byte, off int64) (uint32, syscall.Errno) {
	written, err := n.arena.Write(n.path, uint64(off), data)
	if err != nil {
		return 0, errnoOf(err)
	}
	return uint32(written), 0
}
