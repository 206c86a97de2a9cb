// Package inode implements the inode and directory/file model. An Inode
// is a typed view over one inode block: header fields at the front, then
// either a dirent-table chain (for directories) or an extent-table chain
// (for files) reachable through the header's table-block field.
//
// Sub-block field encode/decode goes through github.com/tchajed/marshal,
// the same way the allocator and superblock encode their own fields.
package inode

import (
	"github.com/pkg/errors"
	"github.com/tchajed/marshal"

	"github.com/arenafs/arenafs/arena"
	"github.com/arenafs/arenafs/common"
)

// Header field indices, each an 8-byte little-endian slot.
const (
	fieldKind = iota
	fieldOwnerUID
	fieldSize
	fieldAtime
	fieldMtime
	fieldTableBlock // extent_table_block (files) or dirent_table_block (dirs)
	fieldChildCount // directories only
	fieldNameLen
	numHeaderFields
)

// headerBytes is the fixed width of an inode's header, before its name.
const headerBytes = numHeaderFields * 8

// Inode is a handle onto one inode block. Like arena.Superblock, it holds
// no state besides which block it names - every getter/setter reads or
// writes straight through to the arena.
type Inode struct {
	sb  *arena.Superblock
	Blk common.Bnum
}

// Open wraps an existing inode block. Callers are responsible for knowing
// blk actually holds an inode (callers always reach an inode block via a
// dirent or the superblock's root_inode_block field, which is the only
// way position-independent references to inodes are stored).
func Open(sb *arena.Superblock, blk common.Bnum) *Inode {
	return &Inode{sb: sb, Blk: blk}
}

func (ip *Inode) block() []byte { return ip.sb.BlockAt(ip.Blk) }

func getU64(b []byte) uint64 {
	return marshal.NewDec(b[:8]).GetInt()
}

func putU64(b []byte, v uint64) {
	enc := marshal.NewEnc(8)
	enc.PutInt(v)
	copy(b[:8], enc.Finish())
}

func (ip *Inode) field(i int) uint64 {
	return getU64(ip.block()[i*8 : i*8+8])
}

func (ip *Inode) setField(i int, v uint64) {
	putU64(ip.block()[i*8:i*8+8], v)
}

// Init formats blk as a freshly allocated inode of the given kind and
// name. The block is assumed already zero-filled, as every block the
// allocator hands out is.
func Init(sb *arena.Superblock, blk common.Bnum, kind common.InodeKind, name string, uid uint64, now int64) (*Inode, error) {
	if len(name) > common.NameMax {
		return nil, errors.WithStack(common.ENAMETOOLONG)
	}
	ip := &Inode{sb: sb, Blk: blk}
	ip.setField(fieldKind, uint64(kind))
	ip.setField(fieldOwnerUID, uid)
	ip.setField(fieldSize, 0)
	ip.setField(fieldAtime, uint64(now))
	ip.setField(fieldMtime, uint64(now))
	ip.setField(fieldTableBlock, uint64(common.NullBnum))
	ip.setField(fieldChildCount, 0)
	ip.setName(name)
	return ip, nil
}

func (ip *Inode) setName(name string) {
	ip.setField(fieldNameLen, uint64(len(name)))
	nameArea := ip.block()[headerBytes : headerBytes+common.NameMax]
	for i := range nameArea {
		nameArea[i] = 0
	}
	copy(nameArea, name)
}

func (ip *Inode) Kind() common.InodeKind { return common.InodeKind(ip.field(fieldKind)) }
func (ip *Inode) IsDir() bool            { return ip.Kind() == common.KindDir }

func (ip *Inode) Name() string {
	n := ip.field(fieldNameLen)
	return string(ip.block()[headerBytes : headerBytes+n])
}

func (ip *Inode) OwnerUID() uint64 { return ip.field(fieldOwnerUID) }

func (ip *Inode) Size() uint64        { return ip.field(fieldSize) }
func (ip *Inode) SetSize(sz uint64)   { ip.setField(fieldSize, sz) }

func (ip *Inode) Atime() int64      { return int64(ip.field(fieldAtime)) }
func (ip *Inode) SetAtime(ns int64) { ip.setField(fieldAtime, uint64(ns)) }
func (ip *Inode) Mtime() int64      { return int64(ip.field(fieldMtime)) }
func (ip *Inode) SetMtime(ns int64) { ip.setField(fieldMtime, uint64(ns)) }

func (ip *Inode) TableBlock() common.Bnum       { return common.Bnum(ip.field(fieldTableBlock)) }
func (ip *Inode) setTableBlock(b common.Bnum)   { ip.setField(fieldTableBlock, uint64(b)) }

func (ip *Inode) ChildCount() uint64     { return ip.field(fieldChildCount) }
func (ip *Inode) setChildCount(n uint64) { ip.setField(fieldChildCount, n) }
