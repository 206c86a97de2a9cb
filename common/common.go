// Package common holds the constants and basic types shared by every layer
// of the arena filesystem: block geometry, name limits, and the block-index
// type used for every position-independent reference stored on the arena.
package common

// BlockSize is the fixed size of a block, in bytes.
const BlockSize uint64 = 4096

// NameMax is the longest name (in bytes, excluding the NUL terminator) a
// file or directory may have.
const NameMax = 255

// Bnum identifies a block by index within the arena's block region. 0
// doubles as a sentinel (see NullBnum): block 0 is the first block handed
// out, which holds the root inode, and the root's index is never stored in
// a dirent, extent or chain slot.
type Bnum uint32

// NullBnum marks "no block": an absent extent slot (a hole), an absent
// dirent-table chain link, or an absent extent-table chain link.
const NullBnum Bnum = 0

// DirentSize is the on-arena size of one directory entry: a 256-byte
// zero-padded name plus a 4-byte little-endian child block index.
const DirentSize = 256 + 4

// DirentNameSize is the name field width within a dirent.
const DirentNameSize = 256

// DirentsPerBlock is how many dirents fit in a block once the trailing
// 8-byte chain-next pointer is set aside.
const DirentsPerBlock = (int(BlockSize) - 8) / DirentSize

// ExtentSlotsPerBlock is how many 8-byte block indices fit in a block once
// the trailing 8-byte chain-next slot is set aside.
const ExtentSlotsPerBlock = int(BlockSize)/8 - 1

// SuperblockMagic identifies an initialized arena.
const SuperblockMagic uint64 = 0xA6E4FA11CAFEF00D

// InodeKind distinguishes files from directories.
type InodeKind uint64

const (
	KindFile InodeKind = 0
	KindDir  InodeKind = 1
)
