package inode

import (
	"encoding/binary"

	"github.com/arenafs/arenafs/common"
)

// chainNextOffset is where a dirent or extent table block keeps the index
// of its successor in the chain, 0 meaning "no next".
const chainNextOffset = int(common.BlockSize) - 8

func chainNext(blk []byte) common.Bnum {
	return common.Bnum(getU64(blk[chainNextOffset:]))
}

func setChainNext(blk []byte, next common.Bnum) {
	putU64(blk[chainNextOffset:], uint64(next))
}

func putBnum32(b []byte, v common.Bnum) {
	binary.LittleEndian.PutUint32(b, uint32(v))
}

func getBnum32(b []byte) common.Bnum {
	return common.Bnum(binary.LittleEndian.Uint32(b))
}
