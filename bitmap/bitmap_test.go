package bitmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arenafs/arenafs/arena"
	"github.com/arenafs/arenafs/common"
)

func newTestAlloc(t *testing.T, size int) (*arena.Superblock, *Alloc) {
	ar, err := arena.CreateAnon(size)
	require.NoError(t, err)
	sb, _, err := arena.EnsureInitialized(ar)
	require.NoError(t, err)
	return sb, New(sb)
}

func TestAllocBlockPicksLowestFreeBitFirst(t *testing.T) {
	_, a := newTestAlloc(t, 64*1024)

	b0, err := a.AllocBlock()
	require.NoError(t, err)
	assert.Equal(t, common.Bnum(0), b0)

	b1, err := a.AllocBlock()
	require.NoError(t, err)
	assert.Equal(t, common.Bnum(1), b1)
}

func TestFreeBlockIsReusedBeforeAnyHigherBlock(t *testing.T) {
	_, a := newTestAlloc(t, 64*1024)

	b0, _ := a.AllocBlock()
	b1, _ := a.AllocBlock()
	b2, _ := a.AllocBlock()
	a.FreeBlock(b1)

	reused, err := a.AllocBlock()
	require.NoError(t, err)
	assert.Equal(t, b1, reused)

	_ = b0
	_ = b2
}

func TestAllocBlockZeroFillsTheReturnedBlock(t *testing.T) {
	sb, a := newTestAlloc(t, 64*1024)

	b, err := a.AllocBlock()
	require.NoError(t, err)
	data := sb.BlockAt(b)
	data[0] = 0xAB
	a.FreeBlock(b)

	b2, err := a.AllocBlock()
	require.NoError(t, err)
	assert.Equal(t, b, b2)
	assert.Equal(t, byte(0), sb.BlockAt(b2)[0])
}

func TestAllocBlockFailsENOSPCWhenExhausted(t *testing.T) {
	sb, a := newTestAlloc(t, 3*int(common.BlockSize))
	var allocated []common.Bnum
	for {
		b, err := a.AllocBlock()
		if err != nil {
			errno, ok := common.AsErrno(err)
			require.True(t, ok)
			assert.Equal(t, common.ENOSPC, errno)
			break
		}
		allocated = append(allocated, b)
		if len(allocated) > int(sb.BlockCount())+1 {
			t.Fatal("allocator never returned ENOSPC")
		}
	}
}

func TestFreeBlockPanicsOnDoubleFree(t *testing.T) {
	_, a := newTestAlloc(t, 64*1024)
	b, _ := a.AllocBlock()
	a.FreeBlock(b)
	assert.Panics(t, func() {
		a.FreeBlock(b)
	})
}

func TestNumFreeTracksAllocAndFree(t *testing.T) {
	sb, a := newTestAlloc(t, 64*1024)
	start := a.NumFree()
	b, _ := a.AllocBlock()
	assert.Equal(t, start-1, a.NumFree())
	a.FreeBlock(b)
	assert.Equal(t, start, a.NumFree())
	assert.Equal(t, sb.FreeBlocks(), a.NumFree())
}
