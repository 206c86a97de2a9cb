package arena

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arenafs/arenafs/common"
)

func TestEnsureInitializedFormatsAFreshArena(t *testing.T) {
	ar, err := CreateAnon(64 * 1024)
	require.NoError(t, err)

	sb, fresh, err := EnsureInitialized(ar)
	require.NoError(t, err)
	assert.True(t, fresh)
	assert.NotEqual(t, common.SuperblockMagic, sb.Magic(), "magic must not be set until the caller finishes root-inode setup")
	assert.Equal(t, common.BlockSize, sb.BlockSize())
	assert.True(t, sb.BlockCount() > 0)
	assert.Equal(t, sb.BlockCount(), sb.FreeBlocks())
	assert.Equal(t, uint64(64*1024), sb.TotalSize())
}

func TestEnsureInitializedIsIdempotentOnceMagicIsSet(t *testing.T) {
	ar, err := CreateAnon(64 * 1024)
	require.NoError(t, err)

	sb, fresh, err := EnsureInitialized(ar)
	require.NoError(t, err)
	require.True(t, fresh)
	sb.SetRootInodeBlock(0)
	sb.SetMagic()

	before := sb.FreeBlocks()
	sb2, fresh2, err := EnsureInitialized(ar)
	require.NoError(t, err)
	assert.False(t, fresh2)
	assert.Equal(t, before, sb2.FreeBlocks())
}

func TestEnsureInitializedRejectsAnArenaTooSmallForTwoBlocks(t *testing.T) {
	ar, err := CreateAnon(MinSize)
	require.NoError(t, err)
	_, _, err = EnsureInitialized(ar)
	assert.Error(t, err)
}

func TestBlockAtPanicsOutOfRange(t *testing.T) {
	ar, err := CreateAnon(64 * 1024)
	require.NoError(t, err)
	sb, _, err := EnsureInitialized(ar)
	require.NoError(t, err)

	assert.Panics(t, func() {
		sb.BlockAt(common.Bnum(sb.BlockCount()))
	})
}

func TestBitmapStartsAllZero(t *testing.T) {
	ar, err := CreateAnon(64 * 1024)
	require.NoError(t, err)
	sb, _, err := EnsureInitialized(ar)
	require.NoError(t, err)

	for _, b := range sb.Bitmap() {
		assert.Equal(t, byte(0), b)
	}
}
