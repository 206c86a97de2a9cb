package pathwalk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arenafs/arenafs/arena"
	"github.com/arenafs/arenafs/bitmap"
	"github.com/arenafs/arenafs/common"
	"github.com/arenafs/arenafs/inode"
)

// mountTestTree builds root with a subdirectory "a" containing a file
// "b.txt", formatting the root inode the way fsops.Mount does (pathwalk
// itself never formats anything).
func mountTestTree(t *testing.T) (*arena.Superblock, *bitmap.Alloc, common.Bnum, common.Bnum) {
	ar, err := arena.CreateAnon(1024 * 1024)
	require.NoError(t, err)
	sb, fresh, err := arena.EnsureInitialized(ar)
	require.NoError(t, err)
	require.True(t, fresh)
	alloc := bitmap.New(sb)

	rootBlk, err := alloc.AllocBlock()
	require.NoError(t, err)
	_, err = inode.Init(sb, rootBlk, common.KindDir, "/", 0, 0)
	require.NoError(t, err)
	sb.SetRootInodeBlock(rootBlk)
	sb.SetMagic()
	root := inode.Open(sb, rootBlk)

	aBlk, err := alloc.AllocBlock()
	require.NoError(t, err)
	_, err = inode.Init(sb, aBlk, common.KindDir, "a", 0, 0)
	require.NoError(t, err)
	require.NoError(t, root.Insert(alloc, "a", aBlk))
	a := inode.Open(sb, aBlk)

	bBlk, err := alloc.AllocBlock()
	require.NoError(t, err)
	_, err = inode.Init(sb, bBlk, common.KindFile, "b.txt", 0, 0)
	require.NoError(t, err)
	require.NoError(t, a.Insert(alloc, "b.txt", bBlk))

	return sb, alloc, aBlk, bBlk
}

func TestResolveRoot(t *testing.T) {
	sb, _, _, _ := mountTestTree(t)
	blk, err := Resolve(sb, "/")
	require.NoError(t, err)
	assert.Equal(t, sb.RootInodeBlock(), blk)
}

func TestResolveNestedPath(t *testing.T) {
	sb, _, _, bBlk := mountTestTree(t)
	blk, err := Resolve(sb, "/a/b.txt")
	require.NoError(t, err)
	assert.Equal(t, bBlk, blk)
}

func TestResolveMissingIsENOENT(t *testing.T) {
	sb, _, _, _ := mountTestTree(t)
	_, err := Resolve(sb, "/a/nope")
	errno, ok := common.AsErrno(err)
	require.True(t, ok)
	assert.Equal(t, common.ENOENT, errno)
}

func TestResolveThroughAFileIsENOTDIR(t *testing.T) {
	sb, _, _, _ := mountTestTree(t)
	_, err := Resolve(sb, "/a/b.txt/oops")
	errno, ok := common.AsErrno(err)
	require.True(t, ok)
	assert.Equal(t, common.ENOTDIR, errno)
}

func TestResolveHandlesDotAndDotDot(t *testing.T) {
	sb, _, aBlk, _ := mountTestTree(t)
	blk, err := Resolve(sb, "/a/./../a")
	require.NoError(t, err)
	assert.Equal(t, aBlk, blk)
}

func TestDotDotAtRootStaysAtRoot(t *testing.T) {
	sb, _, _, _ := mountTestTree(t)
	blk, err := Resolve(sb, "/../../..")
	require.NoError(t, err)
	assert.Equal(t, sb.RootInodeBlock(), blk)
}

func TestResolveParentOnNonexistentFinalComponent(t *testing.T) {
	sb, _, aBlk, _ := mountTestTree(t)
	parent, name, err := ResolveParent(sb, "/a/new.txt")
	require.NoError(t, err)
	assert.Equal(t, aBlk, parent)
	assert.Equal(t, "new.txt", name)
}

func TestResolveParentOnRootIsEINVAL(t *testing.T) {
	sb, _, _, _ := mountTestTree(t)
	_, _, err := ResolveParent(sb, "/")
	errno, ok := common.AsErrno(err)
	require.True(t, ok)
	assert.Equal(t, common.EINVAL, errno)
}

func TestIsAncestorDetectsSelfAndDescendant(t *testing.T) {
	sb, _, aBlk, bBlk := mountTestTree(t)
	assert.True(t, IsAncestor(sb, aBlk, aBlk))
	assert.True(t, IsAncestor(sb, sb.RootInodeBlock(), aBlk))
	assert.False(t, IsAncestor(sb, bBlk, aBlk))
}
