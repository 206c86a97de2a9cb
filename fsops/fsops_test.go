package fsops

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arenafs/arenafs/arena"
	"github.com/arenafs/arenafs/common"
)

func mountTest(t *testing.T, size int) *FS {
	ar, err := arena.CreateAnon(size)
	require.NoError(t, err)
	fs, err := Mount(ar)
	require.NoError(t, err)
	return fs
}

func wantErrno(t *testing.T, err error, want common.Errno) {
	t.Helper()
	require.Error(t, err)
	got, ok := common.AsErrno(err)
	require.True(t, ok, "error %v does not carry an Errno", err)
	assert.Equal(t, want, got)
}

func TestMountFormatsRootAsAnEmptyDirectory(t *testing.T) {
	fs := mountTest(t, 256*1024)
	names, err := fs.ReadDir("/")
	require.NoError(t, err)
	assert.Empty(t, names)

	attr, err := fs.GetAttr("/", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), attr.Nlink)
}

func TestRemountOfTheSameArenaSeesPriorState(t *testing.T) {
	ar, err := arena.CreateAnon(256 * 1024)
	require.NoError(t, err)
	fs1, err := Mount(ar)
	require.NoError(t, err)
	require.NoError(t, fs1.Mkdir("/persisted", 0))

	fs2, err := Mount(ar)
	require.NoError(t, err)
	names, err := fs2.ReadDir("/")
	require.NoError(t, err)
	assert.Contains(t, names, "persisted")
}

func TestMknodThenGetAttrThenUnlink(t *testing.T) {
	fs := mountTest(t, 256*1024)
	require.NoError(t, fs.Mknod("/hello.txt", 7))

	attr, err := fs.GetAttr("/hello.txt", 9, 0)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), attr.Nlink)
	assert.Equal(t, uint32(9), attr.Uid)
	assert.Equal(t, uint64(0), attr.Size)

	require.NoError(t, fs.Unlink("/hello.txt"))
	_, err = fs.GetAttr("/hello.txt", 0, 0)
	wantErrno(t, err, common.ENOENT)
}

func TestMknodDuplicateIsEEXIST(t *testing.T) {
	fs := mountTest(t, 256*1024)
	require.NoError(t, fs.Mknod("/a", 0))
	wantErrno(t, fs.Mknod("/a", 0), common.EEXIST)
}

func TestUnlinkOnDirectoryIsEISDIR(t *testing.T) {
	fs := mountTest(t, 256*1024)
	require.NoError(t, fs.Mkdir("/d", 0))
	wantErrno(t, fs.Unlink("/d"), common.EISDIR)
}

func TestMkdirThenRmdir(t *testing.T) {
	fs := mountTest(t, 256*1024)
	require.NoError(t, fs.Mkdir("/sub", 0))
	names, err := fs.ReadDir("/")
	require.NoError(t, err)
	assert.Contains(t, names, "sub")

	require.NoError(t, fs.Rmdir("/sub"))
	names, err = fs.ReadDir("/")
	require.NoError(t, err)
	assert.NotContains(t, names, "sub")
}

func TestRmdirNonEmptyIsENOTEMPTY(t *testing.T) {
	fs := mountTest(t, 256*1024)
	require.NoError(t, fs.Mkdir("/sub", 0))
	require.NoError(t, fs.Mknod("/sub/f", 0))
	wantErrno(t, fs.Rmdir("/sub"), common.ENOTEMPTY)
}

func TestRmdirRootIsEBUSY(t *testing.T) {
	fs := mountTest(t, 256*1024)
	wantErrno(t, fs.Rmdir("/"), common.EBUSY)
}

func TestRmdirOnAFileIsENOTDIR(t *testing.T) {
	fs := mountTest(t, 256*1024)
	require.NoError(t, fs.Mknod("/f", 0))
	wantErrno(t, fs.Rmdir("/f"), common.ENOTDIR)
}

func TestWriteThenReadThenTruncate(t *testing.T) {
	fs := mountTest(t, 256*1024)
	require.NoError(t, fs.Mknod("/f", 0))

	n, err := fs.Write("/f", 0, []byte("hello world"))
	require.NoError(t, err)
	assert.Equal(t, 11, n)

	buf := make([]byte, 5)
	n, err = fs.Read("/f", 0, buf)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "hello", string(buf))

	require.NoError(t, fs.Truncate("/f", 5))
	attr, err := fs.GetAttr("/f", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), attr.Size)
}

func TestUtimens(t *testing.T) {
	fs := mountTest(t, 256*1024)
	require.NoError(t, fs.Mknod("/f", 0))
	require.NoError(t, fs.Utimens("/f", 111, 222))

	attr, err := fs.GetAttr("/f", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(111), attr.Atime)
	assert.Equal(t, int64(222), attr.Mtime)
}

func TestRenameMovesAcrossDirectories(t *testing.T) {
	fs := mountTest(t, 256*1024)
	require.NoError(t, fs.Mkdir("/a", 0))
	require.NoError(t, fs.Mkdir("/b", 0))
	require.NoError(t, fs.Mknod("/a/f", 0))

	require.NoError(t, fs.Rename("/a/f", "/b/g"))

	namesA, _ := fs.ReadDir("/a")
	assert.NotContains(t, namesA, "f")
	namesB, _ := fs.ReadDir("/b")
	assert.Contains(t, namesB, "g")
}

func TestRenameOntoItselfIsANoOp(t *testing.T) {
	fs := mountTest(t, 256*1024)
	require.NoError(t, fs.Mknod("/f", 0))
	require.NoError(t, fs.Rename("/f", "/f"))
	_, err := fs.GetAttr("/f", 0, 0)
	require.NoError(t, err)
}

func TestRenameOverwritesAnExistingEmptyTarget(t *testing.T) {
	fs := mountTest(t, 256*1024)
	require.NoError(t, fs.Mknod("/src", 0))
	require.NoError(t, fs.Mknod("/dst", 0))
	_, err := fs.Write("/src", 0, []byte("x"))
	require.NoError(t, err)

	require.NoError(t, fs.Rename("/src", "/dst"))
	names, _ := fs.ReadDir("/")
	assert.Contains(t, names, "dst")
	assert.NotContains(t, names, "src")
}

func TestRenameDirectoryOntoNonEmptyDirectoryIsENOTEMPTY(t *testing.T) {
	fs := mountTest(t, 256*1024)
	require.NoError(t, fs.Mkdir("/src", 0))
	require.NoError(t, fs.Mkdir("/dst", 0))
	require.NoError(t, fs.Mknod("/dst/child", 0))

	wantErrno(t, fs.Rename("/src", "/dst"), common.ENOTEMPTY)
}

func TestRenameIntoOwnDescendantIsEINVAL(t *testing.T) {
	fs := mountTest(t, 256*1024)
	require.NoError(t, fs.Mkdir("/a", 0))
	require.NoError(t, fs.Mkdir("/a/b", 0))

	wantErrno(t, fs.Rename("/a", "/a/b/c"), common.EINVAL)
}

func TestStatfsReportsDecreasingFreeBlocksAsBlocksAreUsed(t *testing.T) {
	fs := mountTest(t, 256*1024)
	before := fs.Statfs()

	require.NoError(t, fs.Mknod("/f", 0))
	_, err := fs.Write("/f", 0, make([]byte, int(common.BlockSize)*2))
	require.NoError(t, err)

	after := fs.Statfs()
	assert.True(t, after.BlocksFree < before.BlocksFree)
	assert.Equal(t, before.Blocks, after.Blocks)
	assert.Equal(t, before.BlockSize, after.BlockSize)
}

func TestOpenReportsMissingPaths(t *testing.T) {
	fs := mountTest(t, 256*1024)
	require.NoError(t, fs.Mknod("/f", 0))
	assert.NoError(t, fs.Open("/f"))
	wantErrno(t, fs.Open("/missing"), common.ENOENT)
}

func TestReadDirOnAFileIsENOTDIR(t *testing.T) {
	fs := mountTest(t, 256*1024)
	require.NoError(t, fs.Mknod("/f", 0))
	_, err := fs.ReadDir("/f")
	wantErrno(t, err, common.ENOTDIR)
}

func TestReadAndWriteOnADirectoryAreEISDIR(t *testing.T) {
	fs := mountTest(t, 256*1024)
	require.NoError(t, fs.Mkdir("/d", 0))

	_, err := fs.Read("/d", 0, make([]byte, 1))
	wantErrno(t, err, common.EISDIR)

	_, err = fs.Write("/d", 0, []byte("x"))
	wantErrno(t, err, common.EISDIR)

	wantErrno(t, fs.Truncate("/d", 0), common.EISDIR)
}
