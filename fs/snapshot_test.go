package fs

import (
	"bytes"
	"testing"

	"github.com/go-test/deep"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"

	"github.com/raghumanimehta/go-memfs/common"
	"github.com/raghumanimehta/go-memfs/inode"
)

func TestSnapshotRoundTrip(t *testing.T) {
	st := MkFsState(testConfig())
	inum, err := st.AllocInode(inode.FtypeRegular, 0o644)
	require.NoError(t, err)
	require.NoError(t, st.AddName(common.ROOTINUM, inum, "notes.txt"))

	payload := bytes.Repeat([]byte{0xab}, int(2*common.BlockSize+17))
	n, err := st.WriteAt(inum, 0, payload)
	require.NoError(t, err)
	require.Equal(t, uint64(len(payload)), n)
	// exercise a pointer block in the snapshot too
	indOff := inode.NDIRECT * common.BlockSize
	_, err = st.WriteAt(inum, indOff, []byte("indirect"))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, st.SaveSnapshot(&buf))
	assert.NotZero(t, st.Meta.Wtime)

	got, err := LoadFsState(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	assert.Nil(t, deep.Equal(st.Meta, got.Meta))
	assert.Equal(t, st.NumFreeInodes(), got.NumFreeInodes())
	assert.Equal(t, st.NumFreeBlocks(), got.NumFreeBlocks())

	back, eof, err := got.ReadAt(inum, 0, uint64(len(payload)))
	require.NoError(t, err)
	assert.False(t, eof)
	assert.Equal(t, payload, back)
	back, _, err = got.ReadAt(inum, indOff, 8)
	require.NoError(t, err)
	assert.Equal(t, []byte("indirect"), back)

	resolved, err := got.LookupName(common.ROOTINUM, "notes.txt")
	require.NoError(t, err)
	assert.Equal(t, inum, resolved)
	ents, err := got.ReadDir(common.ROOTINUM)
	require.NoError(t, err)
	assert.Len(t, ents, 3)

	// the rebuilt state keeps allocating where the old one left off
	next, err := got.AllocInode(inode.FtypeRegular, 0o644)
	require.NoError(t, err)
	assert.Equal(t, common.Inum(3), next)
}

func TestSnapshotFreshState(t *testing.T) {
	st := MkFsState(testConfig())
	var buf bytes.Buffer
	require.NoError(t, st.SaveSnapshot(&buf))

	got, err := LoadFsState(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	root, err := got.GetRootInode()
	require.NoError(t, err)
	assert.Equal(t, inode.FtypeDir, root.Kind)
	self, err := got.LookupName(common.ROOTINUM, ".")
	require.NoError(t, err)
	assert.Equal(t, common.ROOTINUM, self)
}

func TestLoadRejectsGarbage(t *testing.T) {
	_, err := LoadFsState(bytes.NewReader([]byte("not a snapshot at all")))
	assert.Error(t, err)
}

func TestLoadRejectsBadMagic(t *testing.T) {
	var buf bytes.Buffer
	zw, err := xz.NewWriter(&buf)
	require.NoError(t, err)
	_, err = zw.Write(make([]byte, 512))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	_, err = LoadFsState(bytes.NewReader(buf.Bytes()))
	assert.ErrorIs(t, err, ErrCorruptSnapshot)
}

func TestLoadRejectsTruncated(t *testing.T) {
	st := MkFsState(testConfig())
	var buf bytes.Buffer
	require.NoError(t, st.SaveSnapshot(&buf))

	_, err := LoadFsState(bytes.NewReader(buf.Bytes()[:buf.Len()/2]))
	assert.Error(t, err)
}

func TestLoadRejectsDesyncedCounters(t *testing.T) {
	st := MkFsState(testConfig())
	_, err := st.AllocInode(inode.FtypeRegular, 0o644)
	require.NoError(t, err)

	// counter says one more free inode than the bitmap does
	st.Meta.FreeInoCount += 1
	var buf bytes.Buffer
	require.NoError(t, st.SaveSnapshot(&buf))

	_, err = LoadFsState(bytes.NewReader(buf.Bytes()))
	assert.ErrorIs(t, err, ErrCorruptSnapshot)
}
