package inode

import (
	"testing"

	"github.com/go-test/deep"
	"github.com/stretchr/testify/assert"

	"github.com/raghumanimehta/go-memfs/common"
)

func TestMkInode(t *testing.T) {
	assert := assert.New(t)
	ip := MkInode(7, FtypeRegular, 0o644)

	assert.Equal(common.Inum(7), ip.Inum)
	assert.Equal(FtypeRegular, ip.Kind)
	assert.Equal(uint16(0o644), ip.Perm)
	assert.Zero(ip.Size)
	assert.Zero(ip.Blocks)
	assert.NotZero(ip.MtimeSecs)
	assert.Len(ip.Blks, int(NBLKINO))
	for _, b := range ip.Blks {
		assert.Equal(common.NULLBNUM, b, "fresh pointers are the sentinel")
	}
}

func TestMkRootInode(t *testing.T) {
	assert := assert.New(t)
	ip := MkRootInode()

	assert.Equal(common.ROOTINUM, ip.Inum)
	assert.Equal(FtypeDir, ip.Kind)
	assert.Equal(RootPerm, ip.Perm)
}

func TestGeometry(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(uint64(1), Pow(0))
	assert.Equal(NBLKBLK, Pow(1))
	assert.Equal(NBLKBLK*NBLKBLK, Pow(2))
	assert.Equal(NDIRECT+NBLKBLK+NBLKBLK*NBLKBLK+NBLKBLK*NBLKBLK*NBLKBLK,
		MaxBlocks())
	assert.Equal(MaxBlocks()*common.BlockSize, MaxFileSize())
}

func TestEncodeDecode(t *testing.T) {
	ip := MkInode(3, FtypeDir, 0o755)
	ip.Size = 123456
	ip.Blocks = 31
	ip.Blks[0] = 17
	ip.Blks[NDIRECT-1] = 99
	ip.Blks[INDIRECT] = 100
	ip.Blks[TINDIRECT] = 101

	got := Decode(ip.Encode())
	if diff := deep.Equal(ip, got); diff != nil {
		t.Error(diff)
	}
}
