// Package common holds the id types and layout constants shared by every
// layer of the filesystem core.
package common

import (
	"github.com/tchajed/goose/machine/disk"
)

const (
	// BlockSize is the unit of storage allocation.
	BlockSize uint64 = disk.BlockSize

	// PtrSize is the encoded size of a block pointer, so an indirect
	// block holds PtrsPerBlock pointers.
	PtrSize      uint64 = 8
	PtrsPerBlock uint64 = BlockSize / PtrSize

	// ReservedInodes is the prefix of inode ids the allocator never
	// hands out: 0 is the null sentinel, 1 the root directory.
	ReservedInodes uint64 = 2

	// ReservedBlocks is the prefix of block ids the allocator never
	// hands out: 0 superblock, 1 inode bitmap, 2 block bitmap.
	ReservedBlocks uint64 = 3
)

type Inum uint64
type Bnum = uint64

const (
	NULLINUM Inum = 0
	ROOTINUM Inum = 1
	NULLBNUM Bnum = 0
)

// ConstError is a comparable sentinel error; each package declares its
// error kinds as constants of this type.
type ConstError string

func (e ConstError) Error() string {
	return string(e)
}
