// Package inode defines the per-object metadata record and the geometry
// of its direct/indirect block-pointer tree.
package inode

import (
	"fmt"
	"time"

	"github.com/tchajed/marshal"

	"github.com/raghumanimehta/go-memfs/common"
)

const (
	NBLKINO   uint64 = 15 // # of slots in an inode's Blks array
	NDIRECT   uint64 = 12
	INDIRECT  uint64 = NBLKINO - 3 // singly-indirect root
	DINDIRECT uint64 = NBLKINO - 2 // doubly-indirect root
	TINDIRECT uint64 = NBLKINO - 1 // triply-indirect root
	NBLKBLK   uint64 = common.PtrsPerBlock
	NINDLEVEL uint64 = 3

	INODESZ uint64 = 256 // encoded size
)

type Ftype uint32

const (
	FtypeFree Ftype = iota
	FtypeRegular
	FtypeDir
	FtypeSymlink
	FtypeCharDev
	FtypeBlockDev
	FtypeFifo
	FtypeSocket
)

func (k Ftype) String() string {
	switch k {
	case FtypeFree:
		return "free"
	case FtypeRegular:
		return "regular"
	case FtypeDir:
		return "dir"
	case FtypeSymlink:
		return "symlink"
	case FtypeCharDev:
		return "chardev"
	case FtypeBlockDev:
		return "blockdev"
	case FtypeFifo:
		return "fifo"
	case FtypeSocket:
		return "socket"
	default:
		return fmt.Sprintf("ftype(%d)", uint32(k))
	}
}

const RootPerm uint16 = 0o755

// Inode records an object's size, kind, permission bits, and the block
// pointers that reach its data. Blks holds NDIRECT direct pointers
// followed by the singly-, doubly-, and triply-indirect roots; NULLBNUM
// in any slot means unallocated. Permission bits are stored, not
// enforced.
type Inode struct {
	Inum      common.Inum
	Kind      Ftype
	Perm      uint16
	Size      uint64 // bytes
	Blocks    uint64 // blocks owned, including pointer blocks
	MtimeSecs uint64
	Blks      []common.Bnum
}

func MkInode(inum common.Inum, kind Ftype, perm uint16) *Inode {
	return &Inode{
		Inum:      inum,
		Kind:      kind,
		Perm:      perm,
		Size:      0,
		Blocks:    0,
		MtimeSecs: uint64(time.Now().Unix()),
		Blks:      make([]common.Bnum, NBLKINO),
	}
}

func MkRootInode() *Inode {
	return MkInode(common.ROOTINUM, FtypeDir, RootPerm)
}

func (ip *Inode) String() string {
	return fmt.Sprintf("# %d %v perm %o sz %d nblk %d %v",
		ip.Inum, ip.Kind, ip.Perm, ip.Size, ip.Blocks, ip.Blks)
}

func (ip *Inode) UpdateMtime() {
	ip.MtimeSecs = uint64(time.Now().Unix())
}

func (ip *Inode) Encode() []byte {
	enc := marshal.NewEnc(INODESZ)
	enc.PutInt(uint64(ip.Inum))
	enc.PutInt32(uint32(ip.Kind))
	enc.PutInt32(uint32(ip.Perm))
	enc.PutInt(ip.Size)
	enc.PutInt(ip.Blocks)
	enc.PutInt(ip.MtimeSecs)
	enc.PutInts(ip.Blks)
	return enc.Finish()
}

func Decode(b []byte) *Inode {
	ip := new(Inode)
	dec := marshal.NewDec(b)
	ip.Inum = common.Inum(dec.GetInt())
	ip.Kind = Ftype(dec.GetInt32())
	ip.Perm = uint16(dec.GetInt32())
	ip.Size = dec.GetInt()
	ip.Blocks = dec.GetInt()
	ip.MtimeSecs = dec.GetInt()
	ip.Blks = dec.GetInts(NBLKINO)
	return ip
}

// Pow returns NBLKBLK^level, the number of data blocks reachable below
// one pointer at the given indirection level.
func Pow(level uint64) uint64 {
	var p uint64 = 1
	for i := uint64(0); i < level; i++ {
		p = p * NBLKBLK
	}
	return p
}

// MaxBlocks is the number of logical blocks an inode can address.
func MaxBlocks() uint64 {
	return NDIRECT + Pow(1) + Pow(2) + Pow(3)
}

// MaxFileSize is the largest representable file, in bytes.
func MaxFileSize() uint64 {
	return MaxBlocks() * common.BlockSize
}
