// Package fs owns the filesystem state: the superblock, both
// allocation bitmaps, and the inode and block tables. It is the sole
// mutator of all of them; every cross-reference is a table index.
//
// The state is single-threaded by contract. A multi-threaded dispatch
// layer must serialize calls into one FsState behind its own lock.
package fs

import (
	"fmt"
	"time"

	"github.com/tchajed/goose/machine/disk"

	"github.com/raghumanimehta/go-memfs/bitmap"
	"github.com/raghumanimehta/go-memfs/common"
	"github.com/raghumanimehta/go-memfs/inode"
	"github.com/raghumanimehta/go-memfs/super"
	"github.com/raghumanimehta/go-memfs/util"
)

const (
	ErrNoFreeInodes     common.ConstError = "no free inodes on alloc"
	ErrInodeNotFound    common.ConstError = "inode not found"
	ErrInvalidInoId     common.ConstError = "invalid inode id"
	ErrNotADirectory    common.ConstError = "not a directory"
	ErrOffsetOutOfRange common.ConstError = "offset exceeds maximum file size"
	ErrCorruptSnapshot  common.ConstError = "corrupt snapshot"
)

// Config fixes the filesystem geometry at creation time.
type Config struct {
	CapacityBytes uint64 `envconfig:"MEMFS_CAPACITY_BYTES" default:"1073741824"`
	MaxInodes     uint64 `envconfig:"MEMFS_MAX_INODES" default:"1024"`
}

func (cfg Config) NumBlocks() uint64 {
	return cfg.CapacityBytes / common.BlockSize
}

// FsState exclusively owns one superblock, one inode bitmap and table,
// and one block bitmap and table. Bitmap bits and the superblock
// counters only ever change together.
type FsState struct {
	Meta   *super.FsMeta
	ibmap  *bitmap.Bitmap
	bbmap  *bitmap.Bitmap
	inodes []*inode.Inode
	blks   []disk.Block

	stats [numOps]opStat
}

// MkFsState creates a fresh filesystem: reserved ranges pre-accounted,
// root directory in place with "." and "..".
func MkFsState(cfg Config) *FsState {
	nblks := cfg.NumBlocks()
	st := &FsState{
		Meta:   super.MkFsMeta(cfg.MaxInodes, nblks),
		ibmap:  bitmap.New(common.ReservedInodes, cfg.MaxInodes),
		bbmap:  bitmap.New(common.ReservedBlocks, nblks),
		inodes: make([]*inode.Inode, cfg.MaxInodes),
		blks:   make([]disk.Block, nblks),
	}
	st.inodes[common.ROOTINUM] = inode.MkRootInode()
	if err := st.mkRootDir(); err != nil {
		panic(fmt.Sprintf("MkFsState: root init: %v", err))
	}
	util.DPrintf(1, "MkFsState: %v", st.Meta)
	return st
}

// AllocInode hands out the lowest free inode id and installs a fresh
// inode in the table. The bitmap flip, counter change, and table write
// form one transaction: if the counter cannot move, the bit is put
// back.
func (st *FsState) AllocInode(kind inode.Ftype, perm uint16) (common.Inum, error) {
	defer st.record(opAllocInode, time.Now())

	idx, ok := st.ibmap.FindFirstFree()
	if !ok {
		return common.NULLINUM, ErrNoFreeInodes
	}
	if err := st.ibmap.SetAlloc(idx); err != nil {
		return common.NULLINUM, fmt.Errorf("alloc inode %d: %w", idx, err)
	}
	if err := st.Meta.DecFreeInoCount(); err != nil {
		st.ibmap.SetFree(idx)
		return common.NULLINUM, fmt.Errorf("alloc inode %d: %w", idx, err)
	}
	st.inodes[idx] = inode.MkInode(common.Inum(idx), kind, perm)
	util.DPrintf(1, "AllocInode -> # %d", idx)
	return common.Inum(idx), nil
}

// FreeInode releases every block the inode still references, then
// frees the id. Restricted ids (the sentinel and the root) cannot be
// freed.
func (st *FsState) FreeInode(inum common.Inum) error {
	defer st.record(opFreeInode, time.Now())

	// every rejection must happen before the first block is released,
	// so a failed free leaves the state untouched
	idx := uint64(inum)
	if idx < common.ReservedInodes || idx >= uint64(len(st.inodes)) {
		return ErrInvalidInoId
	}
	ip := st.inodes[idx]
	if ip == nil {
		// distinguish a double free from a bit/table mismatch
		alloced, err := st.ibmap.IsAlloced(idx)
		if err != nil {
			return ErrInvalidInoId
		}
		if alloced {
			return ErrInodeNotFound
		}
		return fmt.Errorf("free inode %d: %w", idx, bitmap.ErrAlreadyFree)
	}
	if st.Meta.FreeInoCount >= st.Meta.MaxFreeInodes() {
		return fmt.Errorf("free inode %d: %w", idx, super.ErrInoCountExceedingMax)
	}
	if err := st.freeInodeBlocks(ip); err != nil {
		return fmt.Errorf("free inode %d: %w", idx, err)
	}
	if err := st.ibmap.SetFree(idx); err != nil {
		return fmt.Errorf("free inode %d: %w", idx, err)
	}
	if err := st.Meta.IncFreeInoCount(); err != nil {
		st.ibmap.SetAlloc(idx)
		return fmt.Errorf("free inode %d: %w", idx, err)
	}
	st.inodes[idx] = nil
	util.DPrintf(1, "FreeInode # %d", idx)
	return nil
}

// AllocBlock hands out the lowest free block id with the block's
// contents zeroed.
func (st *FsState) AllocBlock() (common.Bnum, error) {
	defer st.record(opAllocBlock, time.Now())

	idx, ok := st.bbmap.FindFirstFree()
	if !ok {
		return common.NULLBNUM, bitmap.ErrNoFreeEntries
	}
	if err := st.bbmap.SetAlloc(idx); err != nil {
		return common.NULLBNUM, fmt.Errorf("alloc block %d: %w", idx, err)
	}
	if err := st.Meta.DecFreeBlkCount(); err != nil {
		st.bbmap.SetFree(idx)
		return common.NULLBNUM, fmt.Errorf("alloc block %d: %w", idx, err)
	}
	st.blks[idx] = make(disk.Block, common.BlockSize)
	return idx, nil
}

func (st *FsState) FreeBlock(bnum common.Bnum) error {
	defer st.record(opFreeBlock, time.Now())

	if bnum >= uint64(len(st.blks)) {
		return bitmap.ErrRestrictedEntry
	}
	if err := st.bbmap.SetFree(bnum); err != nil {
		return fmt.Errorf("free block %d: %w", bnum, err)
	}
	if err := st.Meta.IncFreeBlkCount(); err != nil {
		st.bbmap.SetAlloc(bnum)
		return fmt.Errorf("free block %d: %w", bnum, err)
	}
	st.blks[bnum] = nil
	return nil
}

// GetInode is a read-only lookup. An id whose table slot is empty is
// ErrInodeNotFound even if its bitmap bit happens to be set.
func (st *FsState) GetInode(inum common.Inum) (*inode.Inode, error) {
	defer st.record(opGetInode, time.Now())

	if uint64(inum) >= uint64(len(st.inodes)) {
		return nil, ErrInvalidInoId
	}
	ip := st.inodes[inum]
	if ip == nil {
		return nil, ErrInodeNotFound
	}
	return ip, nil
}

func (st *FsState) GetRootInode() (*inode.Inode, error) {
	return st.GetInode(common.ROOTINUM)
}

// AdoptInode installs an externally decoded inode under its own id,
// marking the id allocated. Used when replaying state from elsewhere.
func (st *FsState) AdoptInode(ip *inode.Inode) error {
	idx := uint64(ip.Inum)
	if idx >= uint64(len(st.inodes)) {
		return ErrInvalidInoId
	}
	alloced, err := st.ibmap.IsAlloced(idx)
	if err != nil {
		return fmt.Errorf("adopt inode %d: %w", idx, err)
	}
	if alloced {
		return fmt.Errorf("adopt inode %d: %w", idx, bitmap.ErrAlreadyAlloced)
	}
	if err := st.ibmap.SetAlloc(idx); err != nil {
		return fmt.Errorf("adopt inode %d: %w", idx, err)
	}
	if err := st.Meta.DecFreeInoCount(); err != nil {
		st.ibmap.SetFree(idx)
		return fmt.Errorf("adopt inode %d: %w", idx, err)
	}
	st.inodes[idx] = ip
	return nil
}

// NumFreeInodes and NumFreeBlocks read the bitmaps, not the counters;
// the two must agree at all times.
func (st *FsState) NumFreeInodes() uint64 {
	return st.ibmap.NumFree()
}

func (st *FsState) NumFreeBlocks() uint64 {
	return st.bbmap.NumFree()
}

// allocInodeBlock allocates a block on behalf of ip.
func (st *FsState) allocInodeBlock(ip *inode.Inode) (common.Bnum, error) {
	bnum, err := st.AllocBlock()
	if err != nil {
		return common.NULLBNUM, err
	}
	ip.Blocks += 1
	return bnum, nil
}

// freeInodeBlock releases a block owned by ip.
func (st *FsState) freeInodeBlock(ip *inode.Inode, bnum common.Bnum) error {
	if err := st.FreeBlock(bnum); err != nil {
		return err
	}
	ip.Blocks -= 1
	return nil
}
