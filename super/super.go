// Package super holds the superblock: the aggregate inode/block counts
// that must stay in lock-step with the allocation bitmaps.
package super

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tchajed/marshal"

	"github.com/raghumanimehta/go-memfs/common"
)

// SUPERSZ is the encoded size of the superblock.
const SUPERSZ uint64 = 128

const (
	ErrInoCountExceedingMax  common.ConstError = "free inode count exceeding max"
	ErrInoCountBelowReserved common.ConstError = "free inode count below zero"
	ErrBlkCountExceedingMax  common.ConstError = "free block count exceeding max"
	ErrBlkCountBelowReserved common.ConstError = "free block count below zero"
)

// FsMeta is created once at mkfs time with the reserved ranges already
// accounted for, and is mutated only through the counter operations
// below. The counters never touch the bitmaps; keeping the two in
// agreement is the fs layer's job.
type FsMeta struct {
	InoCount     uint64 // capacity, fixed at creation
	BlkCount     uint64 // capacity, fixed at creation
	FreeInoCount uint64
	FreeBlkCount uint64
	SuperBlkNo   common.Bnum
	VolumeID     uuid.UUID
	Mtime        uint64 // unix seconds of the last counter change
	Wtime        uint64 // unix seconds of the last snapshot write
}

func MkFsMeta(inoCount uint64, blkCount uint64) *FsMeta {
	if inoCount <= common.ReservedInodes || blkCount <= common.ReservedBlocks {
		panic("MkFsMeta: capacity does not cover the reserved ranges")
	}
	id, _ := uuid.NewRandom()
	return &FsMeta{
		InoCount:     inoCount,
		BlkCount:     blkCount,
		FreeInoCount: inoCount - common.ReservedInodes,
		FreeBlkCount: blkCount - common.ReservedBlocks,
		SuperBlkNo:   0,
		VolumeID:     id,
	}
}

func (m *FsMeta) String() string {
	return fmt.Sprintf("vol %v ino %d/%d blk %d/%d",
		m.VolumeID, m.FreeInoCount, m.InoCount, m.FreeBlkCount, m.BlkCount)
}

// MaxFreeInodes is the upper bound of FreeInoCount.
func (m *FsMeta) MaxFreeInodes() uint64 {
	return m.InoCount - common.ReservedInodes
}

// MaxFreeBlocks is the upper bound of FreeBlkCount.
func (m *FsMeta) MaxFreeBlocks() uint64 {
	return m.BlkCount - common.ReservedBlocks
}

func (m *FsMeta) stamp() {
	m.Mtime = uint64(time.Now().Unix())
}

func (m *FsMeta) StampWtime() {
	m.Wtime = uint64(time.Now().Unix())
}

func (m *FsMeta) DecFreeInoCount() error {
	if m.FreeInoCount == 0 {
		return ErrInoCountBelowReserved
	}
	m.FreeInoCount -= 1
	m.stamp()
	return nil
}

func (m *FsMeta) IncFreeInoCount() error {
	if m.FreeInoCount >= m.MaxFreeInodes() {
		return ErrInoCountExceedingMax
	}
	m.FreeInoCount += 1
	m.stamp()
	return nil
}

func (m *FsMeta) DecFreeBlkCount() error {
	if m.FreeBlkCount == 0 {
		return ErrBlkCountBelowReserved
	}
	m.FreeBlkCount -= 1
	m.stamp()
	return nil
}

func (m *FsMeta) IncFreeBlkCount() error {
	if m.FreeBlkCount >= m.MaxFreeBlocks() {
		return ErrBlkCountExceedingMax
	}
	m.FreeBlkCount += 1
	m.stamp()
	return nil
}

func (m *FsMeta) Encode() []byte {
	enc := marshal.NewEnc(SUPERSZ)
	enc.PutInt(m.InoCount)
	enc.PutInt(m.BlkCount)
	enc.PutInt(m.FreeInoCount)
	enc.PutInt(m.FreeBlkCount)
	enc.PutInt(m.SuperBlkNo)
	enc.PutBytes(m.VolumeID[:])
	enc.PutInt(m.Mtime)
	enc.PutInt(m.Wtime)
	return enc.Finish()
}

func Decode(b []byte) *FsMeta {
	m := new(FsMeta)
	dec := marshal.NewDec(b)
	m.InoCount = dec.GetInt()
	m.BlkCount = dec.GetInt()
	m.FreeInoCount = dec.GetInt()
	m.FreeBlkCount = dec.GetInt()
	m.SuperBlkNo = dec.GetInt()
	copy(m.VolumeID[:], dec.GetBytes(16))
	m.Mtime = dec.GetInt()
	m.Wtime = dec.GetInt()
	return m
}
