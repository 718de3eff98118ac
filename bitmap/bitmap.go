// Package bitmap tracks free/used object ids, one bit per id.
package bitmap

import (
	"math/bits"

	"github.com/raghumanimehta/go-memfs/common"
	"github.com/raghumanimehta/go-memfs/util"
)

const (
	ErrRestrictedEntry common.ConstError = "restricted entry"
	ErrAlreadyAlloced  common.ConstError = "entry is already allocated"
	ErrAlreadyFree     common.ConstError = "entry is already free"
	ErrNoFreeEntries   common.ConstError = "no free entries on alloc"
	ErrBadVector       common.ConstError = "packed vector does not match capacity"
)

// Bitmap is a packed bit vector over ids [0, max). Bit 0 corresponds to
// id 0; a set bit means in-use. The prefix [0, reserved) is pre-marked
// in-use at construction and can never be flipped through SetAlloc or
// SetFree.
type Bitmap struct {
	bits     []byte
	reserved uint64
	max      uint64
}

func New(reserved uint64, max uint64) *Bitmap {
	if reserved > max {
		panic("bitmap: reserved prefix exceeds capacity")
	}
	bm := &Bitmap{
		bits:     make([]byte, util.RoundUp(max, 8)),
		reserved: reserved,
		max:      max,
	}
	for idx := uint64(0); idx < reserved; idx++ {
		bm.setBit(idx)
	}
	return bm
}

func (bm *Bitmap) setBit(idx uint64) {
	bm.bits[idx/8] = bm.bits[idx/8] | (1 << (idx % 8))
}

func (bm *Bitmap) clearBit(idx uint64) {
	bm.bits[idx/8] = bm.bits[idx/8] & ^(byte(1) << (idx % 8))
}

func (bm *Bitmap) bit(idx uint64) bool {
	return bm.bits[idx/8]&(1<<(idx%8)) != 0
}

func (bm *Bitmap) restricted(idx uint64) bool {
	return idx < bm.reserved || idx >= bm.max
}

func (bm *Bitmap) Reserved() uint64 {
	return bm.reserved
}

func (bm *Bitmap) Max() uint64 {
	return bm.max
}

// FindFirstFree returns the lowest free id in [reserved, max), or false
// if every id is in use. Linear scan; capacities are small enough that
// a search cursor isn't worth carrying.
func (bm *Bitmap) FindFirstFree() (uint64, bool) {
	for idx := bm.reserved; idx < bm.max; idx++ {
		if !bm.bit(idx) {
			return idx, true
		}
	}
	return 0, false
}

func (bm *Bitmap) SetAlloc(idx uint64) error {
	if bm.restricted(idx) {
		util.DPrintf(0, "bitmap: alloc of restricted index %d", idx)
		return ErrRestrictedEntry
	}
	if bm.bit(idx) {
		return ErrAlreadyAlloced
	}
	bm.setBit(idx)
	return nil
}

func (bm *Bitmap) SetFree(idx uint64) error {
	if bm.restricted(idx) {
		util.DPrintf(0, "bitmap: free of restricted index %d", idx)
		return ErrRestrictedEntry
	}
	if !bm.bit(idx) {
		return ErrAlreadyFree
	}
	bm.clearBit(idx)
	return nil
}

func (bm *Bitmap) IsAlloced(idx uint64) (bool, error) {
	if bm.restricted(idx) {
		return false, ErrRestrictedEntry
	}
	return bm.bit(idx), nil
}

// NumFree counts the clear bits in the allocatable range [reserved, max).
func (bm *Bitmap) NumFree() uint64 {
	var used uint64
	for _, b := range bm.bits {
		used += uint64(bits.OnesCount8(b))
	}
	// every reserved bit is set, and bits at or past max never are
	return (bm.max - bm.reserved) - (used - bm.reserved)
}

// Bytes returns a copy of the packed vector, for snapshot encoding.
func (bm *Bitmap) Bytes() []byte {
	out := make([]byte, len(bm.bits))
	copy(out, bm.bits)
	return out
}

// Load rebuilds a bitmap from a packed vector produced by Bytes. The
// reserved prefix must be marked in-use and no bit at or past max may
// be set (NumFree would undercount otherwise).
func Load(reserved uint64, max uint64, packed []byte) (*Bitmap, error) {
	if uint64(len(packed)) != util.RoundUp(max, 8) {
		return nil, ErrBadVector
	}
	bm := &Bitmap{
		bits:     make([]byte, len(packed)),
		reserved: reserved,
		max:      max,
	}
	copy(bm.bits, packed)
	for idx := uint64(0); idx < reserved; idx++ {
		if !bm.bit(idx) {
			return nil, ErrBadVector
		}
	}
	for idx := max; idx < uint64(len(packed))*8; idx++ {
		if bm.bit(idx) {
			return nil, ErrBadVector
		}
	}
	return bm, nil
}
