package fs

import (
	"fmt"
	"io"

	"github.com/tchajed/goose/machine/disk"
	"github.com/tchajed/marshal"
	"github.com/ulikunitz/xz"

	"github.com/raghumanimehta/go-memfs/bitmap"
	"github.com/raghumanimehta/go-memfs/common"
	"github.com/raghumanimehta/go-memfs/inode"
	"github.com/raghumanimehta/go-memfs/super"
	"github.com/raghumanimehta/go-memfs/util"
)

// Snapshot format (xz-compressed): magic, superblock, both packed
// bitmaps, then the allocated inodes and blocks keyed by id. This is
// the "reload" constructor's input; durability policy around it is the
// caller's problem.

var snapMagic = []byte("MEMFSNAP")

func (st *FsState) countInodes() uint64 {
	var n uint64
	for _, ip := range st.inodes {
		if ip != nil {
			n += 1
		}
	}
	return n
}

func (st *FsState) countBlocks() uint64 {
	var n uint64
	for _, blk := range st.blks {
		if blk != nil {
			n += 1
		}
	}
	return n
}

// SaveSnapshot writes the whole state to w and stamps Wtime.
func (st *FsState) SaveSnapshot(w io.Writer) error {
	st.Meta.StampWtime()

	ibits := st.ibmap.Bytes()
	bbits := st.bbmap.Bytes()
	nino := st.countInodes()
	nblk := st.countBlocks()
	sz := uint64(len(snapMagic)) + super.SUPERSZ +
		uint64(len(ibits)) + uint64(len(bbits)) +
		8 + nino*inode.INODESZ +
		8 + nblk*(8+common.BlockSize)

	enc := marshal.NewEnc(sz)
	enc.PutBytes(snapMagic)
	enc.PutBytes(st.Meta.Encode())
	enc.PutBytes(ibits)
	enc.PutBytes(bbits)
	enc.PutInt(nino)
	for _, ip := range st.inodes {
		if ip != nil {
			enc.PutBytes(ip.Encode())
		}
	}
	enc.PutInt(nblk)
	for bnum, blk := range st.blks {
		if blk != nil {
			enc.PutInt(uint64(bnum))
			enc.PutBytes(blk)
		}
	}

	zw, err := xz.NewWriter(w)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	if _, err := zw.Write(enc.Finish()); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	util.DPrintf(1, "SaveSnapshot: %d inodes %d blocks", nino, nblk)
	return nil
}

// LoadFsState rebuilds a filesystem from a snapshot, re-checking the
// counter/bitmap agreement invariant before handing the state back.
func LoadFsState(r io.Reader) (*FsState, error) {
	zr, err := xz.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	need := uint64(len(snapMagic)) + super.SUPERSZ
	if uint64(len(raw)) < need {
		return nil, ErrCorruptSnapshot
	}

	dec := marshal.NewDec(raw)
	if string(dec.GetBytes(uint64(len(snapMagic)))) != string(snapMagic) {
		return nil, ErrCorruptSnapshot
	}
	meta := super.Decode(dec.GetBytes(super.SUPERSZ))
	if meta.InoCount <= common.ReservedInodes || meta.BlkCount <= common.ReservedBlocks {
		return nil, ErrCorruptSnapshot
	}

	ilen := util.RoundUp(meta.InoCount, 8)
	blen := util.RoundUp(meta.BlkCount, 8)
	need += ilen + blen + 8
	if uint64(len(raw)) < need {
		return nil, ErrCorruptSnapshot
	}
	ibmap, err := bitmap.Load(common.ReservedInodes, meta.InoCount, dec.GetBytes(ilen))
	if err != nil {
		return nil, ErrCorruptSnapshot
	}
	bbmap, err := bitmap.Load(common.ReservedBlocks, meta.BlkCount, dec.GetBytes(blen))
	if err != nil {
		return nil, ErrCorruptSnapshot
	}

	st := &FsState{
		Meta:   meta,
		ibmap:  ibmap,
		bbmap:  bbmap,
		inodes: make([]*inode.Inode, meta.InoCount),
		blks:   make([]disk.Block, meta.BlkCount),
	}

	nino := dec.GetInt()
	need += nino*inode.INODESZ + 8
	if uint64(len(raw)) < need {
		return nil, ErrCorruptSnapshot
	}
	for i := uint64(0); i < nino; i++ {
		ip := inode.Decode(dec.GetBytes(inode.INODESZ))
		idx := uint64(ip.Inum)
		if idx == 0 || idx >= meta.InoCount || st.inodes[idx] != nil {
			return nil, ErrCorruptSnapshot
		}
		st.inodes[idx] = ip
	}
	nblk := dec.GetInt()
	need += nblk * (8 + common.BlockSize)
	if uint64(len(raw)) < need {
		return nil, ErrCorruptSnapshot
	}
	for i := uint64(0); i < nblk; i++ {
		bnum := dec.GetInt()
		if bnum < common.ReservedBlocks || bnum >= meta.BlkCount || st.blks[bnum] != nil {
			return nil, ErrCorruptSnapshot
		}
		blk := make(disk.Block, common.BlockSize)
		copy(blk, dec.GetBytes(common.BlockSize))
		st.blks[bnum] = blk
	}

	// a table entry without its bitmap bit (or the reverse) means the
	// snapshot desynchronized; refuse it rather than repair it
	if st.ibmap.NumFree() != meta.FreeInoCount ||
		st.bbmap.NumFree() != meta.FreeBlkCount {
		return nil, ErrCorruptSnapshot
	}
	for idx := common.ReservedInodes; idx < meta.InoCount; idx++ {
		alloced, _ := st.ibmap.IsAlloced(idx)
		if alloced != (st.inodes[idx] != nil) {
			return nil, ErrCorruptSnapshot
		}
	}
	for bnum := common.ReservedBlocks; bnum < meta.BlkCount; bnum++ {
		alloced, _ := st.bbmap.IsAlloced(bnum)
		if alloced != (st.blks[bnum] != nil) {
			return nil, ErrCorruptSnapshot
		}
	}
	root := st.inodes[common.ROOTINUM]
	if root == nil || root.Kind != inode.FtypeDir {
		return nil, ErrCorruptSnapshot
	}
	util.DPrintf(1, "LoadFsState: %v", meta)
	return st, nil
}
