package fs

import (
	"github.com/tchajed/goose/machine"

	"github.com/raghumanimehta/go-memfs/common"
	"github.com/raghumanimehta/go-memfs/inode"
	"github.com/raghumanimehta/go-memfs/util"
)

// Address translation: logical block bn of an inode maps to a physical
// block through the direct slots (bn < NDIRECT) or through one, two, or
// three levels of pointer blocks. A NULLBNUM pointer at any level is a
// hole.

func (st *FsState) ptrGet(bnum common.Bnum, off uint64) common.Bnum {
	blk := st.blks[bnum]
	return machine.UInt64Get(blk[off*8 : off*8+8])
}

func (st *FsState) ptrPut(bnum common.Bnum, off uint64, val common.Bnum) {
	blk := st.blks[bnum]
	machine.UInt64Put(blk[off*8:off*8+8], val)
}

// indbmap resolves off blocks below root at the given indirection
// level, allocating the pointer blocks and the leaf on the way down.
// Returns the leaf's block number and the (possibly fresh) root.
func (st *FsState) indbmap(ip *inode.Inode, root common.Bnum, level uint64, off uint64) (common.Bnum, common.Bnum, error) {
	if root == common.NULLBNUM {
		fresh, err := st.allocInodeBlock(ip)
		if err != nil {
			return common.NULLBNUM, common.NULLBNUM, err
		}
		root = fresh
	}
	if level == 0 {
		return root, root, nil
	}
	divisor := inode.Pow(level - 1)
	o := off / divisor
	ind := off % divisor

	nxtroot := st.ptrGet(root, o)
	blkno, newnxtroot, err := st.indbmap(ip, nxtroot, level-1, ind)
	if err != nil {
		return common.NULLBNUM, common.NULLBNUM, err
	}
	if newnxtroot != nxtroot {
		st.ptrPut(root, o, newnxtroot)
	}
	util.DPrintf(10, "indbmap: root %d level %d off %d -> %d", root, level, off, blkno)
	return blkno, root, nil
}

// bmap maps logical block bn to a physical block number, allocating
// blocks where none exist yet.
func (st *FsState) bmap(ip *inode.Inode, bn uint64) (common.Bnum, error) {
	if bn >= inode.MaxBlocks() {
		return common.NULLBNUM, ErrOffsetOutOfRange
	}
	if bn < inode.NDIRECT {
		if ip.Blks[bn] == common.NULLBNUM {
			fresh, err := st.allocInodeBlock(ip)
			if err != nil {
				return common.NULLBNUM, err
			}
			ip.Blks[bn] = fresh
		}
		return ip.Blks[bn], nil
	}
	var off = bn - inode.NDIRECT
	var slot uint64
	var level uint64
	if off < inode.Pow(1) {
		slot, level = inode.INDIRECT, 1
	} else if off < inode.Pow(1)+inode.Pow(2) {
		off -= inode.Pow(1)
		slot, level = inode.DINDIRECT, 2
	} else {
		off -= inode.Pow(1) + inode.Pow(2)
		slot, level = inode.TINDIRECT, 3
	}
	blkno, root, err := st.indbmap(ip, ip.Blks[slot], level, off)
	if err != nil {
		return common.NULLBNUM, err
	}
	if root != ip.Blks[slot] {
		ip.Blks[slot] = root
	}
	return blkno, nil
}

// ResolveBlock is the read-only counterpart of bmap: it reports a hole
// as NULLBNUM and never allocates.
func (st *FsState) ResolveBlock(ip *inode.Inode, bn uint64) (common.Bnum, error) {
	if bn >= inode.MaxBlocks() {
		return common.NULLBNUM, ErrOffsetOutOfRange
	}
	if bn < inode.NDIRECT {
		return ip.Blks[bn], nil
	}
	var off = bn - inode.NDIRECT
	var root common.Bnum
	var level uint64
	if off < inode.Pow(1) {
		root, level = ip.Blks[inode.INDIRECT], 1
	} else if off < inode.Pow(1)+inode.Pow(2) {
		off -= inode.Pow(1)
		root, level = ip.Blks[inode.DINDIRECT], 2
	} else {
		off -= inode.Pow(1) + inode.Pow(2)
		root, level = ip.Blks[inode.TINDIRECT], 3
	}
	for level > 0 {
		if root == common.NULLBNUM {
			return common.NULLBNUM, nil
		}
		divisor := inode.Pow(level - 1)
		root = st.ptrGet(root, off/divisor)
		off = off % divisor
		level -= 1
	}
	return root, nil
}

// indshrink frees the blocks reachable below root for logical offset
// bn. It assumes all offsets past bn are already free, and returns the
// root itself once its last pointer is gone so the caller can release
// it.
func (st *FsState) indshrink(ip *inode.Inode, root common.Bnum, level uint64, bn uint64) (common.Bnum, error) {
	if root == common.NULLBNUM {
		return common.NULLBNUM, nil
	}
	if level == 0 {
		return root, nil
	}
	divisor := inode.Pow(level - 1)
	off := bn / divisor
	ind := bn % divisor
	nxtroot := st.ptrGet(root, off)
	if nxtroot != common.NULLBNUM {
		freeroot, err := st.indshrink(ip, nxtroot, level-1, ind)
		if err != nil {
			return common.NULLBNUM, err
		}
		if freeroot != common.NULLBNUM {
			st.ptrPut(root, off, common.NULLBNUM)
			if err := st.freeInodeBlock(ip, freeroot); err != nil {
				return common.NULLBNUM, err
			}
		}
	}
	if off == 0 && ind == 0 {
		return root, nil
	}
	return common.NULLBNUM, nil
}

// shrink releases every block with logical index >= keep, pointer
// blocks included.
func (st *FsState) shrink(ip *inode.Inode, keep uint64, from uint64) error {
	util.DPrintf(5, "shrink # %d: from %d to %d blocks", ip.Inum, from, keep)
	for cur := from; cur > keep; cur-- {
		bn := cur - 1
		if bn < inode.NDIRECT {
			if ip.Blks[bn] != common.NULLBNUM {
				if err := st.freeInodeBlock(ip, ip.Blks[bn]); err != nil {
					return err
				}
				ip.Blks[bn] = common.NULLBNUM
			}
			continue
		}
		var off = bn - inode.NDIRECT
		var slot uint64
		var level uint64
		if off < inode.Pow(1) {
			slot, level = inode.INDIRECT, 1
		} else if off < inode.Pow(1)+inode.Pow(2) {
			off -= inode.Pow(1)
			slot, level = inode.DINDIRECT, 2
		} else {
			off -= inode.Pow(1) + inode.Pow(2)
			slot, level = inode.TINDIRECT, 3
		}
		freeroot, err := st.indshrink(ip, ip.Blks[slot], level, off)
		if err != nil {
			return err
		}
		if freeroot != common.NULLBNUM {
			if err := st.freeInodeBlock(ip, freeroot); err != nil {
				return err
			}
			ip.Blks[slot] = common.NULLBNUM
		}
	}
	return nil
}

// freeInodeBlocks releases everything the inode references; the inode
// ends up with zero blocks and all pointers reset.
func (st *FsState) freeInodeBlocks(ip *inode.Inode) error {
	return st.shrink(ip, 0, util.RoundUp(ip.Size, common.BlockSize))
}
