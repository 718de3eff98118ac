package fs

import (
	"time"

	"github.com/raghumanimehta/go-memfs/common"
	"github.com/raghumanimehta/go-memfs/inode"
	"github.com/raghumanimehta/go-memfs/util"
)

// ReadAt returns up to count bytes of the file starting at offset, and
// whether the read reached end of file. Holes read as zeroes.
func (st *FsState) ReadAt(inum common.Inum, offset uint64, count uint64) ([]byte, bool, error) {
	defer st.record(opReadAt, time.Now())

	ip, err := st.GetInode(inum)
	if err != nil {
		return nil, false, err
	}
	if offset >= ip.Size {
		return nil, true, nil
	}
	if count > ip.Size-offset {
		count = ip.Size - offset
	}
	util.DPrintf(5, "ReadAt # %d: off %d cnt %d", inum, offset, count)
	var data = make([]byte, 0, count)
	var n uint64
	var off = offset
	for boff := off / common.BlockSize; n < count; boff++ {
		byteoff := off % common.BlockSize
		nbytes := util.Min(common.BlockSize-byteoff, count-n)
		blkno, err := st.ResolveBlock(ip, boff)
		if err != nil {
			return data, false, err
		}
		if blkno == common.NULLBNUM {
			data = append(data, make([]byte, nbytes)...)
		} else {
			blk := st.blks[blkno]
			data = append(data, blk[byteoff:byteoff+nbytes]...)
		}
		n += nbytes
		off += nbytes
	}
	return data, offset+count >= ip.Size, nil
}

// WriteAt writes data at offset, growing the file and allocating blocks
// as needed. It returns the number of bytes written; a partial count
// with a non-nil error means allocation ran dry mid-write.
func (st *FsState) WriteAt(inum common.Inum, offset uint64, data []byte) (uint64, error) {
	defer st.record(opWriteAt, time.Now())

	ip, err := st.GetInode(inum)
	if err != nil {
		return 0, err
	}
	count := uint64(len(data))
	if offset+count > inode.MaxFileSize() {
		return 0, ErrOffsetOutOfRange
	}
	util.DPrintf(5, "WriteAt # %d: off %d cnt %d", inum, offset, count)
	var cnt uint64
	var off = offset
	var n = count
	var werr error
	for boff := off / common.BlockSize; n > 0; boff++ {
		blkno, err := st.bmap(ip, boff)
		if err != nil {
			werr = err
			break
		}
		byteoff := off % common.BlockSize
		nbytes := util.Min(common.BlockSize-byteoff, n)
		blk := st.blks[blkno]
		copy(blk[byteoff:byteoff+nbytes], data[:nbytes])
		n -= nbytes
		data = data[nbytes:]
		off += nbytes
		cnt += nbytes
	}
	if cnt > 0 {
		if offset+cnt > ip.Size {
			ip.Size = offset + cnt
		}
		ip.UpdateMtime()
	}
	return cnt, werr
}

// Resize sets the file's size. Growing is sparse (no blocks are
// allocated); shrinking releases every block past the new end, pointer
// blocks included, inline.
func (st *FsState) Resize(inum common.Inum, size uint64) error {
	defer st.record(opResize, time.Now())

	ip, err := st.GetInode(inum)
	if err != nil {
		return err
	}
	if size > inode.MaxFileSize() {
		return ErrOffsetOutOfRange
	}
	oldblks := util.RoundUp(ip.Size, common.BlockSize)
	newblks := util.RoundUp(size, common.BlockSize)
	ip.Size = size
	ip.UpdateMtime()
	if newblks < oldblks {
		return st.shrink(ip, newblks, oldblks)
	}
	return nil
}
