package fs

import (
	"fmt"
	"time"

	"github.com/raghumanimehta/go-memfs/common"
	"github.com/raghumanimehta/go-memfs/dir"
	"github.com/raghumanimehta/go-memfs/inode"
	"github.com/raghumanimehta/go-memfs/util"
)

// A directory's entry table lives in exactly one block, reached through
// the inode's first direct pointer and allocated on first insert.

func (st *FsState) dirInode(inum common.Inum) (*inode.Inode, error) {
	ip, err := st.GetInode(inum)
	if err != nil {
		return nil, err
	}
	if ip.Kind != inode.FtypeDir {
		return nil, ErrNotADirectory
	}
	return ip, nil
}

func (st *FsState) readDir(ip *inode.Inode) (*dir.Directory, error) {
	bnum := ip.Blks[0]
	if bnum == common.NULLBNUM {
		return dir.MkDirectory(), nil
	}
	return dir.DecodeDir(st.blks[bnum])
}

func (st *FsState) writeDir(ip *inode.Inode, d *dir.Directory) error {
	bnum := ip.Blks[0]
	if bnum == common.NULLBNUM {
		fresh, err := st.allocInodeBlock(ip)
		if err != nil {
			return err
		}
		ip.Blks[0] = fresh
		ip.Size = common.BlockSize
		bnum = fresh
	}
	copy(st.blks[bnum], d.Encode())
	ip.UpdateMtime()
	return nil
}

// LookupName resolves a name in a directory to an inode id.
func (st *FsState) LookupName(dirInum common.Inum, name string) (common.Inum, error) {
	defer st.record(opLookupName, time.Now())

	ip, err := st.dirInode(dirInum)
	if err != nil {
		return common.NULLINUM, err
	}
	d, err := st.readDir(ip)
	if err != nil {
		return common.NULLINUM, err
	}
	inum, ok := d.Lookup(name)
	if !ok {
		return common.NULLINUM, dir.ErrNameNotFound
	}
	return inum, nil
}

// AddName links inum under name in the directory. The target inode
// must be currently allocated; a directory entry never refers to an
// empty table slot.
func (st *FsState) AddName(dirInum common.Inum, inum common.Inum, name string) error {
	defer st.record(opAddName, time.Now())

	ip, err := st.dirInode(dirInum)
	if err != nil {
		return err
	}
	if _, err := st.GetInode(inum); err != nil {
		return fmt.Errorf("add %q -> # %d: %w", name, inum, err)
	}
	de, err := dir.MkDirEnt(inum, name)
	if err != nil {
		return err
	}
	d, err := st.readDir(ip)
	if err != nil {
		return err
	}
	if err := d.AddEntry(de); err != nil {
		return err
	}
	util.DPrintf(5, "AddName # %d: %q -> # %d", dirInum, name, inum)
	return st.writeDir(ip, d)
}

// RemoveName unlinks a name from the directory. The referenced inode
// itself is left alone; freeing it is the caller's decision.
func (st *FsState) RemoveName(dirInum common.Inum, name string) error {
	defer st.record(opRemoveName, time.Now())

	ip, err := st.dirInode(dirInum)
	if err != nil {
		return err
	}
	d, err := st.readDir(ip)
	if err != nil {
		return err
	}
	inum, err := d.RemoveEntry(name)
	if err != nil {
		return err
	}
	util.DPrintf(5, "RemoveName # %d: %q (was # %d)", dirInum, name, inum)
	return st.writeDir(ip, d)
}

// ReadDir lists the directory's occupied entries in slot order.
func (st *FsState) ReadDir(dirInum common.Inum) ([]dir.DirEnt, error) {
	ip, err := st.dirInode(dirInum)
	if err != nil {
		return nil, err
	}
	d, err := st.readDir(ip)
	if err != nil {
		return nil, err
	}
	return d.Entries(), nil
}

// IsDirEmpty reports whether the directory holds anything besides "."
// and "..".
func (st *FsState) IsDirEmpty(dirInum common.Inum) (bool, error) {
	ents, err := st.ReadDir(dirInum)
	if err != nil {
		return false, err
	}
	for _, de := range ents {
		if de.Name != "." && de.Name != ".." {
			return false, nil
		}
	}
	return true, nil
}

// InitDir seeds a fresh directory with "." and "..".
func (st *FsState) InitDir(dirInum common.Inum, parent common.Inum) error {
	if err := st.AddName(dirInum, dirInum, "."); err != nil {
		return err
	}
	return st.AddName(dirInum, parent, "..")
}

func (st *FsState) mkRootDir() error {
	return st.InitDir(common.ROOTINUM, common.ROOTINUM)
}
