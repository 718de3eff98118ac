// Package dir encodes directory contents: a fixed-capacity table of
// name -> inode-id entries whose encoding fills exactly one block.
package dir

import (
	"unicode/utf8"

	"github.com/tchajed/goose/machine"
	"github.com/tchajed/goose/machine/disk"

	"github.com/raghumanimehta/go-memfs/common"
)

const (
	DIRENTSZ   uint64 = 272 // 8 inum + 8 name length + 256 name buffer
	MAXNAMELEN uint64 = 255
	NDIRENT    uint64 = disk.BlockSize / DIRENTSZ // entries per directory
)

const (
	ErrNameEmpty     common.ConstError = "name is empty"
	ErrNameTooLong   common.ConstError = "name is too long"
	ErrInvalidUtf8   common.ConstError = "name is not valid utf-8"
	ErrNoEmptySlot   common.ConstError = "no empty slot in directory"
	ErrDuplicateName common.ConstError = "name already present in directory"
	ErrNameNotFound  common.ConstError = "name not found in directory"
)

// DirEnt pairs a name with the inode it refers to. Inum is never
// NULLINUM in an occupied slot; the encoded record stores the name's
// exact byte length alongside a fixed buffer.
type DirEnt struct {
	Inum common.Inum
	Name string // 0 < len <= MAXNAMELEN bytes, valid UTF-8
}

func MkDirEnt(inum common.Inum, name string) (DirEnt, error) {
	if len(name) == 0 {
		return DirEnt{}, ErrNameEmpty
	}
	if uint64(len(name)) > MAXNAMELEN {
		return DirEnt{}, ErrNameTooLong
	}
	if !utf8.ValidString(name) {
		return DirEnt{}, ErrInvalidUtf8
	}
	return DirEnt{Inum: inum, Name: name}, nil
}

// Caller must ensure de.Name fits.
func encodeDirEnt(de DirEnt, d []byte) {
	machine.UInt64Put(d[:8], uint64(de.Inum))
	machine.UInt64Put(d[8:16], uint64(len(de.Name)))
	copy(d[16:], de.Name)
}

// decodeDirEnt re-checks the stored bytes; content is only ever written
// through MkDirEnt, so failures here mean a corrupt block.
func decodeDirEnt(d []byte) (DirEnt, error) {
	inum := common.Inum(machine.UInt64Get(d[:8]))
	l := machine.UInt64Get(d[8:16])
	if inum == common.NULLINUM {
		return DirEnt{}, nil // free slot
	}
	if l == 0 {
		return DirEnt{}, ErrNameEmpty
	}
	if l > MAXNAMELEN {
		return DirEnt{}, ErrNameTooLong
	}
	name := string(d[16 : 16+l])
	if !utf8.ValidString(name) {
		return DirEnt{}, ErrInvalidUtf8
	}
	return DirEnt{Inum: inum, Name: name}, nil
}

// Directory is a fixed array of NDIRENT optional entries. A slot with
// Inum == NULLINUM is free. Slot order is stable across inserts and
// removals of other names.
type Directory struct {
	ents []DirEnt
}

func MkDirectory() *Directory {
	return &Directory{ents: make([]DirEnt, NDIRENT)}
}

// Entries returns the occupied slots in slot order.
func (d *Directory) Entries() []DirEnt {
	var out []DirEnt
	for _, de := range d.ents {
		if de.Inum != common.NULLINUM {
			out = append(out, de)
		}
	}
	return out
}

// SetEntries replaces the whole table. Each entry lands in its own
// slot; more entries than slots is ErrNoEmptySlot, and a repeated name
// is ErrDuplicateName.
func (d *Directory) SetEntries(ents []DirEnt) error {
	if uint64(len(ents)) > NDIRENT {
		return ErrNoEmptySlot
	}
	fresh := make([]DirEnt, NDIRENT)
	seen := make(map[string]bool, len(ents))
	for i, de := range ents {
		if de.Inum == common.NULLINUM {
			continue
		}
		if seen[de.Name] {
			return ErrDuplicateName
		}
		seen[de.Name] = true
		fresh[i] = de
	}
	d.ents = fresh
	return nil
}

// Lookup returns the inode the name refers to, if present.
func (d *Directory) Lookup(name string) (common.Inum, bool) {
	for _, de := range d.ents {
		if de.Inum != common.NULLINUM && de.Name == name {
			return de.Inum, true
		}
	}
	return common.NULLINUM, false
}

// AddEntry stores the entry in the first free slot without disturbing
// the others.
func (d *Directory) AddEntry(de DirEnt) error {
	if _, ok := d.Lookup(de.Name); ok {
		return ErrDuplicateName
	}
	for i := range d.ents {
		if d.ents[i].Inum == common.NULLINUM {
			d.ents[i] = de
			return nil
		}
	}
	return ErrNoEmptySlot
}

// RemoveEntry frees the slot holding name and returns the inode it
// referred to.
func (d *Directory) RemoveEntry(name string) (common.Inum, error) {
	for i := range d.ents {
		if d.ents[i].Inum != common.NULLINUM && d.ents[i].Name == name {
			inum := d.ents[i].Inum
			d.ents[i] = DirEnt{}
			return inum, nil
		}
	}
	return common.NULLINUM, ErrNameNotFound
}

// Encode lays the table out into one block; free slots encode as the
// NULLINUM sentinel.
func (d *Directory) Encode() disk.Block {
	blk := make(disk.Block, disk.BlockSize)
	for i := uint64(0); i < NDIRENT; i++ {
		encodeDirEnt(d.ents[i], blk[i*DIRENTSZ:(i+1)*DIRENTSZ])
	}
	return blk
}

func DecodeDir(blk disk.Block) (*Directory, error) {
	d := MkDirectory()
	for i := uint64(0); i < NDIRENT; i++ {
		de, err := decodeDirEnt(blk[i*DIRENTSZ : (i+1)*DIRENTSZ])
		if err != nil {
			return nil, err
		}
		d.ents[i] = de
	}
	return d, nil
}
