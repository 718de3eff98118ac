package dir

import (
	"strings"
	"testing"

	"github.com/go-test/deep"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raghumanimehta/go-memfs/common"
)

func TestMkDirEntValidation(t *testing.T) {
	assert := assert.New(t)

	_, err := MkDirEnt(2, "")
	assert.ErrorIs(err, ErrNameEmpty)

	longest := strings.Repeat("a", int(MAXNAMELEN))
	de, err := MkDirEnt(2, longest)
	assert.NoError(err)
	assert.Equal(longest, de.Name)

	_, err = MkDirEnt(2, longest+"a")
	assert.ErrorIs(err, ErrNameTooLong)

	_, err = MkDirEnt(2, "bad\xff\xfe")
	assert.ErrorIs(err, ErrInvalidUtf8)
}

func TestDirEntCodec(t *testing.T) {
	assert := assert.New(t)
	de, err := MkDirEnt(9, strings.Repeat("n", int(MAXNAMELEN)))
	require.NoError(t, err)

	buf := make([]byte, DIRENTSZ)
	encodeDirEnt(de, buf)
	got, err := decodeDirEnt(buf)
	assert.NoError(err)
	assert.Equal(de, got)

	// a free slot decodes as the zero entry
	got, err = decodeDirEnt(make([]byte, DIRENTSZ))
	assert.NoError(err)
	assert.Equal(common.NULLINUM, got.Inum)
}

func TestAddLookupRemove(t *testing.T) {
	assert := assert.New(t)
	d := MkDirectory()

	a, _ := MkDirEnt(2, "a")
	b, _ := MkDirEnt(3, "b")
	assert.NoError(d.AddEntry(a))
	assert.NoError(d.AddEntry(b))

	inum, ok := d.Lookup("a")
	assert.True(ok)
	assert.Equal(common.Inum(2), inum)
	_, ok = d.Lookup("c")
	assert.False(ok)

	assert.ErrorIs(d.AddEntry(a), ErrDuplicateName)

	inum, err := d.RemoveEntry("a")
	assert.NoError(err)
	assert.Equal(common.Inum(2), inum)
	_, err = d.RemoveEntry("a")
	assert.ErrorIs(err, ErrNameNotFound)
}

func TestInsertStability(t *testing.T) {
	assert := assert.New(t)
	d := MkDirectory()

	for i, name := range []string{"a", "b", "c"} {
		de, _ := MkDirEnt(common.Inum(i+2), name)
		assert.NoError(d.AddEntry(de))
	}
	_, err := d.RemoveEntry("b")
	assert.NoError(err)

	// the freed slot is reused without disturbing the others
	de, _ := MkDirEnt(9, "d")
	assert.NoError(d.AddEntry(de))
	names := []string{}
	for _, e := range d.Entries() {
		names = append(names, e.Name)
	}
	assert.Equal([]string{"a", "d", "c"}, names)
}

func TestFullDirectory(t *testing.T) {
	assert := assert.New(t)
	d := MkDirectory()

	for i := uint64(0); i < NDIRENT; i++ {
		de, _ := MkDirEnt(common.Inum(i+2), strings.Repeat("f", int(i+1)))
		assert.NoError(d.AddEntry(de))
	}
	de, _ := MkDirEnt(50, "overflow")
	assert.ErrorIs(d.AddEntry(de), ErrNoEmptySlot)
}

func TestSetEntries(t *testing.T) {
	assert := assert.New(t)
	d := MkDirectory()

	a, _ := MkDirEnt(2, "a")
	b, _ := MkDirEnt(3, "b")
	assert.NoError(d.SetEntries([]DirEnt{a, b}))
	assert.Len(d.Entries(), 2)

	tooMany := make([]DirEnt, NDIRENT+1)
	assert.ErrorIs(d.SetEntries(tooMany), ErrNoEmptySlot)

	dup, _ := MkDirEnt(4, "a")
	assert.ErrorIs(d.SetEntries([]DirEnt{a, dup}), ErrDuplicateName)
}

func TestDirBlockCodec(t *testing.T) {
	d := MkDirectory()
	for _, name := range []string{".", "..", "etc", "usr"} {
		de, err := MkDirEnt(common.Inum(len(name)+1), name)
		require.NoError(t, err)
		require.NoError(t, d.AddEntry(de))
	}
	_, err := d.RemoveEntry("etc")
	require.NoError(t, err)

	blk := d.Encode()
	require.Equal(t, int(common.BlockSize), len(blk))
	got, err := DecodeDir(blk)
	require.NoError(t, err)
	if diff := deep.Equal(d.Entries(), got.Entries()); diff != nil {
		t.Error(diff)
	}
}
