package fs

import (
	"io"
	"time"

	"github.com/raghumanimehta/go-memfs/util/stats"
)

type opKind int

const (
	opAllocInode opKind = iota
	opFreeInode
	opAllocBlock
	opFreeBlock
	opGetInode
	opReadAt
	opWriteAt
	opResize
	opLookupName
	opAddName
	opRemoveName
	numOps
)

var opNames = []string{
	"AllocInode",
	"FreeInode",
	"AllocBlock",
	"FreeBlock",
	"GetInode",
	"ReadAt",
	"WriteAt",
	"Resize",
	"LookupName",
	"AddName",
	"RemoveName",
}

type opStat = stats.Op

func (st *FsState) record(op opKind, start time.Time) {
	st.stats[op].Record(start)
}

// WriteOpStats renders a per-operation count/latency table.
func (st *FsState) WriteOpStats(w io.Writer) {
	stats.WriteTable(opNames, st.stats[:], w)
}
