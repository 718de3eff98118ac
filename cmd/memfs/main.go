// memfs builds an in-memory filesystem, runs a small create/write/read/
// remove workload against it, and prints per-operation statistics.
// Geometry comes from the environment (MEMFS_CAPACITY_BYTES,
// MEMFS_MAX_INODES), overridable with flags.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/kelseyhightower/envconfig"

	"github.com/raghumanimehta/go-memfs/common"
	"github.com/raghumanimehta/go-memfs/fs"
	"github.com/raghumanimehta/go-memfs/inode"
)

func mkdata(sz uint64) []byte {
	data := make([]byte, sz)
	for i := range data {
		data[i] = byte(i % 128)
	}
	return data
}

func smallfile(st *fs.FsState, name string, data []byte) {
	inum, err := st.AllocInode(inode.FtypeRegular, 0o644)
	if err != nil {
		log.Fatalf("alloc %s: %v", name, err)
	}
	if err := st.AddName(common.ROOTINUM, inum, name); err != nil {
		log.Fatalf("link %s: %v", name, err)
	}
	if _, err := st.WriteAt(inum, 0, data); err != nil {
		log.Fatalf("write %s: %v", name, err)
	}
	got, _, err := st.ReadAt(inum, 0, uint64(len(data)))
	if err != nil || len(got) != len(data) {
		log.Fatalf("read %s: %d bytes, %v", name, len(got), err)
	}
	if err := st.RemoveName(common.ROOTINUM, name); err != nil {
		log.Fatalf("unlink %s: %v", name, err)
	}
	if err := st.FreeInode(inum); err != nil {
		log.Fatalf("free %s: %v", name, err)
	}
}

func main() {
	var cfg fs.Config
	if err := envconfig.Process("memfs", &cfg); err != nil {
		log.Fatalf("config: %v", err)
	}
	flag.Uint64Var(&cfg.CapacityBytes, "capacity", cfg.CapacityBytes,
		"backing store capacity in bytes")
	flag.Uint64Var(&cfg.MaxInodes, "inodes", cfg.MaxInodes,
		"maximum number of inodes")
	iters := flag.Int("iters", 1000, "workload iterations")
	filesize := flag.Uint64("filesize", 100, "bytes per file")
	flag.Parse()

	st := fs.MkFsState(cfg)
	fmt.Printf("memfs: %v\n", st.Meta)

	data := mkdata(*filesize)
	for i := 0; i < *iters; i++ {
		smallfile(st, "x", data)
	}

	st.WriteOpStats(os.Stdout)
}
