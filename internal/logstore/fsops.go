package logstore

import (
	"os"

	"golang.org/x/sys/unix"
)

var (
	mkdirAllOp  = os.MkdirAll
	openFileOp  = os.OpenFile
	statOp      = func(f *os.File) (os.FileInfo, error) { return f.Stat() }
	readAtOp    = func(f *os.File, b []byte, off int64) (int, error) { return f.ReadAt(b, off) }
	writeAtOp   = func(f *os.File, b []byte, off int64) (int, error) { return f.WriteAt(b, off) }
	truncateOp  = func(f *os.File, size int64) error { return f.Truncate(size) }
	fdatasyncOp = func(f *os.File) error { return unix.Fdatasync(int(f.Fd())) }
)
