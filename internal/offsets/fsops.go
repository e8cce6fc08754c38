package offsets

import "os"

var (
	mkdirAllOp   = os.MkdirAll
	readFileOp   = os.ReadFile
	createTempOp = os.CreateTemp
	renameOp     = os.Rename
)
