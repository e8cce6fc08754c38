package logstore

import "encoding/binary"

const recordHeaderSize = 4

// maxRecordSize is the largest payload length representable by the 4-byte
// big-endian prefix.
const maxRecordSize = 1<<32 - 1

func putRecordSize(buf []byte, size int) {
	binary.BigEndian.PutUint32(buf, uint32(size))
}

func readRecordSize(buf []byte) int {
	return int(binary.BigEndian.Uint32(buf))
}
