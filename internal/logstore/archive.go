package logstore

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/golang/snappy"
)

// ErrArchiveCorrupt reports an archive stream whose framing or compression
// cannot be decoded.
var ErrArchiveCorrupt = errors.New("archive stream is corrupt")

// Archive streams every committed record to w as a sequence of
// [4-byte BE compressed length][snappy block] entries and returns the number
// of records written. Appends may continue concurrently; the archive covers
// the records committed at the time each index is visited.
func (l *Log) Archive(w io.Writer) (uint64, error) {
	var written uint64
	count := l.Count()
	header := make([]byte, recordHeaderSize)
	for index := uint64(0); index < count; index++ {
		payload, err := l.Read(index)
		if err != nil {
			return written, err
		}
		block := snappy.Encode(nil, payload)
		binary.BigEndian.PutUint32(header, uint32(len(block)))
		if _, err := w.Write(header); err != nil {
			return written, err
		}
		if _, err := w.Write(block); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

// ReadArchive decodes an archive stream produced by Archive, invoking fn for
// each record payload in log order. Decoding stops at the first error
// returned by fn.
func ReadArchive(r io.Reader, fn func(payload []byte) error) error {
	header := make([]byte, recordHeaderSize)
	for {
		if _, err := io.ReadFull(r, header); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if errors.Is(err, io.ErrUnexpectedEOF) {
				return fmt.Errorf("%w: truncated entry header", ErrArchiveCorrupt)
			}
			return err
		}
		block := make([]byte, binary.BigEndian.Uint32(header))
		if _, err := io.ReadFull(r, block); err != nil {
			return fmt.Errorf("%w: truncated entry body", ErrArchiveCorrupt)
		}
		payload, err := snappy.Decode(nil, block)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrArchiveCorrupt, err)
		}
		if err := fn(payload); err != nil {
			return err
		}
	}
}
