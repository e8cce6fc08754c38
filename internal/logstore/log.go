package logstore

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Log is an append-only record store backed by a single file. Records are
// framed as a 4-byte big-endian length followed by the raw payload and are
// immutable once committed. A record's identity is its zero-based index in
// append order.
type Log struct {
	mu        sync.RWMutex
	path      string
	file      *os.File
	positions []int64 // byte position of record i
	size      int64   // logical size: end of the last committed record
}

// Open opens (or creates) the log file at path and rebuilds the in-memory
// position index by scanning the committed records.
func Open(path string) (*Log, error) {
	if err := mkdirAllOp(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := openFileOp(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}
	lg := &Log{path: filepath.Clean(path), file: f}
	if err := lg.recover(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return lg, nil
}

// recover scans the file from the start, validating one length-prefixed
// record at a time. A torn trailing header or payload ends the scan and the
// file is truncated to the last valid record boundary. Truncating is the
// only safe way to discard the tail: a later append shorter than the torn
// region would leave stale crash bytes past the new logical end, and the
// next scan would parse them as a record nobody pushed.
func (l *Log) recover() error {
	stat, err := statOp(l.file)
	if err != nil {
		return err
	}
	physical := stat.Size()

	var pos int64
	header := make([]byte, recordHeaderSize)
	for pos+recordHeaderSize <= physical {
		if _, err := readAtOp(l.file, header, pos); err != nil {
			return err
		}
		end := pos + recordHeaderSize + int64(readRecordSize(header))
		if end > physical {
			break
		}
		l.positions = append(l.positions, pos)
		pos = end
	}
	if physical > pos {
		if err := truncateOp(l.file, pos); err != nil {
			return err
		}
	}
	l.size = pos
	return nil
}

// Append commits payload as the next record and returns its index. The
// record is written in a single call at the logical end of the file and
// fdatasync'd before the index becomes visible; on any failure the logical
// state does not advance and the partial bytes are overwritten by the next
// append.
func (l *Log) Append(payload []byte) (uint64, error) {
	if len(payload) > maxRecordSize {
		return 0, ErrMessageTooLarge
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	buf := make([]byte, recordHeaderSize+len(payload))
	putRecordSize(buf, len(payload))
	copy(buf[recordHeaderSize:], payload)

	if _, err := writeAtOp(l.file, buf, l.size); err != nil {
		return 0, fmt.Errorf("appending record: %w", err)
	}
	if err := fdatasyncOp(l.file); err != nil {
		return 0, fmt.Errorf("syncing record: %w", err)
	}

	index := uint64(len(l.positions))
	l.positions = append(l.positions, l.size)
	l.size += int64(len(buf))
	return index, nil
}

// Read returns the payload of the record at index. Reads are safe
// concurrently with appends because a position is only published after its
// record is fully durable.
func (l *Log) Read(index uint64) ([]byte, error) {
	l.mu.RLock()
	if index >= uint64(len(l.positions)) {
		l.mu.RUnlock()
		return nil, fmt.Errorf("%w: index %d, count %d", ErrOutOfRange, index, len(l.positions))
	}
	pos := l.positions[index]
	l.mu.RUnlock()

	header := make([]byte, recordHeaderSize)
	if _, err := readAtOp(l.file, header, pos); err != nil {
		return nil, fmt.Errorf("reading record header at %d: %w", pos, err)
	}
	payload := make([]byte, readRecordSize(header))
	if _, err := readAtOp(l.file, payload, pos+recordHeaderSize); err != nil {
		return nil, fmt.Errorf("reading record payload at %d: %w", pos, err)
	}
	return payload, nil
}

// Count reports the number of committed records.
func (l *Log) Count() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return uint64(len(l.positions))
}

// Size reports the size of the committed log in bytes.
func (l *Log) Size() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.size
}

func (l *Log) Path() string {
	return l.path
}

func (l *Log) String() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return fmt.Sprintf("Log{path=%s records=%d bytes=%d}", l.path, len(l.positions), l.size)
}

func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}
