package logstore

import "errors"

var (
	// ErrOutOfRange is returned when a read targets an index at or past the
	// committed record count. During normal operation it signals that the
	// offset ledger and the log have diverged.
	ErrOutOfRange = errors.New("record index out of range")
	// ErrMessageTooLarge rejects payloads whose length cannot be encoded in
	// the 4-byte record header. Nothing is written to disk in that case.
	ErrMessageTooLarge = errors.New("message exceeds maximum record size")
)
