package offsets

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pushpull/pushpull/internal/types"
)

const tempFilePrefix = ".offsets-tmp-"

// ErrCorruptState reports an offset document that exists but cannot be
// decoded. It is fatal at startup: the operator must resolve the file rather
// than have the queue guess at delivery state.
var ErrCorruptState = errors.New("offset store is corrupt")

// Store persists the consumer-id to next-offset mapping as a single JSON
// document. Every mutation rewrites the document atomically so a crash never
// leaves a half-written ledger on disk.
type Store struct {
	mu      sync.Mutex
	path    string
	offsets map[string]types.Offset
}

// Open loads the offset document at path. A missing or empty file is a fresh
// install; an unparseable one fails with ErrCorruptState.
func Open(path string) (*Store, error) {
	if err := mkdirAllOp(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	st := &Store{
		path:    filepath.Clean(path),
		offsets: make(map[string]types.Offset),
	}
	if err := st.load(); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *Store) load() error {
	data, err := readFileOp(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, &s.offsets); err != nil {
		return fmt.Errorf("%w: decoding %s: %v", ErrCorruptState, s.path, err)
	}
	return nil
}

// Get returns the stored next offset for a consumer, or 0 for an id that has
// never pulled.
func (s *Store) Get(consumerID string) types.Offset {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offsets[consumerID]
}

// Set records the next offset for a consumer and persists the full mapping
// before returning. On a persistence failure the in-memory value rolls back
// so the affected record is redelivered on the next pull.
func (s *Store) Set(consumerID string, offset types.Offset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, seen := s.offsets[consumerID]
	s.offsets[consumerID] = offset
	if err := s.writeSnapshot(); err != nil {
		if seen {
			s.offsets[consumerID] = prev
		} else {
			delete(s.offsets, consumerID)
		}
		return fmt.Errorf("persisting offset for %q: %w", consumerID, err)
	}
	return nil
}

// All returns a copy of the full mapping.
func (s *Store) All() map[string]types.Offset {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]types.Offset, len(s.offsets))
	for id, off := range s.offsets {
		out[id] = off
	}
	return out
}

// Len reports the number of consumers that have a stored offset.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.offsets)
}

func (s *Store) Path() string {
	return s.path
}

// writeSnapshot replaces the document via write-to-temp-then-rename so the
// previous durable version stays readable until the new one is committed.
// Callers must hold s.mu.
func (s *Store) writeSnapshot() error {
	tmp, err := createTempOp(filepath.Dir(s.path), tempFilePrefix)
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	enc := json.NewEncoder(tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s.offsets); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := renameOp(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}
