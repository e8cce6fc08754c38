package logstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestLogOpenAppendRead(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "queue.log")

	lg, err := Open(path)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer func() { _ = lg.Close() }()

	if lg.Path() != path {
		t.Fatalf("unexpected path: %s", lg.Path())
	}
	if lg.Count() != 0 || lg.Size() != 0 {
		t.Fatalf("expected empty log, got count=%d size=%d", lg.Count(), lg.Size())
	}
	_ = lg.String()

	idx0, err := lg.Append([]byte("alpha"))
	if err != nil {
		t.Fatalf("append first: %v", err)
	}
	if idx0 != 0 {
		t.Fatalf("expected first index 0, got %d", idx0)
	}

	idx1, err := lg.Append([]byte("beta"))
	if err != nil {
		t.Fatalf("append second: %v", err)
	}
	if idx1 != 1 {
		t.Fatalf("expected second index 1, got %d", idx1)
	}

	got, err := lg.Read(0)
	if err != nil {
		t.Fatalf("read first: %v", err)
	}
	if string(got) != "alpha" {
		t.Fatalf("unexpected payload: %q", got)
	}
	got, err = lg.Read(1)
	if err != nil {
		t.Fatalf("read second: %v", err)
	}
	if string(got) != "beta" {
		t.Fatalf("unexpected payload: %q", got)
	}

	if _, err := lg.Read(2); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}

	wantSize := int64(2*recordHeaderSize + len("alpha") + len("beta"))
	if lg.Size() != wantSize {
		t.Fatalf("unexpected size: got %d want %d", lg.Size(), wantSize)
	}
}

func TestLogEmptyPayload(t *testing.T) {
	lg, err := Open(filepath.Join(t.TempDir(), "queue.log"))
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer func() { _ = lg.Close() }()

	if _, err := lg.Append(nil); err != nil {
		t.Fatalf("append empty: %v", err)
	}
	got, err := lg.Read(0)
	if err != nil {
		t.Fatalf("read empty: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty payload, got %q", got)
	}
}

func TestLogReopenIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.log")

	lg, err := Open(path)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	payloads := []string{"a", "bb", "", "dddd"}
	for _, p := range payloads {
		if _, err := lg.Append([]byte(p)); err != nil {
			t.Fatalf("append %q: %v", p, err)
		}
	}
	sizeBefore := lg.Size()
	if err := lg.Close(); err != nil {
		t.Fatalf("close log: %v", err)
	}

	lg, err = Open(path)
	if err != nil {
		t.Fatalf("reopen log: %v", err)
	}
	defer func() { _ = lg.Close() }()

	if lg.Count() != uint64(len(payloads)) {
		t.Fatalf("count after reopen: got %d want %d", lg.Count(), len(payloads))
	}
	if lg.Size() != sizeBefore {
		t.Fatalf("size after reopen: got %d want %d", lg.Size(), sizeBefore)
	}
	for i, p := range payloads {
		got, err := lg.Read(uint64(i))
		if err != nil {
			t.Fatalf("read %d after reopen: %v", i, err)
		}
		if string(got) != p {
			t.Fatalf("payload %d mismatch: got %q want %q", i, got, p)
		}
	}
}

func TestLogAppendWriteFailure(t *testing.T) {
	lg, err := Open(filepath.Join(t.TempDir(), "queue.log"))
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer func() { _ = lg.Close() }()

	if _, err := lg.Append([]byte("keep")); err != nil {
		t.Fatalf("append: %v", err)
	}

	failure := errors.New("disk gone")
	orig := writeAtOp
	writeAtOp = func(f *os.File, b []byte, off int64) (int, error) { return 0, failure }
	_, err = lg.Append([]byte("lost"))
	writeAtOp = orig
	if !errors.Is(err, failure) {
		t.Fatalf("expected injected write failure, got %v", err)
	}
	if lg.Count() != 1 {
		t.Fatalf("count advanced after failed write: %d", lg.Count())
	}

	// The next append must land right after the last committed record.
	if _, err := lg.Append([]byte("after")); err != nil {
		t.Fatalf("append after failure: %v", err)
	}
	got, err := lg.Read(1)
	if err != nil {
		t.Fatalf("read after failure: %v", err)
	}
	if string(got) != "after" {
		t.Fatalf("unexpected payload: %q", got)
	}
}

func TestLogAppendSyncFailure(t *testing.T) {
	lg, err := Open(filepath.Join(t.TempDir(), "queue.log"))
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer func() { _ = lg.Close() }()

	failure := errors.New("sync refused")
	orig := fdatasyncOp
	fdatasyncOp = func(f *os.File) error { return failure }
	_, err = lg.Append([]byte("unsynced"))
	fdatasyncOp = orig
	if !errors.Is(err, failure) {
		t.Fatalf("expected injected sync failure, got %v", err)
	}
	if lg.Count() != 0 {
		t.Fatalf("count advanced after failed sync: %d", lg.Count())
	}
}

func TestLogConcurrentAppends(t *testing.T) {
	const writers = 8
	const perWriter = 50

	path := filepath.Join(t.TempDir(), "queue.log")
	lg, err := Open(path)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				if _, err := lg.Append([]byte(fmt.Sprintf("w%d-%d", w, i))); err != nil {
					t.Errorf("append: %v", err)
					return
				}
			}
		}(w)
	}
	wg.Wait()

	if lg.Count() != writers*perWriter {
		t.Fatalf("count after concurrent appends: got %d want %d", lg.Count(), writers*perWriter)
	}
	if err := lg.Close(); err != nil {
		t.Fatalf("close log: %v", err)
	}

	// A full recovery scan must account for every record with intact framing.
	lg, err = Open(path)
	if err != nil {
		t.Fatalf("reopen log: %v", err)
	}
	defer func() { _ = lg.Close() }()
	if lg.Count() != writers*perWriter {
		t.Fatalf("count after recovery: got %d want %d", lg.Count(), writers*perWriter)
	}
	seen := make(map[string]bool, writers*perWriter)
	for i := uint64(0); i < lg.Count(); i++ {
		payload, err := lg.Read(i)
		if err != nil {
			t.Fatalf("read %d: %v", i, err)
		}
		if seen[string(payload)] {
			t.Fatalf("duplicate record %q", payload)
		}
		seen[string(payload)] = true
	}
}
