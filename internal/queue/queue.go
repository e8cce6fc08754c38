package queue

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sync"

	"github.com/pushpull/pushpull/internal/logstore"
	"github.com/pushpull/pushpull/internal/offsets"
	"github.com/pushpull/pushpull/internal/types"
)

const (
	logFileName    = "queue.log"
	offsetFileName = "offsets.json"
)

// ErrStateDiverged reports a consumer offset pointing past the committed log
// count. The log and the offset ledger are the only sources of truth, so a
// divergence means one of them was tampered with or lost data.
var ErrStateDiverged = errors.New("offset ledger ahead of log")

// Queue combines the append-only log with the per-consumer offset ledger and
// owns all mutation rights over both. Pushes serialize inside the log;
// pulls serialize per consumer id and never block other consumers'
// bookkeeping.
type Queue struct {
	log     *logstore.Log
	offsets *offsets.Store

	mu        sync.Mutex
	consumers map[string]*sync.Mutex
}

// Open loads (or initializes) the queue state under dataDir and verifies
// that every stored consumer offset is within the recovered log.
func Open(dataDir string) (*Queue, error) {
	lg, err := logstore.Open(filepath.Join(dataDir, logFileName))
	if err != nil {
		return nil, err
	}
	st, err := offsets.Open(filepath.Join(dataDir, offsetFileName))
	if err != nil {
		_ = lg.Close()
		return nil, err
	}

	count := lg.Count()
	for id, off := range st.All() {
		if off > count {
			_ = lg.Close()
			return nil, fmt.Errorf("%w: consumer %q at %d, log has %d records",
				ErrStateDiverged, id, off, count)
		}
	}

	return &Queue{
		log:       lg,
		offsets:   st,
		consumers: make(map[string]*sync.Mutex),
	}, nil
}

// Push appends message to the log and returns its index. The record is
// durable when Push returns.
func (q *Queue) Push(message []byte) (types.Offset, error) {
	return q.log.Append(message)
}

// Pull delivers the next unread record for consumerID, or ok=false when the
// consumer has seen every committed record. The offset read, record read and
// offset persist run under a per-consumer mutex so concurrent pulls for the
// same id can neither double-deliver nor skip. If persisting the new offset
// fails the record will be redelivered on the next pull (at-least-once).
func (q *Queue) Pull(consumerID string) ([]byte, bool, error) {
	lock := q.consumerLock(consumerID)
	lock.Lock()
	defer lock.Unlock()

	next := q.offsets.Get(consumerID)
	count := q.log.Count()
	if next == count {
		return nil, false, nil
	}
	if next > count {
		return nil, false, fmt.Errorf("%w: consumer %q at %d, log has %d records",
			ErrStateDiverged, consumerID, next, count)
	}

	payload, err := q.log.Read(next)
	if err != nil {
		if errors.Is(err, logstore.ErrOutOfRange) {
			return nil, false, fmt.Errorf("%w: %v", ErrStateDiverged, err)
		}
		return nil, false, err
	}
	if err := q.offsets.Set(consumerID, next+1); err != nil {
		return nil, false, err
	}
	return payload, true, nil
}

// Count reports the number of committed records in the log.
func (q *Queue) Count() types.Offset {
	return q.log.Count()
}

// ConsumerOffset reports the next unread index for a consumer, 0 for unseen
// ids.
func (q *Queue) ConsumerOffset(consumerID string) types.Offset {
	return q.offsets.Get(consumerID)
}

// Consumers returns a copy of the full consumer-to-offset mapping.
func (q *Queue) Consumers() map[string]types.Offset {
	return q.offsets.All()
}

// Stats snapshots queue state for the admin API.
func (q *Queue) Stats() types.QueueStats {
	return types.QueueStats{
		Messages:  q.log.Count(),
		LogBytes:  q.log.Size(),
		Consumers: q.offsets.Len(),
	}
}

// Archive streams every committed record, snappy-compressed, to w.
func (q *Queue) Archive(w io.Writer) (uint64, error) {
	return q.log.Archive(w)
}

func (q *Queue) Close() error {
	return q.log.Close()
}

// consumerLock returns the mutex serializing pulls for a consumer id,
// creating it on first use.
func (q *Queue) consumerLock(consumerID string) *sync.Mutex {
	q.mu.Lock()
	defer q.mu.Unlock()
	lock, ok := q.consumers[consumerID]
	if !ok {
		lock = &sync.Mutex{}
		q.consumers[consumerID] = lock
	}
	return lock
}
