package types

// Offset identifies a record by its zero-based position in append order. For
// a consumer it names the next record that has not yet been delivered.
type Offset = uint64

// QueueStats is a point-in-time snapshot of queue state exposed by the admin
// API.
type QueueStats struct {
	Messages  Offset `json:"messages"`
	LogBytes  int64  `json:"logBytes"`
	Consumers int    `json:"consumers"`
}
