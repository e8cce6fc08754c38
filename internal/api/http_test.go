package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pushpull/pushpull/internal/queue"
	"github.com/pushpull/pushpull/internal/types"
)

func newTestServer(t *testing.T) (*queue.Queue, *httptest.Server) {
	t.Helper()
	q, err := queue.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open queue: %v", err)
	}
	t.Cleanup(func() { _ = q.Close() })

	mux := http.NewServeMux()
	NewHTTP(q).Routes(mux)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return q, ts
}

func getJSON(t *testing.T, url string, out any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s: status %s", url, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decoding %s: %v", url, err)
	}
}

func TestStatsEndpoint(t *testing.T) {
	q, ts := newTestServer(t)

	if _, err := q.Push([]byte("one")); err != nil {
		t.Fatalf("push: %v", err)
	}
	if _, err := q.Push([]byte("two")); err != nil {
		t.Fatalf("push: %v", err)
	}
	if _, _, err := q.Pull("c1"); err != nil {
		t.Fatalf("pull: %v", err)
	}

	var stats types.QueueStats
	getJSON(t, ts.URL+"/stats", &stats)
	if stats.Messages != 2 || stats.Consumers != 1 || stats.LogBytes <= 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestConsumersEndpoint(t *testing.T) {
	q, ts := newTestServer(t)

	if _, err := q.Push([]byte("x")); err != nil {
		t.Fatalf("push: %v", err)
	}
	if _, _, err := q.Pull("alpha"); err != nil {
		t.Fatalf("pull: %v", err)
	}

	var all map[string]uint64
	getJSON(t, ts.URL+"/consumers", &all)
	if len(all) != 1 || all["alpha"] != 1 {
		t.Fatalf("unexpected consumers: %v", all)
	}

	var one struct {
		Consumer string `json:"consumer"`
		Offset   uint64 `json:"offset"`
	}
	getJSON(t, ts.URL+"/consumers/alpha", &one)
	if one.Consumer != "alpha" || one.Offset != 1 {
		t.Fatalf("unexpected consumer view: %+v", one)
	}

	// Unseen ids read as offset 0 rather than erroring.
	getJSON(t, ts.URL+"/consumers/ghost", &one)
	if one.Offset != 0 {
		t.Fatalf("ghost consumer offset: %d", one.Offset)
	}
}
