package api

import (
	"encoding/json"
	"net/http"

	"github.com/pushpull/pushpull/internal/queue"
)

// Server exposes read-only operational state over HTTP. It never mutates the
// queue; all writes go through the line protocol.
type Server struct {
	q *queue.Queue
}

// NewHTTP wraps a queue with admin HTTP handlers.
func NewHTTP(q *queue.Queue) *Server { return &Server{q: q} }

// Routes wires the admin endpoints into the provided mux.
func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /stats", s.handleStats)
	mux.HandleFunc("GET /consumers", s.handleConsumers)
	mux.HandleFunc("GET /consumers/{id}", s.handleConsumer)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.q.Stats())
}

func (s *Server) handleConsumers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.q.Consumers())
}

func (s *Server) handleConsumer(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	writeJSON(w, map[string]any{
		"consumer": id,
		"offset":   s.q.ConsumerOffset(id),
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
