package broker

import (
	"errors"
	"log"

	"github.com/pushpull/pushpull/internal/protocol"
	"github.com/pushpull/pushpull/internal/queue"
)

// Handler is the stateless bridge between the wire protocol and the queue:
// one request line in, exactly one response line out. It holds no state of
// its own beyond the queue reference.
type Handler struct {
	q *queue.Queue
}

func NewHandler(q *queue.Queue) *Handler {
	return &Handler{q: q}
}

// Dispatch parses line, invokes the matching queue operation and renders the
// outcome. Every failure, panics included, becomes an ERR response; nothing
// ever propagates past this boundary into the serving loop.
func (h *Handler) Dispatch(line string) (resp string) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[broker] panic handling command: %v", r)
			resp = protocol.RenderError("internal error")
		}
	}()

	req, err := protocol.Parse(line)
	if err != nil {
		return protocol.RenderError(err.Error())
	}

	switch req.Kind {
	case protocol.KindPush:
		if _, err := h.q.Push(req.Message); err != nil {
			log.Printf("[broker] push failed: %v", err)
			return protocol.RenderError(err.Error())
		}
		return protocol.RenderOK()
	case protocol.KindPull:
		payload, ok, err := h.q.Pull(req.Consumer)
		if err != nil {
			if errors.Is(err, queue.ErrStateDiverged) {
				// The ledger no longer matches the log. Keep serving other
				// connections but make the operator impossible to miss.
				log.Printf("[broker] INVARIANT VIOLATION: %v", err)
			} else {
				log.Printf("[broker] pull failed for %q: %v", req.Consumer, err)
			}
			return protocol.RenderError(err.Error())
		}
		if !ok {
			return protocol.RenderEmpty()
		}
		return protocol.RenderMessage(payload)
	}
	return protocol.RenderError("unknown request kind")
}
