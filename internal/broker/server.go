package broker

import (
	"bufio"
	"errors"
	"log"
	"net"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/pushpull/pushpull/internal/protocol"
)

// Server accepts TCP connections and serves one line-oriented command per
// request. It owns no queue state: every line is handed to the Handler and
// the single response line is written back. Per-command errors never close
// the connection.
type Server struct {
	cfg     Config
	handler *Handler

	ln   net.Listener
	quit chan struct{}
	wg   sync.WaitGroup
}

func NewServer(cfg Config, h *Handler) *Server {
	return &Server{
		cfg:     cfg,
		handler: h,
		quit:    make(chan struct{}),
	}
}

// Listen binds the configured address. It is separate from Serve so callers
// (and tests) can learn the bound address before serving.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return err
	}
	s.ln = ln
	return nil
}

// Addr returns the bound listen address. Valid after Listen.
func (s *Server) Addr() string {
	if s.ln == nil {
		return s.cfg.ListenAddr
	}
	return s.ln.Addr().String()
}

// Serve accepts connections until Stop is called, spawning one goroutine per
// connection.
func (s *Server) Serve() error {
	if s.ln == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}
	log.Printf("[broker] listening on %s", s.Addr())

	go func() {
		<-s.quit
		_ = s.ln.Close()
	}()

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			select {
			case <-s.quit:
				return nil
			default:
				if errors.Is(err, net.ErrClosed) {
					return nil
				}
				log.Printf("[broker] accept error: %v", err)
				continue
			}
		}
		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

// Stop closes the listener and waits for in-flight connections to finish.
func (s *Server) Stop() {
	select {
	case <-s.quit:
	default:
		close(s.quit)
	}
	s.wg.Wait()
}

func (s *Server) handleConnection(conn net.Conn) {
	connID := uuid.New().String()
	defer func() {
		_ = conn.Close()
		s.wg.Done()
		log.Printf("[broker] connection %s closed", connID)
	}()
	log.Printf("[broker] connection %s accepted from %s", connID, conn.RemoteAddr())

	initial := 64 * 1024
	if s.cfg.MaxLineBytes < initial {
		initial = s.cfg.MaxLineBytes
	}
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, initial), s.cfg.MaxLineBytes)

	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")
		resp := s.handler.Dispatch(line)
		if _, err := conn.Write([]byte(resp + "\n")); err != nil {
			log.Printf("[broker] connection %s write error: %v", connID, err)
			return
		}
	}
	if err := scanner.Err(); err != nil {
		// An oversized line cannot be resynchronized, so the connection must
		// close, but the client still gets told why.
		if errors.Is(err, bufio.ErrTooLong) {
			resp := protocol.RenderError("request line exceeds maximum length")
			_, _ = conn.Write([]byte(resp + "\n"))
		}
		log.Printf("[broker] connection %s read error: %v", connID, err)
	}
}
