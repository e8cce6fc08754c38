package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/pushpull/pushpull/internal/api"
	"github.com/pushpull/pushpull/internal/broker"
	"github.com/pushpull/pushpull/internal/queue"
)

var exitFn = os.Exit

// main runs the standalone broker process.
func main() {
	if err := run(); err != nil {
		log.Printf("broker error: %v", err)
		exitFn(1)
	}
}

// run loads configuration from the environment, opens the queue and serves
// the line protocol until SIGINT/SIGTERM.
func run() error {
	cfg := broker.DefaultConfig()
	cfg.ListenAddr = getenv("ADDR", cfg.ListenAddr)
	cfg.DataDir = getenv("DATA_DIR", cfg.DataDir)
	cfg.MaxLineBytes = getenvInt("MAX_LINE_BYTES", cfg.MaxLineBytes)

	q, err := queue.Open(cfg.DataDir)
	if err != nil {
		// A corrupt offset document or diverged ledger is fatal on purpose:
		// serving would risk duplicate or lost deliveries.
		return err
	}
	defer func() { _ = q.Close() }()

	srv := broker.NewServer(cfg, broker.NewHandler(q))
	if err := srv.Listen(); err != nil {
		return err
	}

	if adminAddr := os.Getenv("ADMIN_ADDR"); adminAddr != "" {
		mux := http.NewServeMux()
		api.NewHTTP(q).Routes(mux)
		go func() {
			log.Printf("admin api listening on %s", adminAddr)
			if err := http.ListenAndServe(adminAddr, mux); err != nil {
				log.Printf("admin api error: %v", err)
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("received %s, shutting down", sig)
		srv.Stop()
		return nil
	case err := <-errCh:
		return err
	}
}

// getenv returns the environment variable value falling back to a default
// when it is not set.
func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvInt(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
