// Package client is a thin convenience wrapper around the broker's
// line-oriented text protocol.
package client

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"
)

const defaultDialTimeout = 5 * time.Second

// ServerError is an ERR response returned by the broker for one command.
type ServerError struct {
	Reason string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error: %s", e.Reason)
}

// Client holds one connection to the broker. Commands are serialized over
// the connection; a Client is safe for concurrent use.
type Client struct {
	mu   sync.Mutex
	conn net.Conn
	r    *bufio.Reader
}

// Dial connects to a broker at addr ("host:port").
func Dial(addr string) (*Client, error) {
	conn, err := net.DialTimeout("tcp", addr, defaultDialTimeout)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn, r: bufio.NewReader(conn)}, nil
}

// Push appends message to the queue. Messages may be empty or contain
// spaces, but never a line terminator.
func (c *Client) Push(message string) error {
	if strings.ContainsAny(message, "\n\r") {
		return fmt.Errorf("message must not contain a line terminator")
	}
	resp, err := c.roundTrip("PUSH " + message)
	if err != nil {
		return err
	}
	if resp != "OK" {
		return responseError(resp)
	}
	return nil
}

// Pull requests the next unread message for consumerID. ok is false when the
// queue has nothing new for this consumer.
func (c *Client) Pull(consumerID string) (message string, ok bool, err error) {
	if strings.TrimSpace(consumerID) == "" {
		return "", false, fmt.Errorf("consumer id required")
	}
	resp, err := c.roundTrip("PULL " + consumerID)
	if err != nil {
		return "", false, err
	}
	switch {
	case strings.HasPrefix(resp, "MSG "):
		return resp[len("MSG "):], true, nil
	case resp == "EMPTY":
		return "", false, nil
	default:
		return "", false, responseError(resp)
	}
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) roundTrip(line string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.conn.Write([]byte(line + "\n")); err != nil {
		return "", err
	}
	resp, err := c.r.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(resp, "\r\n"), nil
}

func responseError(resp string) error {
	if reason, found := strings.CutPrefix(resp, "ERR "); found {
		return &ServerError{Reason: reason}
	}
	return fmt.Errorf("unexpected response %q", resp)
}
