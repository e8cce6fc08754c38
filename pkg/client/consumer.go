package client

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Consumer pulls messages under a fixed consumer id, remembering its
// position on the broker side between connections and restarts.
type Consumer struct {
	c  *Client
	id string
}

// NewConsumer binds a consumer id to a client connection. An empty id gets a
// generated UUID; a generated id starts from the head of the log and will
// not resume a previous consumer's position.
func NewConsumer(c *Client, id string) *Consumer {
	if id == "" {
		id = uuid.New().String()
	}
	return &Consumer{c: c, id: id}
}

// ID returns the consumer id in use.
func (c *Consumer) ID() string { return c.id }

// Next pulls the next unread message, ok=false when none is available.
func (c *Consumer) Next() (message string, ok bool, err error) {
	return c.c.Pull(c.id)
}

// Poll delivers messages to fn, sleeping for interval whenever the queue is
// drained, until ctx is cancelled or fn returns an error.
func (c *Consumer) Poll(ctx context.Context, interval time.Duration, fn func(message string) error) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg, ok, err := c.c.Pull(c.id)
		if err != nil {
			return err
		}
		if !ok {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(interval):
			}
			continue
		}
		if err := fn(msg); err != nil {
			return err
		}
	}
}
