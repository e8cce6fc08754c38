// Demo: push a handful of messages and consume them with two independent
// consumers against a running broker (see cmd/broker).
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/pushpull/pushpull/pkg/client"
)

func main() {
	addr := os.Getenv("ADDR")
	if addr == "" {
		addr = "127.0.0.1:5555"
	}

	c, err := client.Dial(addr)
	if err != nil {
		log.Fatalf("dial broker: %v", err)
	}
	defer func() { _ = c.Close() }()

	for i := 1; i <= 5; i++ {
		msg := fmt.Sprintf("event %d", i)
		if err := c.Push(msg); err != nil {
			log.Fatalf("push: %v", err)
		}
		fmt.Printf("pushed: %s\n", msg)
	}

	// Both consumers see the full log independently.
	for _, id := range []string{"analytics", "billing"} {
		consumer := client.NewConsumer(c, id)
		for {
			msg, ok, err := consumer.Next()
			if err != nil {
				log.Fatalf("pull for %s: %v", id, err)
			}
			if !ok {
				break
			}
			fmt.Printf("%s received: %s\n", id, msg)
		}
	}
}
