package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/beachmessages/relay/internal/client"
	"github.com/beachmessages/relay/internal/domain"
)

// smoke walks one message through the queue: create, list pending,
// mark delivered, list delivered.
func main() {
	queueURL := flag.String("queue", "http://localhost:8080", "queue server base URL")
	token := flag.String("token", "", "receiver bearer token for the deliver route")
	text := flag.String("text", fmt.Sprintf("Smoke test %d", time.Now().Unix()), "message text")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c := client.New(*queueURL)
	c.SetToken(*token)

	created, err := c.CreateMessage(ctx, *text, "smoke")
	if err != nil {
		log.Fatalf("could not create message: %v", err)
	}
	fmt.Printf("Message queued: id=%d text=%q\n", created.ID, created.Text)

	pending, err := c.Pending(ctx)
	if err != nil {
		log.Fatalf("could not list pending: %v", err)
	}
	if !contains(pending, created.ID) {
		log.Fatalf("message %d missing from pending list", created.ID)
	}

	delivered, err := c.MarkDelivered(ctx, created.ID)
	if err != nil {
		log.Fatalf("could not mark delivered: %v", err)
	}
	fmt.Printf("Message delivered at %s\n", delivered.DeliveredAt.Format(time.RFC3339))

	list, err := c.Delivered(ctx)
	if err != nil {
		log.Fatalf("could not list delivered: %v", err)
	}
	if !contains(list, created.ID) {
		log.Fatalf("message %d missing from delivered list", created.ID)
	}

	if _, err := c.MarkDelivered(ctx, -1); !errors.Is(err, domain.ErrMessageNotFound) {
		log.Fatalf("expected not found for unknown id, got %v", err)
	}

	fmt.Println("OK")
}

func contains(msgs []*domain.Message, id int64) bool {
	for _, m := range msgs {
		if m.ID == id {
			return true
		}
	}
	return false
}
