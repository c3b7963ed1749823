// Command event-seeder publishes synthetic progress events to the indexer's
// NATS topic for local and load testing.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"

	natsclient "github.com/skilltrace-systems/skilltrace-indexer/internal/messaging/nats"
	"github.com/skilltrace-systems/skilltrace-indexer/internal/models"
)

var (
	natsURL    = flag.String("nats-url", "nats://localhost:4222", "NATS server URL")
	topic      = flag.String("topic", "events", "subject to publish to")
	count      = flag.Int("count", 100, "number of events to generate")
	interval   = flag.Duration("interval", 100*time.Millisecond, "interval between events")
	timeSpread = flag.Duration("time-spread", 24*time.Hour, "spread event timestamps over this period (0 for now)")
	invalidPct = flag.Int("invalid-pct", 0, "percentage of deliberately invalid events")
)

func main() {
	flag.Parse()

	gofakeit.Seed(time.Now().UnixNano())

	log.Printf("Starting event seeder:")
	log.Printf("  NATS URL: %s", *natsURL)
	log.Printf("  Topic: %s", *topic)
	log.Printf("  Event count: %d", *count)
	log.Printf("  Interval: %v", *interval)
	log.Printf("  Time spread: %v", *timeSpread)

	client, err := natsclient.NewClient(natsclient.Config{
		URL:           *natsURL,
		Name:          "event-seeder",
		MaxReconnects: 3,
		ReconnectWait: time.Second,
		Timeout:       5 * time.Second,
	})
	if err != nil {
		log.Fatalf("connect to NATS: %v", err)
	}
	defer client.Close()

	ctx := context.Background()
	published := 0

	for i := 0; i < *count; i++ {
		ev := generateEvent(i, *count, *timeSpread)
		if *invalidPct > 0 && rand.Intn(100) < *invalidPct {
			corrupt(ev)
		}

		data, err := json.Marshal(ev)
		if err != nil {
			log.Fatalf("marshal event: %v", err)
		}
		if err := client.Publish(ctx, *topic, data); err != nil {
			log.Fatalf("publish: %v", err)
		}
		published++

		if *interval > 0 && i < *count-1 {
			time.Sleep(*interval)
		}
	}

	log.Printf("Done: published %d events", published)
}

func generateEvent(index, total int, spread time.Duration) models.Event {
	eventTime := time.Now().UTC()
	if spread > 0 && total > 0 {
		offset := time.Duration(float64(spread) * float64(index) / float64(total))
		eventTime = eventTime.Add(-(spread - offset))
	}

	return models.Event{
		models.FieldID:        uuid.NewString(),
		models.FieldAttemptID: uuid.NewString(),
		models.FieldUserID:    uuid.NewString(),
		models.FieldType:      eventType(),
		models.FieldProgress:  gofakeit.Float64Range(0, 1),
		models.FieldScore:     gofakeit.Float64Range(0, 1),
		models.FieldTimestamp: eventTime.Format(time.RFC3339),
	}
}

func eventType() string {
	types := []string{"PROGRESS", "COMPLETED", "SCORED"}
	return types[rand.Intn(len(types))]
}

// corrupt damages an event in one of the ways the validator rejects.
func corrupt(ev models.Event) {
	switch rand.Intn(3) {
	case 0:
		delete(ev, models.FieldScore)
	case 1:
		ev[models.FieldTimestamp] = gofakeit.Word()
	default:
		ev[fmt.Sprintf("extra_%s", gofakeit.Word())] = gofakeit.Word()
	}
}
