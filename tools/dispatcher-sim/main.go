// dispatcher-sim drives the due-reminder contract end to end against a
// running engine. Two modes:
//
//	poll    — GET /api/v1/reminders/due on an interval
//	consume — read scheduling.reminder.due.v1 from Kafka (the outbox feed)
//
// Either way each reminder is "delivered" (printed) and its outcome reported
// via POST /api/v1/reminders/mark. Useful for local testing without a real
// notification pipeline.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/ayoubkh/schedula/internal/outbox"
	"github.com/ayoubkh/schedula/libs/kafkax"
)

type reminderItem struct {
	ReminderID    string `json:"reminder_id"`
	AppointmentID string `json:"appointment_id"`
	Type          string `json:"type"`
	ScheduledFor  string `json:"scheduled_for"`
	Channel       string `json:"channel"`
	Message       string `json:"message"`
}

func main() {
	var (
		mode     = flag.String("mode", "poll", "poll or consume")
		baseURL  = flag.String("base-url", getenv("BASE_URL", "http://localhost:8080"), "engine base url")
		brokers  = flag.String("brokers", getenv("KAFKA_BROKERS", "localhost:9092"), "kafka brokers (consume mode)")
		groupID  = flag.String("group-id", "dispatcher-sim", "kafka consumer group (consume mode)")
		interval = flag.Duration("interval", 10*time.Second, "poll interval")
		limit    = flag.Int("limit", 20, "max reminders per poll")
		failRate = flag.Float64("fail-rate", 0, "fraction of deliveries to report as failed (0..1)")
		once     = flag.Bool("once", false, "poll a single time and exit (poll mode)")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := &http.Client{Timeout: 10 * time.Second}
	switch *mode {
	case "consume":
		if err := consumeLoop(ctx, client, *baseURL, *brokers, *groupID, *failRate); err != nil {
			fmt.Fprintln(os.Stderr, "consume failed:", err)
			os.Exit(1)
		}
	case "poll":
		for {
			n, err := pollOnce(ctx, client, *baseURL, *limit, *failRate)
			if err != nil {
				fmt.Fprintln(os.Stderr, "poll failed:", err)
			} else {
				fmt.Printf("dispatched %d reminder(s)\n", n)
			}
			if *once {
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(*interval):
			}
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown mode %q\n", *mode)
		os.Exit(2)
	}
}

func pollOnce(ctx context.Context, client *http.Client, baseURL string, limit int, failRate float64) (int, error) {
	url := fmt.Sprintf("%s/api/v1/reminders/due?limit=%d", strings.TrimRight(baseURL, "/"), limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("due returned %s", resp.Status)
	}
	var body struct {
		Reminders []reminderItem `json:"reminders"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, err
	}

	for _, rem := range body.Reminders {
		deliver(ctx, client, baseURL, rem, failRate)
	}
	return len(body.Reminders), nil
}

// consumeLoop reads the outbox's due-reminder topic and confirms each message
// back over HTTP, propagating the producer's trace context.
func consumeLoop(ctx context.Context, client *http.Client, baseURL, brokers, groupID string, failRate float64) error {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: kafkax.SplitBrokers(brokers),
		GroupID: groupID,
		Topic:   outbox.EventReminderDue,
	})
	defer reader.Close()

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		meta := kafkax.ExtractEventMeta(msg)
		msgCtx := kafkax.ExtractTraceContext(ctx, msg)

		var rem reminderItem
		if err := json.Unmarshal(msg.Value, &rem); err != nil {
			fmt.Fprintf(os.Stderr, "bad payload for event %s: %v\n", meta.EventID, err)
			continue
		}
		fmt.Printf("event %s (%s) partition=%d offset=%d\n", meta.EventID, meta.EventType, msg.Partition, msg.Offset)
		deliver(msgCtx, client, baseURL, rem, failRate)
	}
}

func deliver(ctx context.Context, client *http.Client, baseURL string, rem reminderItem, failRate float64) {
	status := "sent"
	errMsg := ""
	if rand.Float64() < failRate {
		status = "failed"
		errMsg = "simulated delivery failure"
	}
	fmt.Printf("deliver %s via %s -> %s (%q)\n", rem.ReminderID, rem.Channel, status, rem.Message)
	if err := mark(ctx, client, baseURL, rem.ReminderID, status, errMsg); err != nil {
		fmt.Fprintln(os.Stderr, "mark failed:", err)
	}
}

func mark(ctx context.Context, client *http.Client, baseURL, id, status, errMsg string) error {
	payload, err := json.Marshal(map[string]string{
		"reminder_id": id,
		"status":      status,
		"error":       errMsg,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(baseURL, "/")+"/api/v1/reminders/mark", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("mark returned %s", resp.Status)
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
