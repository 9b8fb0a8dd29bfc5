package reminders

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/ayoubkh/schedula/internal/outbox"
	"github.com/ayoubkh/schedula/internal/storage"
	"github.com/ayoubkh/schedula/libs/db"
)

// Worker turns due reminders into outbox events for downstream dispatchers.
// It never marks reminders sent itself: delivery is confirmed by the
// dispatcher through the service API, and the lease backoff re-emits anything
// left unconfirmed. Delivery is therefore at-least-once.
type Worker struct {
	pool      *db.Pool
	reminders *storage.ReminderRepository
	outbox    *outbox.Repository
	logger    *slog.Logger
	batchSize int
	backoff   time.Duration
}

type WorkerConfig struct {
	BatchSize int
	Backoff   time.Duration
}

func NewWorker(pool *db.Pool, reminders *storage.ReminderRepository, outboxRepo *outbox.Repository, logger *slog.Logger, cfg WorkerConfig) *Worker {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 5 * time.Minute
	}
	return &Worker{
		pool:      pool,
		reminders: reminders,
		outbox:    outboxRepo,
		logger:    logger,
		batchSize: cfg.BatchSize,
		backoff:   cfg.Backoff,
	}
}

// Tick processes one batch. Wired to a cron schedule in main.
func (w *Worker) Tick(ctx context.Context) {
	n, err := w.processBatch(ctx)
	if err != nil {
		w.logger.Error("reminder batch failed", "err", err)
		return
	}
	if n > 0 {
		w.logger.Info("reminders emitted", "count", n)
	}
}

func (w *Worker) processBatch(ctx context.Context) (int, error) {
	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	now := time.Now().UTC()
	due, err := w.reminders.LeaseDue(ctx, tx, now, w.batchSize, w.backoff)
	if err != nil {
		return 0, err
	}
	if len(due) == 0 {
		return 0, tx.Commit(ctx)
	}

	for _, rem := range due {
		payload, err := json.Marshal(map[string]any{
			"reminder_id":    rem.ID,
			"appointment_id": rem.AppointmentID,
			"type":           rem.Type,
			"channel":        rem.Channel,
			"message":        rem.Message,
			"scheduled_for":  rem.ScheduledFor.UTC().Format(time.RFC3339),
			"attempt":        rem.Attempts,
		})
		if err != nil {
			return 0, err
		}
		if err := w.outbox.Insert(ctx, tx, outbox.Event{
			AggregateType: "reminder",
			AggregateID:   rem.AppointmentID,
			EventType:     outbox.EventReminderDue,
			Payload:       payload,
		}); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return len(due), nil
}
