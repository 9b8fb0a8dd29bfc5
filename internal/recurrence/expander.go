package recurrence

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"

	"github.com/ayoubkh/schedula/internal/conflict"
	"github.com/ayoubkh/schedula/internal/model"
	"github.com/ayoubkh/schedula/internal/outbox"
	"github.com/ayoubkh/schedula/internal/reminders"
	"github.com/ayoubkh/schedula/internal/storage"
	"github.com/ayoubkh/schedula/libs/db"
)

const (
	DefaultHorizonDays = 30

	expandLeaseKey = "schedula:recurrence:expand-all"
	expandLeaseTTL = time.Minute
)

// Summary reports the outcome of one expansion run.
type Summary struct {
	Created         int      `json:"created"`
	SkippedExisting int      `json:"skipped_existing"`
	SkippedConflict int      `json:"skipped_conflict"`
	AppointmentIDs  []string `json:"appointment_ids,omitempty"`
}

func (s *Summary) add(other Summary) {
	s.Created += other.Created
	s.SkippedExisting += other.SkippedExisting
	s.SkippedConflict += other.SkippedConflict
	s.AppointmentIDs = append(s.AppointmentIDs, other.AppointmentIDs...)
}

// Expander materializes template occurrences into concrete appointments on a
// rolling horizon. Runs are idempotent: an occurrence whose (template, start)
// already has an appointment is skipped, conflicting occurrences are skipped
// with a count, and only the remainder is created.
type Expander struct {
	pool      *db.Pool
	templates *storage.TemplateRepository
	appts     *storage.AppointmentRepository
	catalog   *storage.CatalogRepository
	reminders *storage.ReminderRepository
	scheduler *reminders.Scheduler
	detector  *conflict.Detector
	outbox    *outbox.Repository
	redis     *redis.Client // optional cross-instance run lease
	logger    *slog.Logger
}

func NewExpander(
	pool *db.Pool,
	templates *storage.TemplateRepository,
	appts *storage.AppointmentRepository,
	catalog *storage.CatalogRepository,
	remRepo *storage.ReminderRepository,
	scheduler *reminders.Scheduler,
	detector *conflict.Detector,
	outboxRepo *outbox.Repository,
	redisClient *redis.Client,
	logger *slog.Logger,
) *Expander {
	return &Expander{
		pool:      pool,
		templates: templates,
		appts:     appts,
		catalog:   catalog,
		reminders: remRepo,
		scheduler: scheduler,
		detector:  detector,
		outbox:    outboxRepo,
		redis:     redisClient,
		logger:    logger,
	}
}

// Expand materializes one template over the next horizonDays. The whole run is
// one transaction guarded by a non-blocking per-template advisory lock: when a
// concurrent expansion of the same template holds it, this run skips without
// error and reports an empty summary.
func (e *Expander) Expand(ctx context.Context, templateID string, horizonDays int) (Summary, error) {
	if horizonDays <= 0 {
		horizonDays = DefaultHorizonDays
	}

	tmpl, err := e.templates.Get(ctx, templateID)
	if err != nil {
		return Summary{}, err
	}
	if !tmpl.IsActive {
		return Summary{}, fmt.Errorf("%w: template is deactivated", model.ErrInvalidState)
	}

	biz, err := e.catalog.GetBusiness(ctx, tmpl.BusinessID)
	if err != nil {
		return Summary{}, err
	}
	loc, err := time.LoadLocation(biz.Timezone)
	if err != nil {
		return Summary{}, fmt.Errorf("business timezone %q: %w", biz.Timezone, err)
	}
	svc, err := e.catalog.GetService(ctx, tmpl.BusinessID, tmpl.ServiceID)
	if err != nil {
		return Summary{}, err
	}

	now := time.Now().UTC()
	occs, err := Occurrences(tmpl, loc, now, now.AddDate(0, 0, horizonDays))
	if err != nil {
		return Summary{}, err
	}
	if len(occs) == 0 {
		return Summary{}, nil
	}

	tx, err := e.pool.Begin(ctx)
	if err != nil {
		return Summary{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	got, err := e.appts.TryTemplateLock(ctx, tx, tmpl.ID)
	if err != nil {
		return Summary{}, err
	}
	if !got {
		e.logger.Info("template expansion already in progress, skipping", "template_id", tmpl.ID)
		return Summary{}, nil
	}

	var sum Summary
	duration := time.Duration(svc.DurationMins) * time.Minute
	for _, start := range occs {
		exists, err := e.appts.ExistsForTemplateStart(ctx, tx, tmpl.ID, start)
		if err != nil {
			return Summary{}, err
		}
		if exists {
			sum.SkippedExisting++
			continue
		}

		day := start.In(loc).Format("2006-01-02")
		if err := e.appts.AcquireSlotLock(ctx, tx, tmpl.BusinessID, tmpl.StaffID, day); err != nil {
			return Summary{}, err
		}
		blocked, err := e.detector.Check(ctx, tx, conflict.Candidate{
			BusinessID: tmpl.BusinessID,
			ServiceID:  tmpl.ServiceID,
			StaffID:    tmpl.StaffID,
			Start:      start,
			End:        start.Add(duration),
		}, svc.MaxPerSlot)
		if err != nil {
			return Summary{}, err
		}
		if blocked {
			sum.SkippedConflict++
			e.logger.Info("occurrence conflicts with an existing booking, skipping",
				"template_id", tmpl.ID, "starts_at", start)
			continue
		}

		appt, err := e.materialize(ctx, tx, tmpl, svc, start, duration, now)
		if err != nil {
			return Summary{}, err
		}
		if appt == nil {
			// Lost the (recurring_id, starts_at) unique race to a concurrent
			// run after the existence check; same outcome as finding the row.
			sum.SkippedExisting++
			continue
		}
		sum.Created++
		sum.AppointmentIDs = append(sum.AppointmentIDs, appt.ID)
	}

	if err := tx.Commit(ctx); err != nil {
		return Summary{}, err
	}
	e.logger.Info("template expanded", "template_id", tmpl.ID,
		"created", sum.Created, "skipped_existing", sum.SkippedExisting, "skipped_conflict", sum.SkippedConflict)
	return sum, nil
}

// materialize inserts one occurrence with its reminders and outbox event
// under a savepoint, so a unique violation on (recurring_id, starts_at) can be
// rolled back without poisoning the surrounding transaction. Returns nil when
// the occurrence was already materialized concurrently.
func (e *Expander) materialize(ctx context.Context, tx pgx.Tx, tmpl model.RecurringTemplate, svc model.Service, start time.Time, duration time.Duration, now time.Time) (*model.Appointment, error) {
	sub, err := tx.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = sub.Rollback(ctx) }()

	status := model.StatusConfirmed
	if svc.RequiresDeposit() {
		status = model.StatusPending
	}
	appt := model.Appointment{
		BusinessID:  tmpl.BusinessID,
		ServiceID:   tmpl.ServiceID,
		StaffID:     tmpl.StaffID,
		Customer:    tmpl.Customer,
		StartsAt:    start,
		EndsAt:      start.Add(duration),
		Status:      status,
		RecurringID: &tmpl.ID,
		Amount:      svc.Price,
		Deposit:     svc.Deposit,
	}
	if err := e.appts.Create(ctx, sub, &appt); err != nil {
		if storage.IsUniqueViolation(err) {
			return nil, nil
		}
		return nil, err
	}
	if _, err := e.scheduler.ScheduleStandard(ctx, sub, appt, "", now); err != nil {
		return nil, err
	}
	payload, err := json.Marshal(map[string]any{
		"appointment_id": appt.ID,
		"business_id":    appt.BusinessID,
		"service_id":     appt.ServiceID,
		"staff_id":       appt.StaffID,
		"recurring_id":   tmpl.ID,
		"starts_at":      appt.StartsAt.UTC().Format(time.RFC3339),
		"ends_at":        appt.EndsAt.UTC().Format(time.RFC3339),
		"status":         appt.Status,
	})
	if err != nil {
		return nil, err
	}
	if err := e.outbox.Insert(ctx, sub, outbox.Event{
		AggregateType: "appointment",
		AggregateID:   appt.ID,
		EventType:     outbox.EventAppointmentBooked,
		Payload:       payload,
	}); err != nil {
		return nil, err
	}
	if err := sub.Commit(ctx); err != nil {
		return nil, err
	}
	return &appt, nil
}

// ExpandAll runs Expand for every active template, each in its own
// transaction; one template's failure is logged and does not abort the rest.
// A short Redis lease keeps overlapping cron firings across instances from
// stampeding; when Redis is not configured the per-template advisory locks
// still prevent duplicate materialization.
func (e *Expander) ExpandAll(ctx context.Context, horizonDays int) (Summary, error) {
	if e.redis != nil {
		ok, err := e.redis.SetNX(ctx, expandLeaseKey, time.Now().UTC().Format(time.RFC3339), expandLeaseTTL).Result()
		if err != nil {
			e.logger.Warn("expansion lease check failed, proceeding", "err", err)
		} else if !ok {
			e.logger.Info("expansion already running elsewhere, skipping")
			return Summary{}, nil
		} else {
			defer e.redis.Del(context.WithoutCancel(ctx), expandLeaseKey)
		}
	}

	templates, err := e.templates.ListActive(ctx)
	if err != nil {
		return Summary{}, err
	}

	var total Summary
	for _, tmpl := range templates {
		sum, err := e.Expand(ctx, tmpl.ID, horizonDays)
		if err != nil {
			e.logger.Error("template expansion failed", "template_id", tmpl.ID, "err", err)
			continue
		}
		total.add(sum)
	}
	return total, nil
}

// Deactivate turns the template off and cancels its future non-terminal
// appointments, skipping their pending reminders. Past appointments are never
// touched.
func (e *Expander) Deactivate(ctx context.Context, templateID string) ([]string, error) {
	tx, err := e.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := e.templates.SetActive(ctx, tx, templateID, false); err != nil {
		return nil, err
	}
	canceled, err := e.appts.CancelFutureForTemplate(ctx, tx, templateID, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	for _, id := range canceled {
		if _, err := e.reminders.SkipPendingForAppointment(ctx, tx, id); err != nil {
			return nil, err
		}
		payload, err := json.Marshal(map[string]any{
			"appointment_id": id,
			"recurring_id":   templateID,
			"reason":         "template_deactivated",
		})
		if err != nil {
			return nil, err
		}
		if err := e.outbox.Insert(ctx, tx, outbox.Event{
			AggregateType: "appointment",
			AggregateID:   id,
			EventType:     outbox.EventAppointmentCancelled,
			Payload:       payload,
		}); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	e.logger.Info("template deactivated", "template_id", templateID, "canceled_future", len(canceled))
	return canceled, nil
}
