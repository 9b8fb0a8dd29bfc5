package booking

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ayoubkh/schedula/internal/conflict"
	"github.com/ayoubkh/schedula/internal/model"
	"github.com/ayoubkh/schedula/internal/outbox"
	"github.com/ayoubkh/schedula/internal/reminders"
	"github.com/ayoubkh/schedula/internal/storage"
	"github.com/ayoubkh/schedula/libs/db"
)

// StatsRecorder is notified after a committed booking mutation so derived
// counters can be recomputed outside the transaction.
type StatsRecorder interface {
	BookingsChanged(ctx context.Context, businessID string, at time.Time)
}

// Coordinator wraps validation, conflict checking and the appointment write
// into one transaction per operation. The conflict check and the write are
// serialized per (business, staff, local date) by an advisory lock taken
// before the overlap read, so two concurrent attempts at overlapping intervals
// cannot both pass.
type Coordinator struct {
	pool      *db.Pool
	appts     *storage.AppointmentRepository
	catalog   *storage.CatalogRepository
	reminders *storage.ReminderRepository
	scheduler *reminders.Scheduler
	detector  *conflict.Detector
	outbox    *outbox.Repository
	stats     StatsRecorder
	logger    *slog.Logger
}

func NewCoordinator(
	pool *db.Pool,
	appts *storage.AppointmentRepository,
	catalog *storage.CatalogRepository,
	remRepo *storage.ReminderRepository,
	scheduler *reminders.Scheduler,
	detector *conflict.Detector,
	outboxRepo *outbox.Repository,
	stats StatsRecorder,
	logger *slog.Logger,
) *Coordinator {
	return &Coordinator{
		pool:      pool,
		appts:     appts,
		catalog:   catalog,
		reminders: remRepo,
		scheduler: scheduler,
		detector:  detector,
		outbox:    outboxRepo,
		stats:     stats,
		logger:    logger,
	}
}

type CreateParams struct {
	BusinessID string
	ServiceID  string
	StaffID    *string
	Customer   model.Customer
	StartsAt   time.Time
	Notes      string
	Channel    string // reminder delivery channel
	// RecurringID is set when the expander materializes a template occurrence.
	RecurringID *string
}

// Create books a new appointment. Status is confirmed unless the service
// requires a deposit, in which case the appointment waits in pending until the
// external payment flow confirms it.
func (c *Coordinator) Create(ctx context.Context, p CreateParams) (model.Appointment, error) {
	biz, err := c.catalog.GetBusiness(ctx, p.BusinessID)
	if err != nil {
		return model.Appointment{}, err
	}
	svc, err := c.catalog.GetService(ctx, p.BusinessID, p.ServiceID)
	if err != nil {
		return model.Appointment{}, err
	}
	if !svc.IsActive {
		return model.Appointment{}, fmt.Errorf("%w: service is not active", model.ErrInvalidInput)
	}
	if p.StaffID != nil {
		staff, err := c.catalog.GetStaff(ctx, p.BusinessID, *p.StaffID)
		if err != nil {
			return model.Appointment{}, err
		}
		if !staff.IsActive {
			return model.Appointment{}, fmt.Errorf("%w: staff member is not active", model.ErrInvalidInput)
		}
	}
	if p.Customer.Name == "" {
		return model.Appointment{}, fmt.Errorf("%w: customer name is required", model.ErrInvalidInput)
	}

	loc, err := time.LoadLocation(biz.Timezone)
	if err != nil {
		return model.Appointment{}, fmt.Errorf("business timezone %q: %w", biz.Timezone, err)
	}

	appt := model.Appointment{
		BusinessID:  p.BusinessID,
		ServiceID:   p.ServiceID,
		StaffID:     p.StaffID,
		Customer:    p.Customer,
		StartsAt:    p.StartsAt.UTC(),
		EndsAt:      p.StartsAt.UTC().Add(time.Duration(svc.DurationMins) * time.Minute),
		Status:      initialStatus(svc),
		RecurringID: p.RecurringID,
		Amount:      svc.Price,
		Deposit:     svc.Deposit,
		Notes:       p.Notes,
	}

	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return model.Appointment{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	day := appt.StartsAt.In(loc).Format("2006-01-02")
	if err := c.appts.AcquireSlotLock(ctx, tx, p.BusinessID, p.StaffID, day); err != nil {
		return model.Appointment{}, err
	}

	blocked, err := c.detector.Check(ctx, tx, conflict.Candidate{
		BusinessID: p.BusinessID,
		ServiceID:  p.ServiceID,
		StaffID:    p.StaffID,
		Start:      appt.StartsAt,
		End:        appt.EndsAt,
	}, svc.MaxPerSlot)
	if err != nil {
		return model.Appointment{}, err
	}
	if blocked {
		return model.Appointment{}, model.ErrSlotUnavailable
	}

	if err := c.appts.Create(ctx, tx, &appt); err != nil {
		return model.Appointment{}, err
	}
	if _, err := c.scheduler.ScheduleStandard(ctx, tx, appt, p.Channel, time.Now().UTC()); err != nil {
		return model.Appointment{}, err
	}
	if err := c.emit(ctx, tx, outbox.EventAppointmentBooked, appt); err != nil {
		return model.Appointment{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Appointment{}, err
	}

	c.stats.BookingsChanged(ctx, appt.BusinessID, appt.StartsAt)
	c.logger.Info("appointment booked",
		"appointment_id", appt.ID, "business_id", appt.BusinessID, "starts_at", appt.StartsAt)
	return appt, nil
}

// Reschedule moves an existing appointment to a new start, keeping its status.
// Pending reminders shift by the same delta; shifted fire-times already in the
// past are skipped.
func (c *Coordinator) Reschedule(ctx context.Context, businessID, appointmentID string, newStart time.Time) (model.Appointment, error) {
	biz, err := c.catalog.GetBusiness(ctx, businessID)
	if err != nil {
		return model.Appointment{}, err
	}
	loc, err := time.LoadLocation(biz.Timezone)
	if err != nil {
		return model.Appointment{}, fmt.Errorf("business timezone %q: %w", biz.Timezone, err)
	}

	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return model.Appointment{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	newStart = newStart.UTC()
	day := newStart.In(loc).Format("2006-01-02")

	appt, err := c.appts.GetForUpdate(ctx, tx, businessID, appointmentID)
	if err != nil {
		return model.Appointment{}, err
	}
	if !appt.CanReschedule() {
		return model.Appointment{}, fmt.Errorf("%w: cannot reschedule a %s appointment", model.ErrInvalidState, appt.Status)
	}

	svc, err := c.catalog.GetService(ctx, businessID, appt.ServiceID)
	if err != nil {
		return model.Appointment{}, err
	}
	newEnd := newStart.Add(time.Duration(svc.DurationMins) * time.Minute)

	if err := c.appts.AcquireSlotLock(ctx, tx, businessID, appt.StaffID, day); err != nil {
		return model.Appointment{}, err
	}
	blocked, err := c.detector.Check(ctx, tx, conflict.Candidate{
		BusinessID:           businessID,
		ServiceID:            appt.ServiceID,
		StaffID:              appt.StaffID,
		Start:                newStart,
		End:                  newEnd,
		ExcludeAppointmentID: &appt.ID,
	}, svc.MaxPerSlot)
	if err != nil {
		return model.Appointment{}, err
	}
	if blocked {
		return model.Appointment{}, model.ErrSlotUnavailable
	}

	delta := newStart.Sub(appt.StartsAt)
	if err := c.appts.UpdateTimes(ctx, tx, appt.ID, newStart, newEnd); err != nil {
		return model.Appointment{}, err
	}
	if err := c.reminders.ShiftPendingForAppointment(ctx, tx, appt.ID, delta, time.Now().UTC()); err != nil {
		return model.Appointment{}, err
	}
	appt.StartsAt = newStart
	appt.EndsAt = newEnd
	if err := c.emit(ctx, tx, outbox.EventAppointmentRescheduled, appt); err != nil {
		return model.Appointment{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Appointment{}, err
	}

	c.stats.BookingsChanged(ctx, appt.BusinessID, appt.StartsAt)
	c.logger.Info("appointment rescheduled",
		"appointment_id", appt.ID, "business_id", appt.BusinessID, "starts_at", appt.StartsAt)
	return appt, nil
}

// Cancel transitions the appointment to canceled and invalidates its pending
// reminders. Canceling an already-canceled appointment is a no-op; canceling a
// completed or no-show one is rejected.
func (c *Coordinator) Cancel(ctx context.Context, businessID, appointmentID string) (model.Appointment, error) {
	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return model.Appointment{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	appt, err := c.appts.GetForUpdate(ctx, tx, businessID, appointmentID)
	if err != nil {
		return model.Appointment{}, err
	}
	if appt.Status == model.StatusCanceled {
		return appt, nil
	}
	if appt.Status.Terminal() {
		return model.Appointment{}, fmt.Errorf("%w: cannot cancel a %s appointment", model.ErrInvalidState, appt.Status)
	}

	canceledAt, err := c.appts.Cancel(ctx, tx, appt.ID)
	if err != nil {
		return model.Appointment{}, err
	}
	if _, err := c.reminders.SkipPendingForAppointment(ctx, tx, appt.ID); err != nil {
		return model.Appointment{}, err
	}
	appt.Status = model.StatusCanceled
	appt.CanceledAt = &canceledAt
	if err := c.emit(ctx, tx, outbox.EventAppointmentCancelled, appt); err != nil {
		return model.Appointment{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Appointment{}, err
	}

	c.stats.BookingsChanged(ctx, appt.BusinessID, appt.StartsAt)
	c.logger.Info("appointment canceled",
		"appointment_id", appt.ID, "business_id", appt.BusinessID)
	return appt, nil
}

// initialStatus derives the post-create status: a deposit keeps the booking
// pending until the external payment flow confirms it.
func initialStatus(svc model.Service) model.AppointmentStatus {
	if svc.RequiresDeposit() {
		return model.StatusPending
	}
	return model.StatusConfirmed
}

func (c *Coordinator) emit(ctx context.Context, tx pgx.Tx, eventType string, appt model.Appointment) error {
	payload, err := json.Marshal(map[string]any{
		"appointment_id": appt.ID,
		"business_id":    appt.BusinessID,
		"service_id":     appt.ServiceID,
		"staff_id":       appt.StaffID,
		"starts_at":      appt.StartsAt.UTC().Format(time.RFC3339),
		"ends_at":        appt.EndsAt.UTC().Format(time.RFC3339),
		"status":         appt.Status,
	})
	if err != nil {
		return err
	}
	return c.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: "appointment",
		AggregateID:   appt.ID,
		EventType:     eventType,
		Payload:       payload,
	})
}
