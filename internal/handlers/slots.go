package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ayoubkh/schedula/internal/availability"
	"github.com/ayoubkh/schedula/internal/calendar"
	"github.com/ayoubkh/schedula/internal/conflict"
	"github.com/ayoubkh/schedula/internal/model"
	"github.com/ayoubkh/schedula/internal/storage"
	"github.com/ayoubkh/schedula/libs/db"
)

const defaultIntervalMinutes = 30

// SlotsHandler serves the bookable start-times for one business-local date.
// Slot generation is stateless and recomputed per request; existing bookings
// are applied as a post-filter over the generated sequence.
type SlotsHandler struct {
	pool     *db.Pool
	calendar *calendar.Store
	catalog  *storage.CatalogRepository
	appts    *storage.AppointmentRepository
	logger   *slog.Logger
}

func NewSlotsHandler(pool *db.Pool, cal *calendar.Store, catalog *storage.CatalogRepository, appts *storage.AppointmentRepository, logger *slog.Logger) *SlotsHandler {
	return &SlotsHandler{pool: pool, calendar: cal, catalog: catalog, appts: appts, logger: logger}
}

type slotItem struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type slotsResponse struct {
	Date   string     `json:"date"`
	Closed bool       `json:"closed"`
	Slots  []slotItem `json:"slots"`
}

func (h *SlotsHandler) List(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	q := r.URL.Query()
	businessID := strings.TrimSpace(q.Get("business_id"))
	serviceID := strings.TrimSpace(q.Get("service_id"))
	dateStr := strings.TrimSpace(q.Get("date"))
	if businessID == "" || serviceID == "" || dateStr == "" {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_input", Message: "business_id, service_id and date are required"})
		return
	}
	var staffID *string
	if s := strings.TrimSpace(q.Get("staff_id")); s != "" {
		staffID = &s
	}
	intervalMins := defaultIntervalMinutes
	if raw := q.Get("interval_minutes"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_input", Message: "interval_minutes must be a positive integer"})
			return
		}
		intervalMins = n
	}

	ctx := r.Context()
	biz, err := h.catalog.GetBusiness(ctx, businessID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	svc, err := h.catalog.GetService(ctx, businessID, serviceID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	loc, err := time.LoadLocation(biz.Timezone)
	if err != nil {
		h.logger.Error("bad business timezone", "business_id", businessID, "tz", biz.Timezone, "err", err)
		respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal"})
		return
	}
	day, err := time.ParseInLocation("2006-01-02", dateStr, loc)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_input", Message: "date must be YYYY-MM-DD"})
		return
	}

	hours, err := h.calendar.EffectiveHours(ctx, businessID, staffID, day, loc)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	resp := slotsResponse{Date: dateStr, Closed: hours.Closed, Slots: []slotItem{}}
	if hours.Closed {
		respondJSON(w, http.StatusOK, resp)
		return
	}

	duration := time.Duration(svc.DurationMins) * time.Minute
	step := time.Duration(intervalMins) * time.Minute
	starts := availability.Slots(hours.Windows, duration, step)
	if len(starts) == 0 {
		respondJSON(w, http.StatusOK, resp)
		return
	}

	// One overlap query for the whole day, then the capacity rule per slot.
	dayStart := day
	dayEnd := day.AddDate(0, 0, 1)
	booked, err := h.appts.ListOverlapping(ctx, h.pool, businessID, staffID, dayStart.UTC(), dayEnd.UTC(), nil)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	now := time.Now().UTC()
	for _, start := range starts {
		if start.Before(now) {
			continue
		}
		end := start.Add(duration)
		var overlapping []model.Appointment
		for _, a := range booked {
			if availability.Overlaps(start, end, a.StartsAt, a.EndsAt) {
				overlapping = append(overlapping, a)
			}
		}
		c := conflict.Candidate{
			BusinessID: businessID,
			ServiceID:  serviceID,
			StaffID:    staffID,
			Start:      start,
			End:        end,
		}
		if conflict.Blocks(c, overlapping, svc.MaxPerSlot) {
			continue
		}
		resp.Slots = append(resp.Slots, slotItem{
			StartTime: start.UTC().Format(time.RFC3339),
			EndTime:   end.UTC().Format(time.RFC3339),
		})
	}
	respondJSON(w, http.StatusOK, resp)
}
