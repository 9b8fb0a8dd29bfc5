package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ayoubkh/schedula/internal/booking"
	"github.com/ayoubkh/schedula/internal/model"
	"github.com/ayoubkh/schedula/internal/storage"
)

type BookingHandler struct {
	coordinator *booking.Coordinator
	appts       *storage.AppointmentRepository
	logger      *slog.Logger
}

func NewBookingHandler(coordinator *booking.Coordinator, appts *storage.AppointmentRepository, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{coordinator: coordinator, appts: appts, logger: logger}
}

type createBookingRequest struct {
	BusinessID    string `json:"business_id" validate:"required,uuid"`
	ServiceID     string `json:"service_id" validate:"required,uuid"`
	StaffID       string `json:"staff_id" validate:"omitempty,uuid"`
	CustomerName  string `json:"customer_name" validate:"required"`
	CustomerEmail string `json:"customer_email" validate:"omitempty,email"`
	CustomerPhone string `json:"customer_phone"`
	StartTime     string `json:"start_time" validate:"required"`
	Notes         string `json:"notes"`
	Channel       string `json:"channel" validate:"omitempty,oneof=email sms whatsapp"`
}

type appointmentResponse struct {
	AppointmentID string `json:"appointment_id"`
	BusinessID    string `json:"business_id"`
	ServiceID     string `json:"service_id"`
	StaffID       string `json:"staff_id,omitempty"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	Status        string `json:"status"`
	RecurringID   string `json:"recurring_id,omitempty"`
	CancelledAt   string `json:"cancelled_at,omitempty"`
}

func toAppointmentResponse(a model.Appointment) appointmentResponse {
	resp := appointmentResponse{
		AppointmentID: a.ID,
		BusinessID:    a.BusinessID,
		ServiceID:     a.ServiceID,
		StartTime:     a.StartsAt.UTC().Format(time.RFC3339),
		EndTime:       a.EndsAt.UTC().Format(time.RFC3339),
		Status:        string(a.Status),
	}
	if a.StaffID != nil {
		resp.StaffID = *a.StaffID
	}
	if a.RecurringID != nil {
		resp.RecurringID = *a.RecurringID
	}
	if a.CanceledAt != nil {
		resp.CancelledAt = a.CanceledAt.UTC().Format(time.RFC3339)
	}
	return resp
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req createBookingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	startsAt, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_input", Message: "start_time must be RFC3339"})
		return
	}

	var staffID *string
	if s := strings.TrimSpace(req.StaffID); s != "" {
		staffID = &s
	}
	appt, err := h.coordinator.Create(r.Context(), booking.CreateParams{
		BusinessID: req.BusinessID,
		ServiceID:  req.ServiceID,
		StaffID:    staffID,
		Customer: model.Customer{
			Name:  strings.TrimSpace(req.CustomerName),
			Email: strings.TrimSpace(req.CustomerEmail),
			Phone: strings.TrimSpace(req.CustomerPhone),
		},
		StartsAt: startsAt,
		Notes:    req.Notes,
		Channel:  req.Channel,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, toAppointmentResponse(appt))
}

type rescheduleRequest struct {
	BusinessID    string `json:"business_id" validate:"required,uuid"`
	AppointmentID string `json:"appointment_id" validate:"required,uuid"`
	NewStartTime  string `json:"new_start_time" validate:"required"`
}

func (h *BookingHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req rescheduleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	newStart, err := time.Parse(time.RFC3339, req.NewStartTime)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_input", Message: "new_start_time must be RFC3339"})
		return
	}
	appt, err := h.coordinator.Reschedule(r.Context(), req.BusinessID, req.AppointmentID, newStart)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

type cancelRequest struct {
	BusinessID    string `json:"business_id" validate:"required,uuid"`
	AppointmentID string `json:"appointment_id" validate:"required,uuid"`
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req cancelRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	appt, err := h.coordinator.Cancel(r.Context(), req.BusinessID, req.AppointmentID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	q := r.URL.Query()
	businessID := strings.TrimSpace(q.Get("business_id"))
	if businessID == "" {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_input", Message: "business_id is required"})
		return
	}
	limit := 100
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_input", Message: "limit must be a positive integer"})
			return
		}
		limit = n
	}
	from := time.Now().UTC().AddDate(0, -1, 0)
	to := time.Now().UTC().AddDate(1, 0, 0)
	if raw := q.Get("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_input", Message: "from must be RFC3339"})
			return
		}
		from = t
	}
	if raw := q.Get("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_input", Message: "to must be RFC3339"})
			return
		}
		to = t
	}

	appts, err := h.appts.ListByBusiness(r.Context(), businessID, from, to, limit)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	items := make([]appointmentResponse, 0, len(appts))
	for _, a := range appts {
		items = append(items, toAppointmentResponse(a))
	}
	respondJSON(w, http.StatusOK, map[string]any{"appointments": items})
}
