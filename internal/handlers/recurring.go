package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ayoubkh/schedula/internal/model"
	"github.com/ayoubkh/schedula/internal/recurrence"
	"github.com/ayoubkh/schedula/internal/storage"
)

type RecurringHandler struct {
	expander  *recurrence.Expander
	templates *storage.TemplateRepository
	logger    *slog.Logger
}

func NewRecurringHandler(expander *recurrence.Expander, templates *storage.TemplateRepository, logger *slog.Logger) *RecurringHandler {
	return &RecurringHandler{expander: expander, templates: templates, logger: logger}
}

type createTemplateRequest struct {
	BusinessID    string `json:"business_id" validate:"required,uuid"`
	ServiceID     string `json:"service_id" validate:"required,uuid"`
	StaffID       string `json:"staff_id" validate:"omitempty,uuid"`
	CustomerName  string `json:"customer_name" validate:"required"`
	CustomerEmail string `json:"customer_email" validate:"omitempty,email"`
	CustomerPhone string `json:"customer_phone"`
	Frequency     string `json:"frequency" validate:"required,oneof=weekly bi_weekly monthly"`
	StartDate     string `json:"start_date" validate:"required"`
	EndDate       string `json:"end_date"`
	TimeOfDay     string `json:"time_of_day" validate:"required"`
}

func (h *RecurringHandler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req createTemplateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	startDate, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_input", Message: "start_date must be YYYY-MM-DD"})
		return
	}
	var endDate *time.Time
	if req.EndDate != "" {
		t, err := time.Parse("2006-01-02", req.EndDate)
		if err != nil {
			respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_input", Message: "end_date must be YYYY-MM-DD"})
			return
		}
		endDate = &t
	}
	if _, err := time.Parse("15:04", req.TimeOfDay); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_input", Message: "time_of_day must be HH:MM"})
		return
	}

	tmpl := model.RecurringTemplate{
		BusinessID: req.BusinessID,
		ServiceID:  req.ServiceID,
		Customer: model.Customer{
			Name:  strings.TrimSpace(req.CustomerName),
			Email: strings.TrimSpace(req.CustomerEmail),
			Phone: strings.TrimSpace(req.CustomerPhone),
		},
		Frequency: model.Frequency(req.Frequency),
		StartDate: startDate,
		EndDate:   endDate,
		TimeOfDay: req.TimeOfDay,
		IsActive:  true,
	}
	if s := strings.TrimSpace(req.StaffID); s != "" {
		tmpl.StaffID = &s
	}
	if err := h.templates.Create(r.Context(), &tmpl); err != nil {
		writeError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"template_id": tmpl.ID})
}

type expandRequest struct {
	// TemplateID empty means expand every active template.
	TemplateID  string `json:"template_id" validate:"omitempty,uuid"`
	HorizonDays int    `json:"horizon_days" validate:"omitempty,min=1,max=366"`
}

func (h *RecurringHandler) Expand(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	// An empty body means "expand everything on the default horizon".
	var req expandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_input", Message: "invalid json body"})
		return
	}
	if err := validate.Struct(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_input", Message: err.Error()})
		return
	}

	var (
		sum recurrence.Summary
		err error
	)
	if req.TemplateID != "" {
		sum, err = h.expander.Expand(r.Context(), req.TemplateID, req.HorizonDays)
	} else {
		sum, err = h.expander.ExpandAll(r.Context(), req.HorizonDays)
	}
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, sum)
}

type deactivateRequest struct {
	TemplateID string `json:"template_id" validate:"required,uuid"`
}

func (h *RecurringHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req deactivateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	canceled, err := h.expander.Deactivate(r.Context(), req.TemplateID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"template_id":           req.TemplateID,
		"canceled_appointments": canceled,
	})
}
