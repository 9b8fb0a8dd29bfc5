package handlers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ayoubkh/schedula/internal/model"
	"github.com/ayoubkh/schedula/internal/storage"
)

// AvailabilityHandler manages weekly hour rules and per-date exceptions.
type AvailabilityHandler struct {
	rules  *storage.RuleRepository
	logger *slog.Logger
}

func NewAvailabilityHandler(rules *storage.RuleRepository, logger *slog.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{rules: rules, logger: logger}
}

type ruleRequest struct {
	BusinessID  string `json:"business_id" validate:"required,uuid"`
	StaffID     string `json:"staff_id" validate:"omitempty,uuid"`
	Weekday     *int   `json:"weekday" validate:"required"`
	StartMinute *int   `json:"start_minute" validate:"required"`
	EndMinute   *int   `json:"end_minute" validate:"required"`
}

type ruleItem struct {
	RuleID      string `json:"rule_id"`
	BusinessID  string `json:"business_id"`
	StaffID     string `json:"staff_id,omitempty"`
	Weekday     int    `json:"weekday"`
	StartMinute int    `json:"start_minute"`
	EndMinute   int    `json:"end_minute"`
}

// Rules routes by method: PUT creates, GET lists, DELETE removes.
func (h *AvailabilityHandler) Rules(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPut:
		h.createRule(w, r)
	case http.MethodGet:
		h.listRules(w, r)
	case http.MethodDelete:
		h.deleteRule(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *AvailabilityHandler) createRule(w http.ResponseWriter, r *http.Request) {
	var req ruleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	rule := model.AvailabilityRule{
		BusinessID:  req.BusinessID,
		Weekday:     *req.Weekday,
		StartMinute: *req.StartMinute,
		EndMinute:   *req.EndMinute,
	}
	if s := strings.TrimSpace(req.StaffID); s != "" {
		rule.StaffID = &s
	}
	if err := h.rules.CreateRule(r.Context(), &rule); err != nil {
		writeError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, toRuleItem(rule))
}

func (h *AvailabilityHandler) listRules(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	businessID := strings.TrimSpace(q.Get("business_id"))
	if businessID == "" {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_input", Message: "business_id is required"})
		return
	}
	var staffID *string
	if s := strings.TrimSpace(q.Get("staff_id")); s != "" {
		staffID = &s
	}
	rules, err := h.rules.ListRules(r.Context(), businessID, staffID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	items := make([]ruleItem, 0, len(rules))
	for _, rule := range rules {
		items = append(items, toRuleItem(rule))
	}
	respondJSON(w, http.StatusOK, map[string]any{"rules": items})
}

func (h *AvailabilityHandler) deleteRule(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	businessID := strings.TrimSpace(q.Get("business_id"))
	ruleID := strings.TrimSpace(q.Get("rule_id"))
	if businessID == "" || ruleID == "" {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_input", Message: "business_id and rule_id are required"})
		return
	}
	if err := h.rules.DeleteRule(r.Context(), businessID, ruleID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toRuleItem(rule model.AvailabilityRule) ruleItem {
	item := ruleItem{
		RuleID:      rule.ID,
		BusinessID:  rule.BusinessID,
		Weekday:     rule.Weekday,
		StartMinute: rule.StartMinute,
		EndMinute:   rule.EndMinute,
	}
	if rule.StaffID != nil {
		item.StaffID = *rule.StaffID
	}
	return item
}

type exceptionRequest struct {
	BusinessID    string `json:"business_id" validate:"required,uuid"`
	StaffID       string `json:"staff_id" validate:"omitempty,uuid"`
	Date          string `json:"date" validate:"required"`
	IsClosed      bool   `json:"is_closed"`
	OverrideStart *int   `json:"override_start_minute"`
	OverrideEnd   *int   `json:"override_end_minute"`
	Reason        string `json:"reason"`
}

// Exceptions upserts the one exception row per (business, staff-or-null,
// date); repeated writes are last-write-wins.
func (h *AvailabilityHandler) Exceptions(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPut) {
		return
	}
	var req exceptionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_input", Message: "date must be YYYY-MM-DD"})
		return
	}
	exc := model.AvailabilityException{
		BusinessID:    req.BusinessID,
		Date:          date,
		IsClosed:      req.IsClosed,
		OverrideStart: req.OverrideStart,
		OverrideEnd:   req.OverrideEnd,
		Reason:        req.Reason,
	}
	if s := strings.TrimSpace(req.StaffID); s != "" {
		exc.StaffID = &s
	}
	if err := h.rules.UpsertException(r.Context(), &exc); err != nil {
		writeError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"exception_id": exc.ID})
}
