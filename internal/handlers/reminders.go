package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ayoubkh/schedula/internal/model"
	"github.com/ayoubkh/schedula/internal/reminders"
)

// RemindersHandler is the pull-based surface for an external dispatcher:
// fetch what is due, then report per-reminder outcomes.
type RemindersHandler struct {
	svc    *reminders.Service
	logger *slog.Logger
}

func NewRemindersHandler(svc *reminders.Service, logger *slog.Logger) *RemindersHandler {
	return &RemindersHandler{svc: svc, logger: logger}
}

type reminderItem struct {
	ReminderID    string `json:"reminder_id"`
	AppointmentID string `json:"appointment_id"`
	Type          string `json:"type"`
	ScheduledFor  string `json:"scheduled_for"`
	Channel       string `json:"channel"`
	Message       string `json:"message"`
	Attempts      int    `json:"attempts"`
}

func (h *RemindersHandler) Due(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_input", Message: "limit must be a positive integer"})
			return
		}
		limit = n
	}

	due, err := h.svc.Due(r.Context(), time.Now().UTC(), limit)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	items := make([]reminderItem, 0, len(due))
	for _, rem := range due {
		items = append(items, reminderItem{
			ReminderID:    rem.ID,
			AppointmentID: rem.AppointmentID,
			Type:          string(rem.Type),
			ScheduledFor:  rem.ScheduledFor.UTC().Format(time.RFC3339),
			Channel:       rem.Channel,
			Message:       rem.Message,
			Attempts:      rem.Attempts,
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{"reminders": items})
}

type markReminderRequest struct {
	ReminderID string `json:"reminder_id" validate:"required,uuid"`
	Status     string `json:"status" validate:"required,oneof=sent failed"`
	Error      string `json:"error"`
}

func (h *RemindersHandler) Mark(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req markReminderRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	var err error
	switch model.ReminderStatus(req.Status) {
	case model.ReminderSent:
		err = h.svc.MarkSent(r.Context(), req.ReminderID)
	case model.ReminderFailed:
		err = h.svc.MarkFailed(r.Context(), req.ReminderID, req.Error)
	}
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"reminder_id": req.ReminderID, "status": req.Status})
}
