package handlers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ayoubkh/schedula/internal/aggregates"
)

type StatsHandler struct {
	recorder *aggregates.Recorder
	logger   *slog.Logger
}

func NewStatsHandler(recorder *aggregates.Recorder, logger *slog.Logger) *StatsHandler {
	return &StatsHandler{recorder: recorder, logger: logger}
}

// Get returns the derived monthly counters, recomputed from source tables on
// every read.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	q := r.URL.Query()
	businessID := strings.TrimSpace(q.Get("business_id"))
	if businessID == "" {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_input", Message: "business_id is required"})
		return
	}
	at := time.Now().UTC()
	if raw := q.Get("month"); raw != "" {
		t, err := time.Parse("2006-01", raw)
		if err != nil {
			respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_input", Message: "month must be YYYY-MM"})
			return
		}
		at = t
	}
	stats, err := h.recorder.Snapshot(r.Context(), businessID, at)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}
