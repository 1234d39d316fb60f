package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/kozaktomas/face-attendance/internal/ledger"
)

const defaultDaysLimit = 30

// DayLister lists days that have attendance records.
type DayLister interface {
	Days(ctx context.Context, limit int) ([]ledger.Day, error)
}

// AttendanceHandler serves ledger summaries.
type AttendanceHandler struct {
	guard *ledger.Guard
	days  DayLister
}

// NewAttendanceHandler creates an attendance handler. days may be nil.
func NewAttendanceHandler(guard *ledger.Guard, days DayLister) *AttendanceHandler {
	return &AttendanceHandler{guard: guard, days: days}
}

// Summary handles GET /attendance?date=YYYY-MM-DD. The default is today.
func (h *AttendanceHandler) Summary(w http.ResponseWriter, r *http.Request) {
	day := h.guard.Today()
	if v := r.URL.Query().Get("date"); v != "" {
		parsed, err := ledger.ParseDay(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		day = parsed
	}

	summary, err := h.guard.Summary(r.Context(), day)
	if err != nil {
		slog.Error("failed to load attendance", "day", day.String(), "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load attendance")
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// Days handles GET /attendance/days.
func (h *AttendanceHandler) Days(w http.ResponseWriter, r *http.Request) {
	if h.days == nil {
		respondError(w, http.StatusNotImplemented, "ledger backend cannot list days")
		return
	}
	days, err := h.days.Days(r.Context(), queryInt(r, "limit", defaultDaysLimit))
	if err != nil {
		slog.Error("failed to list attendance days", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to list attendance days")
		return
	}
	out := make([]string, len(days))
	for i, d := range days {
		out[i] = d.String()
	}
	respondJSON(w, http.StatusOK, map[string]any{"days": out})
}

// MarkRequest is a manual attendance entry.
type MarkRequest struct {
	IdentityID  string `json:"identity_id"`
	DisplayName string `json:"display_name"`
	Date        string `json:"date,omitempty"`
}

// Mark handles POST /attendance for manual entries.
func (h *AttendanceHandler) Mark(w http.ResponseWriter, r *http.Request) {
	var req MarkRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.IdentityID == "" || req.DisplayName == "" {
		respondError(w, http.StatusBadRequest, "identity_id and display_name are required")
		return
	}

	day := h.guard.Today()
	if req.Date != "" {
		parsed, err := ledger.ParseDay(req.Date)
		if err != nil {
			respondError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		day = parsed
	}

	outcome, err := h.guard.MarkPresent(r.Context(), req.IdentityID, req.DisplayName, day)
	if err != nil {
		slog.Error("failed to mark attendance", "identity", sanitizeForLog(req.IdentityID), "error", err)
		respondError(w, http.StatusInternalServerError, "failed to record attendance")
		return
	}

	status := http.StatusOK
	if outcome == ledger.Recorded {
		status = http.StatusCreated
	}
	respondJSON(w, status, map[string]string{"outcome": string(outcome), "day": day.String()})
}
