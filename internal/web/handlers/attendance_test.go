package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kozaktomas/face-attendance/internal/database/mock"
	"github.com/kozaktomas/face-attendance/internal/ledger"
)

func TestAttendanceHandler_Summary(t *testing.T) {
	store := mock.NewMockLedgerStore()
	guard := testGuard(store)
	if _, err := guard.MarkPresent(t.Context(), "1001", "Ali Veli", guard.Today()); err != nil {
		t.Fatal(err)
	}
	h := NewAttendanceHandler(guard, store)

	tests := []struct {
		name    string
		query   string
		status  int
		present int
	}{
		{"today", "", http.StatusOK, 1},
		{"explicit date", "?date=2024-03-11", http.StatusOK, 1},
		{"other day", "?date=2024-03-12", http.StatusOK, 0},
		{"invalid date", "?date=11.03.2024", http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			h.Summary(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/attendance"+tt.query, nil))
			assertStatusCode(t, recorder, tt.status)
			if tt.status != http.StatusOK {
				return
			}
			var s ledger.Summary
			parseJSONResponse(t, recorder, &s)
			if s.Present != tt.present {
				t.Errorf("present = %d, want %d", s.Present, tt.present)
			}
		})
	}
}

func TestAttendanceHandler_SummaryLoadFailure(t *testing.T) {
	store := mock.NewMockLedgerStore()
	store.LoadError = mock.ErrInjected
	h := NewAttendanceHandler(testGuard(store), nil)

	recorder := httptest.NewRecorder()
	h.Summary(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/attendance", nil))
	assertStatusCode(t, recorder, http.StatusInternalServerError)
}

func TestAttendanceHandler_Mark(t *testing.T) {
	store := mock.NewMockLedgerStore()
	h := NewAttendanceHandler(testGuard(store), store)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"first mark", `{"identity_id":"1001","display_name":"Ali Veli"}`, http.StatusCreated},
		{"repeat", `{"identity_id":"1001","display_name":"Ali Veli"}`, http.StatusOK},
		{"other day", `{"identity_id":"1001","display_name":"Ali Veli","date":"2024-03-10"}`, http.StatusCreated},
		{"missing name", `{"identity_id":"1001"}`, http.StatusBadRequest},
		{"bad date", `{"identity_id":"1001","display_name":"Ali Veli","date":"yesterday"}`, http.StatusBadRequest},
		{"bad json", `{`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			h.Mark(recorder, httptest.NewRequest(http.MethodPost, "/api/v1/attendance", strings.NewReader(tt.body)))
			assertStatusCode(t, recorder, tt.status)
		})
	}

	recorder := httptest.NewRecorder()
	h.Days(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/attendance/days", nil))
	assertStatusCode(t, recorder, http.StatusOK)
	if !strings.Contains(recorder.Body.String(), `"days":["2024-03-11","2024-03-10"]`) {
		t.Errorf("unexpected days response %s", recorder.Body.String())
	}
}

func TestAttendanceHandler_DaysUnsupported(t *testing.T) {
	h := NewAttendanceHandler(testGuard(mock.NewMockLedgerStore()), nil)
	recorder := httptest.NewRecorder()
	h.Days(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/attendance/days", nil))
	assertStatusCode(t, recorder, http.StatusNotImplemented)
}
