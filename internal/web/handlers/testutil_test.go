package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/kozaktomas/face-attendance/internal/ledger"
)

var testNow = time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC)

// testGallery returns a small two-dimensional gallery.
func testGallery(t *testing.T) *gallery.Gallery {
	t.Helper()
	g, err := gallery.New([]gallery.Entry{
		{IdentityID: "1001", DisplayName: "Ali Veli", Embedding: gallery.Embedding{0, 0}},
		{IdentityID: "1002", DisplayName: "Ayşe Yılmaz", Embedding: gallery.Embedding{0.65, 0}},
		{IdentityID: "1003", DisplayName: "Mehmet Öz", Embedding: gallery.Embedding{3, 3}},
	})
	if err != nil {
		t.Fatal(err)
	}
	return g
}

// testGuard returns a guard over a mock store with a fixed clock.
func testGuard(store ledger.Store) *ledger.Guard {
	return ledger.NewGuard(store,
		ledger.WithClock(func() time.Time { return testNow }),
		ledger.WithLocation(time.UTC))
}

func testMatcher(t *testing.T) *facematch.Matcher {
	t.Helper()
	return facematch.NewMatcher(testGallery(t), facematch.Euclidean{})
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d: %s", expected, recorder.Code, recorder.Body.String())
	}
}

func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to parse response: %v\nbody: %s", err, recorder.Body.String())
	}
}

