package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGalleryHandler_List(t *testing.T) {
	h := NewGalleryHandler(testGallery(t))

	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{"1001", "1002", "1003"}},
		{"?q=ayse", []string{"1002"}},
		{"?q=MEHMET%20oz", []string{"1003"}},
		{"?q=1001", []string{"1001"}},
		{"?q=nobody", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			h.List(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/gallery"+tt.query, nil))
			assertStatusCode(t, recorder, http.StatusOK)

			var resp GalleryResponse
			parseJSONResponse(t, recorder, &resp)
			if resp.Entries != 3 || resp.Dim != 2 {
				t.Errorf("unexpected gallery size %d/%d", resp.Entries, resp.Dim)
			}
			if len(resp.Identities) != len(tt.want) {
				t.Fatalf("got %d identities, want %v", len(resp.Identities), tt.want)
			}
			for i, id := range tt.want {
				if resp.Identities[i].IdentityID != id {
					t.Errorf("identity %d = %s, want %s", i, resp.Identities[i].IdentityID, id)
				}
			}
		})
	}
}

func TestGalleryHandler_Neighbors(t *testing.T) {
	h := NewGalleryHandler(testGallery(t))

	req := requestWithChiParams(
		httptest.NewRequest(http.MethodGet, "/api/v1/gallery/1001/neighbors?k=1", nil),
		map[string]string{"id": "1001"})
	recorder := httptest.NewRecorder()
	h.Neighbors(recorder, req)
	assertStatusCode(t, recorder, http.StatusOK)

	var resp struct {
		Neighbors []NeighborResponse `json:"neighbors"`
	}
	parseJSONResponse(t, recorder, &resp)
	if len(resp.Neighbors) != 1 || resp.Neighbors[0].IdentityID != "1002" {
		t.Fatalf("expected 1002 as nearest neighbour, got %+v", resp.Neighbors)
	}
	if d := resp.Neighbors[0].Distance; d < 0.649 || d > 0.651 {
		t.Errorf("unexpected distance %v", d)
	}

	req = requestWithChiParams(
		httptest.NewRequest(http.MethodGet, "/api/v1/gallery/9999/neighbors", nil),
		map[string]string{"id": "9999"})
	recorder = httptest.NewRecorder()
	h.Neighbors(recorder, req)
	assertStatusCode(t, recorder, http.StatusNotFound)
}
