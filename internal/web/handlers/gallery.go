package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/gallery"
)

// GalleryHandler exposes the loaded gallery without embeddings.
type GalleryHandler struct {
	gallery *gallery.Gallery
	index   *gallery.Index
}

// NewGalleryHandler creates a gallery handler and builds its neighbour index.
func NewGalleryHandler(g *gallery.Gallery) *GalleryHandler {
	return &GalleryHandler{gallery: g, index: gallery.NewIndex(g)}
}

// GalleryResponse is the body of GET /gallery.
type GalleryResponse struct {
	Entries    int                `json:"entries"`
	Dim        int                `json:"dim"`
	Identities []gallery.Identity `json:"identities"`
}

// List handles GET /gallery. The optional q parameter filters by name,
// ignoring case and diacritics.
func (h *GalleryHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	identities := make([]gallery.Identity, 0)
	for _, id := range h.gallery.Identities() {
		if q == "" || facematch.MatchesNameQuery(id.DisplayName, q) || id.IdentityID == q {
			identities = append(identities, id)
		}
	}
	respondJSON(w, http.StatusOK, GalleryResponse{
		Entries:    h.gallery.Len(),
		Dim:        h.gallery.Dim(),
		Identities: identities,
	})
}

// NeighborResponse is one entry near the requested identity.
type NeighborResponse struct {
	IdentityID  string  `json:"identity_id"`
	DisplayName string  `json:"display_name"`
	Distance    float64 `json:"distance"`
}

// Neighbors handles GET /gallery/{id}/neighbors and lists the entries
// nearest to the identity's first sample.
func (h *GalleryHandler) Neighbors(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	self := -1
	for i := range h.gallery.Len() {
		if h.gallery.At(i).IdentityID == id {
			self = i
			break
		}
	}
	if self < 0 {
		respondError(w, http.StatusNotFound, "identity not found")
		return
	}

	k := queryInt(r, "k", constants.DefaultNeighborCount)
	neighbors, err := h.index.Nearest(h.gallery.At(self).Embedding, k+1)
	if err != nil {
		if errors.Is(err, gallery.ErrDimensionMismatch) {
			respondError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "neighbour search failed")
		return
	}

	out := make([]NeighborResponse, 0, k)
	for _, n := range neighbors {
		if n.Index == self || len(out) == k {
			continue
		}
		out = append(out, NeighborResponse{
			IdentityID:  n.Entry.IdentityID,
			DisplayName: n.Entry.DisplayName,
			Distance:    n.Distance,
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{"identity_id": id, "neighbors": out})
}
