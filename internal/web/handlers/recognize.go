package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/embedder"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/kozaktomas/face-attendance/internal/metrics"
)

// FaceInput is one precomputed face embedding.
type FaceInput struct {
	Embedding []float32 `json:"embedding"`
	BBox      []float64 `json:"bbox,omitempty"`
}

// RecognizeRequest carries either a single embedding or a list of faces.
// Mark defaults to true.
type RecognizeRequest struct {
	Embedding []float32   `json:"embedding,omitempty"`
	Faces     []FaceInput `json:"faces,omitempty"`
	Mark      *bool       `json:"mark,omitempty"`
}

// FaceMatch is the response for one face. Distance is null when the
// gallery is empty.
type FaceMatch struct {
	Decision      string    `json:"decision"`
	IdentityID    string    `json:"identity_id,omitempty"`
	DisplayName   string    `json:"display_name,omitempty"`
	CandidateID   string    `json:"candidate_id,omitempty"`
	CandidateName string    `json:"candidate_name,omitempty"`
	Distance      *float64  `json:"distance"`
	BBox          []float64 `json:"bbox,omitempty"`
	Attendance    string    `json:"attendance,omitempty"`
	Error         string    `json:"error,omitempty"`
}

// RecognizeResponse lists the faces in request order.
type RecognizeResponse struct {
	Day   string      `json:"day"`
	Faces []FaceMatch `json:"faces"`
}

// RecognizeHandler resolves faces against the gallery and marks attendance
// for recognised identities.
type RecognizeHandler struct {
	matcher   *facematch.Matcher
	guard     *ledger.Guard
	detector  embedder.Source
	threshold float64
	metrics   *metrics.Metrics
}

// NewRecognizeHandler creates a recognize handler. A nil guard disables
// marking and a nil detector disables image uploads.
func NewRecognizeHandler(matcher *facematch.Matcher, guard *ledger.Guard, detector embedder.Source, threshold float64, m *metrics.Metrics) *RecognizeHandler {
	return &RecognizeHandler{
		matcher:   matcher,
		guard:     guard,
		detector:  detector,
		threshold: threshold,
		metrics:   m,
	}
}

// Recognize handles POST /recognize with a JSON body or a multipart image upload.
func (h *RecognizeHandler) Recognize(w http.ResponseWriter, r *http.Request) {
	var (
		faces []FaceInput
		mark  = true
	)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		var ok bool
		faces, ok = h.facesFromUpload(w, r)
		if !ok {
			return
		}
		mark = r.FormValue("mark") != "false"
	} else {
		var req RecognizeRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, constants.MaxUploadSize)).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, errInvalidRequestBody)
			return
		}
		faces = req.Faces
		if len(req.Embedding) > 0 {
			faces = append([]FaceInput{{Embedding: req.Embedding}}, faces...)
		}
		if len(faces) == 0 {
			respondError(w, http.StatusBadRequest, "embedding or faces is required")
			return
		}
		if req.Mark != nil {
			mark = *req.Mark
		}
	}

	resp := RecognizeResponse{Faces: make([]FaceMatch, 0, len(faces))}
	day := ledger.Day{}
	if h.guard != nil {
		day = h.guard.Today()
		resp.Day = day.String()
	}

	for _, face := range faces {
		result, err := h.matcher.Resolve(gallery.Embedding(face.Embedding), h.threshold)
		if err != nil {
			if errors.Is(err, facematch.ErrDimensionMismatch) {
				respondError(w, http.StatusUnprocessableEntity, err.Error())
				return
			}
			respondError(w, http.StatusInternalServerError, "failed to resolve face")
			return
		}
		h.metrics.ObserveRecognition(result)

		match := newFaceMatch(result, face.BBox)
		if result.Known() && mark && h.guard != nil {
			outcome, err := h.guard.MarkPresent(r.Context(), result.IdentityID, result.DisplayName, day)
			if err != nil {
				slog.Error("failed to mark attendance",
					"identity", sanitizeForLog(result.IdentityID), "error", err)
				match.Attendance = "failed"
				match.Error = err.Error()
			} else {
				match.Attendance = string(outcome)
			}
		}
		resp.Faces = append(resp.Faces, match)
	}

	respondJSON(w, http.StatusOK, resp)
}

func (h *RecognizeHandler) facesFromUpload(w http.ResponseWriter, r *http.Request) ([]FaceInput, bool) {
	if h.detector == nil {
		respondError(w, http.StatusServiceUnavailable, "image recognition requires EMBEDDING_URL")
		return nil, false
	}
	if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return nil, false
	}
	file, _, err := r.FormFile("image")
	if err != nil {
		respondError(w, http.StatusBadRequest, "image is required")
		return nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read image")
		return nil, false
	}
	detected, err := h.detector.DetectFaces(r.Context(), data)
	if err != nil {
		slog.Warn("face detection failed", "error", err)
		respondError(w, http.StatusBadGateway, "face detection failed")
		return nil, false
	}

	faces := make([]FaceInput, len(detected))
	for i, f := range detected {
		faces[i] = FaceInput{Embedding: f.Embedding, BBox: f.BBox}
	}
	return faces, true
}

func newFaceMatch(r facematch.MatchResult, bbox []float64) FaceMatch {
	m := FaceMatch{Decision: string(r.Decision), BBox: bbox}
	if !math.IsInf(r.Distance, 0) {
		d := r.Distance
		m.Distance = &d
	}
	switch {
	case r.Known():
		m.IdentityID = r.IdentityID
		m.DisplayName = r.DisplayName
	case r.HasCandidate():
		m.CandidateID = r.IdentityID
		m.CandidateName = r.DisplayName
	}
	return m
}
