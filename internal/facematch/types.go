// Package facematch decides who a face embedding belongs to. It compares a
// query against every gallery entry and accepts the nearest one when it lies
// within the distance threshold.
package facematch

import (
	"math"

	"github.com/kozaktomas/face-attendance/internal/gallery"
)

// Decision is the outcome of matching one face.
type Decision string

const (
	DecisionKnown   Decision = "known"   // nearest entry is within the threshold
	DecisionUnknown Decision = "unknown" // no entry, or nearest entry too far
)

// MatchResult describes the nearest gallery entry for a query embedding.
// For an UNKNOWN decision the nearest identity, if any, is still reported
// as a candidate so callers can show how close it was.
type MatchResult struct {
	Index       int // gallery position of the nearest entry, -1 if none
	IdentityID  string
	DisplayName string
	Distance    float64 // +Inf when the gallery is empty
	Decision    Decision
}

// NoMatch is the result for an empty candidate set.
func NoMatch() MatchResult {
	return MatchResult{Index: -1, Distance: math.Inf(1), Decision: DecisionUnknown}
}

// Known reports whether the match was accepted.
func (r MatchResult) Known() bool {
	return r.Decision == DecisionKnown
}

// HasCandidate reports whether any gallery entry was compared.
func (r MatchResult) HasCandidate() bool {
	return r.Index >= 0
}

func newResult(entry gallery.Entry, index int, distance, threshold float64) MatchResult {
	r := MatchResult{
		Index:       index,
		IdentityID:  entry.IdentityID,
		DisplayName: entry.DisplayName,
		Distance:    distance,
	}
	r.Decision = DecisionAt(r, threshold)
	return r
}

// DecisionAt re-decides a result at another threshold without recomputing distances.
func DecisionAt(r MatchResult, threshold float64) Decision {
	if r.HasCandidate() && r.Distance <= threshold {
		return DecisionKnown
	}
	return DecisionUnknown
}
