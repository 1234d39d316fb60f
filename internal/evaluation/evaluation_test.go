package evaluation

import (
	"errors"
	"math"
	"testing"

	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/gallery"
)

func mustGallery(t *testing.T, entries ...gallery.Entry) *gallery.Gallery {
	t.Helper()
	g, err := gallery.New(entries)
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func entry(id, name string, emb ...float32) gallery.Entry {
	return gallery.Entry{IdentityID: id, DisplayName: name, Embedding: emb}
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestEvaluate_EmptyGallery(t *testing.T) {
	if _, err := Evaluate(mustGallery(t), Options{}); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
	if _, err := Evaluate(nil, Options{}); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData for nil gallery, got %v", err)
	}
}

func TestEvaluate_SelfComparison(t *testing.T) {
	g := mustGallery(t,
		entry("001", "Ali", 0, 0),
		entry("002", "Veli", 0.65, 0),
	)
	r, err := Evaluate(g, Options{
		Threshold:       0.5,
		SweepThresholds: []float64{0.4, 0.5},
		CurveThresholds: []float64{0.3, 0.6},
	})
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}

	if r.Mode != SelfComparison {
		t.Errorf("default mode should be self-comparison, got %q", r.Mode)
	}
	for _, q := range r.Queries {
		if !q.Correct() || q.Distance != 0 {
			t.Errorf("self-comparison should match each entry to itself at 0: %+v", q)
		}
	}
	if r.Accuracy != 1 || r.Precision != 1 || r.Recall != 1 || r.F1 != 1 {
		t.Errorf("expected perfect scores, got acc=%v p=%v r=%v f1=%v", r.Accuracy, r.Precision, r.Recall, r.F1)
	}
	if len(r.Warnings) != 1 {
		t.Errorf("expected a single-sample warning, got %v", r.Warnings)
	}
	for _, tally := range r.Sweep {
		if tally.Correct != 2 || tally.Total() != 2 {
			t.Errorf("unexpected tally %+v", tally)
		}
	}
}

func TestEvaluate_LeaveOneOut(t *testing.T) {
	g := mustGallery(t,
		entry("001", "Ali", 0, 0),
		entry("001", "Ali", 0.3, 0),
		entry("002", "Veli", 1, 0),
		entry("002", "Veli", 1.8, 0),
	)
	r, err := Evaluate(g, Options{
		Mode:            LeaveOneOut,
		Threshold:       0.5,
		SweepThresholds: []float64{0.2, 0.5, 0.8},
		CurveThresholds: []float64{0.5},
	})
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}

	// Nearest other entries: 0->1 (0.3), 1->0 (0.3), 2->1 (0.7, wrong), 3->2 (0.8).
	wantPred := []string{"001", "001", "001", "002"}
	wantDist := []float64{0.3, 0.3, 0.7, 0.8}
	for i, q := range r.Queries {
		if q.Predicted != wantPred[i] || !approx(q.Distance, wantDist[i]) {
			t.Errorf("query %d: got %s at %.2f, want %s at %.2f", i, q.Predicted, q.Distance, wantPred[i], wantDist[i])
		}
	}
	if !approx(r.Accuracy, 0.75) {
		t.Errorf("accuracy = %v, want 0.75", r.Accuracy)
	}
	if len(r.Warnings) != 0 {
		t.Errorf("no single-sample identities, got warnings %v", r.Warnings)
	}

	tests := []struct {
		threshold                   float64
		correct, incorrect, unknown int
	}{
		{0.2, 0, 0, 4},
		{0.5, 2, 0, 2},
		{0.8, 3, 1, 0},
	}
	for i, tt := range tests {
		got := r.Sweep[i]
		if got.Correct != tt.correct || got.Incorrect != tt.incorrect || got.Unknown != tt.unknown {
			t.Errorf("threshold %.2f: got %+v", tt.threshold, got)
		}
	}
	if !approx(r.Curve[0].Accuracy, 0.5) {
		t.Errorf("curve at 0.5 = %v, want 0.5", r.Curve[0].Accuracy)
	}

	// 001: precision 2/3, recall 1. 002: precision 1, recall 1/2.
	ali, veli := r.Classes[0], r.Classes[1]
	if !approx(ali.Precision, 2.0/3) || ali.Recall != 1 || ali.Support != 2 {
		t.Errorf("unexpected stats for 001: %+v", ali)
	}
	if veli.Precision != 1 || veli.Recall != 0.5 || !approx(veli.F1, 2.0/3) {
		t.Errorf("unexpected stats for 002: %+v", veli)
	}
	if !approx(r.Precision, (2.0/3+1)/2) || !approx(r.Recall, 0.75) {
		t.Errorf("weighted precision/recall = %v/%v", r.Precision, r.Recall)
	}
	if r.Confusion.At("002", "001") != 1 || r.Confusion.At("001", "001") != 2 {
		t.Errorf("unexpected confusion matrix %+v", r.Confusion)
	}
	if len(r.CorrectDistances) != 3 || len(r.IncorrectDistances) != 1 {
		t.Errorf("correct/incorrect split = %v / %v", r.CorrectDistances, r.IncorrectDistances)
	}
}

func TestEvaluate_LeaveOneOutSingleEntry(t *testing.T) {
	r, err := Evaluate(mustGallery(t, entry("001", "Ali", 1, 2)), Options{
		Mode:            LeaveOneOut,
		SweepThresholds: []float64{0.5},
	})
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	q := r.Queries[0]
	if q.Predicted != NoPrediction || !math.IsInf(q.Distance, 1) {
		t.Errorf("lone entry should have no prediction, got %+v", q)
	}
	if r.Sweep[0].Unknown != 1 {
		t.Errorf("lone entry should count as unknown: %+v", r.Sweep[0])
	}
	if r.Distances.Count != 0 {
		t.Errorf("infinite distances must not enter the statistics: %+v", r.Distances)
	}
	if r.Confusion.At("001", NoPrediction) != 1 {
		t.Errorf("confusion matrix should include the no-prediction column: %+v", r.Confusion)
	}
	if r.Precision != 0 || r.F1 != 0 {
		t.Errorf("zero division must yield 0, got p=%v f1=%v", r.Precision, r.F1)
	}
}

func TestEvaluate_UnknownMode(t *testing.T) {
	if _, err := Evaluate(mustGallery(t, entry("1", "A", 0)), Options{Mode: "bootstrap"}); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestDistanceStats(t *testing.T) {
	s := distanceStats([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	if s.Mean != 5 || s.Min != 2 || s.Max != 9 || s.Std != 2 {
		t.Errorf("unexpected stats %+v (population std of this set is 2)", s)
	}
	if empty := distanceStats(nil); empty.Count != 0 {
		t.Errorf("expected zero stats, got %+v", empty)
	}
}

func TestConfusionLabelsSorted(t *testing.T) {
	m := confusion([]Query{
		{GroundTruth: "b", Predicted: "a"},
		{GroundTruth: "a", Predicted: "a"},
		{GroundTruth: "c", Predicted: "c"},
	})
	want := []string{"a", "b", "c"}
	for i, l := range want {
		if m.Labels[i] != l {
			t.Fatalf("labels = %v, want %v", m.Labels, want)
		}
	}
	if m.At("b", "a") != 1 || m.At("b", "b") != 0 || m.At("x", "a") != 0 {
		t.Errorf("unexpected counts %v", m.Counts)
	}
}

func TestEvaluate_ZeroThresholdIsStrict(t *testing.T) {
	g := mustGallery(t,
		entry("001", "Ali", 0, 0),
		entry("001", "Ali", 0, 0),
		entry("002", "Veli", 0.1, 0),
	)
	r, err := Evaluate(g, Options{Mode: LeaveOneOut, Threshold: 0})
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if r.Threshold != 0 {
		t.Errorf("threshold = %v, want 0 to be kept", r.Threshold)
	}

	want := []facematch.Decision{facematch.DecisionKnown, facematch.DecisionKnown, facematch.DecisionUnknown}
	for i, q := range r.Queries {
		if q.Decision != want[i] {
			t.Errorf("query %d decision = %s, want %s (distance %v)", i, q.Decision, want[i], q.Distance)
		}
	}
}

func TestEvaluate_InvalidThreshold(t *testing.T) {
	g := mustGallery(t, entry("1", "A", 0))
	for _, th := range []float64{-0.1, math.NaN()} {
		if _, err := Evaluate(g, Options{Threshold: th}); err == nil {
			t.Errorf("expected error for threshold %v", th)
		}
	}
}
