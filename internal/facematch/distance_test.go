package facematch

import (
	"errors"
	"math"
	"testing"

	"github.com/kozaktomas/face-attendance/internal/gallery"
)

func TestDistances(t *testing.T) {
	got, err := Distances(gallery.Embedding{0, 0}, []gallery.Embedding{{3, 4}, {0, 0}, {1, 0}})
	if err != nil {
		t.Fatalf("Distances() error: %v", err)
	}
	want := []float64{5, 0, 1}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Errorf("distance[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestDistances_Errors(t *testing.T) {
	if _, err := Distances(gallery.Embedding{0, 0}, nil); !errors.Is(err, ErrEmptyCandidates) {
		t.Errorf("expected ErrEmptyCandidates, got %v", err)
	}
	_, err := Distances(gallery.Embedding{0, 0}, []gallery.Embedding{{1, 1}, {1, 1, 1}})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
	if !errors.Is(err, gallery.ErrDimensionMismatch) {
		t.Error("facematch and gallery dimension errors should be the same sentinel")
	}
}

func TestCosineDistance(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 1},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, 2},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := (Cosine{}).Distance(tt.a, tt.b); math.Abs(got-tt.expected) > 1e-6 {
				t.Errorf("Cosine.Distance() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestMetricByName(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"", "euclidean", false},
		{"Euclidean", "euclidean", false},
		{"l2", "euclidean", false},
		{" cosine ", "cosine", false},
		{"manhattan", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			m, err := MetricByName(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownMetric) {
					t.Errorf("expected ErrUnknownMetric, got %v", err)
				}
				return
			}
			if err != nil || m.Name() != tt.want {
				t.Errorf("MetricByName(%q) = %v, %v", tt.input, m, err)
			}
		})
	}
}
