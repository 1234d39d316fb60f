// Package metrics exposes Prometheus metrics for recognition and attendance.
package metrics

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/ledger"
)

const namespace = "face_attendance"

// Metrics holds all application collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	Recognitions        *prometheus.CounterVec
	RecognitionDistance prometheus.Histogram
	AttendanceOutcomes  *prometheus.CounterVec
	LedgerFailures      *prometheus.CounterVec
	FramesProcessed     prometheus.Counter
	FramesSkipped       prometheus.Counter
	GallerySize         prometheus.Gauge

	registry *prometheus.Registry
}

// New creates the collectors and registers them on registry. When registry
// is nil a fresh one is created with the Go and process collectors.
func New(registry *prometheus.Registry) (*Metrics, error) {
	if registry == nil {
		registry = prometheus.NewRegistry()
		if err := registry.Register(collectors.NewGoCollector()); err != nil {
			return nil, fmt.Errorf("failed to register go collector: %w", err)
		}
		if err := registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
			return nil, fmt.Errorf("failed to register process collector: %w", err)
		}
	}

	m := &Metrics{
		Recognitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recognitions_total",
			Help:      "Faces resolved against the gallery, by decision.",
		}, []string{"decision"}),
		RecognitionDistance: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recognition_distance",
			Help:      "Distance to the nearest gallery entry.",
			Buckets:   prometheus.LinearBuckets(0.1, 0.1, 12),
		}),
		AttendanceOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attendance_marks_total",
			Help:      "Attendance mark attempts, by outcome.",
		}, []string{"outcome"}),
		LedgerFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_failures_total",
			Help:      "Ledger load or write failures.",
		}, []string{"operation"}),
		FramesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_processed_total",
			Help:      "Frames sent to face detection.",
		}),
		FramesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_skipped_total",
			Help:      "Frames rendered with the previous result.",
		}),
		GallerySize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "gallery_entries",
			Help:      "Number of entries in the loaded gallery.",
		}),
		registry: registry,
	}

	for _, c := range []prometheus.Collector{
		m.Recognitions, m.RecognitionDistance, m.AttendanceOutcomes,
		m.LedgerFailures, m.FramesProcessed, m.FramesSkipped, m.GallerySize,
	} {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
	}
	return m, nil
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveRecognition counts one resolved face.
func (m *Metrics) ObserveRecognition(r facematch.MatchResult) {
	if m == nil {
		return
	}
	m.Recognitions.WithLabelValues(string(r.Decision)).Inc()
	if r.HasCandidate() {
		m.RecognitionDistance.Observe(r.Distance)
	}
}

// ObserveMark implements ledger.Observer.
func (m *Metrics) ObserveMark(outcome ledger.Outcome, err error) {
	if m == nil {
		return
	}
	switch {
	case err == nil:
		m.AttendanceOutcomes.WithLabelValues(string(outcome)).Inc()
	case errors.Is(err, ledger.ErrLedgerRead):
		m.AttendanceOutcomes.WithLabelValues("failed").Inc()
		m.LedgerFailures.WithLabelValues("read").Inc()
	case errors.Is(err, ledger.ErrLedgerWrite):
		m.AttendanceOutcomes.WithLabelValues("failed").Inc()
		m.LedgerFailures.WithLabelValues("write").Inc()
	default:
		m.AttendanceOutcomes.WithLabelValues("failed").Inc()
	}
}

// ObserveFrame counts a captured frame.
func (m *Metrics) ObserveFrame(processed bool) {
	if m == nil {
		return
	}
	if processed {
		m.FramesProcessed.Inc()
	} else {
		m.FramesSkipped.Inc()
	}
}

// SetGallerySize records the loaded gallery size.
func (m *Metrics) SetGallerySize(n int) {
	if m == nil {
		return
	}
	m.GallerySize.Set(float64(n))
}

var _ ledger.Observer = (*Metrics)(nil)
