// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/kozaktomas/face-attendance/internal/capture"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/embedder"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/kozaktomas/face-attendance/internal/ledger"
)

// MockLedgerStore is a mock implementation of database.LedgerStore. Like the
// SQL stores it rejects a second record for the same identity and day.
type MockLedgerStore struct {
	mu      sync.RWMutex
	records map[ledger.Day][]ledger.Record

	// Error injection
	LoadError   error
	AppendError error
	DaysError   error

	// Call tracking
	AppendCalls int
}

// NewMockLedgerStore creates a new mock ledger store
func NewMockLedgerStore() *MockLedgerStore {
	return &MockLedgerStore{
		records: make(map[ledger.Day][]ledger.Record),
	}
}

// Load returns the records of day
func (m *MockLedgerStore) Load(ctx context.Context, day ledger.Day) ([]ledger.Record, error) {
	if m.LoadError != nil {
		return nil, m.LoadError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]ledger.Record(nil), m.records[day]...), nil
}

// Append adds a record unless the identity is already present on that day
func (m *MockLedgerStore) Append(ctx context.Context, day ledger.Day, rec ledger.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AppendCalls++
	if m.AppendError != nil {
		return m.AppendError
	}
	for _, existing := range m.records[day] {
		if existing.IdentityID == rec.IdentityID {
			return ledger.ErrDuplicate
		}
	}
	m.records[day] = append(m.records[day], rec)
	return nil
}

// Location describes where the day's records live
func (m *MockLedgerStore) Location(day ledger.Day) string {
	return "mock://attendance/" + day.String()
}

// Days lists days with records, newest first
func (m *MockLedgerStore) Days(ctx context.Context, limit int) ([]ledger.Day, error) {
	if m.DaysError != nil {
		return nil, m.DaysError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	days := make([]ledger.Day, 0, len(m.records))
	for day, recs := range m.records {
		if len(recs) > 0 {
			days = append(days, day)
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i].String() > days[j].String() })
	if limit > 0 && len(days) > limit {
		days = days[:limit]
	}
	return days, nil
}

// Count returns the number of records stored for day
func (m *MockLedgerStore) Count(day ledger.Day) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records[day])
}

// MockGalleryRepository is a mock implementation of database.GalleryWriter
type MockGalleryRepository struct {
	mu      sync.RWMutex
	gallery *gallery.Gallery

	// Error injection
	AllError     error
	CountError   error
	NearestError error
	ReplaceError error
}

// NewMockGalleryRepository creates a mock repository holding g (may be nil)
func NewMockGalleryRepository(g *gallery.Gallery) *MockGalleryRepository {
	return &MockGalleryRepository{gallery: g}
}

// All returns the stored gallery
func (m *MockGalleryRepository) All(ctx context.Context) (*gallery.Gallery, error) {
	if m.AllError != nil {
		return nil, m.AllError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.gallery == nil {
		return gallery.New(nil)
	}
	return m.gallery, nil
}

// Count returns the number of stored entries
func (m *MockGalleryRepository) Count(ctx context.Context) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.gallery.Len(), nil
}

// Nearest returns the k closest entries by brute force
func (m *MockGalleryRepository) Nearest(ctx context.Context, embedding gallery.Embedding, k int) ([]gallery.Neighbor, error) {
	if m.NearestError != nil {
		return nil, m.NearestError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.gallery.Len() == 0 {
		return nil, nil
	}

	dists, err := facematch.Distances(embedding, m.gallery.Embeddings())
	if err != nil {
		return nil, err
	}
	neighbors := make([]gallery.Neighbor, len(dists))
	for i, d := range dists {
		neighbors[i] = gallery.Neighbor{Index: i, Entry: m.gallery.At(i), Distance: d}
	}
	sort.SliceStable(neighbors, func(i, j int) bool { return neighbors[i].Distance < neighbors[j].Distance })
	if k > 0 && len(neighbors) > k {
		neighbors = neighbors[:k]
	}
	return neighbors, nil
}

// Replace swaps the stored gallery
func (m *MockGalleryRepository) Replace(ctx context.Context, g *gallery.Gallery) error {
	if m.ReplaceError != nil {
		return m.ReplaceError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gallery = g
	return nil
}

// MockEmbedder is a mock implementation of embedder.Source that returns
// queued responses in order and then repeats the last one.
type MockEmbedder struct {
	mu        sync.Mutex
	responses [][]embedder.Face

	// Error injection
	DetectError error

	// Call tracking
	Calls int
}

// NewMockEmbedder creates a mock embedder returning the given responses
func NewMockEmbedder(responses ...[]embedder.Face) *MockEmbedder {
	return &MockEmbedder{responses: responses}
}

// DetectFaces returns the next queued response
func (m *MockEmbedder) DetectFaces(ctx context.Context, imageData []byte) ([]embedder.Face, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	call := m.Calls
	m.Calls++
	if m.DetectError != nil {
		return nil, m.DetectError
	}
	if len(m.responses) == 0 {
		return nil, nil
	}
	if call >= len(m.responses) {
		call = len(m.responses) - 1
	}
	return m.responses[call], nil
}

// MockCaptureSource is a mock implementation of capture.Source yielding a
// fixed list of frames and then ErrEndOfStream (or FinalError when set).
type MockCaptureSource struct {
	mu     sync.Mutex
	frames []capture.Frame
	pos    int

	// Error injection
	FinalError error

	Closed bool
}

// NewMockCaptureSource creates a source over frames
func NewMockCaptureSource(frames ...capture.Frame) *MockCaptureSource {
	return &MockCaptureSource{frames: frames}
}

// Next returns the next frame
func (m *MockCaptureSource) Next(ctx context.Context) (capture.Frame, error) {
	if err := ctx.Err(); err != nil {
		return capture.Frame{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pos >= len(m.frames) {
		if m.FinalError != nil {
			return capture.Frame{}, m.FinalError
		}
		return capture.Frame{}, capture.ErrEndOfStream
	}
	f := m.frames[m.pos]
	f.Seq = m.pos
	m.pos++
	return f, nil
}

// Close marks the source closed
func (m *MockCaptureSource) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}

// Served returns how many frames were handed out
func (m *MockCaptureSource) Served() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pos
}

// ErrInjected is a generic error for failure-path tests
var ErrInjected = errors.New("mock: injected failure")

var (
	_ database.LedgerStore   = (*MockLedgerStore)(nil)
	_ database.GalleryWriter = (*MockGalleryRepository)(nil)
	_ embedder.Source        = (*MockEmbedder)(nil)
	_ capture.Source         = (*MockCaptureSource)(nil)
)
