// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// Face matching constants
const (
	// DefaultDistanceThreshold is the default maximum Euclidean distance for a KNOWN decision
	// Lower values = stricter matching
	DefaultDistanceThreshold = 0.5

	// ReferenceEmbeddingDim is the dimensionality of the reference face model
	ReferenceEmbeddingDim = 128

	// DefaultNeighborCount is the number of nearest gallery entries listed by diagnostics
	DefaultNeighborCount = 5
)

// Live session constants
const (
	// DefaultProcessEveryNFrames runs recognition on every Nth captured frame
	DefaultProcessEveryNFrames = 4

	// DefaultFrameScale is the downscale factor applied to frames before detection
	DefaultFrameScale = 0.25

	// SummaryChannelBuffer is the buffer size for summary request channels
	SummaryChannelBuffer = 1
)

// Attendance constants
const (
	// StatusPresent is the status cell written for present students
	StatusPresent = "Geldi"

	// LedgerFilePrefix is the per-day workbook file name prefix
	LedgerFilePrefix = "yoklama_"

	// LedgerDateFormat is the display format of the date column
	LedgerDateFormat = "02.01.2006"

	// LedgerTimeFormat is the display format of the time column
	LedgerTimeFormat = "15:04:05"

	// DayKeyFormat is the canonical YYYY-MM-DD form of an attendance day
	DayKeyFormat = "2006-01-02"
)

// File upload constants
const (
	// MaxUploadSize is the maximum request body size in bytes (10MB)
	MaxUploadSize = 10 << 20
)
