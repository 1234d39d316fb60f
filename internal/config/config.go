package config

import (
	_ "embed"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Paths      PathsConfig
	Matching   MatchingConfig
	Capture    CaptureConfig
	Embedding  EmbeddingConfig
	Ledger     LedgerConfig
	Database   DatabaseConfig
	Web        WebConfig
	Evaluation EvaluationConfig
	LogLevel   string
}

type PathsConfig struct {
	GalleryFile   string // persisted gallery (default encodings/face_encodings.gob)
	GallerySource string // file (default) or postgres
	DatasetDir    string // NUMBER_Name_Surname.jpg images for gallery rebuilds
	AttendanceDir string // one workbook per day
	UnknownDir    string // crops of unrecognized faces
	ResultsDir    string // evaluation report and chart data
}

type MatchingConfig struct {
	Threshold float64 // maximum distance for a KNOWN decision
	Metric    string  // "euclidean" (default) or "cosine"
}

type CaptureConfig struct {
	URL                 string  // HTTP snapshot endpoint of an IP camera
	Dir                 string  // directory of frames, used when URL is empty
	ProcessEveryNFrames int     // run recognition on every Nth frame
	FrameScale          float64 // downscale factor applied before detection
	Interval            time.Duration
}

type EmbeddingConfig struct {
	URL string // face embedding service, defaults to http://localhost:8000
	Dim int    // expected embedding dimensionality, 0 disables the check
}

type LedgerConfig struct {
	Backend  string // xlsx (default), postgres or mariadb
	Timezone string // IANA zone used to compute the attendance day, empty = local
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MariaDBDSN   string // MariaDB DSN (user:pass@tcp(host:3306)/db)
	MaxOpenConns int
	MaxIdleConns int
}

type WebConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string // CORS origins in addition to localhost
}

type EvaluationConfig struct {
	SweepThresholds []float64   `yaml:"sweep_thresholds"`
	Curve           CurveConfig `yaml:"curve"`
	LeaveOneOut     bool        `yaml:"-"`
}

type CurveConfig struct {
	Start float64 `yaml:"start"`
	Stop  float64 `yaml:"stop"`
	Step  float64 `yaml:"step"`
}

type defaultsFile struct {
	Evaluation EvaluationConfig `yaml:"evaluation"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a positive float.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

// envThreshold reads a distance threshold. Zero is valid and accepts exact
// matches only; negative or unparsable values fall back to defaultVal.
func envThreshold(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f >= 0 && !math.IsNaN(f) {
		return f
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func envList(key string) []string {
	var out []string
	for part := range strings.SplitSeq(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d >= 0 {
		return d
	}
	return defaultVal
}

// envFloatList parses a comma-separated list such as "0.4,0.5,0.6".
// Invalid lists fall back to the default.
func envFloatList(key string, defaultVal []float64) []float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	var out []float64
	for part := range strings.SplitSeq(s, ",") {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil || f < 0 {
			return defaultVal
		}
		out = append(out, f)
	}
	return out
}

func Load() *Config {
	var defaults defaultsFile
	if err := yaml.Unmarshal(defaultsYAML, &defaults); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}

	eval := defaults.Evaluation
	eval.SweepThresholds = envFloatList("EVAL_THRESHOLDS", eval.SweepThresholds)
	eval.LeaveOneOut = os.Getenv("EVAL_LEAVE_ONE_OUT") == "true"

	return &Config{
		Paths: PathsConfig{
			GalleryFile:   envString("GALLERY_PATH", "encodings/face_encodings.gob"),
			GallerySource: envString("GALLERY_SOURCE", "file"),
			DatasetDir:    envString("DATASET_DIR", "dataset"),
			AttendanceDir: envString("ATTENDANCE_DIR", "attendance"),
			UnknownDir:    envString("UNKNOWN_DIR", "unknown"),
			ResultsDir:    envString("RESULTS_DIR", "analysis_results"),
		},
		Matching: MatchingConfig{
			Threshold: envThreshold("MATCH_THRESHOLD", 0.50),
			Metric:    envString("DISTANCE_METRIC", "euclidean"),
		},
		Capture: CaptureConfig{
			URL:                 os.Getenv("CAPTURE_URL"),
			Dir:                 os.Getenv("CAPTURE_DIR"),
			ProcessEveryNFrames: envInt("PROCESS_EVERY_N_FRAMES", 4),
			FrameScale:          envFloat("FRAME_SCALE", 0.25),
			Interval:            envDuration("CAPTURE_INTERVAL", 40*time.Millisecond),
		},
		Embedding: EmbeddingConfig{
			URL: os.Getenv("EMBEDDING_URL"),
			Dim: envInt("EMBEDDING_DIM", 128),
		},
		Ledger: LedgerConfig{
			Backend:  envString("LEDGER_BACKEND", "xlsx"),
			Timezone: os.Getenv("TIMEZONE"),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MariaDBDSN:   os.Getenv("MARIADB_DSN"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 10),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 2),
		},
		Web: WebConfig{
			Host:           envString("WEB_HOST", "0.0.0.0"),
			Port:           envInt("WEB_PORT", 8080),
			AllowedOrigins: envList("WEB_ALLOWED_ORIGINS"),
		},
		Evaluation: eval,
		LogLevel:   envString("LOG_LEVEL", "info"),
	}
}

// Location returns the time zone used to decide which calendar day an
// attendance event belongs to.
func (c *LedgerConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// CurveThresholds expands the accuracy curve range into individual thresholds.
// The stop value is exclusive.
func (c *EvaluationConfig) CurveThresholds() []float64 {
	if c.Curve.Step <= 0 || c.Curve.Stop <= c.Curve.Start {
		return nil
	}
	n := int((c.Curve.Stop-c.Curve.Start)/c.Curve.Step + 1e-9)
	out := make([]float64, 0, n)
	for i := range n {
		// Round to avoid 0.30000000000000004 style labels in reports.
		t := c.Curve.Start + float64(i)*c.Curve.Step
		out = append(out, float64(int(t*10000+0.5))/10000)
	}
	return out
}
