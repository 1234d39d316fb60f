package capture

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kozaktomas/face-attendance/internal/imaging"
)

const maxSnapshotSize = 20 << 20

// HTTPSource polls a snapshot URL (as exposed by most IP cameras) and
// decodes each response as one frame.
type HTTPSource struct {
	url      string
	interval time.Duration
	client   *http.Client
	seq      int
	last     time.Time
}

// NewHTTPSource creates a source that fetches url at most once per interval.
func NewHTTPSource(url string, interval time.Duration) *HTTPSource {
	return &HTTPSource{
		url:      url,
		interval: interval,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Next implements Source. Any fetch or decode failure is ErrUnavailable.
func (s *HTTPSource) Next(ctx context.Context) (Frame, error) {
	if wait := s.interval - time.Since(s.last); s.interval > 0 && !s.last.IsZero() && wait > 0 {
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Frame{}, ctx.Err()
		case <-timer.C:
		}
	}
	s.last = time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return Frame{}, ctx.Err()
		}
		return Frame{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Frame{}, fmt.Errorf("%w: snapshot returned status %d", ErrUnavailable, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSnapshotSize))
	if err != nil {
		return Frame{}, fmt.Errorf("%w: reading snapshot: %v", ErrUnavailable, err)
	}
	img, err := imaging.Decode(data)
	if err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	frame := Frame{Seq: s.seq, Image: img, CapturedAt: s.last}
	s.seq++
	return frame, nil
}

// Close implements Source.
func (s *HTTPSource) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
