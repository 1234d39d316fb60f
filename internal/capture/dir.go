package capture

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/kozaktomas/face-attendance/internal/imaging"
)

// DirSource replays image files from a directory in name order. It is used
// for recorded sessions and for testing without a camera.
type DirSource struct {
	files []string
	pos   int
	loop  bool
}

// NewDirSource lists the images in dir. With loop set the source restarts
// after the last file instead of ending.
func NewDirSource(dir string, loop bool) (*DirSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !gallery.IsImageFile(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no frames in %s", ErrUnavailable, dir)
	}
	sort.Strings(files)
	return &DirSource{files: files, loop: loop}, nil
}

// Next implements Source.
func (s *DirSource) Next(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	if s.pos >= len(s.files) {
		if !s.loop {
			return Frame{}, ErrEndOfStream
		}
		s.pos = 0
	}
	path := s.files[s.pos%len(s.files)]
	seq := s.pos
	s.pos++

	data, err := os.ReadFile(path)
	if err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	img, err := imaging.Decode(data)
	if err != nil {
		return Frame{}, fmt.Errorf("%w: %s: %v", ErrUnavailable, path, err)
	}
	return Frame{Seq: seq, Image: img, CapturedAt: time.Now()}, nil
}

// Close implements Source.
func (s *DirSource) Close() error { return nil }
