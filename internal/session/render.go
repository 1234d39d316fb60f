package session

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/kozaktomas/face-attendance/internal/capture"
	"github.com/kozaktomas/face-attendance/internal/imaging"
)

const boxLineWidth = 2

// Annotate returns a copy of img with a green box around every known face
// and a red box around every unknown one.
func Annotate(img image.Image, faces []FaceResult) *image.RGBA {
	dst := imaging.Clone(img)
	for _, f := range faces {
		c := imaging.Red
		if f.Match.Known() {
			c = imaging.Green
		}
		imaging.DrawBox(dst, f.BBox, boxLineWidth, c)
	}
	return dst
}

// SnapshotRenderer writes the annotated frame to a JPEG file, replacing it
// atomically so a viewer polling the file never sees a partial image.
type SnapshotRenderer struct {
	Path string
}

// Render implements Renderer.
func (r *SnapshotRenderer) Render(ctx context.Context, frame capture.Frame, faces []FaceResult) error {
	data, err := imaging.EncodeJPEG(Annotate(frame.Image, faces))
	if err != nil {
		return fmt.Errorf("encoding annotated frame: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(r.Path), 0o755); err != nil {
		return err
	}
	tmp := r.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, r.Path)
}
