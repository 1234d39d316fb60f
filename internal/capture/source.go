// Package capture provides camera frame sources for the live session.
package capture

import (
	"context"
	"errors"
	"image"
	"time"
)

var (
	// ErrUnavailable means the source cannot produce frames. It is fatal to a session.
	ErrUnavailable = errors.New("capture source unavailable")
	// ErrEndOfStream is returned by finite sources after the last frame.
	ErrEndOfStream = errors.New("end of capture stream")
)

// Frame is one captured image.
type Frame struct {
	Seq        int
	Image      image.Image
	CapturedAt time.Time
}

// Source yields successive frames. Next blocks until a frame is available.
type Source interface {
	Next(ctx context.Context) (Frame, error)
	Close() error
}
