// Package video provides sequential frame access to video files and HLS VOD playlists.
package video

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/agleyzer/vidset/internal/faults"
)

// Session is an open, decodable video. Frames are pulled strictly in order; there is no seek.
type Session interface {
	// Path is the source location the session was opened from.
	Path() string

	// FrameCount is the total number of frames reported (or estimated) for the source.
	FrameCount() int

	// FrameRate is the source frame rate in frames per second.
	FrameRate() float64

	// Duration is FrameCount / FrameRate.
	Duration() time.Duration

	// Next decodes the next frame. It returns io.EOF once the stream is exhausted.
	// The returned image is only valid until the following call.
	Next() (image.Image, error)

	// Close releases the decoder. It is safe to call more than once.
	Close() error
}

// Opener opens a Session for a source location.
type Opener func(ctx context.Context, path string) (Session, error)

// Info holds the probed properties of a source.
type Info struct {
	Path       string
	FrameCount int
	FrameRate  float64
	Width      int
	Height     int

	// Variant is set for HLS master playlists and names the chosen rendition
	Variant *PlaylistInfo
}

// Duration returns the stream duration implied by the frame count and rate.
func (i Info) Duration() time.Duration {
	if i.FrameRate <= 0 {
		return 0
	}
	return time.Duration(float64(i.FrameCount) / i.FrameRate * float64(time.Second))
}

// Validate rejects sources whose duration is undefined or whose frames cannot be decoded.
func (i Info) Validate() error {
	if i.FrameCount <= 0 {
		return fmt.Errorf("%w: %s has no frames", faults.ErrResourceOpen, i.Path)
	}
	if i.FrameRate <= 0 {
		return fmt.Errorf("%w: %s has no frame rate", faults.ErrResourceOpen, i.Path)
	}
	if i.Width <= 0 || i.Height <= 0 {
		return fmt.Errorf("%w: %s has no video dimensions", faults.ErrResourceOpen, i.Path)
	}
	return nil
}

// Use opens a session, hands it to fn, and closes it on every exit path.
// A close failure is joined with the error returned by fn.
func Use(ctx context.Context, open Opener, path string, fn func(Session) error) (err error) {
	sess, err := open(ctx, path)
	if err != nil {
		return err
	}

	defer func() {
		if cerr := sess.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("close %s: %w", path, cerr))
		}
	}()

	return fn(sess)
}
