// Package sampler selects uniformly spaced frames from a video session.
package sampler

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/agleyzer/vidset/internal/faults"
	"github.com/agleyzer/vidset/internal/video"
	"golang.org/x/image/draw"
)

// Size is an output resolution in pixels.
type Size struct {
	Width  int
	Height int
}

// String formats the size as WxH.
func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// ParseSize parses a WxH resolution such as "640x480".
func ParseSize(s string) (Size, error) {
	w, h, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return Size{}, fmt.Errorf("%w: size %q is not WxH", faults.ErrConfiguration, s)
	}
	width, err := strconv.Atoi(w)
	if err != nil {
		return Size{}, fmt.Errorf("%w: size %q: bad width", faults.ErrConfiguration, s)
	}
	height, err := strconv.Atoi(h)
	if err != nil {
		return Size{}, fmt.Errorf("%w: size %q: bad height", faults.ErrConfiguration, s)
	}
	size := Size{Width: width, Height: height}
	return size, size.Validate()
}

// Validate requires both dimensions to be positive.
func (s Size) Validate() error {
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("%w: frame size %s must be positive", faults.ErrConfiguration, s)
	}
	return nil
}

// Frame is one sampled, resized frame.
type Frame struct {
	// Sequence is the 1-based position among sampled frames
	Sequence int

	// SourceIndex is the 0-based index of the frame in the source stream
	SourceIndex int

	Image image.Image
}

// Result summarizes a sampling pass.
type Result struct {
	Requested int
	Extracted int
	Interval  int

	// Decoded counts frames pulled from the session, selected or not
	Decoded int

	// Partial is set when the stream ended before Requested frames were sampled
	Partial bool
}

// Interval returns the spacing between sampled source indices, floor(total/count).
// It fails when count is not positive or exceeds total, since no uniform spacing exists.
func Interval(total, count int) (int, error) {
	if count < 1 {
		return 0, fmt.Errorf("%w: frame count must be at least 1, got %d", faults.ErrConfiguration, count)
	}
	interval := total / count
	if interval == 0 {
		return 0, fmt.Errorf("%w: requested frame count exceeds available source frames (%d > %d)",
			faults.ErrConfiguration, count, total)
	}
	return interval, nil
}

// Sampler pulls frames from a session and emits every interval-th one, resized.
type Sampler struct {
	count  int
	size   Size
	scaler draw.Scaler
	logger *slog.Logger
}

// New creates a sampler for count frames at the given output size.
func New(count int, size Size, logger *slog.Logger) (*Sampler, error) {
	if count < 1 {
		return nil, fmt.Errorf("%w: frame count must be at least 1, got %d", faults.ErrConfiguration, count)
	}
	if err := size.Validate(); err != nil {
		return nil, err
	}

	return &Sampler{
		count:  count,
		size:   size,
		scaler: draw.BiLinear,
		logger: logger,
	}, nil
}

// Run walks the session from its first frame and hands each selected frame to emit, in order.
// The walk stops once count frames were emitted or the stream ends; an early end is reported
// through Result.Partial rather than as an error. Errors from emit abort the pass.
func (s *Sampler) Run(ctx context.Context, sess video.Session, emit func(Frame) error) (Result, error) {
	total := sess.FrameCount()
	result := Result{Requested: s.count}

	interval, err := Interval(total, s.count)
	if err != nil {
		return result, err
	}
	result.Interval = interval

	s.logger.Debug("sampling video",
		"video", sess.Path(),
		"totalFrames", total,
		"fps", sess.FrameRate(),
		"duration", sess.Duration(),
		"interval", interval,
		"requested", s.count,
	)

	for i := 0; i < total && result.Extracted < s.count; i++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		img, err := sess.Next()
		if errors.Is(err, faults.ErrResourceOpen) {
			return result, err
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.logger.Warn("decode failed, treating as end of stream",
					"video", sess.Path(),
					"index", i,
					"error", err,
				)
			}
			break
		}
		result.Decoded++

		if i%interval != 0 {
			continue
		}

		frame := Frame{
			Sequence:    result.Extracted + 1,
			SourceIndex: i,
			Image:       s.resize(img),
		}
		if err := emit(frame); err != nil {
			return result, fmt.Errorf("emit frame %d: %w", frame.Sequence, err)
		}
		result.Extracted++
	}

	result.Partial = result.Extracted < s.count
	return result, nil
}

// resize scales src into a freshly allocated image of the sampler's output size.
func (s *Sampler) resize(src image.Image) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, s.size.Width, s.size.Height))
	s.scaler.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}
