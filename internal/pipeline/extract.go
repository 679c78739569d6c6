// Package pipeline runs the two dataset stages: frame extraction and train/val/test splitting.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/agleyzer/vidset/internal/config"
	"github.com/agleyzer/vidset/internal/metrics"
	"github.com/agleyzer/vidset/internal/progress"
	"github.com/agleyzer/vidset/internal/sampler"
	"github.com/agleyzer/vidset/internal/video"
)

// ExtractResult describes a finished extraction.
type ExtractResult struct {
	sampler.Result

	// Dir is the directory the frames were written to
	Dir string
}

// Extractor samples frames from one video and stores them as JPEG images.
type Extractor struct {
	open     video.Opener
	metrics  *metrics.Recorder
	progress io.Writer
	logger   *slog.Logger
}

// NewExtractor creates an extractor. progressOut may be nil to disable the progress bar.
func NewExtractor(open video.Opener, rec *metrics.Recorder, progressOut io.Writer, logger *slog.Logger) *Extractor {
	return &Extractor{
		open:     open,
		metrics:  rec,
		progress: progressOut,
		logger:   logger,
	}
}

// Extract writes cfg.FrameCount uniformly spaced frames of cfg.Video to
// <cfg.FramesDir>/<stem>/<stem>-<k>.jpg. Configuration is validated, and the source is
// probed, before any directory or file is created. A stream that ends early yields a
// partial result and no error.
func (e *Extractor) Extract(ctx context.Context, cfg *config.Config) (ExtractResult, error) {
	start := time.Now()
	defer e.metrics.ObserveStage(metrics.StageExtract, start)

	if err := cfg.ValidateExtract(); err != nil {
		return ExtractResult{}, err
	}

	smp, err := sampler.New(cfg.FrameCount, cfg.FrameSize.Size(), e.logger)
	if err != nil {
		return ExtractResult{}, err
	}

	stem := sourceStem(cfg.Video)
	result := ExtractResult{Dir: filepath.Join(cfg.FramesDir, stem)}

	err = video.Use(ctx, e.open, cfg.Video, func(sess video.Session) error {
		if _, err := sampler.Interval(sess.FrameCount(), cfg.FrameCount); err != nil {
			return err
		}

		e.logger.Info("extracting frames",
			"video", sess.Path(),
			"totalFrames", sess.FrameCount(),
			"fps", sess.FrameRate(),
			"duration", sess.Duration(),
			"requested", cfg.FrameCount,
			"size", cfg.FrameSize.Size().String(),
			"dir", result.Dir,
		)

		if err := os.MkdirAll(result.Dir, 0o755); err != nil {
			return fmt.Errorf("create frames directory: %w", err)
		}

		writer := sampler.JPEGWriter{Dir: result.Dir, Stem: stem, Quality: cfg.JPEGQuality}
		bar := progress.New(e.progress, cfg.FrameCount, "frames")
		defer bar.Finish()

		res, err := smp.Run(ctx, sess, func(f sampler.Frame) error {
			path, err := writer.Write(f)
			if err != nil {
				return err
			}
			bar.Add(1)
			e.logger.Debug("wrote frame", "path", path, "sourceIndex", f.SourceIndex)
			return nil
		})
		result.Result = res
		return err
	})

	e.metrics.FramesDecoded.Add(float64(result.Decoded))
	e.metrics.FramesExtracted.Add(float64(result.Extracted))

	if err != nil {
		return result, err
	}

	if result.Partial {
		e.metrics.PartialExtractions.Inc()
		e.logger.Warn("stream ended before all frames were extracted",
			"video", cfg.Video,
			"extracted", result.Extracted,
			"requested", result.Requested,
			"interval", result.Interval,
		)
	}

	e.logger.Info("extraction complete",
		"video", cfg.Video,
		"extracted", result.Extracted,
		"interval", result.Interval,
		"dir", result.Dir,
		"elapsed", time.Since(start),
	)

	return result, nil
}

// sourceStem names the frame directory and files after the source, using the URL path for
// remote playlists so query strings do not leak into file names.
func sourceStem(location string) string {
	if u, err := url.Parse(location); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return sampler.Stem(u.Path)
	}
	return sampler.Stem(location)
}
