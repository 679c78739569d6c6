package pipeline

import (
	"context"
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/agleyzer/vidset/internal/config"
	"github.com/agleyzer/vidset/internal/corpus"
	"github.com/agleyzer/vidset/internal/manifest"
	"github.com/agleyzer/vidset/internal/materialize"
	"github.com/agleyzer/vidset/internal/metrics"
	"github.com/agleyzer/vidset/internal/partition"
	"github.com/agleyzer/vidset/internal/progress"
)

// SplitResult describes a finished split.
type SplitResult struct {
	Split partition.Split
	Seed  int64

	// Copied counts files written per subset label
	Copied map[string]int

	// Manifest is the manifest path, empty when none was written
	Manifest string
}

// Splitter partitions an image corpus and materializes the subsets.
type Splitter struct {
	metrics  *metrics.Recorder
	progress io.Writer
	logger   *slog.Logger
	now      func() time.Time
}

// NewSplitter creates a splitter. progressOut may be nil to disable progress bars.
func NewSplitter(rec *metrics.Recorder, progressOut io.Writer, logger *slog.Logger) *Splitter {
	return &Splitter{
		metrics:  rec,
		progress: progressOut,
		logger:   logger,
		now:      time.Now,
	}
}

// Split lists the .jpg files of cfg.SourceDirs, shuffles and partitions them by cfg.Ratios,
// and copies each subset to <cfg.OutputDir>/{train,val,test}. Subsets are written in that
// order; a copy failure aborts the run and leaves earlier subsets on disk.
func (s *Splitter) Split(ctx context.Context, cfg *config.Config) (SplitResult, error) {
	start := s.now()
	defer s.metrics.ObserveStage(metrics.StageSplit, start)

	if err := cfg.ValidateSplit(); err != nil {
		return SplitResult{}, err
	}

	ratios := cfg.Ratios.Partition()
	if math.Abs(ratios.Sum()-1) > 1e-9 {
		s.logger.Warn("ratios do not sum to 1; test receives the remainder",
			"train", ratios.Train,
			"val", ratios.Val,
			"test", ratios.Test,
			"sum", ratios.Sum(),
		)
	}

	items, err := corpus.List(cfg.SourceDirs)
	if err != nil {
		return SplitResult{}, err
	}

	seed := start.UnixNano()
	if cfg.Seed != nil {
		seed = *cfg.Seed
	}

	split, err := partition.NewSeeded(seed).Split(items, ratios)
	if err != nil {
		return SplitResult{}, err
	}

	s.logger.Info("split computed",
		"images", split.Len(),
		"seed", seed,
		"train", len(split.Train),
		"val", len(split.Val),
		"test", len(split.Test),
		"output", cfg.OutputDir,
	)

	result := SplitResult{
		Split:  split,
		Seed:   seed,
		Copied: make(map[string]int, 3),
	}

	m := materialize.New(cfg.OutputDir, s.logger)
	for _, subset := range split.Subsets() {
		s.metrics.SubsetSize.WithLabelValues(subset.Label).Set(float64(len(subset.Items)))

		bar := progress.New(s.progress, len(subset.Items), subset.Label)
		copied, err := m.Materialize(ctx, subset.Label, subset.Items, bar.Step())
		bar.Finish()

		result.Copied[subset.Label] = copied
		s.metrics.FilesCopied.WithLabelValues(subset.Label).Add(float64(copied))
		if err != nil {
			return result, err
		}

		s.logger.Info("subset materialized", "subset", subset.Label, "files", copied, "dir", m.Dir(subset.Label))
	}

	if cfg.Manifest {
		record := manifest.New(seed, ratios, split, start)
		path, err := manifest.Write(cfg.OutputDir, record)
		if err != nil {
			return result, err
		}
		result.Manifest = path
		s.logger.Info("manifest written", "path", path, "runID", record.RunID)
	}

	s.logger.Info("split complete", "images", split.Len(), "elapsed", time.Since(start))
	return result, nil
}
