// Package metrics collects run statistics and exports them as a Prometheus textfile.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Stage names used for the duration histogram.
const (
	StageExtract = "extract"
	StageSplit   = "split"
)

// Recorder owns a private registry so that a run exports only its own series.
type Recorder struct {
	registry *prometheus.Registry

	FramesDecoded      prometheus.Counter
	FramesExtracted    prometheus.Counter
	PartialExtractions prometheus.Counter
	FilesCopied        *prometheus.CounterVec
	SubsetSize         *prometheus.GaugeVec
	StageDuration      *prometheus.HistogramVec
}

// New creates a Recorder with all series registered.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),

		FramesDecoded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vidset_frames_decoded_total",
			Help: "Frames decoded from source videos, selected or not",
		}),
		FramesExtracted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vidset_frames_extracted_total",
			Help: "Frames written as images",
		}),
		PartialExtractions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vidset_partial_extractions_total",
			Help: "Extractions that ended before the requested frame count",
		}),
		FilesCopied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vidset_files_copied_total",
			Help: "Files copied into the split output, by subset",
		}, []string{"subset"}),
		SubsetSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "vidset_subset_size",
			Help: "Number of files assigned to each subset",
		}, []string{"subset"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vidset_stage_duration_seconds",
			Help:    "Wall time of each pipeline stage",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"stage"}),
	}

	r.registry.MustRegister(
		r.FramesDecoded,
		r.FramesExtracted,
		r.PartialExtractions,
		r.FilesCopied,
		r.SubsetSize,
		r.StageDuration,
	)
	return r
}

// ObserveStage records how long a stage ran since start.
func (r *Recorder) ObserveStage(stage string, start time.Time) {
	r.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// WriteTextfile writes all series in the text exposition format for the node_exporter
// textfile collector. The file is replaced atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
