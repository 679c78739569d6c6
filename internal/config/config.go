// Package config holds the run configuration for both pipeline stages.
//
// Values are layered: Default, then an optional YAML file, then VIDSET_* environment
// variables. Command-line flags are applied on top by the caller.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/agleyzer/vidset/internal/faults"
	"github.com/agleyzer/vidset/internal/partition"
	"github.com/agleyzer/vidset/internal/sampler"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "VIDSET_"

// Config holds settings for frame extraction and dataset splitting.
type Config struct {
	// Extraction
	Video       string    `yaml:"video" env:"VIDEO"`
	FramesDir   string    `yaml:"frames_dir" env:"FRAMES_DIR"`
	FrameCount  int       `yaml:"frame_count" env:"FRAME_COUNT"`
	FrameSize   FrameSize `yaml:"frame_size" envPrefix:"FRAME_SIZE_"`
	JPEGQuality int       `yaml:"jpeg_quality" env:"JPEG_QUALITY"`

	// Splitting
	SourceDirs []string     `yaml:"source_dirs" env:"SOURCE_DIRS" envSeparator:","`
	OutputDir  string       `yaml:"output_dir" env:"OUTPUT_DIR"`
	Ratios     RatiosConfig `yaml:"ratios" envPrefix:"RATIOS_"`
	Seed       *int64       `yaml:"seed" env:"SEED"`
	Manifest   bool         `yaml:"manifest" env:"MANIFEST"`

	MetricsFile string `yaml:"metrics_file" env:"METRICS_FILE"`
	FFmpegPath  string `yaml:"ffmpeg_path" env:"FFMPEG_PATH"`
	FFprobePath string `yaml:"ffprobe_path" env:"FFPROBE_PATH"`
}

// FrameSize is the output resolution of extracted frames.
type FrameSize struct {
	Width  int `yaml:"width" env:"WIDTH"`
	Height int `yaml:"height" env:"HEIGHT"`
}

// Size converts to the sampler's size type.
func (f FrameSize) Size() sampler.Size {
	return sampler.Size{Width: f.Width, Height: f.Height}
}

// RatiosConfig holds the train/val/test fractions.
type RatiosConfig struct {
	Train float64 `yaml:"train" env:"TRAIN"`
	Val   float64 `yaml:"val" env:"VAL"`
	Test  float64 `yaml:"test" env:"TEST"`
}

// Partition converts to the partitioner's ratio type.
func (r RatiosConfig) Partition() partition.Ratios {
	return partition.Ratios{Train: r.Train, Val: r.Val, Test: r.Test}
}

// Default returns the stock configuration.
func Default() *Config {
	return &Config{
		FramesDir:   "dataset/images",
		FrameCount:  500,
		FrameSize:   FrameSize{Width: 640, Height: 480},
		JPEGQuality: sampler.DefaultQuality,
		OutputDir:   "dataset/images/dest",
		Ratios:      RatiosConfig{Train: 0.6, Val: 0.2, Test: 0.2},
		FFmpegPath:  "ffmpeg",
		FFprobePath: "ffprobe",
	}
}

// Load builds a configuration from defaults, the YAML file at path (skipped when empty),
// and the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read config file: %w", faults.ErrConfiguration, err)
		}
		if err := decodeYAML(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: failed to parse config file %s: %v", faults.ErrConfiguration, path, err)
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("%w: failed to parse environment: %w", faults.ErrConfiguration, err)
	}

	return cfg, nil
}

func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ValidateExtract checks the settings used by the extract stage.
func (c *Config) ValidateExtract() error {
	if c.Video == "" {
		return fmt.Errorf("%w: video is required", faults.ErrConfiguration)
	}

	if c.FramesDir == "" {
		return fmt.Errorf("%w: frames directory is required", faults.ErrConfiguration)
	}

	if c.FrameCount < 1 {
		return fmt.Errorf("%w: frame count must be at least 1, got %d", faults.ErrConfiguration, c.FrameCount)
	}

	if err := c.FrameSize.Size().Validate(); err != nil {
		return err
	}

	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return fmt.Errorf("%w: jpeg quality must be between 1 and 100, got %d", faults.ErrConfiguration, c.JPEGQuality)
	}

	return nil
}

// ValidateSplit checks the settings used by the split stage.
func (c *Config) ValidateSplit() error {
	if len(c.SourceDirs) == 0 {
		return fmt.Errorf("%w: at least one source directory is required", faults.ErrConfiguration)
	}

	for i, dir := range c.SourceDirs {
		if dir == "" {
			return fmt.Errorf("%w: source directory %d is empty", faults.ErrConfiguration, i)
		}
	}

	if c.OutputDir == "" {
		return fmt.Errorf("%w: output directory is required", faults.ErrConfiguration)
	}

	return c.Ratios.Partition().Validate()
}

// ParseRatios parses "train,val,test", e.g. "0.6,0.2,0.2".
func ParseRatios(s string) (RatiosConfig, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return RatiosConfig{}, fmt.Errorf("%w: ratios %q must be train,val,test", faults.ErrConfiguration, s)
	}

	var values [3]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return RatiosConfig{}, fmt.Errorf("%w: ratios %q: %q is not a number", faults.ErrConfiguration, s, p)
		}
		values[i] = v
	}

	return RatiosConfig{Train: values[0], Val: values[1], Test: values[2]}, nil
}
