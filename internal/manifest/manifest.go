// Package manifest records how a dataset split was produced.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/agleyzer/vidset/internal/partition"
)

// FileName is the manifest's name inside the split output root.
const FileName = "manifest.yaml"

// Ratios mirrors partition.Ratios with YAML keys.
type Ratios struct {
	Train float64 `yaml:"train"`
	Val   float64 `yaml:"val"`
	Test  float64 `yaml:"test"`
}

// Subset lists the source files that went into one subset.
type Subset struct {
	Count   int      `yaml:"count"`
	Sources []string `yaml:"sources"`
}

// Manifest is the persisted record of a split.
type Manifest struct {
	RunID     string            `yaml:"run_id"`
	CreatedAt time.Time         `yaml:"created_at"`
	Seed      int64             `yaml:"seed"`
	Ratios    Ratios            `yaml:"ratios"`
	Total     int               `yaml:"total"`
	Subsets   map[string]Subset `yaml:"subsets"`
}

// New builds a manifest from a computed split. Each manifest gets a fresh run ID.
func New(seed int64, r partition.Ratios, split partition.Split, now time.Time) Manifest {
	m := Manifest{
		RunID:     uuid.NewString(),
		CreatedAt: now.UTC(),
		Seed:      seed,
		Ratios:    Ratios{Train: r.Train, Val: r.Val, Test: r.Test},
		Total:     split.Len(),
		Subsets:   make(map[string]Subset, 3),
	}
	for _, s := range split.Subsets() {
		sources := s.Items
		if sources == nil {
			sources = []string{}
		}
		m.Subsets[s.Label] = Subset{Count: len(s.Items), Sources: sources}
	}
	return m
}

// Write stores the manifest as dir/manifest.yaml and returns its path.
func Write(dir string, m Manifest) (string, error) {
	data, err := yaml.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("failed to encode manifest: %w", err)
	}

	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write manifest: %w", err)
	}
	return path, nil
}

// Read loads a manifest written by Write.
func Read(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	return m, nil
}
