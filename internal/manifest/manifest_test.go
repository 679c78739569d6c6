package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/agleyzer/vidset/internal/partition"
)

func TestWriteRead(t *testing.T) {
	split := partition.Split{
		Train: []string{"a/1.jpg", "a/2.jpg", "b/3.jpg"},
		Val:   []string{"a/4.jpg"},
	}
	ratios := partition.Ratios{Train: 0.75, Val: 0.25, Test: 0}
	created := time.Date(2024, 5, 2, 10, 30, 0, 0, time.UTC)

	dir := t.TempDir()
	path, err := Write(dir, New(42, ratios, split, created))
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if path != filepath.Join(dir, FileName) {
		t.Errorf("path = %q", path)
	}

	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if _, err := uuid.Parse(got.RunID); err != nil {
		t.Errorf("RunID %q is not a UUID: %v", got.RunID, err)
	}
	if got.Seed != 42 || got.Total != 4 || !got.CreatedAt.Equal(created) {
		t.Errorf("header = seed %d total %d created %v", got.Seed, got.Total, got.CreatedAt)
	}
	if got.Ratios.Train != 0.75 || got.Ratios.Val != 0.25 || got.Ratios.Test != 0 {
		t.Errorf("ratios = %+v", got.Ratios)
	}

	tests := []struct {
		label string
		want  []string
	}{
		{partition.Train, split.Train},
		{partition.Val, split.Val},
		{partition.Test, nil},
	}
	for _, tt := range tests {
		s, ok := got.Subsets[tt.label]
		if !ok {
			t.Errorf("subset %s missing", tt.label)
			continue
		}
		if s.Count != len(tt.want) || len(s.Sources) != len(tt.want) {
			t.Errorf("%s: count %d, %d sources, want %d", tt.label, s.Count, len(s.Sources), len(tt.want))
			continue
		}
		for i := range tt.want {
			if s.Sources[i] != tt.want[i] {
				t.Errorf("%s[%d] = %q, want %q", tt.label, i, s.Sources[i], tt.want[i])
			}
		}
	}
}

func TestWrite_EmptySubsetIsList(t *testing.T) {
	dir := t.TempDir()
	path, err := Write(dir, New(1, partition.Ratios{Train: 1}, partition.Split{}, time.Now()))
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "sources: []") {
		t.Errorf("expected empty sources list in:\n%s", data)
	}
}

func TestRead_Errors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("seed: [unterminated"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Read(bad); err == nil {
		t.Error("Expected error for malformed manifest")
	}
	if _, err := Read(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("Expected error for missing manifest")
	}
}

func TestWrite_MissingDir(t *testing.T) {
	if _, err := Write(filepath.Join(t.TempDir(), "nope"), Manifest{}); err == nil {
		t.Error("Expected error writing into a missing directory")
	}
}
