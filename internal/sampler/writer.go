package sampler

import (
	"fmt"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"
)

// DefaultQuality is the JPEG quality used when none is configured.
const DefaultQuality = 95

// Stem returns the file name of path without directory or final extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// JPEGWriter stores frames as <Dir>/<Stem>-<Sequence>.jpg.
type JPEGWriter struct {
	Dir     string
	Stem    string
	Quality int
}

// Name returns the file name for a frame sequence number.
func (w JPEGWriter) Name(sequence int) string {
	return fmt.Sprintf("%s-%d.jpg", w.Stem, sequence)
}

// Write encodes the frame and returns the path it was written to.
func (w JPEGWriter) Write(f Frame) (string, error) {
	quality := w.Quality
	if quality <= 0 {
		quality = DefaultQuality
	}

	path := filepath.Join(w.Dir, w.Name(f.Sequence))
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}

	if err := jpeg.Encode(file, f.Image, &jpeg.Options{Quality: quality}); err != nil {
		file.Close()
		return "", fmt.Errorf("encode %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	return path, nil
}
