// Package corpus lists the images that make up a dataset.
package corpus

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/agleyzer/vidset/internal/faults"
)

// Pattern selects dataset images. Matching is case-sensitive.
const Pattern = "*.jpg"

// List returns the .jpg files directly inside each directory, directories in the given order and
// names sorted within each. Subdirectories are not searched.
func List(dirs []string) ([]string, error) {
	var images []string

	for _, dir := range dirs {
		info, err := os.Stat(dir)
		if err != nil {
			return nil, fmt.Errorf("%w: source directory: %v", faults.ErrResourceOpen, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%w: source %s is not a directory", faults.ErrResourceOpen, dir)
		}

		matches, err := filepath.Glob(filepath.Join(globEscape(dir), Pattern))
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", dir, err)
		}

		for _, m := range matches {
			fi, err := os.Stat(m)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", faults.ErrResourceOpen, err)
			}
			if fi.IsDir() {
				continue
			}
			images = append(images, m)
		}
	}

	return images, nil
}

// globEscape quotes glob metacharacters in a literal directory name.
func globEscape(dir string) string {
	escaped := make([]rune, 0, len(dir))
	for _, r := range dir {
		switch r {
		case '*', '?', '[', '\\':
			escaped = append(escaped, '\\')
		}
		escaped = append(escaped, r)
	}
	return string(escaped)
}
