// Package materialize writes a dataset split to disk as directories of copied files.
package materialize

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/agleyzer/vidset/internal/faults"
)

// ErrSameFile is returned when a copy would overwrite its own source.
var ErrSameFile = errors.New("source and destination are the same file")

// CopyError reports the source that stopped a subset from being materialized.
type CopyError struct {
	Label string
	Src   string
	Dst   string
	Err   error
}

func (e *CopyError) Error() string {
	return fmt.Sprintf("copy %s to %s subset: %v", e.Src, e.Label, e.Err)
}

// Unwrap exposes both the copy error kind and the underlying cause.
func (e *CopyError) Unwrap() []error {
	return []error{faults.ErrCopy, e.Err}
}

// Materializer copies subsets into <root>/<label>/.
type Materializer struct {
	root   string
	logger *slog.Logger
}

// New creates a materializer rooted at root.
func New(root string, logger *slog.Logger) *Materializer {
	return &Materializer{root: root, logger: logger}
}

// Dir returns the destination directory of a subset.
func (m *Materializer) Dir(label string) string {
	return filepath.Join(m.root, label)
}

// Materialize copies items, one at a time and in order, into the subset directory under their
// base names. Existing files are overwritten. The first failure aborts the rest of the subset;
// files copied before it are left in place. onCopied, when non-nil, runs after each copy.
func (m *Materializer) Materialize(ctx context.Context, label string, items []string, onCopied func()) (int, error) {
	dir := m.Dir(label)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create %s: %w", dir, err)
	}

	copied := 0
	for _, src := range items {
		if err := ctx.Err(); err != nil {
			return copied, err
		}

		dst := filepath.Join(dir, filepath.Base(src))
		if err := copyFile(src, dst); err != nil {
			return copied, &CopyError{Label: label, Src: src, Dst: dst, Err: err}
		}
		copied++

		if onCopied != nil {
			onCopied()
		}
	}

	m.logger.Debug("materialized subset", "subset", label, "dir", dir, "files", copied)
	return copied, nil
}

// copyFile copies contents, permission bits and modification time from src to dst.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", src)
	}

	if dstInfo, err := os.Stat(dst); err == nil && os.SameFile(info, dstInfo) {
		return ErrSameFile
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	if err := os.Chmod(dst, info.Mode().Perm()); err != nil {
		return err
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}
