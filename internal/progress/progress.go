// Package progress renders terminal progress bars for long sequential loops.
package progress

import (
	"fmt"
	"io"

	"github.com/schollz/progressbar/v3"
)

// Bar tracks a loop of known length. A nil *Bar is valid and does nothing.
type Bar struct {
	bar *progressbar.ProgressBar
}

// New returns a bar that renders to w, or nil when w is nil.
func New(w io.Writer, total int, description string) *Bar {
	if w == nil {
		return nil
	}

	return &Bar{bar: progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(w)
		}),
	)}
}

// Add advances the bar by n steps.
func (b *Bar) Add(n int) {
	if b == nil {
		return
	}
	_ = b.bar.Add(n)
}

// Finish fills the bar and ends its line.
func (b *Bar) Finish() {
	if b == nil {
		return
	}
	_ = b.bar.Finish()
}

// Step returns a callback that advances the bar by one; it is nil for a nil bar.
func (b *Bar) Step() func() {
	if b == nil {
		return nil
	}
	return func() { b.Add(1) }
}
