package video

import (
	"io"

	"github.com/hashicorp/go-hclog"
)

// NewToolLogger creates the hclog.Logger that receives ffmpeg and ffprobe diagnostics.
func NewToolLogger(w io.Writer, level hclog.Level) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:   "ffmpeg",
		Level:  level,
		Output: w,
	})
}

// newNoOpToolLogger silences subprocess output when no logger is configured.
func newNoOpToolLogger() hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:   "ffmpeg",
		Level:  hclog.Off,
		Output: io.Discard,
	})
}
