package video

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os/exec"
	"time"

	"github.com/agleyzer/vidset/internal/faults"
	"github.com/hashicorp/go-hclog"
)

var errSessionClosed = errors.New("session closed")

// Options configures the ffmpeg-backed opener.
type Options struct {
	// FFmpegPath and FFprobePath default to the binaries on PATH.
	FFmpegPath  string
	FFprobePath string

	// Logger receives decoder diagnostics. Nil discards them.
	Logger hclog.Logger
}

// NewOpener returns an Opener that probes sources with ffprobe and decodes them with ffmpeg.
func NewOpener(opts Options) Opener {
	if opts.FFmpegPath == "" {
		opts.FFmpegPath = "ffmpeg"
	}
	if opts.FFprobePath == "" {
		opts.FFprobePath = "ffprobe"
	}
	if opts.Logger == nil {
		opts.Logger = newNoOpToolLogger()
	}

	return func(ctx context.Context, path string) (Session, error) {
		return openFFmpeg(ctx, path, opts)
	}
}

// ffmpegSession streams RGBA frames out of an ffmpeg subprocess. The process is started by the
// first Next, so a session that is opened and closed without reading never decodes anything.
type ffmpegSession struct {
	info   Info
	cmd    *exec.Cmd
	stdout io.ReadCloser
	frame  *image.RGBA
	logger hclog.Logger
	done   bool
	closed bool
}

func openFFmpeg(ctx context.Context, path string, opts Options) (*ffmpegSession, error) {
	info, input, err := Probe(ctx, opts.FFprobePath, path)
	if err != nil {
		return nil, err
	}

	args := []string{"-nostdin", "-v", "error", "-noautorotate"}
	if IsPlaylist(input) {
		args = append(args, "-protocol_whitelist", hlsProtocols)
	}
	args = append(args,
		"-i", input,
		"-map", "0:v:0",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-",
	)

	cmd := exec.CommandContext(ctx, opts.FFmpegPath, args...)
	cmd.Stderr = opts.Logger.StandardWriter(&hclog.StandardLoggerOptions{ForceLevel: hclog.Warn})

	logArgs := []interface{}{
		"path", path,
		"frames", info.FrameCount,
		"fps", info.FrameRate,
		"width", info.Width,
		"height", info.Height,
	}
	if v := info.Variant; v != nil {
		logArgs = append(logArgs,
			"variant", v.MediaURL,
			"bandwidth", v.Bandwidth,
			"resolution", v.Resolution,
			"segments", v.SegmentCount,
		)
	}
	opts.Logger.Debug("source probed", logArgs...)

	return &ffmpegSession{
		info:   info,
		cmd:    cmd,
		logger: opts.Logger,
	}, nil
}

func (s *ffmpegSession) Path() string            { return s.info.Path }
func (s *ffmpegSession) FrameCount() int         { return s.info.FrameCount }
func (s *ffmpegSession) FrameRate() float64      { return s.info.FrameRate }
func (s *ffmpegSession) Duration() time.Duration { return s.info.Duration() }

// started reports whether the decoder process has been launched.
func (s *ffmpegSession) started() bool {
	return s.stdout != nil
}

func (s *ffmpegSession) start() error {
	stdout, err := s.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("%w: ffmpeg stdout: %v", faults.ErrResourceOpen, err)
	}
	if err := s.cmd.Start(); err != nil {
		return fmt.Errorf("%w: start ffmpeg: %v", faults.ErrResourceOpen, err)
	}

	s.stdout = stdout
	s.frame = image.NewRGBA(image.Rect(0, 0, s.info.Width, s.info.Height))
	s.logger.Debug("decoder started", "path", s.info.Path)
	return nil
}

// Next reads one raw RGBA frame into the session's frame buffer.
func (s *ffmpegSession) Next() (image.Image, error) {
	if s.closed {
		return nil, errSessionClosed
	}
	if s.done {
		return nil, io.EOF
	}

	if !s.started() {
		if err := s.start(); err != nil {
			s.done = true
			return nil, err
		}
	}

	if _, err := io.ReadFull(s.stdout, s.frame.Pix); err != nil {
		s.done = true
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("read frame: %w", err)
	}

	return s.frame, nil
}

// Close stops the decoder if it is still running and reaps the process.
func (s *ffmpegSession) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	if !s.started() {
		return nil
	}

	if !s.done {
		// Stopped before end of stream; the exit status is ours, not the decoder's.
		s.stdout.Close()
		_ = s.cmd.Process.Kill()
		_ = s.cmd.Wait()
		return nil
	}

	if err := s.cmd.Wait(); err != nil {
		s.logger.Warn("decoder exited with error", "path", s.info.Path, "error", err)
	}
	return nil
}
