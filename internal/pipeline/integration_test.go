package pipeline

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/agleyzer/vidset/internal/config"
	"github.com/agleyzer/vidset/internal/metrics"
	"github.com/agleyzer/vidset/internal/partition"
	"github.com/agleyzer/vidset/internal/video"
)

func requireFFmpeg(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	for _, bin := range []string{"ffmpeg", "ffprobe"} {
		if _, err := exec.LookPath(bin); err != nil {
			t.Skipf("%s not found on PATH", bin)
		}
	}
}

func render(t *testing.T, source string, args ...string) {
	t.Helper()
	cmd := exec.Command("ffmpeg", append([]string{"-v", "error", "-f", "lavfi", "-i", source}, args...)...)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("render test video: %v: %s", err, out)
	}
}

// TestExtractThenSplit runs both stages against a real ffmpeg decode.
func TestExtractThenSplit(t *testing.T) {
	requireFFmpeg(t)

	clip := filepath.Join(t.TempDir(), "bvr-2006_07.mp4")
	render(t, "testsrc=size=96x64:rate=10", "-frames:v", strconv.Itoa(50), "-pix_fmt", "yuv420p", "-y", clip)

	cfg := config.Default()
	cfg.Video = clip
	cfg.FramesDir = filepath.Join(t.TempDir(), "images")
	cfg.FrameCount = 10
	cfg.FrameSize = config.FrameSize{Width: 48, Height: 32}

	rec := metrics.New()
	opener := video.NewOpener(video.Options{})

	res, err := NewExtractor(opener, rec, nil, createTestLogger()).Extract(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if res.Extracted != 10 || res.Interval != 5 || res.Partial {
		t.Fatalf("extract result = %+v", res.Result)
	}

	seed := int64(2006)
	cfg.SourceDirs = []string{res.Dir}
	cfg.OutputDir = filepath.Join(t.TempDir(), "dest")
	cfg.Seed = &seed

	split, err := NewSplitter(rec, nil, createTestLogger()).Split(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}

	for label, want := range map[string]int{partition.Train: 6, partition.Val: 2, partition.Test: 2} {
		if got := countFiles(t, filepath.Join(cfg.OutputDir, label)); got != want {
			t.Errorf("%s has %d files, want %d", label, got, want)
		}
	}
	if split.Split.Len() != 10 {
		t.Errorf("split covers %d images, want 10", split.Split.Len())
	}

	path := filepath.Join(t.TempDir(), "vidset.prom")
	if err := rec.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile() error = %v", err)
	}
	if info, err := os.Stat(path); err != nil || info.Size() == 0 {
		t.Errorf("metrics textfile not written: %v", err)
	}
}

// TestExtractFromPlaylist decodes a local HLS VOD playlist.
func TestExtractFromPlaylist(t *testing.T) {
	requireFFmpeg(t)

	dir := t.TempDir()
	playlist := filepath.Join(dir, "match.m3u8")
	render(t, "testsrc=size=96x64:rate=25",
		"-frames:v", strconv.Itoa(50),
		"-c:v", "mpeg2video",
		"-f", "hls",
		"-hls_time", "1",
		"-hls_playlist_type", "vod",
		"-hls_segment_filename", filepath.Join(dir, "segment%03d.ts"),
		"-y", playlist,
	)

	cfg := config.Default()
	cfg.Video = playlist
	cfg.FramesDir = filepath.Join(t.TempDir(), "images")
	cfg.FrameCount = 8
	cfg.FrameSize = config.FrameSize{Width: 48, Height: 32}

	res, err := NewExtractor(video.NewOpener(video.Options{}), metrics.New(), nil, createTestLogger()).
		Extract(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if res.Extracted != 8 {
		t.Errorf("extracted %d frames, want 8 (result %+v)", res.Extracted, res.Result)
	}
	if got := countFiles(t, filepath.Join(cfg.FramesDir, "match")); got != 8 {
		t.Errorf("frames dir holds %d files, want 8", got)
	}
}
