package video

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/agleyzer/vidset/internal/faults"
)

func TestParseRate(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"25/1", 25},
		{"30000/1001", 30000.0 / 1001.0},
		{"0/0", 0},
		{"24", 24},
		{"", 0},
		{"abc/1", 0},
	}

	for _, tt := range tests {
		if got := parseRate(tt.in); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("parseRate(%q) = %f, want %f", tt.in, got, tt.want)
		}
	}
}

func TestParseProbe(t *testing.T) {
	tests := []struct {
		name             string
		output           string
		playlistDuration float64
		wantFrames       int
		wantRate         float64
		wantErr          bool
	}{
		{
			name: "frame count from container",
			output: `{"streams":[{"codec_type":"video","width":1920,"height":1080,
				"nb_frames":"750","avg_frame_rate":"25/1","r_frame_rate":"25/1","duration":"30.0"}],
				"format":{"duration":"30.0"}}`,
			wantFrames: 750,
			wantRate:   25,
		},
		{
			name: "estimate from stream duration",
			output: `{"streams":[{"codec_type":"video","width":640,"height":480,
				"avg_frame_rate":"30/1","duration":"10.5"}],"format":{}}`,
			wantFrames: 315,
			wantRate:   30,
		},
		{
			name: "estimate from format duration with r_frame_rate fallback",
			output: `{"streams":[{"codec_type":"video","width":640,"height":480,
				"avg_frame_rate":"0/0","r_frame_rate":"10/1"}],"format":{"duration":"4.25"}}`,
			wantFrames: 42,
			wantRate:   10,
		},
		{
			name: "playlist duration wins",
			output: `{"streams":[{"codec_type":"video","width":640,"height":480,
				"nb_frames":"3","avg_frame_rate":"24/1"}],"format":{"duration":"1.0"}}`,
			playlistDuration: 30,
			wantFrames:       720,
			wantRate:         24,
		},
		{
			name:    "no video stream",
			output:  `{"streams":[{"codec_type":"audio"}],"format":{"duration":"3.0"}}`,
			wantErr: true,
		},
		{
			name:    "not json",
			output:  `garbage`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := parseProbe([]byte(tt.output), tt.playlistDuration)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if info.FrameCount != tt.wantFrames {
				t.Errorf("FrameCount = %d, want %d", info.FrameCount, tt.wantFrames)
			}
			if math.Abs(info.FrameRate-tt.wantRate) > 1e-9 {
				t.Errorf("FrameRate = %f, want %f", info.FrameRate, tt.wantRate)
			}
		})
	}
}

func TestInfoValidate(t *testing.T) {
	tests := []struct {
		name    string
		info    Info
		wantErr bool
	}{
		{"valid", Info{Path: "a.mp4", FrameCount: 10, FrameRate: 25, Width: 4, Height: 4}, false},
		{"zero frames", Info{Path: "a.mp4", FrameCount: 0, FrameRate: 25, Width: 4, Height: 4}, true},
		{"zero rate", Info{Path: "a.mp4", FrameCount: 10, FrameRate: 0, Width: 4, Height: 4}, true},
		{"no dimensions", Info{Path: "a.mp4", FrameCount: 10, FrameRate: 25}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.info.Validate()
			if tt.wantErr && !errors.Is(err, faults.ErrResourceOpen) {
				t.Fatalf("Expected ErrResourceOpen, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
		})
	}
}

func TestInfoDuration(t *testing.T) {
	info := Info{FrameCount: 750, FrameRate: 25}
	if got := info.Duration(); got != 30*time.Second {
		t.Errorf("Duration() = %v, want 30s", got)
	}

	if got := (Info{FrameCount: 10}).Duration(); got != 0 {
		t.Errorf("Duration() with zero rate = %v, want 0", got)
	}
}

const evenPlaylist = `#EXTM3U
#EXT-X-TARGETDURATION:10
#EXTINF:10.0,
a.ts
#EXTINF:10.0,
b.ts
#EXTINF:10.0,
c.ts
#EXT-X-ENDLIST
`

// fakeFFprobe installs a script that prints a fixed ffprobe JSON document.
func fakeFFprobe(t *testing.T, output string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in requires a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "ffprobe")
	script := "#!/bin/sh\ncat <<'JSON'\n" + output + "\nJSON\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write fake ffprobe: %v", err)
	}
	return path
}

func TestProbe_MasterPlaylistRecordsVariant(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"master.m3u8": "#EXTM3U\n#EXT-X-STREAM-INF:BANDWIDTH=640000,RESOLUTION=426x240\nlow.m3u8\n" +
			"#EXT-X-STREAM-INF:BANDWIDTH=2560000,RESOLUTION=1280x720\nhigh.m3u8\n",
		"low.m3u8":  evenPlaylist,
		"high.m3u8": evenPlaylist,
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	ffprobe := fakeFFprobe(t, `{"streams":[{"codec_type":"video","width":1280,"height":720,"avg_frame_rate":"25/1"}],"format":{}}`)

	info, input, err := Probe(context.Background(), ffprobe, filepath.Join(dir, "master.m3u8"))
	if err != nil {
		t.Fatalf("Probe() error = %v", err)
	}

	if want := filepath.Join(dir, "high.m3u8"); input != want {
		t.Errorf("decoder input = %s, want %s", input, want)
	}
	if info.Variant == nil {
		t.Fatal("expected chosen variant to be recorded")
	}
	if info.Variant.Bandwidth != 2560000 || info.Variant.Resolution != "1280x720" || info.Variant.SegmentCount != 3 {
		t.Errorf("variant = %+v", *info.Variant)
	}
	// 30s of playlist at 25fps
	if info.FrameCount != 750 {
		t.Errorf("FrameCount = %d, want 750", info.FrameCount)
	}
}

func TestProbe_MediaPlaylistHasNoVariant(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.m3u8")
	if err := os.WriteFile(path, []byte(vodPlaylist), 0o644); err != nil {
		t.Fatal(err)
	}
	ffprobe := fakeFFprobe(t, `{"streams":[{"codec_type":"video","width":64,"height":48,"avg_frame_rate":"10/1"}],"format":{}}`)

	info, _, err := Probe(context.Background(), ffprobe, path)
	if err != nil {
		t.Fatalf("Probe() error = %v", err)
	}
	if info.Variant != nil {
		t.Errorf("unexpected variant %+v", *info.Variant)
	}
}
