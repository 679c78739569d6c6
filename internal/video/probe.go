package video

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/agleyzer/vidset/internal/faults"
)

// hlsProtocols lets ffmpeg follow segment references out of a local playlist.
const hlsProtocols = "file,http,https,tcp,tls,crypto"

type probeOutput struct {
	Streams []probeStream `json:"streams"`
	Format  struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

type probeStream struct {
	CodecType    string `json:"codec_type"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	NbFrames     string `json:"nb_frames"`
	AvgFrameRate string `json:"avg_frame_rate"`
	RFrameRate   string `json:"r_frame_rate"`
	Duration     string `json:"duration"`
}

// Probe inspects a source with ffprobe and returns its frame count, rate and dimensions.
// HLS playlists are read first so that the playlist duration drives the frame estimate and
// master playlists resolve to a single variant.
func Probe(ctx context.Context, ffprobePath, path string) (Info, string, error) {
	input := path
	playlistDuration := 0.0
	var variant *PlaylistInfo

	if IsPlaylist(path) {
		pl, err := ProbePlaylist(ctx, path)
		if err != nil {
			return Info{}, "", err
		}
		input = pl.MediaURL
		playlistDuration = pl.Duration
		if pl.Bandwidth > 0 {
			variant = pl
		}
	} else if _, err := os.Stat(path); err != nil {
		return Info{}, "", fmt.Errorf("%w: %v", faults.ErrResourceOpen, err)
	}

	args := []string{"-v", "error"}
	if IsPlaylist(input) {
		args = append(args, "-protocol_whitelist", hlsProtocols)
	}
	args = append(args,
		"-select_streams", "v:0",
		"-show_streams",
		"-show_format",
		"-of", "json",
		input,
	)

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, ffprobePath, args...)
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		return Info{}, "", fmt.Errorf("%w: ffprobe %s: %v: %s", faults.ErrResourceOpen, path, err, strings.TrimSpace(stderr.String()))
	}

	info, err := parseProbe(output, playlistDuration)
	if err != nil {
		return Info{}, "", fmt.Errorf("%w: %s: %v", faults.ErrResourceOpen, path, err)
	}
	info.Path = path
	info.Variant = variant

	if err := info.Validate(); err != nil {
		return Info{}, "", err
	}
	return info, input, nil
}

// parseProbe turns ffprobe JSON into Info. When the container does not record a frame count it
// is estimated as floor(duration * fps), preferring the supplied playlist duration.
func parseProbe(output []byte, playlistDuration float64) (Info, error) {
	var probe probeOutput
	if err := json.Unmarshal(output, &probe); err != nil {
		return Info{}, fmt.Errorf("parse ffprobe output: %w", err)
	}

	var stream *probeStream
	for i := range probe.Streams {
		if probe.Streams[i].CodecType == "video" {
			stream = &probe.Streams[i]
			break
		}
	}
	if stream == nil {
		return Info{}, errors.New("no video stream")
	}

	info := Info{
		Width:     stream.Width,
		Height:    stream.Height,
		FrameRate: parseRate(stream.AvgFrameRate),
	}
	if info.FrameRate <= 0 {
		info.FrameRate = parseRate(stream.RFrameRate)
	}

	if n, err := strconv.Atoi(stream.NbFrames); err == nil && n > 0 && playlistDuration == 0 {
		info.FrameCount = n
		return info, nil
	}

	duration := playlistDuration
	if duration <= 0 {
		duration, _ = strconv.ParseFloat(stream.Duration, 64)
	}
	if duration <= 0 {
		duration, _ = strconv.ParseFloat(probe.Format.Duration, 64)
	}
	if duration > 0 && info.FrameRate > 0 {
		info.FrameCount = int(math.Floor(duration * info.FrameRate))
	}

	return info, nil
}

// parseRate parses an ffprobe rational such as "30000/1001". Invalid or zero rates yield 0.
func parseRate(s string) float64 {
	num, den, found := strings.Cut(s, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	if !found {
		return n
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return n / d
}
