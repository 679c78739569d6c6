package video

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/agleyzer/vidset/internal/faults"
	"github.com/grafov/m3u8"
)

// PlaylistInfo describes an HLS VOD playlist used as a video source.
type PlaylistInfo struct {
	// MediaURL is the media playlist handed to the decoder. For a master playlist this is the
	// highest-bandwidth variant, otherwise the location that was probed.
	MediaURL string

	// Bandwidth and Resolution of the chosen variant, empty for plain media playlists
	Bandwidth  int
	Resolution string

	// SegmentCount is the number of media segments
	SegmentCount int

	// Duration is the sum of all segment durations in seconds
	Duration float64
}

// IsPlaylist reports whether a source location names an HLS playlist.
func IsPlaylist(location string) bool {
	if u, err := url.Parse(location); err == nil && u.Scheme != "" && u.Path != "" {
		return strings.HasSuffix(strings.ToLower(u.Path), ".m3u8")
	}
	return strings.HasSuffix(strings.ToLower(location), ".m3u8")
}

// ProbePlaylist reads an HLS playlist from a local path or an http(s) URL.
// Master playlists are resolved to their highest-bandwidth variant. Live playlists are rejected
// because they have no fixed frame count.
func ProbePlaylist(ctx context.Context, location string) (*PlaylistInfo, error) {
	playlist, listType, err := decodePlaylist(ctx, location)
	if err != nil {
		return nil, err
	}

	if listType == m3u8.MASTER {
		return probeMaster(ctx, playlist, location)
	}

	mediaPlaylist, ok := playlist.(*m3u8.MediaPlaylist)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected playlist type in %s", faults.ErrResourceOpen, location)
	}

	return mediaInfo(mediaPlaylist, location)
}

func probeMaster(ctx context.Context, playlist m3u8.Playlist, masterURL string) (*PlaylistInfo, error) {
	masterPlaylist, ok := playlist.(*m3u8.MasterPlaylist)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected playlist type in %s", faults.ErrResourceOpen, masterURL)
	}

	var best *m3u8.Variant
	for _, v := range masterPlaylist.Variants {
		if v == nil {
			continue
		}
		if best == nil || v.Bandwidth > best.Bandwidth {
			best = v
		}
	}
	if best == nil {
		return nil, fmt.Errorf("%w: master playlist %s contains no variants", faults.ErrResourceOpen, masterURL)
	}

	variantURL, err := resolveURL(masterURL, best.URI)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve variant URL: %v", faults.ErrResourceOpen, err)
	}

	playlist, listType, err := decodePlaylist(ctx, variantURL)
	if err != nil {
		return nil, err
	}
	if listType != m3u8.MEDIA {
		return nil, fmt.Errorf("%w: variant %s is not a media playlist", faults.ErrResourceOpen, variantURL)
	}

	info, err := mediaInfo(playlist.(*m3u8.MediaPlaylist), variantURL)
	if err != nil {
		return nil, err
	}
	info.Bandwidth = int(best.Bandwidth)
	info.Resolution = best.Resolution
	return info, nil
}

func mediaInfo(mediaPlaylist *m3u8.MediaPlaylist, location string) (*PlaylistInfo, error) {
	if !mediaPlaylist.Closed {
		return nil, fmt.Errorf("%w: %s is a live playlist (no #EXT-X-ENDLIST)", faults.ErrResourceOpen, location)
	}

	info := &PlaylistInfo{MediaURL: location}
	for _, seg := range mediaPlaylist.Segments {
		if seg == nil {
			break
		}
		info.SegmentCount++
		info.Duration += seg.Duration
	}

	if info.SegmentCount == 0 {
		return nil, fmt.Errorf("%w: playlist %s contains no segments", faults.ErrResourceOpen, location)
	}

	return info, nil
}

func decodePlaylist(ctx context.Context, location string) (m3u8.Playlist, m3u8.ListType, error) {
	body, err := openPlaylist(ctx, location)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", faults.ErrResourceOpen, err)
	}
	defer body.Close()

	playlist, listType, err := m3u8.DecodeFrom(body, true)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: parse playlist %s: %v", faults.ErrResourceOpen, location, err)
	}
	return playlist, listType, nil
}

// openPlaylist opens a playlist from the filesystem or over HTTP.
func openPlaylist(ctx context.Context, location string) (io.ReadCloser, error) {
	if !isRemote(location) {
		f, err := os.Open(location)
		if err != nil {
			return nil, fmt.Errorf("open playlist: %w", err)
		}
		return f, nil
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("fetch playlist: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("fetch playlist: HTTP %d", resp.StatusCode)
	}

	return &cancelingBody{ReadCloser: resp.Body, cancel: cancel}, nil
}

// cancelingBody releases the request timeout once the body is closed.
type cancelingBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelingBody) Close() error {
	defer b.cancel()
	return b.ReadCloser.Close()
}

// resolveURL resolves a possibly relative URL against a base URL or file path.
// Local bases resolve as file paths so that names are not percent-encoded.
func resolveURL(baseURL, relativeURL string) (string, error) {
	rel, err := url.Parse(relativeURL)
	if err != nil {
		return "", fmt.Errorf("invalid relative URL: %w", err)
	}

	if !isRemote(baseURL) {
		if rel.Scheme != "" || filepath.IsAbs(relativeURL) {
			return relativeURL, nil
		}
		return filepath.Join(filepath.Dir(baseURL), filepath.FromSlash(relativeURL)), nil
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}

	return base.ResolveReference(rel).String(), nil
}

// isRemote reports whether location is an http(s) URL.
func isRemote(location string) bool {
	u, err := url.Parse(location)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https")
}
