// The vidset command turns videos into JPEG frame sets and splits frame sets into
// train/val/test datasets.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hashicorp/go-hclog"

	"github.com/agleyzer/vidset/internal/config"
	"github.com/agleyzer/vidset/internal/faults"
	"github.com/agleyzer/vidset/internal/metrics"
	"github.com/agleyzer/vidset/internal/pipeline"
	"github.com/agleyzer/vidset/internal/sampler"
	"github.com/agleyzer/vidset/internal/video"
)

const (
	version = "1.0.0"
)

// Exit codes.
const (
	exitOK     = 0
	exitFailed = 1
	exitUsage  = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func usage(w io.Writer) {
	fmt.Fprintf(w, "vidset - video frame dataset builder v%s\n\n", version)
	fmt.Fprintf(w, "Usage:\n")
	fmt.Fprintf(w, "  vidset extract [options] <video-or-playlist>\n")
	fmt.Fprintf(w, "  vidset split [options] <source-dir>...\n\n")
	fmt.Fprintf(w, "Run 'vidset <command> -h' for command options.\n\n")
	fmt.Fprintf(w, "Examples:\n")
	fmt.Fprintf(w, "  vidset extract -frames 500 -size 640x480 bvr-2006_07.mp4\n")
	fmt.Fprintf(w, "  vidset extract https://example.com/vod/playlist.m3u8\n")
	fmt.Fprintf(w, "  vidset split -ratios 0.7,0.15,0.15 -seed 42 dataset/images/bvr-2006_07\n")
	fmt.Fprintf(w, "  vidset split -config vidset.yaml -manifest\n")
}

// commonFlags are accepted by every subcommand.
type commonFlags struct {
	configPath  *string
	metricsFile *string
	progress    *bool
	verbose     *bool
	showVersion *bool
}

func addCommonFlags(fs *flag.FlagSet) commonFlags {
	return commonFlags{
		configPath:  fs.String("config", "", "YAML configuration file"),
		metricsFile: fs.String("metrics-file", "", "Write Prometheus metrics to this textfile after the run"),
		progress:    fs.Bool("progress", true, "Show progress bars"),
		verbose:     fs.Bool("verbose", false, "Enable verbose logging, including ffmpeg output"),
		showVersion: fs.Bool("version", false, "Show version and exit"),
	}
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		fmt.Fprintf(stderr, "Error: command is required\n\n")
		usage(stderr)
		return exitUsage
	}

	switch args[0] {
	case "extract", "split":
	case "-version", "--version", "version":
		fmt.Fprintf(stdout, "vidset v%s\n", version)
		return exitOK
	case "-h", "-help", "--help", "help":
		usage(stdout)
		return exitOK
	default:
		fmt.Fprintf(stderr, "Error: unknown command %q\n\n", args[0])
		usage(stderr)
		return exitUsage
	}

	command := args[0]
	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	fs.SetOutput(stderr)
	common := addCommonFlags(fs)

	defaults := config.Default()
	var apply func(cfg *config.Config) error

	switch command {
	case "extract":
		var (
			frames  = fs.Int("frames", defaults.FrameCount, "Number of frames to sample")
			size    = fs.String("size", defaults.FrameSize.Size().String(), "Output resolution as WxH")
			out     = fs.String("out", defaults.FramesDir, "Frames root; images are written to <out>/<video-stem>")
			quality = fs.Int("quality", defaults.JPEGQuality, "JPEG quality (1-100)")
		)
		fs.Usage = func() {
			fmt.Fprintf(stderr, "Usage: vidset extract [options] <video-or-playlist>\n\n")
			fmt.Fprintf(stderr, "Arguments:\n")
			fmt.Fprintf(stderr, "  <video-or-playlist>    video file, or local/remote HLS VOD playlist (.m3u8)\n\n")
			fmt.Fprintf(stderr, "Options:\n")
			fs.PrintDefaults()
		}
		apply = func(cfg *config.Config) error {
			var err error
			fs.Visit(func(f *flag.Flag) {
				switch f.Name {
				case "frames":
					cfg.FrameCount = *frames
				case "size":
					var s sampler.Size
					if s, err = sampler.ParseSize(*size); err == nil {
						cfg.FrameSize = config.FrameSize{Width: s.Width, Height: s.Height}
					}
				case "out":
					cfg.FramesDir = *out
				case "quality":
					cfg.JPEGQuality = *quality
				}
			})
			if err != nil {
				return err
			}

			switch fs.NArg() {
			case 0:
			case 1:
				cfg.Video = fs.Arg(0)
			default:
				return fmt.Errorf("%w: extract takes one video, got %d arguments", faults.ErrConfiguration, fs.NArg())
			}
			if cfg.Video == "" {
				return fmt.Errorf("%w: video is required", faults.ErrConfiguration)
			}
			return nil
		}

	case "split":
		var (
			out       = fs.String("out", defaults.OutputDir, "Output root for train/val/test")
			ratios    = fs.String("ratios", "0.6,0.2,0.2", "Train,val,test ratios")
			seed      = fs.Int64("seed", 0, "Shuffle seed (default: random, logged)")
			withIndex = fs.Bool("manifest", false, "Write <out>/manifest.yaml")
		)
		fs.Usage = func() {
			fmt.Fprintf(stderr, "Usage: vidset split [options] <source-dir>...\n\n")
			fmt.Fprintf(stderr, "Arguments:\n")
			fmt.Fprintf(stderr, "  <source-dir>    directory of .jpg images (not searched recursively)\n\n")
			fmt.Fprintf(stderr, "Options:\n")
			fs.PrintDefaults()
		}
		apply = func(cfg *config.Config) error {
			var err error
			fs.Visit(func(f *flag.Flag) {
				switch f.Name {
				case "out":
					cfg.OutputDir = *out
				case "ratios":
					var r config.RatiosConfig
					if r, err = config.ParseRatios(*ratios); err == nil {
						cfg.Ratios = r
					}
				case "seed":
					cfg.Seed = seed
				case "manifest":
					cfg.Manifest = *withIndex
				}
			})
			if err != nil {
				return err
			}

			if fs.NArg() > 0 {
				cfg.SourceDirs = fs.Args()
			}
			if len(cfg.SourceDirs) == 0 {
				return fmt.Errorf("%w: at least one source directory is required", faults.ErrConfiguration)
			}
			return nil
		}
	}

	if err := fs.Parse(args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	if *common.showVersion {
		fmt.Fprintf(stdout, "vidset v%s\n", version)
		return exitOK
	}

	cfg, err := config.Load(*common.configPath)
	if err == nil {
		err = apply(cfg)
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n\n", err)
		fs.Usage()
		return exitCode(err)
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "metrics-file" {
			cfg.MetricsFile = *common.metricsFile
		}
	})

	// Setup logger
	logLevel := slog.LevelInfo
	toolLevel := hclog.Error
	if *common.verbose {
		logLevel = slog.LevelDebug
		toolLevel = hclog.Debug
	}

	logger := slog.New(slog.NewTextHandler(stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))

	var progressOut io.Writer
	if *common.progress {
		progressOut = stderr
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	rec := metrics.New()

	logger.Debug("vidset starting", "version", version, "command", command)

	switch command {
	case "extract":
		opener := video.NewOpener(video.Options{
			FFmpegPath:  cfg.FFmpegPath,
			FFprobePath: cfg.FFprobePath,
			Logger:      video.NewToolLogger(stderr, toolLevel),
		})
		_, err = pipeline.NewExtractor(opener, rec, progressOut, logger).Extract(ctx, cfg)
	case "split":
		_, err = pipeline.NewSplitter(rec, progressOut, logger).Split(ctx, cfg)
	}

	if cfg.MetricsFile != "" {
		if werr := rec.WriteTextfile(cfg.MetricsFile); werr != nil {
			logger.Error("failed to write metrics", "path", cfg.MetricsFile, "error", werr)
			if err == nil {
				err = werr
			}
		}
	}

	if err != nil {
		logger.Error("command failed", "command", command, "error", err)
		return exitCode(err)
	}

	return exitOK
}

// exitCode maps configuration errors to the usage exit code and everything else to failure.
func exitCode(err error) int {
	if errors.Is(err, faults.ErrConfiguration) {
		return exitUsage
	}
	return exitFailed
}
