// If you are AI: This is the CLI entrypoint for the frame recorder process.

// Command recorder reads a video stream from a publication channel and
// records it to disk under a directory tree organised by date and time.
// Frames are recorded as fast as they arrive, once a second, or not at
// all — the fast, slow and stopped states, switched by "fast"/"slow"/
// "stop" datagrams on the recorder's command socket, typically sent by
// the watcher on a motion event.
//
// usage: recorder [<options>] <image-channel-in> <base-dir>
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/graeme-walker/videotools/internal/bus"
	"github.com/graeme-walker/videotools/internal/commandbus"
	"github.com/graeme-walker/videotools/internal/config"
	"github.com/graeme-walker/videotools/internal/framecache"
)

// main parses flags, wires the recorder's subscription, command socket
// and state machine together, and runs until the channel publisher goes
// away (with --once) or a termination signal arrives.
func main() {
	configPath := flag.String("config", "", "optional YAML file with shared tuning defaults")
	fast := flag.Bool("fast", false, "start in the fast state")
	stateName := flag.String("state", "slow", "state when not fast: slow or stopped")
	timeoutS := flag.Int("timeout", -1, "fast-state timeout in seconds, 0 disables auto-demotion (default from config, else 10)")
	cacheSize := flag.Int("cache-size", -1, "pre-roll cache size in frames, 0 disables caching (default from config, else 100)")
	tz := flag.Int("tz", 0, "hours added to UTC when constructing file paths")
	name := flag.String("name", "", "filename prefix (defaults to the channel name)")
	commandSocket := flag.String("command-socket", "", "address for the recorder's command endpoint (host:port for UDP, path for a Unix datagram socket)")
	scale := flag.Int("scale", 1, "image size divisor; not applied: frames are stored at their published size")
	fileType := flag.String("file-type", "", "file type (jpeg, ppm or pgm) used for stored file names instead of the channel's published type; frame bytes are stored unconverted")
	retry := flag.Int("retry", 0, "poll for the input channel to appear, in seconds; 0 fails immediately if absent")
	once := flag.Bool("once", false, "exit if the input channel's publisher disappears")
	flag.Parse()

	if flag.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "usage: recorder [<options>] <image-channel-in> <base-dir>")
		os.Exit(2)
	}
	channelName := flag.Arg(0)
	baseDir := flag.Arg(1)
	prefix := *name
	if prefix == "" {
		prefix = channelName
	}

	logger := log.New(os.Stderr, "", log.LstdFlags)

	cfg, err := config.LoadRecorder(*configPath)
	if err != nil {
		logger.Fatalf("recorder: %v", err)
	}
	applyRecorderFlags(cfg, *timeoutS, *cacheSize, *tz, prefix, *commandSocket)
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("recorder: invalid configuration: %v", err)
	}

	base, err := parseBaseState(*stateName)
	if err != nil {
		logger.Fatalf("recorder: %v", err)
	}

	if n, err := framecache.Sweep(baseDir); err != nil {
		logger.Printf("recorder: sweeping stale cache entries: %v", err)
	} else if n > 0 {
		logger.Printf("recorder: removed %d stale cache file(s)", n)
	}

	set := Settings{
		BaseDir:     baseDir,
		Prefix:      prefix,
		Scale:       *scale,
		FileType:    normalizeFileType(*fileType),
		TZOffsetH:   cfg.TZOffsetH,
		CacheSize:   cfg.CacheSize,
		FastTimeout: time.Duration(cfg.FastTimeoutS) * time.Second,
	}
	rec := NewRecorder(set, base, *fast, logger)

	var endpoint *commandbus.Endpoint
	if cfg.CommandAddr != "" {
		disp := commandbus.NewDispatcher()
		disp.Handle("fast", func(commandbus.Command) error { rec.SetFast(); return nil })
		disp.Handle("slow", func(commandbus.Command) error { rec.SetSlow(); return nil })
		disp.Handle("stop", func(commandbus.Command) error { rec.SetStopped(); return nil })

		endpoint, err = commandbus.Listen(commandNetwork(cfg.CommandAddr), cfg.CommandAddr, disp, logger)
		if err != nil {
			logger.Fatalf("recorder: command socket: %v", err)
		}
		go func() {
			if err := endpoint.Serve(); err != nil {
				logger.Printf("recorder: command socket: %v", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := runLoop(ctx, channelName, *retry, *once, rec, logger); err != nil {
		logger.Printf("recorder: %v", err)
	}
	if endpoint != nil {
		endpoint.Close()
	}
}

// applyRecorderFlags overlays explicitly-set CLI flags onto the loaded
// config, leaving YAML-supplied or built-in defaults untouched for flags
// the caller left at their sentinel value.
func applyRecorderFlags(cfg *config.RecorderConfig, timeoutS, cacheSize, tz int, prefix, commandSocket string) {
	if timeoutS >= 0 {
		cfg.FastTimeoutS = timeoutS
	}
	if cacheSize >= 0 {
		cfg.CacheSize = cacheSize
	}
	cfg.TZOffsetH = tz
	if prefix != "" {
		cfg.NamePrefix = prefix
	}
	if commandSocket != "" {
		cfg.CommandAddr = commandSocket
	}
}

// parseBaseState validates the --state flag, rejecting "fast" the way
// the original does: fast is reached only via --fast or a command, never
// as the resting state to fall back to.
func parseBaseState(s string) (state, error) {
	switch s {
	case "slow":
		return stateSlow, nil
	case "stopped":
		return stateStopped, nil
	default:
		return 0, fmt.Errorf("invalid --state %q: must be slow or stopped", s)
	}
}

// normalizeFileType maps the --file-type flag's jpg/ppm/pgm vocabulary
// onto imageconv's type names.
func normalizeFileType(s string) string {
	switch s {
	case "jpg", "jpeg":
		return "jpeg"
	case "ppm", "pgm":
		return "raw"
	default:
		return ""
	}
}

// commandNetwork infers the command socket's network from its address:
// a colon means host:port UDP, anything else a Unix datagram socket path.
func commandNetwork(addr string) string {
	if strings.Contains(addr, ":") {
		return "udp"
	}
	return "unixgram"
}

// runLoop subscribes to channelName and feeds every frame to rec until
// the context is cancelled or (with once) the publisher disappears for
// good. A missing channel is retried every retrySeconds if retrySeconds
// is positive.
func runLoop(ctx context.Context, channelName string, retrySeconds int, once bool, rec *Recorder, logger *log.Logger) error {
	for {
		sub, err := openWithRetry(ctx, channelName, retrySeconds)
		if err != nil {
			return err
		}
		err = consume(ctx, sub, rec)
		sub.Close()
		if err == nil {
			return nil // context cancelled
		}
		if !errors.Is(err, bus.ErrPublisherGone) {
			return err
		}
		logger.Printf("recorder: channel publisher has gone away: %s", channelName)
		if once {
			return err
		}
		if !sleepOrDone(ctx, time.Duration(retrySeconds)*time.Second) {
			return nil
		}
	}
}

// openWithRetry opens channelName, retrying every retrySeconds until it
// succeeds, the context is cancelled, or retrySeconds is non-positive (in
// which case a single failed attempt is fatal).
func openWithRetry(ctx context.Context, channelName string, retrySeconds int) (*bus.Subscription, error) {
	for {
		sub, err := bus.Open(channelName)
		if err == nil {
			return sub, nil
		}
		if retrySeconds <= 0 {
			return nil, fmt.Errorf("open channel %s: %w", channelName, err)
		}
		if !sleepOrDone(ctx, time.Duration(retrySeconds)*time.Second) {
			return nil, ctx.Err()
		}
	}
}

// consume repeatedly receives frames from sub and hands them to rec
// until the context is cancelled (returns nil) or the publisher goes
// away (returns bus.ErrPublisherGone).
func consume(ctx context.Context, sub *bus.Subscription, rec *Recorder) error {
	for {
		frame, err := sub.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		rec.HandleFrame(frame)
	}
}

// sleepOrDone waits for d, returning false early if ctx is cancelled
// first.
func sleepOrDone(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
