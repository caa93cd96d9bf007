// If you are AI: This is the CLI entrypoint for the motion-detection watcher process.

// Command watcher performs motion detection on a video stream received
// over a publication channel. When enough pixels change brightness
// between frames it publishes a "changes" JSON event on an event
// channel and, if configured, sends a one-shot "fast" command to a
// recorder's command socket. An optional image channel carries an
// annotated preview (green over changed pixels, dim red over masked
// ones) for a viewer to display.
//
// usage: watcher [<options>] [--event-channel <out>] [--image-channel <out>] <video-channel-in>
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/graeme-walker/videotools/internal/bus"
	"github.com/graeme-walker/videotools/internal/commandbus"
	"github.com/graeme-walker/videotools/internal/config"
	"github.com/graeme-walker/videotools/internal/imageconv"
	"github.com/graeme-walker/videotools/internal/motion"
	"github.com/graeme-walker/videotools/internal/reactor"
)

const (
	eventChannelMaxPayload = 4096
	eventChannelSlots      = 8
	imageChannelSlots      = 4
)

// main wires a Comparator between an input channel subscription and an
// optional event/preview publication pair, and runs until the input
// publisher disappears or a termination signal arrives.
func main() {
	configPath := flag.String("config", "", "optional YAML file with shared tuning defaults")
	eventChannel := flag.String("event-channel", "", "publish \"changes\" events on this channel")
	imageChannel := flag.String("image-channel", "", "publish the annotated preview image on this channel")
	recorderAddr := flag.String("recorder", "", "address of a recorder's command socket to trigger on motion (host:port or socket path)")
	maskPath := flag.String("mask", "", "PBM mask file excluding regions from motion detection")
	commandSocket := flag.String("command-socket", "", "address for live squelch/threshold/equalise tuning (host:port or socket path)")
	intervalMs := flag.Int("interval", -1, "minimum milliseconds between comparisons (default from config, else 250)")
	squelch := flag.Int("squelch", -1, "per-pixel luma-delta threshold, 0..255 (default from config, else 10)")
	threshold := flag.Int("threshold", -1, "pixel-count threshold to emit an event (default from config, else 50)")
	logThreshold := flag.Int("log-threshold", 0, "log (without emitting) once this many pixels change, 0 disables")
	repeatTimeoutMs := flag.Int("repeat-timeout", -1, "milliseconds between re-emitting the last event while motion persists, 0 disables (default from config, else 0)")
	scale := flag.Int("scale", -1, "integer subsample divisor (default from config, else 1)")
	equalise := flag.Bool("equalise", false, "enable histogram equalisation before comparison")
	once := flag.Bool("once", false, "report the input channel's publisher disappearing as an error; the watcher exits when the publisher goes with or without this flag")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: watcher [<options>] <video-channel-in>")
		os.Exit(2)
	}
	channelName := flag.Arg(0)
	logger := log.New(os.Stderr, "", log.LstdFlags)

	cfg, err := config.LoadWatcher(*configPath)
	if err != nil {
		logger.Fatalf("watcher: %v", err)
	}
	applyWatcherFlags(cfg, *intervalMs, *squelch, *threshold, *scale, *logThreshold, *repeatTimeoutMs, *equalise, *maskPath, *commandSocket, *recorderAddr)
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("watcher: invalid configuration: %v", err)
	}

	sub, err := bus.Open(channelName)
	if err != nil {
		logger.Fatalf("watcher: open %s: %v", channelName, err)
	}
	defer sub.Close()

	var eventPub *bus.Publisher
	if *eventChannel != "" {
		eventPub, err = bus.CreatePublisher(*eventChannel, eventChannelMaxPayload, eventChannelSlots, nil)
		if err != nil {
			logger.Fatalf("watcher: create event channel %s: %v", *eventChannel, err)
		}
		defer eventPub.Close()
	}

	var imagePub *bus.Publisher
	if *imageChannel != "" {
		// Sized generously for a greyscale-with-colour-highlight preview;
		// buildOutput never exceeds width*height*3 bytes.
		imagePub, err = bus.CreatePublisher(*imageChannel, 8*1024*1024, imageChannelSlots, nil)
		if err != nil {
			logger.Fatalf("watcher: create image channel %s: %v", *imageChannel, err)
		}
		defer imagePub.Close()
	}

	onTrigger := motion.TriggerFunc(nil)
	if *recorderAddr != "" {
		onTrigger = func() error {
			return commandbus.Send(commandNetwork(*recorderAddr), *recorderAddr, "fast")
		}
	}

	onEvent := func(ev motion.Event) {
		data, err := ev.Marshal()
		if err != nil {
			logger.Printf("watcher: marshal event: %v", err)
			return
		}
		now := time.Now()
		if eventPub != nil {
			if err := eventPub.Publish(data, "json", bus.EpochTime{Sec: now.Unix(), Usec: int64(now.Nanosecond() / 1000)}); err != nil {
				logger.Printf("watcher: publish event: %v", err)
			}
		}
		if ev.Count >= cfg.LogThreshold || cfg.LogThreshold == 0 {
			logger.Printf("watcher: motion event: %s", data)
		}
	}

	comparator := motion.New(motion.Config{
		IntervalMs:      cfg.IntervalMs,
		Scale:           cfg.Scale,
		Squelch:         cfg.Squelch,
		Threshold:       cfg.Threshold,
		LogThreshold:    cfg.LogThreshold,
		RepeatTimeoutMs: cfg.RepeatTimeoutMs,
		Equalise:        cfg.Equalise,
		MaskPath:        cfg.MaskPath,
	}, channelName, onEvent, onTrigger, logger)

	if eventPub != nil {
		onEvent(comparator.StartupEvent(time.Now()))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cmdConn *liveTuningEndpoint
	if cfg.CommandAddr != "" {
		reac := reactor.New()
		cmdConn, err = listenLiveTuning(reac, cfg.CommandAddr, comparator, logger)
		if err != nil {
			logger.Fatalf("watcher: command socket: %v", err)
		}
		go func() {
			<-ctx.Done()
			reac.Quit("shutdown")
		}()
		go func() {
			if _, err := reac.Run(); err != nil {
				logger.Printf("watcher: command socket reactor: %v", err)
			}
		}()
	}

	if err := watchLoop(ctx, sub, comparator, imagePub, *once, logger); err != nil {
		logger.Printf("watcher: %v", err)
	}
	if cmdConn != nil {
		cmdConn.close()
	}
}

// applyWatcherFlags overlays explicitly-set CLI flags onto the loaded
// config.
func applyWatcherFlags(cfg *config.WatcherConfig, intervalMs, squelch, threshold, scale, logThreshold, repeatTimeoutMs int, equalise bool, maskPath, commandSocket, recorderAddr string) {
	if intervalMs >= 0 {
		cfg.IntervalMs = intervalMs
	}
	if squelch >= 0 {
		cfg.Squelch = squelch
	}
	if threshold >= 0 {
		cfg.Threshold = threshold
	}
	if scale >= 0 {
		cfg.Scale = scale
	}
	if logThreshold > 0 {
		cfg.LogThreshold = logThreshold
	}
	if repeatTimeoutMs >= 0 {
		cfg.RepeatTimeoutMs = repeatTimeoutMs
	}
	if equalise {
		cfg.Equalise = true
	}
	if maskPath != "" {
		cfg.MaskPath = maskPath
	}
	if commandSocket != "" {
		cfg.CommandAddr = commandSocket
	}
	if recorderAddr != "" {
		cfg.TriggerAddr = recorderAddr
	}
}

// watchLoop feeds every received frame through comparator, republishing
// the annotated preview when imagePub is configured, until the context
// is cancelled or the input publisher disappears. A vanished publisher
// is returned as an error with once and as nil without it; the channel
// is not reopened in either case.
func watchLoop(ctx context.Context, sub *bus.Subscription, comparator *motion.Comparator, imagePub *bus.Publisher, once bool, logger *log.Logger) error {
	for {
		frame, err := sub.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, bus.ErrPublisherGone) {
				logger.Printf("watcher: channel publisher has gone away")
				if once {
					return err
				}
				return nil
			}
			return err
		}

		srcType, err := imageconv.ParseImageType(frame.Type)
		if err != nil {
			srcType = imageconv.Any
		}
		out, ok, err := comparator.Process(imageconv.Image{Type: srcType, Bytes: frame.Payload}, time.Now())
		if err != nil {
			logger.Printf("watcher: %v", err)
			continue
		}
		if ok && imagePub != nil {
			now := time.Now()
			if err := imagePub.Publish(out.Bytes, out.Type.String(), bus.EpochTime{Sec: now.Unix(), Usec: int64(now.Nanosecond() / 1000)}); err != nil {
				logger.Printf("watcher: publish preview: %v", err)
			}
		}
	}
}
