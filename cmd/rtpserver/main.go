// If you are AI: This is the CLI entrypoint for the RTP-to-channel depacketising server.

// Command rtpserver listens for an RTP stream (H.264 or JPEG payloads)
// and republishes each reassembled frame on a publication channel, so
// the rest of the toolkit never has to speak RTP.
//
// usage: rtpserver [<options>] --bind <addr> <image-channel-out>
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/graeme-walker/videotools/internal/bus"
	"github.com/graeme-walker/videotools/internal/config"
	"github.com/graeme-walker/videotools/internal/imageconv"
	"github.com/graeme-walker/videotools/internal/rtpdepacket"
)

const (
	outputMaxPayload = 8 * 1024 * 1024
	outputSlots      = 4
)

// main wires an rtpdepacket.Server to a bus.Publisher: every reassembled
// frame it decodes is republished under the given channel name.
func main() {
	configPath := flag.String("config", "", "optional YAML file with shared tuning defaults")
	bindAddr := flag.String("bind", ":5004", "UDP address to receive the RTP stream on")
	multicastGroup := flag.String("multicast", "", "join this multicast group instead of plain unicast (default from config)")
	packetType := flag.Int("packet-type", -1, "restrict to one RTP payload type number, 0 accepts any (default from config)")
	staleTimeout := flag.Int("source-stale-timeout", -1, "seconds of silence before a source is considered gone (default from config, else 10)")
	keyFrameLimit := flag.Int("key-frame-sanity-limit", -1, "leading H.264 frames discarded while waiting for a key frame (default from config, else 100)")
	jpegFudge := flag.Int("jpeg-fudge-factor", -1, "0, 1 or 2: selects a legacy JPEG quantisation-table workaround (default from config)")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: rtpserver [<options>] <image-channel-out>")
		os.Exit(2)
	}
	channelName := flag.Arg(0)
	logger := log.New(os.Stderr, "", log.LstdFlags)

	cfg, err := config.LoadRTPServer(*configPath)
	if err != nil {
		logger.Fatalf("rtpserver: %v", err)
	}
	applyRTPServerFlags(cfg, *multicastGroup, *packetType, *staleTimeout, *keyFrameLimit, *jpegFudge)
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("rtpserver: invalid configuration: %v", err)
	}

	pub, err := bus.CreatePublisher(channelName, outputMaxPayload, outputSlots, nil)
	if err != nil {
		logger.Fatalf("rtpserver: create channel %s: %v", channelName, err)
	}
	defer pub.Close()

	onImage := func(img imageconv.Image) {
		now := time.Now()
		if err := pub.Publish(img.Bytes, img.Type.String(), bus.EpochTime{Sec: now.Unix(), Usec: int64(now.Nanosecond() / 1000)}); err != nil {
			logger.Printf("rtpserver: publish: %v", err)
		}
	}

	srv, err := rtpdepacket.Listen(*bindAddr, cfg.MulticastGroup, rtpdepacket.Config{
		PacketType:          cfg.PacketType,
		SourceStaleTimeout:  time.Duration(cfg.SourceStaleTimeoutS) * time.Second,
		KeyFrameSanityLimit: cfg.KeyFrameSanityLimit,
		JPEGFudgeFactor:     cfg.JPEGFudgeFactor,
	}, onImage, logger)
	if err != nil {
		logger.Fatalf("rtpserver: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	if err := srv.Serve(); err != nil {
		logger.Printf("rtpserver: %v", err)
	}
}

// applyRTPServerFlags overlays explicitly-set CLI flags onto the loaded
// config.
func applyRTPServerFlags(cfg *config.RTPServerConfig, multicastGroup string, packetType, staleTimeout, keyFrameLimit, jpegFudge int) {
	if multicastGroup != "" {
		cfg.MulticastGroup = multicastGroup
	}
	if packetType >= 0 {
		cfg.PacketType = packetType
	}
	if staleTimeout >= 0 {
		cfg.SourceStaleTimeoutS = staleTimeout
	}
	if keyFrameLimit >= 0 {
		cfg.KeyFrameSanityLimit = keyFrameLimit
	}
	if jpegFudge >= 0 {
		cfg.JPEGFudgeFactor = jpegFudge
	}
}
