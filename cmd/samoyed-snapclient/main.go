// Command samoyed-snapclient is a Snapcast audio client: it discovers or
// dials a server, negotiates the protocol session, and drives a
// sample-rate-synchronized audio sink from the decoded chunk stream.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gordonklaus/portaudio"
	"github.com/spf13/pflag"

	"github.com/doismellburning/samoyed/internal/audiohal"
	"github.com/doismellburning/samoyed/internal/audiosink"
	"github.com/doismellburning/samoyed/internal/chunkbuf"
	"github.com/doismellburning/samoyed/internal/clocksync"
	"github.com/doismellburning/samoyed/internal/config"
	"github.com/doismellburning/samoyed/internal/discovery"
	"github.com/doismellburning/samoyed/internal/playback"
	"github.com/doismellburning/samoyed/internal/samlog"
	"github.com/doismellburning/samoyed/internal/snapclient"
	"github.com/doismellburning/samoyed/internal/version"
)

func main() {
	configFile := pflag.StringP("config-file", "c", "", "YAML configuration file.")
	showVersion := pflag.BoolP("version", "V", false, "Print version and exit.")
	flags := config.RegisterFlags(pflag.CommandLine)

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s - a Snapcast audio client.\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Usage: samoyed-snapclient [options]\n")
		pflag.PrintDefaults()
	}

	pflag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		os.Exit(0)
	}

	cfg, err := config.LoadFile(*configFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	cfg = config.Apply(cfg, flags)

	if err := config.Validate(cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := samlog.New(os.Stderr, cfg.LogLevel)

	if err := portaudio.Initialize(); err != nil {
		log.Warn("PortAudio init failed, sink will fall back to null sink", "err", err)
	} else {
		defer portaudio.Terminate() //nolint:errcheck
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("exiting", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.ClientConfig, log *samlog.Logger) error {
	mac, err := snapclient.LocalMAC()
	if err != nil {
		log.Warn("could not determine MAC address", "err", err)

		mac = "00:00:00:00:00:00"
	}

	var discoverer discovery.Discoverer
	if cfg.MDNS {
		discoverer = discovery.MDNSDiscoverer{} //nolint:exhaustruct
	} else {
		discoverer = discovery.StaticDiscoverer{Host: cfg.Host, Port: cfg.Port}
	}

	dial := func(ctx context.Context) (net.Conn, error) {
		result, err := discoverer.Resolve(ctx)
		if err != nil {
			return nil, err
		}

		dialer := net.Dialer{} //nolint:exhaustruct

		return dialer.DialContext(ctx, "tcp", fmt.Sprintf("%s:%d", result.Host, result.Port))
	}

	clock := clocksync.New(cfg.ClockSyncWindow)
	buf := chunkbuf.New(cfg.BufferCapacityChunks, func(c chunkbuf.Chunk) {
		log.Warn("dropped chunk: buffer full", "timestampUs", c.TimestampUs)
	})
	mailbox := &snapclient.Mailbox{} //nolint:exhaustruct

	hal := buildHAL(cfg, log)
	sink := buildSink(cfg, log)

	client := snapclient.New(dial, cfg.ClientName, mac, cfg.InstanceID, clock, buf, mailbox, hal, log)

	scheduler := playback.New(buf, clock, mailbox, sink, log)

	errCh := make(chan error, 1)

	go func() {
		errCh <- client.Run(ctx)
	}()

	go scheduler.Run(ctx)

	if cfg.StatsIntervalSeconds > 0 {
		go runStatsLoop(ctx, cfg, buf, log)
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// runStatsLoop periodically logs chunk-buffer occupancy, prefixed with an
// optional strftime timestamp the way the teacher's -T option timestamps
// received frames.
func runStatsLoop(ctx context.Context, cfg config.ClientConfig, buf *chunkbuf.Buffer, log *samlog.Logger) {
	ticker := time.NewTicker(time.Duration(cfg.StatsIntervalSeconds) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			line := samlog.StatsLine(cfg.TimestampFormat, now, fmt.Sprintf("buffered_chunks=%d", buf.Len()))
			log.Info(line)
		}
	}
}

func buildHAL(cfg config.ClientConfig, log *samlog.Logger) snapclient.HAL {
	if cfg.GPIOChip == "" || cfg.GPIOMuteLine < 0 {
		return audiohal.NullHAL{}
	}

	led, err := audiohal.NewGPIOMuteLED(cfg.GPIOChip, cfg.GPIOMuteLine, cfg.GPIOMuteInvert)
	if err != nil {
		log.Warn("GPIO mute LED unavailable, falling back to no-op HAL", "err", err)

		return audiohal.NullHAL{}
	}

	return led
}

// buildSink opens the default PortAudio output device. cfg.AudioDevice is
// reserved for future non-default device selection; PortAudio's Go binding
// only exposes DefaultOutputDevice today.
func buildSink(_ config.ClientConfig, log *samlog.Logger) audiosink.Sink {
	sink, err := audiosink.NewPortAudioSink()
	if err != nil {
		log.Warn("PortAudio unavailable, falling back to null sink", "err", err)

		return &audiosink.NullSink{} //nolint:exhaustruct
	}

	return sink
}
