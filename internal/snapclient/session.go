// Package snapclient implements the Snapcast protocol session: spec.md
// §4.F's single long-lived TCP loop that negotiates HELLO, dispatches
// CODEC_HEADER/WIRE_CHUNK/SERVER_SETTINGS/TIME messages, and periodically
// probes for clock offset.
package snapclient

import (
	"context"
	"io"
	"net"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/doismellburning/samoyed/internal/chunkbuf"
	"github.com/doismellburning/samoyed/internal/clocksync"
	"github.com/doismellburning/samoyed/internal/decode"
	"github.com/doismellburning/samoyed/internal/samlog"
	"github.com/doismellburning/samoyed/internal/snaperr"
	"github.com/doismellburning/samoyed/internal/version"
	"github.com/doismellburning/samoyed/internal/wire"
)

// HAL is the audio-HAL collaborator from spec.md §6: mute/volume are
// forwarded here whenever a SERVER_SETTINGS message changes them.
type HAL interface {
	SetMute(bool)
	SetVolume(uint8)
}

// Dialer resolves and opens the TCP connection to the server for one
// session attempt. Splitting this out keeps discovery (static host:port or
// mDNS) opaque to the session loop, per spec.md §6.
type Dialer func(ctx context.Context) (net.Conn, error)

// ReconnectBackoff is the design-fixed delay after a transport error before
// the next connection attempt (spec.md §4.F: "back off 4 s, reconnect" —
// flat, no exponential backoff, per SPEC_FULL.md §9's resolution of this
// point).
const ReconnectBackoff = 4 * time.Second

// FastProbeInterval is the TIME probe cadence while the estimator isn't
// ready yet.
const FastProbeInterval = 50 * time.Millisecond

// SlowProbeInterval is the TIME probe cadence once the estimator is ready.
const SlowProbeInterval = 1000 * time.Millisecond

// StaleAfter is how long without a successful TIME exchange before the
// estimator is reset and fast probing resumes.
const StaleAfter = 60 * time.Second

// Client runs the protocol session loop. Construct with New.
type Client struct {
	Dial       Dialer
	ClientName string
	InstanceID int
	MAC        string

	Clock   *clocksync.Estimator
	Buf     *chunkbuf.Buffer
	Mailbox *Mailbox
	HAL     HAL // may be nil

	Log *samlog.Logger
}

// New constructs a Client with the given collaborators. log may be nil, in
// which case samlog.Default() is used.
func New(dial Dialer, clientName, mac string, instanceID int, clock *clocksync.Estimator, buf *chunkbuf.Buffer, mailbox *Mailbox, hal HAL, log *samlog.Logger) *Client {
	if log == nil {
		log = samlog.Default()
	}

	return &Client{
		Dial:       dial,
		ClientName: clientName,
		InstanceID: instanceID,
		MAC:        mac,
		Clock:      clock,
		Buf:        buf,
		Mailbox:    mailbox,
		HAL:        hal,
		Log:        log,
	}
}

// Run is the session-level loop: connect, negotiate, dispatch until the
// socket fails, back off, reconnect. It returns when ctx is canceled, or
// with the error itself when a session ends on an error whose policy is
// snaperr.ActionFatal.
func (c *Client) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err := c.runOnce(ctx)
		if err != nil {
			if kind, ok := snaperr.As(err); ok && snaperr.Policy(kind) == snaperr.ActionFatal {
				return err
			}

			c.Log.Warn("session ended", "err", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(ReconnectBackoff):
		}
	}
}

// runOnce runs a single connect-negotiate-dispatch cycle, returning the
// error that ended it (transport failure, malformed frame, or a fatal
// config/codec rejection).
func (c *Client) runOnce(ctx context.Context) error {
	conn, err := c.Dial(ctx)
	if err != nil {
		return snaperr.New(snaperr.Transport, "dial", err)
	}
	defer conn.Close()

	s := &session{ //nolint:exhaustruct
		client:  c,
		conn:    conn,
		buf:     c.Buf,
		clock:   c.Clock,
		mailbox: c.Mailbox,
		hal:     c.HAL,
		log:     c.Log,
	}

	if err := s.sendHello(); err != nil {
		return err
	}

	probeCtx, cancelProbe := context.WithCancel(ctx)
	defer cancelProbe()

	go s.probeLoop(probeCtx)

	return s.dispatchLoop(ctx)
}

// session holds the per-connection state that resets on every reconnect:
// header_received, the active decoder, the last-seen settings, and message
// id counters. Losing the socket invalidates all of it, per spec.md §4.F's
// teardown semantics.
type session struct {
	client *Client
	conn   net.Conn
	buf    *chunkbuf.Buffer
	clock  *clocksync.Estimator
	mailbox *Mailbox
	hal    HAL
	log    *samlog.Logger

	writeMu sync.Mutex
	nextID  uint16

	headerReceived bool
	decoder        decode.Decoder
	settings       Settings

	mu           sync.Mutex // guards lastTimeSync, read by probeLoop and written by dispatchLoop
	lastTimeSync time.Time
}

func (s *session) sendHello() error {
	payload, err := marshalHello(s.client.ClientName, hostnameOrUnknown(), s.client.MAC, runtime.GOARCH, runtime.GOOS, version.String(), s.client.InstanceID)
	if err != nil {
		return snaperr.New(snaperr.Transport, "marshal_hello", err)
	}

	return s.send(wire.TypeHello, wire.EncodeJSONPayload(payload))
}

// send serializes and writes one base+payload message, guarded by writeMu
// since the probe goroutine and the dispatch loop both write to the same
// socket.
func (s *session) send(t wire.MessageType, payload []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	now := wire.TimestampFromMicros(time.Now().UnixMicro())

	hdr := wire.BaseHeader{ //nolint:exhaustruct
		Type: t,
		ID:   s.nextID,
		Sent: now,
		Size: uint32(len(payload)),
	}
	s.nextID++

	buf := append(wire.EncodeBaseHeader(hdr), payload...)

	if _, err := s.conn.Write(buf); err != nil {
		return snaperr.New(snaperr.Transport, "write", err)
	}

	return nil
}

// probeLoop sends periodic TIME requests at FastProbeInterval or
// SlowProbeInterval depending on estimator readiness, per spec.md §4.F.
func (s *session) probeLoop(ctx context.Context) {
	interval := FastProbeInterval

	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		if err := s.send(wire.TypeTime, wire.EncodeTimePayload(wire.TimePayload{Latency: wire.Timestamp{}})); err != nil { //nolint:exhaustruct
			s.log.Debug("time probe send failed", "err", err)
		}

		if s.lastSyncAge() > StaleAfter {
			s.clock.Reset()
		}

		if s.clock.IsReady() {
			interval = SlowProbeInterval
		} else {
			interval = FastProbeInterval
		}

		timer.Reset(interval)
	}
}

// dispatchLoop is the read side: repeatedly read a base header, its
// payload, and dispatch by type, until a transport error ends the session.
func (s *session) dispatchLoop(ctx context.Context) error {
	headerBuf := make([]byte, wire.BaseHeaderSize)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if _, err := io.ReadFull(s.conn, headerBuf); err != nil {
			return snaperr.New(snaperr.Transport, "read_header", err)
		}

		received := wire.TimestampFromMicros(time.Now().UnixMicro())

		hdr, err := wire.DecodeBaseHeader(headerBuf)
		if err != nil {
			return err
		}

		hdr.Received = received

		payload := make([]byte, hdr.Size)
		if _, err := io.ReadFull(s.conn, payload); err != nil {
			return snaperr.New(snaperr.Transport, "read_payload", err)
		}

		if err := s.dispatch(hdr, payload); err != nil {
			kind, ok := snaperr.As(err)
			if !ok {
				return err
			}

			switch snaperr.Policy(kind) {
			case snaperr.ActionFatal:
				return err // user must fix configuration, per spec.md §7's policy
			case snaperr.ActionReconnect:
				s.log.Warn("dispatch error", "type", hdr.Type.String(), "err", err)

				return err
			case snaperr.ActionDropChunk, snaperr.ActionRetryShort:
				s.log.Warn("dispatch error", "type", hdr.Type.String(), "err", err)
			}
		}
	}
}

func (s *session) dispatch(hdr wire.BaseHeader, payload []byte) error {
	switch hdr.Type {
	case wire.TypeCodecHeader:
		return s.handleCodecHeader(payload)
	case wire.TypeWireChunk:
		return s.handleWireChunk(payload)
	case wire.TypeServerSettings:
		return s.handleServerSettings(payload)
	case wire.TypeTime:
		return s.handleTime(hdr, payload)
	case wire.TypeHello:
		return nil // servers don't send HELLO to clients; ignore defensively
	default:
		return wire.ErrUnsupportedType(hdr.Type)
	}
}

// handleCodecHeader processes a CODEC_HEADER message. The reference client
// also used this message's base.sent timestamp to slew the system clock
// ("so uint32_t timevals won't overflow") before the estimator had any
// samples; this client relies on the clock estimator's offset instead and
// never touches the OS clock.
func (s *session) handleCodecHeader(payload []byte) error {
	ch, err := wire.DecodeCodecHeaderPayload(payload)
	if err != nil {
		return err
	}

	format, err := parseCodecFormat(ch.Codec, ch.Bytes)
	if err != nil {
		return err
	}

	s.settings.Codec = ch.Codec
	s.settings.SampleRate = format.SampleRate
	s.settings.BitsPerSample = format.Bits
	s.settings.Channels = format.Channels

	var dec decode.Decoder

	switch ch.Codec {
	case wire.CodecOpus:
		od, err := decode.NewOpus(format.SampleRate, format.Channels)
		if err != nil {
			return err
		}

		dec = od
	case wire.CodecPCM:
		dec = decode.NewPCM(format.SampleRate, format.Channels)
	default:
		return snaperr.New(snaperr.UnknownCodec, "handle_codec_header:"+ch.Codec, nil) //nolint:exhaustruct
	}

	s.decoder = dec
	s.headerReceived = true

	s.log.Info("codec header received", "codec", ch.Codec, "rate", format.SampleRate, "bits", format.Bits, "channels", format.Channels)

	s.mailbox.Put(s.settings)

	return nil
}

func (s *session) handleWireChunk(payload []byte) error {
	if !s.headerReceived {
		return nil // drop, per spec.md §4.F
	}

	wc, err := wire.DecodeWireChunkPayload(payload)
	if err != nil {
		return err
	}

	c, err := s.decoder.Decode(wc.Timestamp.ToMicros(), wc.Bytes)
	if err != nil {
		return err // DecodeFailed: caller drops, per policy
	}

	if c.DurationUs/1000 != int64(s.settings.ChunkDurationMs) {
		s.settings.ChunkDurationMs = int(c.DurationUs / 1000)
		s.mailbox.Put(s.settings)
	}

	s.buf.Push(c)

	return nil
}

func (s *session) handleServerSettings(payload []byte) error {
	body, err := wire.DecodeJSONPayload(payload)
	if err != nil {
		return err
	}

	ss, err := unmarshalServerSettings(body)
	if err != nil {
		return err
	}

	changed := s.settings.BufferMs != ss.BufferMs || s.settings.LatencyMs != ss.Latency ||
		s.settings.Muted != ss.Muted || s.settings.Volume != ss.Volume

	s.settings.BufferMs = ss.BufferMs
	s.settings.LatencyMs = ss.Latency
	s.settings.Muted = ss.Muted
	s.settings.Volume = ss.Volume

	if s.hal != nil {
		s.hal.SetMute(ss.Muted)
		s.hal.SetVolume(clampVolume(ss.Volume))
	}

	if changed {
		s.mailbox.Put(s.settings)
	}

	return nil
}

func (s *session) handleTime(hdr wire.BaseHeader, payload []byte) error {
	tp, err := wire.DecodeTimePayload(payload)
	if err != nil {
		return err
	}

	c2s := tp.Latency.ToMicros()
	roundTrip := hdr.Received.ToMicros() - hdr.Sent.ToMicros()
	latencyUs := (roundTrip - c2s) / 2

	s.clock.InsertLatency(latencyUs)

	s.mu.Lock()
	s.lastTimeSync = time.Now()
	s.mu.Unlock()

	return nil
}

// lastSyncAge returns how long it's been since the most recent successful
// TIME exchange, or a very large duration if none has happened yet.
func (s *session) lastSyncAge() time.Duration {
	s.mu.Lock()
	last := s.lastTimeSync
	s.mu.Unlock()

	if last.IsZero() {
		return time.Hour
	}

	return time.Since(last)
}

func clampVolume(v int) uint8 {
	if v < 0 {
		return 0
	}

	if v > 100 {
		return 100
	}

	return uint8(v)
}

func hostnameOrUnknown() string {
	h, err := os.Hostname()
	if err != nil || h == "" {
		return "unknown"
	}

	return h
}
