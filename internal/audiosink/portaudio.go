package audiosink

import (
	"time"

	"github.com/doismellburning/samoyed/internal/snaperr"
	"github.com/gordonklaus/portaudio"
)

// dividers holds the three precomputed PortAudio stream parameter sets for
// a configured sample rate: nominal, and ±0.1% (1000 ppm), per spec.md
// §4.G and §9's "precompute three dividers at configure-time" note. This
// mirrors the APLL trim table conceptually: trim only ever selects among
// these, never recomputes one on the hot path.
type dividers struct {
	nominal portaudio.StreamParameters
	fast    portaudio.StreamParameters
	slow    portaudio.StreamParameters
}

// PortAudioSink drives a host PortAudio output stream. Used for
// development and for the audio HAL under non-embedded OSes; the
// production embedded build would supply a different Sink for its I2S
// peripheral, but the scheduler contract is identical either way.
type PortAudioSink struct {
	channels int

	div       dividers
	trim      Trim
	stream    *portaudio.Stream
	outBuf    []int16
	deviceOut portaudio.DeviceInfo
}

// NewPortAudioSink constructs a sink bound to the host's default output
// device. portaudio.Initialize must be called once by the process before
// use (spec.md leaves PortAudio/terminate lifecycle to the caller since
// it's a process-wide resource, not a per-session one).
func NewPortAudioSink() (*PortAudioSink, error) {
	dev, err := portaudio.DefaultOutputDevice()
	if err != nil {
		return nil, snaperr.New(snaperr.Transport, "portaudio_default_output_device", err)
	}

	return &PortAudioSink{deviceOut: *dev}, nil //nolint:exhaustruct
}

// Configure opens the PortAudio stream at the nominal rate and precomputes
// the fast/slow stream-parameter dividers for later Trim calls.
func (s *PortAudioSink) Configure(sampleRate, bits, channels int) error {
	if s.stream != nil {
		_ = s.stream.Close()
		s.stream = nil
	}

	s.channels = channels

	latency := s.deviceOut.DefaultLowOutputLatency

	base := portaudio.StreamParameters{ //nolint:exhaustruct
		Output: portaudio.StreamDeviceParameters{
			Device:   &s.deviceOut,
			Channels: channels,
			Latency:  latency,
		},
		SampleRate:      float64(sampleRate),
		FramesPerBuffer: portaudio.FramesPerBufferUnspecified,
	}

	fast := base
	fast.SampleRate = float64(sampleRate) * 1.001

	slow := base
	slow.SampleRate = float64(sampleRate) * 0.999

	s.div = dividers{nominal: base, fast: fast, slow: slow}
	s.trim = TrimNominal

	stream, err := portaudio.OpenStream(base, &s.outBuf)
	if err != nil {
		return snaperr.New(snaperr.Transport, "portaudio_open_stream", err)
	}

	s.stream = stream

	return nil
}

// Start starts the configured stream.
func (s *PortAudioSink) Start() error {
	if err := s.stream.Start(); err != nil {
		return snaperr.New(snaperr.Transport, "portaudio_start", err)
	}

	return nil
}

// Stop stops the configured stream; per spec.md §6, the under-run flag
// auto-clears on the next Start.
func (s *PortAudioSink) Stop() error {
	if err := s.stream.Stop(); err != nil {
		return snaperr.New(snaperr.Transport, "portaudio_stop", err)
	}

	return nil
}

// Prime stages bytes without requiring Start to have been called; since
// PortAudio has no native "prime DMA, don't clock out yet" primitive, this
// writes directly — the scheduler still calls Start immediately after, per
// spec.md §4.G's hard-sync sequence, so the staging latency is bounded to
// one buffer.
func (s *PortAudioSink) Prime(bytes []byte) (int, error) {
	return s.Write(bytes, 0)
}

// Write writes PCM bytes to the stream. PortAudio's Write is blocking by
// design; timeoutUs is honored on a best-effort basis via a bounded retry
// loop since the binding exposes no deadline parameter.
func (s *PortAudioSink) Write(bytes []byte, timeoutUs int64) (int, error) {
	samples := bytesToInt16(bytes)
	s.outBuf = samples

	deadline := time.Now().Add(time.Duration(timeoutUs) * time.Microsecond)

	for {
		err := s.stream.Write()
		if err == nil {
			return len(bytes), nil
		}

		if timeoutUs > 0 && time.Now().After(deadline) {
			return 0, snaperr.New(snaperr.Transport, "portaudio_write_timeout", err)
		}

		if timeoutUs == 0 {
			return 0, snaperr.New(snaperr.Transport, "portaudio_write", err)
		}
	}
}

// Trim selects one of the three precomputed stream-parameter sets by
// reopening the stream at the new rate. A no-op if dir equals the current
// trim, per spec.md §8's trim(0) idempotence law.
func (s *PortAudioSink) Trim(dir Trim) error {
	if dir == s.trim {
		return nil
	}

	var params portaudio.StreamParameters

	switch dir {
	case TrimFast:
		params = s.div.fast
	case TrimSlow:
		params = s.div.slow
	default:
		params = s.div.nominal
	}

	if s.stream != nil {
		_ = s.stream.Close()
	}

	stream, err := portaudio.OpenStream(params, &s.outBuf)
	if err != nil {
		return snaperr.New(snaperr.Transport, "portaudio_trim_reopen", err)
	}

	s.stream = stream
	s.trim = dir

	return s.Start()
}

func bytesToInt16(b []byte) []int16 {
	out := make([]int16, len(b)/2)
	for i := range out {
		out[i] = int16(uint16(b[2*i]) | uint16(b[2*i+1])<<8)
	}

	return out
}
