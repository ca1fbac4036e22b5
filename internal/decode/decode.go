// Package decode implements the PCM and Opus decode paths of spec.md §4.E:
// turning a WIRE_CHUNK's encoded bytes into a PCM chunk ready for the chunk
// buffer, preserving timestamp and computing the authoritative chunk
// duration from the produced byte count.
package decode

import (
	"github.com/doismellburning/samoyed/internal/chunkbuf"
	"github.com/doismellburning/samoyed/internal/snaperr"
	"github.com/thesyncim/gopus"
)

// BytesPerSample is fixed at 16-bit signed PCM throughout this client, per
// spec.md's settings model (bits_per_sample).
const BytesPerSample = 2

// InitialOpusFrameSamples is the starting per-channel sample capacity for
// the Opus scratch buffer; spec.md §8's scenario 2 exercises growth from
// this value up to a 960-sample frame via repeated retries.
const InitialOpusFrameSamples = 120

// maxGrowthAttempts bounds how many times the Opus scratch buffer doubles
// before a persistently undersized buffer is treated as a hard decode
// error rather than BufferTooSmall — this guards against looping forever
// if gopus returns an error unrelated to buffer sizing.
const maxGrowthAttempts = 8

// Decoder turns wire bytes into a PCM chunk per the CODEC_HEADER negotiated
// for the session. The zero value is not usable; construct with NewPCM or
// NewOpus.
type Decoder interface {
	// Decode turns one WIRE_CHUNK's payload into a PCM Chunk, preserving
	// timestampUs. Returns DecodeFailed on a hard decoder error; the caller
	// drops the chunk in that case.
	Decode(timestampUs int64, wireBytes []byte) (chunkbuf.Chunk, error)
}

// PCMDecoder is the passthrough path: spec.md §4.E's "copy the wire bytes
// into a freshly-allocated PCM chunk payload with identical size".
type PCMDecoder struct {
	SampleRate int
	Channels   int
}

// NewPCM constructs a PCMDecoder for the given CODEC_HEADER-negotiated
// stream parameters.
func NewPCM(sampleRate, channels int) *PCMDecoder {
	return &PCMDecoder{SampleRate: sampleRate, Channels: channels}
}

// Decode copies wireBytes into a single-fragment PCM chunk.
func (d *PCMDecoder) Decode(timestampUs int64, wireBytes []byte) (chunkbuf.Chunk, error) {
	out := make([]byte, len(wireBytes))
	copy(out, wireBytes)

	return chunkbuf.Chunk{
		TimestampUs: timestampUs,
		DurationUs:  durationUs(len(out), d.Channels, BytesPerSample, d.SampleRate),
		Fragments:   []chunkbuf.Fragment{{Bytes: out}},
	}, nil
}

// int16Decoder is the slice of gopus.Decoder this package relies on; a seam
// so the buffer-growth retry loop can be exercised with a fake in tests.
type int16Decoder interface {
	DecodeInt16(packet []byte, pcm []int16) (int, error)
}

// OpusDecoder holds Opus decoder state configured from the CODEC_HEADER
// rate and channel count, per spec.md §4.E.
type OpusDecoder struct {
	sampleRate int
	channels   int
	dec        int16Decoder
	scratch    []int16 // frame capacity in total samples (frames * channels)
}

// NewOpus constructs an OpusDecoder for the given CODEC_HEADER-negotiated
// stream parameters.
func NewOpus(sampleRate, channels int) (*OpusDecoder, error) {
	dec, err := gopus.NewDecoder(gopus.DefaultDecoderConfig(sampleRate, channels))
	if err != nil {
		return nil, snaperr.New(snaperr.DecodeFailed, "opus_new_decoder", err)
	}

	return newOpusWithDecoder(sampleRate, channels, dec), nil
}

func newOpusWithDecoder(sampleRate, channels int, dec int16Decoder) *OpusDecoder {
	return &OpusDecoder{
		sampleRate: sampleRate,
		channels:   channels,
		dec:        dec,
		scratch:    make([]int16, InitialOpusFrameSamples*channels),
	}
}

// Decode decodes one Opus packet into a PCM chunk, growing the scratch
// buffer and retrying on BufferTooSmall until it succeeds or a genuine
// decode error occurs, per spec.md §4.E and the scenario in §8.2.
func (d *OpusDecoder) Decode(timestampUs int64, wireBytes []byte) (chunkbuf.Chunk, error) {
	var (
		n   int
		err error
	)

	for attempt := 0; attempt < maxGrowthAttempts; attempt++ {
		n, err = d.dec.DecodeInt16(wireBytes, d.scratch)
		if err == nil {
			break
		}

		if !looksLikeBufferTooSmall(err) {
			return chunkbuf.Chunk{}, snaperr.New(snaperr.DecodeFailed, "opus_decode", err) //nolint:exhaustruct
		}

		d.scratch = make([]int16, len(d.scratch)*2)
	}

	if err != nil {
		return chunkbuf.Chunk{}, snaperr.New(snaperr.DecodeFailed, "opus_decode:buffer_growth_exhausted", err) //nolint:exhaustruct
	}

	pcmBytes := int16SamplesToBytes(d.scratch[:n])

	return chunkbuf.Chunk{
		TimestampUs: timestampUs,
		DurationUs:  durationUs(len(pcmBytes), d.channels, BytesPerSample, d.sampleRate),
		Fragments:   []chunkbuf.Fragment{{Bytes: pcmBytes}},
	}, nil
}

// looksLikeBufferTooSmall reports whether err indicates the decoder needs a
// larger output buffer rather than a genuine decode failure. gopus doesn't
// export a typed sentinel for this, so the message is the contract; any
// non-matching error is treated as hard.
func looksLikeBufferTooSmall(err error) bool {
	msg := err.Error()

	return containsFold(msg, "buffer") && (containsFold(msg, "small") || containsFold(msg, "short") || containsFold(msg, "size"))
}

func containsFold(s, substr string) bool {
	sl, subl := []rune(s), []rune(substr)
	n, m := len(sl), len(subl)

	for i := 0; i+m <= n; i++ {
		match := true

		for j := 0; j < m; j++ {
			a, b := sl[i+j], subl[j]
			if a >= 'A' && a <= 'Z' {
				a += 'a' - 'A'
			}

			if b >= 'A' && b <= 'Z' {
				b += 'a' - 'A'
			}

			if a != b {
				match = false

				break
			}
		}

		if match {
			return true
		}
	}

	return false
}

// int16SamplesToBytes packs interleaved int16 PCM samples into little-endian
// bytes.
func int16SamplesToBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		out[2*i] = byte(uint16(s))
		out[2*i+1] = byte(uint16(s) >> 8)
	}

	return out
}

// durationUs computes the authoritative chunk duration, per spec.md's
// GLOSSARY: 1000 * bytes / (channels * bytesPerSample * sampleRate) ms,
// converted here to microseconds for the scheduler's age arithmetic.
func durationUs(bytes, channels, bytesPerSample, sampleRate int) int64 {
	denom := channels * bytesPerSample * sampleRate
	if denom == 0 {
		return 0
	}

	return int64(1_000_000) * int64(bytes) / int64(denom)
}
