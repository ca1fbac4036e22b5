package snapclient

import (
	"encoding/binary"

	"github.com/doismellburning/samoyed/internal/snaperr"
)

// codecFormat is the {sampleRate, bitsPerSample, channels} tuple carried
// inside a CODEC_HEADER's opaque payload bytes.
type codecFormat struct {
	SampleRate int
	Bits       int
	Channels   int
}

// parseCodecFormat extracts sample format fields from a CODEC_HEADER
// payload. The Snapcast server embeds these at fixed byte offsets that
// differ per codec (an OpusHead-shaped blob for "opus", a standard 44-byte
// WAV/RIFF fmt chunk for "pcm"); these offsets are not documented in the
// base protocol and are reproduced here from the reference client.
func parseCodecFormat(codec string, b []byte) (codecFormat, error) {
	switch codec {
	case "opus":
		return parseOpusHeadFormat(b)
	case "pcm":
		return parseWAVFormat(b)
	default:
		return codecFormat{}, snaperr.New(snaperr.UnknownCodec, "parse_codec_format:"+codec, nil) //nolint:exhaustruct
	}
}

// parseOpusHeadFormat reads rate (u32 @4), bits (u16 @8), channels (u16 @10).
func parseOpusHeadFormat(b []byte) (codecFormat, error) {
	if len(b) < 12 {
		return codecFormat{}, snaperr.New(snaperr.MalformedFrame, "parse_opus_head:short_buffer", nil) //nolint:exhaustruct
	}

	rate := binary.LittleEndian.Uint32(b[4:8])
	bits := binary.LittleEndian.Uint16(b[8:10])
	channels := binary.LittleEndian.Uint16(b[10:12])

	return codecFormat{SampleRate: int(rate), Bits: int(bits), Channels: int(channels)}, nil
}

// parseWAVFormat reads channels (u16 @22), rate (u32 @24), bits (u16 @34)
// from a standard canonical WAV header, as the snapserver frames PCM
// CODEC_HEADER payloads.
func parseWAVFormat(b []byte) (codecFormat, error) {
	if len(b) < 36 {
		return codecFormat{}, snaperr.New(snaperr.MalformedFrame, "parse_wav_format:short_buffer", nil) //nolint:exhaustruct
	}

	channels := binary.LittleEndian.Uint16(b[22:24])
	rate := binary.LittleEndian.Uint32(b[24:28])
	bits := binary.LittleEndian.Uint16(b[34:36])

	return codecFormat{SampleRate: int(rate), Bits: int(bits), Channels: int(channels)}, nil
}
