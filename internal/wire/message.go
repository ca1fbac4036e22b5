// Package wire implements the Snapcast v2 TCP wire protocol: the fixed-size
// base message header and the five supported payload encodings (HELLO,
// SERVER_SETTINGS, WIRE_CHUNK, CODEC_HEADER, TIME).
package wire

import "github.com/doismellburning/samoyed/internal/snaperr"

// MessageType identifies the kind of a Snapcast frame, per spec.md §4.A.
type MessageType uint16

const (
	TypeHello          MessageType = 1
	TypeServerSettings MessageType = 2
	TypeWireChunk      MessageType = 3
	TypeCodecHeader    MessageType = 4
	TypeTime           MessageType = 5
)

func (t MessageType) String() string {
	switch t {
	case TypeHello:
		return "HELLO"
	case TypeServerSettings:
		return "SERVER_SETTINGS"
	case TypeWireChunk:
		return "WIRE_CHUNK"
	case TypeCodecHeader:
		return "CODEC_HEADER"
	case TypeTime:
		return "TIME"
	default:
		return "UNKNOWN"
	}
}

// Timestamp is a (seconds, microseconds) pair in server time, per spec.md §3.
type Timestamp struct {
	Sec  int32
	Usec int32
}

// ToMicros flattens a Timestamp to a single signed microsecond count.
func (t Timestamp) ToMicros() int64 {
	return int64(t.Sec)*1_000_000 + int64(t.Usec)
}

// TimestampFromMicros reconstructs a Timestamp from a flattened microsecond
// count.
func TimestampFromMicros(us int64) Timestamp {
	sec := us / 1_000_000
	usec := us % 1_000_000
	if usec < 0 {
		usec += 1_000_000
		sec--
	}

	return Timestamp{Sec: int32(sec), Usec: int32(usec)}
}

// BaseHeaderSize is the on-wire size of BaseHeader: three u16 fields, two
// Timestamps (8 bytes each), one u32.
const BaseHeaderSize = 2 + 2 + 2 + 8 + 8 + 4

// BaseHeader is the fixed-size frame header preceding every Snapcast message
// payload, per spec.md §4.A. All integer fields are little-endian.
type BaseHeader struct {
	Type     MessageType
	ID       uint16
	RefersTo uint16
	Sent     Timestamp
	Received Timestamp
	Size     uint32
}

// Known codec strings for CODEC_HEADER, per spec.md §3's
// codec∈{NONE, PCM, OPUS}.
const (
	CodecPCM  = "pcm"
	CodecOpus = "opus"
)

// CodecHeaderPayload is the decoded CODEC_HEADER payload, per spec.md §4.A.
type CodecHeaderPayload struct {
	Codec string
	Bytes []byte
}

// WireChunkPayload is the decoded WIRE_CHUNK payload, per spec.md §4.A.
type WireChunkPayload struct {
	Timestamp Timestamp
	Bytes     []byte
}

// TimePayload is the decoded TIME payload, per spec.md §4.A: a single
// latency Timestamp.
type TimePayload struct {
	Latency Timestamp
}

// Known reports whether t is one of the five supported message types.
func (t MessageType) Known() bool {
	switch t {
	case TypeHello, TypeServerSettings, TypeWireChunk, TypeCodecHeader, TypeTime:
		return true
	default:
		return false
	}
}

// ErrUnsupportedType builds the UnsupportedMessageType error for a base
// header carrying an unrecognized Type.
func ErrUnsupportedType(t MessageType) error {
	return snaperr.New(snaperr.UnsupportedMessageType, "dispatch:"+t.String(), nil)
}

func malformed(op string) error {
	return snaperr.New(snaperr.MalformedFrame, op, nil)
}

func unknownCodec(codec string) error {
	return snaperr.New(snaperr.UnknownCodec, "decode_codec_header:"+codec, nil)
}
