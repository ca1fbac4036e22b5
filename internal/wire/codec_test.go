package wire

import (
	"testing"

	"github.com/doismellburning/samoyed/internal/snaperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func rapidTimestamp(t *rapid.T, label string) Timestamp {
	return Timestamp{
		Sec:  int32(rapid.Int32().Draw(t, label+".sec")),
		Usec: int32(rapid.IntRange(0, 999999).Draw(t, label+".usec")),
	}
}

func TestBaseHeaderRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		h := BaseHeader{
			Type:     MessageType(rapid.Uint16().Draw(t, "type")),
			ID:       rapid.Uint16().Draw(t, "id"),
			RefersTo: rapid.Uint16().Draw(t, "refersTo"),
			Sent:     rapidTimestamp(t, "sent"),
			Received: rapidTimestamp(t, "received"),
			Size:     rapid.Uint32().Draw(t, "size"),
		}

		buf := EncodeBaseHeader(h)
		require.Len(t, buf, BaseHeaderSize)

		got, err := DecodeBaseHeader(buf)
		require.NoError(t, err)
		assert.Equal(t, h, got)
	})
}

func TestDecodeBaseHeaderShortBuffer(t *testing.T) {
	_, err := DecodeBaseHeader(make([]byte, BaseHeaderSize-1))
	require.Error(t, err)
	assert.True(t, isMalformed(err))
}

func TestJSONPayloadRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		json := rapid.SliceOf(rapid.Byte()).Draw(t, "json")

		buf := EncodeJSONPayload(json)

		got, err := DecodeJSONPayload(buf)
		require.NoError(t, err)
		assert.Equal(t, json, got)
	})
}

func TestDecodeJSONPayloadLengthExceedsBuffer(t *testing.T) {
	buf := EncodeJSONPayload([]byte("hello"))
	buf = buf[:len(buf)-1] // truncate, so the length prefix now overruns

	_, err := DecodeJSONPayload(buf)
	require.Error(t, err)
	assert.True(t, isMalformed(err))
}

func TestCodecHeaderPayloadRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		p := CodecHeaderPayload{
			Codec: rapid.SampledFrom([]string{CodecPCM, CodecOpus}).Draw(t, "codec"),
			Bytes: rapid.SliceOf(rapid.Byte()).Draw(t, "bytes"),
		}

		buf := EncodeCodecHeaderPayload(p)

		got, err := DecodeCodecHeaderPayload(buf)
		require.NoError(t, err)
		assert.Equal(t, p, got)
	})
}

func TestDecodeCodecHeaderPayloadUnknownCodec(t *testing.T) {
	p := CodecHeaderPayload{Codec: "flac", Bytes: []byte{1, 2, 3}}
	buf := EncodeCodecHeaderPayload(p)

	_, err := DecodeCodecHeaderPayload(buf)
	require.Error(t, err)
	assert.True(t, snaperr.Is(err, snaperr.UnknownCodec))
}

func TestWireChunkPayloadRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		p := WireChunkPayload{
			Timestamp: rapidTimestamp(t, "ts"),
			Bytes:     rapid.SliceOf(rapid.Byte()).Draw(t, "bytes"),
		}

		buf := EncodeWireChunkPayload(p)

		got, err := DecodeWireChunkPayload(buf)
		require.NoError(t, err)
		assert.Equal(t, p, got)
	})
}

func TestDecodeWireChunkPayloadSizeExceedsBuffer(t *testing.T) {
	buf := EncodeWireChunkPayload(WireChunkPayload{Timestamp: Timestamp{}, Bytes: []byte{1, 2, 3}})
	buf = buf[:len(buf)-1]

	_, err := DecodeWireChunkPayload(buf)
	require.Error(t, err)
	assert.True(t, isMalformed(err))
}

func TestTimePayloadRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		p := TimePayload{Latency: rapidTimestamp(t, "latency")}

		buf := EncodeTimePayload(p)

		got, err := DecodeTimePayload(buf)
		require.NoError(t, err)
		assert.Equal(t, p, got)
	})
}

func TestTimestampMicrosRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		// Timestamp.Sec is an int32, so only microsecond counts whose whole
		// seconds fit in an int32 are representable.
		us := rapid.Int64Range(-2_147_483_648_000_000, 2_147_483_647_999_999).Draw(t, "us")

		ts := TimestampFromMicros(us)
		assert.Equal(t, us, ts.ToMicros())
	})
}

func isMalformed(err error) bool {
	return snaperr.Is(err, snaperr.MalformedFrame)
}
