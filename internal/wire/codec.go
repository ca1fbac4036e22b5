package wire

import "encoding/binary"

// EncodeBaseHeader serializes a BaseHeader into its fixed BaseHeaderSize-byte
// wire form.
func EncodeBaseHeader(h BaseHeader) []byte {
	buf := make([]byte, BaseHeaderSize)

	binary.LittleEndian.PutUint16(buf[0:2], uint16(h.Type))
	binary.LittleEndian.PutUint16(buf[2:4], h.ID)
	binary.LittleEndian.PutUint16(buf[4:6], h.RefersTo)
	binary.LittleEndian.PutUint32(buf[6:10], uint32(h.Sent.Sec))
	binary.LittleEndian.PutUint32(buf[10:14], uint32(h.Sent.Usec))
	binary.LittleEndian.PutUint32(buf[14:18], uint32(h.Received.Sec))
	binary.LittleEndian.PutUint32(buf[18:22], uint32(h.Received.Usec))
	binary.LittleEndian.PutUint32(buf[22:26], h.Size)

	return buf
}

// DecodeBaseHeader parses a BaseHeaderSize-byte buffer into a BaseHeader.
// buf must be exactly BaseHeaderSize bytes, as the protocol client always
// reads exactly that many bytes before decoding.
func DecodeBaseHeader(buf []byte) (BaseHeader, error) {
	if len(buf) != BaseHeaderSize {
		return BaseHeader{}, malformed("decode_base_header:short_buffer")
	}

	return BaseHeader{
		Type:     MessageType(binary.LittleEndian.Uint16(buf[0:2])),
		ID:       binary.LittleEndian.Uint16(buf[2:4]),
		RefersTo: binary.LittleEndian.Uint16(buf[4:6]),
		Sent: Timestamp{
			Sec:  int32(binary.LittleEndian.Uint32(buf[6:10])),
			Usec: int32(binary.LittleEndian.Uint32(buf[10:14])),
		},
		Received: Timestamp{
			Sec:  int32(binary.LittleEndian.Uint32(buf[14:18])),
			Usec: int32(binary.LittleEndian.Uint32(buf[18:22])),
		},
		Size: binary.LittleEndian.Uint32(buf[22:26]),
	}, nil
}

// encodeLengthPrefixed prepends a u32 length to b.
func encodeLengthPrefixed(b []byte) []byte {
	out := make([]byte, 4+len(b))
	binary.LittleEndian.PutUint32(out[0:4], uint32(len(b)))
	copy(out[4:], b)

	return out
}

// decodeLengthPrefixed reads a u32-length-prefixed byte string starting at
// buf[0], returning the string bytes and the number of bytes consumed from
// buf (4 + length). MalformedFrame if the length field exceeds what remains.
func decodeLengthPrefixed(buf []byte) ([]byte, int, error) {
	if len(buf) < 4 {
		return nil, 0, malformed("decode_length_prefixed:short_length_field")
	}

	n := binary.LittleEndian.Uint32(buf[0:4])
	if uint64(n) > uint64(len(buf)-4) {
		return nil, 0, malformed("decode_length_prefixed:length_exceeds_buffer")
	}

	return buf[4 : 4+n], 4 + int(n), nil
}

// EncodeJSONPayload wraps raw JSON bytes in the length-prefix framing shared
// by HELLO and SERVER_SETTINGS.
func EncodeJSONPayload(json []byte) []byte {
	return encodeLengthPrefixed(json)
}

// DecodeJSONPayload unwraps the length-prefix framing shared by HELLO and
// SERVER_SETTINGS, returning the inner JSON bytes.
func DecodeJSONPayload(buf []byte) ([]byte, error) {
	body, consumed, err := decodeLengthPrefixed(buf)
	if err != nil {
		return nil, err
	}

	if consumed != len(buf) {
		return nil, malformed("decode_json_payload:trailing_bytes")
	}

	// Copy so the returned slice doesn't alias the caller's buffer.
	out := make([]byte, len(body))
	copy(out, body)

	return out, nil
}

// EncodeCodecHeaderPayload serializes a CodecHeaderPayload per spec.md §4.A:
// {codec: length-prefixed string; size: u32; bytes[size]}.
func EncodeCodecHeaderPayload(p CodecHeaderPayload) []byte {
	codecField := encodeLengthPrefixed([]byte(p.Codec))

	out := make([]byte, 0, len(codecField)+4+len(p.Bytes))
	out = append(out, codecField...)

	sizeField := make([]byte, 4)
	binary.LittleEndian.PutUint32(sizeField, uint32(len(p.Bytes)))
	out = append(out, sizeField...)
	out = append(out, p.Bytes...)

	return out
}

// DecodeCodecHeaderPayload parses a CODEC_HEADER payload. Returns
// UnknownCodec if the codec string is not one this client supports.
func DecodeCodecHeaderPayload(buf []byte) (CodecHeaderPayload, error) {
	codecBytes, consumed, err := decodeLengthPrefixed(buf)
	if err != nil {
		return CodecHeaderPayload{}, err
	}

	codec := string(codecBytes)
	if codec != CodecPCM && codec != CodecOpus {
		return CodecHeaderPayload{}, unknownCodec(codec)
	}

	rest := buf[consumed:]
	if len(rest) < 4 {
		return CodecHeaderPayload{}, malformed("decode_codec_header:short_size_field")
	}

	size := binary.LittleEndian.Uint32(rest[0:4])
	if uint64(size) > uint64(len(rest)-4) {
		return CodecHeaderPayload{}, malformed("decode_codec_header:size_exceeds_buffer")
	}

	payloadBytes := make([]byte, size)
	copy(payloadBytes, rest[4:4+size])

	return CodecHeaderPayload{Codec: codec, Bytes: payloadBytes}, nil
}

// EncodeWireChunkPayload serializes a WireChunkPayload per spec.md §4.A:
// {timestamp: Timestamp; size: u32; bytes[size]}.
func EncodeWireChunkPayload(p WireChunkPayload) []byte {
	out := make([]byte, 8+4+len(p.Bytes))

	binary.LittleEndian.PutUint32(out[0:4], uint32(p.Timestamp.Sec))
	binary.LittleEndian.PutUint32(out[4:8], uint32(p.Timestamp.Usec))
	binary.LittleEndian.PutUint32(out[8:12], uint32(len(p.Bytes)))
	copy(out[12:], p.Bytes)

	return out
}

// DecodeWireChunkPayload parses a WIRE_CHUNK payload.
func DecodeWireChunkPayload(buf []byte) (WireChunkPayload, error) {
	if len(buf) < 12 {
		return WireChunkPayload{}, malformed("decode_wire_chunk:short_buffer")
	}

	ts := Timestamp{
		Sec:  int32(binary.LittleEndian.Uint32(buf[0:4])),
		Usec: int32(binary.LittleEndian.Uint32(buf[4:8])),
	}

	size := binary.LittleEndian.Uint32(buf[8:12])
	if uint64(size) > uint64(len(buf)-12) {
		return WireChunkPayload{}, malformed("decode_wire_chunk:size_exceeds_buffer")
	}

	payloadBytes := make([]byte, size)
	copy(payloadBytes, buf[12:12+size])

	return WireChunkPayload{Timestamp: ts, Bytes: payloadBytes}, nil
}

// EncodeTimePayload serializes a TimePayload: a single Timestamp.
func EncodeTimePayload(p TimePayload) []byte {
	out := make([]byte, 8)
	binary.LittleEndian.PutUint32(out[0:4], uint32(p.Latency.Sec))
	binary.LittleEndian.PutUint32(out[4:8], uint32(p.Latency.Usec))

	return out
}

// DecodeTimePayload parses a TIME payload.
func DecodeTimePayload(buf []byte) (TimePayload, error) {
	if len(buf) != 8 {
		return TimePayload{}, malformed("decode_time:wrong_length")
	}

	return TimePayload{Latency: Timestamp{
		Sec:  int32(binary.LittleEndian.Uint32(buf[0:4])),
		Usec: int32(binary.LittleEndian.Uint32(buf[4:8])),
	}}, nil
}
