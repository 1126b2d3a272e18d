package transport

import (
	"encoding/binary"
	"fmt"
)

// HeaderSize is the fixed 16-byte header every frame is prefixed with:
// four little-endian uint32 words (magic, payload length, two reserved),
// matching the uint32_t header[4] built in socket_send_msg/socket_recv_msg.
const HeaderSize = 16

// Magic is the frame header's first word, matching the 0xdeadbeef constant
// socket_recv_msg checks before trusting the rest of the header.
const Magic uint32 = 0xDEADBEEF

// EncodeHeader renders the 16-byte frame header for a payload of length
// bytes.
func EncodeHeader(length uint32) [HeaderSize]byte {
	var h [HeaderSize]byte
	binary.LittleEndian.PutUint32(h[0:4], Magic)
	binary.LittleEndian.PutUint32(h[4:8], length)
	return h
}

// DecodeHeader parses a 16-byte frame header, validating the magic the
// way socket_recv_msg does ("if (header[0] != 0xdeadbeef) return (-1);").
func DecodeHeader(h []byte) (length uint32, err error) {
	if len(h) != HeaderSize {
		return 0, fmt.Errorf("transport: frame header must be %d bytes, got %d", HeaderSize, len(h))
	}
	magic := binary.LittleEndian.Uint32(h[0:4])
	if magic != Magic {
		return 0, fmt.Errorf("transport: bad frame magic %#x", magic)
	}
	return binary.LittleEndian.Uint32(h[4:8]), nil
}
