// Package packet fragments outbound payloads into sequence-numbered
// radio frames and paces their transmission over the half-duplex link.
//
// Inbound reassembly is deliberately absent: the uplink protocol
// requires every command to fit one frame, so Listen hands up exactly
// what the radio delivered.
package packet

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// HeaderLen is the fixed frame header: 2-byte sequence number followed
// by 2-byte total-frame count, both big-endian.
const HeaderLen = 4

var (
	ErrFrameSizeTooSmall = errors.New("packet: max frame size leaves no payload room")
	ErrPayloadTooLarge   = errors.New("packet: payload needs more than 65535 frames")
	ErrShortFrame        = errors.New("packet: frame shorter than header")
)

// Header is the per-frame sequencing header.
type Header struct {
	Seq   uint16
	Total uint16
}

func EncodeHeader(h Header) []byte {
	buf := make([]byte, HeaderLen)
	binary.BigEndian.PutUint16(buf[0:2], h.Seq)
	binary.BigEndian.PutUint16(buf[2:4], h.Total)
	return buf
}

func DecodeHeader(b []byte) (Header, error) {
	if len(b) < HeaderLen {
		return Header{}, fmt.Errorf("%w: %d bytes", ErrShortFrame, len(b))
	}
	return Header{
		Seq:   binary.BigEndian.Uint16(b[0:2]),
		Total: binary.BigEndian.Uint16(b[2:4]),
	}, nil
}

// Fragment splits payload into frames of at most maxFrameSize bytes,
// each prefixed with its (seq, total) header. The frame count is
// ceil(len(payload) / (maxFrameSize - HeaderLen)); the last frame may
// be shorter. An empty payload yields no frames.
func Fragment(payload []byte, maxFrameSize int) ([][]byte, error) {
	if maxFrameSize <= HeaderLen {
		return nil, fmt.Errorf("%w: max=%d", ErrFrameSizeTooSmall, maxFrameSize)
	}
	chunk := maxFrameSize - HeaderLen
	total := (len(payload) + chunk - 1) / chunk
	if total > 65535 {
		return nil, fmt.Errorf("%w: %d", ErrPayloadTooLarge, total)
	}

	frames := make([][]byte, 0, total)
	for seq := 0; seq < total; seq++ {
		start := seq * chunk
		end := start + chunk
		if end > len(payload) {
			end = len(payload)
		}
		frame := make([]byte, 0, HeaderLen+end-start)
		frame = append(frame, EncodeHeader(Header{Seq: uint16(seq), Total: uint16(total)})...)
		frame = append(frame, payload[start:end]...)
		frames = append(frames, frame)
	}
	return frames, nil
}

// Payload returns the payload slice of one frame.
func Payload(frame []byte) ([]byte, error) {
	if len(frame) < HeaderLen {
		return nil, fmt.Errorf("%w: %d bytes", ErrShortFrame, len(frame))
	}
	return frame[HeaderLen:], nil
}
