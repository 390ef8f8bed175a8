package packet

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tinysat/uplink/internal/observability"
	"github.com/tinysat/uplink/internal/radio"
)

// ackPayload is the raw acknowledgement body both ends expect.
var ackPayload = []byte("ACK")

// logEvery is the coarse progress interval for multi-frame sends.
const logEvery = 10

// Manager sends and receives whole payloads over a radio, fragmenting
// on the way out. There is no per-frame acknowledgement or retry;
// reliability, if any, belongs to the caller.
type Manager struct {
	radio      radio.Radio
	frameDelay time.Duration
}

// NewManager wires a fragmenting sender to a radio. frameDelay paces
// consecutive frames so a half-duplex receiver can drain its buffer.
func NewManager(r radio.Radio, frameDelay time.Duration) *Manager {
	return &Manager{radio: r, frameDelay: frameDelay}
}

// Send fragments payload and transmits the frames in order.
func (m *Manager) Send(payload []byte) error {
	frames, err := Fragment(payload, m.radio.MaxFrameSize())
	if err != nil {
		return err
	}
	log.Debug().Int("frames", len(frames)).Int("bytes", len(payload)).Msg("sending payload")

	for i, frame := range frames {
		if err := m.radio.Send(frame); err != nil {
			return err
		}
		observability.FrameSent(len(frame))
		if len(frames) > 1 {
			if (i+1)%logEvery == 0 {
				log.Debug().Int("sent", i+1).Int("total", len(frames)).Msg("send progress")
			}
			time.Sleep(m.frameDelay)
		}
	}
	return nil
}

// SendAcknowledgement transmits the raw ACK frame.
func (m *Manager) SendAcknowledgement() error {
	return m.Send(ackPayload)
}

// Listen waits up to timeout for one whole payload. Commands must fit
// a single frame; the sequencing header of that frame is stripped.
func (m *Manager) Listen(timeout time.Duration) ([]byte, error) {
	frame, err := m.radio.Listen(timeout)
	if err != nil || frame == nil {
		return nil, err
	}
	h, err := DecodeHeader(frame)
	if err != nil {
		return nil, err
	}
	if h.Total > 1 {
		log.Warn().Uint16("seq", h.Seq).Uint16("total", h.Total).
			Msg("fragmented inbound payload not supported, using first frame only")
	}
	return frame[HeaderLen:], nil
}

// LastRSSI reports the signal strength of the last received frame.
func (m *Manager) LastRSSI() int { return m.radio.LastRSSI() }
