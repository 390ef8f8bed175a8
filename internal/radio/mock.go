package radio

import "time"

// Mock is a scripted Radio for tests: queued frames are handed out one
// per Listen call, and every Send is recorded.
type Mock struct {
	Inbound  [][]byte
	Sent     [][]byte
	RSSI     int
	MaxFrame int
	SendErr  error
}

func NewMock(maxFrameSize int) *Mock {
	return &Mock{RSSI: -72, MaxFrame: maxFrameSize}
}

// Queue appends a frame to be returned by a later Listen call.
func (m *Mock) Queue(frame []byte) { m.Inbound = append(m.Inbound, frame) }

func (m *Mock) Listen(timeout time.Duration) ([]byte, error) {
	if len(m.Inbound) == 0 {
		return nil, nil
	}
	frame := m.Inbound[0]
	m.Inbound = m.Inbound[1:]
	return frame, nil
}

func (m *Mock) Send(frame []byte) error {
	if m.SendErr != nil {
		return m.SendErr
	}
	copied := make([]byte, len(frame))
	copy(copied, frame)
	m.Sent = append(m.Sent, copied)
	return nil
}

func (m *Mock) LastRSSI() int { return m.RSSI }

func (m *Mock) MaxFrameSize() int { return m.MaxFrame }
