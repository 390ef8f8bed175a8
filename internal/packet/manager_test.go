package packet

import (
	"bytes"
	"testing"
	"time"

	"github.com/tinysat/uplink/internal/radio"
)

func TestManagerSendFragmentsInOrder(t *testing.T) {
	mock := radio.NewMock(16)
	m := NewManager(mock, 0)

	payload := bytes.Repeat([]byte{0xCD}, 30)
	if err := m.Send(payload); err != nil {
		t.Fatalf("send: %v", err)
	}

	chunk := 16 - HeaderLen
	wantFrames := (len(payload) + chunk - 1) / chunk
	if len(mock.Sent) != wantFrames {
		t.Fatalf("expected %d frames sent, got %d", wantFrames, len(mock.Sent))
	}
	for i, frame := range mock.Sent {
		h, err := DecodeHeader(frame)
		if err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		if h.Seq != uint16(i) {
			t.Fatalf("frame %d out of order: seq=%d", i, h.Seq)
		}
	}
}

func TestManagerSendAcknowledgement(t *testing.T) {
	mock := radio.NewMock(64)
	m := NewManager(mock, 0)

	if err := m.SendAcknowledgement(); err != nil {
		t.Fatalf("ack: %v", err)
	}
	if len(mock.Sent) != 1 {
		t.Fatalf("expected one frame, got %d", len(mock.Sent))
	}
	p, err := Payload(mock.Sent[0])
	if err != nil {
		t.Fatalf("payload: %v", err)
	}
	if string(p) != "ACK" {
		t.Fatalf("expected ACK payload, got %q", p)
	}
}

func TestManagerListenStripsHeader(t *testing.T) {
	mock := radio.NewMock(64)
	frames, err := Fragment([]byte(`{"command":"ping"}`), 64)
	if err != nil {
		t.Fatalf("fragment: %v", err)
	}
	mock.Queue(frames[0])

	m := NewManager(mock, 0)
	payload, err := m.Listen(time.Second)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	if string(payload) != `{"command":"ping"}` {
		t.Fatalf("payload mismatch: %q", payload)
	}
}

func TestManagerListenTimeoutIsSilent(t *testing.T) {
	m := NewManager(radio.NewMock(64), 0)
	payload, err := m.Listen(time.Millisecond)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	if payload != nil {
		t.Fatalf("expected nil payload on timeout, got %q", payload)
	}
}
