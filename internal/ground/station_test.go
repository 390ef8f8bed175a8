package ground

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tinysat/uplink/internal/auth"
	"github.com/tinysat/uplink/internal/cdh"
	"github.com/tinysat/uplink/internal/config"
	"github.com/tinysat/uplink/internal/nvm"
)

const testSecret = "shared_secret_key"

// bench wires a Station directly to a flight-side Handler: Send on one
// side queues for Listen on the other, like a loopback radio bench.
type bench struct {
	toFlight [][]byte
	toGround [][]byte
	acks     int
}

type groundLink struct {
	b *bench
	// onListen, when set, runs before the receive queue is checked;
	// the bench uses it to run one flight pass in between.
	onListen func()
}

func (l *groundLink) Send(p []byte) error {
	l.b.toFlight = append(l.b.toFlight, p)
	return nil
}

func (l *groundLink) Listen(timeout time.Duration) ([]byte, error) {
	if l.onListen != nil {
		l.onListen()
	}
	if len(l.b.toGround) == 0 {
		return nil, nil
	}
	p := l.b.toGround[0]
	l.b.toGround = l.b.toGround[1:]
	return p, nil
}

type flightLink struct{ b *bench }

func (l *flightLink) Send(p []byte) error {
	l.b.toGround = append(l.b.toGround, p)
	return nil
}

func (l *flightLink) Listen(timeout time.Duration) ([]byte, error) {
	if len(l.b.toFlight) == 0 {
		return nil, nil
	}
	p := l.b.toFlight[0]
	l.b.toFlight = l.b.toFlight[1:]
	return p, nil
}

func (l *flightLink) SendAcknowledgement() error {
	l.b.acks++
	return nil
}

func (l *flightLink) LastRSSI() int { return -77 }

type nopActions struct{}

func (nopActions) Reset() error               { return nil }
func (nopActions) SetModulation(string) error { return nil }

func newBench(t *testing.T) (*Station, *cdh.Handler, *bench, *nvm.Counter16) {
	station, handler, b, counter, _ := newBenchLinks(t)
	return station, handler, b, counter
}

func newBenchLinks(t *testing.T) (*Station, *cdh.Handler, *bench, *nvm.Counter16, *groundLink) {
	t.Helper()
	b := &bench{}
	cfg := &config.Config{
		CubesatName: "Orbit1",
		HMACSecret:  testSecret,
		Jokes:       []string{"Orbital mechanics jokes never land."},
		Modulation:  "LoRa",
	}
	counter, err := nvm.NewCounter16(nvm.NewMemStore(2), 0)
	if err != nil {
		t.Fatalf("new counter: %v", err)
	}
	handler := cdh.NewHandler(zerolog.Nop(), cfg, &flightLink{b: b}, auth.New(testSecret), counter, nopActions{})
	gl := &groundLink{b: b}
	station := NewStation(zerolog.Nop(), gl, auth.New(testSecret), "Orbit1", 0)
	return station, handler, b, counter, gl
}

func TestSignedCommandAcceptedByFlightHandler(t *testing.T) {
	station, handler, b, counter := newBench(t)

	payload, err := station.BuildSigned(cdh.CommandSendJoke, nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	b.toFlight = append(b.toFlight, payload)

	out := handler.ListenForCommands(time.Second)
	if out.Kind != cdh.OutcomeDispatched || out.Command != cdh.CommandSendJoke {
		t.Fatalf("expected dispatch, got %+v", out)
	}
	if b.acks != 1 {
		t.Fatalf("expected one ack, got %d", b.acks)
	}
	floor, err := counter.Get()
	if err != nil || floor != station.Counter() {
		t.Fatalf("flight floor %d, station counter %d, err=%v", floor, station.Counter(), err)
	}
}

func TestConsecutiveSignedCommandsAdvanceCounter(t *testing.T) {
	station, handler, b, _ := newBench(t)

	for i := 0; i < 3; i++ {
		payload, err := station.BuildSigned(cdh.CommandSendJoke, nil)
		if err != nil {
			t.Fatalf("build %d: %v", i, err)
		}
		b.toFlight = append(b.toFlight, payload)
		out := handler.ListenForCommands(time.Second)
		if out.Kind != cdh.OutcomeDispatched {
			t.Fatalf("send %d not dispatched: %+v", i, out)
		}
	}
	if station.Counter() != 3 {
		t.Fatalf("station counter=%d want=3", station.Counter())
	}
}

func TestQueryCounterAdoptsFlightFloor(t *testing.T) {
	station, handler, _, counter, gl := newBenchLinks(t)
	if err := counter.Set(4242); err != nil {
		t.Fatalf("seed counter: %v", err)
	}
	gl.onListen = func() { handler.ListenForCommands(time.Second) }

	got, err := station.QueryCounter(time.Second)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if got != 4242 || station.Counter() != 4242 {
		t.Fatalf("adopted counter=%d station=%d", got, station.Counter())
	}
}

func TestLegacyCommandAcceptedByFlightHandler(t *testing.T) {
	station, handler, b, counter := newBench(t)
	if err := counter.Set(55); err != nil {
		t.Fatalf("seed counter: %v", err)
	}

	payload, err := station.BuildLegacy("Hello World!", "ping", nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	b.toFlight = append(b.toFlight, payload)

	out := handler.ListenForCommands(time.Second)
	if out.Kind != cdh.OutcomeDispatched || out.Command != "ping" {
		t.Fatalf("expected ping dispatch, got %+v", out)
	}
	floor, err := counter.Get()
	if err != nil || floor != 55 {
		t.Fatalf("legacy path moved the floor: %d err=%v", floor, err)
	}
}
