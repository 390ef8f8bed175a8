package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	commandPasses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "uplink",
			Subsystem: "cdh",
			Name:      "passes_total",
			Help:      "Command listen passes by terminal outcome.",
		},
		[]string{"outcome"},
	)
	commandDrops = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "uplink",
			Subsystem: "cdh",
			Name:      "drops_total",
			Help:      "Silently dropped messages by reason.",
		},
		[]string{"reason"},
	)
	commandsDispatched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "uplink",
			Subsystem: "cdh",
			Name:      "commands_dispatched_total",
			Help:      "Authenticated commands routed to a handler.",
		},
		[]string{"command"},
	)
	framesSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "uplink",
			Subsystem: "radio",
			Name:      "frames_sent_total",
			Help:      "Frames handed to the radio for transmission.",
		},
	)
	bytesSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "uplink",
			Subsystem: "radio",
			Name:      "bytes_sent_total",
			Help:      "Frame bytes handed to the radio, headers included.",
		},
	)
)

func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			commandPasses,
			commandDrops,
			commandsDispatched,
			framesSent,
			bytesSent,
		)
	})
}

func PassOutcome(outcome string) {
	commandPasses.WithLabelValues(outcome).Inc()
}

func Dropped(reason string) {
	commandDrops.WithLabelValues(reason).Inc()
}

func CommandDispatched(command string) {
	commandsDispatched.WithLabelValues(command).Inc()
}

func FrameSent(n int) {
	framesSent.Inc()
	bytesSent.Add(float64(n))
}
