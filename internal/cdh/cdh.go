// Package cdh implements the uplink command authenticator and
// dispatcher: one blocking pass per received payload, dual
// authentication paths, and a power-cycle-durable replay floor.
package cdh

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tinysat/uplink/internal/auth"
	"github.com/tinysat/uplink/internal/config"
	"github.com/tinysat/uplink/internal/nvm"
	"github.com/tinysat/uplink/internal/observability"
)

// Command vocabulary.
const (
	CommandReset                 = "reset"
	CommandChangeRadioModulation = "change_radio_modulation"
	CommandSendJoke              = "send_joke"
	CommandGetCounter            = "get_counter"

	legacyCommandPing   = "ping"
	legacyCommandRepeat = "repeat"
)

// legacyPassword guards the recovery path. It bypasses replay
// protection entirely and exists for counter-desync recovery under
// direct operator supervision.
const legacyPassword = "Hello World!"

// replayHalfWindow: counters more than half the sequence space ahead
// are really behind, wrapped.
const replayHalfWindow = 32768

// Link is the packet-layer collaborator: one Listen yields one whole
// application payload.
type Link interface {
	Listen(timeout time.Duration) ([]byte, error)
	Send(payload []byte) error
	SendAcknowledgement() error
	LastRSSI() int
}

// Actions are the hardware side effects an authenticated command may
// trigger.
type Actions interface {
	Reset() error
	SetModulation(modulation string) error
}

// Handler authenticates and dispatches uplink commands. It exclusively
// owns the replay counter; nothing else may touch those NVM bytes.
type Handler struct {
	log     zerolog.Logger
	cfg     *config.Config
	link    Link
	auth    *auth.Authenticator
	counter *nvm.Counter16
	actions Actions

	sendDelay time.Duration

	// sleep is swappable so tests do not wait out turnaround delays.
	sleep func(time.Duration)
}

func NewHandler(
	log zerolog.Logger,
	cfg *config.Config,
	link Link,
	authenticator *auth.Authenticator,
	counter *nvm.Counter16,
	actions Actions,
) *Handler {
	return &Handler{
		log:       log,
		cfg:       cfg,
		link:      link,
		auth:      authenticator,
		counter:   counter,
		actions:   actions,
		sendDelay: cfg.SendDelay.Std(),
		sleep:     time.Sleep,
	}
}

// ListenForCommands runs one protocol pass: wait up to timeout for a
// payload, authenticate it, and dispatch. The returned Outcome is the
// pass's terminal state; all transmission decisions have already been
// made from it.
func (h *Handler) ListenForCommands(timeout time.Duration) Outcome {
	h.log.Debug().Dur("timeout", timeout).Msg("listening for commands")

	payload, err := h.link.Listen(timeout)
	if err != nil {
		h.log.Error().Err(err).Msg("radio listen failed")
		return h.finish(none())
	}
	if payload == nil {
		return h.finish(none())
	}

	msg, err := ParseMessage(payload)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to parse command message")
		return h.finish(h.sendDiagnostic(fmt.Sprintf("Failed to process command message: %v", err)))
	}

	// Legacy recovery path: fixed passphrase, legacy vocabulary, no
	// replay protection. Counter and hmac fields are ignored here.
	if msg.Password == legacyPassword {
		return h.finish(h.handleLegacy(msg))
	}

	// Counter query: the one unauthenticated read, so a ground station
	// can discover the replay floor and start a session.
	if msg.Command == CommandGetCounter {
		return h.finish(h.handleGetCounter())
	}

	return h.finish(h.handleAuthenticated(msg))
}

func (h *Handler) finish(o Outcome) Outcome {
	observability.PassOutcome(o.Kind.String())
	if o.Kind == OutcomeDropped {
		observability.Dropped(string(o.Reason))
	}
	return o
}

// handleAuthenticated is the HMAC path: require both proofs, verify
// over the canonical form, enforce the replay window, persist, then
// check addressing and dispatch. Every rejection before dispatch is a
// silent drop so the link never acts as a verification oracle.
func (h *Handler) handleAuthenticated(msg Message) Outcome {
	if !msg.HasHMAC || !msg.HasCounter {
		h.log.Debug().Str("command", msg.Command).Msg("message missing hmac or counter")
		return dropped(DropMissingAuth)
	}

	counter, err := msg.Counter()
	if err != nil {
		h.log.Debug().Err(err).Msg("invalid counter in message")
		return dropped(DropBadCounter)
	}

	canonical, err := msg.Canonical()
	if err != nil {
		h.log.Error().Err(err).Msg("failed to canonicalize message")
		return h.sendDiagnostic(fmt.Sprintf("Failed to process command message: %v", err))
	}
	if !h.auth.Verify(canonical, counter, msg.HMAC) {
		h.log.Debug().Str("command", msg.Command).Msg("invalid hmac in message")
		return dropped(DropBadHMAC)
	}

	last, err := h.counter.Get()
	if err != nil {
		h.log.Error().Err(err).Msg("failed to read replay counter")
		return h.sendDiagnostic(fmt.Sprintf("Failed to process command message: %v", err))
	}
	diff := counter - last // wraps mod 65536
	if diff == 0 || diff > replayHalfWindow {
		h.log.Debug().
			Uint16("counter", counter).
			Uint16("last_valid", last).
			Uint16("diff", diff).
			Msg("replay detected, counter not ahead of floor")
		return dropped(DropReplay)
	}

	// Persist before any side effect: a crash-and-retry by the sender
	// must find this counter already burned.
	if err := h.counter.Set(counter); err != nil {
		h.log.Error().Err(err).Msg("failed to persist replay counter")
		return h.sendDiagnostic(fmt.Sprintf("Failed to process command message: %v", err))
	}

	// Addressing comes after authentication; only a secret holder can
	// probe for the configured name.
	if msg.Name != h.cfg.CubesatName {
		h.log.Debug().Str("name", msg.Name).Msg("satellite name mismatch in message")
		return dropped(DropNameMismatch)
	}

	h.log.Debug().Str("command", msg.Command).Strs("args", msg.Args).Msg("received command message")

	// Half-duplex turnaround: the sender needs time to flip back to
	// receive before the acknowledgement goes out.
	h.sleep(h.sendDelay)
	if err := h.link.SendAcknowledgement(); err != nil {
		h.log.Error().Err(err).Msg("failed to send acknowledgement")
	}

	return h.dispatch(msg)
}

func (h *Handler) dispatch(msg Message) Outcome {
	var err error
	switch msg.Command {
	case CommandReset:
		err = h.reset()
	case CommandChangeRadioModulation:
		return h.changeRadioModulation(msg.Args)
	case CommandSendJoke:
		err = h.sendJoke()
	default:
		h.log.Warn().Str("command", msg.Command).Msg("unknown command received")
		return h.sendDiagnostic(fmt.Sprintf("Unknown command received: %s", msg.Command))
	}
	if err != nil {
		h.log.Error().Err(err).Str("command", msg.Command).Msg("command handler failed")
		return h.sendDiagnostic(fmt.Sprintf("Failed to process command message: %v", err))
	}
	observability.CommandDispatched(msg.Command)
	return dispatched(msg.Command)
}

// handleLegacy acknowledges, waits out the turnaround, and runs the
// legacy vocabulary. The replay counter is never consulted or mutated.
func (h *Handler) handleLegacy(msg Message) Outcome {
	h.log.Debug().Str("command", msg.Command).Msg("legacy command received")

	if msg.Command == "" {
		h.log.Warn().Msg("no legacy command found in message")
		return h.sendDiagnostic("No legacy command found in message")
	}

	if err := h.link.SendAcknowledgement(); err != nil {
		h.log.Error().Err(err).Msg("failed to send acknowledgement")
	}
	h.sleep(h.sendDelay)

	switch msg.Command {
	case legacyCommandPing:
		h.log.Info().Msg("legacy ping received, sending pong")
		if err := h.link.Send([]byte(fmt.Sprintf("Pong! %d", h.link.LastRSSI()))); err != nil {
			h.log.Error().Err(err).Msg("failed to send pong")
		}
	case legacyCommandRepeat:
		if len(msg.Args) < 1 {
			h.log.Warn().Msg("no message specified for repeat command")
			return h.sendDiagnostic("No message specified for repeat command")
		}
		h.log.Info().Msg("legacy repeat received, repeating message")
		if err := h.link.Send([]byte(strings.Join(msg.Args, " "))); err != nil {
			h.log.Error().Err(err).Msg("failed to send repeat")
		}
	default:
		h.log.Warn().Str("command", msg.Command).Msg("unknown legacy command received")
		return h.sendDiagnostic(fmt.Sprintf("Unknown legacy command received: %s", msg.Command))
	}

	observability.CommandDispatched(msg.Command)
	return dispatched(msg.Command)
}

// handleGetCounter answers with the persisted counter as decimal text,
// immediately and read-only.
func (h *Handler) handleGetCounter() Outcome {
	last, err := h.counter.Get()
	if err != nil {
		h.log.Error().Err(err).Msg("failed to read replay counter")
		return h.sendDiagnostic(fmt.Sprintf("Failed to process command message: %v", err))
	}
	h.log.Info().Uint16("counter", last).Msg("counter query received")
	if err := h.link.Send([]byte(strconv.FormatUint(uint64(last), 10))); err != nil {
		h.log.Error().Err(err).Msg("failed to send counter value")
	}
	observability.CommandDispatched(CommandGetCounter)
	return dispatched(CommandGetCounter)
}

func (h *Handler) reset() error {
	h.log.Info().Msg("resetting satellite")
	if err := h.link.Send([]byte("Resetting satellite")); err != nil {
		h.log.Error().Err(err).Msg("failed to send reset notice")
	}
	return h.actions.Reset()
}

func (h *Handler) changeRadioModulation(args []string) Outcome {
	if len(args) < 1 {
		h.log.Warn().Msg("no modulation specified")
		return h.sendDiagnostic("No modulation specified. Please provide a modulation type.")
	}
	modulation := args[0]

	if err := h.cfg.UpdateModulation(modulation); err != nil {
		h.log.Error().Err(err).Msg("failed to change radio modulation")
		return h.sendDiagnostic(fmt.Sprintf("Failed to change radio modulation: %v", err))
	}
	if err := h.actions.SetModulation(modulation); err != nil {
		h.log.Error().Err(err).Msg("radio rejected modulation change")
		return h.sendDiagnostic(fmt.Sprintf("Failed to change radio modulation: %v", err))
	}

	h.log.Info().Str("modulation", modulation).Msg("radio modulation changed")
	if err := h.link.Send([]byte(fmt.Sprintf("Radio modulation changed: %s", modulation))); err != nil {
		h.log.Error().Err(err).Msg("failed to send modulation response")
	}
	observability.CommandDispatched(CommandChangeRadioModulation)
	return dispatched(CommandChangeRadioModulation)
}

func (h *Handler) sendJoke() error {
	if len(h.cfg.Jokes) == 0 {
		return fmt.Errorf("cdh: no jokes configured")
	}
	joke := h.cfg.Jokes[rand.Intn(len(h.cfg.Jokes))]
	h.log.Info().Str("joke", joke).Msg("sending joke")
	return h.link.Send([]byte(joke))
}

// sendDiagnostic transmits a best-effort diagnostic frame. Send
// failures are logged and swallowed; the pass is already terminal.
func (h *Handler) sendDiagnostic(text string) Outcome {
	if err := h.link.Send([]byte(text)); err != nil {
		h.log.Error().Err(err).Msg("failed to send diagnostic frame")
	}
	return diagnostic(text)
}
