// Package ground builds, signs, and sends uplink commands from the
// ground-station side of the link.
package ground

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tinysat/uplink/internal/auth"
	"github.com/tinysat/uplink/internal/cdh"
)

// Link mirrors the flight-side packet collaborator.
type Link interface {
	Listen(timeout time.Duration) ([]byte, error)
	Send(payload []byte) error
}

// Station signs commands with the shared secret and a session counter.
// The counter starts from the value the satellite reports via
// get_counter; every signed send advances it, so each digest is
// accepted at most once.
type Station struct {
	log     zerolog.Logger
	link    Link
	auth    *auth.Authenticator
	name    string
	counter uint16
}

func NewStation(log zerolog.Logger, link Link, authenticator *auth.Authenticator, cubesatName string, startingCounter uint16) *Station {
	return &Station{
		log:     log,
		link:    link,
		auth:    authenticator,
		name:    cubesatName,
		counter: startingCounter,
	}
}

// Counter reports the last counter value used for a signed send.
func (s *Station) Counter() uint16 { return s.counter }

// BuildSigned assembles a command message, advances the session
// counter, and injects the HMAC over the canonical form.
func (s *Station) BuildSigned(command string, args []string) ([]byte, error) {
	s.counter++

	fields := map[string]any{
		"name":    s.name,
		"command": command,
		"counter": s.counter,
	}
	if len(args) > 0 {
		fields["args"] = args
	}

	canonical, err := cdh.CanonicalFields(fields)
	if err != nil {
		return nil, err
	}
	fields["hmac"] = s.auth.Generate(canonical, s.counter)

	payload, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("ground: marshal command: %w", err)
	}
	return payload, nil
}

// BuildLegacy assembles a password-authenticated recovery command.
// No counter, no digest; only for supervised recovery sessions.
func (s *Station) BuildLegacy(password, command string, args []string) ([]byte, error) {
	fields := map[string]any{
		"password": password,
		"command":  command,
	}
	if len(args) > 0 {
		fields["args"] = args
	}
	payload, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("ground: marshal legacy command: %w", err)
	}
	return payload, nil
}

// SendCommand signs and transmits one command, then waits up to
// timeout for the satellite's answer. The acknowledgement frame that
// precedes a response is consumed here; the caller sees the response
// or diagnostic itself.
func (s *Station) SendCommand(command string, args []string, timeout time.Duration) ([]byte, error) {
	payload, err := s.BuildSigned(command, args)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("command", command).Uint16("counter", s.counter).Msg("sending command")
	if err := s.link.Send(payload); err != nil {
		return nil, err
	}
	resp, err := s.link.Listen(timeout)
	if err != nil {
		return nil, err
	}
	if string(resp) == "ACK" {
		s.log.Debug().Msg("command acknowledged")
		return s.link.Listen(timeout)
	}
	return resp, nil
}

// QueryCounter asks the satellite for its replay floor and adopts it
// as this session's starting counter.
func (s *Station) QueryCounter(timeout time.Duration) (uint16, error) {
	payload, err := json.Marshal(map[string]any{"command": cdh.CommandGetCounter})
	if err != nil {
		return 0, fmt.Errorf("ground: marshal counter query: %w", err)
	}
	if err := s.link.Send(payload); err != nil {
		return 0, err
	}
	resp, err := s.link.Listen(timeout)
	if err != nil {
		return 0, err
	}
	if resp == nil {
		return 0, fmt.Errorf("ground: no counter response before timeout")
	}
	var v uint16
	if _, err := fmt.Sscanf(string(resp), "%d", &v); err != nil {
		return 0, fmt.Errorf("ground: bad counter response %q: %w", resp, err)
	}
	s.counter = v
	return v, nil
}
