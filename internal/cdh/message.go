package cdh

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

var (
	ErrNotUTF8     = errors.New("cdh: payload is not valid UTF-8")
	ErrBadMapping  = errors.New("cdh: payload is not a flat key/value mapping")
	ErrBadCounter  = errors.New("cdh: counter is not an integer in [0,65535]")
	ErrNoCanonical = errors.New("cdh: cannot canonicalize message")
)

// Message is one parsed uplink command. The raw fields are kept so the
// canonical signing form can be rebuilt from exactly what was sent.
type Message struct {
	Name     string
	Command  string
	Args     []string
	Password string

	HMAC       string
	HasHMAC    bool
	HasCounter bool

	counterRaw json.RawMessage
	fields     map[string]json.RawMessage
}

// ParseMessage decodes one wire payload: UTF-8 text carrying a flat
// JSON object. Fields of the wrong shape degrade to their zero value
// (`args` to empty) rather than failing the parse; only a payload that
// is not a mapping at all is an error.
func ParseMessage(payload []byte) (Message, error) {
	if !utf8.Valid(payload) {
		return Message{}, ErrNotUTF8
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrBadMapping, err)
	}

	msg := Message{fields: fields}
	msg.Name = stringField(fields, "name")
	msg.Command = stringField(fields, "command")
	msg.Password = stringField(fields, "password")

	if raw, ok := fields["args"]; ok {
		var args []string
		if err := json.Unmarshal(raw, &args); err == nil {
			msg.Args = args
		}
	}
	if _, ok := fields["hmac"]; ok {
		msg.HasHMAC = true
		msg.HMAC = stringField(fields, "hmac")
	}
	if raw, ok := fields["counter"]; ok {
		msg.HasCounter = true
		msg.counterRaw = raw
	}
	return msg, nil
}

// Counter coerces the counter field to a uint16. Senders may encode it
// as a JSON number or a decimal string; anything else, and anything
// outside [0,65535], is rejected.
func (m Message) Counter() (uint16, error) {
	if !m.HasCounter {
		return 0, ErrBadCounter
	}
	text := strings.TrimSpace(string(m.counterRaw))
	var s string
	if err := json.Unmarshal(m.counterRaw, &s); err == nil {
		text = strings.TrimSpace(s)
	}
	v, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadCounter, text)
	}
	if v < 0 || v > 65535 {
		return 0, fmt.Errorf("%w: %d", ErrBadCounter, v)
	}
	return uint16(v), nil
}

// Canonical rebuilds the signing form of the message: every field
// except "hmac", re-serialized with lexicographically sorted keys and
// no extraneous whitespace. Signer and verifier share this routine;
// incidental wire formatting never affects the digest.
func (m Message) Canonical() (string, error) {
	stripped := make(map[string]json.RawMessage, len(m.fields))
	for k, v := range m.fields {
		if k == "hmac" {
			continue
		}
		stripped[k] = v
	}
	out, err := json.Marshal(stripped)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoCanonical, err)
	}
	return string(out), nil
}

// CanonicalFields is the signing form for an outbound message under
// construction, shared with the flight-side verifier.
func CanonicalFields(fields map[string]any) (string, error) {
	out, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoCanonical, err)
	}
	return string(out), nil
}

func stringField(fields map[string]json.RawMessage, key string) string {
	raw, ok := fields[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}
