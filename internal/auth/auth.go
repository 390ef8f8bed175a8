// Package auth provides keyed-hash authentication for uplink commands.
//
// It intentionally avoids policy decisions; replay handling lives with
// the command handler that owns the counter.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// DigestHexLen is the length of a lowercase hex SHA-256 digest.
const DigestHexLen = 64

// counterSeparator joins the canonical message and the decimal counter
// before hashing. Both ends of the link must agree on it.
const counterSeparator = "|"

// Authenticator computes and verifies HMAC-SHA256 digests over a
// message/counter pair, keyed by a shared secret. The secret is held
// only in memory and never transmitted.
type Authenticator struct {
	secret []byte
}

func New(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

// Generate returns the lowercase hex HMAC-SHA256 of message|counter.
func (a *Authenticator) Generate(message string, counter uint16) string {
	mac := hmac.New(sha256.New, a.secret)
	mac.Write([]byte(message))
	mac.Write([]byte(counterSeparator))
	mac.Write([]byte(strconv.FormatUint(uint64(counter), 10)))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the digest and compares in constant time. A failed
// verification is an expected outcome on hostile input, so the result
// is a bool rather than an error.
func (a *Authenticator) Verify(message string, counter uint16, candidate string) bool {
	expected := a.Generate(message, counter)
	return hmac.Equal([]byte(expected), []byte(candidate))
}
