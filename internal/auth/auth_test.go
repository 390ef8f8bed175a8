package auth

import (
	"strings"
	"testing"
)

func TestGenerateVerifyRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		secret  string
		message string
		counter uint16
	}{
		{name: "simple message", secret: "shared_secret_key", message: `{"command":"send_joke","name":"Orbit1"}`, counter: 42},
		{name: "empty message", secret: "shared_secret_key", message: "", counter: 0},
		{name: "max counter", secret: "another-secret", message: `{"command":"reset"}`, counter: 65535},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a := New(tc.secret)
			digest := a.Generate(tc.message, tc.counter)
			if len(digest) != DigestHexLen {
				t.Fatalf("expected %d hex chars, got %d", DigestHexLen, len(digest))
			}
			if digest != strings.ToLower(digest) {
				t.Fatalf("digest not lowercase: %q", digest)
			}
			if !a.Verify(tc.message, tc.counter, digest) {
				t.Fatalf("expected own digest to verify")
			}
		})
	}
}

func TestVerifyRejectsFlippedDigestBits(t *testing.T) {
	a := New("shared_secret_key")
	message := `{"command":"send_joke","counter":2,"name":"Orbit1"}`
	digest := a.Generate(message, 2)

	for i := 0; i < len(digest); i++ {
		mutated := []byte(digest)
		if mutated[i] == 'a' {
			mutated[i] = 'b'
		} else {
			mutated[i] = 'a'
		}
		if string(mutated) == digest {
			continue
		}
		if a.Verify(message, 2, string(mutated)) {
			t.Fatalf("digest mutated at %d still verified", i)
		}
	}
}

func TestVerifyRejectsTamperedMessage(t *testing.T) {
	a := New("shared_secret_key")
	signed := `{"command":"send_joke","counter":2,"name":"Sat"}`
	digest := a.Generate(signed, 2)

	tampered := `{"command":"reset","counter":2,"name":"Sat"}`
	if a.Verify(tampered, 2, digest) {
		t.Fatalf("tampered message verified with original digest")
	}
}

func TestVerifyRejectsWrongCounter(t *testing.T) {
	a := New("shared_secret_key")
	digest := a.Generate("msg", 7)
	if a.Verify("msg", 8, digest) {
		t.Fatalf("digest bound to counter 7 verified against 8")
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	digest := New("secret-a").Generate("msg", 1)
	if New("secret-b").Verify("msg", 1, digest) {
		t.Fatalf("digest verified under a different secret")
	}
}

func TestVerifyRejectsShortCandidate(t *testing.T) {
	a := New("shared_secret_key")
	if a.Verify("msg", 1, "deadbeef") {
		t.Fatalf("truncated candidate verified")
	}
}
