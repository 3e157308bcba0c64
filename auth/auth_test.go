package auth

import (
	"bytes"
	"crypto/sha1" //nolint:gosec // test computes the same reference algorithm
	"testing"
)

// TestNativePasswordFastPhaseReferenceVector checks the byte-exact
// example from spec.md §8: password "secret", 20-byte salt 0x00..0x13.
func TestNativePasswordFastPhaseReferenceVector(t *testing.T) {
	t.Parallel()

	salt := make([]byte, 20)
	for i := range salt {
		salt[i] = byte(i)
	}

	got := NativePasswordFastPhase("secret", salt)

	pwHash := sha1.Sum([]byte("secret")) //nolint:gosec
	pwHashHash := sha1.Sum(pwHash[:])    //nolint:gosec
	h := sha1.New()                      //nolint:gosec
	h.Write(salt)
	h.Write(pwHashHash[:])
	saltedHash := h.Sum(nil)
	want := make([]byte, len(pwHash))
	for i := range want {
		want[i] = pwHash[i] ^ saltedHash[i]
	}

	if !bytes.Equal(got, want) {
		t.Fatalf("fast phase mismatch:\n got  %x\n want %x", got, want)
	}
	if len(got) != 20 {
		t.Fatalf("expected 20-byte output, got %d", len(got))
	}
}

func TestNativePasswordFastPhaseEmptyPassword(t *testing.T) {
	t.Parallel()

	if got := NativePasswordFastPhase("", make([]byte, 20)); got != nil {
		t.Fatalf("expected nil for empty password, got %x", got)
	}
}

func TestCachingSHA2FastPhaseDeterministic(t *testing.T) {
	t.Parallel()

	salt := []byte("01234567890123456789")
	a := CachingSHA2FastPhase("hunter2", salt)
	b := CachingSHA2FastPhase("hunter2", salt)
	if !bytes.Equal(a, b) {
		t.Fatal("expected deterministic output for identical inputs")
	}
	if bytes.Equal(a, CachingSHA2FastPhase("hunter3", salt)) {
		t.Fatal("expected different output for different passwords")
	}
}

func TestCachingSHA2FullPhaseOverTLSTerminatesWithNUL(t *testing.T) {
	t.Parallel()

	got := CachingSHA2FullPhaseOverTLS("hunter2")
	if got[len(got)-1] != 0x00 {
		t.Fatalf("expected NUL terminator, got %x", got)
	}
	if string(got[:len(got)-1]) != "hunter2" {
		t.Fatalf("unexpected password bytes: %q", got)
	}
}

func TestXorWithRepeatingKeyRoundTrips(t *testing.T) {
	t.Parallel()

	data := []byte("the quick brown fox")
	key := []byte("salt")
	xored := xorWithRepeatingKey(data, key)
	back := xorWithRepeatingKey(xored, key)
	if !bytes.Equal(data, back) {
		t.Fatalf("xor is not its own inverse: got %q want %q", back, data)
	}
}

func TestParseRSAPublicKeyRejectsGarbage(t *testing.T) {
	t.Parallel()

	if _, err := parseRSAPublicKey([]byte("not pem")); err == nil {
		t.Fatal("expected error for non-PEM input")
	}
}
