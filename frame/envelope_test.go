package frame_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/mickamy/mysqlwire/frame"
)

func TestRoundTripSmall(t *testing.T) {
	t.Parallel()

	payload := []byte("hello, mysql")
	var buf bytes.Buffer
	s := frame.NewSlicer()
	if err := s.Encode(&buf, payload); err != nil {
		t.Fatalf("encode: %v", err)
	}

	j := frame.NewJoiner()
	got, done, err := j.Feed(&buf)
	if err != nil {
		t.Fatalf("feed: %v", err)
	}
	if !done {
		t.Fatal("expected done=true for a single small envelope")
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("got %q, want %q", got, payload)
	}
}

func TestRoundTripExactMultipleOfMaxPayload(t *testing.T) {
	if testing.Short() {
		t.Skip("allocates a MaxPayload-sized buffer")
	}
	t.Parallel()

	payload := bytes.Repeat([]byte{0xAB}, frame.MaxPayload)
	var buf bytes.Buffer
	s := frame.NewSlicer()
	if err := s.Encode(&buf, payload); err != nil {
		t.Fatalf("encode: %v", err)
	}

	// Must be followed by a terminating zero-length envelope.
	j := frame.NewJoiner()
	var got []byte
	for {
		chunk, done, err := j.Feed(&buf)
		if err != nil {
			t.Fatalf("feed: %v", err)
		}
		if done {
			got = chunk
			break
		}
	}
	if len(got) != len(payload) {
		t.Errorf("got %d bytes, want %d", len(got), len(payload))
	}
	if buf.Len() != 0 {
		t.Errorf("expected all bytes consumed, %d remain", buf.Len())
	}
}

func TestSequenceMismatchIsFatal(t *testing.T) {
	t.Parallel()

	// Hand-craft an envelope with the wrong sequence id (1 instead of 0).
	var buf bytes.Buffer
	buf.Write([]byte{0x01, 0x00, 0x00, 0x01, 0xFF})

	j := frame.NewJoiner()
	_, _, err := j.Feed(&buf)
	if err == nil {
		t.Fatal("expected sequence mismatch error")
	}
}

func TestSequenceResetAtExchangeBoundary(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	s := frame.NewSlicer()
	_ = s.Encode(&buf, []byte("first"))
	s.ResetSequence()
	_ = s.Encode(&buf, []byte("second"))

	j := frame.NewJoiner()
	if _, _, err := j.Feed(&buf); err != nil {
		t.Fatalf("feed first: %v", err)
	}
	j.ResetSequence()
	if _, _, err := j.Feed(&buf); err != nil {
		t.Fatalf("feed second: %v", err)
	}
}

func TestJoinerReleasesOnClose(t *testing.T) {
	t.Parallel()

	j := frame.NewJoiner()
	var buf bytes.Buffer
	buf.Write([]byte{0x05, 0x00, 0x00, 0x00})
	buf.Write([]byte("abcde"))
	// Feed only the header+partial payload by truncating the reader.
	r := io.LimitReader(&buf, 6)
	_, _, _ = j.Feed(r)
	j.Close() // must not panic, must release fragments
}
