package varint_test

import (
	"testing"

	"github.com/mickamy/mysqlwire/varint"
)

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	values := []uint64{
		0, 1, 250, 251, 252, 255, 256, 65535, 65536,
		16777215, 16777216, 1 << 32, 1<<64 - 1,
	}
	for _, v := range values {
		buf := varint.Encode(nil, v)
		got, n, err := varint.Decode(buf, 0)
		if err != nil {
			t.Fatalf("decode(%d): %v", v, err)
		}
		if got != v {
			t.Errorf("round trip %d: got %d", v, got)
		}
		if n != len(buf) {
			t.Errorf("round trip %d: consumed %d, want %d", v, n, len(buf))
		}
	}
}

func TestEncodeMinimalWidth(t *testing.T) {
	t.Parallel()

	tests := []struct {
		v        uint64
		wantLen  int
		wantHead byte
	}{
		{0, 1, 0},
		{250, 1, 250},
		{251, 3, 0xFC},
		{65535, 3, 0xFC},
		{65536, 4, 0xFD},
		{16777215, 4, 0xFD},
		{16777216, 9, 0xFE},
	}
	for _, tt := range tests {
		buf := varint.Encode(nil, tt.v)
		if len(buf) != tt.wantLen {
			t.Errorf("encode(%d): len=%d, want %d", tt.v, len(buf), tt.wantLen)
		}
		if buf[0] != tt.wantHead {
			t.Errorf("encode(%d): head=0x%02X, want 0x%02X", tt.v, buf[0], tt.wantHead)
		}
	}
}

func TestDecodeNull(t *testing.T) {
	t.Parallel()

	v, n, err := varint.Decode([]byte{0xFB}, 0)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if v != varint.Null {
		t.Errorf("expected Null marker, got %d", v)
	}
	if n != 1 {
		t.Errorf("expected 1 byte consumed, got %d", n)
	}
}

func TestCStringRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []string{"", "root", "mysql_native_password", "a b c"}
	for _, s := range tests {
		buf := varint.EncodeCString(nil, s)
		got, n, err := varint.CString(buf, 0)
		if err != nil {
			t.Fatalf("cstring(%q): %v", s, err)
		}
		if string(got) != s {
			t.Errorf("cstring(%q): got %q", s, got)
		}
		if n != len(buf) {
			t.Errorf("cstring(%q): consumed %d, want %d", s, n, len(buf))
		}
	}
}

func TestCStringMissingTerminator(t *testing.T) {
	t.Parallel()

	_, _, err := varint.CString([]byte("no terminator"), 0)
	if err == nil {
		t.Fatal("expected TerminateNotFound error")
	}
}

func TestStringRoundTrip(t *testing.T) {
	t.Parallel()

	tests := [][]byte{nil, []byte("hi"), []byte("SELECT 1")}
	for _, s := range tests {
		buf := varint.EncodeString(nil, s)
		got, n, err := varint.DecodeString(buf, 0)
		if err != nil {
			t.Fatalf("string(%q): %v", s, err)
		}
		if string(got) != string(s) {
			t.Errorf("string(%q): got %q", s, got)
		}
		if n != len(buf) {
			t.Errorf("string(%q): consumed %d, want %d", s, n, len(buf))
		}
	}
}
