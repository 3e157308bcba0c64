package frame

import (
	"encoding/binary"

	"github.com/mickamy/mysqlwire/mysqlerr"
	"github.com/mickamy/mysqlwire/varint"
)

// Cursor is a read-only view over a logical message's joined payload.
// It never copies; every read advances an offset into the underlying
// slice.
type Cursor struct {
	buf []byte
	pos int
}

// NewCursor wraps buf for sequential reads starting at offset 0.
func NewCursor(buf []byte) *Cursor {
	return &Cursor{buf: buf}
}

// Len returns the number of unread bytes.
func (c *Cursor) Len() int { return len(c.buf) - c.pos }

// Pos returns the current read offset.
func (c *Cursor) Pos() int { return c.pos }

// Bytes returns the full backing slice (for header peeks).
func (c *Cursor) Bytes() []byte { return c.buf }

// Peek returns the next byte without advancing, or ok=false at EOF.
func (c *Cursor) Peek() (b byte, ok bool) {
	if c.pos >= len(c.buf) {
		return 0, false
	}
	return c.buf[c.pos], true
}

// U8 reads one byte.
func (c *Cursor) U8() (byte, error) {
	if c.pos+1 > len(c.buf) {
		return 0, shortRead("u8", 1)
	}
	b := c.buf[c.pos]
	c.pos++
	return b, nil
}

// U16 reads a little-endian uint16.
func (c *Cursor) U16() (uint16, error) {
	if c.pos+2 > len(c.buf) {
		return 0, shortRead("u16", 2)
	}
	v := binary.LittleEndian.Uint16(c.buf[c.pos : c.pos+2])
	c.pos += 2
	return v, nil
}

// U24 reads a little-endian 3-byte unsigned integer.
func (c *Cursor) U24() (uint32, error) {
	if c.pos+3 > len(c.buf) {
		return 0, shortRead("u24", 3)
	}
	v := uint32(c.buf[c.pos]) | uint32(c.buf[c.pos+1])<<8 | uint32(c.buf[c.pos+2])<<16
	c.pos += 3
	return v, nil
}

// U32 reads a little-endian uint32.
func (c *Cursor) U32() (uint32, error) {
	if c.pos+4 > len(c.buf) {
		return 0, shortRead("u32", 4)
	}
	v := binary.LittleEndian.Uint32(c.buf[c.pos : c.pos+4])
	c.pos += 4
	return v, nil
}

// U64 reads a little-endian uint64.
func (c *Cursor) U64() (uint64, error) {
	if c.pos+8 > len(c.buf) {
		return 0, shortRead("u64", 8)
	}
	v := binary.LittleEndian.Uint64(c.buf[c.pos : c.pos+8])
	c.pos += 8
	return v, nil
}

// Skip advances n bytes without reading them.
func (c *Cursor) Skip(n int) error {
	if c.pos+n > len(c.buf) {
		return shortRead("skip", n)
	}
	c.pos += n
	return nil
}

// Raw returns the next n bytes without copying and advances past them.
func (c *Cursor) Raw(n int) ([]byte, error) {
	if c.pos+n > len(c.buf) {
		return nil, shortRead("raw", n)
	}
	b := c.buf[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

// Rest returns every remaining byte without copying and advances to EOF.
func (c *Cursor) Rest() []byte {
	b := c.buf[c.pos:]
	c.pos = len(c.buf)
	return b
}

// CString reads a null-terminated string.
func (c *Cursor) CString() (string, error) {
	v, n, err := varint.CString(c.buf, c.pos)
	if err != nil {
		return "", err
	}
	c.pos += n
	return string(v), nil
}

// LenEncInt reads a length-encoded integer; returns varint.Null for the
// NULL marker.
func (c *Cursor) LenEncInt() (uint64, error) {
	v, n, err := varint.Decode(c.buf, c.pos)
	if err != nil {
		return 0, err
	}
	c.pos += n
	return v, nil
}

// LenEncString reads a length-encoded string without copying.
func (c *Cursor) LenEncString() ([]byte, error) {
	v, n, err := varint.DecodeString(c.buf, c.pos)
	if err != nil {
		return nil, err
	}
	c.pos += n
	return v, nil
}

func shortRead(what string, need int) error {
	return mysqlerr.New(mysqlerr.KindProtocolNotSupported, false, "cursor: %s needs %d more bytes", what, need)
}
