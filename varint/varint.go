// Package varint implements MySQL's length-encoded integer and string
// encoding, plus the null-terminated "c-string" convention used
// throughout the handshake and command phases.
package varint

import (
	"bytes"
	"encoding/binary"

	"github.com/mickamy/mysqlwire/mysqlerr"
)

// Null is the sentinel returned by Decode when the leading byte is the
// length-encoded-integer NULL marker (0xFB). Only valid in row contexts.
const Null = ^uint64(0)

// Decode reads a length-encoded integer from buf starting at offset.
// It returns the value, the number of bytes consumed, and Null with a
// consumed count of 1 if the marker denotes NULL.
func Decode(buf []byte, offset int) (value uint64, consumed int, err error) {
	if offset >= len(buf) {
		return 0, 0, mysqlerr.New(mysqlerr.KindProtocolNotSupported, false, "varint: no data at offset %d", offset)
	}
	b := buf[offset]
	switch {
	case b <= 250:
		return uint64(b), 1, nil
	case b == 251:
		return Null, 1, nil
	case b == 252:
		if offset+3 > len(buf) {
			return 0, 0, shortBuf("varint", 3)
		}
		return uint64(binary.LittleEndian.Uint16(buf[offset+1 : offset+3])), 3, nil
	case b == 253:
		if offset+4 > len(buf) {
			return 0, 0, shortBuf("varint", 4)
		}
		v := uint64(buf[offset+1]) | uint64(buf[offset+2])<<8 | uint64(buf[offset+3])<<16
		return v, 4, nil
	case b == 254:
		if offset+9 > len(buf) {
			return 0, 0, shortBuf("varint", 9)
		}
		return binary.LittleEndian.Uint64(buf[offset+1 : offset+9]), 9, nil
	default: // 255
		return 0, 0, mysqlerr.New(mysqlerr.KindProtocolNotSupported, false, "varint: 0xFF is not a valid length-encoded integer here")
	}
}

func shortBuf(what string, need int) error {
	return mysqlerr.New(mysqlerr.KindProtocolNotSupported, false, "%s: need %d more bytes", what, need)
}

// Encode appends the minimal-width length-encoded-integer form of v to
// dst and returns the result.
func Encode(dst []byte, v uint64) []byte {
	switch {
	case v <= 250:
		return append(dst, byte(v))
	case v <= 0xFFFF:
		dst = append(dst, 0xFC)
		var tmp [2]byte
		binary.LittleEndian.PutUint16(tmp[:], uint16(v))
		return append(dst, tmp[:]...)
	case v <= 0xFFFFFF:
		dst = append(dst, 0xFD)
		return append(dst, byte(v), byte(v>>8), byte(v>>16))
	default:
		dst = append(dst, 0xFE)
		var tmp [8]byte
		binary.LittleEndian.PutUint64(tmp[:], v)
		return append(dst, tmp[:]...)
	}
}

// DecodeString reads a length-encoded string (length-encoded integer
// followed by that many bytes) from buf at offset. Returns the string
// bytes (a subslice of buf, not copied) and the total bytes consumed.
func DecodeString(buf []byte, offset int) (value []byte, consumed int, err error) {
	n, headerLen, err := Decode(buf, offset)
	if err != nil {
		return nil, 0, err
	}
	if n == Null {
		return nil, headerLen, nil
	}
	start := offset + headerLen
	end := start + int(n)
	if end > len(buf) {
		return nil, 0, shortBuf("lenenc string", end-len(buf))
	}
	return buf[start:end], headerLen + int(n), nil
}

// EncodeString appends a length-encoded string to dst.
func EncodeString(dst []byte, s []byte) []byte {
	dst = Encode(dst, uint64(len(s)))
	return append(dst, s...)
}

// CString reads bytes up to and including a 0x00 terminator from buf
// starting at offset. Returns the string without the terminator and
// the total bytes consumed (including the terminator).
func CString(buf []byte, offset int) (value []byte, consumed int, err error) {
	if offset > len(buf) {
		return nil, 0, mysqlerr.TerminateNotFound
	}
	idx := bytes.IndexByte(buf[offset:], 0x00)
	if idx < 0 {
		return nil, 0, mysqlerr.TerminateNotFound
	}
	return buf[offset : offset+idx], idx + 1, nil
}

// EncodeCString appends s followed by a 0x00 terminator to dst.
func EncodeCString(dst []byte, s string) []byte {
	dst = append(dst, s...)
	return append(dst, 0x00)
}
