package protocol

import (
	"github.com/mickamy/mysqlwire/decode"
	"github.com/mickamy/mysqlwire/frame"
	"github.com/mickamy/mysqlwire/varint"
)

// Field is one row value as it arrived on the wire: either NULL, or the
// raw encoded bytes for the column's declared type. Converting those
// bytes into a Go value is an external collaborator's job (spec.md
// §4.9's "out of scope: value conversion").
type Field struct {
	Null bool
	Raw  []byte
}

// TextRow is one COM_QUERY result row (spec.md §4.8): every field is a
// length-encoded string, or the lenenc NULL marker.
type TextRow struct {
	Fields []Field
}

func (TextRow) serverMessage() {}

// DecodeTextRow decodes a text-protocol row of n columns.
func DecodeTextRow(n int, msg []byte) (*TextRow, error) {
	c := frame.NewCursor(msg)
	fields := make([]Field, n)
	for i := 0; i < n; i++ {
		raw, err := c.LenEncString()
		if err != nil {
			return nil, err
		}
		// varint.DecodeString returns a nil slice only for the lenenc
		// NULL marker; an empty string is a non-nil zero-length slice.
		if raw == nil {
			fields[i] = Field{Null: true}
			continue
		}
		fields[i] = Field{Raw: raw}
	}
	return &TextRow{Fields: fields}, nil
}

// BinaryRow is one COM_STMT_EXECUTE result row (spec.md §4.8 step 4):
// a leading 0x00 byte, a null-bitmap (offset by 2), then each non-NULL
// column's binary-encoded value in declared-type order.
type BinaryRow struct {
	Fields []Field
}

func (BinaryRow) serverMessage() {}

// DecodeBinaryRow decodes a binary-protocol row over cols.
func DecodeBinaryRow(cols []decode.ColumnMeta, msg []byte) (*BinaryRow, error) {
	c := frame.NewCursor(msg)
	if _, err := c.U8(); err != nil { // packet header, always 0x00
		return nil, err
	}
	bitmapLen := (len(cols) + 7 + 2) / 8
	bitmap, err := c.Raw(bitmapLen)
	if err != nil {
		return nil, err
	}

	fields := make([]Field, len(cols))
	for i, col := range cols {
		bitPos := i + 2
		if bitmap[bitPos/8]&(1<<uint(bitPos%8)) != 0 {
			fields[i] = Field{Null: true}
			continue
		}
		raw, err := readBinaryValue(c, col.Type)
		if err != nil {
			return nil, err
		}
		fields[i] = Field{Raw: raw}
	}
	return &BinaryRow{Fields: fields}, nil
}

// readBinaryValue reads one non-NULL binary-protocol value, sized per
// its column type (spec.md §4.8 step 4).
func readBinaryValue(c *frame.Cursor, typ byte) ([]byte, error) {
	switch typ {
	case TypeTiny:
		return c.Raw(1)
	case TypeShort, TypeYear:
		return c.Raw(2)
	case TypeLong, TypeInt24, TypeFloat:
		return c.Raw(4)
	case TypeLongLong, TypeDouble:
		return c.Raw(8)
	case TypeDate, TypeDateTime, TypeTimestamp:
		n, err := c.U8()
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, nil
		}
		return c.Raw(int(n))
	case TypeTime:
		n, err := c.U8()
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, nil
		}
		return c.Raw(int(n))
	case TypeNull:
		return nil, nil
	}

	// Remaining types (VARCHAR, VAR_STRING, STRING, BLOB*, NEWDECIMAL,
	// JSON, BIT, ENUM, SET, GEOMETRY) are length-encoded strings.
	n, err := c.LenEncInt()
	if err != nil {
		return nil, err
	}
	if n == varint.Null {
		return nil, nil
	}
	return c.Raw(int(n))
}
