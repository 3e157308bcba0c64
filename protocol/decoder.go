package protocol

import (
	"github.com/mickamy/mysqlwire/decode"
	"github.com/mickamy/mysqlwire/frame"
	"github.com/mickamy/mysqlwire/mysqlerr"
)

// header bytes that carry meaning independent of decode context.
const (
	headerOK           byte = 0x00
	headerEOFOrSwitch  byte = 0xFE
	headerERR          byte = 0xFF
	headerAuthMoreData byte = 0x01
	headerLocalInFile  byte = 0xFB
)

// eofLikeMaxLen is the payload length below which a 0xFE-headed message
// is an EOF rather than an AuthSwitchRequest or a long column value
// (spec.md §4.5).
const eofLikeMaxLen = 9

// Decode interprets one envelope payload according to ctx.Kind,
// returning the concrete ServerMessage (spec.md §4.5's discrimination
// table, §9). The caller advances ctx via its own To* transitions;
// Decode never mutates ctx.
func Decode(ctx *decode.Context, msg []byte) (ServerMessage, error) {
	if len(msg) == 0 {
		return nil, mysqlerr.New(mysqlerr.KindProtocolNotSupported, true, "empty server message")
	}

	switch ctx.Kind {
	case decode.Connection:
		return decodeConnection(msg)
	case decode.Command:
		return decodeCommand(msg)
	case decode.WaitPrepare:
		return decodeWaitPrepare(msg)
	case decode.PrepMetadata:
		return decodeColumnLike(msg)
	case decode.ResultMetadata:
		return decodeColumnLike(msg)
	case decode.ResultRows:
		return decodeResultRow(ctx, msg)
	}
	return nil, mysqlerr.New(mysqlerr.KindClientMisuse, false, "unknown decode context %v", ctx.Kind)
}

func decodeConnection(msg []byte) (ServerMessage, error) {
	switch msg[0] {
	case headerOK:
		c := frame.NewCursor(msg[1:])
		return DecodeOK(c, true)
	case 0x0A:
		return DecodeHandshakeV10(msg)
	case headerERR:
		c := frame.NewCursor(msg[1:])
		return DecodeERR(c, true)
	case headerAuthMoreData:
		return &AuthMoreData{Data: msg[1:]}, nil
	case headerEOFOrSwitch:
		if len(msg) <= eofLikeMaxLen {
			c := frame.NewCursor(msg[1:])
			return DecodeEOF(c)
		}
		c := frame.NewCursor(msg[1:])
		return decodeAuthSwitchRequest(c)
	}
	// Post-handshake OK/ERR for the second auth exchange arrive with
	// 0x00/0xFF already handled above; anything else on this leg is an
	// OK carrying the "fast auth success" marker (caching_sha2_password).
	c := frame.NewCursor(msg[1:])
	return DecodeOK(c, true)
}

func decodeCommand(msg []byte) (ServerMessage, error) {
	switch msg[0] {
	case headerOK:
		c := frame.NewCursor(msg[1:])
		return DecodeOK(c, true)
	case headerERR:
		c := frame.NewCursor(msg[1:])
		return DecodeERR(c, true)
	case headerLocalInFile:
		return nil, mysqlerr.New(mysqlerr.KindProtocolNotSupported, true, "LOCAL INFILE is not supported")
	}
	c := frame.NewCursor(msg)
	n, err := c.LenEncInt()
	if err != nil {
		return nil, err
	}
	return &ColumnCount{Count: n}, nil
}

func decodeWaitPrepare(msg []byte) (ServerMessage, error) {
	switch msg[0] {
	case headerERR:
		c := frame.NewCursor(msg[1:])
		return DecodeERR(c, true)
	case headerOK:
		c := frame.NewCursor(msg[1:])
		return decodePreparedOK(c)
	}
	return nil, mysqlerr.New(mysqlerr.KindProtocolNotSupported, true,
		"unexpected header 0x%02x waiting for COM_STMT_PREPARE response", msg[0])
}

func decodeColumnLike(msg []byte) (ServerMessage, error) {
	switch msg[0] {
	case headerERR:
		c := frame.NewCursor(msg[1:])
		return DecodeERR(c, true)
	case headerEOFOrSwitch:
		if len(msg) <= eofLikeMaxLen {
			c := frame.NewCursor(msg[1:])
			return DecodeEOF(c)
		}
	}
	return DecodeColumnDefinition41(msg)
}

func decodeResultRow(ctx *decode.Context, msg []byte) (ServerMessage, error) {
	switch msg[0] {
	case headerERR:
		c := frame.NewCursor(msg[1:])
		return DecodeERR(c, true)
	case headerEOFOrSwitch:
		if ctx.DeprecateEOF && len(msg) < frame.MaxPayload {
			c := frame.NewCursor(msg[1:])
			return DecodeOK(c, true)
		}
		if len(msg) <= eofLikeMaxLen {
			c := frame.NewCursor(msg[1:])
			return DecodeEOF(c)
		}
	}
	if ctx.Binary {
		return DecodeBinaryRow(ctx.Cols, msg)
	}
	return DecodeTextRow(len(ctx.Cols), msg)
}
