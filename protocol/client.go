package protocol

import (
	"github.com/mickamy/mysqlwire/varint"
)

// ClientMessage is the closed sum type of messages the driver sends.
// Encoding is a match over concrete type, not a subclass hierarchy
// (spec.md §9).
type ClientMessage interface {
	Encode() []byte
	clientMessage()
}

// ConnectAttr is one key/value pair of the connect-attrs block.
type ConnectAttr struct {
	Key   string
	Value string
}

// SSLRequest is the 32-byte partial handshake response sent before the
// TLS upgrade when the SSL capability is negotiated (spec.md §4.3).
type SSLRequest struct {
	ClientFlags   CapabilityFlags
	MaxPacketSize uint32
	CharacterSet  byte
}

func (SSLRequest) clientMessage() {}

// Encode implements ClientMessage.
func (m SSLRequest) Encode() []byte {
	buf := make([]byte, 0, 32)
	buf = putU32(buf, uint32(m.ClientFlags))
	buf = putU32(buf, m.MaxPacketSize)
	buf = append(buf, m.CharacterSet)
	buf = append(buf, make([]byte, 23)...)
	return buf
}

// HandshakeResponse41 is the client's answer to HandshakeV10
// (spec.md §4.3).
type HandshakeResponse41 struct {
	ClientFlags   CapabilityFlags
	MaxPacketSize uint32
	CharacterSet  byte
	Username      string
	AuthResponse  []byte
	Database      string
	AuthPlugin    string
	ConnectAttrs  []ConnectAttr
}

func (HandshakeResponse41) clientMessage() {}

// Encode implements ClientMessage.
func (m HandshakeResponse41) Encode() []byte {
	buf := make([]byte, 0, 64+len(m.Username)+len(m.AuthResponse)+len(m.Database))
	buf = putU32(buf, uint32(m.ClientFlags))
	buf = putU32(buf, m.MaxPacketSize)
	buf = append(buf, m.CharacterSet)
	buf = append(buf, make([]byte, 23)...)
	buf = varint.EncodeCString(buf, m.Username)

	if m.ClientFlags.Has(ClientPluginAuthLenencClientData) {
		buf = varint.EncodeString(buf, m.AuthResponse)
	} else {
		buf = append(buf, byte(len(m.AuthResponse)))
		buf = append(buf, m.AuthResponse...)
	}

	if m.ClientFlags.Has(ClientConnectWithDB) {
		buf = varint.EncodeCString(buf, m.Database)
	}
	if m.ClientFlags.Has(ClientPluginAuth) {
		buf = varint.EncodeCString(buf, m.AuthPlugin)
	}
	if m.ClientFlags.Has(ClientConnectAttrs) {
		var attrs []byte
		for _, a := range m.ConnectAttrs {
			attrs = varint.EncodeString(attrs, []byte(a.Key))
			attrs = varint.EncodeString(attrs, []byte(a.Value))
		}
		buf = varint.EncodeString(buf, attrs)
	}
	return buf
}

// AuthSwitchResponse carries the raw bytes produced by an auth
// plugin's fast/full phase in reply to AuthSwitchRequest or
// AuthMoreData (spec.md §4.4). It has no header; the bytes are the
// entire envelope payload.
type AuthSwitchResponse struct {
	Data []byte
}

func (AuthSwitchResponse) clientMessage() {}

// Encode implements ClientMessage.
func (m AuthSwitchResponse) Encode() []byte {
	return m.Data
}

// ComText is a command carrying a command byte plus a raw UTF-8 body:
// COM_QUERY, COM_INIT_DB, COM_STMT_PREPARE.
type ComText struct {
	Cmd  Command
	Text string
}

func (ComText) clientMessage() {}

// Encode implements ClientMessage.
func (m ComText) Encode() []byte {
	buf := make([]byte, 0, 1+len(m.Text))
	buf = append(buf, byte(m.Cmd))
	buf = append(buf, m.Text...)
	return buf
}

// ComSimple is a fixed, argument-less command: COM_QUIT, COM_PING.
type ComSimple struct {
	Cmd Command
}

func (ComSimple) clientMessage() {}

// Encode implements ClientMessage.
func (m ComSimple) Encode() []byte {
	return []byte{byte(m.Cmd)}
}

// StmtParam describes one bound or unset execute-time parameter.
type StmtParam struct {
	Null     bool
	Type     byte
	Unsigned bool
	Value    []byte // binary-encoded value; unused when Null
}

// ComStmtExecute is COM_STMT_EXECUTE (spec.md §4.8 step 4).
type ComStmtExecute struct {
	StmtID         uint32
	Params         []StmtParam
	NewParamsBound bool
}

func (ComStmtExecute) clientMessage() {}

const (
	cursorTypeNoCursor byte   = 0x00
	iterationCount     uint32 = 1
)

// Encode implements ClientMessage.
func (m ComStmtExecute) Encode() []byte {
	buf := make([]byte, 0, 16+len(m.Params)*4)
	buf = append(buf, byte(ComStmtExec))
	buf = putU32(buf, m.StmtID)
	buf = append(buf, cursorTypeNoCursor)
	buf = putU32(buf, iterationCount)

	if len(m.Params) == 0 {
		return buf
	}

	nullBitmap := make([]byte, (len(m.Params)+7)/8)
	for i, p := range m.Params {
		if p.Null {
			nullBitmap[i/8] |= 1 << uint(i%8)
		}
	}
	buf = append(buf, nullBitmap...)

	if m.NewParamsBound {
		buf = append(buf, 1)
		for _, p := range m.Params {
			buf = append(buf, p.Type)
			if p.Unsigned {
				buf = append(buf, 0x80)
			} else {
				buf = append(buf, 0x00)
			}
		}
	} else {
		buf = append(buf, 0)
	}

	for _, p := range m.Params {
		if p.Null {
			continue
		}
		buf = append(buf, p.Value...)
	}
	return buf
}

// ComStmtID is COM_STMT_CLOSE or COM_STMT_RESET, both of which are
// just a command byte plus a statement id.
type ComStmtID struct {
	Cmd    Command
	StmtID uint32
}

func (ComStmtID) clientMessage() {}

// Encode implements ClientMessage.
func (m ComStmtID) Encode() []byte {
	buf := make([]byte, 0, 5)
	buf = append(buf, byte(m.Cmd))
	buf = putU32(buf, m.StmtID)
	return buf
}

func putU32(buf []byte, v uint32) []byte {
	return append(buf, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}
