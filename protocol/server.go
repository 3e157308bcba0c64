package protocol

import (
	"github.com/mickamy/mysqlwire/frame"
	"github.com/mickamy/mysqlwire/mysqlerr"
)

// ServerMessage is the closed sum type of messages the driver receives.
// Decoding dispatch lives in decoder.go, driven by the active decode
// context (spec.md §4.5, §9).
type ServerMessage interface {
	serverMessage()
}

// HandshakeV10 is the server's initial greeting (spec.md §4.3).
type HandshakeV10 struct {
	ProtocolVersion byte
	ServerVersion   string
	ConnectionID    uint32
	Salt            []byte // 20 bytes, native-plugin salt (part1+part2)
	Capabilities    CapabilityFlags
	Collation       byte
	StatusFlags     StatusFlags
	AuthPluginName  string
}

func (HandshakeV10) serverMessage() {}

// DecodeHandshakeV10 decodes the initial greeting. The protocol version
// is verified to be exactly 10 (spec.md §4.3).
func DecodeHandshakeV10(msg []byte) (*HandshakeV10, error) {
	c := frame.NewCursor(msg)
	protoVersion, err := c.U8()
	if err != nil {
		return nil, err
	}
	if protoVersion != 10 {
		return nil, mysqlerr.New(mysqlerr.KindProtocolNotSupported, true,
			"handshake protocol version %d is not supported (want 10)", protoVersion)
	}

	serverVersion, err := c.CString()
	if err != nil {
		return nil, err
	}
	connID, err := c.U32()
	if err != nil {
		return nil, err
	}
	salt1, err := c.Raw(8)
	if err != nil {
		return nil, err
	}
	if err := c.Skip(1); err != nil { // filler
		return nil, err
	}
	capLow, err := c.U16()
	if err != nil {
		return nil, err
	}
	collation, err := c.U8()
	if err != nil {
		return nil, err
	}
	status, err := c.U16()
	if err != nil {
		return nil, err
	}
	capHigh, err := c.U16()
	if err != nil {
		return nil, err
	}
	caps := CapabilityFlags(uint32(capLow) | uint32(capHigh)<<16)

	var authDataLen byte
	if caps.Has(ClientPluginAuth) {
		authDataLen, err = c.U8()
		if err != nil {
			return nil, err
		}
	} else {
		if err := c.Skip(1); err != nil {
			return nil, err
		}
	}

	if err := c.Skip(10); err != nil { // reserved
		return nil, err
	}

	salt2Len := 12
	if authDataLen > 9 {
		l := int(authDataLen) - 9
		if l > salt2Len {
			salt2Len = l
		}
	}
	salt2, err := c.Raw(salt2Len)
	if err != nil {
		return nil, err
	}
	if err := c.Skip(1); err != nil { // trailing 0x00 padding
		return nil, err
	}

	salt := make([]byte, 0, len(salt1)+len(salt2))
	salt = append(salt, salt1...)
	salt = append(salt, salt2...)

	var pluginName string
	if caps.Has(ClientPluginAuth) && c.Len() > 0 {
		pluginName, err = c.CString()
		if err != nil {
			return nil, err
		}
	}

	return &HandshakeV10{
		ProtocolVersion: protoVersion,
		ServerVersion:   serverVersion,
		ConnectionID:    connID,
		Salt:            salt,
		Capabilities:    caps,
		Collation:       collation,
		StatusFlags:     StatusFlags(status),
		AuthPluginName:  pluginName,
	}, nil
}

// OK is the OK message (spec.md §6). Header is 0x00, or 0xFE when
// ClientDeprecateEOF is negotiated and the payload shape permits it.
type OK struct {
	AffectedRows uint64
	LastInsertID uint64
	StatusFlags  StatusFlags
	Warnings     uint16
	Info         string
}

func (OK) serverMessage() {}

// DecodeOK decodes an OK payload (header byte already consumed by cur).
func DecodeOK(c *frame.Cursor, protocol41 bool) (*OK, error) {
	affected, err := c.LenEncInt()
	if err != nil {
		return nil, err
	}
	lastID, err := c.LenEncInt()
	if err != nil {
		return nil, err
	}
	ok := &OK{AffectedRows: affected, LastInsertID: lastID}
	if protocol41 {
		status, err := c.U16()
		if err != nil {
			return nil, err
		}
		warnings, err := c.U16()
		if err != nil {
			return nil, err
		}
		ok.StatusFlags = StatusFlags(status)
		ok.Warnings = warnings
	}
	if c.Len() > 0 {
		ok.Info = string(c.Rest())
	}
	return ok, nil
}

// ERR is the ERR message (spec.md §6). Header is 0xFF.
type ERR struct {
	Code     uint16
	SQLState string
	Message  string
}

func (ERR) serverMessage() {}

// DecodeERR decodes an ERR payload (header byte already consumed).
func DecodeERR(c *frame.Cursor, protocol41 bool) (*ERR, error) {
	code, err := c.U16()
	if err != nil {
		return nil, err
	}
	e := &ERR{Code: code}
	if protocol41 {
		marker, err := c.U8()
		if err != nil {
			return nil, err
		}
		if marker == '#' {
			state, err := c.Raw(5)
			if err != nil {
				return nil, err
			}
			e.SQLState = string(state)
		}
	}
	e.Message = string(c.Rest())
	return e, nil
}

// EOF is the pre-deprecation EOF message (spec.md §6). Header is 0xFE,
// total payload length <= 9.
type EOF struct {
	Warnings    uint16
	StatusFlags StatusFlags
}

func (EOF) serverMessage() {}

// DecodeEOF decodes an EOF payload (header byte already consumed).
func DecodeEOF(c *frame.Cursor) (*EOF, error) {
	warnings, err := c.U16()
	if err != nil {
		return nil, err
	}
	status, err := c.U16()
	if err != nil {
		return nil, err
	}
	return &EOF{Warnings: warnings, StatusFlags: StatusFlags(status)}, nil
}

// AuthMoreData carries an opaque payload for the active auth plugin to
// interpret (spec.md §4.4). Header is 0x01 in CONNECTION context.
type AuthMoreData struct {
	Data []byte
}

func (AuthMoreData) serverMessage() {}

// AuthSwitchRequest asks the client to switch to a different plugin
// with a fresh salt (spec.md §4.4). Header is 0xFE in CONNECTION
// context with a payload too long to be an EOF.
type AuthSwitchRequest struct {
	PluginName string
	Salt       []byte
}

func (AuthSwitchRequest) serverMessage() {}

func decodeAuthSwitchRequest(c *frame.Cursor) (*AuthSwitchRequest, error) {
	name, err := c.CString()
	if err != nil {
		return nil, err
	}
	salt := c.Rest()
	// Strip a single trailing 0x00 if present (some servers pad it).
	if len(salt) > 0 && salt[len(salt)-1] == 0 {
		salt = salt[:len(salt)-1]
	}
	return &AuthSwitchRequest{PluginName: name, Salt: salt}, nil
}

// ColumnCount carries the number of columns in an upcoming result set
// metadata block (spec.md §4.8).
type ColumnCount struct {
	Count uint64
}

func (ColumnCount) serverMessage() {}

// ColumnDefinition41 is one COM_QUERY/COM_STMT_PREPARE column
// definition (protocol 4.1 shape).
type ColumnDefinition41 struct {
	Catalog      string
	Schema       string
	Table        string
	OrgTable     string
	Name         string
	OrgName      string
	CharacterSet uint16
	ColumnLength uint32
	Type         byte
	Flags        uint16
	Decimals     byte
}

func (ColumnDefinition41) serverMessage() {}

// Unsigned reports whether the UNSIGNED_FLAG (0x0020) is set.
func (c ColumnDefinition41) Unsigned() bool {
	return c.Flags&0x0020 != 0
}

// DecodeColumnDefinition41 decodes a column-definition message.
func DecodeColumnDefinition41(msg []byte) (*ColumnDefinition41, error) {
	c := frame.NewCursor(msg)
	catalog, err := c.LenEncString()
	if err != nil {
		return nil, err
	}
	schema, err := c.LenEncString()
	if err != nil {
		return nil, err
	}
	table, err := c.LenEncString()
	if err != nil {
		return nil, err
	}
	orgTable, err := c.LenEncString()
	if err != nil {
		return nil, err
	}
	name, err := c.LenEncString()
	if err != nil {
		return nil, err
	}
	orgName, err := c.LenEncString()
	if err != nil {
		return nil, err
	}
	if _, err := c.LenEncInt(); err != nil { // length of fixed-length fields, always 0x0C
		return nil, err
	}
	charset, err := c.U16()
	if err != nil {
		return nil, err
	}
	length, err := c.U32()
	if err != nil {
		return nil, err
	}
	typ, err := c.U8()
	if err != nil {
		return nil, err
	}
	flags, err := c.U16()
	if err != nil {
		return nil, err
	}
	decimals, err := c.U8()
	if err != nil {
		return nil, err
	}
	return &ColumnDefinition41{
		Catalog:      string(catalog),
		Schema:       string(schema),
		Table:        string(table),
		OrgTable:     string(orgTable),
		Name:         string(name),
		OrgName:      string(orgName),
		CharacterSet: charset,
		ColumnLength: length,
		Type:         typ,
		Flags:        flags,
		Decimals:     decimals,
	}, nil
}

// PreparedOK is the response to COM_STMT_PREPARE (spec.md §4.8 step 1).
type PreparedOK struct {
	StatementID uint32
	ColumnCount uint16
	ParamCount  uint16
	Warnings    uint16
}

func (PreparedOK) serverMessage() {}

func decodePreparedOK(c *frame.Cursor) (*PreparedOK, error) {
	stmtID, err := c.U32()
	if err != nil {
		return nil, err
	}
	cols, err := c.U16()
	if err != nil {
		return nil, err
	}
	params, err := c.U16()
	if err != nil {
		return nil, err
	}
	if err := c.Skip(1); err != nil { // filler
		return nil, err
	}
	warnings, err := c.U16()
	if err != nil {
		return nil, err
	}
	return &PreparedOK{StatementID: stmtID, ColumnCount: cols, ParamCount: params, Warnings: warnings}, nil
}
