// Package session holds the mutable per-connection state a MySQL
// connection accumulates across the handshake and carries for its
// lifetime (spec.md §3 "Session"). It enforces the session's own
// invariants; it never touches the network.
package session

import (
	"github.com/mickamy/mysqlwire/mysqlerr"
	"github.com/mickamy/mysqlwire/protocol"
)

// Credentials is the username/password pair used during authentication.
// Zero releases both fields, matching the "credentials are zeroed after
// the phase transition" invariant (spec.md §3).
type Credentials struct {
	Username string
	Password string
}

// Zero clears both fields in place.
func (c *Credentials) Zero() {
	c.Username = ""
	c.Password = ""
}

// Session is the mutable per-connection state (spec.md §3).
type Session struct {
	ConnectionID  uint32
	ServerVersion string

	ServerCapabilities protocol.CapabilityFlags
	ClientCapabilities protocol.CapabilityFlags

	CollationID byte

	CurrentAuthPlugin string
	Scramble          []byte

	Credentials Credentials
	Database    string
}

// New returns a zero-value Session ready for a fresh connection attempt.
func New() *Session {
	return &Session{}
}

// NegotiateCapabilities intersects serverCaps with the capabilities the
// client wishes to use, enforcing client_capabilities ⊆ server_capabilities
// (spec.md §3). ServerCapabilities records serverCaps as observed;
// ClientCapabilities becomes the intersection (as negotiated).
func (s *Session) NegotiateCapabilities(serverCaps, clientWanted protocol.CapabilityFlags) {
	s.ServerCapabilities = serverCaps
	s.ClientCapabilities = serverCaps & clientWanted
}

// SetCollation sets the negotiated collation id. A zero id is rejected:
// collation_id ≠ 0 is a command-phase invariant (spec.md §3).
func (s *Session) SetCollation(id byte) error {
	if id == 0 {
		return mysqlerr.New(mysqlerr.KindProtocolNotSupported, true, "server offered collation id 0")
	}
	s.CollationID = id
	return nil
}

// CompleteAuth releases the scramble and credentials now that the
// connection phase is over (spec.md §3's zeroing invariant) and clears
// the current plugin name, which is only meaningful mid-handshake.
func (s *Session) CompleteAuth() {
	for i := range s.Scramble {
		s.Scramble[i] = 0
	}
	s.Scramble = nil
	s.Credentials.Zero()
	s.CurrentAuthPlugin = ""
}

// DeprecateEOF reports whether ClientDeprecateEOF was negotiated, the
// flag every decode context with an EOF-shaped terminator must consult.
func (s *Session) DeprecateEOF() bool {
	return s.ClientCapabilities.Has(protocol.ClientDeprecateEOF)
}
