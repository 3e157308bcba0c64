// Package mysqlerr holds the error taxonomy for the mysqlwire driver core.
package mysqlerr

import (
	"errors"
	"fmt"
)

// Kind classifies a driver error into the taxonomy the connection and
// exchange layers react to (some are fatal to the connection, some only
// to the current exchange).
type Kind int

const (
	// KindProtocolNotSupported covers an unknown header, an unsupported
	// protocol version, or a missing mandatory capability. Fatal to the
	// connection.
	KindProtocolNotSupported Kind = iota
	// KindTerminateNotFound is a missing 0x00 terminator on a c-string.
	// Fatal to the decode; the connection is closed.
	KindTerminateNotFound
	// KindSequenceMismatch is an unexpected envelope sequence id. Fatal
	// to the connection.
	KindSequenceMismatch
	// KindAuthFailed covers an ERR during the connection phase, or a
	// policy refusal (full auth required but no TLS and no RSA key).
	KindAuthFailed
	// KindServerError is an ERR during the command phase. Not fatal to
	// the connection; surfaced to the current exchange's subscriber.
	KindServerError
	// KindClientMisuse covers caller mistakes: binding after execute,
	// unbound parameters, unknown named parameter.
	KindClientMisuse
	// KindTransportClosed means the underlying socket ended. Fails all
	// in-flight and queued exchanges; the connection is unusable after.
	KindTransportClosed
)

func (k Kind) String() string {
	switch k {
	case KindProtocolNotSupported:
		return "protocol not supported"
	case KindTerminateNotFound:
		return "terminator not found"
	case KindSequenceMismatch:
		return "sequence mismatch"
	case KindAuthFailed:
		return "authentication failed"
	case KindServerError:
		return "server error"
	case KindClientMisuse:
		return "client misuse"
	case KindTransportClosed:
		return "transport closed"
	}
	return fmt.Sprintf("unknown error kind(%d)", int(k))
}

// Error is the concrete error type returned by the driver core.
// Use errors.As to recover it and inspect Kind/Code/SQLState.
type Error struct {
	Kind     Kind
	Code     uint16 // server error_code, command phase only
	SQLState string // 5-byte SQL state, command phase only
	Message  string
	SQL      string // originating SQL, when known
	Fatal    bool   // true when the connection must be closed
	cause    error
}

func (e *Error) Error() string {
	switch {
	case e.Code != 0 && e.SQLState != "":
		return fmt.Sprintf("mysqlwire: %s (%d, %s): %s", e.Kind, e.Code, e.SQLState, e.Message)
	case e.Message != "":
		return fmt.Sprintf("mysqlwire: %s: %s", e.Kind, e.Message)
	default:
		return fmt.Sprintf("mysqlwire: %s", e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.cause }

// Is matches on Kind so callers can do errors.Is(err, mysqlerr.AuthFailed).
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	if other.Message != "" || other.Code != 0 {
		return false
	}
	return e.Kind == other.Kind
}

// Sentinel values usable with errors.Is for a bare Kind match.
var (
	ProtocolNotSupported = &Error{Kind: KindProtocolNotSupported, Fatal: true}
	TerminateNotFound    = &Error{Kind: KindTerminateNotFound, Fatal: true}
	SequenceMismatch     = &Error{Kind: KindSequenceMismatch, Fatal: true}
	AuthFailed           = &Error{Kind: KindAuthFailed, Fatal: true}
	ClientMisuse         = &Error{Kind: KindClientMisuse}
	TransportClosed      = &Error{Kind: KindTransportClosed, Fatal: true}
)

// New builds an Error of the given kind with a formatted message.
func New(kind Kind, fatal bool, format string, args ...any) *Error {
	return &Error{Kind: kind, Fatal: fatal, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error of the given kind around a lower-level cause.
func Wrap(kind Kind, fatal bool, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Fatal: fatal, Message: fmt.Sprintf(format, args...), cause: cause}
}

// Server builds a KindServerError from a decoded ERR packet.
func Server(code uint16, sqlState, message, sql string) *Error {
	return &Error{Kind: KindServerError, Code: code, SQLState: sqlState, Message: message, SQL: sql}
}
