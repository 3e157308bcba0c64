// Package conn wires the envelope codec, connection-phase state
// machine, exchange engine, and query flows into the single public
// type callers hold: Conn. It is the only package in this module that
// touches net.Conn (spec.md §1, components E/F/G/H).
package conn

import (
	"context"
	"io"
	"time"

	"github.com/mickamy/mysqlwire/exchange"
	"github.com/mickamy/mysqlwire/mysqltls"
)

// Config is everything Dial needs to reach a server and negotiate a
// connection (spec.md §4's configuration inputs).
type Config struct {
	Host string
	Port int

	Username string
	Password string
	Database string

	// Collation is the client's requested initial collation id. Zero
	// defaults to 33 (utf8_general_ci).
	Collation byte

	// MultiStatements requests the CLIENT_MULTI_STATEMENTS capability.
	MultiStatements bool

	// TLS controls whether/how the connection negotiates TLS (spec.md
	// §4.3's SSL branch). TLSUpgrade is required when TLSMode is
	// anything but Disabled.
	TLSMode    mysqltls.Mode
	TLSUpgrade mysqltls.UpgradeFunc

	// ConnectAttrs is sent as CLIENT_CONNECT_ATTRS if non-empty.
	ConnectAttrs map[string]string

	// ConnectTimeout bounds dialing the TCP socket. Zero means no
	// timeout beyond the context passed to Dial.
	ConnectTimeout time.Duration

	// Tracer receives exchange lifecycle events (spec.md §4.10),
	// nil to disable.
	Tracer exchange.Tracer

	// Debug, when non-nil, receives a spew.Dump of every decoded message
	// and outbound envelope (see debug package), never turned on by
	// default.
	Debug io.Writer

	// Logger receives a line for connection-fatal events (a reactor
	// decode/transport error, an authentication failure). Nil defaults
	// to a no-op; StdLogger adapts the standard library's log package.
	Logger Logger
}

func (c Config) collation() byte {
	if c.Collation == 0 {
		return defaultCollation
	}
	return c.Collation
}

// defaultCollation is utf8_general_ci.
const defaultCollation byte = 33

// serverName is the TLS ServerName the upgrade hook should verify
// against, derived from Config.Host.
func (c Config) serverName() string {
	return c.Host
}

// dialCtx applies ConnectTimeout on top of the caller's context,
// returning a no-op cancel if no timeout is configured.
func dialCtx(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}
