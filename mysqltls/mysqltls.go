// Package mysqltls defines the single hook the connection-phase state
// machine needs to upgrade a raw socket to TLS after sending an
// SSLRequest (spec.md §1: "TLS negotiation details (only the state
// hook is specified)"; §4.3's SSL path).
package mysqltls

import (
	"context"
	"net"
)

// Mode selects how strongly TLS is requested (spec.md §4's
// configuration inputs).
type Mode int

const (
	Disabled Mode = iota
	Preferred
	Required
	VerifyCA
	VerifyIdentity
)

// UpgradeFunc wraps a plain connection in TLS once the client has sent
// its SSLRequest, returning the encrypted connection to continue the
// handshake over. The conn package is the only caller; everything
// about certificate verification, SNI, and cipher selection is the
// hook's business, not the driver core's.
type UpgradeFunc func(ctx context.Context, raw net.Conn, serverName string) (net.Conn, error)
